package host

import (
	"context"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	wasmthumbnail "github.com/wippyai/wasm-thumbnail"
	"github.com/wippyai/wasm-thumbnail/abi"
	"github.com/wippyai/wasm-thumbnail/errors"
)

// linearMemory adapts wazero api.Memory to wasmthumbnail.Memory.
type linearMemory struct {
	mem api.Memory
}

// Read returns a view of guest memory valid until the next guest call.
func (m linearMemory) Read(offset uint32, length uint32) ([]byte, error) {
	data, ok := m.mem.Read(offset, length)
	if !ok {
		return nil, errors.OutOfBounds(errors.PhaseCall, offset, length, m.mem.Size())
	}
	return data, nil
}

// Write copies data into guest memory.
func (m linearMemory) Write(offset uint32, data []byte) error {
	if !m.mem.Write(offset, data) {
		return errors.OutOfBounds(errors.PhaseCall, offset, uint32(len(data)), m.mem.Size())
	}
	return nil
}

// Size returns the current memory size in bytes.
func (m linearMemory) Size() uint32 {
	return m.mem.Size()
}

// exportAllocator adapts the allocate and deallocate exports to
// wasmthumbnail.Allocator.
type exportAllocator struct {
	Allocate   api.Function
	Deallocate api.Function
	logger     *zap.Logger
}

// Alloc calls allocate(size).
func (a *exportAllocator) Alloc(ctx context.Context, size uint32) (uint32, error) {
	results, err := a.Allocate.Call(ctx, uint64(size))
	if err != nil {
		return 0, errors.AllocationFailed(errors.PhaseCall, size, err)
	}
	if len(results) == 0 {
		return 0, errors.AllocationFailed(errors.PhaseCall, size, nil)
	}
	return uint32(results[0]), nil
}

// Free calls deallocate(ptr, size). Failures are logged; the instance is
// discarded after the call anyway.
func (a *exportAllocator) Free(ctx context.Context, ptr, size uint32) {
	if _, err := a.Deallocate.Call(ctx, uint64(ptr), uint64(size)); err != nil {
		a.logger.Warn("deallocate failed",
			zap.String("export", abi.Deallocate),
			zap.Uint32("ptr", ptr),
			zap.Uint32("size", size),
			zap.Error(err))
	}
}

// Compile-time checks
var (
	_ wasmthumbnail.Memory      = linearMemory{}
	_ wasmthumbnail.MemorySizer = linearMemory{}
	_ wasmthumbnail.Allocator   = (*exportAllocator)(nil)
)
