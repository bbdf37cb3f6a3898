package host

import (
	"bytes"
	"context"
	"strings"
	"sync"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-thumbnail/abi"
	"github.com/wippyai/wasm-thumbnail/errors"
)

// Instance is one instantiated guest. It is not safe for concurrent use.
type Instance struct {
	linearMemory
	*exportAllocator

	mod       api.Module
	thumbnail api.Function
	stderr    *lockedBuffer
}

func newInstance(mod api.Module, stderr *lockedBuffer, logger *zap.Logger) (*Instance, error) {
	mem := mod.Memory()
	if mem == nil {
		return nil, errors.NotFound(errors.PhaseRuntime, "memory", abi.Memory)
	}
	fns := make(map[string]api.Function, len(abi.Exports))
	for _, f := range abi.Exports {
		fn := mod.ExportedFunction(f.Name)
		if fn == nil {
			return nil, errors.NotFound(errors.PhaseRuntime, "export", f.Name)
		}
		fns[f.Name] = fn
	}
	return &Instance{
		linearMemory: linearMemory{mem: mem},
		exportAllocator: &exportAllocator{
			Allocate:   fns[abi.Allocate],
			Deallocate: fns[abi.Deallocate],
			logger:     logger,
		},
		mod:       mod,
		thumbnail: fns[abi.Thumbnail],
		stderr:    stderr,
	}, nil
}

// Thumbnail calls the thumbnail export.
func (i *Instance) Thumbnail(ctx context.Context, ptr, length, width, height uint32) (uint64, error) {
	results, err := i.thumbnail.Call(ctx, uint64(ptr), uint64(length), uint64(width), uint64(height))
	if err != nil {
		return 0, errors.Call(abi.Thumbnail, err)
	}
	if len(results) != 1 {
		return 0, errors.Call(abi.Thumbnail, nil)
	}
	return results[0], nil
}

// Convert runs the full protocol on this instance.
func (i *Instance) Convert(ctx context.Context, src []byte, width, height uint32) ([]byte, error) {
	return convert(ctx, i, src, width, height)
}

// Diagnostics returns the guest's stderr output, trimmed.
func (i *Instance) Diagnostics() string {
	return strings.TrimSpace(i.stderr.String())
}

// Module returns the underlying wazero module.
func (i *Instance) Module() api.Module {
	return i.mod
}

// Pages returns the guest memory size in 64KiB pages.
func (i *Instance) Pages() uint32 {
	return i.Size() / 65536
}

// Close releases the instance.
func (i *Instance) Close(ctx context.Context) error {
	return i.mod.Close(ctx)
}

// lockedBuffer collects guest stderr. wazero may write from the calling
// goroutine only, but Diagnostics can be read from another.
type lockedBuffer struct {
	buf bytes.Buffer
	mu  sync.Mutex
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
