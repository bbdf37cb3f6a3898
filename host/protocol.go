package host

import (
	"context"
	"math"
	"slices"

	wasmthumbnail "github.com/wippyai/wasm-thumbnail"
	"github.com/wippyai/wasm-thumbnail/bridge"
	"github.com/wippyai/wasm-thumbnail/errors"
)

// guestModule is one live guest address space.
type guestModule interface {
	wasmthumbnail.Memory
	wasmthumbnail.Allocator

	// Thumbnail calls the thumbnail export and returns the packed result.
	Thumbnail(ctx context.Context, ptr, length, width, height uint32) (uint64, error)
	// Diagnostics returns what the guest wrote to stderr so far.
	Diagnostics() string
}

// convert runs one allocate/write/thumbnail/read/deallocate transaction.
// The returned bytes are owned by the host.
func convert(ctx context.Context, g guestModule, src []byte, width, height uint32) ([]byte, error) {
	if uint64(len(src)) > math.MaxUint32 {
		return nil, errors.Overflow(errors.PhaseCall, len(src), "u32")
	}
	size := uint32(len(src))

	// frees still run after ctx is cancelled
	freeCtx := context.WithoutCancel(ctx)

	ptr, err := g.Alloc(ctx, size)
	if err != nil {
		return nil, err
	}
	defer g.Free(freeCtx, ptr, size)

	if err := g.Write(ptr, src); err != nil {
		return nil, err
	}

	packed, err := g.Thumbnail(ctx, ptr, size, width, height)
	if err != nil {
		return nil, err
	}

	result := bridge.Unpack(packed)
	if result.Empty() {
		return nil, errors.EmptyResult(g.Diagnostics())
	}
	defer g.Free(freeCtx, result.Ptr, result.Len)

	view, err := g.Read(result.Ptr, result.Len)
	if err != nil {
		return nil, err
	}
	return slices.Clone(view), nil
}
