package host

import (
	"context"
	"sync"

	"github.com/wippyai/wasm-thumbnail/errors"
	"github.com/wippyai/wasm-thumbnail/guest"
	"github.com/wippyai/wasm-thumbnail/thumbnail"
)

// Native is a Converter running the guest exports in-process. Calls go
// through the same allocate/thumbnail/deallocate protocol as a wasm guest
// and are serialized on one address space.
type Native struct {
	exports *guest.Exports
	mu      sync.Mutex
}

// NewNative creates an in-process converter.
func NewNative(opts ...thumbnail.Option) *Native {
	return &Native{
		exports: guest.New(guest.WithPipeline(thumbnail.New(opts...))),
	}
}

// Convert implements Converter.
func (n *Native) Convert(ctx context.Context, req Request) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	out, err := convert(ctx, localModule{n.exports}, req.Source, req.Width, req.Height)
	if err != nil {
		return Result{}, err
	}
	return Result{Image: out, Format: "jpeg"}, nil
}

// IsFormatSupported implements Converter.
func (n *Native) IsFormatSupported(format string) bool {
	return thumbnail.IsSupported(format)
}

// Outstanding reports regions not yet returned by the protocol.
func (n *Native) Outstanding() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.exports.Memory().Stats().Regions
}

// localModule adapts guest.Exports to guestModule.
type localModule struct {
	exports *guest.Exports
}

func (m localModule) Read(offset, length uint32) ([]byte, error) {
	return m.exports.Memory().Read(offset, length)
}

func (m localModule) Write(offset uint32, data []byte) error {
	return m.exports.Memory().Write(offset, data)
}

func (m localModule) Alloc(_ context.Context, size uint32) (uint32, error) {
	ptr := m.exports.Allocate(size)
	if ptr == 0 && size > 0 {
		return 0, errors.AllocationFailed(errors.PhaseCall, size, nil)
	}
	return ptr, nil
}

func (m localModule) Free(_ context.Context, ptr, size uint32) {
	m.exports.Deallocate(ptr, size)
}

func (m localModule) Thumbnail(_ context.Context, ptr, length, width, height uint32) (uint64, error) {
	return m.exports.Thumbnail(ptr, length, width, height), nil
}

// Diagnostics is empty: in-process failures are logged by the guest package.
func (m localModule) Diagnostics() string {
	return ""
}
