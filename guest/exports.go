package guest

import (
	stderrors "errors"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-thumbnail/alloc"
	"github.com/wippyai/wasm-thumbnail/bridge"
	"github.com/wippyai/wasm-thumbnail/errors"
	"github.com/wippyai/wasm-thumbnail/thumbnail"
)

// Exports is the boundary surface of one guest address space.
// Calls must be serialized by the host.
type Exports struct {
	mem      *alloc.Allocator
	bridge   *bridge.Bridge
	pipeline *thumbnail.Pipeline
}

// Option configures Exports.
type Option func(*Exports)

// WithPipeline replaces the default pipeline.
func WithPipeline(p *thumbnail.Pipeline) Option {
	return func(e *Exports) {
		e.pipeline = p
	}
}

// WithAllocator binds the exports to an existing region table.
func WithAllocator(a *alloc.Allocator) Option {
	return func(e *Exports) {
		e.mem = a
	}
}

// New creates the export surface.
func New(opts ...Option) *Exports {
	e := &Exports{}
	for _, opt := range opts {
		opt(e)
	}
	if e.mem == nil {
		e.mem = alloc.New()
	}
	if e.pipeline == nil {
		e.pipeline = thumbnail.New()
	}
	e.bridge = bridge.New(e.mem)
	return e
}

// Memory returns the region table backing the exports.
func (e *Exports) Memory() *alloc.Allocator {
	return e.mem
}

// Allocate implements the allocate export.
func (e *Exports) Allocate(size uint32) uint32 {
	return e.mem.Allocate(size)
}

// Deallocate implements the deallocate export.
func (e *Exports) Deallocate(ptr, size uint32) {
	e.mem.Deallocate(ptr, size)
}

// Thumbnail implements the thumbnail export. The source region stays owned
// by the caller; the result region, if any, is transferred to it.
func (e *Exports) Thumbnail(ptr, length, width, height uint32) uint64 {
	src, err := e.bridge.CopyIn(bridge.Pair{Ptr: ptr, Len: length})
	if err != nil {
		e.fail(ptr, length, width, height, err)
		return 0
	}

	out, err := e.pipeline.Thumbnail(src, width, height)
	if err != nil {
		e.fail(ptr, length, width, height, err)
		return 0
	}

	result, err := e.bridge.LeakOut(out)
	if err != nil {
		e.fail(ptr, length, width, height, err)
		return 0
	}
	return bridge.Pack(result)
}

func (e *Exports) fail(ptr, length, width, height uint32, err error) {
	fields := []zap.Field{
		zap.Uint32("ptr", ptr),
		zap.Uint32("len", length),
		zap.Uint32("width", width),
		zap.Uint32("height", height),
	}
	var werr *errors.Error
	if stderrors.As(err, &werr) {
		fields = append(fields,
			zap.String("phase", string(werr.Phase)),
			zap.String("kind", string(werr.Kind)))
	}
	fields = append(fields, zap.Error(err))
	Logger().Warn("thumbnail failed", fields...)
}
