package bridge

import (
	"math"
	"slices"

	wasmthumbnail "github.com/wippyai/wasm-thumbnail"
	"github.com/wippyai/wasm-thumbnail/alloc"
	"github.com/wippyai/wasm-thumbnail/errors"
)

// Borrowed is a region lent by the caller for the duration of one call.
type Borrowed struct {
	Pair
	mem wasmthumbnail.Memory
}

// Borrow wraps a call-argument pair. It does not touch memory.
func Borrow(mem wasmthumbnail.Memory, p Pair) Borrowed {
	return Borrowed{Pair: p, mem: mem}
}

// Copy returns an owned copy of the borrowed bytes. A zero length yields an
// empty buffer without dereferencing the address.
func (b Borrowed) Copy() ([]byte, error) {
	if b.Len == 0 {
		return []byte{}, nil
	}
	view, err := b.mem.Read(b.Ptr, b.Len)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseBridge, errors.KindOutOfBounds, err, "copy borrowed region")
	}
	return slices.Clone(view), nil
}

// Bridge moves buffers across one guest address space.
type Bridge struct {
	mem *alloc.Allocator
}

// New creates a bridge over the given allocator.
func New(mem *alloc.Allocator) *Bridge {
	return &Bridge{mem: mem}
}

// CopyIn copies p.Len bytes at p.Ptr into a freshly owned buffer. The source
// range stays owned by whoever owned it before.
func (b *Bridge) CopyIn(p Pair) ([]byte, error) {
	return Borrow(b.mem, p).Copy()
}

// LeakOut surrenders buf to the caller and returns its boundary pair. The
// caller must pass exactly this pair to deallocate. An empty buffer yields
// the zero Pair and publishes nothing.
func (b *Bridge) LeakOut(buf []byte) (Pair, error) {
	if len(buf) == 0 {
		return Pair{}, nil
	}
	if uint64(len(buf)) > math.MaxUint32 {
		return Pair{}, errors.Overflow(errors.PhaseBridge, len(buf), "u32")
	}
	addr := b.mem.Adopt(buf)
	return Pair{Ptr: addr, Len: uint32(len(buf))}, nil
}
