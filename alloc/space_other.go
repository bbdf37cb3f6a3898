//go:build !wasm

package alloc

import (
	"math"
	"sort"
)

// firstSimulatedAddr keeps the first page unused so that address 0 is never
// handed out, matching a real guest where 0 is the null address.
const firstSimulatedAddr = 1 << 16

// span is a free range of the simulated address space.
type span struct {
	addr uint32
	size uint64
}

// simulatedSpace assigns 8-byte aligned offsets in a 32-bit address space to
// buffers living on the native heap. Released ranges are reused first-fit;
// free is sorted by address and never holds adjacent spans.
type simulatedSpace struct {
	free []span
	next uint64
}

func defaultSpace() addressSpace {
	return &simulatedSpace{next: firstSimulatedAddr}
}

func alignedSize(n uint64) uint64 {
	return (n + 7) &^ 7
}

func (s *simulatedSpace) place(buf []byte) uint32 {
	size := alignedSize(uint64(len(buf)))

	for i, f := range s.free {
		if f.size < size {
			continue
		}
		addr := f.addr
		if f.size == size {
			s.free = append(s.free[:i], s.free[i+1:]...)
		} else {
			s.free[i] = span{addr: f.addr + uint32(size), size: f.size - size}
		}
		return addr
	}

	if s.next+size > math.MaxUint32 {
		panic("alloc: simulated address space exhausted")
	}
	addr := uint32(s.next)
	s.next += size
	return addr
}

func (s *simulatedSpace) release(addr, length uint32) {
	size := alignedSize(uint64(length))
	if size == 0 {
		return
	}

	i := sort.Search(len(s.free), func(i int) bool { return s.free[i].addr > addr })
	s.free = append(s.free, span{})
	copy(s.free[i+1:], s.free[i:])
	s.free[i] = span{addr: addr, size: size}

	// merge with the following span, then the preceding one
	if i+1 < len(s.free) && uint64(s.free[i].addr)+s.free[i].size == uint64(s.free[i+1].addr) {
		s.free[i].size += s.free[i+1].size
		s.free = append(s.free[:i+1], s.free[i+2:]...)
	}
	if i > 0 && uint64(s.free[i-1].addr)+s.free[i-1].size == uint64(s.free[i].addr) {
		s.free[i-1].size += s.free[i].size
		s.free = append(s.free[:i], s.free[i+1:]...)
	}

	// a span touching the bump pointer goes back to it
	if last := s.free[len(s.free)-1]; uint64(last.addr)+last.size == s.next {
		s.next = uint64(last.addr)
		s.free = s.free[:len(s.free)-1]
	}
}

func (s *simulatedSpace) view(uint32, uint32) ([]byte, bool) {
	return nil, false
}
