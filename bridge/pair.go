package bridge

// Pair is the boundary representation of a buffer: a 32-bit linear address
// and a 32-bit byte count.
type Pair struct {
	Ptr uint32
	Len uint32
}

// Empty reports whether the pair references no bytes. The pointer of an
// empty pair must not be dereferenced.
func (p Pair) Empty() bool {
	return p.Len == 0
}

// End returns the first address past the referenced range.
func (p Pair) End() uint64 {
	return uint64(p.Ptr) + uint64(p.Len)
}

// Pack folds the pair into a single scalar: address high, length low.
func Pack(p Pair) uint64 {
	return uint64(p.Ptr)<<32 | uint64(p.Len)
}

// Unpack is the inverse of Pack.
func Unpack(v uint64) Pair {
	return Pair{Ptr: uint32(v >> 32), Len: uint32(v)}
}
