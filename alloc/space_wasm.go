//go:build wasm

package alloc

import "unsafe"

// linearSpace exposes the real guest linear memory. Addresses are offsets
// into that memory, which on GOARCH=wasm always fit in 32 bits.
type linearSpace struct{}

func defaultSpace() addressSpace {
	return linearSpace{}
}

func (linearSpace) place(buf []byte) uint32 {
	return uint32(uintptr(unsafe.Pointer(unsafe.SliceData(buf))))
}

// release is a no-op: the region table drops its reference and the garbage
// collector reclaims the buffer.
func (linearSpace) release(uint32, uint32) {}

// view trusts the caller: any range it names is addressable by construction,
// and an out-of-range access traps the instance.
func (linearSpace) view(addr, length uint32) ([]byte, bool) {
	return unsafe.Slice((*byte)(unsafe.Pointer(uintptr(addr))), length), true
}
