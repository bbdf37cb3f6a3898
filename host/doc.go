// Package host runs thumbnail guest modules with wazero.
//
// A Runtime compiles the guest once, checks its exports and instantiates a
// fresh module for every conversion, so concurrent callers never share guest
// memory. Each conversion follows the boundary protocol:
//
//	ptr := allocate(len(src))          // region owned by the host
//	write src at ptr
//	packed := thumbnail(ptr, len(src), width, height)
//	(rptr, rlen) := unpack(packed)     // rlen == 0 means failure
//	copy rlen bytes at rptr
//	deallocate(rptr, rlen)
//	deallocate(ptr, len(src))
//
// Both deallocations are deferred and run on every path once the region
// exists. When the guest reports failure, the error carries whatever the
// guest wrote to stderr.
//
// Converters compose with Chain. Native runs the same protocol against an
// in-process guest, which makes it a fallback that needs no wasm at all.
package host
