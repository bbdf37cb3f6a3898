// Package guest implements the three boundary exports on scalar arguments.
//
// Exports binds one address space (alloc.Allocator), the buffer bridge and a
// thumbnail pipeline. Every call is an independent transaction: nothing is
// retained between calls except regions the caller has not yet returned.
//
//	allocate(size u32) -> ptr u32
//	deallocate(ptr u32, size u32)
//	thumbnail(ptr u32, len u32, width u32, height u32) -> packed u64
//
// A failed thumbnail returns 0, which unpacks to the empty pair (0, 0). The
// cause is logged and never crosses the boundary.
package guest
