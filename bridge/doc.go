// Package bridge converts between boundary (ptr, len) pairs and owned
// buffers.
//
// A Pair carries no type or ownership metadata: the direction of the call
// decides ownership. A Pair received as a call argument is a Borrowed view
// that is copied with CopyIn before anything else happens. A buffer leaving
// the guest is surrendered with LeakOut, after which only deallocate may
// reclaim it.
//
// Pack and Unpack fold a Pair into the single u64 the boundary can return:
//
//	packed = uint64(ptr) << 32 | uint64(len)
package bridge
