// Package alloc tracks every region of the guest address space that is
// visible to the caller across the boundary.
//
// The Go garbage collector owns all memory in the guest, so a buffer whose
// address has been handed to the host must stay referenced until the host
// hands it back. The Allocator keeps those references in a table keyed by
// linear address, tagged with the side that currently owns the region.
//
// # Ownership
//
//	OwnerModule  - buffer created inside the guest, not yet published
//	OwnerCaller  - address published; only deallocate may reclaim it
//
// Allocate and Adopt move a region to OwnerCaller. Deallocate moves it back to
// OwnerModule and drops the table reference so the collector can reclaim it.
//
// # Address spaces
//
// On GOARCH=wasm, addresses are real linear-memory offsets derived from the
// buffer's backing array. On every other platform the allocator assigns
// offsets from a simulated 32-bit address space, which lets the full
// allocate/copy/leak/deallocate protocol run under `go test` and in-process
// converters. Deallocated ranges are reused first-fit, so balanced
// allocate/deallocate pairs never exhaust the space.
//
// # Failure
//
// Running out of memory is fatal: the Go runtime aborts the module. No error
// is returned from Allocate.
//
// # Observers
//
// Register observers to follow region lifecycle events:
//
//	a.Subscribe(alloc.ObserverFunc(func(e alloc.Event) {
//	    log.Printf("%s %d bytes at %#x", e.Type, e.Size, e.Addr)
//	}))
package alloc
