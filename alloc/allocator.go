package alloc

import (
	"sync"

	"go.uber.org/zap"

	wasmthumbnail "github.com/wippyai/wasm-thumbnail"
	"github.com/wippyai/wasm-thumbnail/errors"
)

var _ wasmthumbnail.Memory = (*Allocator)(nil)

// addressSpace maps buffers to boundary addresses.
type addressSpace interface {
	// place returns the address at which buf is visible to the caller.
	place(buf []byte) uint32
	// release returns the range of a deallocated region for reuse.
	release(addr, length uint32)
	// view returns length bytes at addr for ranges the table does not track.
	view(addr, length uint32) ([]byte, bool)
}

type region struct {
	data  []byte
	owner Owner
}

// Allocator is the region table of one guest address space.
// Implements wasmthumbnail.Memory.
type Allocator struct {
	regions   map[uint32]*region
	space     addressSpace
	observers []Observer
	mu        sync.Mutex
	obsMu     sync.RWMutex
}

// New creates an allocator over the platform's address space.
func New() *Allocator {
	return &Allocator{
		regions: make(map[uint32]*region),
		space:   defaultSpace(),
	}
}

// Allocate reserves size bytes and publishes them to the caller.
// A zero size returns address 0 and tracks nothing.
func (a *Allocator) Allocate(size uint32) uint32 {
	if size == 0 {
		return 0
	}
	return a.publish(make([]byte, size), EventAllocated)
}

// Adopt publishes a module-owned buffer to the caller and returns its address.
// The buffer must not be modified by the module afterwards.
func (a *Allocator) Adopt(buf []byte) uint32 {
	if len(buf) == 0 {
		return 0
	}
	return a.publish(buf, EventAdopted)
}

func (a *Allocator) publish(buf []byte, typ EventType) uint32 {
	addr := a.insert(buf)
	a.notify(Event{Type: typ, Addr: addr, Size: uint32(len(buf)), Owner: OwnerCaller})
	return addr
}

func (a *Allocator) insert(buf []byte) uint32 {
	a.mu.Lock()
	defer a.mu.Unlock()

	addr := a.space.place(buf)
	a.regions[addr] = &region{data: buf, owner: OwnerCaller}
	return addr
}

// Deallocate reclaims a region previously returned by Allocate or Adopt.
// size must be the exact size of the region. Unknown addresses and size
// mismatches leave the table untouched and report false.
func (a *Allocator) Deallocate(addr, size uint32) bool {
	if addr == 0 && size == 0 {
		return true
	}

	a.mu.Lock()
	r, ok := a.regions[addr]
	if !ok || uint32(len(r.data)) != size {
		a.mu.Unlock()
		Logger().Warn("deallocate: no region matches",
			zap.Uint32("ptr", addr),
			zap.Uint32("size", size),
			zap.Bool("known", ok))
		a.notify(Event{Type: EventRejected, Addr: addr, Size: size})
		return false
	}
	r.owner = OwnerModule
	delete(a.regions, addr)
	a.space.release(addr, size)
	a.mu.Unlock()

	a.notify(Event{Type: EventReleased, Addr: addr, Size: size, Owner: OwnerModule})
	return true
}

// Owner reports who owns the region starting at addr.
func (a *Allocator) Owner(addr uint32) (Owner, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	r, ok := a.regions[addr]
	if !ok {
		return OwnerModule, false
	}
	return r.owner, true
}

// Read returns a view of length bytes at offset. The view aliases guest
// memory and is only valid until the region is deallocated.
func (a *Allocator) Read(offset uint32, length uint32) ([]byte, error) {
	if length == 0 {
		return []byte{}, nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if b, ok := a.locate(offset, length); ok {
		return b, nil
	}
	return nil, errors.OutOfBounds(errors.PhaseAlloc, offset, length, 0)
}

// Write copies data into guest memory at offset.
func (a *Allocator) Write(offset uint32, data []byte) error {
	if len(data) == 0 {
		return nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	b, ok := a.locate(offset, uint32(len(data)))
	if !ok {
		return errors.OutOfBounds(errors.PhaseAlloc, offset, uint32(len(data)), 0)
	}
	copy(b, data)
	return nil
}

// locate finds the tracked region containing [addr, addr+length) and falls
// back to the raw address space. Caller holds a.mu.
func (a *Allocator) locate(addr, length uint32) ([]byte, bool) {
	end := uint64(addr) + uint64(length)

	if r, ok := a.regions[addr]; ok && uint64(len(r.data)) >= uint64(length) {
		return r.data[:length], true
	}
	for start, r := range a.regions {
		if addr > start && end <= uint64(start)+uint64(len(r.data)) {
			off := addr - start
			return r.data[off : off+length], true
		}
	}
	return a.space.view(addr, length)
}

// Stats reports the regions currently owned by the caller.
func (a *Allocator) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()

	var s Stats
	for _, r := range a.regions {
		s.Regions++
		s.Bytes += uint64(len(r.data))
	}
	return s
}

// Reset drops every tracked region. Only for module teardown: addresses held
// by the caller become dangling.
func (a *Allocator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()

	for addr, r := range a.regions {
		a.space.release(addr, uint32(len(r.data)))
	}
	clear(a.regions)
}

// Subscribe adds an observer for lifecycle events.
func (a *Allocator) Subscribe(o Observer) {
	a.obsMu.Lock()
	defer a.obsMu.Unlock()
	a.observers = append(a.observers, o)
}

func (a *Allocator) notify(e Event) {
	a.obsMu.RLock()
	defer a.obsMu.RUnlock()
	for _, o := range a.observers {
		o.OnRegionEvent(e)
	}
}
