package alloc

// Owner identifies the side of the boundary responsible for a region.
type Owner uint8

const (
	OwnerModule Owner = iota
	OwnerCaller
)

func (o Owner) String() string {
	switch o {
	case OwnerModule:
		return "module"
	case OwnerCaller:
		return "caller"
	default:
		return "unknown"
	}
}

// EventType enumerates region lifecycle notifications.
type EventType uint8

const (
	EventAllocated EventType = iota
	EventAdopted
	EventReleased
	EventRejected
)

func (t EventType) String() string {
	switch t {
	case EventAllocated:
		return "allocated"
	case EventAdopted:
		return "adopted"
	case EventReleased:
		return "released"
	case EventRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Event describes a region lifecycle change.
type Event struct {
	Addr  uint32
	Size  uint32
	Owner Owner
	Type  EventType
}

// Observer receives notifications about region lifecycle events.
type Observer interface {
	OnRegionEvent(Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(Event)

func (f ObserverFunc) OnRegionEvent(e Event) { f(e) }

// Stats summarizes the regions currently published to the caller.
type Stats struct {
	Regions int
	Bytes   uint64
}
