package serialport

import "sync"

// EventKind identifies a port notification.
type EventKind int

const (
	// EventOpen follows a successful open.
	EventOpen EventKind = iota
	// EventClose follows every close; Err holds the disconnect cause if any.
	EventClose
	// EventData carries inbound bytes in flowing mode.
	EventData
	// EventError carries a failure that had no callback to receive it.
	EventError
	// EventDisconnect reports that the device went away.
	EventDisconnect
)

func (k EventKind) String() string {
	switch k {
	case EventOpen:
		return "open"
	case EventClose:
		return "close"
	case EventData:
		return "data"
	case EventError:
		return "error"
	case EventDisconnect:
		return "disconnect"
	default:
		return "unknown"
	}
}

// Valid reports whether k is a known event kind.
func (k EventKind) Valid() bool {
	return k >= EventOpen && k <= EventDisconnect
}

// Event is delivered to listeners. Data is set for EventData, Err for
// EventError and EventDisconnect, and for EventClose when the close was
// caused by a disconnect.
type Event struct {
	Kind EventKind
	Data []byte
	Err  error
}

// Listener receives port events. Listeners run on the port's task queue one
// at a time; a listener must not block on a *Context method of the same
// port.
type Listener func(Event)

type listenerSpec struct {
	kind EventKind
	fn   Listener
}

type listenerEntry struct {
	id uint64
	fn Listener
}

// emitter is a copy-on-write listener registry.
type emitter struct {
	mu        sync.RWMutex
	nextID    uint64
	listeners map[EventKind][]listenerEntry
}

func newEmitter() *emitter {
	return &emitter{listeners: make(map[EventKind][]listenerEntry)}
}

func (e *emitter) on(kind EventKind, fn Listener) func() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.nextID++
	id := e.nextID
	list := append([]listenerEntry(nil), e.listeners[kind]...)
	e.listeners[kind] = append(list, listenerEntry{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() { e.off(kind, id) })
	}
}

func (e *emitter) off(kind EventKind, id uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	old := e.listeners[kind]
	list := make([]listenerEntry, 0, len(old))
	for _, l := range old {
		if l.id != id {
			list = append(list, l)
		}
	}
	e.listeners[kind] = list
}

func (e *emitter) count(kind EventKind) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.listeners[kind])
}

// emit calls the listeners registered for ev.Kind and reports whether there
// were any.
func (e *emitter) emit(ev Event) bool {
	e.mu.RLock()
	list := e.listeners[ev.Kind]
	e.mu.RUnlock()

	for _, l := range list {
		l.fn(ev)
	}
	return len(list) > 0
}
