package service

import (
	"sync"

	"github.com/wrenlabs/popsign/logger"
)

// Event names emitted by the provider surface.
const (
	EventConnect         = "connect"
	EventDisconnect      = "disconnect"
	EventAccountsChanged = "accountsChanged"
)

// Listener receives one lifecycle notification.
type Listener func(payload any)

// Subscription identifies a registered listener for removal.
type Subscription struct {
	event string
	id    uint64
}

// listenerRegistry holds per-event listener sets. Each registration is a
// distinct set member, so registering and removing are symmetric and a
// removal never affects other listeners of the same event.
type listenerRegistry struct {
	mu     sync.Mutex
	nextID uint64
	sets   map[string]map[uint64]listenerEntry
	log    logger.Logger
}

type listenerEntry struct {
	fn   Listener
	once bool
}

func newListenerRegistry(log logger.Logger) *listenerRegistry {
	return &listenerRegistry{
		sets: make(map[string]map[uint64]listenerEntry),
		log:  log,
	}
}

func (r *listenerRegistry) add(event string, fn Listener, once bool) Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	id := r.nextID
	set, ok := r.sets[event]
	if !ok {
		set = make(map[uint64]listenerEntry)
		r.sets[event] = set
	}
	set[id] = listenerEntry{fn: fn, once: once}
	return Subscription{event: event, id: id}
}

func (r *listenerRegistry) remove(sub Subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if set, ok := r.sets[sub.event]; ok {
		delete(set, sub.id)
	}
}

// emit delivers the payload to every listener of the event. A panicking
// listener is contained so it cannot block the others.
func (r *listenerRegistry) emit(event string, payload any) {
	r.mu.Lock()
	set := r.sets[event]
	entries := make([]listenerEntry, 0, len(set))
	for id, e := range set {
		entries = append(entries, e)
		if e.once {
			delete(set, id)
		}
	}
	r.mu.Unlock()

	for _, e := range entries {
		r.deliver(event, e.fn, payload)
	}
}

func (r *listenerRegistry) deliver(event string, fn Listener, payload any) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Warn("listener panicked", map[string]any{"event": event, "panic": rec})
		}
	}()
	fn(payload)
}
