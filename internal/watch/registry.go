package watch

import (
	"fmt"
	"sync"

	"github.com/go-logr/logr"
)

// Listener receives store change notifications for one resource kind.
// Callbacks carry keys only; consumers re-fetch the object body through the
// store, except for full refresh where the whole replacement set is already
// readable at the delivered version.
type Listener interface {
	OnAdded(kind string, key Key)
	OnModified(kind string, key Key)
	OnDeleted(kind string, key Key)
	OnFullRefresh(kind string, resourceVersion string)
}

// Registry is the pub/sub layer between the store and its consumers. The
// store never invokes listeners while holding its lock; the registry in turn
// snapshots its listener list under its own lock and dispatches outside it,
// so a listener is free to call back into either.
type Registry struct {
	log logr.Logger

	mu        sync.Mutex
	listeners map[string][]Listener
}

// NewRegistry builds an empty registry.
func NewRegistry(log logr.Logger) *Registry {
	return &Registry{
		log:       log.WithName("registry"),
		listeners: make(map[string][]Listener),
	}
}

// Subscribe registers listener for the kind. Registering the same listener
// twice is a no-op, so mount/unmount cycles cannot stack duplicate callbacks.
func (r *Registry) Subscribe(kind string, listener Listener) {
	if listener == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.listeners[kind] {
		if existing == listener {
			return
		}
	}
	r.listeners[kind] = append(r.listeners[kind], listener)
}

// Unsubscribe removes listener from the kind; unknown listeners are ignored.
func (r *Registry) Unsubscribe(kind string, listener Listener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	current := r.listeners[kind]
	for i, existing := range current {
		if existing == listener {
			r.listeners[kind] = append(current[:i:i], current[i+1:]...)
			return
		}
	}
}

// Count reports how many listeners a kind has. A kind at zero may be used as
// a signal to stop its reconciliation loop.
func (r *Registry) Count(kind string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.listeners[kind])
}

func (r *Registry) snapshot(kind string) []Listener {
	r.mu.Lock()
	defer r.mu.Unlock()
	current := r.listeners[kind]
	if len(current) == 0 {
		return nil
	}
	out := make([]Listener, len(current))
	copy(out, current)
	return out
}

func (r *Registry) notifyEvent(kind string, eventType EventType, key Key) {
	for _, listener := range r.snapshot(kind) {
		l := listener
		r.dispatch(kind, string(eventType), func() {
			switch eventType {
			case Added:
				l.OnAdded(kind, key)
			case Modified:
				l.OnModified(kind, key)
			case Deleted:
				l.OnDeleted(kind, key)
			}
		})
	}
}

func (r *Registry) notifyFullRefresh(kind, resourceVersion string) {
	for _, listener := range r.snapshot(kind) {
		l := listener
		r.dispatch(kind, "FULL_REFRESH", func() {
			l.OnFullRefresh(kind, resourceVersion)
		})
	}
}

// dispatch isolates one listener callback: a panic is contained and logged so
// the remaining listeners still receive the notification.
func (r *Registry) dispatch(kind, event string, fn func()) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error(fmt.Errorf("listener panic: %v", rec),
				"listener failed during notification", "kind", kind, "event", event)
		}
	}()
	fn()
}
