package watch

import (
	"context"
	"time"

	"github.com/go-logr/logr"
	"golang.org/x/sync/errgroup"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/example/kdash/internal/agetrack"
)

// ManagerConfig wires a Manager from parts the composition root builds.
type ManagerConfig struct {
	Log       logr.Logger
	Store     *Store
	Registry  *Registry
	Scheduler *agetrack.Scheduler
	Loops     []*Loop
	Poller    *Poller
}

// Manager is the single surface consumers talk to: subscriptions, snapshots,
// point lookups, and time-field tracking. It also supervises the background
// goroutines that keep the store current.
type Manager struct {
	log       logr.Logger
	store     *Store
	registry  *Registry
	scheduler *agetrack.Scheduler
	loops     []*Loop
	poller    *Poller
}

// NewManager assembles the facade. Scheduler and Poller may be nil when the
// deployment does not need field tracking or pod metrics.
func NewManager(cfg ManagerConfig) *Manager {
	return &Manager{
		log:       cfg.Log.WithName("manager"),
		store:     cfg.Store,
		registry:  cfg.Registry,
		scheduler: cfg.Scheduler,
		loops:     cfg.Loops,
		poller:    cfg.Poller,
	}
}

// SubscribeAndList registers the listener and returns a snapshot of the kind.
// The subscription is live before the snapshot is taken, so no change can fall
// between the two; a change applied during the call may surface both in the
// snapshot and as a notification, and consumers resolve that by re-fetching.
func (m *Manager) SubscribeAndList(kind, namespace string, l Listener) ([]*unstructured.Unstructured, string) {
	m.registry.Subscribe(kind, l)
	return m.store.CurrentList(kind, namespace)
}

// Subscribe registers a listener for one kind.
func (m *Manager) Subscribe(kind string, l Listener) { m.registry.Subscribe(kind, l) }

// Unsubscribe removes a listener. Unknown listeners are a no-op.
func (m *Manager) Unsubscribe(kind string, l Listener) { m.registry.Unsubscribe(kind, l) }

// CurrentList returns deep copies of the kind's objects, optionally narrowed
// to one namespace, along with the scope version the snapshot reflects.
func (m *Manager) CurrentList(kind, namespace string) ([]*unstructured.Unstructured, string) {
	return m.store.CurrentList(kind, namespace)
}

// Get returns a deep copy of one object, or false when it is not cached.
func (m *Manager) Get(kind, namespace, name string) (*unstructured.Unstructured, bool) {
	return m.store.Get(kind, namespace, name)
}

// ScopeVersion returns the last applied resource version for a scope key.
func (m *Manager) ScopeVersion(kind, scopeKey string) string {
	return m.store.Version(kind, scopeKey)
}

// TrackField registers a timestamp field for tier-based refresh scheduling.
func (m *Manager) TrackField(kind, id, field string, timestamp time.Time, mode agetrack.Mode) bool {
	if m.scheduler == nil {
		return false
	}
	return m.scheduler.Track(kind, id, field, timestamp, mode)
}

// UntrackField stops refresh scheduling for one field.
func (m *Manager) UntrackField(kind, id, field string) bool {
	if m.scheduler == nil {
		return false
	}
	return m.scheduler.Untrack(kind, id, field)
}

// Refreshes returns the per-kind stream of fields due for redisplay.
func (m *Manager) Refreshes(kind string) <-chan []agetrack.Refresh {
	if m.scheduler == nil {
		return nil
	}
	return m.scheduler.Subscribe(kind)
}

// StopRefreshes detaches a channel obtained from Refreshes.
func (m *Manager) StopRefreshes(kind string, ch <-chan []agetrack.Refresh) {
	if m.scheduler == nil {
		return
	}
	m.scheduler.Unsubscribe(kind, ch)
}

// LoopStatus reports one reconciliation loop's scope and phase.
type LoopStatus struct {
	Scope Scope
	State State
}

// LoopStates snapshots every loop's phase, in construction order.
func (m *Manager) LoopStates() []LoopStatus {
	out := make([]LoopStatus, 0, len(m.loops))
	for _, loop := range m.loops {
		out = append(out, LoopStatus{Scope: loop.Scope(), State: loop.State()})
	}
	return out
}

// Run starts every reconciliation loop, the metrics poller, and the refresh
// scheduler, and blocks until ctx is cancelled. Loops absorb their own
// failures, so the first error here means a component gave up entirely.
func (m *Manager) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, loop := range m.loops {
		g.Go(func() error { return loop.Run(ctx) })
	}
	if m.poller != nil {
		g.Go(func() error { return m.poller.Run(ctx) })
	}
	if m.scheduler != nil {
		g.Go(func() error { return m.scheduler.Run(ctx) })
	}
	m.log.V(1).Info("synchronization started", "loops", len(m.loops))
	return g.Wait()
}
