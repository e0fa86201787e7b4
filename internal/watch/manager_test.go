package watch

import (
	"context"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/example/kdash/internal/agetrack"
)

func TestSubscribeAndListMissesNothing(t *testing.T) {
	registry := NewRegistry(logr.Discard())
	store := NewStore(logr.Discard(), registry)
	store.ReplaceList("pods", ScopeAllNamespaces, []*unstructured.Unstructured{pod("default", "a", "10")}, "10")

	m := NewManager(ManagerConfig{Log: logr.Discard(), Store: store, Registry: registry})
	rec := &recorder{}
	items, version := m.SubscribeAndList("pods", "", rec)
	if len(items) != 1 || version != "10" {
		t.Fatalf("snapshot = %d items at %q, want 1 at %q", len(items), version, "10")
	}

	store.UpdateFromEvent("pods", ScopeAllNamespaces, Event{Type: Added, Object: pod("default", "b", "11")})
	added, _, _, _ := rec.counts()
	if added != 1 {
		t.Fatalf("added notifications after subscribe = %d, want 1", added)
	}

	m.Unsubscribe("pods", rec)
	store.UpdateFromEvent("pods", ScopeAllNamespaces, Event{Type: Added, Object: pod("default", "c", "12")})
	added, _, _, _ = rec.counts()
	if added != 1 {
		t.Fatalf("notification delivered after unsubscribe")
	}
}

func TestManagerPointLookups(t *testing.T) {
	registry := NewRegistry(logr.Discard())
	store := NewStore(logr.Discard(), registry)
	store.ReplaceList("pods", ScopeAllNamespaces, []*unstructured.Unstructured{pod("default", "a", "10")}, "10")
	m := NewManager(ManagerConfig{Log: logr.Discard(), Store: store, Registry: registry})

	if _, ok := m.Get("pods", "default", "a"); !ok {
		t.Fatalf("Get missed a cached object")
	}
	if _, ok := m.Get("pods", "default", "nope"); ok {
		t.Fatalf("Get invented an object")
	}
	if got := m.ScopeVersion("pods", ScopeAllNamespaces); got != "10" {
		t.Fatalf("scope version = %q, want %q", got, "10")
	}
	items, _ := m.CurrentList("pods", "default")
	if len(items) != 1 {
		t.Fatalf("namespace list = %d items, want 1", len(items))
	}
}

func TestManagerFieldTrackingDelegation(t *testing.T) {
	registry := NewRegistry(logr.Discard())
	store := NewStore(logr.Discard(), registry)
	sched := agetrack.NewScheduler(logr.Discard())
	m := NewManager(ManagerConfig{Log: logr.Discard(), Store: store, Registry: registry, Scheduler: sched})

	created := time.Now().Add(-time.Minute)
	if !m.TrackField("pods", "default/a", "age", created, agetrack.ModeAge) {
		t.Fatalf("TrackField rejected a live timestamp")
	}
	ch := m.Refreshes("pods")
	if ch == nil {
		t.Fatalf("Refreshes returned no channel")
	}
	if !m.UntrackField("pods", "default/a", "age") {
		t.Fatalf("UntrackField missed a tracked field")
	}
	if m.UntrackField("pods", "default/a", "age") {
		t.Fatalf("UntrackField reported success twice")
	}
	m.StopRefreshes("pods", ch)
}

func TestManagerWithoutSchedulerDisablesTracking(t *testing.T) {
	registry := NewRegistry(logr.Discard())
	store := NewStore(logr.Discard(), registry)
	m := NewManager(ManagerConfig{Log: logr.Discard(), Store: store, Registry: registry})

	if m.TrackField("pods", "default/a", "age", time.Now(), agetrack.ModeAge) {
		t.Fatalf("TrackField succeeded without a scheduler")
	}
	if ch := m.Refreshes("pods"); ch != nil {
		t.Fatalf("Refreshes returned a channel without a scheduler")
	}
}

func TestManagerRunStopsCleanly(t *testing.T) {
	registry := NewRegistry(logr.Discard())
	store := NewStore(logr.Discard(), registry)
	gw := newScriptGateway(listStep{items: []*unstructured.Unstructured{pod("default", "a", "3")}, version: "3"})
	loop := NewLoop(logr.Discard(), gw, store, Scope{Kind: "pods"}, LoopOptions{InitialBackoff: time.Millisecond})
	sched := agetrack.NewScheduler(logr.Discard())
	m := NewManager(ManagerConfig{
		Log:       logr.Discard(),
		Store:     store,
		Registry:  registry,
		Scheduler: sched,
		Loops:     []*Loop{loop},
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	recvWatcher(t, gw)
	waitFor(t, "loop sync", func() bool { return store.Version("pods", ScopeAllNamespaces) == "3" })
	states := m.LoopStates()
	if len(states) != 1 || states[0].Scope.Kind != "pods" {
		t.Fatalf("loop states = %+v", states)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v on cancel", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("Run did not stop after cancel")
	}
}
