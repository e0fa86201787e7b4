package watch

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/go-logr/logr"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	apiwatch "k8s.io/apimachinery/pkg/watch"
)

type listStep struct {
	items   []*unstructured.Unstructured
	version string
	err     error
}

// scriptGateway replays canned list results (the last step repeats) and hands
// every opened watch stream to the test through a channel.
type scriptGateway struct {
	mu        sync.Mutex
	lists     []listStep
	listCalls int
	watchErrs []error
	watchFrom []string
	watchers  chan *apiwatch.FakeWatcher
}

func newScriptGateway(steps ...listStep) *scriptGateway {
	return &scriptGateway{lists: steps, watchers: make(chan *apiwatch.FakeWatcher, 8)}
}

func (g *scriptGateway) List(_ context.Context, _ Scope) ([]*unstructured.Unstructured, string, error) {
	g.mu.Lock()
	step := g.lists[len(g.lists)-1]
	if g.listCalls < len(g.lists) {
		step = g.lists[g.listCalls]
	}
	g.listCalls++
	g.mu.Unlock()
	return step.items, step.version, step.err
}

func (g *scriptGateway) Watch(_ context.Context, _ Scope, fromVersion string) (apiwatch.Interface, error) {
	g.mu.Lock()
	call := len(g.watchFrom)
	g.watchFrom = append(g.watchFrom, fromVersion)
	var err error
	if call < len(g.watchErrs) {
		err = g.watchErrs[call]
	}
	g.mu.Unlock()
	if err != nil {
		return nil, err
	}
	w := apiwatch.NewFake()
	g.watchers <- w
	return w, nil
}

func (g *scriptGateway) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.listCalls
}

func (g *scriptGateway) fromVersions() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]string, len(g.watchFrom))
	copy(out, g.watchFrom)
	return out
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func recvWatcher(t *testing.T, g *scriptGateway) *apiwatch.FakeWatcher {
	t.Helper()
	select {
	case w := <-g.watchers:
		return w
	case <-time.After(3 * time.Second):
		t.Fatalf("timed out waiting for a watch to open")
		return nil
	}
}

func startLoop(t *testing.T, gw Gateway, opts LoopOptions) (*Loop, *Store, *recorder, context.CancelFunc, chan error) {
	t.Helper()
	registry := NewRegistry(logr.Discard())
	rec := &recorder{}
	registry.Subscribe("pods", rec)
	store := NewStore(logr.Discard(), registry)
	loop := NewLoop(logr.Discard(), gw, store, Scope{Kind: "pods"}, opts)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()
	return loop, store, rec, cancel, done
}

func stopLoop(t *testing.T, cancel context.CancelFunc, done chan error) {
	t.Helper()
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("loop returned error on cancel: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("loop did not stop after cancel")
	}
}

func TestLoopSyncsWatchesAndRecoversFromGone(t *testing.T) {
	gw := newScriptGateway(
		listStep{items: []*unstructured.Unstructured{pod("default", "a", "10")}, version: "10"},
		listStep{items: []*unstructured.Unstructured{pod("default", "a", "50"), pod("default", "b", "50")}, version: "50"},
	)
	_, store, rec, cancel, done := startLoop(t, gw, LoopOptions{InitialBackoff: time.Millisecond})

	w1 := recvWatcher(t, gw)
	waitFor(t, "initial sync", func() bool { return store.Version("pods", ScopeAllNamespaces) == "10" })

	patch := pod("default", "a", "11")
	patch.Object["status"] = map[string]any{"phase": "Succeeded"}
	w1.Modify(patch)
	waitFor(t, "merged modify", func() bool {
		obj, ok := store.Get("pods", "default", "a")
		return ok && obj.GetResourceVersion() == "11"
	})
	obj, _ := store.Get("pods", "default", "a")
	phase, _, _ := unstructured.NestedString(obj.Object, "status", "phase")
	if phase != "Succeeded" {
		t.Fatalf("phase after modify = %q, want %q", phase, "Succeeded")
	}
	node, _, _ := unstructured.NestedString(obj.Object, "spec", "nodeName")
	if node != "node-a" {
		t.Fatalf("modify dropped unrelated field, nodeName = %q", node)
	}

	w1.Error(&metav1.Status{
		Status:  metav1.StatusFailure,
		Code:    http.StatusGone,
		Reason:  metav1.StatusReasonExpired,
		Message: "too old resource version",
	})
	waitFor(t, "recovery list", func() bool { return store.Version("pods", ScopeAllNamespaces) == "50" })
	recvWatcher(t, gw)

	items, _ := store.CurrentList("pods", "")
	if len(items) != 2 {
		t.Fatalf("items after recovery = %d, want 2", len(items))
	}
	versions := rec.refreshVersions()
	if len(versions) != 2 || versions[1] != "50" {
		t.Fatalf("refresh versions = %v, want [10 50]", versions)
	}
	from := gw.fromVersions()
	if len(from) != 2 || from[0] != "10" || from[1] != "50" {
		t.Fatalf("watch start versions = %v, want [10 50]", from)
	}

	stopLoop(t, cancel, done)
}

func TestLoopBacksOffAfterListFailure(t *testing.T) {
	gw := newScriptGateway(
		listStep{err: errors.New("connection refused")},
		listStep{err: errors.New("connection refused")},
		listStep{items: []*unstructured.Unstructured{pod("default", "a", "7")}, version: "7"},
	)
	loop, store, _, cancel, done := startLoop(t, gw, LoopOptions{InitialBackoff: time.Millisecond, MaxBackoff: 4 * time.Millisecond})

	recvWatcher(t, gw)
	waitFor(t, "sync after retries", func() bool { return store.Version("pods", ScopeAllNamespaces) == "7" })
	if calls := gw.calls(); calls < 3 {
		t.Fatalf("list calls = %d, want at least 3", calls)
	}
	waitFor(t, "watching state", func() bool { return loop.State() == StateWatching })

	stopLoop(t, cancel, done)
}

func TestLoopRelistsWhenStreamGoesQuiet(t *testing.T) {
	gw := newScriptGateway(listStep{version: "5"})
	_, _, rec, cancel, done := startLoop(t, gw, LoopOptions{EventTimeout: 15 * time.Millisecond, InitialBackoff: time.Millisecond})

	recvWatcher(t, gw)
	recvWatcher(t, gw)
	if calls := gw.calls(); calls < 2 {
		t.Fatalf("list calls = %d, want at least 2", calls)
	}
	_, _, _, refreshes := rec.counts()
	if refreshes < 2 {
		t.Fatalf("full refreshes = %d, want at least 2", refreshes)
	}

	stopLoop(t, cancel, done)
}

func TestLoopRelistsWhenWatchOpenReportsExpired(t *testing.T) {
	gw := newScriptGateway(
		listStep{version: "10"},
		listStep{version: "12"},
	)
	gw.watchErrs = []error{apierrors.NewResourceExpired("too old resource version")}
	_, store, _, cancel, done := startLoop(t, gw, LoopOptions{InitialBackoff: time.Millisecond})

	recvWatcher(t, gw)
	waitFor(t, "second baseline", func() bool { return store.Version("pods", ScopeAllNamespaces) == "12" })
	from := gw.fromVersions()
	if len(from) < 2 || from[0] != "10" || from[1] != "12" {
		t.Fatalf("watch start versions = %v, want [10 12]", from)
	}

	stopLoop(t, cancel, done)
}

func TestBookmarkAdvancesWatchPositionOnly(t *testing.T) {
	gw := newScriptGateway(listStep{items: []*unstructured.Unstructured{pod("default", "a", "10")}, version: "10"})
	_, store, rec, cancel, done := startLoop(t, gw, LoopOptions{InitialBackoff: time.Millisecond})

	w1 := recvWatcher(t, gw)
	waitFor(t, "initial sync", func() bool { return store.Version("pods", ScopeAllNamespaces) == "10" })

	bookmark := &unstructured.Unstructured{Object: map[string]any{
		"apiVersion": "v1",
		"kind":       "Pod",
		"metadata":   map[string]any{"resourceVersion": "20"},
	}}
	w1.Action(apiwatch.Bookmark, bookmark)
	w1.Modify(pod("default", "a", "21"))

	waitFor(t, "modify after bookmark", func() bool { return store.Version("pods", ScopeAllNamespaces) == "21" })
	if got := gw.fromVersions(); len(got) != 1 {
		t.Fatalf("bookmark reopened the watch: start versions %v", got)
	}
	_, _, _, refreshes := rec.counts()
	if refreshes != 1 {
		t.Fatalf("bookmark caused a relist: %d refreshes", refreshes)
	}

	stopLoop(t, cancel, done)
}

func TestLoopStopsDuringBackoff(t *testing.T) {
	gw := newScriptGateway(listStep{err: errors.New("connection refused")})
	_, _, _, cancel, done := startLoop(t, gw, LoopOptions{InitialBackoff: 30 * time.Second})

	waitFor(t, "first list attempt", func() bool { return gw.calls() >= 1 })
	stopLoop(t, cancel, done)
}
