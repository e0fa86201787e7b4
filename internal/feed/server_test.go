package feed

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/go-logr/logr"

	"github.com/example/kdash/internal/watch"
)

func TestHubBroadcastDeliversMessages(t *testing.T) {
	h := newHub(logr.Discard())
	c := &client{send: make(chan []byte, 1), log: logr.Discard()}
	h.Register(c)

	msg := []byte("hello")
	h.Broadcast(msg)

	select {
	case got := <-c.send:
		if string(got) != string(msg) {
			t.Fatalf("unexpected payload: %q", got)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for broadcast")
	}
}

func TestHubBroadcastDropsSlowClients(t *testing.T) {
	h := newHub(logr.Discard())
	c := &client{send: make(chan []byte, 1), log: logr.Discard()}
	h.Register(c)
	c.send <- []byte("backlog")

	h.Broadcast([]byte("next"))

	waitForCondition(t, func() bool {
		h.mu.RLock()
		defer h.mu.RUnlock()
		_, ok := h.clients[c]
		return !ok
	})
}

func TestServerBroadcastsNotifications(t *testing.T) {
	s := New("127.0.0.1:0", logr.Discard())
	c := &client{send: make(chan []byte, 4), log: logr.Discard()}
	s.hub.Register(c)

	s.OnModified("pods", watch.Key{Namespace: "default", Name: "web-0"})
	s.OnFullRefresh("pods", "41")

	var decoded map[string]string
	if err := json.Unmarshal(<-c.send, &decoded); err != nil {
		t.Fatalf("unable to unmarshal payload: %v", err)
	}
	if decoded["event"] != "modified" || decoded["kind"] != "pods" {
		t.Fatalf("unexpected change payload: %v", decoded)
	}
	if decoded["namespace"] != "default" || decoded["name"] != "web-0" {
		t.Fatalf("expected key coordinates, got %v", decoded)
	}
	if decoded["ts"] == "" {
		t.Fatalf("expected timestamp to be populated")
	}

	if err := json.Unmarshal(<-c.send, &decoded); err != nil {
		t.Fatalf("unable to unmarshal payload: %v", err)
	}
	if decoded["event"] != "refresh" || decoded["resourceVersion"] != "41" {
		t.Fatalf("unexpected refresh payload: %v", decoded)
	}
	if _, ok := decoded["name"]; ok {
		t.Fatalf("refresh payload should omit object coordinates: %v", decoded)
	}
}

func waitForCondition(t *testing.T, ok func() bool) {
	t.Helper()
	deadline := time.After(500 * time.Millisecond)
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-deadline:
			t.Fatalf("condition not met before timeout")
		case <-ticker.C:
			if ok() {
				return
			}
		}
	}
}
