// Package feed exposes the synchronization engine's change notifications over
// a WebSocket endpoint, so external viewers can follow the same stream the
// in-process console renders.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/gorilla/websocket"

	"github.com/example/kdash/internal/watch"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Server broadcasts engine notifications to WebSocket clients on /ws.
type Server struct {
	addr     string
	log      logr.Logger
	hub      *hub
	upgrader websocket.Upgrader
	now      func() time.Time
}

func New(addr string, log logr.Logger) *Server {
	return &Server{
		addr: addr,
		log:  log.WithName("feed"),
		hub:  newHub(log.WithName("feed")),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		now: time.Now,
	}
}

// Run serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = fmt.Fprint(w, "ok")
	})
	srv := &http.Server{Addr: s.addr, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		s.hub.Close()
	}()
	s.log.V(1).Info("feed listener ready", "addr", s.addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error(err, "upgrade feed websocket")
		return
	}
	client := newClient(conn, s.log)
	s.hub.Register(client)
	go client.writeLoop()
	client.readLoop(func() {
		s.hub.Unregister(client)
	})
}

var _ watch.Listener = (*Server)(nil)

func (s *Server) OnAdded(kind string, key watch.Key)    { s.broadcast("added", kind, key, "") }
func (s *Server) OnModified(kind string, key watch.Key) { s.broadcast("modified", kind, key, "") }
func (s *Server) OnDeleted(kind string, key watch.Key)  { s.broadcast("deleted", kind, key, "") }

func (s *Server) OnFullRefresh(kind string, resourceVersion string) {
	s.broadcast("refresh", kind, watch.Key{}, resourceVersion)
}

func (s *Server) broadcast(event, kind string, key watch.Key, resourceVersion string) {
	payload, err := encodeNotification(s.now(), event, kind, key, resourceVersion)
	if err != nil {
		s.log.Error(err, "encode feed payload")
		return
	}
	s.hub.Broadcast(payload)
}

func encodeNotification(ts time.Time, event, kind string, key watch.Key, resourceVersion string) ([]byte, error) {
	payload := struct {
		Timestamp       string `json:"ts"`
		Event           string `json:"event"`
		Kind            string `json:"kind"`
		Namespace       string `json:"namespace,omitempty"`
		Name            string `json:"name,omitempty"`
		ResourceVersion string `json:"resourceVersion,omitempty"`
	}{
		Timestamp:       ts.UTC().Format(time.RFC3339Nano),
		Event:           event,
		Kind:            kind,
		Namespace:       key.Namespace,
		Name:            key.Name,
		ResourceVersion: resourceVersion,
	}
	return json.Marshal(payload)
}

type hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
	log     logr.Logger
}

func newHub(log logr.Logger) *hub {
	return &hub{clients: make(map[*client]struct{}), log: log}
}

func (h *hub) Register(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *hub) Unregister(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.Close()
}

func (h *hub) Broadcast(msg []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.log.Info("dropping feed client for slow reader")
			go h.Unregister(c)
		}
	}
}

func (h *hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		c.Close()
		delete(h.clients, c)
	}
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	log  logr.Logger
	once sync.Once
}

func newClient(conn *websocket.Conn, log logr.Logger) *client {
	return &client{
		conn: conn,
		send: make(chan []byte, 256),
		log:  log,
	}
}

// writeLoop drains the send buffer and pings on an interval so the peer's
// pongs keep refreshing the read deadline. Feed clients never need to send
// anything to stay connected.
func (c *client) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.log.Error(err, "write feed websocket message")
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *client) readLoop(onClose func()) {
	defer func() {
		if onClose != nil {
			onClose()
		}
	}()
	c.conn.SetReadLimit(1024)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *client) Close() {
	c.once.Do(func() {
		close(c.send)
		if c.conn != nil {
			_ = c.conn.Close()
		}
	})
}
