package inspector

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tickrun/tickrun/pkg/core"
)

// LifecycleEvent is one task lifecycle transition as sent to stream clients.
type LifecycleEvent struct {
	TaskID    string    `json:"task_id"`
	Kind      string    `json:"kind"` // start, step, pause, resume, finish
	Manual    bool      `json:"manual,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// StreamHub broadcasts task lifecycle events to websocket clients. It
// implements core.Observer, so attaching it to tasks with core.WithObserver
// is all the wiring required. Delivery is one-way and best-effort: a client
// that fails a write is dropped.
type StreamHub struct {
	upgrader websocket.Upgrader
	logger   core.Logger

	mu     sync.Mutex
	conns  map[*websocket.Conn]struct{}
	server *http.Server
}

// NewStreamHub creates a hub with no connected clients. A nil logger uses
// the default logger.
func NewStreamHub(logger core.Logger) *StreamHub {
	if logger == nil {
		logger = core.NewDefaultLogger()
	}
	return &StreamHub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // local debug endpoint
			},
		},
		logger: logger,
		conns:  make(map[*websocket.Conn]struct{}),
	}
}

// HandleWebSocket upgrades the request and registers the client for
// broadcasts.
func (h *StreamHub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Errorf("websocket upgrade failed: %v", err)
		return
	}

	h.mu.Lock()
	h.conns[conn] = struct{}{}
	h.mu.Unlock()

	// Drain client frames so pings and close handshakes are processed; the
	// stream itself is one-way.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				h.removeClient(conn)
				return
			}
		}
	}()
}

// Serve starts an HTTP server exposing the stream at /events.
func (h *StreamHub) Serve(addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/events", h.HandleWebSocket)

	server := &http.Server{Addr: addr, Handler: mux}

	h.mu.Lock()
	h.server = server
	h.mu.Unlock()

	go func() {
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			h.logger.Errorf("stream server stopped: %v", err)
		}
	}()
	return nil
}

// Shutdown closes all client connections and stops the server if one was
// started with Serve.
func (h *StreamHub) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	server := h.server
	h.server = nil
	conns := make([]*websocket.Conn, 0, len(h.conns))
	for conn := range h.conns {
		conns = append(conns, conn)
	}
	h.conns = make(map[*websocket.Conn]struct{})
	h.mu.Unlock()

	for _, conn := range conns {
		conn.Close()
	}
	if server != nil {
		return server.Shutdown(ctx)
	}
	return nil
}

// ClientCount returns the number of connected clients.
func (h *StreamHub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// Broadcast sends an event to every connected client.
func (h *StreamHub) Broadcast(event LifecycleEvent) {
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.conns))
	for conn := range h.conns {
		conns = append(conns, conn)
	}
	h.mu.Unlock()

	for _, conn := range conns {
		if err := conn.WriteJSON(event); err != nil {
			h.logger.Warnf("dropping stream client: %v", err)
			h.removeClient(conn)
		}
	}
}

func (h *StreamHub) removeClient(conn *websocket.Conn) {
	h.mu.Lock()
	_, ok := h.conns[conn]
	delete(h.conns, conn)
	h.mu.Unlock()
	if ok {
		conn.Close()
	}
}

// core.Observer implementation

func (h *StreamHub) OnStart(taskID string) {
	h.Broadcast(LifecycleEvent{TaskID: taskID, Kind: "start", Timestamp: time.Now()})
}

func (h *StreamHub) OnStep(taskID string) {
	h.Broadcast(LifecycleEvent{TaskID: taskID, Kind: "step", Timestamp: time.Now()})
}

func (h *StreamHub) OnPause(taskID string) {
	h.Broadcast(LifecycleEvent{TaskID: taskID, Kind: "pause", Timestamp: time.Now()})
}

func (h *StreamHub) OnResume(taskID string) {
	h.Broadcast(LifecycleEvent{TaskID: taskID, Kind: "resume", Timestamp: time.Now()})
}

func (h *StreamHub) OnFinish(taskID string, manual bool) {
	h.Broadcast(LifecycleEvent{TaskID: taskID, Kind: "finish", Manual: manual, Timestamp: time.Now()})
}
