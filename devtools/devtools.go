// Package devtools serves a live view of scheduler flushes over HTTP and
// WebSocket for development builds.
package devtools

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/delaneyj/watchparty/observer"
	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const defaultHistory = 64

// FlushMessage is what clients receive for every flush.
type FlushMessage struct {
	Seq uint64 `json:"seq"`
	observer.FlushInfo
}

// Summary aggregates the flushes kept in history.
type Summary struct {
	Flushes     uint64         `json:"flushes"`
	Runs        map[string]int `json:"runs"`
	Abandoned   int            `json:"abandoned"`
	TotalRuns   string         `json:"total_runs"`
	AvgDuration string         `json:"avg_duration"`
	LastFlush   string         `json:"last_flush,omitempty"`
}

type Option func(*Hub)

// WithHistory sets how many recent flushes /flushes returns.
func WithHistory(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.max = n
		}
	}
}

// WithGatherer mounts promhttp on /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(h *Hub) {
		h.gatherer = g
	}
}

// Hub is an observer.FlushHook that fans flushes out to connected clients.
type Hub struct {
	mu       sync.RWMutex
	clients  map[*websocket.Conn]*client
	upgrader websocket.Upgrader
	gatherer prometheus.Gatherer

	seq     uint64
	max     int
	history []FlushMessage
}

var _ observer.FlushHook = (*Hub)(nil)

func New(opts ...Option) *Hub {
	h := &Hub{
		clients: map[*websocket.Conn]*client{},
		max:     defaultHistory,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Router returns the devtools routes, ready to be mounted under a prefix.
func (h *Hub) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/ws", h.HandleWebSocket)
	r.Get("/flushes", h.HandleFlushes)
	if h.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

func (h *Hub) HandleWebSocket(w http.ResponseWriter, req *http.Request) {
	conn, err := h.upgrader.Upgrade(w, req, nil)
	if err != nil {
		return
	}

	h.mu.Lock()
	h.clients[conn] = &client{conn: conn}
	h.mu.Unlock()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
	conn.Close()
}

func (h *Hub) HandleFlushes(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(struct {
		Summary Summary        `json:"summary"`
		Flushes []FlushMessage `json:"flushes"`
	}{h.Summary(), h.History()})
}

func (h *Hub) OnFlush(info observer.FlushInfo) {
	h.mu.Lock()
	h.seq++
	msg := FlushMessage{Seq: h.seq, FlushInfo: info}
	h.history = append(h.history, msg)
	if len(h.history) > h.max {
		h.history = h.history[len(h.history)-h.max:]
	}
	h.mu.Unlock()

	h.broadcast(msg)
}

func (h *Hub) broadcast(msg FlushMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}

	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		if err := c.write(data); err != nil {
			h.mu.Lock()
			delete(h.clients, c.conn)
			h.mu.Unlock()
			c.conn.Close()
		}
	}
}

// client serialises writes to one connection; flushes from several runtimes
// may broadcast at the same time.
type client struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *client) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(time.Second))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// History returns the retained flushes, oldest first.
func (h *Hub) History() []FlushMessage {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]FlushMessage, len(h.history))
	copy(out, h.history)
	return out
}

func (h *Hub) Summary() Summary {
	h.mu.RLock()
	defer h.mu.RUnlock()

	s := Summary{Flushes: h.seq, Runs: map[string]int{}}
	var total int
	var elapsed time.Duration
	for _, m := range h.history {
		for kind, n := range m.Runs {
			s.Runs[kind] += n
		}
		total += m.Total()
		s.Abandoned += len(m.Abandoned)
		elapsed += m.Duration
	}
	s.TotalRuns = humanize.Comma(int64(total))
	if n := len(h.history); n > 0 {
		s.AvgDuration = (elapsed / time.Duration(n)).String()
		s.LastFlush = humanize.Time(h.history[n-1].Started)
	}
	return s
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		conn.Close()
		delete(h.clients, conn)
	}
}
