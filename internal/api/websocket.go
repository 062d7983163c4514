package api

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// MaxWSConnectionsTotal bounds concurrent spectator sockets; beyond this
// the admin API rejects new upgrades rather than let a dashboard swarm
// degrade the process the engine itself runs in.
const MaxWSConnectionsTotal = 200

// MaxWSConnectionsPerIP is the burst size of the per-address upgrade rate
// limiter (one new upgrade per second once the burst is spent); it does not
// cap how many sockets one address holds open at once.
const MaxWSConnectionsPerIP = 5

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if IsAllowedOrigin(origin) {
			return true
		}
		log.Printf("api: websocket connection rejected from origin %q", origin)
		RecordConnectionRejected("origin")
		return false
	},
}

type wsClient struct {
	conn *websocket.Conn
	ip   string
}

// SpectatorHub fans periodic state snapshots out to read-only WebSocket
// viewers: admin dashboards and stream overlays that want a live feed
// without polling /api/state. It never receives gameplay input back from
// a client; ReadMessage is drained purely to detect disconnects.
type SpectatorHub struct {
	clients    map[*websocket.Conn]*wsClient
	broadcast  chan []byte
	register   chan *wsClient
	unregister chan *websocket.Conn
	mu         sync.RWMutex

	limiter *IPRateLimiter
	done    chan struct{}
	once    sync.Once
}

// NewSpectatorHub constructs an idle hub; call Run to start its loop.
func NewSpectatorHub() *SpectatorHub {
	return &SpectatorHub{
		clients:    make(map[*websocket.Conn]*wsClient),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *wsClient),
		unregister: make(chan *websocket.Conn),
		limiter: NewIPRateLimiter(RateLimitConfig{
			RequestsPerSecond: 1,
			Burst:             MaxWSConnectionsPerIP,
			CleanupInterval:   5 * time.Minute,
		}),
		done: make(chan struct{}),
	}
}

// Run drives the hub's register/unregister/broadcast select loop until
// Stop is called. Must run in its own goroutine.
func (h *SpectatorHub) Run() {
	for {
		select {
		case <-h.done:
			return
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.conn] = client
			h.mu.Unlock()
		case conn := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				conn.Close()
			}
			h.mu.Unlock()
		case msg := <-h.broadcast:
			h.mu.RLock()
			for conn := range h.clients {
				if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
					conn.Close()
					go func(c *websocket.Conn) { h.unregister <- c }(conn)
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Stop ends Run's loop. Idempotent.
func (h *SpectatorHub) Stop() {
	h.once.Do(func() { close(h.done) })
}

// ClientCount returns the number of live spectator sockets.
func (h *SpectatorHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast marshals event/data as JSON and queues it for every connected
// spectator. Drops silently under backpressure rather than block the
// caller (the engine's own tick loop, via StartStateBroadcastLoop).
func (h *SpectatorHub) Broadcast(event string, data interface{}) {
	payload, err := json.Marshal(map[string]interface{}{"event": event, "data": data})
	if err != nil {
		return
	}
	select {
	case h.broadcast <- payload:
	default:
	}
}

// StartStateBroadcastLoop periodically pushes a PlayerCount/TeamScores/
// Leaderboard snapshot to every spectator, skipping entirely when nobody
// is connected.
func (h *SpectatorHub) StartStateBroadcastLoop(engine EngineInterface, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-h.done:
				return
			case <-ticker.C:
				if h.ClientCount() == 0 {
					continue
				}
				a, b := engine.TeamScores()
				h.Broadcast("state", map[string]interface{}{
					"playerCount": engine.PlayerCount(),
					"teamScoreA":  a,
					"teamScoreB":  b,
				})
				h.Broadcast("leaderboard", engine.Leaderboard().Top(10))
			}
		}
	}()
}

// HandleWebSocket upgrades a spectator connection, subject to
// MaxWSConnectionsTotal and the per-address upgrade rate limit.
func (h *SpectatorHub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	ip := GetClientIP(r)

	if h.ClientCount() >= MaxWSConnectionsTotal {
		RecordConnectionRejected("ws_total_limit")
		http.Error(w, "too many spectator connections", http.StatusServiceUnavailable)
		return
	}
	if !h.limiter.Allow(ip) {
		RecordConnectionRejected("ws_ip_limit")
		http.Error(w, "too many connections from this address", http.StatusTooManyRequests)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("api: websocket upgrade failed: %v", err)
		return
	}

	client := &wsClient{conn: conn, ip: ip}
	h.register <- client

	go func() {
		defer func() { h.unregister <- conn }()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
