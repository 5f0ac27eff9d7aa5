// Package notify pushes refreshed standings to WebSocket subscribers.
// Each connection subscribes to one game; every standings refresh is
// broadcast as a JSON snapshot to that game's subscribers.
package notify

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"marathon-league/internal/domain"
)

const (
	writeTimeout = 10 * time.Second
	pingInterval = 30 * time.Second
	readTimeout  = 60 * time.Second

	// sendBuffer bounds per-client queued messages; slow clients that
	// fall behind are dropped rather than blocking the broadcaster.
	sendBuffer = 8
)

// StandingsUpdate is the wire message pushed to subscribers.
type StandingsUpdate struct {
	GameID    string                   `json:"gameId"`
	Standings []*domain.LeagueStanding `json:"standings"`
}

// client is one subscribed WebSocket connection. The send channel is
// never closed; a departing client is removed from the hub and its
// connection closed, which terminates both loops.
type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans standings updates out to per-game subscriber sets.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*client]struct{} // keyed by game_id

	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewHub creates a standings notification hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients: make(map[string]map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger: logger,
	}
}

// ServeWS upgrades an HTTP request to a WebSocket subscription. The game
// is selected with the `game` query parameter.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	gameID := r.URL.Query().Get("game")
	if gameID == "" {
		http.Error(w, "missing game parameter", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "err", err)
		return
	}

	c := &client{
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}
	h.register(gameID, c)

	go h.writeLoop(gameID, c)
	go h.readLoop(gameID, c)
}

// BroadcastStandings pushes a standings snapshot to every subscriber of
// the game. Clients whose send queue is full are disconnected.
func (h *Hub) BroadcastStandings(gameID string, rows []*domain.LeagueStanding) {
	payload, err := json.Marshal(StandingsUpdate{GameID: gameID, Standings: rows})
	if err != nil {
		h.logger.Error("marshal standings update", "game_id", gameID, "err", err)
		return
	}

	h.mu.RLock()
	subscribers := make([]*client, 0, len(h.clients[gameID]))
	for c := range h.clients[gameID] {
		subscribers = append(subscribers, c)
	}
	h.mu.RUnlock()

	for _, c := range subscribers {
		select {
		case c.send <- payload:
		default:
			h.logger.Warn("dropping slow standings subscriber", "game_id", gameID)
			h.unregister(gameID, c)
		}
	}
}

// SubscriberCount reports the current number of subscribers for a game.
func (h *Hub) SubscriberCount(gameID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[gameID])
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for gameID, set := range h.clients {
		for c := range set {
			c.conn.Close()
		}
		delete(h.clients, gameID)
	}
}

func (h *Hub) register(gameID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[gameID]
	if !ok {
		set = make(map[*client]struct{})
		h.clients[gameID] = set
	}
	set[c] = struct{}{}
}

func (h *Hub) unregister(gameID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[gameID]
	if !ok {
		return
	}
	if _, exists := set[c]; !exists {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.clients, gameID)
	}
	c.conn.Close()
}

// writeLoop forwards queued payloads and pings until the connection
// fails or is closed by unregister.
func (h *Hub) writeLoop(gameID string, c *client) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		h.unregister(gameID, c)
	}()

	for {
		select {
		case payload := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readLoop drains inbound frames so pongs and close frames are
// processed; subscribers never send application data.
func (h *Hub) readLoop(gameID string, c *client) {
	defer h.unregister(gameID, c)

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(readTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
