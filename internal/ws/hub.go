// internal/ws/hub.go
//
// Websocket hub: the connection registry and broadcast gateway.
// Responsibilities:
//   - Upgrade authenticated HTTP requests to websocket connections.
//   - Track live clients by opaque connection id.
//   - Deliver arena events to a single connection (implements arena.Gateway).
//   - Signal the match service when a connection drops.
//
// Every frame in both directions is a JSON envelope {event, data}.

package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/arcadeduel/server/internal/arena"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// The browser client is served from the same origin or an allowed
		// CORS origin; auth happens via JWT, not the Origin header.
		return true
	},
}

// Envelope is the wire frame for every websocket message.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// MatchService is the slice of the arena service the transport layer needs.
type MatchService interface {
	JoinQueue(connID, userID, displayName string, points int, variant string)
	LeaveQueue(connID, variant string)
	Ready(connID, sessionID string)
	Action(connID, sessionID string, act arena.Action)
	Disconnect(connID string)
}

// BalanceFunc resolves a user's current point balance (the identity
// collaborator's getCurrentPoints).
type BalanceFunc func(ctx context.Context, userID string) (int, error)

// Hub owns the set of live connections.
type Hub struct {
	svc     MatchService
	balance BalanceFunc

	mu      sync.RWMutex
	clients map[string]*Client
}

func NewHub(balance BalanceFunc) *Hub {
	return &Hub{balance: balance, clients: make(map[string]*Client)}
}

// SetService wires the match service in after construction (the service
// needs the hub as its gateway, so the two are built in sequence).
func (h *Hub) SetService(svc MatchService) { h.svc = svc }

// ServeWS upgrades an authenticated request and starts the client pumps.
// userID and displayName come from the verified JWT.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, userID, displayName string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	c := &Client{
		hub:         h,
		conn:        conn,
		send:        make(chan []byte, 64),
		id:          uuid.NewString(),
		userID:      userID,
		displayName: displayName,
	}
	h.register(c)
	log.Info().Str("conn", c.id).Str("user", userID).Msg("client connected")

	go c.writePump()
	go c.readPump()
}

// Send implements arena.Gateway: marshal the envelope and hand it to the
// client's writer. A connection that is gone, or whose send buffer is full,
// is dropped — the arena loop must never block on a slow client.
func (h *Hub) Send(connID, event string, data any) {
	raw, err := json.Marshal(data)
	if err != nil {
		log.Error().Err(err).Str("event", event).Msg("marshal event payload")
		return
	}
	frame, err := json.Marshal(Envelope{Event: event, Data: raw})
	if err != nil {
		log.Error().Err(err).Str("event", event).Msg("marshal envelope")
		return
	}

	h.mu.RLock()
	c, ok := h.clients[connID]
	h.mu.RUnlock()
	if !ok {
		return
	}
	select {
	case c.send <- frame:
	default:
		log.Warn().Str("conn", connID).Msg("send buffer full, dropping connection")
		h.unregister(c)
	}
}

// Count reports the number of live connections.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	_, present := h.clients[c.id]
	if present {
		delete(h.clients, c.id)
		close(c.send)
	}
	h.mu.Unlock()

	if present && h.svc != nil {
		// Never inline: Send runs on the arena loop, and Disconnect posts
		// back onto that same loop.
		go h.svc.Disconnect(c.id)
		log.Info().Str("conn", c.id).Msg("client disconnected")
	}
}
