// internal/ws/client.go
//
// Per-connection read/write pumps and inbound event routing. The read pump
// turns client envelopes into match-service calls; the write pump drains the
// send buffer and keeps the connection alive with pings.

package ws

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/arcadeduel/server/internal/arena"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 1024

	// Bound on the balance lookup a join-queue triggers.
	balanceTimeout = 3 * time.Second
)

// Client is one live websocket connection with its verified identity.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	id          string // opaque connection id
	userID      string
	displayName string
}

// readPump pumps envelopes from the connection into the match service.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn().Err(err).Str("conn", c.id).Msg("websocket read error")
			}
			return
		}
		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			log.Debug().Err(err).Str("conn", c.id).Msg("bad envelope, ignoring")
			continue
		}
		c.route(env)
	}
}

// route dispatches one inbound envelope. Unknown events and malformed
// payloads are dropped; the arena applies its own validation on top.
func (c *Client) route(env Envelope) {
	switch env.Event {
	case arena.EventJoinQueue:
		var p arena.JoinQueuePayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return
		}
		points, err := c.currentPoints()
		if err != nil {
			log.Warn().Err(err).Str("user", c.userID).Msg("balance lookup failed, rejecting join")
			c.hub.Send(c.id, arena.EventError, arena.ErrorPayload{Message: "could not verify balance"})
			return
		}
		c.hub.svc.JoinQueue(c.id, c.userID, c.displayName, points, p.Variant)

	case arena.EventLeaveQueue:
		var p arena.LeaveQueuePayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return
		}
		c.hub.svc.LeaveQueue(c.id, p.Variant)

	case arena.EventReady:
		var p arena.ReadyPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return
		}
		c.hub.svc.Ready(c.id, p.SessionID)

	case arena.EventAction:
		var p arena.ActionPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return
		}
		c.hub.svc.Action(c.id, p.SessionID, arena.Action{Kind: p.Kind, CardID: p.Data.CardID})

	default:
		log.Debug().Str("conn", c.id).Str("event", env.Event).Msg("unknown client event")
	}
}

// currentPoints asks the identity collaborator for the live balance. The
// points value a client claims on the wire is never used.
func (c *Client) currentPoints() (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), balanceTimeout)
	defer cancel()
	return c.hub.balance(ctx, c.userID)
}

// writePump pumps buffered frames to the connection and pings on a ticker.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
