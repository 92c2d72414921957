package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	// writeWait is time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// pongWait is time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// pingPeriod must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// maxMessageSize is maximum message size allowed from peer
	maxMessageSize = 512

	// maxSubscriptions bounds the financings one connection can follow
	maxSubscriptions = 50
)

// Subscription actions a client may send
const (
	ActionSubscribe   = "subscribe"
	ActionUnsubscribe = "unsubscribe"
)

// ClientMessage is the only message shape accepted from clients
type ClientMessage struct {
	Action      string `json:"action"`
	FinancingID int32  `json:"financingId"`
}

// Client represents a single WebSocket connection. A client with no
// subscriptions receives every event of its workspace.
type Client struct {
	id            string
	workspaceID   int32
	conn          *websocket.Conn
	hub           *Hub
	send          chan []byte
	closed        bool
	subscriptions map[int32]struct{}
	mu            sync.RWMutex
	closeOnce     sync.Once
}

// NewClient creates a new WebSocket client
func NewClient(conn *websocket.Conn, workspaceID int32, hub *Hub) *Client {
	return &Client{
		id:            uuid.New().String(),
		workspaceID:   workspaceID,
		conn:          conn,
		hub:           hub,
		send:          make(chan []byte, 256),
		subscriptions: make(map[int32]struct{}),
	}
}

// ID returns the client's unique identifier
func (c *Client) ID() string {
	return c.id
}

// WorkspaceID returns the client's workspace ID
func (c *Client) WorkspaceID() int32 {
	return c.workspaceID
}

// Accepts reports whether an event scoped to financingID should reach this client
func (c *Client) Accepts(financingID int32) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return acceptsFinancing(c.subscriptions, financingID)
}

func acceptsFinancing(subscriptions map[int32]struct{}, financingID int32) bool {
	if financingID == 0 || len(subscriptions) == 0 {
		return true
	}
	_, ok := subscriptions[financingID]
	return ok
}

// HandleMessage applies a subscribe or unsubscribe request
func (c *Client) HandleMessage(raw []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(raw, &msg); err != nil || msg.FinancingID <= 0 {
		log.Debug().Str("client_id", c.id).Msg("Ignoring malformed client message")
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	switch msg.Action {
	case ActionSubscribe:
		if len(c.subscriptions) >= maxSubscriptions {
			return
		}
		c.subscriptions[msg.FinancingID] = struct{}{}
	case ActionUnsubscribe:
		delete(c.subscriptions, msg.FinancingID)
	default:
		log.Debug().Str("client_id", c.id).Str("action", msg.Action).Msg("Ignoring unknown client action")
	}
}

// Send queues a message to be sent to the client
func (c *Client) Send(data []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return ErrClientClosed
	}

	select {
	case c.send <- data:
		return nil
	default:
		// Buffer is full, client is too slow
		return ErrClientClosed
	}
}

// Close closes the client connection. Safe to call more than once.
func (c *Client) Close() error {
	var closeErr error
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		close(c.send)
		c.mu.Unlock()

		if c.conn != nil {
			closeErr = c.conn.Close()
		}
	})
	return closeErr
}

// IsClosed returns whether the client is closed
func (c *Client) IsClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// ReadPump reads subscription messages until the connection drops.
// Run it in its own goroutine.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn().
					Err(err).
					Str("client_id", c.id).
					Int32("workspace_id", c.workspaceID).
					Msg("WebSocket unexpected close")
			}
			break
		}
		c.HandleMessage(message)
	}
}

// WritePump writes queued events and keepalive pings.
// Run it in its own goroutine.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Warn().
					Err(err).
					Str("client_id", c.id).
					Int32("workspace_id", c.workspaceID).
					Msg("WebSocket write error")
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
