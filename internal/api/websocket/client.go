package websocket

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	maxMessageSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Origin enforcement belongs to the reverse proxy in this deployment
		return true
	},
}

// Client is one websocket connection and its auction subscriptions
type Client struct {
	id     uuid.UUID
	hub    *Hub
	conn   *websocket.Conn
	logger *zap.Logger
	send   chan *Event

	mu            sync.RWMutex
	subscriptions map[uuid.UUID]bool
}

// clientMessage is the inbound control message shape
type clientMessage struct {
	Action    string    `json:"action"`
	AuctionID uuid.UUID `json:"auction_id"`
}

// ServeWS upgrades the request and registers the client with the hub
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed",
			zap.Error(err),
			zap.String("remote_addr", r.RemoteAddr))
		return
	}

	client := &Client{
		id:            uuid.New(),
		hub:           h,
		conn:          conn,
		logger:        h.logger,
		send:          make(chan *Event, 64),
		subscriptions: make(map[uuid.UUID]bool),
	}

	// Query-string subscription lets a client join an auction in one request
	if raw := r.URL.Query().Get("auction_id"); raw != "" {
		if auctionID, err := uuid.Parse(raw); err == nil {
			client.subscriptions[auctionID] = true
		}
	}

	h.register <- client

	go client.writePump()
	go client.readPump()
}

func (c *Client) subscribedTo(auctionID uuid.UUID) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.subscriptions[auctionID]
}

func (c *Client) ping() {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		c.conn.Close()
	}
}

// readPump consumes subscribe/unsubscribe messages until the connection drops
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
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
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("websocket read error",
					zap.String("client_id", c.id.String()),
					zap.Error(err))
			}
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			continue
		}

		switch msg.Action {
		case "subscribe":
			if msg.AuctionID != uuid.Nil {
				c.mu.Lock()
				c.subscriptions[msg.AuctionID] = true
				c.mu.Unlock()
			}
		case "unsubscribe":
			c.mu.Lock()
			delete(c.subscriptions, msg.AuctionID)
			c.mu.Unlock()
		}
	}
}

// writePump serializes outbound events onto the connection
func (c *Client) writePump() {
	defer c.conn.Close()

	for event := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteJSON(event); err != nil {
			return
		}
	}

	// Hub closed the channel: say goodbye cleanly
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}
