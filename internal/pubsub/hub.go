package pubsub

import (
	"context"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("component", "pubsub")

// Client is one connection on the push channel endpoint.
type Client struct {
	Hub  *Hub
	Conn *websocket.Conn
	Send chan []byte
}

// Hub fans every broadcast frame out to every connected client. The
// original service has no per-poll rooms: all clients see all events.
type Hub struct {
	Register   chan *Client
	Unregister chan *Client
	Broadcast  chan []byte

	onCount func(int)
}

func NewHub() *Hub {
	return &Hub{
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		Broadcast:  make(chan []byte, 64),
	}
}

// OnCount registers a callback observed with the client count after
// every register/unregister, used to drive the connected-clients gauge.
func (h *Hub) OnCount(fn func(int)) {
	h.onCount = fn
}

// Run serializes all membership and fan-out until ctx is cancelled. Slow
// clients with a full send buffer are dropped rather than allowed to
// stall the broadcast.
func (h *Hub) Run(ctx context.Context) {
	clients := make(map[*Client]bool)

	closeClient := func(c *Client) {
		if clients[c] {
			delete(clients, c)
			close(c.Send)
		}
	}

	for {
		select {
		case <-ctx.Done():
			for c := range clients {
				close(c.Send)
			}
			return

		case client := <-h.Register:
			clients[client] = true
			h.notifyCount(len(clients))

		case client := <-h.Unregister:
			closeClient(client)
			h.notifyCount(len(clients))

		case frame := <-h.Broadcast:
			for c := range clients {
				select {
				case c.Send <- frame:
				default:
					closeClient(c)
				}
			}
		}
	}
}

func (h *Hub) notifyCount(n int) {
	if h.onCount != nil {
		h.onCount(n)
	}
}

// WritePump sends broadcast frames to the websocket connection.
func (c *Client) WritePump() {
	defer c.Conn.Close(websocket.StatusNormalClosure, "")

	for frame := range c.Send {
		if err := c.Conn.Write(context.Background(), websocket.MessageText, frame); err != nil {
			log.WithError(err).Debug("client write failed")
			break
		}
	}
}

// ReadPump drains incoming frames until the client disconnects. The push
// channel is one-way; anything the client sends is discarded.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister <- c
		c.Conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		if _, _, err := c.Conn.Read(context.Background()); err != nil {
			if websocket.CloseStatus(err) != websocket.StatusNormalClosure {
				log.WithError(err).Debug("client read ended")
			}
			return
		}
	}
}
