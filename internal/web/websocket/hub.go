package websocket

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

// Client is one connected status panel viewer
type Client struct {
	ID   string
	Send chan []byte
	hub  *Hub
	once sync.Once
}

// closeSend is safe to call from both the hub loop and shutdown
func (c *Client) closeSend() {
	c.once.Do(func() { close(c.Send) })
}

// Hub fans progress messages out to every connected client
type Hub struct {
	clients    map[*Client]struct{}
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	log        *logrus.Logger

	mu    sync.RWMutex
	count int
}

// NewHub creates a new Hub. Nothing is delivered until Run is called.
func NewHub(log *logrus.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		log:        log,
	}
}

// Run handles registrations and broadcasts until ctx is done, then closes
// every client's send channel
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		close(h.done)
		for client := range h.clients {
			client.closeSend()
		}
		h.setCount(0)
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.clients[client] = struct{}{}
			h.setCount(len(h.clients))
			h.log.WithField("component", "websocket").Infof("New client connected. Total clients: %d", len(h.clients))

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.closeSend()
				h.setCount(len(h.clients))
				h.log.WithField("component", "websocket").Infof("Client disconnected. Total clients: %d", len(h.clients))
			}

		case message := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.Send <- message:
				default:
					// slow reader, drop it
					delete(h.clients, client)
					client.closeSend()
					h.setCount(len(h.clients))
				}
			}
		}
	}
}

// Broadcast queues message for every connected client. It returns without
// sending once the hub has stopped.
func (h *Hub) Broadcast(message []byte) {
	select {
	case h.broadcast <- message:
	case <-h.done:
	}
}

// ClientCount returns the number of registered clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

func (h *Hub) setCount(n int) {
	h.mu.Lock()
	h.count = n
	h.mu.Unlock()
}

func (h *Hub) add(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) remove(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}
