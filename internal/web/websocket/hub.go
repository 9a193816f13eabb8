package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rizkirmdhn/universal-media-downloader/pkg/models"
	"github.com/sirupsen/logrus"
)

// Client represents a dashboard connection on the activity feed
type Client struct {
	ID      string
	Send    chan []byte
	Hub     *Hub
	mu      sync.Mutex
	closeCh chan struct{}
	closed  bool
	once    sync.Once
}

// Hub maintains the set of active clients and broadcasts activity events to them
type Hub struct {
	// Registered clients
	clients map[*Client]bool

	// Channel for broadcasting messages to all clients
	broadcast chan []byte

	// Register requests from the clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Closed when Run returns
	quit chan struct{}

	log *logrus.Logger

	mu sync.Mutex
}

// NewHub creates a new Hub instance
func NewHub(log *logrus.Logger) *Hub {
	return &Hub{
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		quit:       make(chan struct{}),
		log:        log,
	}
}

func newClient(id string, hub *Hub) *Client {
	return &Client{
		ID:      id,
		Hub:     hub,
		Send:    make(chan []byte, 256),
		closeCh: make(chan struct{}),
	}
}

// Run starts the hub's message handling loop until ctx is done
func (h *Hub) Run(ctx context.Context) {
	defer close(h.quit)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				h.drop(client)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.log.WithFields(logrus.Fields{
				"component": "websocket",
				"client":    client.ID,
				"total":     len(h.clients),
			}).Info("Client connected")
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				h.drop(client)
				h.log.WithFields(logrus.Fields{
					"component": "websocket",
					"client":    client.ID,
					"total":     len(h.clients),
				}).Info("Client disconnected")
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.Send <- message:
				default:
					// Slow consumer
					h.drop(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// drop removes the client and closes its send channel. Caller holds h.mu.
func (h *Hub) drop(client *Client) {
	delete(h.clients, client)
	client.mu.Lock()
	if !client.closed {
		close(client.Send)
		client.closed = true
	}
	client.mu.Unlock()
}

// Register adds a client to the hub. It returns false once the hub has stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.quit:
		return false
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast queues a message for all connected clients. It never blocks; the
// message is dropped when the queue is full.
func (h *Hub) Broadcast(message []byte) bool {
	select {
	case h.broadcast <- message:
		return true
	default:
		return false
	}
}

// Notify broadcasts a download lifecycle event as JSON
func (h *Hub) Notify(_ context.Context, event models.ActivityEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		h.log.WithError(err).Error("Failed to marshal activity event")
		return
	}
	if !h.Broadcast(data) {
		h.log.WithFields(logrus.Fields{
			"component": "websocket",
			"event":     event.Type,
		}).Warn("Broadcast queue full, dropping activity event")
	}
}

// Close detaches the client from the hub and stops its write pump
func (c *Client) Close() {
	c.once.Do(func() {
		close(c.closeCh)
		select {
		case c.Hub.unregister <- c:
		case <-c.Hub.quit:
		}
	})
}
