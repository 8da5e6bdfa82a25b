package network

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/superwave/timer/server/internal/panel"
	"github.com/superwave/timer/server/internal/platform/logger"
	"github.com/superwave/timer/server/internal/platform/metrics"
)

// MsgType tags every message sent to a browser.
type MsgType string

const (
	MsgTypeState MsgType = "STATE"
	MsgTypeError MsgType = "ERROR"
)

// Message is the envelope of every server to browser message.
type Message struct {
	Type      MsgType     `json:"type"`
	Timestamp int64       `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

type envelope struct {
	client  *Client
	payload []byte
}

// Hub maintains the set of active clients and broadcasts messages to them.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	direct     chan envelope
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.Mutex
	logger     *logger.Logger
	metrics    *metrics.Collector
}

// NewHub initializes a new WebSocket Hub. buffer sizes the broadcast queue.
func NewHub(log *logger.Logger, m *metrics.Collector, buffer int) *Hub {
	return &Hub{
		broadcast:  make(chan []byte, buffer),
		direct:     make(chan envelope, buffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		clients:    make(map[*Client]bool),
		logger:     log.With("hub"),
		metrics:    m,
	}
}

// Run starts the Hub's main loop to handle client connections and broadcasts.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				h.drop(client)
			}
			h.mu.Unlock()
			h.logger.Info("WebSocket hub shutting down")
			return
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.metrics.RecordWSConnection(1)
			h.logger.Zerolog().Info().Str("client", client.id).Msg("websocket client connected")
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				h.drop(client)
				h.logger.Zerolog().Info().Str("client", client.id).Msg("websocket client disconnected")
			}
			h.mu.Unlock()
		case env := <-h.direct:
			h.mu.Lock()
			if _, ok := h.clients[env.client]; ok {
				h.deliver(env.client, env.payload)
			}
			h.mu.Unlock()
		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				h.deliver(client, message)
			}
			h.mu.Unlock()
		}
	}
}

// deliver queues message for client, dropping clients that fall behind.
// h.mu must be held.
func (h *Hub) deliver(client *Client, message []byte) {
	select {
	case client.send <- message:
		h.metrics.RecordWSMessage(false)
	default:
		h.metrics.RecordWSError()
		h.logger.Zerolog().Warn().Str("client", client.id).Msg("slow websocket client dropped")
		h.drop(client)
	}
}

// drop removes client and closes its send queue. h.mu must be held.
func (h *Hub) drop(client *Client) {
	close(client.send)
	delete(h.clients, client)
	h.metrics.RecordWSConnection(-1)
}

func (h *Hub) add(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) remove(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// BroadcastState sends the panel state to every client. It never blocks; the
// state is dropped when the broadcast queue is full.
func (h *Hub) BroadcastState(state panel.State) {
	payload, err := encode(MsgTypeState, state)
	if err != nil {
		h.logger.Err(err, "failed to serialize state for websocket broadcast")
		return
	}

	select {
	case h.broadcast <- payload:
	default:
		h.metrics.RecordWSError()
		h.logger.Warn("broadcast queue full; state dropped")
	}
}

// sendTo queues a message for one client.
func (h *Hub) sendTo(client *Client, t MsgType, body interface{}) {
	payload, err := encode(t, body)
	if err != nil {
		h.logger.Err(err, "failed to serialize websocket message")
		return
	}

	select {
	case h.direct <- envelope{client: client, payload: payload}:
	default:
		h.metrics.RecordWSError()
	}
}

func encode(t MsgType, body interface{}) ([]byte, error) {
	return json.Marshal(Message{
		Type:      t,
		Timestamp: time.Now().UnixMilli(),
		Payload:   body,
	})
}
