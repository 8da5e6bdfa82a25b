package network

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/superwave/timer/server/internal/events"
	"github.com/superwave/timer/server/internal/platform/logger"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second
	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second
	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
	// Maximum message size allowed from peer.
	maxMessageSize = 512
	// Time allowed for one command to run on the loop.
	commandTimeout = 5 * time.Second

	defaultSendBuffer = 64
)

// ErrorBody is the payload of an ERROR message.
type ErrorBody struct {
	Command CommandType `json:"command,omitempty"`
	Error   string      `json:"error"`
}

// Client is one browser connected over WebSocket.
type Client struct {
	id          string
	hub         *Hub
	conn        *websocket.Conn
	send        chan []byte
	handler     CommandHandler
	minGap      time.Duration
	lastCommand time.Time
	logger      *logger.Logger
}

// NewClient creates a new WebSocket client. Commands closer together than
// minGap are rejected.
func NewClient(hub *Hub, conn *websocket.Conn, handler CommandHandler, sendBuffer int, minGap time.Duration) *Client {
	id := events.GenerateEventID()
	if sendBuffer <= 0 {
		sendBuffer = defaultSendBuffer
	}

	return &Client{
		id:      id,
		hub:     hub,
		conn:    conn,
		send:    make(chan []byte, sendBuffer),
		handler: handler,
		minGap:  minGap,
		logger:  hub.logger,
	}
}

// ID identifies the client in logs and journal records.
func (c *Client) ID() string {
	return c.id
}

// ReadPump pumps commands from the websocket connection to the handler.
func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		c.hub.remove(c)
		c.conn.Close()
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
				c.hub.metrics.RecordWSError()
				c.logger.Err(err, "websocket read failed")
			}
			break
		}
		c.hub.metrics.RecordWSMessage(true)

		var cmd Command
		if err := json.Unmarshal(message, &cmd); err != nil {
			c.logger.Err(err, "failed to parse command from websocket")
			c.hub.sendTo(c, MsgTypeError, ErrorBody{Error: "malformed command"})
			continue
		}

		c.handleCommand(ctx, cmd)
	}
}

func (c *Client) handleCommand(ctx context.Context, cmd Command) {
	if c.minGap > 0 && !c.lastCommand.IsZero() && time.Since(c.lastCommand) < c.minGap {
		c.hub.metrics.RecordCommandRejected()
		c.logger.Zerolog().Warn().Str("client", c.id).Str("command", string(cmd.Type)).Msg("rate limit exceeded")
		c.hub.sendTo(c, MsgTypeError, ErrorBody{Command: cmd.Type, Error: "rate limit exceeded"})
		return
	}
	c.lastCommand = time.Now()

	cmd.Actor = c.id

	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	if _, err := c.handler.Execute(ctx, cmd); err != nil {
		c.logger.Zerolog().Debug().Err(err).Str("client", c.id).Str("command", string(cmd.Type)).Msg("command failed")
		c.hub.sendTo(c, MsgTypeError, ErrorBody{Command: cmd.Type, Error: err.Error()})
	}
}

// WritePump pumps messages from the hub to the websocket connection. Queued
// messages are batched into one frame separated by newlines.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Add queued messages to the current websocket message.
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
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

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // the widget may be served from a dev server on another port
	},
}

// WSOptions tunes ServeWS.
type WSOptions struct {
	SendBuffer int
	MinGap     time.Duration
	MaxClients int
}

// ServeWS upgrades requests to WebSocket clients of hub. Every new client
// first receives the current state.
func ServeWS(ctx context.Context, hub *Hub, handler CommandHandler, opts WSOptions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if opts.MaxClients > 0 && hub.ClientCount() >= opts.MaxClients {
			http.Error(w, "too many clients", http.StatusServiceUnavailable)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			hub.metrics.RecordWSError()
			hub.logger.Err(err, "failed to upgrade websocket connection")
			return
		}

		client := NewClient(hub, conn, handler, opts.SendBuffer, opts.MinGap)
		if !hub.add(client) {
			conn.Close()
			return
		}

		if state, err := handler.State(r.Context()); err == nil {
			hub.sendTo(client, MsgTypeState, state)
		}

		// Allow collection of memory referenced by the caller by doing all work in
		// new goroutines.
		go client.WritePump()
		go client.ReadPump(ctx)
	}
}
