// Package stream broadcasts forest render syncs to websocket clients and
// collects their commands for the simulation loop.
package stream

import (
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pthm-cable/tendril/growth"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 4096
)

// Options configures a Hub.
type Options struct {
	SendBuffer   int           // frames queued per client before dropping
	PingInterval time.Duration // keepalive ping period
	CommandQueue int           // pending commands before dropping
}

// DefaultOptions returns the stock hub settings.
func DefaultOptions() Options {
	return Options{SendBuffer: 64, PingInterval: 30 * time.Second, CommandQueue: 64}
}

// Hub is a growth.RenderSink that fans plant frames out to websocket
// clients. Slow clients lose frames rather than stall the simulation.
type Hub struct {
	upgrader websocket.Upgrader
	opts     Options

	mu      sync.RWMutex
	clients map[*client]struct{}

	commands chan Command
	tick     atomic.Int64
	dropped  atomic.Int64
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// NewHub creates a hub. Zero option fields take their defaults.
func NewHub(opts Options) *Hub {
	def := DefaultOptions()
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = def.SendBuffer
	}
	if opts.PingInterval <= 0 {
		opts.PingInterval = def.PingInterval
	}
	if opts.CommandQueue <= 0 {
		opts.CommandQueue = def.CommandQueue
	}
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		opts:     opts,
		clients:  make(map[*client]struct{}),
		commands: make(chan Command, opts.CommandQueue),
	}
}

// SetTick sets the tick stamped on outgoing frames.
func (h *Hub) SetTick(tick int64) {
	h.tick.Store(tick)
}

// Commands returns the queue of validated client commands.
func (h *Hub) Commands() <-chan Command {
	return h.commands
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Dropped returns the number of frames discarded for slow clients.
func (h *Hub) Dropped() int64 {
	return h.dropped.Load()
}

// SyncPlant implements growth.RenderSink.
func (h *Hub) SyncPlant(plant growth.ID, views []growth.ParticleView) {
	if h.ClientCount() == 0 {
		return
	}
	data, err := EncodePlant(h.tick.Load(), plant, views)
	if err != nil {
		slog.Error("failed to encode plant frame", "plant", plant, "error", err)
		return
	}
	h.Broadcast(data)
}

// Broadcast queues data for every client.
func (h *Hub) Broadcast(data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		h.queue(c, data)
	}
}

// queue must be called with h.mu held.
func (h *Hub) queue(c *client, data []byte) {
	select {
	case c.send <- data:
	default:
		h.dropped.Add(1)
	}
}

func (h *Hub) sendTo(c *client, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.clients[c]; ok {
		h.queue(c, data)
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}

// ServeHTTP upgrades the request and serves the client until it leaves.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}
	c := &client{conn: conn, send: make(chan []byte, h.opts.SendBuffer)}
	c.send <- encodeSimple(FrameHello, h.tick.Load(), "")
	h.register(c)
	slog.Info("stream client connected", "remote", conn.RemoteAddr().String())

	go h.writePump(c)
	h.readPump(c)
}

// writePump is the only writer on the connection.
func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(h.opts.PingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
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

func (h *Hub) readPump(c *client) {
	defer h.unregister(c)

	pongWait := 2 * h.opts.PingInterval
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("stream client read failed", "error", err)
			}
			slog.Info("stream client disconnected", "remote", c.conn.RemoteAddr().String())
			return
		}

		cmd, err := ParseCommand(data)
		if err != nil {
			h.sendTo(c, encodeSimple(FrameError, h.tick.Load(), err.Error()))
			continue
		}
		select {
		case h.commands <- cmd:
		default:
			slog.Warn("stream command queue full", "type", cmd.Type)
			h.sendTo(c, encodeSimple(FrameError, h.tick.Load(), "command queue full"))
		}
	}
}
