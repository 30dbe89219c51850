// Package relay implements the distribution side of the pipeline: it fans a
// line-oriented input stream out to WebSocket listeners. Lines pass through
// verbatim; the relay never parses or validates them.
package relay

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"printwatch/internal/storage"
)

// Hub owns the set of connected listeners. A single goroutine (Run) mutates
// the set; registration, removal, and the input stream all funnel through
// its channels, so no lock guards the map.
type Hub struct {
	log     logrus.FieldLogger
	history *storage.LineBuffer

	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	listeners atomic.Int64
	forwarded atomic.Int64
	started   time.Time
}

func NewHub(history *storage.LineBuffer, log logrus.FieldLogger) *Hub {
	return &Hub{
		log:        log,
		history:    history,
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		started:    time.Now(),
	}
}

// Run distributes lines until the input channel closes (end of stream) or
// the context is canceled, then disconnects every listener and returns.
// Listeners may come and go the whole time.
func (h *Hub) Run(ctx context.Context, lines <-chan []byte) {
	defer h.shutdown()
	for {
		select {
		case <-ctx.Done():
			return

		case line, ok := <-lines:
			if !ok {
				return
			}
			h.history.Add(line)
			h.forwarded.Add(1)
			for client := range h.clients {
				h.deliver(client, line)
			}

		case client := <-h.register:
			h.replayHistory(client)
			h.clients[client] = true
			h.listeners.Add(1)
			h.log.WithField("listener", client.addr).Info("listener connected")

		case client := <-h.unregister:
			h.remove(client)
		}
	}
}

// Register hands a new listener to the hub. If the hub has already stopped
// the listener's send channel is closed immediately, which makes its write
// pump say goodbye and exit.
func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
		close(c.send)
	}
}

func (h *Hub) drop(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// deliver forwards one line without ever blocking on a listener. A listener
// that cannot keep up loses its slot, not the stream its peers see.
func (h *Hub) deliver(c *Client, line []byte) {
	select {
	case c.send <- line:
	default:
		h.log.WithField("listener", c.addr).Warn("listener too slow, disconnecting")
		h.remove(c)
	}
}

func (h *Hub) remove(c *Client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
	h.listeners.Add(-1)
	h.log.WithField("listener", c.addr).Info("listener disconnected")
}

// replayHistory queues the retained lines ahead of live traffic. The send
// buffer comfortably fits the default history size; should configuration
// outgrow it, the oldest context is dropped rather than the connection.
func (h *Hub) replayHistory(c *Client) {
	for _, line := range h.history.Snapshot() {
		select {
		case c.send <- line:
		default:
			h.log.WithField("listener", c.addr).Debug("history replay truncated")
			return
		}
	}
}

func (h *Hub) shutdown() {
	close(h.done)
	for client := range h.clients {
		delete(h.clients, client)
		close(client.send)
		h.listeners.Add(-1)
	}
}

// Listeners reports the number of currently connected listeners.
func (h *Hub) Listeners() int64 { return h.listeners.Load() }

// Forwarded reports how many lines have been distributed so far.
func (h *Hub) Forwarded() int64 { return h.forwarded.Load() }

// Uptime reports how long the hub has existed.
func (h *Hub) Uptime() time.Duration { return time.Since(h.started) }
