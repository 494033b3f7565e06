// Package broadcast fans pipeline events out to websocket clients.
//
// Clients are scoped to exactly one meeting room. Every published
// event is also kept in a bounded per-room replay ring so a client
// that reconnects can request a resync and catch up without a page
// reload.
package broadcast

import (
	"log/slog"
	"sync"
	"time"

	"github.com/confabhq/confab/pkg/buffer"
	"github.com/confabhq/confab/pkg/meeting"
)

// Options tunes the Hub.
type Options struct {
	// Logger for client lifecycle events. Defaults to slog.Default().
	Logger *slog.Logger

	// ReplayLimit bounds the per-room replay ring. Default 1000.
	ReplayLimit int

	// SendBuffer is the per-client outbound queue length. A client
	// whose queue is full when an event arrives is dropped. Default 64.
	SendBuffer int

	// WriteTimeout bounds each websocket write. Default 10s.
	WriteTimeout time.Duration
}

func (o *Options) defaults() {
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.ReplayLimit <= 0 {
		o.ReplayLimit = 1000
	}
	if o.SendBuffer <= 0 {
		o.SendBuffer = 64
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 10 * time.Second
	}
}

type room struct {
	clients map[*Client]bool
	replay  *buffer.Ring[meeting.Envelope]
}

// Hub routes events to meeting rooms. Safe for concurrent use.
type Hub struct {
	opts Options

	mu    sync.Mutex
	rooms map[string]*room
}

// NewHub creates a Hub.
func NewHub(opts Options) *Hub {
	opts.defaults()
	return &Hub{opts: opts, rooms: make(map[string]*room)}
}

func (h *Hub) room(meetingID string) *room {
	r := h.rooms[meetingID]
	if r == nil {
		r = &room{
			clients: make(map[*Client]bool),
			replay:  buffer.NewRing[meeting.Envelope](h.opts.ReplayLimit),
		}
		h.rooms[meetingID] = r
	}
	return r
}

// Publish records the event in the room's replay ring and delivers it
// to every connected client. Clients that cannot keep up are dropped.
func (h *Hub) Publish(meetingID string, env meeting.Envelope) {
	h.mu.Lock()
	r := h.room(meetingID)
	r.replay.Add(env)
	var slow []*Client
	for c := range r.clients {
		select {
		case c.send <- env:
		default:
			slow = append(slow, c)
		}
	}
	for _, c := range slow {
		delete(r.clients, c)
	}
	h.mu.Unlock()

	for _, c := range slow {
		h.opts.Logger.Warn("dropping slow client",
			"meeting_id", meetingID, "user_id", c.UserID)
		c.shutdown()
	}
}

// Resync queues the room's replay backlog, oldest first, to one client.
// The backlog itself is bounded, so at most ReplayLimit events are sent.
func (h *Hub) Resync(c *Client) int {
	h.mu.Lock()
	r := h.rooms[c.meetingID]
	if r == nil || !r.clients[c] {
		h.mu.Unlock()
		return 0
	}
	backlog := r.replay.Snapshot()
	h.mu.Unlock()

	sent := 0
	for _, env := range backlog {
		select {
		case c.send <- env:
			sent++
		default:
			// Queue full mid-replay: the write pump will catch up
			// or the next publish drops the client.
			return sent
		}
	}
	return sent
}

// ClientCount returns the number of connected clients in a room.
func (h *Hub) ClientCount(meetingID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	r := h.rooms[meetingID]
	if r == nil {
		return 0
	}
	return len(r.clients)
}

// CloseRoom disconnects all clients of a meeting and discards its
// replay backlog.
func (h *Hub) CloseRoom(meetingID string) {
	h.mu.Lock()
	r := h.rooms[meetingID]
	delete(h.rooms, meetingID)
	h.mu.Unlock()
	if r == nil {
		return
	}
	for c := range r.clients {
		c.shutdown()
	}
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	if r := h.rooms[c.meetingID]; r != nil {
		delete(r.clients, c)
	}
	h.mu.Unlock()
}
