package broadcast

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/confabhq/confab/pkg/meeting"
)

const pingInterval = 30 * time.Second

// Client is one websocket subscriber, bound to a single meeting room
// for its whole lifetime.
type Client struct {
	UserID string

	hub       *Hub
	meetingID string
	conn      *websocket.Conn
	send      chan meeting.Envelope
	done      chan struct{}
	closeOnce sync.Once
}

// Join registers a websocket connection with a meeting room and starts
// its write pump. The caller keeps running the read side of the
// connection; events published to the room flow out through the pump
// until Close.
func (h *Hub) Join(conn *websocket.Conn, meetingID, userID string) *Client {
	c := &Client{
		UserID:    userID,
		hub:       h,
		meetingID: meetingID,
		conn:      conn,
		send:      make(chan meeting.Envelope, h.opts.SendBuffer),
		done:      make(chan struct{}),
	}
	h.mu.Lock()
	h.room(meetingID).clients[c] = true
	h.mu.Unlock()
	go c.writePump()
	return c
}

// MeetingID returns the room this client is bound to.
func (c *Client) MeetingID() string { return c.meetingID }

// Send queues one envelope to this client alone, for direct replies.
// Returns false when the client's queue is full.
func (c *Client) Send(env meeting.Envelope) bool {
	select {
	case c.send <- env:
		return true
	default:
		return false
	}
}

// Close unregisters the client and closes its connection.
func (c *Client) Close() {
	c.hub.unregister(c)
	c.shutdown()
}

func (c *Client) shutdown() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

// writePump serializes all writes to the connection: queued events and
// keepalive pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case env := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.hub.opts.WriteTimeout))
			if err := c.conn.WriteJSON(env); err != nil {
				c.Close()
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.hub.opts.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}
		case <-c.done:
			return
		}
	}
}
