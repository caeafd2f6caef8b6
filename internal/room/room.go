// internal/room/room.go
package room

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// DefaultBuffer is the number of frames a connection can queue before
// further writes are dropped.
const DefaultBuffer = 32

// Connection is a single socket's outbound queue. Frames are drained by the
// transport's write goroutine.
type Connection struct {
	ID      string
	OutChan chan []byte

	cancel    func()
	done      chan struct{}
	closeOnce sync.Once
	logger    *logrus.Logger
}

// NewConnection creates a connection with a queue of buffer frames. cancel,
// if set, is called once on Close.
func NewConnection(id string, buffer int, cancel func(), logger *logrus.Logger) *Connection {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Connection{
		ID:      id,
		OutChan: make(chan []byte, buffer),
		cancel:  cancel,
		done:    make(chan struct{}),
		logger:  logger,
	}
}

// Write queues frame without blocking. It reports false when the queue is
// full or the connection is closed; the frame is dropped in both cases.
func (c *Connection) Write(frame []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.OutChan <- frame:
		return true
	default:
		c.logger.WithField("conn", c.ID).Warnf("outbound queue full, dropped %d byte frame", len(frame))
		return false
	}
}

// Done is closed once the connection is closed.
func (c *Connection) Done() <-chan struct{} {
	return c.done
}

// Close stops accepting frames and cancels the connection's context. It is
// safe to call more than once. OutChan is never closed.
func (c *Connection) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.cancel != nil {
			c.cancel()
		}
	})
}

// Hub groups connections into rooms keyed by match code. Within a room each
// connection is keyed by the player it carries.
type Hub struct {
	mu     sync.Mutex
	rooms  map[string]map[string]*Connection
	logger *logrus.Logger
}

// NewHub returns an empty hub.
func NewHub(logger *logrus.Logger) *Hub {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Hub{
		rooms:  make(map[string]map[string]*Connection),
		logger: logger,
	}
}

// Join adds c to the room code as member, replacing any earlier connection
// of the same member.
func (h *Hub) Join(code, member string, c *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.rooms[code]
	if !ok {
		r = make(map[string]*Connection)
		h.rooms[code] = r
	}
	r[member] = c
}

// Leave removes member from room code if c is still its connection. A room
// left empty is deleted; the return value reports whether that happened.
func (h *Hub) Leave(code, member string, c *Connection) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.rooms[code]
	if !ok {
		return false
	}
	if r[member] == c {
		delete(r, member)
	}
	if len(r) > 0 {
		return false
	}
	delete(h.rooms, code)
	h.logger.WithField("match", code).Warn("all players have left, room deleted")
	return true
}

// Broadcast queues frame on every connection of room code and returns how
// many accepted it.
func (h *Hub) Broadcast(code string, frame []byte) int {
	n := 0
	for _, c := range h.Connections(code) {
		if c.Write(frame) {
			n++
		}
	}
	return n
}

// Connections returns the connections currently in room code.
func (h *Hub) Connections(code string) []*Connection {
	h.mu.Lock()
	defer h.mu.Unlock()
	r := h.rooms[code]
	out := make([]*Connection, 0, len(r))
	for _, c := range r {
		out = append(out, c)
	}
	return out
}

// Remove drops room code entirely and returns the connections it held.
func (h *Hub) Remove(code string) []*Connection {
	h.mu.Lock()
	defer h.mu.Unlock()
	r := h.rooms[code]
	delete(h.rooms, code)
	out := make([]*Connection, 0, len(r))
	for _, c := range r {
		out = append(out, c)
	}
	return out
}

// Size returns the number of connections in room code.
func (h *Hub) Size(code string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms[code])
}
