// Package hub tracks the connected clients and delivers messages to one
// of them or to all of them.
package hub

import (
	"log"
	"sync"

	"github.com/iliyamo/cinema-seat-sync/internal/message"
)

// Conn is one connected client as seen by the hub.  Send must not block
// on network I/O: transports queue the frame and write it on their own
// goroutine, which lets callers deliver while holding the room lock and
// keeps every client's view in commit order.
type Conn interface {
	ID() string
	Send(frame []byte) error
}

// Hub is the registry of connections eligible for broadcast.
type Hub struct {
	mu    sync.RWMutex
	conns map[string]Conn
}

// New returns an empty hub.
func New() *Hub {
	return &Hub{conns: make(map[string]Conn)}
}

// Register adds a connection.  Registering the same id twice replaces
// the previous entry.
func (h *Hub) Register(c Conn) {
	h.mu.Lock()
	h.conns[c.ID()] = c
	h.mu.Unlock()
}

// Unregister removes a connection if it is still the registered one.
func (h *Hub) Unregister(c Conn) {
	h.mu.Lock()
	if cur, ok := h.conns[c.ID()]; ok && cur == c {
		delete(h.conns, c.ID())
	}
	h.mu.Unlock()
}

// Len returns the number of registered connections.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

func (h *Hub) snapshot() []Conn {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]Conn, 0, len(h.conns))
	for _, c := range h.conns {
		out = append(out, c)
	}
	return out
}

// Unicast encodes m and sends it to c only.
func (h *Hub) Unicast(m message.Message, c Conn) error {
	frame, err := message.Encode(m)
	if err != nil {
		log.Printf("hub: encode %s failed: %v", m.Type, err)
		return err
	}
	if err := c.Send(frame); err != nil {
		log.Printf("hub: send %s to %s failed: %v", m.Type, c.ID(), err)
		return err
	}
	return nil
}

// Broadcast encodes m once and sends it to every registered connection.
// A failing connection is logged and skipped.  It returns the number of
// connections that accepted the frame.
func (h *Hub) Broadcast(m message.Message) int {
	frame, err := message.Encode(m)
	if err != nil {
		log.Printf("hub: encode %s failed: %v", m.Type, err)
		return 0
	}
	delivered := 0
	for _, c := range h.snapshot() {
		if err := c.Send(frame); err != nil {
			log.Printf("hub: broadcast %s to %s failed: %v", m.Type, c.ID(), err)
			continue
		}
		delivered++
	}
	return delivered
}
