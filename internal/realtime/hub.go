package realtime

import (
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"nestkey/server/internal/models"
)

var ErrHubClosed = errors.New("hub is closed")

// Conn is a single subscriber connection for one user. A user may hold
// several connections at once (multiple tabs, devices).
type Conn struct {
	userID string
	events chan models.Event
}

// Events returns the channel delivering this connection's events.
func (c *Conn) Events() <-chan models.Event {
	return c.events
}

// Hub routes realtime events to registered user connections. Delivery is
// best effort: a connection that cannot keep up has events dropped rather
// than blocking the publisher.
type Hub struct {
	mu         sync.RWMutex
	conns      map[string][]*Conn
	closed     bool
	bufferSize int
	logger     *logrus.Logger
}

func NewHub(bufferSize int, logger *logrus.Logger) *Hub {
	return &Hub{
		conns:      make(map[string][]*Conn),
		bufferSize: bufferSize,
		logger:     logger,
	}
}

// Register adds a connection for the given user.
func (h *Hub) Register(userID string) (*Conn, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrHubClosed
	}

	conn := &Conn{
		userID: userID,
		events: make(chan models.Event, h.bufferSize),
	}
	h.conns[userID] = append(h.conns[userID], conn)
	h.logger.WithField("user_id", userID).Debug("Registered realtime connection")
	return conn, nil
}

// Unregister removes a connection and closes its event channel.
func (h *Hub) Unregister(conn *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns := h.conns[conn.userID]
	for i, c := range conns {
		if c == conn {
			h.conns[conn.userID] = append(conns[:i], conns[i+1:]...)
			close(conn.events)
			break
		}
	}
	if len(h.conns[conn.userID]) == 0 {
		delete(h.conns, conn.userID)
	}
}

// Publish delivers an event to all of one user's connections. Events to
// offline users are silently dropped; the persisted notification record is
// the durable copy.
func (h *Hub) Publish(userID string, event models.Event) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.closed {
		return ErrHubClosed
	}

	for _, conn := range h.conns[userID] {
		select {
		case conn.events <- event:
		default:
			h.logger.WithFields(logrus.Fields{
				"user_id": userID,
				"type":    event.Type,
			}).Warn("Dropped realtime event, connection buffer full")
		}
	}
	return nil
}

// ConnectedUsers returns the number of users with at least one connection.
func (h *Hub) ConnectedUsers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Close shuts the hub down and closes every registered connection.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	h.closed = true

	for _, conns := range h.conns {
		for _, conn := range conns {
			close(conn.events)
		}
	}
	h.conns = make(map[string][]*Conn)
	return nil
}
