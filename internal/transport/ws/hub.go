package ws

import (
	"encoding/json"
	"sync"

	"lessonplayer/internal/model"

	"go.uber.org/zap"
)

// Hub manages the WebSocket connections of embedding hosts, keyed by the
// learner whose player they embed. A learner may have several host tabs open.
type Hub struct {
	hosts map[string]map[*Connection]struct{}

	mu  sync.RWMutex
	log *zap.Logger

	// Channels for coordination
	register   chan *Connection
	unregister chan *Connection
	broadcast  chan *BroadcastMessage
	done       chan struct{}
	closeOnce  sync.Once
}

// Connection represents a host WebSocket connection
type Connection struct {
	StudentID string
	Send      chan []byte
	Hub       *Hub
}

// BroadcastMessage is a message queued for one learner's hosts
type BroadcastMessage struct {
	StudentID string
	Data      []byte
}

// NewHub creates a new WebSocket hub
func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	h := &Hub{
		hosts:      make(map[string]map[*Connection]struct{}),
		log:        log,
		register:   make(chan *Connection),
		unregister: make(chan *Connection),
		broadcast:  make(chan *BroadcastMessage, 256),
		done:       make(chan struct{}),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case <-h.done:
			h.mu.Lock()
			for student, conns := range h.hosts {
				for conn := range conns {
					close(conn.Send)
				}
				delete(h.hosts, student)
			}
			h.mu.Unlock()
			return

		case conn := <-h.register:
			h.mu.Lock()
			if h.hosts[conn.StudentID] == nil {
				h.hosts[conn.StudentID] = make(map[*Connection]struct{})
			}
			h.hosts[conn.StudentID][conn] = struct{}{}
			h.mu.Unlock()
			h.log.Info("Host connected", zap.String("student_id", conn.StudentID))

		case conn := <-h.unregister:
			h.mu.Lock()
			if conns, ok := h.hosts[conn.StudentID]; ok {
				if _, ok := conns[conn]; ok {
					delete(conns, conn)
					close(conn.Send)
					if len(conns) == 0 {
						delete(h.hosts, conn.StudentID)
					}
					h.log.Info("Host disconnected", zap.String("student_id", conn.StudentID))
				}
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.RLock()
			for conn := range h.hosts[msg.StudentID] {
				select {
				case conn.Send <- msg.Data:
				default:
					// Drop message if buffer full
					h.log.Warn("Host send buffer full, dropping message", zap.String("student_id", msg.StudentID))
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Register adds a connection
func (h *Hub) Register(conn *Connection) {
	select {
	case h.register <- conn:
	case <-h.done:
	}
}

// Unregister removes a connection
func (h *Hub) Unregister(conn *Connection) {
	select {
	case h.unregister <- conn:
	case <-h.done:
	}
}

// Connected reports whether any host is listening for studentID
func (h *Hub) Connected(studentID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.hosts[studentID]) > 0
}

// Post queues msg for the learner's hosts (implements service.HostChannel).
// Messages from one caller reach a host in the order they were posted.
func (h *Hub) Post(studentID string, msg model.HostMessage) bool {
	if !h.Connected(studentID) {
		h.log.Debug("No host connected, message dropped",
			zap.String("student_id", studentID),
			zap.String("type", string(msg.Type)),
		)
		return false
	}

	data, err := json.Marshal(msg)
	if err != nil {
		h.log.Error("Failed to encode host message", zap.String("type", string(msg.Type)), zap.Error(err))
		return false
	}

	select {
	case h.broadcast <- &BroadcastMessage{StudentID: studentID, Data: data}:
		return true
	case <-h.done:
		return false
	}
}

// Close disconnects every host and stops the run loop
func (h *Hub) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}
