package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"
)

// Message is the wire envelope for every event in both directions.
type Message struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// connection wraps one websocket link. Writes are serialized by the
// connection's own lock; gorilla conns do not support concurrent writers.
type connection struct {
	id   string
	sock *websocket.Conn

	writeMu sync.Mutex
}

func (that *connection) send(action string, payload any) error {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	that.writeMu.Lock()
	defer that.writeMu.Unlock()

	return that.sock.WriteJSON(Message{Action: action, Payload: payloadJSON})
}

// Hub tracks live connections and their room subscriptions, and implements
// the coordinator's relay: unicast to one connection, broadcast to a group.
type Hub struct {
	logger *slog.Logger

	mu          sync.RWMutex
	connections map[string]*connection
	groups      map[string]map[string]struct{}
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger:      logger,
		connections: make(map[string]*connection),
		groups:      make(map[string]map[string]struct{}),
	}
}

func (that *Hub) add(conn *connection) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.connections[conn.id] = conn
}

// remove forgets the connection and drops it from every group.
func (that *Hub) remove(connectionID string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	delete(that.connections, connectionID)
	for code, members := range that.groups {
		delete(members, connectionID)
		if len(members) == 0 {
			delete(that.groups, code)
		}
	}
}

// Unicast sends an event to one connection. A missing or broken connection
// is logged, never fatal.
func (that *Hub) Unicast(connectionID, event string, payload any) {
	that.mu.RLock()
	conn, ok := that.connections[connectionID]
	that.mu.RUnlock()

	if !ok {
		that.logger.Debug("unicast to unknown connection", "connectionID", connectionID, "event", event)
		return
	}

	if err := conn.send(event, payload); err != nil {
		that.logger.Error("failed to send event", "connectionID", connectionID, "event", event, "error", err)
	}
}

// Broadcast sends an event to every connection subscribed to a room code.
func (that *Hub) Broadcast(roomCode, event string, payload any) {
	that.mu.RLock()
	members := make([]*connection, 0, len(that.groups[roomCode]))
	for id := range that.groups[roomCode] {
		if conn, ok := that.connections[id]; ok {
			members = append(members, conn)
		}
	}
	that.mu.RUnlock()

	for _, conn := range members {
		if err := conn.send(event, payload); err != nil {
			that.logger.Error("failed to send event", "connectionID", conn.id, "event", event, "error", err)
		}
	}
}

// JoinGroup subscribes a connection to a room code.
func (that *Hub) JoinGroup(connectionID, roomCode string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	members, ok := that.groups[roomCode]
	if !ok {
		members = make(map[string]struct{})
		that.groups[roomCode] = members
	}

	members[connectionID] = struct{}{}
}

// LeaveGroup unsubscribes a connection from a room code.
func (that *Hub) LeaveGroup(connectionID, roomCode string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if members, ok := that.groups[roomCode]; ok {
		delete(members, connectionID)
		if len(members) == 0 {
			delete(that.groups, roomCode)
		}
	}
}
