package registry

import (
	"sync"

	"github.com/litergames/litergames-backend/internal/apperror"
	"github.com/litergames/litergames-backend/internal/entity"
)

// Presence is the live association between one transport connection and a
// stable user identity. RoomCode is set only while the identity is a player
// of that room.
type Presence struct {
	User     *entity.User
	RoomCode string
	Ready    bool
}

// PresenceRegistry maps connection IDs to presences. It is process-wide
// shared state, guarded by its own lock.
type PresenceRegistry struct {
	mu        sync.RWMutex
	presences map[string]*Presence
}

func NewPresenceRegistry() *PresenceRegistry {
	return &PresenceRegistry{
		presences: make(map[string]*Presence),
	}
}

// Announce establishes or overwrites the presence for a connection.
// Idempotent: announcing twice just replaces the identity.
func (that *PresenceRegistry) Announce(connectionID string, user *entity.User) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.presences[connectionID] = &Presence{User: user}
}

// Lookup returns a copy of the presence for a connection, or
// apperror.ErrNotAuthenticated when the connection never announced.
func (that *PresenceRegistry) Lookup(connectionID string) (Presence, error) {
	that.mu.RLock()
	defer that.mu.RUnlock()

	presence, ok := that.presences[connectionID]
	if !ok {
		return Presence{}, apperror.ErrNotAuthenticated
	}

	return *presence, nil
}

// SetRoom records the room the connection's identity currently plays in.
func (that *PresenceRegistry) SetRoom(connectionID, roomCode string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if presence, ok := that.presences[connectionID]; ok {
		presence.RoomCode = roomCode
		presence.Ready = false
	}
}

// ClearRoom drops the room association, keeping the identity.
func (that *PresenceRegistry) ClearRoom(connectionID string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if presence, ok := that.presences[connectionID]; ok {
		presence.RoomCode = ""
	}
}

// Remove deletes the presence entry. Called on disconnect, after room-leave
// cleanup has run.
func (that *PresenceRegistry) Remove(connectionID string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	delete(that.presences, connectionID)
}
