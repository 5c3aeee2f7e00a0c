package registry

import (
	"math/rand"
	"strings"
	"sync"

	"github.com/litergames/litergames-backend/internal/apperror"
	"github.com/litergames/litergames-backend/internal/entity"
)

const (
	roomCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	roomCodeLength   = 6
)

// RoomRegistry maps room codes to live rooms. Codes are matched
// case-insensitively. Rooms are only cleaned up when their last player
// leaves; there is no time-based garbage collection.
type RoomRegistry struct {
	mu    sync.RWMutex
	rooms map[string]*entity.Room
}

func NewRoomRegistry() *RoomRegistry {
	return &RoomRegistry{
		rooms: make(map[string]*entity.Room),
	}
}

// Create generates a fresh unique code and registers an empty waiting room
// with a reset game. The creator joins separately.
func (that *RoomRegistry) Create() *entity.Room {
	that.mu.Lock()
	defer that.mu.Unlock()

	code := generateRoomCode()
	for {
		if _, taken := that.rooms[code]; !taken {
			break
		}
		code = generateRoomCode()
	}

	room := entity.NewRoom(code)
	that.rooms[code] = room

	return room
}

// Get returns the room for a code, uppercasing the input first.
func (that *RoomRegistry) Get(code string) (*entity.Room, error) {
	that.mu.RLock()
	defer that.mu.RUnlock()

	room, ok := that.rooms[strings.ToUpper(code)]
	if !ok {
		return nil, apperror.ErrRoomNotFound
	}

	return room, nil
}

// DeleteIfEmpty removes the room when its roster is empty. The room is
// closed under its own lock before the mapping is dropped, so a join that
// already resolved the code cannot land on the deleted room. Reports
// whether the room was deleted.
func (that *RoomRegistry) DeleteIfEmpty(code string) bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	room, ok := that.rooms[strings.ToUpper(code)]
	if !ok {
		return false
	}

	if !room.CloseIfEmpty() {
		return false
	}

	delete(that.rooms, strings.ToUpper(code))

	return true
}

func generateRoomCode() string {
	var sb strings.Builder
	for i := 0; i < roomCodeLength; i++ {
		sb.WriteByte(roomCodeAlphabet[rand.Intn(len(roomCodeAlphabet))]) //nolint: gosec // room codes are not secrets
	}
	return sb.String()
}
