package entity

import (
	"sync"

	"github.com/litergames/litergames-backend/internal/apperror"
)

const (
	StateWaiting = "waiting"
	StatePlaying = "playing"
)

// Room groups the players of one game instance, keyed by a short public
// code. All mutations of a room (roster, chat log, game) go through its
// methods and are serialized by the room's own lock, so two near-simultaneous
// moves can never both pass the empty-cell check.
type Room struct {
	mu sync.Mutex

	Code     string
	Players  []*Player
	Messages []*ChatMessage
	State    string
	Game     *Game

	// closed is set under the room lock when the registry drops the room,
	// so a join racing the last leave cannot land on a deleted room.
	closed bool
}

func NewRoom(code string) *Room {
	return &Room{
		Code:  code,
		State: StateWaiting,
		Game:  NewGame(),
	}
}

// Join adds the user to the roster, or updates the connection ID in place
// when the same identity is already present (the reconnection path).
// Reports whether the identity was already a player. Returns
// ErrRoomNotFound when the registry has already dropped the room.
func (that *Room) Join(user *User, connectionID string) (bool, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.closed {
		return false, apperror.ErrRoomNotFound
	}

	for _, player := range that.Players {
		if player.ID == user.ID {
			player.ConnectionID = connectionID
			return true, nil
		}
	}

	that.Players = append(that.Players, &Player{
		ID:           user.ID,
		Username:     user.Username,
		Avatar:       user.Avatar,
		ConnectionID: connectionID,
	})

	if len(that.Players) >= 2 {
		that.State = StatePlaying
	}

	return false, nil
}

// CloseIfEmpty marks the room closed when its roster is empty, rejecting
// every later Join. Reports whether the room was closed.
func (that *Room) CloseIfEmpty() bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	if len(that.Players) > 0 {
		return false
	}

	that.closed = true
	return true
}

// Remove drops the player with the given identity from the roster. Reports
// the removed entry and whether the room is now empty.
func (that *Room) Remove(userID string) (*Player, bool) {
	that.mu.Lock()
	defer that.mu.Unlock()

	for i, player := range that.Players {
		if player.ID != userID {
			continue
		}

		that.Players = append(that.Players[:i], that.Players[i+1:]...)
		if len(that.Players) < 2 {
			that.State = StateWaiting
		}

		return player, len(that.Players) == 0
	}

	return nil, len(that.Players) == 0
}

// AppendMessage adds a chat message to the room's append-only log.
func (that *Room) AppendMessage(msg *ChatMessage) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.Messages = append(that.Messages, msg)
}

// MakeTurn applies a move for the given identity. The player's mark is
// derived from roster position: the first joiner plays X, everyone after
// plays O. That leaves any third joiner sharing O — a known limitation of
// the two-player protocol, kept rather than guessed around.
func (that *Room) MakeTurn(userID string, cell int) (*Game, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	idx := -1
	for i, player := range that.Players {
		if player.ID == userID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return nil, apperror.ErrNotInRoom
	}

	mark := PlayerO
	if idx == 0 {
		mark = PlayerX
	}

	if err := that.Game.MakeTurn(mark, cell); err != nil {
		return nil, err
	}

	snapshot := *that.Game
	return &snapshot, nil
}

// ResetGame replaces the game with a fresh one and returns a snapshot.
func (that *Room) ResetGame() *Game {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.Game.Reset()

	snapshot := *that.Game
	return &snapshot
}

// Roster returns a copy of the player list together with the room state.
func (that *Room) Roster() ([]Player, string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	players := make([]Player, 0, len(that.Players))
	for _, player := range that.Players {
		players = append(players, *player)
	}

	return players, that.State
}

// GameSnapshot returns a copy of the current game state.
func (that *Room) GameSnapshot() *Game {
	that.mu.Lock()
	defer that.mu.Unlock()

	snapshot := *that.Game
	return &snapshot
}

// History returns a copy of the chat log in append order.
func (that *Room) History() []ChatMessage {
	that.mu.Lock()
	defer that.mu.Unlock()

	messages := make([]ChatMessage, 0, len(that.Messages))
	for _, msg := range that.Messages {
		messages = append(messages, *msg)
	}

	return messages
}
