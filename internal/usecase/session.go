package usecase

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/litergames/litergames-backend/internal/entity"
	"github.com/litergames/litergames-backend/internal/registry"
)

const (
	EventRoomCreated = "room:created"
	EventRoomJoined  = "room:joined"
	EventRoomUpdate  = "room:update"
	EventGameUpdate  = "game:update"
	EventChatReceive = "chat:receive"
	EventChatHistory = "chat:history"
	EventVoiceSignal = "voice:signal"
)

type presenceRegistry interface {
	Announce(connectionID string, user *entity.User)
	Lookup(connectionID string) (registry.Presence, error)
	SetRoom(connectionID, roomCode string)
	ClearRoom(connectionID string)
	Remove(connectionID string)
}

type roomRegistry interface {
	Create() *entity.Room
	Get(code string) (*entity.Room, error)
	DeleteIfEmpty(code string) bool
}

// Relay is the transport-side publish primitive: unicast to one connection,
// broadcast to every connection subscribed to a room code. The coordinator
// never talks to the transport except through it.
type Relay interface {
	Unicast(connectionID, event string, payload any)
	Broadcast(roomCode, event string, payload any)
	JoinGroup(connectionID, roomCode string)
	LeaveGroup(connectionID, roomCode string)
}

// RoomPayload carries a room code in room:created and room:joined replies.
type RoomPayload struct {
	RoomCode string `json:"roomCode"`
}

// ChatHistory is the chat:history payload sent to a joiner.
type ChatHistory struct {
	Messages []entity.ChatMessage `json:"messages"`
}

// RosterUpdate is the room:update payload.
type RosterUpdate struct {
	Players []entity.Player `json:"players"`
	State   string          `json:"state"`
}

// VoiceSignal is the relayed voice:signal payload. Signal is an opaque blob,
// routed but never parsed.
type VoiceSignal struct {
	FromUserID       string          `json:"fromUserId"`
	FromConnectionID string          `json:"fromConnectionId"`
	Signal           json.RawMessage `json:"signal"`
}

// SessionManager validates connection-scoped events against the presence and
// room registries, mutates room state, and decides what gets broadcast to
// whom. Registries are injected so it can be tested with in-memory fakes.
type SessionManager struct {
	logger    *slog.Logger
	presences presenceRegistry
	rooms     roomRegistry
	relay     Relay
}

func NewSessionManager(logger *slog.Logger, presences presenceRegistry, rooms roomRegistry, relay Relay) *SessionManager {
	return &SessionManager{
		logger:    logger,
		presences: presences,
		rooms:     rooms,
		relay:     relay,
	}
}

// Announce registers the identity for a connection. Upsert, no broadcast.
func (that *SessionManager) Announce(connectionID string, user *entity.User) {
	log := that.logger.With("method", "Announce")

	that.presences.Announce(connectionID, user)

	log.Info("user announced", "username", user.Username, "connectionID", connectionID)
}

// CreateRoom creates an empty room and replies with its code to the caller
// only. The creator joins separately.
func (that *SessionManager) CreateRoom(connectionID string) error {
	log := that.logger.With("method", "CreateRoom")

	presence, err := that.presences.Lookup(connectionID)
	if err != nil {
		return fmt.Errorf("failed to look up presence: %w", err)
	}

	room := that.rooms.Create()
	that.relay.Unicast(connectionID, EventRoomCreated, RoomPayload{RoomCode: room.Code})

	log.Info("room created", "roomCode", room.Code, "username", presence.User.Username)

	return nil
}

// JoinRoom adds the connection's identity to a room. A fresh join appends a
// roster entry and a system chat message; rejoining with the same identity
// just updates the connection ID in place, with no second system message.
func (that *SessionManager) JoinRoom(connectionID, code string) error {
	log := that.logger.With("method", "JoinRoom")

	presence, err := that.presences.Lookup(connectionID)
	if err != nil {
		return fmt.Errorf("failed to look up presence: %w", err)
	}

	var (
		room     *entity.Room
		rejoined bool
	)
	for {
		room, err = that.rooms.Get(code)
		if err != nil {
			return fmt.Errorf("failed to get room %q: %w", code, err)
		}

		rejoined, err = room.Join(presence.User, connectionID)
		if err == nil {
			break
		}
		// the room was closed between lookup and join; resolve the code again
	}

	that.presences.SetRoom(connectionID, room.Code)

	if !rejoined {
		msg := newSystemMessage(presence.User.Username + " joined the room.")
		room.AppendMessage(msg)
		// broadcast before the joiner subscribes; they receive the join
		// notice through chat:history instead
		that.relay.Broadcast(room.Code, EventChatReceive, msg)
	}

	that.relay.JoinGroup(connectionID, room.Code)
	that.relay.Unicast(connectionID, EventRoomJoined, RoomPayload{RoomCode: room.Code})

	players, state := room.Roster()
	that.relay.Broadcast(room.Code, EventRoomUpdate, RosterUpdate{Players: players, State: state})

	that.relay.Unicast(connectionID, EventGameUpdate, room.GameSnapshot())
	that.relay.Unicast(connectionID, EventChatHistory, ChatHistory{Messages: room.History()})

	log.Info("user joined room", "roomCode", room.Code, "username", presence.User.Username, "rejoined", rejoined)

	return nil
}

// LeaveRoom removes the connection's identity from its current room. A
// connection with no room is a no-op.
func (that *SessionManager) LeaveRoom(connectionID string) error {
	presence, err := that.presences.Lookup(connectionID)
	if err != nil {
		return fmt.Errorf("failed to look up presence: %w", err)
	}

	that.leave(connectionID, presence)

	return nil
}

// MakeTurn applies a move to the room's game. Wrong turn, occupied cell,
// out-of-range index and finished game are all benign no-ops: the engine
// rejects them and nothing is broadcast.
func (that *SessionManager) MakeTurn(connectionID, code string, cell int) error {
	log := that.logger.With("method", "MakeTurn")

	presence, err := that.presences.Lookup(connectionID)
	if err != nil {
		return fmt.Errorf("failed to look up presence: %w", err)
	}

	room, err := that.rooms.Get(code)
	if err != nil {
		log.Debug("move for unknown room dropped", "roomCode", code)
		return nil
	}

	game, err := room.MakeTurn(presence.User.ID, cell)
	if err != nil {
		log.Debug("move rejected", "roomCode", room.Code, "cell", cell, "reason", err)
		return nil
	}

	that.relay.Broadcast(room.Code, EventGameUpdate, game)

	log.Info("turn made", "roomCode", room.Code, "username", presence.User.Username, "cell", cell)

	return nil
}

// ResetGame replaces the room's game with a fresh one, X to move.
func (that *SessionManager) ResetGame(connectionID, code string) error {
	log := that.logger.With("method", "ResetGame")

	presence, err := that.presences.Lookup(connectionID)
	if err != nil {
		return fmt.Errorf("failed to look up presence: %w", err)
	}

	room, err := that.rooms.Get(code)
	if err != nil {
		log.Debug("reset for unknown room dropped", "roomCode", code)
		return nil
	}

	game := room.ResetGame()
	that.relay.Broadcast(room.Code, EventGameUpdate, game)

	log.Info("game reset", "roomCode", room.Code, "username", presence.User.Username)

	return nil
}

// SendChat appends a message to the current room's log and broadcasts it.
func (that *SessionManager) SendChat(connectionID, text string) error {
	presence, err := that.presences.Lookup(connectionID)
	if err != nil {
		return fmt.Errorf("failed to look up presence: %w", err)
	}

	if presence.RoomCode == "" {
		return nil
	}

	room, err := that.rooms.Get(presence.RoomCode)
	if err != nil {
		return nil
	}

	msg := newChatMessage(presence.User.Username, text)
	room.AppendMessage(msg)
	that.relay.Broadcast(room.Code, EventChatReceive, msg)

	return nil
}

// RelaySignal forwards an opaque signaling blob to the target connection,
// tagged with the sender's identity. Stateless; a sender without a presence
// still gets relayed, with an empty user ID.
func (that *SessionManager) RelaySignal(connectionID, targetConnectionID string, signal json.RawMessage) {
	var fromUserID string
	if presence, err := that.presences.Lookup(connectionID); err == nil {
		fromUserID = presence.User.ID
	}

	that.relay.Unicast(targetConnectionID, EventVoiceSignal, VoiceSignal{
		FromUserID:       fromUserID,
		FromConnectionID: connectionID,
		Signal:           signal,
	})
}

// Disconnect runs the leave-room cleanup for a dropped connection and then
// deletes its presence. Cleanup runs before deletion so the roster never
// keeps a stale entry.
func (that *SessionManager) Disconnect(connectionID string) {
	log := that.logger.With("method", "Disconnect")

	if presence, err := that.presences.Lookup(connectionID); err == nil {
		that.leave(connectionID, presence)
	}

	that.presences.Remove(connectionID)

	log.Info("connection closed", "connectionID", connectionID)
}

func (that *SessionManager) leave(connectionID string, presence registry.Presence) {
	log := that.logger.With("method", "leave")

	if presence.RoomCode == "" {
		return
	}

	room, err := that.rooms.Get(presence.RoomCode)
	if err != nil {
		that.presences.ClearRoom(connectionID)
		that.relay.LeaveGroup(connectionID, presence.RoomCode)
		return
	}

	removed, empty := room.Remove(presence.User.ID)
	that.presences.ClearRoom(connectionID)
	that.relay.LeaveGroup(connectionID, room.Code)

	if removed != nil {
		players, state := room.Roster()
		that.relay.Broadcast(room.Code, EventRoomUpdate, RosterUpdate{Players: players, State: state})
		that.relay.Broadcast(room.Code, EventChatReceive, newSystemMessage(removed.Username+" left the room."))
	}

	if empty {
		if that.rooms.DeleteIfEmpty(room.Code) {
			log.Info("room deleted", "roomCode", room.Code)
		}
	}

	log.Info("user left room", "roomCode", room.Code, "username", presence.User.Username)
}

func newChatMessage(from, text string) *entity.ChatMessage {
	return &entity.ChatMessage{
		ID:        uuid.NewString(),
		From:      from,
		Text:      text,
		Timestamp: time.Now().UTC(),
	}
}

func newSystemMessage(text string) *entity.ChatMessage {
	msg := newChatMessage(entity.SystemSender, text)
	msg.System = true
	return msg
}
