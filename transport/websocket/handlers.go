package websocket

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/litergames/litergames-backend/internal/apperror"
	"github.com/litergames/litergames-backend/internal/entity"
)

const eventError = "error"

type userJoinPayload struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}

type roomJoinPayload struct {
	RoomCode string `json:"roomCode"`
}

type gameMovePayload struct {
	RoomCode string `json:"roomCode"`
	Index    int    `json:"index"`
}

type chatSendPayload struct {
	Text string `json:"text"`
}

type voiceSignalPayload struct {
	TargetConnectionID string          `json:"targetConnectionId"`
	Signal             json.RawMessage `json:"signal"`
}

type errorPayload struct {
	Message string `json:"message"`
}

func (that *Server) handleUserJoin(connectionID string, payload json.RawMessage) error {
	var req userJoinPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	that.session.Announce(connectionID, &entity.User{
		ID:       req.ID,
		Username: req.Username,
		Avatar:   req.Avatar,
	})

	return nil
}

func (that *Server) handleRoomCreate(connectionID string, _ json.RawMessage) error {
	return that.replyOnError(connectionID, that.session.CreateRoom(connectionID))
}

func (that *Server) handleRoomJoin(connectionID string, payload json.RawMessage) error {
	var req roomJoinPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	return that.replyOnError(connectionID, that.session.JoinRoom(connectionID, req.RoomCode))
}

func (that *Server) handleRoomLeave(connectionID string, _ json.RawMessage) error {
	return that.replyOnError(connectionID, that.session.LeaveRoom(connectionID))
}

func (that *Server) handleGameMove(connectionID string, payload json.RawMessage) error {
	var req gameMovePayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	return that.replyOnError(connectionID, that.session.MakeTurn(connectionID, req.RoomCode, req.Index))
}

func (that *Server) handleGameReset(connectionID string, payload json.RawMessage) error {
	var req roomJoinPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	return that.replyOnError(connectionID, that.session.ResetGame(connectionID, req.RoomCode))
}

func (that *Server) handleChatSend(connectionID string, payload json.RawMessage) error {
	var req chatSendPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	return that.replyOnError(connectionID, that.session.SendChat(connectionID, req.Text))
}

func (that *Server) handleVoiceSignal(connectionID string, payload json.RawMessage) error {
	var req voiceSignalPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	that.session.RelaySignal(connectionID, req.TargetConnectionID, req.Signal)

	return nil
}

// replyOnError surfaces the two caller-visible failures as an error event on
// the originating connection. Everything else propagates to the read loop
// for logging only; no error ever reaches other room members.
func (that *Server) replyOnError(connectionID string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, apperror.ErrNotAuthenticated):
		that.hub.Unicast(connectionID, eventError, errorPayload{Message: "User not authenticated"})
		return nil
	case errors.Is(err, apperror.ErrRoomNotFound):
		that.hub.Unicast(connectionID, eventError, errorPayload{Message: "Room not found"})
		return nil
	default:
		return err
	}
}
