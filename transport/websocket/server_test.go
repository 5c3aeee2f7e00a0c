package websocket

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/litergames/litergames-backend/internal/registry"
	"github.com/litergames/litergames-backend/internal/usecase"
)

const readTimeout = 5 * time.Second

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	hub := NewHub(logger)
	session := usecase.NewSessionManager(logger, registry.NewPresenceRegistry(), registry.NewRoomRegistry(), hub)
	server := New(logger, hub, session)

	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)

	return ts
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"

	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })

	return conn
}

func send(t *testing.T, conn *websocket.Conn, action string, payload any) {
	t.Helper()

	payloadJSON, err := json.Marshal(payload)
	require.NoError(t, err)

	require.NoError(t, conn.WriteJSON(Message{Action: action, Payload: payloadJSON}))
}

// waitFor reads messages until one with the wanted action arrives, skipping
// everything else.
func waitFor(t *testing.T, conn *websocket.Conn, action string) json.RawMessage {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(readTimeout)))

	for {
		var message Message
		require.NoError(t, conn.ReadJSON(&message), "waiting for %q", action)
		if message.Action == action {
			return message.Payload
		}
	}
}

func announce(t *testing.T, conn *websocket.Conn, id, username string) {
	t.Helper()
	send(t, conn, "user:join", map[string]string{"id": id, "username": username, "avatar": ""})
}

type rosterPayload struct {
	Players []struct {
		ID           string `json:"id"`
		Username     string `json:"username"`
		ConnectionID string `json:"connectionId"`
	} `json:"players"`
	State string `json:"state"`
}

func TestServer_RoomLifecycle(t *testing.T) {
	ts := newTestServer(t)

	// Given: alice announces and creates a room
	alice := dial(t, ts)
	announce(t, alice, "ua", "alice")
	send(t, alice, "room:create", struct{}{})

	var created struct {
		RoomCode string `json:"roomCode"`
	}
	require.NoError(t, json.Unmarshal(waitFor(t, alice, "room:created"), &created))
	require.Len(t, created.RoomCode, 6)

	// When: alice joins her own room
	send(t, alice, "room:join", map[string]string{"roomCode": created.RoomCode})

	// Then: she gets the joined reply, the roster, the game state and history
	require.NoError(t, json.Unmarshal(waitFor(t, alice, "room:joined"), &created))

	var roster rosterPayload
	require.NoError(t, json.Unmarshal(waitFor(t, alice, "room:update"), &roster))
	require.Len(t, roster.Players, 1)
	assert.Equal(t, "ua", roster.Players[0].ID)

	waitFor(t, alice, "game:update")

	var history struct {
		Messages []struct {
			Text   string `json:"text"`
			System bool   `json:"system"`
		} `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(waitFor(t, alice, "chat:history"), &history))
	require.Len(t, history.Messages, 1)
	assert.True(t, history.Messages[0].System)

	// When: bob joins the same code, lowercased
	bob := dial(t, ts)
	announce(t, bob, "ub", "bob")
	send(t, bob, "room:join", map[string]string{"roomCode": strings.ToLower(created.RoomCode)})

	// Then: alice sees the join notice and the two-player roster
	var joinMsg struct {
		Text   string `json:"text"`
		System bool   `json:"system"`
	}
	require.NoError(t, json.Unmarshal(waitFor(t, alice, "chat:receive"), &joinMsg))
	assert.Equal(t, "bob joined the room.", joinMsg.Text)
	assert.True(t, joinMsg.System)

	require.NoError(t, json.Unmarshal(waitFor(t, alice, "room:update"), &roster))
	require.Len(t, roster.Players, 2)
	assert.Equal(t, "playing", roster.State)
	waitFor(t, bob, "chat:history")

	// When: alice moves at index 0
	send(t, alice, "game:move", map[string]any{"roomCode": created.RoomCode, "index": 0})

	// Then: both players receive the updated board, O to move
	var game struct {
		Board [9]string `json:"board"`
		Turn  string    `json:"turn"`
	}
	require.NoError(t, json.Unmarshal(waitFor(t, bob, "game:update"), &game))
	assert.Equal(t, "X", game.Board[0])
	assert.Equal(t, "O", game.Turn)
	require.NoError(t, json.Unmarshal(waitFor(t, alice, "game:update"), &game))
	assert.Equal(t, "X", game.Board[0])

	// When: bob relays a voice signal to alice's connection
	aliceConnID := roster.Players[0].ConnectionID
	send(t, bob, "voice:signal", map[string]any{
		"targetConnectionId": aliceConnID,
		"signal":             map[string]string{"type": "offer", "sdp": "v=0"},
	})

	// Then: alice receives the blob untouched with bob's identity
	var signal struct {
		FromUserID string          `json:"fromUserId"`
		Signal     json.RawMessage `json:"signal"`
	}
	require.NoError(t, json.Unmarshal(waitFor(t, alice, "voice:signal"), &signal))
	assert.Equal(t, "ub", signal.FromUserID)
	assert.JSONEq(t, `{"type":"offer","sdp":"v=0"}`, string(signal.Signal))

	// When: bob's connection drops
	require.NoError(t, bob.Close())

	// Then: alice sees the leave notice and a one-player roster
	require.NoError(t, json.Unmarshal(waitFor(t, alice, "room:update"), &roster))
	require.Len(t, roster.Players, 1)
	assert.Equal(t, "ua", roster.Players[0].ID)

	var leaveMsg struct {
		Text   string `json:"text"`
		System bool   `json:"system"`
	}
	require.NoError(t, json.Unmarshal(waitFor(t, alice, "chat:receive"), &leaveMsg))
	assert.Equal(t, "bob left the room.", leaveMsg.Text)
}

func TestServer_Errors(t *testing.T) {
	ts := newTestServer(t)

	t.Run("Join before announcing surfaces an authentication error", func(t *testing.T) {
		// Given: a connection that never announced
		conn := dial(t, ts)

		// When: creating a room
		send(t, conn, "room:create", struct{}{})

		// Then: an error event names the failure
		var errPayload struct {
			Message string `json:"message"`
		}
		require.NoError(t, json.Unmarshal(waitFor(t, conn, "error"), &errPayload))
		assert.Equal(t, "User not authenticated", errPayload.Message)
	})

	t.Run("Joining an unknown room surfaces a room error", func(t *testing.T) {
		// Given: an announced connection
		conn := dial(t, ts)
		announce(t, conn, "ux", "carol")

		// When: joining a code that does not exist
		send(t, conn, "room:join", map[string]string{"roomCode": "NOPE42"})

		// Then: an error event names the failure
		var errPayload struct {
			Message string `json:"message"`
		}
		require.NoError(t, json.Unmarshal(waitFor(t, conn, "error"), &errPayload))
		assert.Equal(t, "Room not found", errPayload.Message)
	})
}
