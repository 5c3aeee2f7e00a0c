package registry

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/litergames/litergames-backend/internal/apperror"
	"github.com/litergames/litergames-backend/internal/entity"
)

func TestRoomRegistry_Create(t *testing.T) {
	// Given: an empty registry
	rooms := NewRoomRegistry()

	// When: creating a room
	room := rooms.Create()

	// Then: the code is 6 uppercase alphanumerics and the room is fresh
	assert.Regexp(t, regexp.MustCompile(`^[A-Z0-9]{6}$`), room.Code)
	players, state := room.Roster()
	assert.Empty(t, players)
	assert.Equal(t, entity.StateWaiting, state)
	game := room.GameSnapshot()
	assert.Equal(t, entity.PlayerX, game.Turn)
	assert.Empty(t, game.Winner)
}

func TestRoomRegistry_Get(t *testing.T) {
	t.Run("Round-trips a created room", func(t *testing.T) {
		// Given: a created room
		rooms := NewRoomRegistry()
		created := rooms.Create()

		// When: getting it by code
		room, err := rooms.Get(created.Code)

		// Then: the same room comes back
		require.NoError(t, err)
		assert.Same(t, created, room)
	})

	t.Run("Lookups are case-insensitive", func(t *testing.T) {
		// Given: a created room
		rooms := NewRoomRegistry()
		created := rooms.Create()

		// When: getting it with a lowercased code
		room, err := rooms.Get(strings.ToLower(created.Code))

		// Then: the same room comes back
		require.NoError(t, err)
		assert.Same(t, created, room)
	})

	t.Run("Unknown code returns ErrRoomNotFound", func(t *testing.T) {
		// Given: an empty registry
		rooms := NewRoomRegistry()

		// When: getting a code that was never created
		_, err := rooms.Get("NOPE42")

		// Then: the lookup fails
		require.ErrorIs(t, err, apperror.ErrRoomNotFound)
	})
}

func TestRoomRegistry_DeleteIfEmpty(t *testing.T) {
	t.Run("Deletes a room with no players", func(t *testing.T) {
		// Given: an empty room
		rooms := NewRoomRegistry()
		created := rooms.Create()

		// When: running cleanup
		deleted := rooms.DeleteIfEmpty(created.Code)

		// Then: the room is gone
		assert.True(t, deleted)
		_, err := rooms.Get(created.Code)
		require.ErrorIs(t, err, apperror.ErrRoomNotFound)
	})

	t.Run("Deleted room rejects a join through a stale handle", func(t *testing.T) {
		// Given: a handle resolved before the room was cleaned up
		rooms := NewRoomRegistry()
		created := rooms.Create()
		stale, err := rooms.Get(created.Code)
		require.NoError(t, err)
		require.True(t, rooms.DeleteIfEmpty(created.Code))

		// When: joining through the stale handle
		_, joinErr := stale.Join(&entity.User{ID: "u1", Username: "bob"}, "conn-1")

		// Then: the join fails and no roster entry is left behind
		require.ErrorIs(t, joinErr, apperror.ErrRoomNotFound)
		players, _ := stale.Roster()
		assert.Empty(t, players)
	})

	t.Run("Keeps a room that still has players", func(t *testing.T) {
		// Given: a room with one player
		rooms := NewRoomRegistry()
		created := rooms.Create()
		created.Join(&entity.User{ID: "u1", Username: "alice"}, "conn-1")

		// When: running cleanup
		deleted := rooms.DeleteIfEmpty(created.Code)

		// Then: the room survives
		assert.False(t, deleted)
		_, err := rooms.Get(created.Code)
		require.NoError(t, err)
	})
}
