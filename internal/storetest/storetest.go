// Package storetest общие проверки для реализаций хранилищ (sqlite, postgres).
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/cwrk-planet/meet-service/internal/domain"
	"github.com/cwrk-planet/meet-service/internal/protocol"
	"github.com/cwrk-planet/meet-service/internal/security"
	"github.com/cwrk-planet/meet-service/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Stores struct {
	Users    service.UserStore
	Rooms    service.RoomStore
	Messages service.MessageStore
}

// Run ожидает пустую базу.
func Run(t *testing.T, s Stores) {
	t.Helper()
	ctx := context.Background()

	alice, err := s.Users.Upsert(ctx, domain.User{ID: 1, Username: "Alice", AvatarURL: "a.png"}, security.TokenHash("alice-token"))
	require.NoError(t, err)
	bob, err := s.Users.Upsert(ctx, domain.User{Username: "Bob", AvatarURL: "b.png"}, security.TokenHash("bob-token"))
	require.NoError(t, err)
	require.NotEqual(t, alice.ID, bob.ID)

	t.Run("users", func(t *testing.T) {
		got, err := s.Users.ByTokenHash(ctx, security.TokenHash("alice-token"))
		require.NoError(t, err)
		assert.Equal(t, "Alice", got.Username)

		got, err = s.Users.ByID(ctx, bob.ID)
		require.NoError(t, err)
		assert.Equal(t, "b.png", got.AvatarURL)

		_, err = s.Users.ByTokenHash(ctx, security.TokenHash("nope"))
		assert.ErrorIs(t, err, domain.ErrUserNotFound)

		// повторный upsert без токена не сбрасывает старый
		_, err = s.Users.Upsert(ctx, domain.User{ID: alice.ID, Username: "Alice", AvatarURL: "a2.png"}, "")
		require.NoError(t, err)
		got, err = s.Users.ByTokenHash(ctx, security.TokenHash("alice-token"))
		require.NoError(t, err)
		assert.Equal(t, "a2.png", got.AvatarURL)
	})

	var planning int64
	t.Run("rooms", func(t *testing.T) {
		planning, err = s.Rooms.Create(ctx, "planning", alice.ID)
		require.NoError(t, err)

		_, err = s.Rooms.Create(ctx, "planning", bob.ID)
		assert.ErrorIs(t, err, domain.ErrRoomExists)

		id, err := s.Rooms.IDByName(ctx, "planning")
		require.NoError(t, err)
		assert.Equal(t, planning, id)

		rm, err := s.Rooms.Get(ctx, planning)
		require.NoError(t, err)
		assert.Equal(t, alice.ID, rm.OwnerID)
		assert.Equal(t, "planning", rm.Name)

		_, err = s.Rooms.Get(ctx, planning+1000)
		assert.ErrorIs(t, err, domain.ErrRoomNotFound)
	})

	t.Run("participants", func(t *testing.T) {
		require.NoError(t, s.Rooms.AddParticipant(ctx, planning, alice.ID))
		time.Sleep(2 * time.Millisecond)
		require.NoError(t, s.Rooms.AddParticipant(ctx, planning, bob.ID))
		require.NoError(t, s.Rooms.AddParticipant(ctx, planning, alice.ID))

		got, err := s.Rooms.Participants(ctx, planning)
		require.NoError(t, err)
		assert.Equal(t, []protocol.Participant{
			{Name: "Alice", AvatarURL: "a2.png"},
			{Name: "Bob", AvatarURL: "b.png"},
		}, got)
	})

	t.Run("messages and activity", func(t *testing.T) {
		quiet, err := s.Rooms.Create(ctx, "quiet", bob.ID)
		require.NoError(t, err)

		for _, text := range []string{"one", "two", "three"} {
			m, err := s.Messages.Insert(ctx, planning, bob.ID, text)
			require.NoError(t, err)
			assert.Equal(t, "Bob", m.Username)
			assert.False(t, m.CreatedAt.IsZero())
		}

		last2, err := s.Messages.ListByRoom(ctx, planning, 2)
		require.NoError(t, err)
		require.Len(t, last2, 2)
		assert.Equal(t, "two", last2[0].Text)
		assert.Equal(t, "three", last2[1].Text)

		list, err := s.Rooms.List(ctx)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, planning, list[0].ID, "rooms with activity first")
		assert.Equal(t, "Alice", list[0].OwnerName)
		assert.Equal(t, 2, list[0].Participants)
		assert.NotNil(t, list[0].LastActivity)
		assert.Equal(t, quiet, list[1].ID)
		assert.Nil(t, list[1].LastActivity)
	})
}
