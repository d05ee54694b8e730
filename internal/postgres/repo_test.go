package postgres_test

import (
	"context"
	"os"
	"testing"

	"github.com/cwrk-planet/meet-service/internal/pg"
	"github.com/cwrk-planet/meet-service/internal/postgres"
	"github.com/cwrk-planet/meet-service/internal/service"
	"github.com/cwrk-planet/meet-service/internal/storetest"

	"github.com/stretchr/testify/require"
)

var (
	_ service.UserStore    = (*postgres.UserRepository)(nil)
	_ service.RoomStore    = (*postgres.RoomRepository)(nil)
	_ service.MessageStore = (*postgres.MessageRepository)(nil)
)

// Нужна пустая база: MEET_TEST_POSTGRES_DSN=postgres://... go test ./internal/postgres/
func TestStores(t *testing.T) {
	dsn := os.Getenv("MEET_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("MEET_TEST_POSTGRES_DSN is not set")
	}
	ctx := context.Background()

	pool, err := pg.NewPool(ctx, pg.Config{DSN: dsn})
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, err = pool.Exec(ctx, `DROP TABLE IF EXISTS messages, room_participants, rooms, users`)
	require.NoError(t, err)
	require.NoError(t, postgres.Migrate(ctx, pool))

	storetest.Run(t, storetest.Stores{
		Users:    postgres.NewUserRepository(pool),
		Rooms:    postgres.NewRoomRepository(pool),
		Messages: postgres.NewMessageRepository(pool),
	})
}
