package service_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cwrk-planet/meet-service/internal/bus"
	"github.com/cwrk-planet/meet-service/internal/domain"
	"github.com/cwrk-planet/meet-service/internal/protocol"
	"github.com/cwrk-planet/meet-service/internal/security"
	"github.com/cwrk-planet/meet-service/internal/service"
	"github.com/cwrk-planet/meet-service/internal/sqlite"
	"github.com/cwrk-planet/meet-service/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	db    *sqlite.DB
	auth  *service.AuthService
	rooms *service.RoomService
	chat  *service.ChatService
	alice domain.User
	bob   domain.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	db, err := sqlite.Open(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	f := &fixture{
		db:    db,
		auth:  service.NewAuthService(db.Users(), nil),
		rooms: service.NewRoomService(db.Rooms()),
		chat:  service.NewChatService(db.Messages()),
	}
	users, err := f.auth.Seed(ctx, []service.SeedUser{
		{ID: 1, Name: "Alice", AvatarURL: "a.png", Token: "alice-token"},
		{ID: 2, Name: "Bob", AvatarURL: "b.png", Token: "bob-token"},
	})
	require.NoError(t, err)
	f.alice, f.bob = users[0], users[1]

	return f
}

type brokenUsers struct{ service.UserStore }

func (brokenUsers) ByTokenHash(context.Context, string) (domain.User, error) {
	return domain.User{}, errors.New("connection reset")
}

func TestAuthService_TokenMode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u, err := f.auth.ResolveCaller(ctx, "alice-token")
	require.NoError(t, err)
	assert.Equal(t, protocol.Participant{Name: "Alice", AvatarURL: "a.png"}, u.Participant())

	for _, cred := range []string{"", "   ", "mallory-token"} {
		_, err := f.auth.ResolveCaller(ctx, cred)
		assert.ErrorIs(t, err, errs.ErrUnauthorized, "credential %q", cred)
	}

	_, err = service.NewAuthService(brokenUsers{}, nil).ResolveCaller(ctx, "alice-token")
	assert.ErrorIs(t, err, errs.ErrUpstream)
}

func TestAuthService_JWTMode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sessions := security.NewSessionJWT("secret", "cwrk-planet", "meet", 0)
	auth := service.NewAuthService(f.db.Users(), sessions)

	tok, err := sessions.Sign(f.bob.ID, time.Hour)
	require.NoError(t, err)
	u, err := auth.ResolveCaller(ctx, tok)
	require.NoError(t, err)
	assert.Equal(t, "Bob", u.Username)

	ghost, err := sessions.Sign(999, time.Hour)
	require.NoError(t, err)
	_, err = auth.ResolveCaller(ctx, ghost)
	assert.ErrorIs(t, err, errs.ErrUnauthorized)

	_, err = auth.ResolveCaller(ctx, "bob-token")
	assert.ErrorIs(t, err, errs.ErrUnauthorized, "opaque tokens are not accepted in jwt mode")
}

func TestRoomService(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id, err := f.rooms.EnsureRoom(ctx, "  sprint 42 ", f.alice.ID)
	require.NoError(t, err)
	again, err := f.rooms.EnsureRoom(ctx, "sprint 42", f.bob.ID)
	require.NoError(t, err)
	assert.Equal(t, id, again, "existing room id is returned for a taken name")

	_, err = f.rooms.EnsureRoom(ctx, " ", f.alice.ID)
	assert.ErrorIs(t, err, errs.ErrBadRequest)
	_, err = f.rooms.EnsureRoom(ctx, strings.Repeat("x", 101), f.alice.ID)
	assert.ErrorIs(t, err, errs.ErrBadRequest)

	info, err := f.rooms.Info(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.RoomInfo{Name: "sprint 42", OwnerID: f.alice.ID}, info)

	_, err = f.rooms.Info(ctx, id+100)
	assert.ErrorIs(t, err, domain.ErrRoomNotFound)
	assert.ErrorIs(t, err, errs.ErrNotFound)

	_, err = f.rooms.RecordParticipant(ctx, id, f.bob.ID)
	require.NoError(t, err)
	parts, err := f.rooms.RecordParticipant(ctx, id, f.bob.ID)
	require.NoError(t, err)
	assert.Equal(t, []protocol.Participant{{Name: "Bob", AvatarURL: "b.png"}}, parts)

	list, err := f.rooms.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 1, list[0].Participants)
}

func TestChatService_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	room, err := f.rooms.EnsureRoom(ctx, "chat", f.alice.ID)
	require.NoError(t, err)

	_, err = f.chat.Save(ctx, room, f.alice.ID, "   ")
	assert.ErrorIs(t, err, errs.ErrBadRequest)

	msg, err := f.chat.Save(ctx, room, f.alice.ID, "  hi  ")
	require.NoError(t, err)
	assert.Equal(t, "hi", msg.Text)

	hist, err := f.chat.History(ctx, room, 0)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, "Alice", hist[0].Username)
}

type recorder struct {
	mu     sync.Mutex
	events []protocol.Event
}

func (r *recorder) handle(ev protocol.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) got() []protocol.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]protocol.Event(nil), r.events...)
}

func TestRelay_Send(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	room, err := f.rooms.EnsureRoom(ctx, "planning", f.alice.ID)
	require.NoError(t, err)

	reg := bus.NewRegistry()
	defer reg.Close()
	var rec recorder
	sub := reg.Open(room)
	defer sub.Close()
	sub.Subscribe(rec.handle)

	relay := service.NewRelay(reg, f.chat, f.rooms)

	ev, err := relay.Send(ctx, f.alice, protocol.SendRequest{Kind: protocol.KindVote, RoomID: room, Result: true})
	require.NoError(t, err)
	assert.Equal(t, protocol.VoteEvent{Result: true, From: f.alice.Participant()}, ev)

	ev, err = relay.Send(ctx, f.bob, protocol.SendRequest{Kind: protocol.KindText, RoomID: room, Message: "ship it"})
	require.NoError(t, err)
	text, ok := ev.(protocol.TextEvent)
	require.True(t, ok)
	assert.Equal(t, "ship it", text.Message)
	assert.False(t, text.CreatedAt.IsZero())

	hist, err := f.chat.History(ctx, room, 10)
	require.NoError(t, err)
	require.Len(t, hist, 1, "text is persisted before publish")
	assert.Equal(t, hist[0].CreatedAt, text.CreatedAt)

	_, err = relay.Send(ctx, f.bob, protocol.SendRequest{Kind: protocol.KindInitialize, RoomID: room})
	require.NoError(t, err, "anyone may reset votes by default")

	got := rec.got()
	require.Len(t, got, 3)
	assert.Equal(t, protocol.KindVote, got[0].Kind())
	assert.Equal(t, protocol.KindText, got[1].Kind())
	assert.Equal(t, protocol.InitializeEvent{}, got[2])
	assert.Equal(t, 0, reg.Subscribers(room+1))
}

func TestRelay_RejectsBeforePublishing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	room, err := f.rooms.EnsureRoom(ctx, "planning", f.alice.ID)
	require.NoError(t, err)

	reg := bus.NewRegistry()
	var rec recorder
	reg.Open(room).Subscribe(rec.handle)

	relay := service.NewRelay(reg, f.chat, f.rooms, service.WithOwnerOnlyInitialize(true))

	_, err = relay.Send(ctx, f.bob, protocol.SendRequest{Kind: protocol.KindInitialize, RoomID: room})
	assert.ErrorIs(t, err, errs.ErrForbidden)

	_, err = relay.Send(ctx, f.alice, protocol.SendRequest{Kind: "dance", RoomID: room})
	assert.ErrorIs(t, err, errs.ErrBadRequest)

	_, err = relay.Send(ctx, f.alice, protocol.SendRequest{Kind: protocol.KindInitialize, RoomID: room + 50})
	assert.ErrorIs(t, err, errs.ErrNotFound)

	assert.Empty(t, rec.got())

	_, err = relay.Send(ctx, f.alice, protocol.SendRequest{Kind: protocol.KindInitialize, RoomID: room})
	require.NoError(t, err)
	assert.Len(t, rec.got(), 1)
}
