package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/cwrk-planet/meet-service/internal/protocol"
	"github.com/cwrk-planet/meet-service/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chanStream поток из канала для тестов.
type chanStream struct {
	ch     chan any
	closed chan struct{}
	once   sync.Once
}

func newChanStream() *chanStream {
	return &chanStream{ch: make(chan any, 16), closed: make(chan struct{})}
}

func (s *chanStream) Next() (protocol.Event, error) {
	select {
	case v := <-s.ch:
		if err, ok := v.(error); ok {
			return nil, err
		}
		return v.(protocol.Event), nil
	case <-s.closed:
		return nil, io.ErrClosedPipe
	}
}

func (s *chanStream) Close() error {
	s.once.Do(func() { close(s.closed) })
	return nil
}

type sendRecorder struct {
	mu   sync.Mutex
	reqs []protocol.SendRequest
}

func (s *sendRecorder) Send(_ context.Context, req protocol.SendRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reqs = append(s.reqs, req)
	return nil
}

func TestReconciler_HooksAndSnapshot(t *testing.T) {
	rc := NewReconciler(7, []protocol.Participant{alice, bob})

	var renders [][]Vote
	var seen []protocol.Kind
	rc.OnChange(func(v []Vote) { renders = append(renders, v) })
	rc.OnEvent(func(ev protocol.Event) { seen = append(seen, ev.Kind()) })

	rc.Apply(protocol.VoteEvent{Result: true, From: alice})
	rc.Apply(protocol.TextEvent{Message: "hi", From: bob})
	rc.Apply(protocol.ParticipantEvent{From: alice})

	require.Len(t, renders, 1, "only state changes re-render")
	assert.Equal(t, []Vote{
		{Name: "Alice", AvatarURL: "a.png", Result: boolp(true)},
		{Name: "Bob", AvatarURL: "b.png"},
	}, renders[0])
	assert.Equal(t, []protocol.Kind{protocol.KindVote, protocol.KindText, protocol.KindParticipant}, seen)
	assert.Equal(t, renders[0], rc.Snapshot())
}

func TestReconciler_InitializeWithoutVotesStillRenders(t *testing.T) {
	rc := NewReconciler(7, []protocol.Participant{alice, bob})
	renders := 0
	rc.OnChange(func([]Vote) { renders++ })

	rc.Apply(protocol.InitializeEvent{})
	rc.Apply(protocol.InitializeEvent{})
	assert.Equal(t, 2, renders)
}

func TestReconciler_LocalActionsDoNotMutate(t *testing.T) {
	var sent sendRecorder
	rc := NewReconciler(7, []protocol.Participant{alice}, WithSender(&sent))
	ctx := context.Background()

	require.NoError(t, rc.CastVote(ctx, true))
	require.NoError(t, rc.Initialize(ctx))
	require.NoError(t, rc.Announce(ctx))
	require.NoError(t, rc.Say(ctx, "hello"))

	assert.Equal(t, []Vote{{Name: "Alice", AvatarURL: "a.png"}}, rc.Snapshot())
	assert.Equal(t, []protocol.SendRequest{
		{Kind: protocol.KindVote, RoomID: 7, Result: true},
		{Kind: protocol.KindInitialize, RoomID: 7},
		{Kind: protocol.KindParticipant, RoomID: 7},
		{Kind: protocol.KindText, RoomID: 7, Message: "hello"},
	}, sent.reqs)
}

func TestReconciler_NoSender(t *testing.T) {
	rc := NewReconciler(1, nil)
	assert.Error(t, rc.CastVote(context.Background(), true))
}

func TestReconciler_RunSkipsBadEventsAndStopsOnCancel(t *testing.T) {
	rc := NewReconciler(7, []protocol.Participant{alice, bob})
	s := newChanStream()
	ctx, cancel := context.WithCancel(context.Background())

	changed := make(chan []Vote, 4)
	rc.OnChange(func(v []Vote) { changed <- v })

	done := make(chan error, 1)
	go func() { done <- rc.Run(ctx, s) }()

	s.ch <- fmt.Errorf("%w: unknown kind", errs.ErrBadRequest)
	s.ch <- protocol.VoteEvent{Result: false, From: bob}

	select {
	case v := <-changed:
		assert.Equal(t, boolp(false), v[1].Result)
	case <-time.After(2 * time.Second):
		t.Fatal("vote was not applied")
	}

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop")
	}
	select {
	case <-s.closed:
	default:
		t.Fatal("stream was not closed")
	}
}

func TestReconciler_RunEndsOnStreamError(t *testing.T) {
	rc := NewReconciler(7, nil)
	s := newChanStream()
	s.ch <- io.ErrUnexpectedEOF

	err := rc.Run(context.Background(), s)
	assert.True(t, errors.Is(err, io.ErrUnexpectedEOF))
}
