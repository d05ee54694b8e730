package bus

import (
	"testing"

	"github.com/cwrk-planet/meet-service/internal/protocol"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeed_DropsWhenFullWithoutAffectingOthers(t *testing.T) {
	reg := NewRegistry()
	b := reg.Open(1)
	defer b.Close()

	var dropped []protocol.Event
	slow := b.Feed(1, func(ev protocol.Event) { dropped = append(dropped, ev) })
	fast := b.Feed(8, nil)

	first := protocol.VoteEvent{Result: true, From: alice}
	second := protocol.InitializeEvent{}
	b.Publish(first)
	b.Publish(second)

	require.Len(t, slow.C(), 1)
	assert.Equal(t, first, <-slow.C())
	assert.Equal(t, int64(1), slow.Dropped())
	assert.Equal(t, []protocol.Event{second}, dropped)

	require.Len(t, fast.C(), 2)
	assert.Equal(t, int64(0), fast.Dropped())
}

func TestFeed_CloseUnsubscribes(t *testing.T) {
	reg := NewRegistry()
	b := reg.Open(2)
	f := b.Feed(4, nil)
	require.Equal(t, 1, reg.Subscribers(2))

	f.Close()
	f.Close()
	b.Publish(protocol.InitializeEvent{})

	assert.Empty(t, f.C())
	assert.Equal(t, 0, reg.Subscribers(2))
}
