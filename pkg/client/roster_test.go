package client

import (
	"math/rand"
	"testing"

	"github.com/cwrk-planet/meet-service/internal/protocol"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	alice = protocol.Participant{Name: "Alice", AvatarURL: "a.png"}
	bob   = protocol.Participant{Name: "Bob", AvatarURL: "b.png"}
	carol = protocol.Participant{Name: "Carol", AvatarURL: "c.png"}
)

func boolp(b bool) *bool { return &b }

func TestNewRoster_DedupsByName(t *testing.T) {
	r := NewRoster([]protocol.Participant{alice, bob, {Name: "Alice", AvatarURL: "other.png"}})
	assert.Equal(t, []Vote{{Name: "Alice", AvatarURL: "a.png"}, {Name: "Bob", AvatarURL: "b.png"}}, r.Entries())
}

func TestRoster_VoteSetsResultByName(t *testing.T) {
	r := NewRoster([]protocol.Participant{alice, bob})

	assert.True(t, r.Apply(protocol.VoteEvent{Result: true, From: alice}))
	assert.False(t, r.Apply(protocol.VoteEvent{Result: true, From: alice}), "same result is not a change")
	assert.True(t, r.Apply(protocol.VoteEvent{Result: false, From: alice}))

	assert.Equal(t, []Vote{
		{Name: "Alice", AvatarURL: "a.png", Result: boolp(false)},
		{Name: "Bob", AvatarURL: "b.png"},
	}, r.Entries())
}

func TestRoster_VoteFromUnknownIsIgnored(t *testing.T) {
	r := NewRoster([]protocol.Participant{alice})
	assert.False(t, r.Apply(protocol.VoteEvent{Result: true, From: carol}))
	assert.Len(t, r.Entries(), 1)
}

func TestRoster_LastVoteWinsRegardlessOfOthers(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for round := 0; round < 200; round++ {
		// голоса Alice в фиксированном порядке, голоса остальных где угодно между ними
		aliceVotes := make([]protocol.Event, 1+rng.Intn(5))
		for i := range aliceVotes {
			aliceVotes[i] = protocol.VoteEvent{Result: rng.Intn(2) == 0, From: alice}
		}
		others := make([]protocol.Event, rng.Intn(8))
		for i := range others {
			from := bob
			if rng.Intn(2) == 0 {
				from = carol
			}
			others[i] = protocol.VoteEvent{Result: rng.Intn(2) == 0, From: from}
		}

		seq := interleave(rng, aliceVotes, others)
		r := NewRoster([]protocol.Participant{alice, bob, carol})
		for _, ev := range seq {
			r.Apply(ev)
		}

		want := aliceVotes[len(aliceVotes)-1].(protocol.VoteEvent).Result
		got := r.Entries()[0]
		require.NotNil(t, got.Result)
		assert.Equal(t, want, *got.Result, "round %d", round)
	}
}

func interleave(rng *rand.Rand, fixed, loose []protocol.Event) []protocol.Event {
	out := make([]protocol.Event, 0, len(fixed)+len(loose))
	i, j := 0, 0
	for i < len(fixed) || j < len(loose) {
		if j == len(loose) || (i < len(fixed) && rng.Intn(2) == 0) {
			out = append(out, fixed[i])
			i++
		} else {
			out = append(out, loose[j])
			j++
		}
	}
	return out
}

func TestRoster_InitializeClearsAndIsIdempotent(t *testing.T) {
	r := NewRoster([]protocol.Participant{alice, bob})
	r.Apply(protocol.VoteEvent{Result: true, From: alice})
	r.Apply(protocol.VoteEvent{Result: false, From: bob})

	assert.True(t, r.Apply(protocol.InitializeEvent{}))
	once := r.Entries()
	assert.True(t, r.Apply(protocol.InitializeEvent{}), "reset always re-renders")
	assert.Equal(t, once, r.Entries())

	assert.Equal(t, []Vote{{Name: "Alice", AvatarURL: "a.png"}, {Name: "Bob", AvatarURL: "b.png"}}, once)
}

func TestRoster_InitializeOnEmptyRosterIsATransition(t *testing.T) {
	r := NewRoster([]protocol.Participant{alice})
	assert.True(t, r.Apply(protocol.InitializeEvent{}))
	assert.Equal(t, []Vote{{Name: "Alice", AvatarURL: "a.png"}}, r.Entries())
}

func TestRoster_ParticipantIsIdempotent(t *testing.T) {
	r := NewRoster(nil)
	assert.True(t, r.Apply(protocol.ParticipantEvent{From: carol}))
	assert.False(t, r.Apply(protocol.ParticipantEvent{From: carol}))
	assert.Equal(t, []Vote{{Name: "Carol", AvatarURL: "c.png"}}, r.Entries())
}

func TestRoster_ChatIsIgnored(t *testing.T) {
	r := NewRoster([]protocol.Participant{alice})
	assert.False(t, r.Apply(protocol.TextEvent{Message: "hi", From: alice}))
	assert.False(t, r.Apply(protocol.TypingEvent{From: bob}))
	assert.Len(t, r.Entries(), 1)
}

func TestRoster_EntriesIsACopy(t *testing.T) {
	r := NewRoster([]protocol.Participant{alice})
	r.Apply(protocol.VoteEvent{Result: true, From: alice})

	e := r.Entries()
	*e[0].Result = false
	e[0].Name = "Mallory"

	assert.Equal(t, "Alice", r.Entries()[0].Name)
	assert.True(t, *r.Entries()[0].Result)
}
