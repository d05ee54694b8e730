package protocol

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/cwrk-planet/meet-service/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var alice = Participant{Name: "Alice", AvatarURL: "https://example.com/a.png"}

func TestMarshalEvent_WireShape(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		ev   Event
		want string
	}{
		{"vote", VoteEvent{Result: true, From: alice},
			`{"kind":"vote","result":true,"from":{"name":"Alice","avatarUrl":"https://example.com/a.png"}}`},
		{"vote false keeps result", VoteEvent{Result: false, From: alice},
			`{"kind":"vote","result":false,"from":{"name":"Alice","avatarUrl":"https://example.com/a.png"}}`},
		{"participant", ParticipantEvent{From: alice},
			`{"kind":"participant","from":{"name":"Alice","avatarUrl":"https://example.com/a.png"}}`},
		{"initialize", InitializeEvent{}, `{"kind":"initialize"}`},
		{"typing", TypingEvent{From: alice},
			`{"kind":"isTyping","from":{"name":"Alice","avatarUrl":"https://example.com/a.png"}}`},
		{"text", TextEvent{Message: "hi", From: alice, CreatedAt: at},
			`{"kind":"text","message":"hi","from":{"name":"Alice","avatarUrl":"https://example.com/a.png"},"createdAt":"2024-05-01T12:00:00Z"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MarshalEvent(tt.ev)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(got))

			back, err := UnmarshalEvent(got)
			require.NoError(t, err)
			assert.Equal(t, tt.ev, back)
		})
	}
}

func TestUnmarshalEvent_Rejects(t *testing.T) {
	tests := map[string]string{
		"not json":          `{"kind":`,
		"missing kind":      `{"from":{"name":"Alice"}}`,
		"unknown kind":      `{"kind":"dance","from":{"name":"Alice"}}`,
		"vote no result":    `{"kind":"vote","from":{"name":"Alice"}}`,
		"vote no from":      `{"kind":"vote","result":true}`,
		"participant empty": `{"kind":"participant","from":{"avatarUrl":"x"}}`,
		"result wrong type": `{"kind":"vote","result":"yes","from":{"name":"Alice"}}`,
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := UnmarshalEvent([]byte(raw))
			require.Error(t, err)
			assert.ErrorIs(t, err, errs.ErrBadRequest)
		})
	}
}

func TestUnmarshalEvent_ToleratesExtraFields(t *testing.T) {
	ev, err := UnmarshalEvent([]byte(`{"kind":"participant","from":{"name":"Bob","avatarUrl":"b"},"roomId":7,"v":2}`))
	require.NoError(t, err)
	assert.Equal(t, ParticipantEvent{From: Participant{Name: "Bob", AvatarURL: "b"}}, ev)
}

func TestUnmarshalEvent_TextAndTypingAccepted(t *testing.T) {
	ev, err := UnmarshalEvent([]byte(`{"kind":"isTyping","from":{"name":"Bob"}}`))
	require.NoError(t, err)
	assert.Equal(t, KindTyping, ev.Kind())

	ev, err = UnmarshalEvent([]byte(`{"kind":"text","from":{"name":"Bob"}}`))
	require.NoError(t, err)
	assert.Equal(t, KindText, ev.Kind())
}

func TestMarshalEvent_Nil(t *testing.T) {
	_, err := MarshalEvent(nil)
	assert.Error(t, err)
}

func TestWireShape_IsValidJSONObject(t *testing.T) {
	raw, err := MarshalEvent(InitializeEvent{})
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	assert.Equal(t, map[string]any{"kind": "initialize"}, m)
}
