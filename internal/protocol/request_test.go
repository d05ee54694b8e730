package protocol

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/cwrk-planet/meet-service/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeSendRequest_OK(t *testing.T) {
	tests := []struct {
		raw  string
		want SendRequest
	}{
		{`{"kind":"vote","roomId":7,"result":true}`, SendRequest{Kind: KindVote, RoomID: 7, Result: true}},
		{`{"kind":"vote","roomId":7,"result":false}`, SendRequest{Kind: KindVote, RoomID: 7}},
		{`{"kind":"participant","roomId":3}`, SendRequest{Kind: KindParticipant, RoomID: 3}},
		{`{"kind":"initialize","roomId":3}`, SendRequest{Kind: KindInitialize, RoomID: 3}},
		{`{"kind":"isTyping","roomId":3}`, SendRequest{Kind: KindTyping, RoomID: 3}},
		{`{"kind":"text","roomId":3,"message":"hello"}`, SendRequest{Kind: KindText, RoomID: 3, Message: "hello"}},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := DecodeSendRequest([]byte(tt.raw))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeSendRequest_BadRequest(t *testing.T) {
	tests := map[string]string{
		"invalid json":    `not json`,
		"unknown kind":    `{"kind":"dance","roomId":1}`,
		"missing kind":    `{"roomId":1}`,
		"missing room":    `{"kind":"participant"}`,
		"string room":     `{"kind":"participant","roomId":"7"}`,
		"fraction room":   `{"kind":"participant","roomId":7.5}`,
		"zero room":       `{"kind":"participant","roomId":0}`,
		"negative room":   `{"kind":"participant","roomId":-2}`,
		"vote no result":  `{"kind":"vote","roomId":1}`,
		"vote bad result": `{"kind":"vote","roomId":1,"result":1}`,
		"text blank":      `{"kind":"text","roomId":1,"message":"  "}`,
		"text too long":   `{"kind":"text","roomId":1,"message":"` + strings.Repeat("x", MaxMessageLen+1) + `"}`,
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeSendRequest([]byte(raw))
			require.Error(t, err)
			assert.ErrorIs(t, err, errs.ErrBadRequest)
		})
	}
}

func TestDecodeSendRequestInRoom(t *testing.T) {
	got, err := DecodeSendRequestInRoom([]byte(`{"kind":"vote","result":true}`), 9)
	require.NoError(t, err)
	assert.Equal(t, int64(9), got.RoomID)

	got, err = DecodeSendRequestInRoom([]byte(`{"kind":"vote","result":true,"roomId":4}`), 9)
	require.NoError(t, err)
	assert.Equal(t, int64(4), got.RoomID)
}

func TestSendRequest_MarshalJSON(t *testing.T) {
	raw, err := json.Marshal(SendRequest{Kind: KindVote, RoomID: 7, Result: false})
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"vote","roomId":7,"result":false}`, string(raw))

	raw, err = json.Marshal(SendRequest{Kind: KindInitialize, RoomID: 7, Result: true})
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"initialize","roomId":7}`, string(raw))

	back, err := DecodeSendRequest(raw)
	require.NoError(t, err)
	assert.Equal(t, SendRequest{Kind: KindInitialize, RoomID: 7}, back)
}

func TestSendRequest_Event(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, VoteEvent{Result: true, From: alice},
		SendRequest{Kind: KindVote, RoomID: 7, Result: true}.Event(alice, now))
	assert.Equal(t, ParticipantEvent{From: alice},
		SendRequest{Kind: KindParticipant, RoomID: 7}.Event(alice, now))
	assert.Equal(t, InitializeEvent{},
		SendRequest{Kind: KindInitialize, RoomID: 7}.Event(alice, now))
	assert.Equal(t, TextEvent{Message: "hi", From: alice, CreatedAt: now},
		SendRequest{Kind: KindText, RoomID: 7, Message: "hi"}.Event(alice, now))
}
