package protocol

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// MaxMessageLen лимит длины текста в рунах.
const MaxMessageLen = 4000

// SendRequest то, что клиент отправляет в ingress. from не передаётся:
// отправитель определяется по сессии.
type SendRequest struct {
	Kind    Kind
	RoomID  int64
	Result  bool   // только для vote
	Message string // только для text
}

type wireSend struct {
	Kind    Kind            `json:"kind"`
	RoomID  json.RawMessage `json:"roomId,omitempty"`
	Result  *bool           `json:"result,omitempty"`
	Message *string         `json:"message,omitempty"`
}

func (r SendRequest) MarshalJSON() ([]byte, error) {
	w := wireSend{Kind: r.Kind, RoomID: json.RawMessage(strconv.FormatInt(r.RoomID, 10))}
	switch r.Kind {
	case KindVote:
		res := r.Result
		w.Result = &res
	case KindText:
		msg := r.Message
		w.Message = &msg
	}

	return json.Marshal(w)
}

// DecodeSendRequest разбирает тело запроса ingress; roomId обязателен.
func DecodeSendRequest(data []byte) (SendRequest, error) {
	return decodeSendRequest(data, 0)
}

// DecodeSendRequestInRoom как DecodeSendRequest, но без roomId подставляет roomID.
// Используется для кадров WebSocket, уже привязанного к комнате.
func DecodeSendRequestInRoom(data []byte, roomID int64) (SendRequest, error) {
	return decodeSendRequest(data, roomID)
}

func decodeSendRequest(data []byte, fallbackRoom int64) (SendRequest, error) {
	var w wireSend
	if err := json.Unmarshal(data, &w); err != nil {
		return SendRequest{}, badRequest("invalid request json: %v", err)
	}

	req := SendRequest{Kind: w.Kind, RoomID: fallbackRoom}
	if raw := bytes.TrimSpace(w.RoomID); len(raw) > 0 && !bytes.Equal(raw, []byte("null")) {
		id, err := ParseRoomID(string(raw))
		if err != nil {
			return SendRequest{}, err
		}
		req.RoomID = id
	}
	if w.Result != nil {
		req.Result = *w.Result
	}
	if w.Message != nil {
		req.Message = *w.Message
	}

	if req.Kind == KindVote && w.Result == nil {
		return SendRequest{}, badRequest("vote requires boolean result")
	}
	if err := req.Validate(); err != nil {
		return SendRequest{}, err
	}

	return req, nil
}

// Validate проверяет запрос, собранный не из JSON (gRPC, клиент).
func (r SendRequest) Validate() error {
	if r.Kind == "" {
		return badRequest("missing kind")
	}
	if !r.Kind.Valid() {
		return badRequest("unknown kind %q", r.Kind)
	}
	if r.RoomID <= 0 {
		return badRequest("roomId must be a positive integer")
	}
	if r.Kind == KindText {
		if strings.TrimSpace(r.Message) == "" {
			return badRequest("text requires message")
		}
		if utf8.RuneCountInString(r.Message) > MaxMessageLen {
			return badRequest("message longer than %d chars", MaxMessageLen)
		}
	}

	return nil
}

// Event собирает полное событие, подставляя отправителя.
func (r SendRequest) Event(from Participant, now time.Time) Event {
	switch r.Kind {
	case KindText:
		return TextEvent{Message: r.Message, From: from, CreatedAt: now}
	case KindTyping:
		return TypingEvent{From: from}
	case KindParticipant:
		return ParticipantEvent{From: from}
	case KindVote:
		return VoteEvent{Result: r.Result, From: from}
	default:
		return InitializeEvent{}
	}
}

// ParseRoomID принимает только целое > 0 в десятичной записи.
func ParseRoomID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequest("roomId must be a positive integer, got %s", s)
	}

	return id, nil
}
