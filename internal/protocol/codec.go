package protocol

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/cwrk-planet/meet-service/pkg/errs"
)

type wireEvent struct {
	Kind      Kind         `json:"kind"`
	Result    *bool        `json:"result,omitempty"`
	Message   *string      `json:"message,omitempty"`
	From      *Participant `json:"from,omitempty"`
	CreatedAt *time.Time   `json:"createdAt,omitempty"`
}

// MarshalEvent отдаёт событие в том виде, в каком его получают подписчики.
func MarshalEvent(e Event) ([]byte, error) {
	var w wireEvent
	switch ev := e.(type) {
	case TextEvent:
		msg, at := ev.Message, ev.CreatedAt.UTC()
		w = wireEvent{Kind: KindText, Message: &msg, From: &ev.From, CreatedAt: &at}
	case TypingEvent:
		w = wireEvent{Kind: KindTyping, From: &ev.From}
	case ParticipantEvent:
		w = wireEvent{Kind: KindParticipant, From: &ev.From}
	case VoteEvent:
		res := ev.Result
		w = wireEvent{Kind: KindVote, Result: &res, From: &ev.From}
	case InitializeEvent:
		w = wireEvent{Kind: KindInitialize}
	default:
		return nil, fmt.Errorf("protocol: unsupported event %T", e)
	}

	return json.Marshal(w)
}

// UnmarshalEvent строгий разбор: неизвестный kind, отсутствующий from или result
// дают ошибку, оборачивающую errs.ErrBadRequest. Лишние поля игнорируются.
func UnmarshalEvent(data []byte) (Event, error) {
	var w wireEvent
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, badRequest("invalid event json: %v", err)
	}

	switch w.Kind {
	case KindText:
		from, err := requireFrom(w)
		if err != nil {
			return nil, err
		}
		ev := TextEvent{From: from}
		if w.Message != nil {
			ev.Message = *w.Message
		}
		if w.CreatedAt != nil {
			ev.CreatedAt = *w.CreatedAt
		}
		return ev, nil
	case KindTyping:
		from, err := requireFrom(w)
		if err != nil {
			return nil, err
		}
		return TypingEvent{From: from}, nil
	case KindParticipant:
		from, err := requireFrom(w)
		if err != nil {
			return nil, err
		}
		return ParticipantEvent{From: from}, nil
	case KindVote:
		from, err := requireFrom(w)
		if err != nil {
			return nil, err
		}
		if w.Result == nil {
			return nil, badRequest("vote without result")
		}
		return VoteEvent{Result: *w.Result, From: from}, nil
	case KindInitialize:
		return InitializeEvent{}, nil
	case "":
		return nil, badRequest("missing kind")
	default:
		return nil, badRequest("unknown kind %q", w.Kind)
	}
}

func requireFrom(w wireEvent) (Participant, error) {
	if w.From == nil || w.From.Name == "" {
		return Participant{}, badRequest("%s without from", w.Kind)
	}

	return *w.From, nil
}

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{errs.ErrBadRequest}, args...)...)
}
