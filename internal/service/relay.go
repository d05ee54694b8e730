package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cwrk-planet/meet-service/internal/bus"
	"github.com/cwrk-planet/meet-service/internal/domain"
	"github.com/cwrk-planet/meet-service/internal/protocol"
	"github.com/cwrk-planet/meet-service/pkg/errs"
	"github.com/cwrk-planet/meet-service/pkg/logger"
)

type MessageSaver interface {
	Save(ctx context.Context, roomID, userID int64, text string) (domain.ChatMessage, error)
}

type RoomInfoSource interface {
	Info(ctx context.Context, roomID int64) (domain.RoomInfo, error)
}

// Relay принимает запрос клиента и публикует событие в шину комнаты.
type Relay struct {
	buses *bus.Registry
	chat  MessageSaver
	rooms RoomInfoSource

	ownerOnlyInitialize bool
	now                 func() time.Time
}

type RelayOption func(*Relay)

// WithOwnerOnlyInitialize запрещает сброс голосов всем, кроме владельца комнаты.
func WithOwnerOnlyInitialize(on bool) RelayOption {
	return func(r *Relay) { r.ownerOnlyInitialize = on }
}

func NewRelay(buses *bus.Registry, chat MessageSaver, rooms RoomInfoSource, opts ...RelayOption) *Relay {
	r := &Relay{buses: buses, chat: chat, rooms: rooms, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Send публикует событие от имени caller. Успех значит, что Publish вернулся,
// а не что кто-то событие получил.
func (r *Relay) Send(ctx context.Context, caller domain.User, req protocol.SendRequest) (protocol.Event, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	ev := req.Event(caller.Participant(), r.now())

	switch req.Kind {
	case protocol.KindText:
		msg, err := r.chat.Save(ctx, req.RoomID, caller.ID, req.Message)
		if err != nil {
			return nil, err
		}
		ev = protocol.TextEvent{Message: msg.Text, From: caller.Participant(), CreatedAt: msg.CreatedAt}
	case protocol.KindInitialize:
		if r.ownerOnlyInitialize {
			info, err := r.rooms.Info(ctx, req.RoomID)
			if err != nil {
				return nil, err
			}
			if info.OwnerID != caller.ID {
				return nil, fmt.Errorf("%w: only the room owner can reset votes", errs.ErrForbidden)
			}
		}
	}

	r.Publish(ctx, req.RoomID, ev)

	return ev, nil
}

// Publish открывает шину комнаты, публикует и сразу закрывает handle.
func (r *Relay) Publish(ctx context.Context, roomID int64, ev protocol.Event) {
	b := r.buses.Open(roomID)
	defer b.Close()

	b.Publish(ev)

	logger.FromContext(ctx).Debug("relay.publish",
		slog.Int64("room_id", roomID),
		slog.String("kind", string(ev.Kind())),
	)
}
