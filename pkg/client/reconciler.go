package client

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/cwrk-planet/meet-service/internal/protocol"
	"github.com/cwrk-planet/meet-service/pkg/errs"
)

// Stream источник событий комнаты (SSE или WebSocket).
type Stream interface {
	// Next блокируется до следующего события. Испорченное событие: ошибка с errs.ErrBadRequest,
	// после неё чтение можно продолжать.
	Next() (protocol.Event, error)
	Close() error
}

type Sender interface {
	Send(ctx context.Context, req protocol.SendRequest) error
}

// Reconciler держит ростер комнаты и сводит в него события потока.
// Локальные действия (CastVote, Initialize, Say) ростер не меняют: состояние
// обновится, когда событие вернётся из комнаты.
type Reconciler struct {
	roomID int64
	sender Sender

	mu       sync.Mutex
	roster   *Roster
	onChange []func([]Vote)
	onEvent  []func(protocol.Event)
}

type Option func(*Reconciler)

func WithSender(s Sender) Option {
	return func(r *Reconciler) { r.sender = s }
}

func NewReconciler(roomID int64, seed []protocol.Participant, opts ...Option) *Reconciler {
	r := &Reconciler{roomID: roomID, roster: NewRoster(seed)}
	for _, opt := range opts {
		opt(r)
	}

	return r
}

// OnChange вызывается после каждого события, изменившего ростер.
func (r *Reconciler) OnChange(fn func([]Vote)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onChange = append(r.onChange, fn)
}

// OnEvent получает каждое событие, включая чат.
func (r *Reconciler) OnEvent(fn func(protocol.Event)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onEvent = append(r.onEvent, fn)
}

func (r *Reconciler) Apply(ev protocol.Event) bool {
	r.mu.Lock()
	changed := r.roster.Apply(ev)
	var snapshot []Vote
	if changed {
		snapshot = r.roster.Entries()
	}
	onChange := slices.Clone(r.onChange)
	onEvent := slices.Clone(r.onEvent)
	r.mu.Unlock()

	for _, fn := range onEvent {
		fn(ev)
	}
	if changed {
		for _, fn := range onChange {
			fn(snapshot)
		}
	}

	return changed
}

func (r *Reconciler) Snapshot() []Vote {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.roster.Entries()
}

// Run читает поток до отмены ctx или ошибки чтения и закрывает его.
// Ростер живёт, пока жива подписка.
func (r *Reconciler) Run(ctx context.Context, s Stream) error {
	stop := context.AfterFunc(ctx, func() { _ = s.Close() })
	defer func() {
		stop()
		_ = s.Close()
	}()

	for {
		ev, err := s.Next()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, errs.ErrBadRequest) {
				continue
			}
			return err
		}
		r.Apply(ev)
	}
}

func (r *Reconciler) CastVote(ctx context.Context, result bool) error {
	return r.send(ctx, protocol.SendRequest{Kind: protocol.KindVote, Result: result})
}

// Initialize сбрасывает голоса всей комнаты.
func (r *Reconciler) Initialize(ctx context.Context) error {
	return r.send(ctx, protocol.SendRequest{Kind: protocol.KindInitialize})
}

func (r *Reconciler) Announce(ctx context.Context) error {
	return r.send(ctx, protocol.SendRequest{Kind: protocol.KindParticipant})
}

func (r *Reconciler) Say(ctx context.Context, text string) error {
	return r.send(ctx, protocol.SendRequest{Kind: protocol.KindText, Message: text})
}

func (r *Reconciler) send(ctx context.Context, req protocol.SendRequest) error {
	if r.sender == nil {
		return errors.New("client: reconciler has no sender")
	}
	req.RoomID = r.roomID

	return r.sender.Send(ctx, req)
}
