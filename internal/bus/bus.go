// Package bus рассылает события комнаты подписчикам внутри процесса.
//
// Registry создаётся один раз в main и передаётся явно. Публикация синхронная:
// обработчики вызываются в горутине публикующего, вне блокировки реестра.
// Обработчик не должен блокироваться; транспорты кладут событие в свою очередь.
package bus

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/cwrk-planet/meet-service/internal/protocol"
	"github.com/cwrk-planet/meet-service/pkg/logger"
)

type Handler func(protocol.Event)

type Registry struct {
	mu     sync.RWMutex
	rooms  map[int64]map[*Subscription]struct{} // roomID -> set of subscriptions
	closed bool

	log *slog.Logger
}

type Option func(*Registry)

func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) { r.log = l }
}

func NewRegistry(opts ...Option) *Registry {
	r := &Registry{rooms: make(map[int64]map[*Subscription]struct{})}
	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Open возвращает handle комнаты. Handle дешёвый, его нужно закрыть.
func (r *Registry) Open(roomID int64) *Bus {
	return &Bus{reg: r, roomID: roomID, subs: make(map[*Subscription]struct{})}
}

// Subscribers число активных подписок комнаты.
func (r *Registry) Subscribers(roomID int64) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.rooms[roomID])
}

// Rooms число комнат, у которых есть хотя бы одна подписка.
func (r *Registry) Rooms() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.rooms)
}

// Close отцепляет все подписки; последующие Publish ничего не делают.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}
	r.closed = true
	for _, rs := range r.rooms {
		for s := range rs {
			s.active.Store(false)
		}
	}
	r.rooms = make(map[int64]map[*Subscription]struct{})
}

func (r *Registry) add(s *Subscription) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return false
	}
	rs, ok := r.rooms[s.roomID]
	if !ok {
		rs = make(map[*Subscription]struct{})
		r.rooms[s.roomID] = rs
	}
	rs[s] = struct{}{}

	return true
}

func (r *Registry) remove(s *Subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rs, ok := r.rooms[s.roomID]; ok {
		delete(rs, s)
		if len(rs) == 0 {
			delete(r.rooms, s.roomID)
		}
	}
}

func (r *Registry) snapshot(roomID int64) []*Subscription {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rs := r.rooms[roomID]
	if len(rs) == 0 {
		return nil
	}
	out := make([]*Subscription, 0, len(rs))
	for s := range rs {
		out = append(out, s)
	}

	return out
}

func (r *Registry) publish(roomID int64, ev protocol.Event) {
	for _, s := range r.snapshot(roomID) {
		r.deliver(s, ev)
	}
}

// deliver изолирует подписчиков друг от друга: паника одного не мешает остальным.
func (r *Registry) deliver(s *Subscription, ev protocol.Event) {
	if !s.active.Load() {
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			r.logger().Error("bus.deliver: handler panic",
				slog.Int64("room_id", s.roomID),
				slog.String("kind", string(ev.Kind())),
				slog.String("panic", fmt.Sprint(rec)),
			)
		}
	}()
	s.handler(ev)
}

func (r *Registry) logger() *slog.Logger {
	if r.log != nil {
		return r.log
	}

	return logger.L()
}

// Subscription живая регистрация обработчика.
type Subscription struct {
	reg     *Registry
	owner   *Bus
	roomID  int64
	handler Handler
	active  atomic.Bool
	once    sync.Once
}

// Unsubscribe идемпотентен. После возврата события, опубликованные позже, обработчик не получит.
func (s *Subscription) Unsubscribe() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		s.active.Store(false)
		if s.reg != nil {
			s.reg.remove(s)
		}
		if s.owner != nil {
			s.owner.forget(s)
		}
	})
}

// Bus handle комнаты, полученный через Registry.Open.
type Bus struct {
	reg    *Registry
	roomID int64

	mu     sync.Mutex
	closed bool
	subs   map[*Subscription]struct{}
}

func (b *Bus) RoomID() int64 { return b.roomID }

// Publish fire-and-forget: вернулся, значит текущие подписчики уже вызваны.
func (b *Bus) Publish(ev protocol.Event) {
	if ev == nil {
		return
	}
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return
	}
	b.reg.publish(b.roomID, ev)
}

// Subscribe на закрытом handle возвращает неактивную подписку.
func (b *Bus) Subscribe(h Handler) *Subscription {
	s := &Subscription{reg: b.reg, owner: b, roomID: b.roomID, handler: h}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed || h == nil {
		return &Subscription{roomID: b.roomID}
	}
	s.active.Store(true)
	if !b.reg.add(s) {
		s.active.Store(false)
		return &Subscription{roomID: b.roomID}
	}
	b.subs[s] = struct{}{}

	return s
}

// Close идемпотентен, снимает все подписки, взятые через этот handle.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	subs := make([]*Subscription, 0, len(b.subs))
	for s := range b.subs {
		subs = append(subs, s)
	}
	b.mu.Unlock()

	for _, s := range subs {
		s.Unsubscribe()
	}
}

func (b *Bus) forget(s *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.subs, s)
}
