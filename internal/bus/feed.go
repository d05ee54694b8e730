package bus

import (
	"sync/atomic"

	"github.com/cwrk-planet/meet-service/internal/protocol"
)

// Feed подписка с очередью ограниченного размера для транспортов.
// Переполненная очередь теряет событие только для этого подписчика.
type Feed struct {
	sub     *Subscription
	ch      chan protocol.Event
	dropped atomic.Int64
}

// Feed подписывает очередь на handle. onDrop может быть nil.
func (b *Bus) Feed(size int, onDrop func(protocol.Event)) *Feed {
	if size <= 0 {
		size = 1
	}
	f := &Feed{ch: make(chan protocol.Event, size)}
	f.sub = b.Subscribe(func(ev protocol.Event) {
		select {
		case f.ch <- ev:
		default:
			f.dropped.Add(1)
			if onDrop != nil {
				onDrop(ev)
			}
		}
	})

	return f
}

// C канал не закрывается: читатель выходит по своему контексту.
func (f *Feed) C() <-chan protocol.Event { return f.ch }

func (f *Feed) Dropped() int64 { return f.dropped.Load() }

func (f *Feed) Close() { f.sub.Unsubscribe() }
