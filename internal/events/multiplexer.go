package events

import (
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/exp/slices"
)

const multiplexerTimeout = 200 * time.Millisecond

type subscriber[E any] struct {
	ch      chan E
	comment string
}

// MultiplexerSender is the publishing end of a Multiplexer. Send never blocks
// the caller.
type MultiplexerSender[E any] struct {
	m *Multiplexer[E]
}

// Send queues e for delivery. Events reach subscribers in Send order.
func (ms *MultiplexerSender[E]) Send(e E) {
	ms.m.pendingLock.Lock()
	ms.m.pending = append(ms.m.pending, e)
	ms.m.pendingLock.Unlock()
	select {
	case ms.m.wake <- struct{}{}:
	default:
	}
}

func NewMultiplexerSender[E any](comment string) (*MultiplexerSender[E], *Multiplexer[E]) {
	m := &Multiplexer[E]{
		comment: comment,
		wake:    make(chan struct{}, 1),
	}
	go m.dispatch()
	return &MultiplexerSender[E]{m: m}, m
}

// Multiplexer fans events out to every subscribed channel. A subscriber that
// does not receive within multiplexerTimeout misses that event.
type Multiplexer[E any] struct {
	comment         string
	subscribersLock sync.Mutex
	subscribers     []subscriber[E]

	pendingLock sync.Mutex
	pending     []E
	wake        chan struct{}
}

func (m *Multiplexer[E]) Subscribe(comment string, c chan E) {
	m.subscribersLock.Lock()
	defer m.subscribersLock.Unlock()
	m.subscribers = append(m.subscribers, subscriber[E]{
		ch:      c,
		comment: comment,
	})
}

func (m *Multiplexer[E]) Unsubscribe(c chan E) {
	m.subscribersLock.Lock()
	defer m.subscribersLock.Unlock()
	i := slices.IndexFunc(m.subscribers, func(sub subscriber[E]) bool { return sub.ch == c })
	if i == -1 {
		panic("already unsubscribed")
	}
	m.subscribers = slices.Delete(m.subscribers, i, i+1)
}

// Subscribers returns the number of live subscriptions.
func (m *Multiplexer[E]) Subscribers() int {
	m.subscribersLock.Lock()
	defer m.subscribersLock.Unlock()
	return len(m.subscribers)
}

// dispatch is the only goroutine delivering events, draining pending in order.
func (m *Multiplexer[E]) dispatch() {
	for range m.wake {
		for {
			m.pendingLock.Lock()
			batch := m.pending
			m.pending = nil
			m.pendingLock.Unlock()
			if len(batch) == 0 {
				break
			}
			for _, e := range batch {
				m.send(e)
			}
		}
	}
}

func (m *Multiplexer[E]) send(e E) {
	m.subscribersLock.Lock()
	defer m.subscribersLock.Unlock()
	for _, sub := range m.subscribers {
		select {
		case sub.ch <- e:
		case <-time.After(multiplexerTimeout):
			zap.S().Warnf("multiplexer %s: subscriber %s timed out", m.comment, sub.comment)
		}
	}
}
