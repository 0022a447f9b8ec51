// Package pubsub wakes subscribers when something they watch has changed.
package pubsub

import (
	"context"
	"sync"
)

// Broker fans a bare change signal out to context-scoped subscribers.
// Signals carry nothing: a woken subscriber re-reads what it watches, so a
// signal raised while another is still pending merges into it.
type Broker struct {
	mu   sync.Mutex
	subs map[chan struct{}]struct{}
	done chan struct{}
}

func NewBroker() *Broker {
	return &Broker{subs: make(map[chan struct{}]struct{}), done: make(chan struct{})}
}

// Subscribe returns a channel holding at most one pending signal. It is
// closed when ctx ends or the broker closes.
func (b *Broker) Subscribe(ctx context.Context) <-chan struct{} {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := make(chan struct{}, 1)
	if b.isClosed() {
		close(sub)
		return sub
	}
	b.subs[sub] = struct{}{}

	go func() {
		select {
		case <-ctx.Done():
			b.drop(sub)
		case <-b.done:
		}
	}()
	return sub
}

func (b *Broker) drop(sub chan struct{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[sub]; ok {
		delete(b.subs, sub)
		close(sub)
	}
}

// Notify wakes every subscriber without blocking.
func (b *Broker) Notify() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for sub := range b.subs {
		select {
		case sub <- struct{}{}:
		default: // already pending
		}
	}
}

// Close closes every subscription. It is idempotent.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.isClosed() {
		return
	}
	close(b.done)
	for sub := range b.subs {
		close(sub)
	}
	b.subs = map[chan struct{}]struct{}{}
}

func (b *Broker) isClosed() bool {
	select {
	case <-b.done:
		return true
	default:
		return false
	}
}

func (b *Broker) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
