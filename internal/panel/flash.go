package panel

import (
	"sync"
	"time"

	"storefront/internal/domain"
)

// MessageTTL is how long a message stays visible.
const MessageTTL = 3 * time.Second

// Flash holds at most one message and clears it ttl after it was set.
// Setting a new message stops the previous timer and arms a fresh one; a
// generation counter keeps an already-fired stale timer from clearing it.
type Flash struct {
	mu    sync.Mutex
	ttl   time.Duration
	msg   domain.Message
	timer *time.Timer
	gen   uint64
}

func NewFlash(ttl time.Duration) *Flash {
	if ttl <= 0 {
		ttl = MessageTTL
	}
	return &Flash{ttl: ttl}
}

func (f *Flash) Set(kind domain.MessageKind, text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.timer != nil {
		f.timer.Stop()
	}
	f.gen++
	gen := f.gen
	f.msg = domain.Message{Text: text, Kind: kind}
	f.timer = time.AfterFunc(f.ttl, func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.gen == gen {
			f.msg = domain.Message{}
			f.timer = nil
		}
	})
}

func (f *Flash) Success(text string) { f.Set(domain.MessageSuccess, text) }
func (f *Flash) Error(text string)   { f.Set(domain.MessageError, text) }

func (f *Flash) Current() domain.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.msg
}

// Stop cancels the pending timer and clears the message.
func (f *Flash) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.timer != nil {
		f.timer.Stop()
		f.timer = nil
	}
	f.gen++
	f.msg = domain.Message{}
}
