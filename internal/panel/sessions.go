package panel

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	applog "storefront/internal/log"
)

const defaultIdle = 30 * time.Minute

type session struct {
	mu       sync.Mutex
	products *ProductScreen
	store    *StoreScreen
	released bool
}

func (se *session) release(sid string) {
	se.mu.Lock()
	se.released = true
	ps := se.products
	se.products = nil
	se.store = nil
	se.mu.Unlock()
	if ps != nil {
		ps.Deactivate()
		applog.Event("panel.deactivate", map[string]any{"sid": sid})
	}
}

// Sessions maps a browser session id to its screens. Entries idle longer
// than the configured duration are evicted and their screens deactivated.
type Sessions struct {
	ctx         context.Context
	cache       *gocache.Cache
	newProducts func() *ProductScreen
	newStore    func() *StoreScreen

	// live tracks every session handed out, including ones the cache has
	// expired but not yet swept, so an overwrite never loses a release.
	mu   sync.Mutex
	live map[string]*session
}

// NewSessions builds the registry. ctx is the parent of every screen's
// subscriptions and is normally the lifetime of the server.
func NewSessions(ctx context.Context, idle time.Duration, newProducts func() *ProductScreen, newStore func() *StoreScreen) *Sessions {
	if idle <= 0 {
		idle = defaultIdle
	}
	r := &Sessions{
		ctx:         ctx,
		cache:       gocache.New(idle, idle/2),
		newProducts: newProducts,
		newStore:    newStore,
		live:        make(map[string]*session),
	}
	r.cache.OnEvicted(r.evicted)
	return r
}

func (r *Sessions) evicted(sid string, v any) {
	se, ok := v.(*session)
	if !ok {
		return
	}
	r.mu.Lock()
	if r.live[sid] == se {
		delete(r.live, sid)
	}
	r.mu.Unlock()
	se.release(sid)
}

// entry returns the live session for sid and refreshes its idle deadline.
// An expired session still waiting for the janitor is released here, since
// go-cache does not report overwrites to OnEvicted.
func (r *Sessions) entry(sid string) *session {
	r.mu.Lock()
	if v, ok := r.cache.Get(sid); ok {
		se := v.(*session)
		r.cache.SetDefault(sid, se)
		r.mu.Unlock()
		return se
	}
	stale := r.live[sid]
	se := &session{}
	r.live[sid] = se
	r.cache.SetDefault(sid, se)
	r.mu.Unlock()

	if stale != nil {
		stale.release(sid)
	}
	return se
}

// Products returns the product screen for sid, activating it on first use.
func (r *Sessions) Products(sid string) (*ProductScreen, error) {
	se := r.entry(sid)
	se.mu.Lock()
	defer se.mu.Unlock()
	if se.released {
		return nil, ErrDeactivated
	}
	if se.products == nil {
		ps := r.newProducts()
		if err := ps.Activate(r.ctx); err != nil {
			ps.Deactivate()
			return nil, err
		}
		se.products = ps
		applog.Event("panel.activate", map[string]any{"sid": sid})
	}
	return se.products, nil
}

func (r *Sessions) Store(sid string) *StoreScreen {
	se := r.entry(sid)
	se.mu.Lock()
	defer se.mu.Unlock()
	if se.store == nil {
		se.store = r.newStore()
	}
	return se.store
}

// Release drops sid and deactivates its screens.
func (r *Sessions) Release(sid string) {
	r.mu.Lock()
	se := r.live[sid]
	delete(r.live, sid)
	r.mu.Unlock()

	// Delete reports to OnEvicted only while the cache still holds sid.
	r.cache.Delete(sid)
	if se != nil {
		se.release(sid)
	}
}

func (r *Sessions) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.live)
}

// Close releases every session.
func (r *Sessions) Close() {
	r.mu.Lock()
	all := r.live
	r.live = make(map[string]*session)
	r.mu.Unlock()

	r.cache.Flush()
	for sid, se := range all {
		se.release(sid)
	}
}
