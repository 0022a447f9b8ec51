package panel

import (
	"context"
	"strconv"
	"sync"

	"storefront/internal/domain"
)

type fakeProducts struct {
	mu       sync.Mutex
	created  []domain.Product
	updated  map[string]domain.Product
	deleted  []string
	writeErr error
	watchErr error
	stopped  int
	calls    int

	// entered and gate let a test hold a write in flight.
	entered chan struct{}
	gate    chan struct{}
}

func newFakeProducts() *fakeProducts {
	return &fakeProducts{updated: map[string]domain.Product{}}
}

func (f *fakeProducts) hold() {
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.gate != nil {
		<-f.gate
	}
}

func (f *fakeProducts) Create(_ context.Context, p domain.Product) (string, error) {
	f.hold()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.writeErr != nil {
		return "", f.writeErr
	}
	f.created = append(f.created, p)
	return "p" + strconv.Itoa(len(f.created)), nil
}

func (f *fakeProducts) Update(_ context.Context, id string, p domain.Product) error {
	f.hold()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.writeErr != nil {
		return f.writeErr
	}
	f.updated[id] = p
	return nil
}

func (f *fakeProducts) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.writeErr != nil {
		return f.writeErr
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeProducts) Watch(_ context.Context, fn func([]domain.Product, error)) (func(), error) {
	if f.watchErr != nil {
		return nil, f.watchErr
	}
	fn(nil, nil)
	return func() {
		f.mu.Lock()
		f.stopped++
		f.mu.Unlock()
	}, nil
}

func (f *fakeProducts) remoteCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeBrands struct {
	mu       sync.Mutex
	names    []string
	watchErr error
	stopped  int
}

func (f *fakeBrands) Watch(_ context.Context, fn func([]domain.Brand, error)) (func(), error) {
	if f.watchErr != nil {
		return nil, f.watchErr
	}
	bs := make([]domain.Brand, 0, len(f.names))
	for i, n := range f.names {
		bs = append(bs, domain.Brand{ID: "b" + strconv.Itoa(i), Name: n})
	}
	fn(bs, nil)
	return func() {
		f.mu.Lock()
		f.stopped++
		f.mu.Unlock()
	}, nil
}

type fakeLookup struct {
	mu    sync.Mutex
	addr  domain.Address
	err   error
	codes []string
}

func (f *fakeLookup) Lookup(_ context.Context, code string) (domain.Address, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.codes = append(f.codes, code)
	return f.addr, f.err
}

func (f *fakeLookup) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.codes)
}

func yes(string) bool { return true }
func no(string) bool  { return false }
