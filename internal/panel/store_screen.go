package panel

import (
	"context"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"storefront/internal/apperror"
	"storefront/internal/domain"
	"storefront/internal/postal"
	"storefront/internal/validate"
)

const (
	msgPostalLength    = "postal code must have exactly 8 digits"
	msgPostalNotFound  = "postal code not found"
	msgPostalFailed    = "could not look up postal code"
	msgStoreIncomplete = "please fill in all fields correctly"
)

// PostalLookup resolves a validated postal code to an address.
type PostalLookup interface {
	Lookup(ctx context.Context, code string) (domain.Address, error)
}

type StoreView struct {
	Draft domain.StoreDraft
	Error string
}

// StoreScreen is the store registration form. The address is never typed;
// it is filled in by a postal lookup when the postal code field loses focus.
type StoreScreen struct {
	lookup PostalLookup

	mu    sync.Mutex
	draft domain.StoreDraft
	err   string
}

func NewStoreScreen(lookup PostalLookup) *StoreScreen {
	return &StoreScreen{lookup: lookup}
}

func (s *StoreScreen) SetName(v string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft.Name = v
}

func (s *StoreScreen) SetPostalCode(v string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft.PostalCode = v
}

func (s *StoreScreen) PostalCode() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft.PostalCode
}

// BlurPostalCode validates the current postal code and, when it has the
// right shape, fills the address from the lookup. A malformed code never
// reaches the lookup. Any failure clears the address.
func (s *StoreScreen) BlurPostalCode(ctx context.Context) error {
	s.mu.Lock()
	code := s.draft.PostalCode
	if !validate.PostalCode(code) {
		s.err = msgPostalLength
		s.draft.Address = domain.Address{}
		s.mu.Unlock()
		return apperror.Validationf("%s: %q", msgPostalLength, code)
	}
	s.mu.Unlock()

	addr, err := s.lookup.Lookup(ctx, code)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.draft.PostalCode != code {
		// The code changed while the lookup was in flight.
		return nil
	}
	switch {
	case errors.Is(err, postal.ErrNotFound):
		s.err = msgPostalNotFound
		s.draft.Address = domain.Address{}
		return apperror.New(apperror.NotFound, err, msgPostalNotFound)
	case err != nil:
		s.err = msgPostalFailed
		s.draft.Address = domain.Address{}
		return apperror.WrapRead(err, msgPostalFailed)
	}
	s.err = ""
	s.draft.Address = addr
	return nil
}

// Submit checks that every field is filled, including the looked-up
// address, and returns the registration. The form is reset on success.
func (s *StoreScreen) Submit() (domain.StoreRegistration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if missing := validate.Missing(s.draft); len(missing) > 0 || strings.TrimSpace(s.draft.Name) == "" {
		s.err = msgStoreIncomplete
		return domain.StoreRegistration{}, apperror.Validationf("%s: %s", msgStoreIncomplete, strings.Join(missing, ", "))
	}
	reg := domain.StoreRegistration{
		Name:       s.draft.Name,
		PostalCode: s.draft.PostalCode,
		Address:    s.draft.Address,
	}
	s.draft = domain.StoreDraft{}
	s.err = ""
	return reg, nil
}

func (s *StoreScreen) View() StoreView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return StoreView{Draft: s.draft, Error: s.err}
}
