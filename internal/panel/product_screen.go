// Package panel holds the per-session screen controllers of the admin panel
// and the store registration page. Every controller serializes its events
// with its own mutex and never holds it across a remote call.
package panel

import (
	"context"
	"errors"
	"strings"
	"sync"

	"storefront/internal/apperror"
	"storefront/internal/domain"
	applog "storefront/internal/log"
	"storefront/internal/validate"
)

var ErrDeactivated = errors.New("panel: screen deactivated")

const (
	msgFillAll      = "fill in all fields"
	msgBadPrice     = "price must be a non-negative number"
	msgBadBrand     = "select a valid brand"
	msgBusy         = "a save is already in progress"
	msgCreated      = "product created"
	msgUpdated      = "product updated"
	msgSaveFailed   = "could not save product"
	msgDeleted      = "product deleted"
	msgDeleteFailed = "could not delete product"
	msgNotInList    = "product not found"
	msgLoadFailed   = "could not load products"
)

// DeletePrompt is the question put to the user before a delete.
const DeletePrompt = "delete this product?"

type FormState int

const (
	Creating FormState = iota
	Editing
	Submitting
)

func (s FormState) String() string {
	switch s {
	case Creating:
		return "creating"
	case Editing:
		return "editing"
	case Submitting:
		return "submitting"
	default:
		return "unknown"
	}
}

// ProductStore is the products collection as the screen uses it.
type ProductStore interface {
	Create(ctx context.Context, p domain.Product) (string, error)
	Update(ctx context.Context, id string, p domain.Product) error
	Delete(ctx context.Context, id string) error
	Watch(ctx context.Context, fn func([]domain.Product, error)) (func(), error)
}

type BrandSource interface {
	Watch(ctx context.Context, fn func([]domain.Brand, error)) (func(), error)
}

// Confirm asks the user a yes/no question and reports the answer.
type Confirm func(prompt string) bool

// ProductView is everything the product page renders.
type ProductView struct {
	Draft    domain.Draft
	State    FormState
	Message  domain.Message
	Brands   []domain.Brand
	Products []domain.Product
	Total    int
	Search   string
}

func (v ProductView) Editing() bool    { return v.Draft.Editing() }
func (v ProductView) Submitting() bool { return v.State == Submitting }

type ProductScreen struct {
	products ProductStore
	brands   BrandSource
	flash    *Flash

	mu         sync.Mutex
	draft      domain.Draft
	submitting bool
	snapshot   []domain.Product
	brandList  []domain.Brand
	stops      []func()
	active     bool
	closed     bool
}

func NewProductScreen(products ProductStore, brands BrandSource, flash *Flash) *ProductScreen {
	if flash == nil {
		flash = NewFlash(MessageTTL)
	}
	return &ProductScreen{products: products, brands: brands, flash: flash}
}

// Activate opens the product and brand subscriptions. ctx bounds their
// lifetime and should outlive any single request. If the second
// subscription fails the first is released before returning.
func (s *ProductScreen) Activate(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrDeactivated
	}
	if s.active {
		s.mu.Unlock()
		return nil
	}
	s.active = true
	s.mu.Unlock()

	stopProducts, err := s.products.Watch(ctx, s.onProducts)
	if err != nil {
		return s.activateFailed(err)
	}
	stopBrands, err := s.brands.Watch(ctx, s.onBrands)
	if err != nil {
		stopProducts()
		return s.activateFailed(err)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		stopBrands()
		stopProducts()
		return ErrDeactivated
	}
	s.stops = []func(){stopProducts, stopBrands}
	s.mu.Unlock()
	return nil
}

func (s *ProductScreen) activateFailed(err error) error {
	s.mu.Lock()
	s.active = false
	s.mu.Unlock()
	s.flash.Error(msgLoadFailed)
	return apperror.WrapRead(err, msgLoadFailed)
}

// Deactivate releases both subscriptions and the message timer. It is
// idempotent, and the screen cannot be reactivated afterwards.
func (s *ProductScreen) Deactivate() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.active = false
	stops := s.stops
	s.stops = nil
	s.mu.Unlock()

	// Listener callbacks take s.mu, so stop them without holding it.
	for i := len(stops) - 1; i >= 0; i-- {
		stops[i]()
	}
	s.flash.Stop()
}

func (s *ProductScreen) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

func (s *ProductScreen) onProducts(ps []domain.Product, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if err != nil {
		applog.Fail("panel.snapshot.fail", err, map[string]any{"collection": "products"})
		s.flash.Error(msgLoadFailed)
		return
	}
	s.snapshot = ps
}

func (s *ProductScreen) onBrands(bs []domain.Brand, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if err != nil {
		applog.Fail("panel.snapshot.fail", err, map[string]any{"collection": "brands"})
		s.flash.Error(msgLoadFailed)
		return
	}
	s.brandList = bs
}

// UpdateField merges one form field into the draft. Unknown names are ignored.
func (s *ProductScreen) UpdateField(name, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setField(name, value)
}

func (s *ProductScreen) setField(name, value string) {
	switch strings.ToLower(name) {
	case "name":
		s.draft.Name = value
	case "brand":
		s.draft.Brand = value
	case "price":
		s.draft.Price = value
	case "unit":
		s.draft.Unit = value
	}
}

// Submit validates the draft and creates or updates the product. Every
// outcome is reported through the message; the returned error is for logging.
func (s *ProductScreen) Submit(ctx context.Context) error {
	return s.SubmitForm(ctx, nil)
}

// SubmitForm merges fields into the draft and submits it in one step. While
// a save is in flight the fields are dropped along with the request, so the
// draft being saved is never touched.
func (s *ProductScreen) SubmitForm(ctx context.Context, fields map[string]string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrDeactivated
	}
	if s.submitting {
		s.flash.Error(msgBusy)
		s.mu.Unlock()
		return apperror.Validationf(msgBusy)
	}
	for name, value := range fields {
		s.setField(name, value)
	}
	draft := s.draft
	if missing := validate.Missing(draft); len(missing) > 0 {
		s.flash.Error(msgFillAll)
		s.mu.Unlock()
		return apperror.Validationf("%s: %s", msgFillAll, strings.Join(missing, ", "))
	}
	price, ok := validate.Price(draft.Price)
	if !ok {
		s.flash.Error(msgBadPrice)
		s.mu.Unlock()
		return apperror.Validationf(msgBadPrice)
	}
	if !s.hasBrand(draft.Brand) {
		s.flash.Error(msgBadBrand)
		s.mu.Unlock()
		return apperror.Validationf("%s: %q", msgBadBrand, draft.Brand)
	}
	s.submitting = true
	s.mu.Unlock()

	p := domain.Product{Name: draft.Name, Brand: draft.Brand, Price: price, Unit: draft.Unit}
	var err error
	if draft.Editing() {
		err = s.products.Update(ctx, draft.EditID, p)
	} else {
		_, err = s.products.Create(ctx, p)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.submitting = false
	if s.closed {
		return ErrDeactivated
	}
	if err != nil {
		s.flash.Error(msgSaveFailed)
		return apperror.WrapWrite(err, msgSaveFailed)
	}
	s.draft = domain.Draft{}
	if draft.Editing() {
		s.flash.Success(msgUpdated)
	} else {
		s.flash.Success(msgCreated)
	}
	return nil
}

func (s *ProductScreen) hasBrand(name string) bool {
	for _, b := range s.brandList {
		if b.Name == name {
			return true
		}
	}
	return false
}

// BeginEdit loads p into the draft and switches to edit mode.
func (s *ProductScreen) BeginEdit(p domain.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft = domain.Draft{
		Name:   p.Name,
		Brand:  p.Brand,
		Price:  p.Price.String(),
		Unit:   p.Unit,
		EditID: p.ID,
	}
}

// BeginEditID edits the product with the given id from the local snapshot.
func (s *ProductScreen) BeginEditID(id string) error {
	p, ok := s.Find(id)
	if !ok {
		s.flash.Error(msgNotInList)
		return apperror.New(apperror.NotFound, nil, msgNotInList)
	}
	s.BeginEdit(p)
	return nil
}

func (s *ProductScreen) CancelEdit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft = domain.Draft{}
}

// Delete removes the product once confirm approves. The list changes only
// when the next snapshot arrives.
func (s *ProductScreen) Delete(ctx context.Context, id string, confirm Confirm) error {
	if confirm == nil || !confirm(DeletePrompt) {
		return nil
	}
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return ErrDeactivated
	}

	err := s.products.Delete(ctx, id)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrDeactivated
	}
	if err != nil {
		s.flash.Error(msgDeleteFailed)
		return apperror.WrapWrite(err, msgDeleteFailed)
	}
	s.flash.Success(msgDeleted)
	return nil
}

// Find looks id up in the latest snapshot.
func (s *ProductScreen) Find(id string) (domain.Product, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.snapshot {
		if p.ID == id {
			return p, true
		}
	}
	return domain.Product{}, false
}

func (s *ProductScreen) Draft() domain.Draft {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft
}

func (s *ProductScreen) State() FormState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state()
}

func (s *ProductScreen) state() FormState {
	switch {
	case s.submitting:
		return Submitting
	case s.draft.Editing():
		return Editing
	default:
		return Creating
	}
}

func (s *ProductScreen) Message() domain.Message { return s.flash.Current() }

// View renders the screen with the product list filtered by search.
func (s *ProductScreen) View(search string) ProductView {
	s.mu.Lock()
	defer s.mu.Unlock()
	brands := make([]domain.Brand, len(s.brandList))
	copy(brands, s.brandList)
	return ProductView{
		Draft:    s.draft,
		State:    s.state(),
		Message:  s.flash.Current(),
		Brands:   brands,
		Products: FilterProducts(s.snapshot, search),
		Total:    len(s.snapshot),
		Search:   search,
	}
}
