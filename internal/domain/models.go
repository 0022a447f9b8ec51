package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type Brand struct {
	ID   string
	Name string
}

// Product.Brand is a copy of the brand's name taken when the product was
// saved. It is not a reference: renaming or deleting the brand leaves
// existing products untouched.
type Product struct {
	ID        string
	Name      string
	Brand     string
	Price     decimal.Decimal
	Unit      string
	CreatedAt time.Time
}

// PriceLabel renders the price the way the list shows it, e.g. "R$ 12.50/kg".
func (p Product) PriceLabel() string {
	return fmt.Sprintf("R$ %s/%s", p.Price.StringFixed(2), p.Unit)
}

// Draft holds the product form's in-progress values. EditID is empty while
// creating and holds the product id while editing.
type Draft struct {
	Name   string `validate:"required"`
	Brand  string `validate:"required"`
	Price  string `validate:"required"`
	Unit   string `validate:"required"`
	EditID string
}

func (d Draft) Editing() bool { return d.EditID != "" }

type MessageKind string

const (
	MessageSuccess MessageKind = "success"
	MessageError   MessageKind = "error"
)

type Message struct {
	Text string
	Kind MessageKind
}

func (m Message) Empty() bool { return m.Text == "" }

type Address struct {
	Street string `validate:"required"`
	City   string `validate:"required"`
	Region string `validate:"required"`
}

func (a Address) Empty() bool { return a.Street == "" && a.City == "" && a.Region == "" }

// StoreDraft is the store registration form. Address is filled only by
// postal code lookup.
type StoreDraft struct {
	Name       string `validate:"required"`
	PostalCode string `validate:"required"`
	Address
}

// StoreRegistration is the confirmation shown after a successful submit.
type StoreRegistration struct {
	Name       string
	PostalCode string
	Address
}

func (r StoreRegistration) Summary() string {
	return fmt.Sprintf("Store registered: %s, %s, %s - %s, postal code %s",
		r.Name, r.Street, r.City, r.Region, r.PostalCode)
}
