package repos

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"storefront/internal/docstore"
	"storefront/internal/domain"
)

const ProductsCollection = "products"

// productDoc is the stored shape. Price is a JSON number written from the
// decimal's own text, so it never passes through float64.
type productDoc struct {
	Name  string      `json:"name"`
	Brand string      `json:"brand"`
	Price json.Number `json:"price"`
	Unit  string      `json:"unit"`
}

func toProductDoc(p domain.Product) productDoc {
	return productDoc{Name: p.Name, Brand: p.Brand, Price: json.Number(p.Price.String()), Unit: p.Unit}
}

func fromProductDoc(d docstore.Document) (domain.Product, error) {
	var pd productDoc
	if err := d.Decode(&pd); err != nil {
		return domain.Product{}, err
	}
	price := decimal.Zero
	if pd.Price != "" {
		var err error
		if price, err = decimal.NewFromString(pd.Price.String()); err != nil {
			return domain.Product{}, errors.Wrapf(err, "repos: bad price on product %s", d.ID)
		}
	}
	return domain.Product{
		ID:        d.ID,
		Name:      pd.Name,
		Brand:     pd.Brand,
		Price:     price,
		Unit:      pd.Unit,
		CreatedAt: d.CreatedAt,
	}, nil
}

// newestFirst is the ordering of every product snapshot.
var newestFirst = docstore.Query{OrderBy: docstore.CreatedAt, Desc: true}

type ProductRepo struct{ docs *docstore.Collection }

func NewProductRepo(store *docstore.Store) *ProductRepo {
	return &ProductRepo{docs: store.Collection(ProductsCollection)}
}

func (r *ProductRepo) Create(ctx context.Context, p domain.Product) (string, error) {
	return r.docs.Create(ctx, toProductDoc(p))
}

func (r *ProductRepo) Update(ctx context.Context, id string, p domain.Product) error {
	return r.docs.Update(ctx, id, toProductDoc(p))
}

func (r *ProductRepo) Delete(ctx context.Context, id string) error {
	return r.docs.Delete(ctx, id)
}

func (r *ProductRepo) Get(ctx context.Context, id string) (domain.Product, error) {
	d, err := r.docs.Get(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	return fromProductDoc(d)
}

// List returns all products, newest first.
func (r *ProductRepo) List(ctx context.Context) ([]domain.Product, error) {
	docs, err := r.docs.Query(ctx, newestFirst)
	if err != nil {
		return nil, err
	}
	return decodeAll(docs, fromProductDoc)
}

// Watch streams newest-first product snapshots to fn until stop is called.
func (r *ProductRepo) Watch(ctx context.Context, fn func([]domain.Product, error)) (func(), error) {
	return r.docs.Watch(ctx, newestFirst, func(docs []docstore.Document, err error) {
		if err != nil {
			fn(nil, err)
			return
		}
		fn(decodeAll(docs, fromProductDoc))
	})
}

func decodeAll[T any](docs []docstore.Document, dec func(docstore.Document) (T, error)) ([]T, error) {
	out := make([]T, 0, len(docs))
	for _, d := range docs {
		v, err := dec(d)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
