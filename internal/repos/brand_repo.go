package repos

import (
	"context"

	"storefront/internal/docstore"
	"storefront/internal/domain"
)

const BrandsCollection = "brands"

type brandDoc struct {
	Name string `json:"name"`
}

func fromBrandDoc(d docstore.Document) (domain.Brand, error) {
	var bd brandDoc
	if err := d.Decode(&bd); err != nil {
		return domain.Brand{}, err
	}
	return domain.Brand{ID: d.ID, Name: bd.Name}, nil
}

var byName = docstore.Query{OrderBy: "name"}

type BrandRepo struct{ docs *docstore.Collection }

func NewBrandRepo(store *docstore.Store) *BrandRepo {
	return &BrandRepo{docs: store.Collection(BrandsCollection)}
}

func (r *BrandRepo) Create(ctx context.Context, name string) (string, error) {
	return r.docs.Create(ctx, brandDoc{Name: name})
}

func (r *BrandRepo) Delete(ctx context.Context, id string) error {
	return r.docs.Delete(ctx, id)
}

func (r *BrandRepo) List(ctx context.Context) ([]domain.Brand, error) {
	docs, err := r.docs.Query(ctx, byName)
	if err != nil {
		return nil, err
	}
	return decodeAll(docs, fromBrandDoc)
}

func (r *BrandRepo) Watch(ctx context.Context, fn func([]domain.Brand, error)) (func(), error) {
	return r.docs.Watch(ctx, byName, func(docs []docstore.Document, err error) {
		if err != nil {
			fn(nil, err)
			return
		}
		fn(decodeAll(docs, fromBrandDoc))
	})
}

// SeedBrands inserts the given brands when the collection is empty.
func SeedBrands(ctx context.Context, r *BrandRepo, names ...string) (int, error) {
	existing, err := r.List(ctx)
	if err != nil || len(existing) > 0 {
		return 0, err
	}
	for i, n := range names {
		if _, err := r.Create(ctx, n); err != nil {
			return i, err
		}
	}
	return len(names), nil
}
