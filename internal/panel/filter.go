package panel

import (
	"strings"

	"storefront/internal/domain"
)

// FilterProducts returns the products whose name or brand contains term,
// ignoring case. An empty term keeps every product. The input is never
// modified; the result is always a fresh slice.
func FilterProducts(products []domain.Product, term string) []domain.Product {
	out := make([]domain.Product, 0, len(products))
	needle := strings.ToLower(term)
	for _, p := range products {
		if needle == "" ||
			strings.Contains(strings.ToLower(p.Name), needle) ||
			strings.Contains(strings.ToLower(p.Brand), needle) {
			out = append(out, p)
		}
	}
	return out
}
