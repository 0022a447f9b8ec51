package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"storefront/internal/domain"
)

func productForm(name, brand, price, unit string) url.Values {
	return url.Values{"name": {name}, "brand": {brand}, "price": {price}, "unit": {unit}}
}

// waitForBrands blocks until the panel shows the seeded brands, so that
// brand validation runs against a populated snapshot.
func waitForBrands(t *testing.T, c *client) {
	t.Helper()
	eventually(t, "brand snapshot", func() bool {
		_, body := c.get("/painel/products")
		return strings.Contains(body, `<option value="Acme"`)
	})
}

func TestPanelRequiresAdmin(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.client(t, "").get("/painel/products")
	if resp.StatusCode != http.StatusFound || resp.Header.Get("Location") != "/login" {
		t.Fatalf("anonymous: expected redirect to /login, got %d %q", resp.StatusCode, resp.Header.Get("Location"))
	}

	resp, body := env.client(t, "sid-clerk").get("/painel/products")
	if resp.StatusCode != http.StatusForbidden || !strings.Contains(body, "Access denied") {
		t.Fatalf("clerk: expected 403 Access denied, got %d", resp.StatusCode)
	}

	resp, _ = env.client(t, "").get("/api/v1/products")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("api anonymous: expected 401, got %d", resp.StatusCode)
	}
}

func TestCreateProductShowsInList(t *testing.T) {
	env := newTestEnv(t)
	c := env.client(t, adminSID)
	waitForBrands(t, c)

	resp := c.post("/painel/products", productForm("Rice", "Acme", "12.50", "kg"))
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("expected redirect after submit, got %d", resp.StatusCode)
	}

	_, body := c.get("/painel/products")
	if !strings.Contains(body, "product created") {
		t.Fatalf("success message missing; body=%s", body)
	}
	eventually(t, "product in list", func() bool {
		_, body := c.get("/painel/products")
		return strings.Contains(body, "R$ 12.50/kg")
	})

	stored, err := env.products.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(stored) != 1 || stored[0].Name != "Rice" || stored[0].Brand != "Acme" || !stored[0].Price.Equal(decimal.RequireFromString("12.5")) {
		t.Fatalf("unexpected stored products: %+v", stored)
	}
}

func TestInvalidSubmitsNeverWrite(t *testing.T) {
	env := newTestEnv(t)
	c := env.client(t, adminSID)
	waitForBrands(t, c)

	cases := []struct {
		form url.Values
		msg  string
	}{
		{productForm("Rice", "Acme", "12.50", ""), "fill in all fields"},
		{productForm("Rice", "Acme", "abc", "kg"), "price must be a non-negative number"},
		{productForm("Rice", "Acme", "-3", "kg"), "price must be a non-negative number"},
		{productForm("Rice", "Initech", "3", "kg"), "select a valid brand"},
	}
	for _, tc := range cases {
		c.post("/painel/products", tc.form)
		_, body := c.get("/painel/products")
		if !strings.Contains(body, tc.msg) {
			t.Fatalf("expected %q; body=%s", tc.msg, body)
		}
	}

	stored, _ := env.products.List(context.Background())
	if len(stored) != 0 {
		t.Fatalf("invalid submits must not write, found %d products", len(stored))
	}
}

func TestEditAndCancel(t *testing.T) {
	env := newTestEnv(t)
	id, err := env.products.Create(context.Background(), domain.Product{Name: "Beans", Brand: "Globex", Price: decimal.RequireFromString("7.5"), Unit: "un"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	c := env.client(t, adminSID)
	waitForBrands(t, c)
	eventually(t, "product snapshot", func() bool {
		_, body := c.get("/painel/products")
		return strings.Contains(body, "Beans")
	})

	c.post("/painel/products/"+id+"/edit", nil)
	_, body := c.get("/painel/products")
	if !strings.Contains(body, "Edit product") || !strings.Contains(body, `value="7.5"`) {
		t.Fatalf("edit mode not shown; body=%s", body)
	}

	c.post("/painel/products/cancel", nil)
	_, body = c.get("/painel/products")
	if !strings.Contains(body, "New product") {
		t.Fatalf("cancel did not return to create mode")
	}

	c.post("/painel/products/"+id+"/edit", nil)
	c.post("/painel/products", productForm("Black beans", "Globex", "8", "un"))
	_, body = c.get("/painel/products")
	if !strings.Contains(body, "product updated") {
		t.Fatalf("update message missing; body=%s", body)
	}
	p, err := env.products.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if p.Name != "Black beans" || !p.Price.Equal(decimal.NewFromInt(8)) {
		t.Fatalf("update not applied: %+v", p)
	}
}

func TestDeleteNeedsConfirmation(t *testing.T) {
	env := newTestEnv(t)
	id, _ := env.products.Create(context.Background(), domain.Product{Name: "Milk", Brand: "Acme", Price: decimal.NewFromInt(5), Unit: "l"})
	c := env.client(t, adminSID)
	eventually(t, "product snapshot", func() bool {
		_, body := c.get("/painel/products")
		return strings.Contains(body, "Milk")
	})

	resp, body := c.get("/painel/products/" + id + "/delete")
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, "delete this product?") {
		t.Fatalf("confirm page missing, status %d", resp.StatusCode)
	}

	c.post("/painel/products/"+id+"/delete", nil)
	if _, err := env.products.Get(context.Background(), id); err != nil {
		t.Fatalf("declined delete removed the product: %v", err)
	}

	c.post("/painel/products/"+id+"/delete", url.Values{"confirm": {"yes"}})
	_, body = c.get("/painel/products")
	if !strings.Contains(body, "product deleted") {
		t.Fatalf("delete message missing")
	}
	eventually(t, "product gone", func() bool {
		_, body := c.get("/painel/products")
		return !strings.Contains(body, "Milk")
	})
}

func TestSearchAndAPI(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, _ = env.products.Create(ctx, domain.Product{Name: "Rice", Brand: "Acme", Price: decimal.NewFromInt(10), Unit: "kg"})
	_, _ = env.products.Create(ctx, domain.Product{Name: "Beans", Brand: "Globex", Price: decimal.NewFromInt(7), Unit: "kg"})
	c := env.client(t, adminSID)
	eventually(t, "product snapshot", func() bool {
		_, body := c.get("/painel/products")
		return strings.Contains(body, "Rice") && strings.Contains(body, "Beans")
	})

	_, body := c.get("/painel/products?q=GLOB")
	if strings.Contains(body, "Rice") || !strings.Contains(body, "Beans") {
		t.Fatalf("search by brand failed")
	}

	resp, raw := c.get("/api/v1/products?q=rice")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("api status %d", resp.StatusCode)
	}
	var out struct {
		Total    int `json:"total"`
		Products []struct {
			Name  string `json:"name"`
			Price string `json:"price"`
		} `json:"products"`
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Total != 2 || len(out.Products) != 1 || out.Products[0].Name != "Rice" || out.Products[0].Price != "10" {
		t.Fatalf("unexpected api payload: %s", raw)
	}
}

func TestBrandLifecycle(t *testing.T) {
	env := newTestEnv(t)
	c := env.client(t, adminSID)

	resp := c.post("/painel/brand", url.Values{"name": {"Initech"}})
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("create brand: expected redirect, got %d", resp.StatusCode)
	}
	resp = c.post("/painel/brand", url.Values{"name": {"acme"}})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate brand: expected 409, got %d", resp.StatusCode)
	}
	resp = c.post("/painel/brand", url.Values{"name": {"  "}})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("blank brand: expected 400, got %d", resp.StatusCode)
	}

	brands, _ := env.brands.List(context.Background())
	if len(brands) != 3 {
		t.Fatalf("expected 3 brands, got %d", len(brands))
	}
	var initech string
	for _, b := range brands {
		if b.Name == "Initech" {
			initech = b.ID
		}
	}
	c.post("/painel/brand/"+initech+"/delete", nil)
	_, body := c.get("/painel/brand")
	if strings.Contains(body, "Initech") {
		t.Fatalf("deleted brand still listed")
	}
}
