package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"storefront/internal/apperror"
	"storefront/internal/domain"
	"storefront/internal/log"
	"storefront/internal/panel"
	"storefront/internal/validate"
)

const productsPath = "/painel/products"

var productFields = []string{"name", "brand", "price", "unit"}

type ProductHandler struct {
	Sessions *panel.Sessions
}

func (h *ProductHandler) screen(c *fiber.Ctx) (*panel.ProductScreen, error) {
	ps, err := h.Sessions.Products(ensureSID(c))
	if err != nil {
		log.Error(c, "panel.activate.fail", err, nil)
	}
	return ps, err
}

func unavailable(c *fiber.Ctx) error {
	return renderStatus(c, fiber.StatusServiceUnavailable, "notfound", fiber.Map{
		"Message": "Could not load products. Please retry.",
	})
}

// logOutcome records what a screen operation did. Validation problems are
// already shown to the user and are only logged at info level.
func logOutcome(c *fiber.Ctx, action string, err error, fields map[string]any) {
	switch {
	case err == nil:
		log.Audit(c, action, fields)
	case errors.Is(err, panel.ErrDeactivated):
		log.Info(c, "panel.stale", fields)
	case apperror.Is(err, apperror.RemoteWrite):
		log.Error(c, action+".fail", err, fields)
	default:
		log.Info(c, "validation.fail", map[string]any{"action": action, "reason": err.Error()})
	}
}

// GET /painel/products?q=
func (h *ProductHandler) Page(c *fiber.Ctx) error {
	ps, err := h.screen(c)
	if err != nil {
		return unavailable(c)
	}
	return render(c, "products", fiber.Map{"View": ps.View(validate.Q(c.Query("q")))})
}

// POST /painel/products
func (h *ProductHandler) Submit(c *fiber.Ctx) error {
	ps, err := h.screen(c)
	if err != nil {
		return unavailable(c)
	}
	form := make(map[string]string, len(productFields))
	for _, f := range productFields {
		form[f] = c.FormValue(f)
	}
	editID := ps.Draft().EditID
	action := "product.create"
	if editID != "" {
		action = "product.update"
	}
	err = ps.SubmitForm(c.UserContext(), form)
	if apperror.Is(err, apperror.RemoteWrite) {
		action = "product.save"
	}
	logOutcome(c, action, err, map[string]any{"id": editID, "name": form["name"], "brand": form["brand"]})
	return c.Redirect(productsPath)
}

// POST /painel/products/cancel
func (h *ProductHandler) Cancel(c *fiber.Ctx) error {
	ps, err := h.screen(c)
	if err != nil {
		return unavailable(c)
	}
	ps.CancelEdit()
	return c.Redirect(productsPath)
}

// POST /painel/products/:id/edit
func (h *ProductHandler) Edit(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		log.Security(c, "validation.fail", map[string]any{"field": "id"})
		return notFound(c, "Product not found")
	}
	ps, err := h.screen(c)
	if err != nil {
		return unavailable(c)
	}
	_ = ps.BeginEditID(id)
	return c.Redirect(productsPath)
}

// GET /painel/products/:id/delete
func (h *ProductHandler) ConfirmDelete(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return notFound(c, "Product not found")
	}
	ps, err := h.screen(c)
	if err != nil {
		return unavailable(c)
	}
	p, found := ps.Find(id)
	if !found {
		return notFound(c, "Product not found")
	}
	return render(c, "product_delete", fiber.Map{"Product": p, "Prompt": panel.DeletePrompt})
}

// POST /painel/products/:id/delete with confirm=yes
func (h *ProductHandler) Delete(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		log.Security(c, "validation.fail", map[string]any{"field": "id"})
		return notFound(c, "Product not found")
	}
	ps, err := h.screen(c)
	if err != nil {
		return unavailable(c)
	}
	confirmed := c.FormValue("confirm") == "yes"
	err = ps.Delete(c.UserContext(), id, func(string) bool { return confirmed })
	if confirmed {
		logOutcome(c, "product.delete", err, map[string]any{"id": id})
	}
	return c.Redirect(productsPath)
}

type productJSON struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Brand     string          `json:"brand"`
	Price     decimal.Decimal `json:"price"`
	Unit      string          `json:"unit"`
	CreatedAt time.Time       `json:"createdAt"`
}

func toJSON(ps []domain.Product) []productJSON {
	out := make([]productJSON, 0, len(ps))
	for _, p := range ps {
		out = append(out, productJSON{ID: p.ID, Name: p.Name, Brand: p.Brand, Price: p.Price, Unit: p.Unit, CreatedAt: p.CreatedAt})
	}
	return out
}

// GET /api/v1/products?q=
func (h *ProductHandler) API(c *fiber.Ctx) error {
	ps, err := h.Sessions.Products(ensureSID(c))
	if err != nil {
		log.Error(c, "panel.activate.fail", err, nil)
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "products unavailable, retry soon"})
	}
	v := ps.View(validate.Q(c.Query("q")))
	return c.JSON(fiber.Map{"q": v.Search, "total": v.Total, "products": toJSON(v.Products)})
}
