package handlers

import (
	"github.com/gofiber/fiber/v2"

	"storefront/internal/apperror"
	"storefront/internal/log"
	"storefront/internal/panel"
)

const storePath = "/cadastroloja"

type StoreHandler struct {
	Sessions *panel.Sessions
}

func (h *StoreHandler) screen(c *fiber.Ctx) *panel.StoreScreen {
	return h.Sessions.Store(ensureSID(c))
}

// GET /cadastroloja
func (h *StoreHandler) Page(c *fiber.Ctx) error {
	return render(c, "store_register", fiber.Map{"View": h.screen(c).View()})
}

func blur(c *fiber.Ctx, s *panel.StoreScreen) {
	err := s.BlurPostalCode(c.UserContext())
	switch {
	case err == nil:
	case apperror.Is(err, apperror.RemoteRead):
		log.Error(c, "postal.lookup.fail", err, map[string]any{"postal_code": s.PostalCode()})
	default:
		log.Info(c, "postal.lookup.reject", map[string]any{"postal_code": s.PostalCode(), "reason": err.Error()})
	}
}

// POST /cadastroloja/cep is the postal code field losing focus.
func (h *StoreHandler) Lookup(c *fiber.Ctx) error {
	s := h.screen(c)
	s.SetName(c.FormValue("name"))
	s.SetPostalCode(c.FormValue("postal_code"))
	blur(c, s)
	return c.Redirect(storePath)
}

// POST /cadastroloja
func (h *StoreHandler) Submit(c *fiber.Ctx) error {
	s := h.screen(c)
	s.SetName(c.FormValue("name"))
	if code := c.FormValue("postal_code"); code != s.PostalCode() {
		s.SetPostalCode(code)
		blur(c, s)
	}
	reg, err := s.Submit()
	if err != nil {
		log.Info(c, "validation.fail", map[string]any{"action": "store.register", "reason": err.Error()})
		return renderStatus(c, fiber.StatusBadRequest, "store_register", fiber.Map{"View": s.View()})
	}
	log.Audit(c, "store.register", map[string]any{
		"name": reg.Name, "postal_code": reg.PostalCode, "city": reg.City, "region": reg.Region,
	})
	return render(c, "store_register", fiber.Map{"View": s.View(), "Confirmation": reg.Summary()})
}
