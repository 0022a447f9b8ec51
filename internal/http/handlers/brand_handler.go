package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"storefront/internal/domain"
	"storefront/internal/log"
	"storefront/internal/repos"
	"storefront/internal/validate"
)

const brandsPath = "/painel/brand"

type BrandHandler struct {
	Brands *repos.BrandRepo
}

func (h *BrandHandler) page(c *fiber.Ctx, status int, errMsg string) error {
	brands, err := h.Brands.List(c.UserContext())
	if err != nil {
		log.Error(c, "brand.list.fail", err, nil)
		return renderStatus(c, fiber.StatusInternalServerError, "notfound", fiber.Map{"Message": "Could not load brands"})
	}
	return renderStatus(c, status, "brands", fiber.Map{"Brands": brands, "Err": errMsg})
}

// GET /painel/brand
func (h *BrandHandler) List(c *fiber.Ctx) error {
	return h.page(c, fiber.StatusOK, "")
}

func taken(brands []domain.Brand, name string) bool {
	for _, b := range brands {
		if strings.EqualFold(b.Name, name) {
			return true
		}
	}
	return false
}

// POST /painel/brand
func (h *BrandHandler) Create(c *fiber.Ctx) error {
	name, ok := validate.Name(c.FormValue("name"))
	if !ok {
		log.Info(c, "validation.fail", map[string]any{"field": "brand.name"})
		return h.page(c, fiber.StatusBadRequest, "Enter a brand name")
	}
	existing, err := h.Brands.List(c.UserContext())
	if err != nil {
		log.Error(c, "brand.list.fail", err, nil)
		return h.page(c, fiber.StatusInternalServerError, "Could not save brand")
	}
	if taken(existing, name) {
		return h.page(c, fiber.StatusConflict, "That brand already exists")
	}
	id, err := h.Brands.Create(c.UserContext(), name)
	if err != nil {
		log.Error(c, "brand.create.fail", err, map[string]any{"name": name})
		return h.page(c, fiber.StatusInternalServerError, "Could not save brand")
	}
	log.Audit(c, "brand.create", map[string]any{"id": id, "name": name})
	return c.Redirect(brandsPath)
}

// POST /painel/brand/:id/delete
func (h *BrandHandler) Delete(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return notFound(c, "Brand not found")
	}
	if err := h.Brands.Delete(c.UserContext(), id); err != nil {
		log.Error(c, "brand.delete.fail", err, map[string]any{"id": id})
		return h.page(c, fiber.StatusNotFound, "Could not delete brand")
	}
	log.Audit(c, "brand.delete", map[string]any{"id": id})
	return c.Redirect(brandsPath)
}
