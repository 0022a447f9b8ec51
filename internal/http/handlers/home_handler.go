package handlers

import "github.com/gofiber/fiber/v2"

// GET /
func Home(c *fiber.Ctx) error {
	return render(c, "home", nil)
}

// GET /healthz
func Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"ok": true})
}
