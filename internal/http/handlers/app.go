package handlers

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	html "github.com/gofiber/template/html/v2"

	"storefront/internal/config"
	applog "storefront/internal/log"
)

// ErrorHandler logs the failure and shows a generic page without internals.
func ErrorHandler(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) && fe.Code < fiber.StatusInternalServerError {
		status = fe.Code
	}
	applog.Error(c, "server.error", err, map[string]any{"status": status})
	if rerr := c.Status(status).Render("notfound", fiber.Map{
		"Message": "Something went wrong. Please try again.",
	}); rerr != nil {
		return c.Status(status).SendString("Something went wrong. Please try again.")
	}
	return nil
}

// NewApp builds the fiber application with the middleware stack and every route.
func NewApp(cfg config.Config, d *Deps) *fiber.App {
	engine := html.New(cfg.TemplatesDir, ".html")

	app := fiber.New(fiber.Config{
		Views:        engine,
		BodyLimit:    1 << 20,
		ErrorHandler: ErrorHandler,
	})

	app.Use(requestid.New())
	app.Use(logger.New())
	app.Use(helmet.New())
	// Attach the user for templates when the session is logged in.
	app.Use(func(c *fiber.Ctx) error {
		if sid := c.Cookies("sid"); sid != "" {
			if u, err := d.Auth.CurrentUser(sid); err == nil && u != nil {
				c.Locals("user", u)
			}
		}
		return c.Next()
	})
	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return strings.HasPrefix(c.Path(), "/static/") || c.Path() == "/healthz"
		},
	}))
	app.Use(csrf.New(csrf.Config{
		KeyLookup:      "form:csrf",
		CookieName:     "csrf_",
		CookieSameSite: "Lax",
		CookieSecure:   cfg.CookieSecure,
		Next: func(c *fiber.Ctx) bool {
			return strings.HasPrefix(c.Path(), "/api/")
		},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			applog.Security(c, "csrf.fail", map[string]any{"reason": err.Error()})
			return c.Status(fiber.StatusForbidden).Render("notfound", fiber.Map{"Message": "Security check failed. Please refresh and try again."})
		},
	}))
	app.Use(func(c *fiber.Ctx) error {
		if tok, ok := c.Locals("csrf").(string); ok {
			c.Locals("CSRFToken", tok)
		}
		return c.Next()
	})

	app.Static("/static", "./web/static")

	app.Get("/", Home)
	app.Get("/healthz", Health)

	// Auth (login throttled)
	app.Get("/login", d.AuthHandler.LoginForm)
	app.Post("/login", limiter.New(limiter.Config{
		Max:        5,
		Expiration: 10 * time.Minute,
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.login.hit", nil)
			return renderStatus(c, fiber.StatusTooManyRequests, "login", fiber.Map{"Err": "Too many attempts. Please try again later."})
		},
	}), d.AuthHandler.Login)
	app.Post("/logout", d.AuthHandler.Logout)

	// Store registration is public.
	app.Get("/cadastroloja", d.StoreHandler.Page)
	app.Post("/cadastroloja/cep", limiter.New(limiter.Config{
		Max:        20,
		Expiration: time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP() + "|postal"
		},
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.postal.hit", nil)
			return c.Redirect(storePath)
		},
	}), d.StoreHandler.Lookup)
	app.Post("/cadastroloja", d.StoreHandler.Submit)

	painel := app.Group("/painel", RequireAdmin(d.Auth))
	painel.Get("/", func(c *fiber.Ctx) error { return c.Redirect(productsPath) })
	painel.Get("/products", d.ProductHandler.Page)
	painel.Post("/products", d.ProductHandler.Submit)
	painel.Post("/products/cancel", d.ProductHandler.Cancel)
	painel.Post("/products/:id/edit", d.ProductHandler.Edit)
	painel.Get("/products/:id/delete", d.ProductHandler.ConfirmDelete)
	painel.Post("/products/:id/delete", d.ProductHandler.Delete)
	painel.Get("/brand", d.BrandHandler.List)
	painel.Post("/brand", d.BrandHandler.Create)
	painel.Post("/brand/:id/delete", d.BrandHandler.Delete)

	api := app.Group("/api/v1", RequireAdminAPI(d.Auth))
	api.Get("/products", d.ProductHandler.API)

	app.Use(func(c *fiber.Ctx) error {
		return notFound(c, "Page not found")
	})
	return app
}
