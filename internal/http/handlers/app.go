package handlers

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"homeessence/internal/config"
	applog "homeessence/internal/log"
	"homeessence/internal/metrics"
)

// ErrorHandler logs the failure and shows a friendly page without internals.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := "Something went wrong. Please try again."
	var fe *fiber.Error
	if errors.As(err, &fe) && fe.Code < 500 {
		code = fe.Code
		msg = "Page not found"
		if code != fiber.StatusNotFound {
			msg = "The request could not be processed."
		}
	}
	applog.Error(c, "server.error", err, map[string]any{"status": code})
	if strings.HasPrefix(c.Path(), "/api/") {
		return c.Status(code).JSON(fiber.Map{"error": msg})
	}
	if rerr := c.Status(code).Render("notfound", fiber.Map{"Message": msg}); rerr != nil {
		return c.Status(code).SendString(msg)
	}
	return nil
}

func skipLimiter(c *fiber.Ctx) bool {
	p := c.Path()
	return strings.HasPrefix(p, "/static/") || p == "/healthz" || p == "/metrics"
}

// NewApp builds the fiber app: templates, the middleware chain and every route.
func NewApp(cfg config.Config, d *Deps) *fiber.App {
	engine := NewEngine(cfg.TemplatesDir)
	app := fiber.New(fiber.Config{
		Views:        engine,
		ErrorHandler: ErrorHandler,
	})
	app.Server().MaxRequestBodySize = 1 << 20 // 1 MiB

	// ---------- Middlewares ----------
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(logger.New())
	app.Use(helmet.New())
	app.Use(metrics.Middleware())
	// Attach user to context if logged in (for templates and log entries)
	app.Use(func(c *fiber.Ctx) error {
		if sid := c.Cookies("sid"); sid != "" {
			if u, err := d.Auth.CurrentUser(sid); err == nil && u != nil {
				c.Locals("user", u)
			}
		}
		return c.Next()
	})
	rate := cfg.RateLimit
	if rate <= 0 {
		rate = 120
	}
	app.Use(limiter.New(limiter.Config{
		Max:        rate,
		Expiration: time.Minute,
		Next:       skipLimiter,
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.global.hit", nil)
			return c.Status(fiber.StatusTooManyRequests).SendString("Too many requests. Please slow down.")
		},
	}))
	app.Use(csrf.New(csrf.Config{
		KeyLookup:      "form:csrf",
		CookieName:     "csrf_",
		CookieSameSite: "Lax",
		ContextKey:     "csrf",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			applog.Security(c, "csrf.fail", map[string]any{"err": err.Error()})
			return c.Status(fiber.StatusForbidden).Render("notfound", fiber.Map{"Message": "Security check failed. Please refresh and try again."})
		},
	}))
	app.Use(func(c *fiber.Ctx) error {
		if tok, ok := c.Locals("csrf").(string); ok {
			c.Locals("CSRFToken", tok)
		}
		return c.Next()
	})

	app.Static("/static", cfg.StaticDir)
	Routes(app, d)
	return app
}

// Routes registers pages, the JSON API and the fallbacks.
func Routes(app *fiber.App, d *Deps) {
	user := RequireUser(d.Auth)
	admin := RequireAdmin(d.Auth)

	app.Get("/healthz", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"ok": true}) })
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	// Auth routes (login throttled)
	app.Get("/login", d.AuthHandler.LoginForm)
	app.Post("/login", limiter.New(limiter.Config{
		Max:        5,
		Expiration: 10 * time.Minute,
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.login.hit", nil)
			return c.Status(fiber.StatusTooManyRequests).Render("login", fiber.Map{
				"Err": "Too many attempts. Please try again later.", "CSRFToken": c.Cookies("csrf_"),
			})
		},
	}), d.AuthHandler.Login)
	app.Post("/logout", d.AuthHandler.Logout)

	app.Get("/", user, func(c *fiber.Ctx) error { return c.Redirect("/dashboard") })
	app.Get("/dashboard", user, d.DashboardHandler.Dashboard)

	notes := app.Group("/notifications", user)
	notes.Get("/", d.DashboardHandler.Notes)
	notes.Post("/dismiss", d.DashboardHandler.Dismiss)
	notes.Post("/restore", d.DashboardHandler.Undismiss)

	prods := app.Group("/products", user)
	prods.Get("/", d.ProductHandler.List)
	prods.Get("/new", d.ProductHandler.NewForm)
	prods.Post("/", d.ProductHandler.Create)
	prods.Get("/:code/edit", d.ProductHandler.EditForm)
	prods.Post("/:code", d.ProductHandler.Update)
	prods.Get("/:code/stock", admin, d.InventoryHandler.StockForm)
	prods.Post("/:code/stock", admin, d.InventoryHandler.Adjust)
	prods.Post("/:code/delete", admin, d.ProductHandler.Delete)

	clients := app.Group("/clients", user)
	clients.Get("/", d.ClientHandler.List)
	clients.Get("/new", d.ClientHandler.NewForm)
	clients.Post("/", d.ClientHandler.Create)
	clients.Get("/:id", d.ClientHandler.Detail)
	clients.Get("/:id/edit", d.ClientHandler.EditForm)
	clients.Post("/:id", d.ClientHandler.Update)
	clients.Post("/:id/delete", admin, d.ClientHandler.Delete)

	sales := app.Group("/sales", user)
	sales.Get("/", d.SaleHandler.List)
	sales.Get("/new", d.SaleHandler.NewForm)
	sales.Post("/", d.SaleHandler.Create)
	sales.Get("/:id", d.SaleHandler.Detail)
	sales.Post("/:id/cancel", admin, d.SaleHandler.Cancel)

	reports := app.Group("/reports", user)
	reports.Get("/", d.ReportHandler.Page)
	reports.Get("/sales.csv", d.ReportHandler.SalesCSV)

	exp := app.Group("/expenses", user)
	exp.Get("/", d.ExpenseHandler.Page)
	exp.Post("/fixed", admin, d.ExpenseHandler.AddFixed)
	exp.Post("/fixed/:id", admin, d.ExpenseHandler.UpdateFixed)
	exp.Post("/fixed/:id/delete", admin, d.ExpenseHandler.RemoveFixed)
	exp.Post("/variable/:id", admin, d.ExpenseHandler.UpdateVariable)

	api := app.Group("/api/v1", user)
	api.Get("/products", d.APIHandler.ProductsList)
	api.Get("/products/:code", d.APIHandler.Product)
	api.Get("/quote", d.InventoryHandler.Quote)
	api.Get("/sales", d.APIHandler.SalesList)
	api.Get("/sales/:id", d.APIHandler.Sale)
	api.Get("/analytics", d.APIHandler.Analytics)
	api.Get("/analytics/monthly", d.APIHandler.Monthly)
	api.Get("/pnl", d.APIHandler.PnL)
	api.Get("/notifications", d.APIHandler.Notes)
	api.Post("/notifications/dismiss", d.APIHandler.Dismiss)

	app.Use(func(c *fiber.Ctx) error {
		if strings.HasPrefix(c.Path(), "/api/") {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not found"})
		}
		return c.Status(fiber.StatusNotFound).Render("notfound", fiber.Map{"Message": "Page not found"})
	})
}
