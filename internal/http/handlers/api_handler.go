package handlers

import (
	"strconv"
	"time"

	"homeessence/internal/domain"
	"homeessence/internal/log"
	"homeessence/internal/repos"
	"homeessence/internal/services"
	"homeessence/internal/validate"

	"github.com/gofiber/fiber/v2"
)

// APIHandler serves the read-only JSON views under /api/v1 plus
// notification dismissal.
type APIHandler struct {
	Products      *services.ProductService
	Sales         *services.SaleService
	Reports       *services.ReportService
	Notifications *services.NotificationService
	Now           func() time.Time
}

func apiError(c *fiber.Ctx, action string, err error) error {
	status := statusFor(err)
	if status == fiber.StatusInternalServerError {
		log.Error(c, action, err, nil)
		return c.Status(status).JSON(fiber.Map{"error": "internal error"})
	}
	return c.Status(status).JSON(fiber.Map{"error": formError(err)})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}

// GET /api/v1/products?q=&category=
func (h *APIHandler) ProductsList(c *fiber.Ctx) error {
	f := repos.ProductFilter{Category: validate.Text(c.Query("category"), 80)}
	if raw := c.Query("q"); raw != "" {
		q, ok := validate.Q(raw)
		if !ok {
			return badRequest(c, "invalid search term")
		}
		f.Q = q
	}
	list, err := h.Products.List(f)
	if err != nil {
		return apiError(c, "api.products.fail", err)
	}
	return c.JSON(list)
}

// GET /api/v1/products/:code
func (h *APIHandler) Product(c *fiber.Ctx) error {
	p, err := h.Products.Get(c.Params("code"))
	if err != nil {
		return apiError(c, "api.product.fail", err)
	}
	return c.JSON(p)
}

// GET /api/v1/sales?client=&payment=&from=&to=&limit=
func (h *APIHandler) SalesList(c *fiber.Ctx) error {
	f := repos.SaleFilter{}
	if raw := c.Query("client"); raw != "" {
		id, ok := validate.ID(raw)
		if !ok {
			return badRequest(c, "invalid client id")
		}
		f.ClientID = id
	}
	if raw := c.Query("payment"); raw != "" {
		pm, ok := validate.OneOf(raw, domain.PaymentMethods)
		if !ok {
			return badRequest(c, "unknown payment method")
		}
		f.Payment = pm
	}
	for _, q := range []struct {
		key string
		dst *string
	}{{"from", &f.From}, {"to", &f.To}} {
		if raw := c.Query(q.key); raw != "" {
			d, ok := validate.Date(raw)
			if !ok {
				return badRequest(c, "invalid date in "+q.key)
			}
			*q.dst = d
		}
	}
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 500 {
			return badRequest(c, "limit must be between 1 and 500")
		}
		f.Limit = n
	}
	list, err := h.Sales.List(f)
	if err != nil {
		return apiError(c, "api.sales.fail", err)
	}
	return c.JSON(list)
}

// GET /api/v1/sales/:id
func (h *APIHandler) Sale(c *fiber.Ctx) error {
	s, err := h.Sales.Get(c.Params("id"))
	if err != nil {
		return apiError(c, "api.sale.fail", err)
	}
	return c.JSON(s)
}

// GET /api/v1/analytics?from=&to=
func (h *APIHandler) Analytics(c *fiber.Ctx) error {
	p, bad := period(c)
	if bad != "" {
		return badRequest(c, bad)
	}
	a, err := h.Reports.Analytics(p)
	if err != nil {
		return apiError(c, "api.analytics.fail", err)
	}
	return c.JSON(a)
}

// GET /api/v1/analytics/monthly?months=12
func (h *APIHandler) Monthly(c *fiber.Ctx) error {
	n := 12
	if raw := c.Query("months"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 || v > 60 {
			return badRequest(c, "months must be between 1 and 60")
		}
		n = v
	}
	rows, err := h.Reports.LastMonths(n)
	if err != nil {
		return apiError(c, "api.monthly.fail", err)
	}
	return c.JSON(rows)
}

// GET /api/v1/pnl?month=YYYY-MM
func (h *APIHandler) PnL(c *fiber.Ctx) error {
	month := h.Now().Format("2006-01")
	if raw := c.Query("month"); raw != "" {
		m, ok := validate.Month(raw)
		if !ok {
			return badRequest(c, "month must be YYYY-MM")
		}
		month = m
	}
	r, err := h.Reports.MonthlyPnL(month)
	if err != nil {
		return apiError(c, "api.pnl.fail", err)
	}
	return c.JSON(r)
}

// GET /api/v1/notifications
func (h *APIHandler) Notes(c *fiber.Ctx) error {
	n, err := h.Notifications.All()
	if err != nil {
		return apiError(c, "api.notifications.fail", err)
	}
	return c.JSON(n)
}

// POST /api/v1/notifications/dismiss
func (h *APIHandler) Dismiss(c *fiber.Ctx) error {
	kind, ref := c.FormValue("kind"), c.FormValue("ref")
	if err := h.Notifications.Dismiss(kind, ref); err != nil {
		return apiError(c, "api.notifications.dismiss.fail", err)
	}
	log.Info(c, "notification.dismiss", map[string]any{"kind": kind, "ref": ref})
	return c.JSON(fiber.Map{"success": true})
}
