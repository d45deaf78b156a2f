package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	applog "homeessence/internal/log"
	"homeessence/internal/services"
	"homeessence/internal/validate"
)

type InventoryHandler struct {
	Products *services.ProductService
	Inv      *services.InventoryService
}

// GET /products/:code/stock (admin)
func (h *InventoryHandler) StockForm(c *fiber.Ctx) error {
	p, err := h.Products.Get(c.Params("code"))
	if err != nil {
		return notFound(c, "Product not found")
	}
	return render(c, "product_stock", fiber.Map{"Product": p, "Status": h.Inv.Status(p.Stock)})
}

// POST /products/:code/stock (admin)
func (h *InventoryHandler) Adjust(c *fiber.Ctx) error {
	p, err := h.Products.Get(c.Params("code"))
	if err != nil {
		return notFound(c, "Product not found")
	}
	reason := validate.Text(c.FormValue("reason"), 120)
	delta, ok := validate.Delta(c.FormValue("delta"))
	if !ok {
		applog.Security(c, "validation.fail", map[string]any{"field": "delta"})
		return renderStatus(c, fiber.StatusBadRequest, "product_stock", fiber.Map{
			"Product": p, "Status": h.Inv.Status(p.Stock), "Err": "Enter a non-zero whole number", "Reason": reason,
		})
	}
	stock, err := h.Inv.Adjust(p.Code, delta)
	if err != nil {
		var se *services.StockError
		if errors.As(err, &se) {
			applog.Info(c, "inventory.adjust.refused", map[string]any{"code": p.Code, "delta": delta, "stock": se.Available})
			return renderStatus(c, fiber.StatusConflict, "product_stock", fiber.Map{
				"Product": p, "Status": h.Inv.Status(p.Stock), "Err": err.Error(), "Reason": reason,
			})
		}
		if errors.Is(err, services.ErrNotFound) {
			return notFound(c, "Product not found")
		}
		return serverError(c, "inventory.adjust.fail", err)
	}
	applog.Audit(c, "inventory.adjust", map[string]any{"code": p.Code, "delta": delta, "stock": stock, "reason": reason})
	return c.Redirect("/products")
}

// GET /api/v1/quote?code=&qty=
func (h *InventoryHandler) Quote(c *fiber.Ctx) error {
	code := strings.TrimSpace(c.Query("code"))
	if code == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "missing code"})
	}
	qty := 1
	if raw := c.Query("qty"); raw != "" {
		n, ok := validate.Qty(raw)
		if !ok {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "enter a quantity between 1 and 9999"})
		}
		qty = n
	}
	q, err := h.Products.Quote(code, qty)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "product not found"})
		}
		applog.Error(c, "api.quote.fail", err, nil)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}
	return c.JSON(q)
}
