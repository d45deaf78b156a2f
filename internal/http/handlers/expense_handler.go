package handlers

import (
	"homeessence/internal/domain"
	"homeessence/internal/log"
	"homeessence/internal/services"
	"homeessence/internal/validate"

	"github.com/gofiber/fiber/v2"
)

type ExpenseHandler struct {
	Expenses *services.ExpenseService
	Products *services.ProductService
}

func (h *ExpenseHandler) page(c *fiber.Ctx, status int, extra fiber.Map) error {
	data := fiber.Map{
		"Fixed":          h.Expenses.FixedExpenses(),
		"Variable":       h.Expenses.VariableCostLines(),
		"TotalFixed":     h.Expenses.TotalFixed(),
		"Goals":          h.Expenses.SalaryGoals(),
		"Source":         h.Expenses.Source(),
		"PaymentMethods": domain.PaymentMethods,
	}
	for k, v := range extra {
		data[k] = v
	}
	return renderStatus(c, status, "expenses", data)
}

// GET /expenses, optionally simulating the margin of ?code=&qty=&payment=
func (h *ExpenseHandler) Page(c *fiber.Ctx) error {
	code := c.Query("code")
	if code == "" {
		return h.page(c, fiber.StatusOK, nil)
	}
	p, err := h.Products.Get(code)
	if err != nil {
		return h.page(c, fiber.StatusNotFound, fiber.Map{"Err": "Product not found"})
	}
	qty := 1
	if raw := c.Query("qty"); raw != "" {
		n, ok := validate.Qty(raw)
		if !ok {
			return h.page(c, fiber.StatusBadRequest, fiber.Map{"Err": "Enter a quantity between 1 and 9999"})
		}
		qty = n
	}
	payment, _ := validate.OneOf(c.Query("payment"), domain.PaymentMethods)
	m := h.Expenses.ProductMargin(p.Price, p.Cost, qty, payment)
	return h.page(c, fiber.StatusOK, fiber.Map{"Sim": m, "SimProduct": p, "SimQty": qty, "SimPayment": payment})
}

func (h *ExpenseHandler) saved(c *fiber.Ctx, action string, fields map[string]any, err error) error {
	if err != nil {
		switch statusFor(err) {
		case fiber.StatusBadRequest, fiber.StatusNotFound:
			return h.page(c, statusFor(err), fiber.Map{"Err": formError(err)})
		}
		log.Error(c, action+".fail", err, fields)
		return h.page(c, fiber.StatusInternalServerError, fiber.Map{"Err": "Could not save the expenses file"})
	}
	log.Audit(c, action, fields)
	return c.Redirect("/expenses")
}

// POST /expenses/fixed/:id (admin)
func (h *ExpenseHandler) UpdateFixed(c *fiber.Ctx) error {
	id := c.Params("id")
	v, ok := validate.Money(c.FormValue("value"))
	if !ok || v.IsNegative() {
		return h.page(c, fiber.StatusBadRequest, fiber.Map{"Err": "Enter a valid amount"})
	}
	err := h.Expenses.UpdateFixed(id, v.Round(2))
	return h.saved(c, "expenses.fixed.update", map[string]any{"id": id, "value": v.StringFixed(2)}, err)
}

// POST /expenses/variable/:id (admin)
func (h *ExpenseHandler) UpdateVariable(c *fiber.Ctx) error {
	id := c.Params("id")
	v, ok := validate.Money(c.FormValue("value"))
	if !ok || v.IsNegative() {
		return h.page(c, fiber.StatusBadRequest, fiber.Map{"Err": "Enter a valid amount"})
	}
	err := h.Expenses.UpdateVariable(id, v)
	return h.saved(c, "expenses.variable.update", map[string]any{"id": id, "value": v.String()}, err)
}

// POST /expenses/fixed (admin)
func (h *ExpenseHandler) AddFixed(c *fiber.Ctx) error {
	id, ok := validate.ID(c.FormValue("id"))
	if !ok {
		return h.page(c, fiber.StatusBadRequest, fiber.Map{"Err": "Key must use letters, digits, - or _"})
	}
	name, ok := validate.Name(c.FormValue("name"))
	if !ok {
		return h.page(c, fiber.StatusBadRequest, fiber.Map{"Err": "Name is required"})
	}
	v, ok := validate.Money(c.FormValue("value"))
	if !ok || v.IsNegative() {
		return h.page(c, fiber.StatusBadRequest, fiber.Map{"Err": "Enter a valid amount"})
	}
	err := h.Expenses.AddFixed(id, name, v.Round(2), validate.Text(c.FormValue("description"), 200))
	return h.saved(c, "expenses.fixed.add", map[string]any{"id": id, "value": v.StringFixed(2)}, err)
}

// POST /expenses/fixed/:id/delete (admin)
func (h *ExpenseHandler) RemoveFixed(c *fiber.Ctx) error {
	id := c.Params("id")
	err := h.Expenses.RemoveFixed(id)
	return h.saved(c, "expenses.fixed.remove", map[string]any{"id": id}, err)
}
