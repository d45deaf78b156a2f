package handlers

import (
	"fmt"
	"strconv"
	"strings"

	"homeessence/internal/domain"
	"homeessence/internal/log"
	"homeessence/internal/repos"
	"homeessence/internal/services"
	"homeessence/internal/validate"

	"github.com/gofiber/fiber/v2"
)

// saleFormLines is how many product rows the new-sale form offers.
const saleFormLines = 8

type SaleHandler struct {
	Sales    *services.SaleService
	Clients  *services.ClientService
	Products *services.ProductService
}

// saleLineForm keeps the raw row values so a rejected form comes back as typed.
type saleLineForm struct {
	Code  string
	Qty   string
	Price string
}

type saleFormData struct {
	ClientID      string
	PaymentMethod string
	Date          string
	Lines         []saleLineForm
}

func readSaleForm(c *fiber.Ctx) saleFormData {
	f := saleFormData{
		ClientID:      c.FormValue("client_id"),
		PaymentMethod: c.FormValue("payment_method"),
		Date:          c.FormValue("date"),
		Lines:         make([]saleLineForm, saleFormLines),
	}
	for i := range f.Lines {
		n := strconv.Itoa(i)
		f.Lines[i] = saleLineForm{
			Code:  strings.TrimSpace(c.FormValue("code_" + n)),
			Qty:   strings.TrimSpace(c.FormValue("qty_" + n)),
			Price: strings.TrimSpace(c.FormValue("price_" + n)),
		}
	}
	return f
}

func (f saleFormData) input() (services.SaleInput, error) {
	in := services.SaleInput{ClientID: f.ClientID, PaymentMethod: f.PaymentMethod, Date: f.Date}
	for _, l := range f.Lines {
		if l.Code == "" && l.Qty == "" {
			continue
		}
		line := services.SaleLineInput{Code: l.Code}
		if l.Qty != "" {
			q, ok := validate.Qty(l.Qty)
			if !ok {
				return in, &services.ValidationError{Field: "lines", Msg: fmt.Sprintf("quantity for %s must be between 1 and 9999", l.Code)}
			}
			line.Quantity = q
		}
		if l.Price != "" {
			p, ok := validate.Money(l.Price)
			if !ok {
				return in, &services.ValidationError{Field: "lines", Msg: fmt.Sprintf("unit price for %s is not a valid amount", l.Code)}
			}
			line.UnitPrice = &p
		}
		in.Lines = append(in.Lines, line)
	}
	return in, nil
}

func (h *SaleHandler) formData(f saleFormData) (fiber.Map, error) {
	clients, err := h.Clients.List(repos.ClientFilter{})
	if err != nil {
		return nil, err
	}
	prods, err := h.Products.List(repos.ProductFilter{})
	if err != nil {
		return nil, err
	}
	return fiber.Map{
		"Form": f, "Clients": clients, "Products": prods, "PaymentMethods": domain.PaymentMethods,
	}, nil
}

// GET /sales
func (h *SaleHandler) List(c *fiber.Ctx) error {
	f := repos.SaleFilter{}
	if raw := c.Query("client"); raw != "" {
		if id, ok := validate.ID(raw); ok {
			f.ClientID = id
		}
	}
	if raw := c.Query("payment"); raw != "" {
		if pm, ok := validate.OneOf(raw, domain.PaymentMethods); ok {
			f.Payment = pm
		}
	}
	if raw := c.Query("from"); raw != "" {
		d, ok := validate.Date(raw)
		if !ok {
			return renderStatus(c, fiber.StatusBadRequest, "sales", fiber.Map{"Err": "Invalid start date", "Filter": f, "PaymentMethods": domain.PaymentMethods})
		}
		f.From = d
	}
	if raw := c.Query("to"); raw != "" {
		d, ok := validate.Date(raw)
		if !ok {
			return renderStatus(c, fiber.StatusBadRequest, "sales", fiber.Map{"Err": "Invalid end date", "Filter": f, "PaymentMethods": domain.PaymentMethods})
		}
		f.To = d
	}
	sales, err := h.Sales.List(f)
	if err != nil {
		return serverError(c, "sales.list.fail", err)
	}
	return render(c, "sales", fiber.Map{
		"Sales": sales, "Filter": f, "PaymentMethods": domain.PaymentMethods,
	})
}

// GET /sales/new
func (h *SaleHandler) NewForm(c *fiber.Ctx) error {
	f := saleFormData{ClientID: c.Query("client"), PaymentMethod: "pix", Lines: make([]saleLineForm, saleFormLines)}
	data, err := h.formData(f)
	if err != nil {
		return serverError(c, "sale.form.fail", err)
	}
	return render(c, "sale_form", data)
}

// POST /sales
func (h *SaleHandler) Create(c *fiber.Ctx) error {
	f := readSaleForm(c)
	in, err := f.input()
	var sale *domain.Sale
	if err == nil {
		sale, err = h.Sales.Register(c.UserContext(), in)
	}
	if err != nil {
		status := statusFor(err)
		if status == fiber.StatusInternalServerError {
			return serverError(c, "sale.create.fail", err)
		}
		log.Info(c, "sale.create.rejected", map[string]any{"client_id": f.ClientID, "reason": err.Error()})
		data, ferr := h.formData(f)
		if ferr != nil {
			return serverError(c, "sale.form.fail", ferr)
		}
		data["Err"] = formError(err)
		return renderStatus(c, status, "sale_form", data)
	}
	log.Audit(c, "sale.create", map[string]any{
		"sale_id": sale.ID, "client_id": sale.ClientID, "total": sale.Total.StringFixed(2), "items": len(sale.Items),
	})
	return c.Redirect("/sales/" + sale.ID)
}

// GET /sales/:id
func (h *SaleHandler) Detail(c *fiber.Ctx) error {
	sale, err := h.Sales.Get(c.Params("id"))
	if err != nil {
		if statusFor(err) == fiber.StatusNotFound {
			return notFound(c, "Sale not found")
		}
		return serverError(c, "sale.get.fail", err)
	}
	return render(c, "sale", fiber.Map{"Sale": sale})
}

// POST /sales/:id/cancel (admin)
func (h *SaleHandler) Cancel(c *fiber.Ctx) error {
	id := c.Params("id")
	restore := c.FormValue("restore_stock") != ""
	res, err := h.Sales.Cancel(c.UserContext(), id, restore)
	if err != nil {
		if statusFor(err) == fiber.StatusNotFound {
			return notFound(c, "Sale not found")
		}
		return serverError(c, "sale.cancel.fail", err)
	}
	log.Audit(c, "sale.cancel", map[string]any{
		"sale_id": id, "restore_stock": restore, "skipped": res.Skipped, "total": res.Sale.Total.StringFixed(2),
	})
	return c.Redirect("/sales")
}
