package handlers

import (
	"homeessence/internal/domain"
	"homeessence/internal/log"
	"homeessence/internal/repos"
	"homeessence/internal/services"
	"homeessence/internal/validate"

	"github.com/gofiber/fiber/v2"
)

type ProductHandler struct {
	Products *services.ProductService
	Inv      *services.InventoryService
}

type productRow struct {
	domain.Product
	Status string
}

func productForm(c *fiber.Ctx) services.ProductInput {
	return services.ProductInput{
		Code:     c.FormValue("code"),
		Name:     c.FormValue("name"),
		Category: c.FormValue("category"),
		Cost:     c.FormValue("cost"),
		Price:    c.FormValue("price"),
		Stock:    c.FormValue("stock"),
	}
}

func inputOf(p *domain.Product) services.ProductInput {
	return services.ProductInput{
		Code:     p.Code,
		Name:     p.Name,
		Category: p.Category,
		Cost:     p.Cost.StringFixed(2),
		Price:    p.Price.StringFixed(2),
	}
}

// GET /products
func (h *ProductHandler) List(c *fiber.Ctx) error {
	f := repos.ProductFilter{Category: validate.Text(c.Query("category"), 80)}
	if raw := c.Query("q"); raw != "" {
		q, ok := validate.Q(raw)
		if !ok {
			log.Security(c, "validation.fail", map[string]any{"field": "q"})
			return renderStatus(c, fiber.StatusBadRequest, "products", fiber.Map{"Err": "Enter a valid search term"})
		}
		f.Q = q
	}
	prods, err := h.Products.List(f)
	if err != nil {
		return serverError(c, "products.list.fail", err)
	}
	cats, err := h.Products.Categories()
	if err != nil {
		return serverError(c, "products.categories.fail", err)
	}
	summary, err := h.Inv.Summary()
	if err != nil {
		return serverError(c, "inventory.summary.fail", err)
	}
	rows := make([]productRow, len(prods))
	for i, p := range prods {
		rows[i] = productRow{Product: p, Status: h.Inv.Status(p.Stock)}
	}
	return render(c, "products", fiber.Map{
		"Rows": rows, "Categories": cats, "Q": f.Q, "Category": f.Category, "Summary": summary,
	})
}

// GET /products/new
func (h *ProductHandler) NewForm(c *fiber.Ctx) error {
	return render(c, "product_form", fiber.Map{"New": true, "Form": services.ProductInput{}})
}

// POST /products
func (h *ProductHandler) Create(c *fiber.Ctx) error {
	in := productForm(c)
	p, err := h.Products.Register(in)
	if err != nil {
		if statusFor(err) == fiber.StatusInternalServerError {
			return serverError(c, "product.create.fail", err)
		}
		return renderStatus(c, statusFor(err), "product_form", fiber.Map{"New": true, "Form": in, "Err": formError(err)})
	}
	log.Audit(c, "product.create", map[string]any{"code": p.Code, "stock": p.Stock})
	return c.Redirect("/products")
}

// GET /products/:code/edit
func (h *ProductHandler) EditForm(c *fiber.Ctx) error {
	p, err := h.Products.Get(c.Params("code"))
	if err != nil {
		return notFound(c, "Product not found")
	}
	return render(c, "product_form", fiber.Map{"Form": inputOf(p), "Product": p})
}

// POST /products/:code
func (h *ProductHandler) Update(c *fiber.Ctx) error {
	code := c.Params("code")
	in := productForm(c)
	p, err := h.Products.UpdateInfo(code, in)
	if err != nil {
		switch statusFor(err) {
		case fiber.StatusNotFound:
			return notFound(c, "Product not found")
		case fiber.StatusInternalServerError:
			return serverError(c, "product.update.fail", err)
		}
		in.Code = code
		return renderStatus(c, statusFor(err), "product_form", fiber.Map{"Form": in, "Err": formError(err)})
	}
	log.Audit(c, "product.update", map[string]any{"code": p.Code})
	return c.Redirect("/products")
}

// POST /products/:code/delete (admin)
func (h *ProductHandler) Delete(c *fiber.Ctx) error {
	code := c.Params("code")
	if err := h.Products.Delete(code); err != nil {
		if statusFor(err) == fiber.StatusNotFound {
			return notFound(c, "Product not found")
		}
		return serverError(c, "product.delete.fail", err)
	}
	log.Audit(c, "product.delete", map[string]any{"code": code})
	return c.Redirect("/products")
}
