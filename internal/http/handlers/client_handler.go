package handlers

import (
	"homeessence/internal/domain"
	"homeessence/internal/log"
	"homeessence/internal/repos"
	"homeessence/internal/services"
	"homeessence/internal/validate"

	"github.com/gofiber/fiber/v2"
)

type ClientHandler struct {
	Clients *services.ClientService
	Sales   *services.SaleService
}

func clientForm(c *fiber.Ctx) services.ClientInput {
	return services.ClientInput{
		Name:        c.FormValue("name"),
		Salesperson: c.FormValue("salesperson"),
		Type:        c.FormValue("type"),
		AgeRange:    c.FormValue("age_range"),
		Gender:      c.FormValue("gender"),
		Profession:  c.FormValue("profession"),
		TaxID:       c.FormValue("tax_id"),
		Phone:       c.FormValue("phone"),
		Address:     c.FormValue("address"),
	}
}

func clientInputOf(cl *domain.Client) services.ClientInput {
	return services.ClientInput{
		Name:        cl.Name,
		Salesperson: cl.Salesperson,
		Type:        string(cl.Type),
		AgeRange:    cl.AgeRange,
		Gender:      cl.Gender,
		Profession:  cl.Profession,
		TaxID:       cl.TaxID,
		Phone:       cl.Phone,
		Address:     cl.Address,
	}
}

func (h *ClientHandler) formData(in services.ClientInput) fiber.Map {
	sellers, _ := h.Clients.Salespeople()
	return fiber.Map{
		"Form":        in,
		"AgeRanges":   domain.AgeRanges,
		"Genders":     domain.Genders,
		"Salespeople": sellers,
	}
}

// GET /clients
func (h *ClientHandler) List(c *fiber.Ctx) error {
	f := repos.ClientFilter{Salesperson: validate.Text(c.Query("salesperson"), 60)}
	if raw := c.Query("q"); raw != "" {
		q, ok := validate.Q(raw)
		if !ok {
			log.Security(c, "validation.fail", map[string]any{"field": "q"})
			return renderStatus(c, fiber.StatusBadRequest, "clients", fiber.Map{"Err": "Enter a valid search term"})
		}
		f.Q = q
	}
	switch t := domain.ClientType(c.Query("type")); t {
	case domain.ClientPerson, domain.ClientCompany:
		f.Type = t
	}
	list, err := h.Clients.List(f)
	if err != nil {
		return serverError(c, "clients.list.fail", err)
	}
	sellers, err := h.Clients.Salespeople()
	if err != nil {
		return serverError(c, "clients.salespeople.fail", err)
	}
	return render(c, "clients", fiber.Map{
		"Clients": list, "Q": f.Q, "Type": string(f.Type), "Salesperson": f.Salesperson, "Salespeople": sellers,
	})
}

// GET /clients/:id
func (h *ClientHandler) Detail(c *fiber.Ctx) error {
	cl, err := h.Clients.Get(c.Params("id"))
	if err != nil {
		return notFound(c, "Client not found")
	}
	sales, err := h.Sales.List(repos.SaleFilter{ClientID: cl.ID})
	if err != nil {
		return serverError(c, "client.sales.fail", err)
	}
	return render(c, "client", fiber.Map{"Client": cl, "Sales": sales})
}

// GET /clients/new
func (h *ClientHandler) NewForm(c *fiber.Ctx) error {
	data := h.formData(services.ClientInput{Type: string(domain.ClientPerson)})
	data["New"] = true
	return render(c, "client_form", data)
}

// POST /clients
func (h *ClientHandler) Create(c *fiber.Ctx) error {
	in := clientForm(c)
	cl, err := h.Clients.Register(in)
	if err != nil {
		if statusFor(err) == fiber.StatusInternalServerError {
			return serverError(c, "client.create.fail", err)
		}
		data := h.formData(in)
		data["New"] = true
		data["Err"] = formError(err)
		return renderStatus(c, statusFor(err), "client_form", data)
	}
	log.Audit(c, "client.create", map[string]any{"client_id": cl.ID, "type": cl.Type})
	return c.Redirect("/clients/" + cl.ID)
}

// GET /clients/:id/edit
func (h *ClientHandler) EditForm(c *fiber.Ctx) error {
	cl, err := h.Clients.Get(c.Params("id"))
	if err != nil {
		return notFound(c, "Client not found")
	}
	data := h.formData(clientInputOf(cl))
	data["Client"] = cl
	return render(c, "client_form", data)
}

// POST /clients/:id
func (h *ClientHandler) Update(c *fiber.Ctx) error {
	id := c.Params("id")
	in := clientForm(c)
	cl, err := h.Clients.Update(id, in)
	if err != nil {
		switch statusFor(err) {
		case fiber.StatusNotFound:
			return notFound(c, "Client not found")
		case fiber.StatusInternalServerError:
			return serverError(c, "client.update.fail", err)
		}
		data := h.formData(in)
		data["Client"] = &domain.Client{ID: id}
		data["Err"] = formError(err)
		return renderStatus(c, statusFor(err), "client_form", data)
	}
	log.Audit(c, "client.update", map[string]any{"client_id": cl.ID})
	return c.Redirect("/clients/" + cl.ID)
}

// POST /clients/:id/delete (admin). The client's sales go with it.
func (h *ClientHandler) Delete(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.Clients.Delete(id); err != nil {
		if statusFor(err) == fiber.StatusNotFound {
			return notFound(c, "Client not found")
		}
		return serverError(c, "client.delete.fail", err)
	}
	log.Audit(c, "client.delete", map[string]any{"client_id": id})
	return c.Redirect("/clients")
}
