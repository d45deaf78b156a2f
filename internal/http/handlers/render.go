package handlers

import (
	"errors"
	"strings"
	"time"

	"homeessence/internal/log"
	"homeessence/internal/services"

	"github.com/gofiber/fiber/v2"
	html "github.com/gofiber/template/html/v2"
	"github.com/shopspring/decimal"
)

// NewEngine loads the page templates with the view helpers they use.
func NewEngine(dir string) *html.Engine {
	engine := html.New(dir, ".html")
	engine.AddFunc("money", money)
	engine.AddFunc("pct", percent)
	engine.AddFunc("date", displayDate)
	engine.AddFunc("dec", func(d decimal.Decimal) string { return d.StringFixed(2) })
	return engine
}

func render(c *fiber.Ctx, tmpl string, data fiber.Map) error {
	if data == nil {
		data = fiber.Map{}
	}
	if u := c.Locals("user"); u != nil {
		data["User"] = u
	}
	tok, _ := c.Locals("CSRFToken").(string)
	if tok == "" {
		// middleware locals are missing on error paths; the cookie still holds the token
		tok = c.Cookies("csrf_")
	}
	if tok != "" {
		data["CSRFToken"] = tok
	}
	return c.Render(tmpl, data)
}

func renderStatus(c *fiber.Ctx, status int, tmpl string, data fiber.Map) error {
	c.Status(status)
	return render(c, tmpl, data)
}

func notFound(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusNotFound).Render("notfound", fiber.Map{"Message": msg})
}

func serverError(c *fiber.Ctx, action string, err error) error {
	log.Error(c, action, err, nil)
	return c.Status(fiber.StatusInternalServerError).Render("notfound", fiber.Map{"Message": "Something went wrong. Please try again."})
}

// statusFor maps service errors to the HTTP status shown with the form.
func statusFor(err error) int {
	var ve *services.ValidationError
	switch {
	case errors.As(err, &ve):
		return fiber.StatusBadRequest
	case errors.Is(err, services.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, services.ErrDuplicateCode), errors.Is(err, services.ErrInsufficientStock):
		return fiber.StatusConflict
	}
	return fiber.StatusInternalServerError
}

// formError is the message a user sees for err. Internal failures stay generic.
func formError(err error) string {
	var ve *services.ValidationError
	if errors.As(err, &ve) {
		return ve.Msg
	}
	if statusFor(err) == fiber.StatusInternalServerError {
		return "Something went wrong. Please try again."
	}
	return err.Error()
}

// money renders R$ 1.234,56.
func money(d decimal.Decimal) string {
	d = d.Round(2)
	s := d.Abs().StringFixed(2)
	whole, cents := s[:len(s)-3], s[len(s)-2:]
	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	sign := ""
	if d.IsNegative() {
		sign = "-"
	}
	return sign + "R$ " + b.String() + "," + cents
}

func percent(d decimal.Decimal) string {
	return strings.Replace(d.StringFixed(2), ".", ",", 1) + "%"
}

func displayDate(iso string) string {
	t, err := time.Parse("2006-01-02", iso)
	if err != nil {
		return iso
	}
	return t.Format("02/01/2006")
}
