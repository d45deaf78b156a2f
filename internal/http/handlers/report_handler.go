package handlers

import (
	"bytes"
	"time"

	"homeessence/internal/csvio"
	"homeessence/internal/log"
	"homeessence/internal/repos"
	"homeessence/internal/services"
	"homeessence/internal/validate"

	"github.com/gofiber/fiber/v2"
)

type ReportHandler struct {
	Reports *services.ReportService
	Sales   *repos.SaleRepo
	Now     func() time.Time
}

// period reads from/to query values. Bad dates are reported, not ignored.
func period(c *fiber.Ctx) (repos.Period, string) {
	var p repos.Period
	if raw := c.Query("from"); raw != "" {
		d, ok := validate.Date(raw)
		if !ok {
			return p, "Invalid start date"
		}
		p.From = d
	}
	if raw := c.Query("to"); raw != "" {
		d, ok := validate.Date(raw)
		if !ok {
			return p, "Invalid end date"
		}
		p.To = d
	}
	return p, ""
}

// GET /reports?from=&to=&month=
func (h *ReportHandler) Page(c *fiber.Ctx) error {
	p, bad := period(c)
	if bad != "" {
		return renderStatus(c, fiber.StatusBadRequest, "reports", fiber.Map{"Err": bad})
	}
	month := h.Now().Format("2006-01")
	if raw := c.Query("month"); raw != "" {
		m, ok := validate.Month(raw)
		if !ok {
			return renderStatus(c, fiber.StatusBadRequest, "reports", fiber.Map{"Err": "Invalid month"})
		}
		month = m
	}
	a, err := h.Reports.Analytics(p)
	if err != nil {
		return serverError(c, "reports.analytics.fail", err)
	}
	pnl, err := h.Reports.MonthlyPnL(month)
	if err != nil {
		return serverError(c, "reports.pnl.fail", err)
	}
	return render(c, "reports", fiber.Map{"A": a, "PnL": pnl, "Period": p, "Month": month})
}

// GET /reports/sales.csv?from=&to=
func (h *ReportHandler) SalesCSV(c *fiber.Ctx) error {
	p, bad := period(c)
	if bad != "" {
		return c.Status(fiber.StatusBadRequest).SendString(bad)
	}
	lines, err := h.Sales.Lines(p.From, p.To)
	if err != nil {
		return serverError(c, "reports.csv.fail", err)
	}
	var buf bytes.Buffer
	if err := csvio.WriteSaleLines(&buf, lines); err != nil {
		return serverError(c, "reports.csv.fail", err)
	}
	log.Info(c, "reports.csv.export", map[string]any{"rows": len(lines), "from": p.From, "to": p.To})
	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	c.Attachment("vendas_" + h.Now().Format("20060102") + ".csv")
	return c.Send(buf.Bytes())
}
