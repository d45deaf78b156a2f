package handlers

import (
	"homeessence/internal/domain"
	"homeessence/internal/log"
	"homeessence/internal/services"

	"github.com/gofiber/fiber/v2"
)

type DashboardHandler struct {
	Reports       *services.ReportService
	Notifications *services.NotificationService
}

// GET /dashboard
func (h *DashboardHandler) Dashboard(c *fiber.Ctx) error {
	d, err := h.Reports.Dashboard()
	if err != nil {
		return serverError(c, "dashboard.fail", err)
	}
	notes, err := h.Notifications.All()
	if err != nil {
		// the page still works without alerts
		log.Error(c, "notifications.fail", err, nil)
		notes = &domain.Notifications{}
	}
	return render(c, "dashboard", fiber.Map{"D": d, "Notes": notes})
}

// GET /notifications
func (h *DashboardHandler) Notes(c *fiber.Ctx) error {
	notes, err := h.Notifications.All()
	if err != nil {
		return serverError(c, "notifications.fail", err)
	}
	return render(c, "notifications", fiber.Map{"Notes": notes})
}

// POST /notifications/dismiss
func (h *DashboardHandler) Dismiss(c *fiber.Ctx) error {
	kind, ref := c.FormValue("kind"), c.FormValue("ref")
	if err := h.Notifications.Dismiss(kind, ref); err != nil {
		if statusFor(err) == fiber.StatusBadRequest {
			log.Security(c, "validation.fail", map[string]any{"field": "notification"})
			return c.Status(fiber.StatusBadRequest).Render("notfound", fiber.Map{"Message": formError(err)})
		}
		return serverError(c, "notification.dismiss.fail", err)
	}
	log.Info(c, "notification.dismiss", map[string]any{"kind": kind, "ref": ref})
	return c.Redirect("/notifications")
}

// POST /notifications/restore
func (h *DashboardHandler) Undismiss(c *fiber.Ctx) error {
	kind, ref := c.FormValue("kind"), c.FormValue("ref")
	if err := h.Notifications.Undismiss(kind, ref); err != nil {
		if statusFor(err) == fiber.StatusBadRequest {
			return c.Status(fiber.StatusBadRequest).Render("notfound", fiber.Map{"Message": formError(err)})
		}
		return serverError(c, "notification.restore.fail", err)
	}
	log.Info(c, "notification.restore", map[string]any{"kind": kind, "ref": ref})
	return c.Redirect("/notifications")
}
