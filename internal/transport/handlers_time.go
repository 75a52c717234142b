package transport

import (
	"github.com/gofiber/fiber/v2"

	"github.com/rpggio/agencyops/internal/domain/timeentry"
)

// ListTimeEntries handles GET /api/v1/time-entries.
func (h *Handlers) ListTimeEntries(c *fiber.Ctx) error {
	from, err := parseTime("from", c.Query("from"))
	if err != nil {
		return err
	}
	to, err := parseTime("to", c.Query("to"))
	if err != nil {
		return err
	}
	opts := timeentry.ListOptions{
		UserID: c.Query("user_id"),
		TaskID: c.Query("task_id"),
		From:   from,
		To:     to,
		Limit:  c.QueryInt("limit", 100),
		Offset: c.QueryInt("offset", 0),
	}
	entries, err := h.svc.TimeEntries.List(c.UserContext(), actorFrom(c), opts)
	if err != nil {
		return err
	}
	return c.JSON(listOf(entries, opts.Limit, opts.Offset))
}

// CreateTimeEntry handles POST /api/v1/time-entries.
func (h *Handlers) CreateTimeEntry(c *fiber.Ctx) error {
	var req timeentry.CreateRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(err)
	}
	e, err := h.svc.TimeEntries.Create(c.UserContext(), actorFrom(c), req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(e)
}

// StartTimer handles POST /api/v1/time-entries/start.
func (h *Handlers) StartTimer(c *fiber.Ctx) error {
	var req timeentry.StartRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(err)
	}
	e, err := h.svc.TimeEntries.Start(c.UserContext(), actorFrom(c), req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(e)
}

// StopTimer handles POST /api/v1/time-entries/:id/stop.
func (h *Handlers) StopTimer(c *fiber.Ctx) error {
	e, err := h.svc.TimeEntries.Stop(c.UserContext(), actorFrom(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(e)
}

// DeleteTimeEntry handles DELETE /api/v1/time-entries/:id.
func (h *Handlers) DeleteTimeEntry(c *fiber.Ctx) error {
	if err := h.svc.TimeEntries.Delete(c.UserContext(), actorFrom(c), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// RetainerUsage handles GET /api/v1/clients/:id/retainer?month=YYYY-MM.
func (h *Handlers) RetainerUsage(c *fiber.Ctx) error {
	u, err := h.svc.Retainers.Usage(c.UserContext(), actorFrom(c), c.Params("id"), c.Query("month"))
	if err != nil {
		return err
	}
	return c.JSON(u)
}

// RetainerReport handles GET /api/v1/reports/retainers?month=YYYY-MM.
func (h *Handlers) RetainerReport(c *fiber.Ctx) error {
	r, err := h.svc.Retainers.Statuses(c.UserContext(), actorFrom(c), c.Query("month"))
	if err != nil {
		return err
	}
	return c.JSON(r)
}

// RetainerAlerts handles POST /api/v1/cron/retainer-alerts.
func (h *Handlers) RetainerAlerts(c *fiber.Ctx) error {
	run, err := h.svc.Retainers.CheckAlerts(c.UserContext(), actorFrom(c), c.Query("month"))
	if err != nil {
		return err
	}
	h.logger.Info().
		Int("clients_checked", run.ClientsChecked).
		Int("alerts_sent", run.AlertsSent).
		Msg("retainer alert run complete")
	return c.JSON(run)
}
