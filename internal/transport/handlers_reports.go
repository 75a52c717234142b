package transport

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/rpggio/agencyops/internal/domain/workload"
)

// TimeReport handles GET /api/v1/reports/time.
func (h *Handlers) TimeReport(c *fiber.Ctx) error {
	start, err := parseTime("start", c.Query("start"))
	if err != nil {
		return err
	}
	end, err := parseTime("end", c.Query("end"))
	if err != nil {
		return err
	}
	// A bare end date covers the whole day.
	if end != nil && len(c.Query("end")) == len(time.DateOnly) {
		*end = end.Add(24*time.Hour - time.Nanosecond)
	}
	q := workload.TimeQuery{
		Start:     start,
		End:       end,
		UserID:    c.Query("user_id"),
		ClientID:  c.Query("client_id"),
		ProjectID: c.Query("project_id"),
		GroupBy:   workload.GroupBy(c.Query("group_by")),
	}
	r, err := h.svc.Workload.Time(c.UserContext(), actorFrom(c), q)
	if err != nil {
		return err
	}
	return c.JSON(r)
}

// UtilizationReport handles GET /api/v1/reports/utilization.
func (h *Handlers) UtilizationReport(c *fiber.Ctx) error {
	q := workload.UtilizationQuery{
		Period: workload.PeriodType(c.Query("period")),
		Year:   c.QueryInt("year"),
		Month:  c.QueryInt("month"),
		Week:   c.QueryInt("week"),
	}
	u, err := h.svc.Workload.Utilization(c.UserContext(), actorFrom(c), q)
	if err != nil {
		return err
	}
	return c.JSON(u)
}

// TaskDueSoon handles POST /api/v1/cron/task-due-soon.
func (h *Handlers) TaskDueSoon(c *fiber.Ctx) error {
	run, err := h.svc.Workload.NotifyDueSoon(c.UserContext(), actorFrom(c))
	if err != nil {
		return err
	}
	h.logger.Info().
		Int("tasks_checked", run.TasksChecked).
		Int("notifications_sent", run.NotificationsSent).
		Msg("due-soon run complete")
	return c.JSON(run)
}
