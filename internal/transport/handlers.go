package transport

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/rpggio/agencyops/internal/domain/activity"
	"github.com/rpggio/agencyops/internal/domain/task"
	"github.com/rpggio/agencyops/internal/errs"
	"github.com/rpggio/agencyops/internal/health"
)

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	svc       Services
	checker   *health.Checker
	logger    zerolog.Logger
	startTime time.Time
}

func newHandlers(svc Services, checker *health.Checker, logger zerolog.Logger) *Handlers {
	return &Handlers{
		svc:       svc,
		checker:   checker,
		logger:    logger.With().Str("component", "handlers").Logger(),
		startTime: time.Now(),
	}
}

// ListResponse wraps list results with their paging window.
type ListResponse[T any] struct {
	Items  []T `json:"items"`
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

func listOf[T any](items []T, limit, offset int) ListResponse[T] {
	if items == nil {
		items = []T{}
	}
	return ListResponse[T]{Items: items, Limit: limit, Offset: offset}
}

// TaskResponse is a task plus the dependents its change touched.
type TaskResponse struct {
	*task.Task
	Cascade *task.CascadeResult `json:"cascade,omitempty"`
}

// Liveness handles GET /healthz.
func (h *Handlers) Liveness(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "ok",
		"uptime": time.Since(h.startTime).Round(time.Second).String(),
	})
}

// Readiness handles GET /readyz.
func (h *Handlers) Readiness(c *fiber.Ctx) error {
	if h.checker == nil {
		return c.JSON(fiber.Map{"status": "ready"})
	}
	ready, checks := h.checker.Ready(c.UserContext())
	if !ready {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "not_ready",
			"checks": checks,
		})
	}
	return c.JSON(fiber.Map{"status": "ready", "checks": checks})
}

// ListTasks handles GET /api/v1/tasks.
func (h *Handlers) ListTasks(c *fiber.Ctx) error {
	statuses, err := parseStatuses(c.Query("status"))
	if err != nil {
		return err
	}
	opts := task.ListOptions{
		ProjectID:  c.Query("project_id"),
		ClientID:   c.Query("client_id"),
		AssigneeID: c.Query("assignee_id"),
		Statuses:   statuses,
		Limit:      c.QueryInt("limit", 100),
		Offset:     c.QueryInt("offset", 0),
	}
	tasks, err := h.svc.Tasks.List(c.UserContext(), actorFrom(c), opts)
	if err != nil {
		return err
	}
	return c.JSON(listOf(tasks, opts.Limit, opts.Offset))
}

// CreateTask handles POST /api/v1/tasks.
func (h *Handlers) CreateTask(c *fiber.Ctx) error {
	var req task.CreateRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(err)
	}
	t, err := h.svc.Tasks.Create(c.UserContext(), actorFrom(c), req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(TaskResponse{Task: t})
}

// GetTask handles GET /api/v1/tasks/:id.
func (h *Handlers) GetTask(c *fiber.Ctx) error {
	t, err := h.svc.Tasks.Get(c.UserContext(), actorFrom(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(TaskResponse{Task: t})
}

// UpdateTask handles PATCH /api/v1/tasks/:id.
func (h *Handlers) UpdateTask(c *fiber.Ctx) error {
	var req task.UpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(err)
	}
	t, cascade, err := h.svc.Tasks.Update(c.UserContext(), actorFrom(c), c.Params("id"), req)
	if err != nil {
		return err
	}
	return c.JSON(taskResponse(t, cascade))
}

// UpdateTaskStatus handles PATCH /api/v1/tasks/:id/status.
func (h *Handlers) UpdateTaskStatus(c *fiber.Ctx) error {
	var req struct {
		Status string `json:"status"`
	}
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(err)
	}
	to, err := task.ParseStatus(req.Status)
	if err != nil {
		return err
	}
	t, cascade, err := h.svc.Tasks.UpdateStatus(c.UserContext(), actorFrom(c), c.Params("id"), to)
	if err != nil {
		return err
	}
	return c.JSON(taskResponse(t, cascade))
}

// DeleteTask handles DELETE /api/v1/tasks/:id.
func (h *Handlers) DeleteTask(c *fiber.Ctx) error {
	if err := h.svc.Tasks.Delete(c.UserContext(), actorFrom(c), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// AddDependency handles POST /api/v1/tasks/:id/dependencies.
func (h *Handlers) AddDependency(c *fiber.Ctx) error {
	var req struct {
		BlockerID string `json:"blocker_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(err)
	}
	if req.BlockerID == "" {
		return errs.Validation("blocker_id is required")
	}
	t, err := h.svc.Tasks.AddDependency(c.UserContext(), actorFrom(c), c.Params("id"), req.BlockerID)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(TaskResponse{Task: t})
}

// RemoveDependency handles DELETE /api/v1/tasks/:id/dependencies/:blockerId.
func (h *Handlers) RemoveDependency(c *fiber.Ctx) error {
	t, err := h.svc.Tasks.RemoveDependency(c.UserContext(), actorFrom(c), c.Params("id"), c.Params("blockerId"))
	if err != nil {
		return err
	}
	return c.JSON(TaskResponse{Task: t})
}

// TaskBilling handles GET /api/v1/tasks/:id/billing.
func (h *Handlers) TaskBilling(c *fiber.Ctx) error {
	b, err := h.svc.Tasks.Billing(c.UserContext(), actorFrom(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(b)
}

// TaskActivity handles GET /api/v1/tasks/:id/activity. The task must be
// visible to the caller.
func (h *Handlers) TaskActivity(c *fiber.Ctx) error {
	ctx := c.UserContext()
	t, err := h.svc.Tasks.Get(ctx, actorFrom(c), c.Params("id"))
	if err != nil {
		return err
	}
	opts := activity.ListOptions{
		EntityType: activity.EntityTask,
		EntityID:   t.ID,
		Limit:      c.QueryInt("limit", 50),
		Offset:     c.QueryInt("offset", 0),
	}
	entries, err := h.svc.Activity.GetRecentActivity(ctx, opts)
	if err != nil {
		return err
	}
	return c.JSON(listOf(entries, opts.Limit, opts.Offset))
}

func taskResponse(t *task.Task, cascade task.CascadeResult) TaskResponse {
	resp := TaskResponse{Task: t}
	if !cascade.Empty() {
		resp.Cascade = &cascade
	}
	return resp
}

func parseStatuses(raw string) ([]task.Status, error) {
	if raw == "" {
		return nil, nil
	}
	var out []task.Status
	for _, part := range strings.Split(raw, ",") {
		st, err := task.ParseStatus(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, nil
}

// parseTime accepts RFC 3339 instants or YYYY-MM-DD dates (UTC midnight).
func parseTime(name, raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return nil, errs.Validationf("%s must be RFC 3339 or YYYY-MM-DD", name)
	}
	return &t, nil
}

func invalidBody(err error) error {
	return errs.Validationf("invalid request body: %v", err)
}
