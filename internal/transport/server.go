// Package transport serves the JSON HTTP API.
package transport

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rpggio/agencyops/internal/auth"
	"github.com/rpggio/agencyops/internal/domain/activity"
	"github.com/rpggio/agencyops/internal/domain/client"
	"github.com/rpggio/agencyops/internal/domain/project"
	"github.com/rpggio/agencyops/internal/domain/retainer"
	"github.com/rpggio/agencyops/internal/domain/task"
	"github.com/rpggio/agencyops/internal/domain/timeentry"
	"github.com/rpggio/agencyops/internal/domain/user"
	"github.com/rpggio/agencyops/internal/domain/workload"
	"github.com/rpggio/agencyops/internal/health"
	"github.com/rpggio/agencyops/internal/metrics"
)

// TaskService defines task operations needed by the API.
type TaskService interface {
	Create(ctx context.Context, actor auth.Context, req task.CreateRequest) (*task.Task, error)
	Get(ctx context.Context, actor auth.Context, id string) (*task.Task, error)
	List(ctx context.Context, actor auth.Context, opts task.ListOptions) ([]task.Task, error)
	Update(ctx context.Context, actor auth.Context, id string, req task.UpdateRequest) (*task.Task, task.CascadeResult, error)
	UpdateStatus(ctx context.Context, actor auth.Context, id string, to task.Status) (*task.Task, task.CascadeResult, error)
	Delete(ctx context.Context, actor auth.Context, id string) error
	AddDependency(ctx context.Context, actor auth.Context, taskID, blockerID string) (*task.Task, error)
	RemoveDependency(ctx context.Context, actor auth.Context, taskID, blockerID string) (*task.Task, error)
	Billing(ctx context.Context, actor auth.Context, id string) (*task.Billing, error)
}

// ActivityService defines activity operations needed by the API.
type ActivityService interface {
	GetRecentActivity(ctx context.Context, opts activity.ListOptions) ([]activity.Entry, error)
}

// ClientService defines client operations needed by the API.
type ClientService interface {
	Create(ctx context.Context, actor auth.Context, req client.CreateRequest) (*client.Client, error)
	Get(ctx context.Context, actor auth.Context, id string) (*client.Client, error)
	List(ctx context.Context, actor auth.Context, opts client.ListOptions) ([]client.Client, error)
	Update(ctx context.Context, actor auth.Context, id string, req client.UpdateRequest) (*client.Client, error)
	Delete(ctx context.Context, actor auth.Context, id string) error
	CreateSite(ctx context.Context, actor auth.Context, clientID string, req client.SiteRequest) (*client.Site, error)
	Sites(ctx context.Context, actor auth.Context, clientID string) ([]client.Site, error)
}

// RetainerService defines retainer operations needed by the API.
type RetainerService interface {
	Usage(ctx context.Context, actor auth.Context, clientID, month string) (*retainer.Usage, error)
	Statuses(ctx context.Context, actor auth.Context, month string) (*retainer.Report, error)
	CheckAlerts(ctx context.Context, actor auth.Context, month string) (*retainer.AlertRun, error)
}

// ProjectService defines project operations needed by the API.
type ProjectService interface {
	Create(ctx context.Context, actor auth.Context, req project.CreateRequest) (*project.Project, error)
	Get(ctx context.Context, actor auth.Context, id string) (*project.Project, error)
	List(ctx context.Context, actor auth.Context, opts project.ListOptions) ([]project.Summary, error)
	AddMember(ctx context.Context, actor auth.Context, projectID, userID string) error
}

// TimeEntryService defines time tracking operations needed by the API.
type TimeEntryService interface {
	Create(ctx context.Context, actor auth.Context, req timeentry.CreateRequest) (*timeentry.Entry, error)
	Start(ctx context.Context, actor auth.Context, req timeentry.StartRequest) (*timeentry.Entry, error)
	Stop(ctx context.Context, actor auth.Context, id string) (*timeentry.Entry, error)
	Delete(ctx context.Context, actor auth.Context, id string) error
	List(ctx context.Context, actor auth.Context, opts timeentry.ListOptions) ([]timeentry.Entry, error)
}

// UserService defines user operations needed by the API.
type UserService interface {
	Create(ctx context.Context, actor auth.Context, req user.CreateRequest) (*user.User, error)
	List(ctx context.Context, actor auth.Context) ([]user.User, error)
}

// WorkloadService defines time, utilization and due-soon operations.
type WorkloadService interface {
	Time(ctx context.Context, actor auth.Context, q workload.TimeQuery) (*workload.TimeReport, error)
	Utilization(ctx context.Context, actor auth.Context, q workload.UtilizationQuery) (*workload.Utilization, error)
	NotifyDueSoon(ctx context.Context, actor auth.Context) (*workload.DueRun, error)
}

// Services contains all domain services served over HTTP.
type Services struct {
	Tasks       TaskService
	Activity    ActivityService
	Clients     ClientService
	Retainers   RetainerService
	Projects    ProjectService
	TimeEntries TimeEntryService
	Users       UserService
	Workload    WorkloadService
}

// ServerConfig holds configuration for the API server.
type ServerConfig struct {
	ListenAddr  string
	CORSOrigins string
	CronSecret  string
	// Verifier authenticates bearer tokens. Nil disables authentication.
	Verifier Verifier
}

// Server is the API Fiber application.
type Server struct {
	app    *fiber.App
	logger zerolog.Logger
	config ServerConfig
}

// NewServer creates and configures a new API server. checker and
// metricsCollector may be nil.
func NewServer(
	cfg ServerConfig,
	services Services,
	checker *health.Checker,
	metricsCollector *metrics.Metrics,
	logger zerolog.Logger,
) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          customErrorHandler(logger),
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
		ReadBufferSize:        8192,
		WriteBufferSize:       8192,
	})

	s := &Server{
		app:    app,
		logger: logger.With().Str("component", "api_server").Logger(),
		config: cfg,
	}

	s.setupMiddleware(cfg, metricsCollector, logger)
	s.setupRoutes(newHandlers(services, checker, logger), cfg, metricsCollector)

	return s
}

func (s *Server) setupMiddleware(cfg ServerConfig, metricsCollector *metrics.Metrics, logger zerolog.Logger) {
	s.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))

	s.app.Use(func(c *fiber.Ctx) error {
		reqID := c.Get("X-Request-ID")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Set("X-Request-ID", reqID)
		c.Locals("request_id", reqID)
		return c.Next()
	})

	if cfg.CORSOrigins != "" {
		s.app.Use(cors.New(cors.Config{
			AllowOrigins: cfg.CORSOrigins,
			AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID",
			AllowMethods: "GET, POST, PATCH, DELETE, OPTIONS",
		}))
	}

	if metricsCollector != nil {
		s.app.Use(metricsMiddleware(metricsCollector))
	}

	s.app.Use(NewAuthMiddleware(cfg.Verifier, logger))

	s.app.Use(func(c *fiber.Ctx) error {
		if isProbe(c.Path()) {
			return c.Next()
		}
		actor := actorFrom(c)
		logger.Info().
			Str("method", c.Method()).
			Str("path", c.Path()).
			Str("ip", c.IP()).
			Str("user_id", actor.UserID).
			Str("request_id", requestID(c)).
			Msg("api request")
		return c.Next()
	})
}

func (s *Server) setupRoutes(h *Handlers, cfg ServerConfig, metricsCollector *metrics.Metrics) {
	s.app.Get("/healthz", h.Liveness)
	s.app.Get("/readyz", h.Readiness)
	if metricsCollector != nil {
		s.app.Get("/metrics", adaptor.HTTPHandler(metricsCollector.Handler()))
	}

	v1 := s.app.Group("/api/v1")

	v1.Get("/tasks", h.ListTasks)
	v1.Post("/tasks", h.CreateTask)
	v1.Get("/tasks/:id", h.GetTask)
	v1.Patch("/tasks/:id", h.UpdateTask)
	v1.Patch("/tasks/:id/status", h.UpdateTaskStatus)
	v1.Delete("/tasks/:id", h.DeleteTask)
	v1.Post("/tasks/:id/dependencies", h.AddDependency)
	v1.Delete("/tasks/:id/dependencies/:blockerId", h.RemoveDependency)
	v1.Get("/tasks/:id/billing", h.TaskBilling)
	v1.Get("/tasks/:id/activity", h.TaskActivity)

	v1.Get("/clients", h.ListClients)
	v1.Post("/clients", h.CreateClient)
	v1.Get("/clients/:id", h.GetClient)
	v1.Patch("/clients/:id", h.UpdateClient)
	v1.Delete("/clients/:id", h.DeleteClient)
	v1.Get("/clients/:id/sites", h.ListSites)
	v1.Post("/clients/:id/sites", h.CreateSite)
	v1.Get("/clients/:id/retainer", h.RetainerUsage)

	v1.Get("/reports/retainers", h.RetainerReport)
	v1.Get("/reports/time", h.TimeReport)
	v1.Get("/reports/utilization", h.UtilizationReport)

	v1.Get("/projects", h.ListProjects)
	v1.Post("/projects", h.CreateProject)
	v1.Get("/projects/:id", h.GetProject)
	v1.Post("/projects/:id/members", h.AddProjectMember)

	v1.Get("/time-entries", h.ListTimeEntries)
	v1.Post("/time-entries", h.CreateTimeEntry)
	v1.Post("/time-entries/start", h.StartTimer)
	v1.Post("/time-entries/:id/stop", h.StopTimer)
	v1.Delete("/time-entries/:id", h.DeleteTimeEntry)

	v1.Get("/users", h.ListUsers)
	v1.Post("/users", h.CreateUser)

	v1.Post("/cron/retainer-alerts", requireCronSecret(cfg.CronSecret), h.RetainerAlerts)
	v1.Post("/cron/task-due-soon", requireCronSecret(cfg.CronSecret), h.TaskDueSoon)
}

// Start starts the server. Blocks until stopped.
func (s *Server) Start() error {
	addr := s.config.ListenAddr
	if addr == "" {
		addr = ":8080"
	}
	s.logger.Info().Str("addr", addr).Msg("api server starting")
	return s.app.Listen(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("api server shutting down")
	return s.app.ShutdownWithContext(ctx)
}

// App returns the underlying Fiber app (useful for testing).
func (s *Server) App() *fiber.App {
	return s.app
}

func isProbe(path string) bool {
	return path == "/healthz" || path == "/readyz" || path == "/metrics"
}

func requestID(c *fiber.Ctx) string {
	id, _ := c.Locals("request_id").(string)
	return id
}

// metricsMiddleware records every request once its final status is known.
func metricsMiddleware(m *metrics.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		if err != nil {
			if herr := c.App().ErrorHandler(c, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}
		route := c.Route().Path
		if isProbe(route) {
			return nil
		}
		m.RecordRequest(route, c.Method(), c.Response().StatusCode(), time.Since(start).Seconds())
		return nil
	}
}
