// Package app wires repositories and domain services over one database.
package app

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/rpggio/agencyops/internal/domain/activity"
	"github.com/rpggio/agencyops/internal/domain/client"
	"github.com/rpggio/agencyops/internal/domain/project"
	"github.com/rpggio/agencyops/internal/domain/retainer"
	"github.com/rpggio/agencyops/internal/domain/task"
	"github.com/rpggio/agencyops/internal/domain/timeentry"
	"github.com/rpggio/agencyops/internal/domain/user"
	"github.com/rpggio/agencyops/internal/domain/workload"
	"github.com/rpggio/agencyops/internal/mcp"
	"github.com/rpggio/agencyops/internal/metrics"
	"github.com/rpggio/agencyops/internal/sqlite"
	"github.com/rpggio/agencyops/internal/transport"
)

// Options tunes the services. Zero values select the defaults.
type Options struct {
	Location          *time.Location
	Clock             func() time.Time
	DefaultHourlyRate float64
	ReportConcurrency int
	AlertThresholds   []int
	Notifier          retainer.Notifier
	DueNotifier       workload.DueNotifier
	Metrics           *metrics.Metrics
}

// App holds every domain service.
type App struct {
	DB          *sqlite.DB
	Metrics     *metrics.Metrics
	Users       *user.Service
	Clients     *client.Service
	Projects    *project.Service
	Activity    *activity.Service
	Tasks       *task.Service
	TimeEntries *timeentry.Service
	Retainers   *retainer.Service
	Workload    *workload.Service
}

// New builds the services on db.
func New(db *sqlite.DB, opts Options, logger zerolog.Logger) *App {
	clientRepo := sqlite.NewClientRepository(db)
	projectRepo := sqlite.NewProjectRepository(db)
	activityRepo := sqlite.NewActivityRepository(db)

	a := &App{
		DB:       db,
		Metrics:  opts.Metrics,
		Users:    user.NewService(sqlite.NewUserRepository(db), logger),
		Clients:  client.NewService(clientRepo, logger),
		Projects: project.NewService(projectRepo, logger),
		Activity: activity.NewService(activityRepo, logger),
	}

	taskOpts := []task.Option{task.WithDefaultRate(opts.DefaultHourlyRate)}
	retainerOpts := []retainer.Option{retainer.WithConcurrency(opts.ReportConcurrency)}
	var timeOpts []timeentry.Option
	var workloadOpts []workload.Option
	if opts.Clock != nil {
		workloadOpts = append(workloadOpts, workload.WithClock(opts.Clock))
		taskOpts = append(taskOpts, task.WithClock(opts.Clock))
		retainerOpts = append(retainerOpts, retainer.WithClock(opts.Clock))
		timeOpts = append(timeOpts, timeentry.WithClock(opts.Clock))
	}
	if opts.Location != nil {
		retainerOpts = append(retainerOpts, retainer.WithLocation(opts.Location))
		workloadOpts = append(workloadOpts, workload.WithLocation(opts.Location))
	}
	if len(opts.AlertThresholds) > 0 {
		retainerOpts = append(retainerOpts, retainer.WithThresholds(opts.AlertThresholds...))
	}
	if opts.Notifier != nil {
		retainerOpts = append(retainerOpts, retainer.WithNotifier(opts.Notifier))
	}
	if opts.DueNotifier != nil {
		workloadOpts = append(workloadOpts, workload.WithNotifier(opts.DueNotifier))
	}
	if opts.Metrics != nil {
		taskOpts = append(taskOpts, task.WithRecorder(opts.Metrics))
		retainerOpts = append(retainerOpts, retainer.WithRecorder(opts.Metrics))
	}

	a.Tasks = task.NewService(sqlite.NewTaskRepository(db), a.Projects, a.Activity, logger, taskOpts...)
	a.TimeEntries = timeentry.NewService(sqlite.NewTimeEntryRepository(db), a.Tasks, logger, timeOpts...)
	a.Retainers = retainer.NewService(sqlite.NewRetainerRepository(db), clientRepo, logger, retainerOpts...)
	a.Workload = workload.NewService(sqlite.NewWorkloadRepository(db), logger, workloadOpts...)
	return a
}

// HTTPServices returns the services served by the HTTP API.
func (a *App) HTTPServices() transport.Services {
	return transport.Services{
		Tasks:       a.Tasks,
		Activity:    a.Activity,
		Clients:     a.Clients,
		Retainers:   a.Retainers,
		Projects:    a.Projects,
		TimeEntries: a.TimeEntries,
		Users:       a.Users,
		Workload:    a.Workload,
	}
}

// MCPServices returns the services exposed as MCP tools.
func (a *App) MCPServices() mcp.Services {
	return mcp.Services{
		Tasks:       a.Tasks,
		Retainers:   a.Retainers,
		TimeEntries: a.TimeEntries,
	}
}
