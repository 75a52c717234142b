package timeentry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rpggio/agencyops/internal/auth"
	"github.com/rpggio/agencyops/internal/errs"
	"github.com/rpggio/agencyops/internal/repository"
)

// Service handles time tracking.
type Service struct {
	repo   Repository
	tasks  Tasks
	logger zerolog.Logger
	now    func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a new time entry service. tasks may be nil.
func NewService(repo Repository, tasks Tasks, logger zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		repo:   repo,
		tasks:  tasks,
		logger: logger.With().Str("component", "timeentry").Logger(),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateRequest is a manually logged span.
type CreateRequest struct {
	TaskID      *string    `json:"task_id"`
	ProjectID   *string    `json:"project_id"`
	Description string     `json:"description"`
	StartedAt   time.Time  `json:"started_at"`
	EndedAt     *time.Time `json:"ended_at"`
	Duration    int        `json:"duration"`
	IsBillable  *bool      `json:"is_billable"`
}

// StartRequest starts a timer on a task.
type StartRequest struct {
	TaskID      string  `json:"task_id"`
	ProjectID   *string `json:"project_id"`
	Description string  `json:"description"`
}

// Create logs a completed span for the caller.
func (s *Service) Create(ctx context.Context, actor auth.Context, req CreateRequest) (*Entry, error) {
	if req.Duration <= 0 {
		return nil, fmt.Errorf("%w: duration must be positive", ErrInvalidInput)
	}
	if req.StartedAt.IsZero() {
		return nil, fmt.Errorf("%w: started_at is required", ErrInvalidInput)
	}
	if req.EndedAt != nil && req.EndedAt.Before(req.StartedAt) {
		return nil, fmt.Errorf("%w: ended_at is before started_at", ErrInvalidInput)
	}
	if req.TaskID != nil {
		if err := s.checkTask(ctx, actor, *req.TaskID); err != nil {
			return nil, err
		}
	}

	projectID, err := s.resolveProject(ctx, req.TaskID, req.ProjectID)
	if err != nil {
		return nil, err
	}

	e := &Entry{
		ID:          uuid.NewString(),
		UserID:      actor.UserID,
		TaskID:      req.TaskID,
		ProjectID:   projectID,
		Description: req.Description,
		StartedAt:   req.StartedAt.UTC(),
		Duration:    req.Duration,
		IsBillable:  true,
		CreatedAt:   s.now(),
	}
	if req.EndedAt != nil {
		ended := req.EndedAt.UTC()
		e.EndedAt = &ended
	}
	if req.IsBillable != nil {
		e.IsBillable = *req.IsBillable
	}

	if err := s.repo.Create(ctx, e); err != nil {
		return nil, s.mapCreateErr(err)
	}
	return e, nil
}

// Start stops any timer the caller has running and starts a new one.
func (s *Service) Start(ctx context.Context, actor auth.Context, req StartRequest) (*Entry, error) {
	if req.TaskID == "" {
		return nil, fmt.Errorf("%w: task_id is required", ErrInvalidInput)
	}
	if err := s.checkTask(ctx, actor, req.TaskID); err != nil {
		return nil, err
	}
	projectID, err := s.resolveProject(ctx, &req.TaskID, req.ProjectID)
	if err != nil {
		return nil, err
	}

	running, err := s.repo.Running(ctx, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("listing running timers: %w", err)
	}
	now := s.now()
	for _, r := range running {
		if err := s.repo.Stop(ctx, r.ID, now, ElapsedMinutes(r.StartedAt, now)); err != nil {
			return nil, fmt.Errorf("stopping timer %s: %w", r.ID, err)
		}
	}

	taskID := req.TaskID
	e := &Entry{
		ID:          uuid.NewString(),
		UserID:      actor.UserID,
		TaskID:      &taskID,
		ProjectID:   projectID,
		Description: req.Description,
		StartedAt:   now,
		IsRunning:   true,
		IsBillable:  true,
		CreatedAt:   now,
	}
	if err := s.repo.Create(ctx, e); err != nil {
		return nil, s.mapCreateErr(err)
	}

	if s.tasks != nil {
		if err := s.tasks.StartWork(ctx, actor, taskID); err != nil {
			s.logger.Warn().Err(err).Str("task_id", taskID).Msg("failed to mark task in progress")
		}
	}
	s.logger.Debug().Str("entry_id", e.ID).Str("user_id", actor.UserID).Msg("timer started")
	return e, nil
}

// Stop ends the caller's running timer, rounding up to whole minutes.
func (s *Service) Stop(ctx context.Context, actor auth.Context, id string) (*Entry, error) {
	e, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.UserID != actor.UserID {
		return nil, ErrNotOwner
	}
	if !e.IsRunning {
		return nil, ErrNotRunning
	}

	now := s.now()
	duration := ElapsedMinutes(e.StartedAt, now)
	if err := s.repo.Stop(ctx, id, now, duration); err != nil {
		return nil, fmt.Errorf("stopping timer: %w", err)
	}
	e.IsRunning = false
	e.EndedAt = &now
	e.Duration = duration
	return e, nil
}

// Delete soft-deletes an entry owned by the caller, or any entry for pm/admin.
func (s *Service) Delete(ctx context.Context, actor auth.Context, id string) error {
	e, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	if e.UserID != actor.UserID && !actor.Privileged() {
		return ErrNotOwner
	}
	if err := s.repo.SoftDelete(ctx, id, s.now()); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrEntryNotFound
		}
		return fmt.Errorf("deleting time entry: %w", err)
	}
	return nil
}

// List returns entries. Tech users only see their own.
func (s *Service) List(ctx context.Context, actor auth.Context, opts ListOptions) ([]Entry, error) {
	if !actor.Privileged() {
		opts.UserID = actor.UserID
	}
	if opts.Limit <= 0 || opts.Limit > 500 {
		opts.Limit = 100
	}
	return s.repo.List(ctx, opts)
}

func (s *Service) get(ctx context.Context, id string) (*Entry, error) {
	e, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrEntryNotFound
		}
		return nil, fmt.Errorf("getting time entry: %w", err)
	}
	return e, nil
}

// checkTask hides tasks the caller can't see behind ErrTaskNotFound.
func (s *Service) checkTask(ctx context.Context, actor auth.Context, taskID string) error {
	if s.tasks == nil {
		return nil
	}
	err := s.tasks.CheckAccess(ctx, actor, taskID)
	switch {
	case err == nil:
		return nil
	case errs.Is(err, errs.KindNotFound):
		return ErrTaskNotFound
	default:
		return fmt.Errorf("checking task: %w", err)
	}
}

// resolveProject fills the project from the task when the caller omits it.
func (s *Service) resolveProject(ctx context.Context, taskID, projectID *string) (*string, error) {
	if projectID != nil || taskID == nil {
		return projectID, nil
	}
	p, err := s.repo.TaskProject(ctx, *taskID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("resolving project: %w", err)
	}
	return p, nil
}

func (s *Service) mapCreateErr(err error) error {
	if errors.Is(err, repository.ErrForeignKeyViolation) {
		return fmt.Errorf("%w: referenced task, project or user not found", ErrInvalidInput)
	}
	return fmt.Errorf("creating time entry: %w", err)
}
