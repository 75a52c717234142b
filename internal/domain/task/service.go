package task

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rpggio/agencyops/internal/auth"
	"github.com/rpggio/agencyops/internal/domain/activity"
	"github.com/rpggio/agencyops/internal/domain/estimate"
	"github.com/rpggio/agencyops/internal/errs"
	"github.com/rpggio/agencyops/internal/repository"
)

const defaultPriority = 3

// Service handles task business logic.
type Service struct {
	repo        Repository
	members     MembershipChecker
	activities  ActivityLogger
	recorder    Recorder
	defaultRate float64
	logger      zerolog.Logger
	now         func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithRecorder attaches a metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

// WithDefaultRate sets the hourly rate used when a task's client has none.
func WithDefaultRate(rate float64) Option {
	return func(s *Service) { s.defaultRate = rate }
}

// NewService creates a new task service.
func NewService(repo Repository, members MembershipChecker, activities ActivityLogger, logger zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		repo:       repo,
		members:    members,
		activities: activities,
		logger:     logger.With().Str("component", "task").Logger(),
		now:        func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create creates a new task.
func (s *Service) Create(ctx context.Context, actor auth.Context, req CreateRequest) (*Task, error) {
	if err := actor.Require(auth.RoleAdmin, auth.RolePM); err != nil {
		return nil, err
	}
	if err := ValidateCreateInput(req); err != nil {
		return nil, err
	}

	now := s.now()
	t := &Task{
		ID:             uuid.NewString(),
		Title:          strings.TrimSpace(req.Title),
		Description:    req.Description,
		Status:         StatusNotStarted,
		Priority:       req.Priority,
		ProjectID:      req.ProjectID,
		ClientID:       req.ClientID,
		SiteID:         req.SiteID,
		AssigneeID:     req.AssigneeID,
		IsBillable:     true,
		IsRetainerWork: req.IsRetainerWork,
		IsSupport:      req.IsSupport,
		BillingAmount:  req.BillingAmount,
		BillingTarget:  req.BillingTarget,
		EnergyEstimate: req.EnergyEstimate,
		MysteryFactor:  req.MysteryFactor,
		BatteryImpact:  req.BatteryImpact,
		Notes:          req.Notes,
		Requirements:   req.Requirements,
		DueDate:        utcPtr(req.DueDate),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if t.Priority == 0 {
		t.Priority = defaultPriority
	}
	if req.IsBillable != nil {
		t.IsBillable = *req.IsBillable
	}
	if t.MysteryFactor == "" {
		t.MysteryFactor = estimate.MysteryNone
	}
	if t.BatteryImpact == "" {
		t.BatteryImpact = BatteryAverageDrain
	}
	if req.Status != "" {
		ApplyStatus(t, req.Status, now)
	}
	refreshEstimate(t)

	if err := s.repo.Create(ctx, t); err != nil {
		if errors.Is(err, repository.ErrForeignKeyViolation) {
			return nil, fmt.Errorf("%w: referenced project, client, site or assignee not found, or the site belongs to another client", ErrInvalidInput)
		}
		return nil, fmt.Errorf("creating task: %w", err)
	}

	s.logActivity(ctx, activity.Change(activity.EntityTask, t.ID, actor.UserID, activity.ActionCreated, "", "", ""))
	return t, nil
}

// Get returns a task visible to the caller.
func (s *Service) Get(ctx context.Context, actor auth.Context, id string) (*Task, error) {
	return s.getVisible(ctx, actor, id)
}

// List returns tasks matching opts. Tech users only see their visible set.
func (s *Service) List(ctx context.Context, actor auth.Context, opts ListOptions) ([]Task, error) {
	if !actor.Privileged() {
		opts.VisibleTo = actor.UserID
	}
	tasks, err := s.repo.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}
	return tasks, nil
}

// UpdateStatus applies a status-only change.
func (s *Service) UpdateStatus(ctx context.Context, actor auth.Context, id string, to Status) (*Task, CascadeResult, error) {
	return s.Update(ctx, actor, id, UpdateRequest{Status: Some(to)})
}

// Update applies a partial update. A status change goes through the
// transition rules, and its cascade to dependents runs in the same
// transaction as the task write.
func (s *Service) Update(ctx context.Context, actor auth.Context, id string, req UpdateRequest) (*Task, CascadeResult, error) {
	var cascade CascadeResult

	fields := req.SetFields()
	if len(fields) == 0 {
		return nil, cascade, ErrNoChanges
	}
	if actor.Role == auth.RoleTech {
		var denied []string
		for _, f := range fields {
			if !techFields[f] {
				denied = append(denied, f)
			}
		}
		if len(denied) > 0 {
			return nil, cascade, errs.Permissionf("Tech users cannot update: %s", strings.Join(denied, ", "))
		}
	}
	if err := validateUpdate(req); err != nil {
		return nil, cascade, err
	}
	if _, err := s.getVisible(ctx, actor, id); err != nil {
		return nil, cascade, err
	}

	var (
		updated *Task
		from    Status
	)
	err := s.repo.InTx(ctx, func(tx Repository) error {
		t, err := tx.Get(ctx, id)
		if err != nil {
			return mapNotFound(err, ErrTaskNotFound)
		}
		from = t.Status
		to := t.Status
		if req.Status.Set {
			to = *req.Status.Value
			if err := ValidateTransition(from, to); err != nil {
				return err
			}
			if err := checkLeaveBlocked(ctx, tx, t, to); err != nil {
				return err
			}
		}

		now := s.now()
		applyFields(t, req)
		ApplyStatus(t, to, now)
		refreshEstimate(t)
		t.UpdatedAt = now

		if err := tx.Update(ctx, t); err != nil {
			if errors.Is(err, repository.ErrForeignKeyViolation) {
				return fmt.Errorf("%w: referenced assignee not found", ErrInvalidInput)
			}
			return fmt.Errorf("updating task: %w", err)
		}

		cascade, err = s.cascade(ctx, tx, t.ID, from, to, now)
		if err != nil {
			return err
		}

		updated, err = tx.Get(ctx, id)
		if err != nil {
			return fmt.Errorf("reloading task: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, CascadeResult{}, err
	}

	s.afterUpdate(ctx, actor, updated, from, fields, cascade)
	return updated, cascade, nil
}

// Delete soft-deletes a task.
func (s *Service) Delete(ctx context.Context, actor auth.Context, id string) error {
	if err := actor.Require(auth.RoleAdmin, auth.RolePM); err != nil {
		return err
	}
	if err := s.repo.SoftDelete(ctx, id, s.now()); err != nil {
		return mapNotFound(err, ErrTaskNotFound)
	}
	s.logActivity(ctx, activity.Change(activity.EntityTask, id, actor.UserID, activity.ActionDeleted, "", "", ""))
	return nil
}

// cascade propagates a status change to dependents. Only transitions into or
// out of done touch dependents at all.
func (s *Service) cascade(ctx context.Context, tx Repository, taskID string, from, to Status, now time.Time) (CascadeResult, error) {
	var result CascadeResult
	kind := cascadeFor(from, to)
	if kind == cascadeNone {
		return result, nil
	}

	deps, err := tx.ListDependents(ctx, taskID)
	if err != nil {
		return result, fmt.Errorf("listing dependents: %w", err)
	}

	switch kind {
	case cascadeUnblock:
		ids := UnblockCandidates(deps)
		if len(ids) == 0 {
			return result, nil
		}
		if _, err := tx.SetStatuses(ctx, ids, []Status{StatusBlocked}, StatusNotStarted, now); err != nil {
			return result, fmt.Errorf("unblocking dependents: %w", err)
		}
		result.Unblocked = ids
	case cascadeReblock:
		ids := ReblockCandidates(deps)
		if len(ids) == 0 {
			return result, nil
		}
		if _, err := tx.SetStatuses(ctx, ids, activeStatuses, StatusBlocked, now); err != nil {
			return result, fmt.Errorf("reblocking dependents: %w", err)
		}
		result.Reblocked = ids
	}
	return result, nil
}

func (s *Service) afterUpdate(ctx context.Context, actor auth.Context, t *Task, from Status, fields []string, cascade CascadeResult) {
	if from != t.Status {
		s.logActivity(ctx, activity.Change(activity.EntityTask, t.ID, actor.UserID,
			activity.ActionStatusChanged, "status", string(from), string(t.Status)))
		if s.recorder != nil {
			s.recorder.RecordTransition(string(from), string(t.Status))
		}
	}
	var other []string
	for _, f := range fields {
		if f != "status" {
			other = append(other, f)
		}
	}
	if len(other) > 0 {
		s.logActivity(ctx, activity.Change(activity.EntityTask, t.ID, actor.UserID,
			activity.ActionUpdated, "fields", "", strings.Join(other, ",")))
	}
	for _, id := range cascade.Unblocked {
		s.logActivity(ctx, activity.Change(activity.EntityTask, id, actor.UserID,
			activity.ActionUnblocked, "status", string(StatusBlocked), string(StatusNotStarted)))
	}
	for _, id := range cascade.Reblocked {
		s.logActivity(ctx, activity.Change(activity.EntityTask, id, actor.UserID,
			activity.ActionReblocked, "status", "", string(StatusBlocked)))
	}
	if s.recorder != nil {
		if n := len(cascade.Unblocked); n > 0 {
			s.recorder.RecordCascade("unblock", n)
		}
		if n := len(cascade.Reblocked); n > 0 {
			s.recorder.RecordCascade("reblock", n)
		}
	}
	if !cascade.Empty() {
		s.logger.Info().
			Str("task_id", t.ID).
			Str("from", string(from)).
			Str("to", string(t.Status)).
			Strs("unblocked", cascade.Unblocked).
			Strs("reblocked", cascade.Reblocked).
			Msg("status cascade applied")
	}
}

// getVisible loads a task and applies the tech visibility rule: ad-hoc tasks
// assigned to the caller, or project tasks on projects they belong to.
func (s *Service) getVisible(ctx context.Context, actor auth.Context, id string) (*Task, error) {
	t, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, mapNotFound(err, ErrTaskNotFound)
	}
	if actor.Privileged() {
		return t, nil
	}
	if t.ProjectID == nil {
		if t.AssigneeID != nil && *t.AssigneeID == actor.UserID {
			return t, nil
		}
		return nil, ErrTaskNotFound
	}
	ok, err := s.members.IsMember(ctx, *t.ProjectID, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("checking project membership: %w", err)
	}
	if !ok {
		return nil, ErrTaskNotFound
	}
	return t, nil
}

func (s *Service) logActivity(ctx context.Context, entry *activity.Entry) {
	if s.activities == nil {
		return
	}
	if err := s.activities.LogActivity(ctx, entry); err != nil {
		s.logger.Warn().Err(err).Str("entity_id", entry.EntityID).Msg("failed to log activity")
	}
}

func validateUpdate(req UpdateRequest) error {
	if req.Title.Set && (req.Title.Value == nil || strings.TrimSpace(*req.Title.Value) == "") {
		return fmt.Errorf("%w: title cannot be empty", ErrInvalidInput)
	}
	if req.Status.Set {
		if req.Status.Value == nil {
			return fmt.Errorf("%w: status cannot be null", ErrInvalidInput)
		}
		if _, err := ParseStatus(string(*req.Status.Value)); err != nil {
			return err
		}
	}
	if req.Priority.Set {
		if req.Priority.Value == nil {
			return fmt.Errorf("%w: priority cannot be null", ErrInvalidInput)
		}
		if err := validatePriority(*req.Priority.Value); err != nil {
			return err
		}
	}
	if req.BatteryImpact.Set && req.BatteryImpact.Value != nil && *req.BatteryImpact.Value != "" {
		if _, err := ParseBatteryImpact(string(*req.BatteryImpact.Value)); err != nil {
			return err
		}
	}
	if req.MysteryFactor.Set && req.MysteryFactor.Value != nil && *req.MysteryFactor.Value != "" {
		if _, err := estimate.ParseMysteryFactor(string(*req.MysteryFactor.Value)); err != nil {
			return err
		}
	}
	if req.EnergyEstimate.Set && req.EnergyEstimate.Value != nil && !req.EnergyEstimate.Value.Valid() {
		return estimate.ErrInvalidEnergy
	}
	if v := req.BillingAmount.Value; req.BillingAmount.Set && v != nil && *v < 0 {
		return fmt.Errorf("%w: billing_amount must not be negative", ErrInvalidInput)
	}
	if v := req.BillingTarget.Value; req.BillingTarget.Set && v != nil && *v < 0 {
		return fmt.Errorf("%w: billing_target must not be negative", ErrInvalidInput)
	}
	return nil
}

// applyFields copies every set field except status onto t.
func applyFields(t *Task, req UpdateRequest) {
	if req.Title.Set {
		t.Title = strings.TrimSpace(*req.Title.Value)
	}
	if req.Description.Set {
		t.Description = deref(req.Description.Value)
	}
	if req.Priority.Set {
		t.Priority = *req.Priority.Value
	}
	if req.IsFocus.Set {
		t.IsFocus = deref(req.IsFocus.Value)
	}
	if req.Notes.Set {
		t.Notes = deref(req.Notes.Value)
	}
	if req.Requirements.Set {
		t.Requirements = deref(req.Requirements.Value)
	}
	if req.AssigneeID.Set {
		t.AssigneeID = req.AssigneeID.Value
	}
	if req.EnergyEstimate.Set {
		t.EnergyEstimate = req.EnergyEstimate.Value
	}
	if req.MysteryFactor.Set {
		t.MysteryFactor = estimate.MysteryNone
		if req.MysteryFactor.Value != nil && *req.MysteryFactor.Value != "" {
			t.MysteryFactor = *req.MysteryFactor.Value
		}
	}
	if req.BatteryImpact.Set {
		t.BatteryImpact = BatteryAverageDrain
		if req.BatteryImpact.Value != nil && *req.BatteryImpact.Value != "" {
			t.BatteryImpact = *req.BatteryImpact.Value
		}
	}
	if req.DueDate.Set {
		t.DueDate = utcPtr(req.DueDate.Value)
	}
	if req.IsBillable.Set {
		t.IsBillable = deref(req.IsBillable.Value)
	}
	if req.IsRetainerWork.Set {
		t.IsRetainerWork = deref(req.IsRetainerWork.Value)
	}
	if req.IsSupport.Set {
		t.IsSupport = deref(req.IsSupport.Value)
	}
	if req.BillingAmount.Set {
		t.BillingAmount = req.BillingAmount.Value
	}
	if req.BillingTarget.Set {
		t.BillingTarget = req.BillingTarget.Value
	}
	if req.Invoiced.Set {
		t.Invoiced = deref(req.Invoiced.Value)
	}
}

func refreshEstimate(t *Task) {
	if t.EnergyEstimate == nil {
		t.EstimatedMinutes = nil
		return
	}
	minutes := estimate.MaxMinutes(t.EnergyEstimate, t.MysteryFactor)
	t.EstimatedMinutes = &minutes
}

func mapNotFound(err, sentinel error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return sentinel
	}
	return err
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
