package task

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rpggio/agencyops/internal/domain/estimate"
)

var transitions = map[Status][]Status{
	StatusNotStarted: {StatusInProgress, StatusBlocked, StatusAbandoned},
	StatusInProgress: {StatusReview, StatusNotStarted, StatusBlocked, StatusAbandoned},
	StatusReview:     {StatusDone, StatusInProgress, StatusAbandoned},
	StatusDone:       {StatusInProgress},
	StatusBlocked:    {StatusNotStarted, StatusInProgress, StatusAbandoned},
	StatusAbandoned:  {StatusNotStarted},
}

// CanTransition reports whether a task may move from one status to another.
// Staying in the same status is always allowed.
func CanTransition(from, to Status) bool {
	if from == to {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// NextStatuses lists the statuses reachable from current in one step.
func NextStatuses(current Status) []Status {
	return append([]Status(nil), transitions[current]...)
}

// ValidateTransition returns ErrInvalidTransition naming both states when the
// move is not allowed.
func ValidateTransition(from, to Status) error {
	if _, err := ParseStatus(string(to)); err != nil {
		return err
	}
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: cannot move from %s to %s", ErrInvalidTransition, from, to)
	}
	return nil
}

// checkLeaveBlocked rejects moving a blocked task back into work while any
// of its blockers is not done.
func checkLeaveBlocked(ctx context.Context, repo Repository, t *Task, to Status) error {
	if t.Status != StatusBlocked || (to != StatusNotStarted && to != StatusInProgress) {
		return nil
	}
	remaining, err := repo.IncompleteBlockers(ctx, t.ID)
	if err != nil {
		return fmt.Errorf("checking blockers: %w", err)
	}
	if len(remaining) > 0 {
		return fmt.Errorf("%w: %s is still blocked by %s", ErrInvalidTransition, t.ID, strings.Join(remaining, ", "))
	}
	return nil
}

// ApplyStatus sets the status and its timestamp side effects.
func ApplyStatus(t *Task, to Status, now time.Time) {
	from := t.Status
	t.Status = to
	if from == to {
		return
	}
	if to == StatusInProgress {
		if t.StartedAt == nil {
			started := now
			t.StartedAt = &started
		}
		t.IsFocus = true
	}
	if to == StatusDone {
		completed := now
		t.CompletedAt = &completed
	}
	if from == StatusDone {
		t.CompletedAt = nil
	}
}

// ValidateCreateInput validates fields required to create a task.
func ValidateCreateInput(req CreateRequest) error {
	if strings.TrimSpace(req.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if req.ProjectID != nil && req.ClientID != nil {
		return fmt.Errorf("%w: a task belongs to a project or a client, not both", ErrInvalidInput)
	}
	if req.SiteID != nil && req.ClientID == nil {
		return fmt.Errorf("%w: site requires a client", ErrInvalidInput)
	}
	if req.Priority != 0 {
		if err := validatePriority(req.Priority); err != nil {
			return err
		}
	}
	if req.Status != "" {
		if _, err := ParseStatus(string(req.Status)); err != nil {
			return err
		}
		if req.Status == StatusDone {
			return fmt.Errorf("%w: a task cannot be created as done", ErrInvalidInput)
		}
	}
	if req.BatteryImpact != "" {
		if _, err := ParseBatteryImpact(string(req.BatteryImpact)); err != nil {
			return err
		}
	}
	if req.MysteryFactor != "" {
		if _, err := estimate.ParseMysteryFactor(string(req.MysteryFactor)); err != nil {
			return err
		}
	}
	if req.BillingAmount != nil && *req.BillingAmount < 0 {
		return fmt.Errorf("%w: billing_amount must not be negative", ErrInvalidInput)
	}
	if req.BillingTarget != nil && *req.BillingTarget < 0 {
		return fmt.Errorf("%w: billing_target must not be negative", ErrInvalidInput)
	}
	return nil
}

func validatePriority(p int) error {
	if p < 1 || p > 5 {
		return fmt.Errorf("%w: priority must be between 1 and 5", ErrInvalidInput)
	}
	return nil
}
