package task

import (
	"context"
	"fmt"

	"github.com/rpggio/agencyops/internal/auth"
	"github.com/rpggio/agencyops/internal/domain/activity"
)

// CheckAccess returns ErrTaskNotFound unless the task exists and is visible
// to the caller.
func (s *Service) CheckAccess(ctx context.Context, actor auth.Context, id string) error {
	_, err := s.getVisible(ctx, actor, id)
	return err
}

// StartWork marks a task as the caller's focus when they start a timer on it.
// A not_started task moves to in_progress and an unassigned task is assigned
// to the caller. Other statuses are left alone.
func (s *Service) StartWork(ctx context.Context, actor auth.Context, id string) error {
	if _, err := s.getVisible(ctx, actor, id); err != nil {
		return err
	}

	var from, to Status
	err := s.repo.InTx(ctx, func(tx Repository) error {
		t, err := tx.Get(ctx, id)
		if err != nil {
			return mapNotFound(err, ErrTaskNotFound)
		}
		from = t.Status
		now := s.now()
		if t.Status == StatusNotStarted {
			ApplyStatus(t, StatusInProgress, now)
		}
		t.IsFocus = true
		if t.AssigneeID == nil {
			uid := actor.UserID
			t.AssigneeID = &uid
		}
		t.UpdatedAt = now
		to = t.Status
		if err := tx.Update(ctx, t); err != nil {
			return fmt.Errorf("updating task: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if from != to {
		s.logActivity(ctx, activity.Change(activity.EntityTask, id, actor.UserID,
			activity.ActionStatusChanged, "status", string(from), string(to)))
		if s.recorder != nil {
			s.recorder.RecordTransition(string(from), string(to))
		}
	}
	return nil
}
