package task

import (
	"context"
	"errors"
	"fmt"

	"github.com/rpggio/agencyops/internal/auth"
	"github.com/rpggio/agencyops/internal/domain/activity"
	"github.com/rpggio/agencyops/internal/repository"
)

// AddDependency records that taskID is blocked by blockerID. The edge is
// rejected if blockerID already (transitively) waits on taskID. When the
// blocker isn't done, an active task becomes blocked.
func (s *Service) AddDependency(ctx context.Context, actor auth.Context, taskID, blockerID string) (*Task, error) {
	if err := actor.Require(auth.RoleAdmin, auth.RolePM); err != nil {
		return nil, err
	}
	if taskID == blockerID {
		return nil, ErrSelfDependency
	}

	var (
		updated *Task
		from    Status
	)
	err := s.repo.InTx(ctx, func(tx Repository) error {
		t, err := tx.Get(ctx, taskID)
		if err != nil {
			return mapNotFound(err, ErrTaskNotFound)
		}
		blocker, err := tx.Get(ctx, blockerID)
		if err != nil {
			return mapNotFound(err, ErrBlockerNotFound)
		}

		cyclic, err := reaches(ctx, tx, blockerID, taskID)
		if err != nil {
			return err
		}
		if cyclic {
			return fmt.Errorf("%w: %s already depends on %s", ErrCircularDependency, blockerID, taskID)
		}

		if err := tx.AddDependency(ctx, taskID, blockerID); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return ErrDependencyExists
			}
			return fmt.Errorf("adding dependency: %w", err)
		}

		from = t.Status
		if blocker.Status != StatusDone && isActive(t.Status) {
			if _, err := tx.SetStatuses(ctx, []string{taskID}, activeStatuses, StatusBlocked, s.now()); err != nil {
				return fmt.Errorf("blocking task: %w", err)
			}
		}

		updated, err = tx.Get(ctx, taskID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logActivity(ctx, activity.Change(activity.EntityTask, taskID, actor.UserID,
		activity.ActionDependencyAdded, "blocked_by", "", blockerID))
	if from != updated.Status {
		s.logActivity(ctx, activity.Change(activity.EntityTask, taskID, actor.UserID,
			activity.ActionStatusChanged, "status", string(from), string(updated.Status)))
	}
	return updated, nil
}

// RemoveDependency deletes the edge. A blocked task with no incomplete
// blockers left returns to not_started.
func (s *Service) RemoveDependency(ctx context.Context, actor auth.Context, taskID, blockerID string) (*Task, error) {
	if err := actor.Require(auth.RoleAdmin, auth.RolePM); err != nil {
		return nil, err
	}

	var updated *Task
	unblocked := false
	err := s.repo.InTx(ctx, func(tx Repository) error {
		t, err := tx.Get(ctx, taskID)
		if err != nil {
			return mapNotFound(err, ErrTaskNotFound)
		}
		if err := tx.RemoveDependency(ctx, taskID, blockerID); err != nil {
			return mapNotFound(err, ErrDependencyNotFound)
		}

		if t.Status == StatusBlocked {
			remaining, err := tx.IncompleteBlockers(ctx, taskID)
			if err != nil {
				return fmt.Errorf("checking blockers: %w", err)
			}
			if len(remaining) == 0 {
				n, err := tx.SetStatuses(ctx, []string{taskID}, []Status{StatusBlocked}, StatusNotStarted, s.now())
				if err != nil {
					return fmt.Errorf("unblocking task: %w", err)
				}
				unblocked = n > 0
			}
		}

		updated, err = tx.Get(ctx, taskID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logActivity(ctx, activity.Change(activity.EntityTask, taskID, actor.UserID,
		activity.ActionDependencyRemoved, "blocked_by", blockerID, ""))
	if unblocked {
		s.logActivity(ctx, activity.Change(activity.EntityTask, taskID, actor.UserID,
			activity.ActionUnblocked, "status", string(StatusBlocked), string(StatusNotStarted)))
	}
	return updated, nil
}

// reaches reports whether target is reachable from start by following
// blocked_by edges.
func reaches(ctx context.Context, repo Repository, start, target string) (bool, error) {
	seen := map[string]bool{start: true}
	stack := []string{start}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		blockers, err := repo.BlockerIDs(ctx, id)
		if err != nil {
			return false, fmt.Errorf("walking dependencies: %w", err)
		}
		for _, b := range blockers {
			if b == target {
				return true, nil
			}
			if !seen[b] {
				seen[b] = true
				stack = append(stack, b)
			}
		}
	}
	return false, nil
}
