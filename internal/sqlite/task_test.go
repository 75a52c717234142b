package sqlite

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/rpggio/agencyops/internal/auth"
	"github.com/rpggio/agencyops/internal/domain/estimate"
	"github.com/rpggio/agencyops/internal/domain/task"
	"github.com/rpggio/agencyops/internal/repository"
)

func TestTaskRepository_RoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.client("acme", 0)
	f.user("sam")

	due := time.Date(2026, 4, 20, 17, 0, 0, 0, time.UTC)
	price := 750.0
	e := estimate.Energy(5)
	f.task("t1", task.StatusNotStarted, func(tk *task.Task) {
		tk.ClientID = &c.ID
		tk.AssigneeID = strPtr("sam")
		tk.DueDate = &due
		tk.BillingAmount = &price
		tk.EnergyEstimate = &e
		tk.MysteryFactor = estimate.MysterySignificant
	})

	got, err := f.tasks.Get(ctx, "t1")
	require.NoError(t, err)
	require.Equal(t, "acme", *got.ClientID)
	require.Nil(t, got.ProjectID)
	require.True(t, due.Equal(*got.DueDate))
	require.Equal(t, 750.0, *got.BillingAmount)
	require.Equal(t, estimate.Energy(5), *got.EnergyEstimate)
	require.Equal(t, estimate.MysterySignificant, got.MysteryFactor)
	require.Nil(t, got.StartedAt)
	require.Empty(t, got.BlockedBy)

	now := epoch.Add(time.Hour)
	got.Status = task.StatusInProgress
	got.StartedAt = &now
	got.UpdatedAt = now
	require.NoError(t, f.tasks.Update(ctx, got))

	again, err := f.tasks.Get(ctx, "t1")
	require.NoError(t, err)
	require.Equal(t, task.StatusInProgress, again.Status)
	require.True(t, now.Equal(*again.StartedAt))
}

func TestTaskRepository_SoftDeleteHidesTask(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.task("t1", task.StatusNotStarted)

	require.NoError(t, f.tasks.SoftDelete(ctx, "t1", epoch))
	_, err := f.tasks.Get(ctx, "t1")
	require.ErrorIs(t, err, repository.ErrNotFound)
	require.ErrorIs(t, f.tasks.SoftDelete(ctx, "t1", epoch), repository.ErrNotFound)

	list, err := f.tasks.List(ctx, task.ListOptions{})
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestTaskRepository_ForeignKey(t *testing.T) {
	f := newFixture(t)
	err := f.tasks.Create(context.Background(), &task.Task{
		ID: "t1", Title: "x", Status: task.StatusNotStarted, Priority: 3,
		ProjectID: strPtr("ghost"), MysteryFactor: "none", BatteryImpact: task.BatteryAverageDrain,
		CreatedAt: epoch, UpdatedAt: epoch,
	})
	require.ErrorIs(t, err, repository.ErrForeignKeyViolation)
}

func TestTaskRepository_Dependencies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.task("a", task.StatusDone)
	f.task("b", task.StatusBlocked)
	f.task("c", task.StatusInProgress)
	f.depend("b", "a")
	f.depend("b", "c")

	require.ErrorIs(t, f.tasks.AddDependency(ctx, "b", "a"), repository.ErrConflict)

	blockers, err := f.tasks.BlockerIDs(ctx, "b")
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"a", "c"}, blockers)

	incomplete, err := f.tasks.IncompleteBlockers(ctx, "b")
	require.NoError(t, err)
	require.Equal(t, []string{"c"}, incomplete)

	got, err := f.tasks.Get(ctx, "b")
	require.NoError(t, err)
	require.Len(t, got.BlockedBy, 2)

	deps, err := f.tasks.ListDependents(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, []task.Dependent{{ID: "b", Status: task.StatusBlocked, IncompleteBlockers: []string{"c"}}}, deps)

	require.NoError(t, f.tasks.RemoveDependency(ctx, "b", "c"))
	require.ErrorIs(t, f.tasks.RemoveDependency(ctx, "b", "c"), repository.ErrNotFound)
}

func TestTaskRepository_SetStatusesIsGuarded(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.task("x", task.StatusBlocked)
	f.task("y", task.StatusInProgress)

	n, err := f.tasks.SetStatuses(ctx, []string{"x", "y"}, []task.Status{task.StatusBlocked}, task.StatusNotStarted, epoch)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
	require.Equal(t, task.StatusNotStarted, f.status("x"))
	require.Equal(t, task.StatusInProgress, f.status("y"))

	n, err = f.tasks.SetStatuses(ctx, []string{"x"}, []task.Status{task.StatusBlocked}, task.StatusNotStarted, epoch)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestTaskRepository_ListVisibleTo(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.client("acme", 0)
	f.user("sam")
	f.user("kim")
	f.project("mine", c.ID, false)
	f.project("theirs", c.ID, false)
	require.NoError(t, f.projects.AddMember(ctx, "mine", "sam"))

	f.task("p-mine", task.StatusNotStarted, func(tk *task.Task) { tk.ProjectID = strPtr("mine") })
	f.task("p-theirs", task.StatusNotStarted, func(tk *task.Task) { tk.ProjectID = strPtr("theirs") })
	f.task("adhoc-mine", task.StatusNotStarted, func(tk *task.Task) { tk.ClientID = &c.ID; tk.AssigneeID = strPtr("sam") })
	f.task("adhoc-kim", task.StatusNotStarted, func(tk *task.Task) { tk.ClientID = &c.ID; tk.AssigneeID = strPtr("kim") })

	list, err := f.tasks.List(ctx, task.ListOptions{VisibleTo: "sam"})
	require.NoError(t, err)
	ids := []string{}
	for _, tk := range list {
		ids = append(ids, tk.ID)
	}
	require.ElementsMatch(t, []string{"p-mine", "adhoc-mine"}, ids)

	list, err = f.tasks.List(ctx, task.ListOptions{ClientID: c.ID, Statuses: []task.Status{task.StatusNotStarted}})
	require.NoError(t, err)
	require.Len(t, list, 4)
}

func TestTaskRepository_InTxRollsBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.task("x", task.StatusBlocked)

	err := f.tasks.InTx(ctx, func(tx task.Repository) error {
		if _, err := tx.SetStatuses(ctx, []string{"x"}, []task.Status{task.StatusBlocked}, task.StatusNotStarted, epoch); err != nil {
			return err
		}
		return repository.ErrInvalidInput
	})
	require.ErrorIs(t, err, repository.ErrInvalidInput)
	require.Equal(t, task.StatusBlocked, f.status("x"))
}

func TestTaskRepository_BillingLookups(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.client("acme", 0)
	rate := 95.0
	c.HourlyRate = &rate
	c.UpdatedAt = f.next()
	require.NoError(t, f.clients.Update(ctx, c))
	f.project("site", c.ID, false)
	f.user("sam")
	f.task("t1", task.StatusInProgress, func(tk *task.Task) { tk.ProjectID = strPtr("site") })

	entries := NewTimeEntryRepository(f.db)
	for i, minutes := range []int{30, 45} {
		require.NoError(t, entries.Create(ctx, timeEntry(fmt.Sprintf("e%d", i), "sam", "t1", epoch, minutes)))
	}

	spent, err := f.tasks.TimeSpent(ctx, "t1")
	require.NoError(t, err)
	require.Equal(t, 75, spent)

	got, err := f.tasks.HourlyRate(ctx, "t1")
	require.NoError(t, err)
	require.Equal(t, 95.0, *got)
}

// The cascade properties below run the task service against SQLite so the
// transactional writes are exercised for real.

func cascadeService(f *fixture) *task.Service {
	return task.NewService(f.tasks, f.projects, nil, zerolog.Nop(),
		task.WithClock(func() time.Time { return epoch.Add(24 * time.Hour) }))
}

var admin = auth.Context{UserID: "admin", Role: auth.RoleAdmin}

func TestCascade_CompletionUnblocksSoleDependent(t *testing.T) {
	f := newFixture(t)
	f.task("A", task.StatusReview)
	f.task("B", task.StatusBlocked)
	f.depend("B", "A")

	_, res, err := cascadeService(f).UpdateStatus(context.Background(), admin, "A", task.StatusDone)
	require.NoError(t, err)
	require.Equal(t, []string{"B"}, res.Unblocked)
	require.Equal(t, task.StatusNotStarted, f.status("B"))
}

func TestCascade_OtherIncompleteBlockerKeepsBlocked(t *testing.T) {
	f := newFixture(t)
	f.task("A", task.StatusReview)
	f.task("C", task.StatusInProgress)
	f.task("B", task.StatusBlocked)
	f.depend("B", "A")
	f.depend("B", "C")

	_, res, err := cascadeService(f).UpdateStatus(context.Background(), admin, "A", task.StatusDone)
	require.NoError(t, err)
	require.Empty(t, res.Unblocked)
	require.Equal(t, task.StatusBlocked, f.status("B"))
}

func TestCascade_OnlyUnblockableDependentsChange(t *testing.T) {
	f := newFixture(t)
	f.task("A", task.StatusReview)
	f.task("C", task.StatusNotStarted)
	f.task("B", task.StatusBlocked)
	f.task("D", task.StatusBlocked)
	f.depend("B", "A")
	f.depend("D", "A")
	f.depend("D", "C")

	_, res, err := cascadeService(f).UpdateStatus(context.Background(), admin, "A", task.StatusDone)
	require.NoError(t, err)
	require.Equal(t, []string{"B"}, res.Unblocked)
	require.Equal(t, task.StatusNotStarted, f.status("B"))
	require.Equal(t, task.StatusBlocked, f.status("D"))
}

func TestCascade_ReopenReblocksActiveDependents(t *testing.T) {
	f := newFixture(t)
	f.task("A", task.StatusDone)
	f.task("B", task.StatusInProgress)
	f.task("C", task.StatusDone)
	f.task("D", task.StatusAbandoned)
	f.task("E", task.StatusNotStarted)
	for _, id := range []string{"B", "C", "D", "E"} {
		f.depend(id, "A")
	}

	_, res, err := cascadeService(f).UpdateStatus(context.Background(), admin, "A", task.StatusInProgress)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"B", "E"}, res.Reblocked)
	require.Equal(t, task.StatusBlocked, f.status("B"))
	require.Equal(t, task.StatusBlocked, f.status("E"))
	require.Equal(t, task.StatusDone, f.status("C"))
	require.Equal(t, task.StatusAbandoned, f.status("D"))
}

func TestCascade_DeletedBlockerDoesNotHoldDependent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.task("A", task.StatusReview)
	f.task("gone", task.StatusInProgress)
	f.task("B", task.StatusBlocked)
	f.depend("B", "A")
	f.depend("B", "gone")
	require.NoError(t, f.tasks.SoftDelete(ctx, "gone", epoch))

	_, res, err := cascadeService(f).UpdateStatus(ctx, admin, "A", task.StatusDone)
	require.NoError(t, err)
	require.Equal(t, []string{"B"}, res.Unblocked)
}

func TestDependencyCycleRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.task("A", task.StatusNotStarted)
	f.task("B", task.StatusNotStarted)
	f.task("C", task.StatusNotStarted)

	svc := cascadeService(f)
	_, err := svc.AddDependency(ctx, admin, "B", "A")
	require.NoError(t, err)
	_, err = svc.AddDependency(ctx, admin, "C", "B")
	require.NoError(t, err)

	_, err = svc.AddDependency(ctx, admin, "A", "C")
	require.ErrorIs(t, err, task.ErrCircularDependency)

	// A is not done, so adding the edge blocked B.
	require.Equal(t, task.StatusBlocked, f.status("B"))
}

func strPtr(s string) *string { return &s }
