package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rpggio/agencyops/internal/domain/estimate"
	"github.com/rpggio/agencyops/internal/domain/task"
	"github.com/rpggio/agencyops/internal/domain/workload"
)

func TestWorkloadRepository_Entries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.client("acme", 0)
	other := f.client("other", 0)
	f.user("sam")
	f.user("kim")
	f.project("site", c.ID, false)
	f.task("t1", task.StatusInProgress, func(tk *task.Task) { tk.ProjectID = strPtr("site") })
	f.task("adhoc", task.StatusInProgress, func(tk *task.Task) { tk.ClientID = &other.ID })

	entries := NewTimeEntryRepository(f.db)
	require.NoError(t, entries.Create(ctx, timeEntry("old", "sam", "t1", epoch, 30)))
	require.NoError(t, entries.Create(ctx, timeEntry("new", "kim", "adhoc", epoch.Add(time.Hour), 45)))
	running := timeEntry("running", "sam", "t1", epoch.Add(2*time.Hour), 0)
	running.IsRunning = true
	running.EndedAt = nil
	require.NoError(t, entries.Create(ctx, running))
	require.NoError(t, entries.Create(ctx, timeEntry("gone", "sam", "t1", epoch, 60)))
	require.NoError(t, entries.SoftDelete(ctx, "gone", epoch))

	repo := NewWorkloadRepository(f.db)
	got, err := repo.Entries(ctx, workload.EntryFilter{})
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "new", got[0].ID)
	require.Equal(t, "kim", got[0].UserName)
	require.Nil(t, got[0].ProjectID)
	require.Equal(t, "other", *got[0].ClientID)
	require.Equal(t, "old", got[1].ID)
	require.Equal(t, "site", *got[1].ProjectID)
	require.Equal(t, "acme", *got[1].ClientName)
	require.Equal(t, "t1", *got[1].TaskTitle)

	got, err = repo.Entries(ctx, workload.EntryFilter{ClientID: c.ID})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "old", got[0].ID)

	got, err = repo.Entries(ctx, workload.EntryFilter{ProjectID: "site", UserID: "kim"})
	require.NoError(t, err)
	require.Empty(t, got)

	from := epoch.Add(time.Minute)
	got, err = repo.Entries(ctx, workload.EntryFilter{From: &from})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "new", got[0].ID)
}

func TestWorkloadRepository_MembersAndAssignedTasks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.user("sam")
	f.user("kim")
	_, err := f.db.Exec("UPDATE users SET is_active = 0 WHERE id = 'kim'")
	require.NoError(t, err)

	e := estimate.Energy(4)
	f.task("open", task.StatusNotStarted, func(tk *task.Task) {
		tk.AssigneeID = strPtr("sam")
		tk.EnergyEstimate = &e
		tk.MysteryFactor = estimate.MysterySignificant
	})
	f.task("closed", task.StatusDone, func(tk *task.Task) { tk.AssigneeID = strPtr("sam") })
	f.task("nobody", task.StatusNotStarted)
	entries := NewTimeEntryRepository(f.db)
	require.NoError(t, entries.Create(ctx, timeEntry("e1", "sam", "closed", epoch, 25)))
	require.NoError(t, entries.Create(ctx, timeEntry("e2", "sam", "closed", epoch, 35)))

	repo := NewWorkloadRepository(f.db)
	members, err := repo.ActiveMembers(ctx)
	require.NoError(t, err)
	require.Equal(t, []workload.Member{{ID: "sam", Name: "sam", TargetHoursPerWeek: 40}}, members)

	tasks, err := repo.AssignedTasks(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	byStatus := map[string]workload.AssignedTask{}
	for _, tk := range tasks {
		byStatus[tk.Status] = tk
	}
	require.Equal(t, 60, byStatus["done"].LoggedMinutes)
	require.Equal(t, 60.0, byStatus["done"].ReservedMinutes())
	require.Equal(t, estimate.MysterySignificant, byStatus["not_started"].MysteryFactor)
	require.Equal(t, (120+120*1.75)/2, byStatus["not_started"].ReservedMinutes())
}

func TestWorkloadRepository_DueTasksAndNotices(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.user("sam")
	soon := epoch.Add(3 * time.Hour)
	later := epoch.Add(48 * time.Hour)
	f.task("soon", task.StatusInProgress, func(tk *task.Task) { tk.AssigneeID = strPtr("sam"); tk.DueDate = &soon })
	f.task("later", task.StatusInProgress, func(tk *task.Task) { tk.AssigneeID = strPtr("sam"); tk.DueDate = &later })
	f.task("done", task.StatusDone, func(tk *task.Task) { tk.AssigneeID = strPtr("sam"); tk.DueDate = &soon })
	f.task("unassigned", task.StatusNotStarted, func(tk *task.Task) { tk.DueDate = &soon })

	repo := NewWorkloadRepository(f.db)
	due, err := repo.DueTasks(ctx, epoch, epoch.Add(workload.DueWindow))
	require.NoError(t, err)
	require.Len(t, due, 1)
	require.Equal(t, "soon", due[0].ID)
	require.Equal(t, "sam", due[0].AssigneeName)
	require.True(t, soon.Equal(due[0].DueDate))

	ok, err := repo.ClaimDueNotice(ctx, "soon", "sam", "2026-04-01", epoch)
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = repo.ClaimDueNotice(ctx, "soon", "sam", "2026-04-01", epoch)
	require.NoError(t, err)
	require.False(t, ok)
	ok, err = repo.ClaimDueNotice(ctx, "soon", "sam", "2026-04-02", epoch)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, repo.ReleaseDueNotice(ctx, "soon", "sam", "2026-04-01"))
	ok, err = repo.ClaimDueNotice(ctx, "soon", "sam", "2026-04-01", epoch)
	require.NoError(t, err)
	require.True(t, ok)
}
