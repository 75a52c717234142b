package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rpggio/agencyops/internal/domain/task"
	"github.com/rpggio/agencyops/internal/domain/timeentry"
	"github.com/rpggio/agencyops/internal/repository"
)

func timeEntry(id, userID, taskID string, start time.Time, minutes int) *timeentry.Entry {
	end := start.Add(time.Duration(minutes) * time.Minute)
	return &timeentry.Entry{
		ID:         id,
		UserID:     userID,
		TaskID:     &taskID,
		StartedAt:  start,
		EndedAt:    &end,
		Duration:   minutes,
		IsBillable: true,
		CreatedAt:  start,
	}
}

func TestTimeEntryRepository_StopRunning(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.user("sam")
	f.task("t1", task.StatusInProgress)
	repo := NewTimeEntryRepository(f.db)

	running := timeEntry("e1", "sam", "t1", epoch, 0)
	running.EndedAt = nil
	running.IsRunning = true
	require.NoError(t, repo.Create(ctx, running))

	list, err := repo.Running(ctx, "sam")
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Nil(t, list[0].EndedAt)

	end := epoch.Add(25 * time.Minute)
	require.NoError(t, repo.Stop(ctx, "e1", end, 25))
	require.ErrorIs(t, repo.Stop(ctx, "e1", end, 25), repository.ErrNotFound)

	got, err := repo.Get(ctx, "e1")
	require.NoError(t, err)
	require.False(t, got.IsRunning)
	require.Equal(t, 25, got.Duration)
	require.True(t, end.Equal(*got.EndedAt))

	list, err = repo.Running(ctx, "sam")
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestTimeEntryRepository_ListFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.user("sam")
	f.user("kim")
	f.task("t1", task.StatusInProgress)
	repo := NewTimeEntryRepository(f.db)

	require.NoError(t, repo.Create(ctx, timeEntry("e1", "sam", "t1", epoch, 10)))
	require.NoError(t, repo.Create(ctx, timeEntry("e2", "sam", "t1", epoch.Add(48*time.Hour), 20)))
	require.NoError(t, repo.Create(ctx, timeEntry("e3", "kim", "t1", epoch, 30)))

	list, err := repo.List(ctx, timeentry.ListOptions{UserID: "sam"})
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "e2", list[0].ID)

	from := epoch.Add(24 * time.Hour)
	list, err = repo.List(ctx, timeentry.ListOptions{From: &from})
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, repo.SoftDelete(ctx, "e2", epoch))
	list, err = repo.List(ctx, timeentry.ListOptions{TaskID: "t1"})
	require.NoError(t, err)
	require.Len(t, list, 2)
}

func TestTimeEntryRepository_TaskProject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.client("acme", 0)
	f.project("site", c.ID, false)
	f.task("p", task.StatusNotStarted, func(tk *task.Task) { tk.ProjectID = strPtr("site") })
	f.task("adhoc", task.StatusNotStarted, func(tk *task.Task) { tk.ClientID = &c.ID })
	repo := NewTimeEntryRepository(f.db)

	got, err := repo.TaskProject(ctx, "p")
	require.NoError(t, err)
	require.Equal(t, "site", *got)

	got, err = repo.TaskProject(ctx, "adhoc")
	require.NoError(t, err)
	require.Nil(t, got)

	_, err = repo.TaskProject(ctx, "missing")
	require.ErrorIs(t, err, repository.ErrNotFound)
}
