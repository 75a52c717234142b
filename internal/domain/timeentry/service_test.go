package timeentry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rpggio/agencyops/internal/auth"
	"github.com/rpggio/agencyops/internal/domain/timeentry"
	"github.com/rpggio/agencyops/internal/errs"
	"github.com/rpggio/agencyops/internal/repository"
	"github.com/rpggio/agencyops/internal/repository/mocks"
)

var (
	tech  = auth.Context{UserID: "u-tech", Role: auth.RoleTech}
	pm    = auth.Context{UserID: "u-pm", Role: auth.RolePM}
	fixed = time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)
)

func clock() time.Time { return fixed }

func TestElapsedMinutes(t *testing.T) {
	start := fixed
	require.Equal(t, 1, timeentry.ElapsedMinutes(start, start))
	require.Equal(t, 1, timeentry.ElapsedMinutes(start, start.Add(59*time.Second)))
	require.Equal(t, 1, timeentry.ElapsedMinutes(start, start.Add(60*time.Second)))
	require.Equal(t, 2, timeentry.ElapsedMinutes(start, start.Add(61*time.Second)))
	require.Equal(t, 90, timeentry.ElapsedMinutes(start, start.Add(90*time.Minute+500*time.Millisecond)))
}

func TestCreate_ResolvesProjectFromTask(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.TimeEntryRepository{}
	project := "p1"
	taskID := "t1"
	repo.On("TaskProject", ctx, taskID).Return(&project, nil)
	repo.On("Create", ctx, mock.AnythingOfType("*timeentry.Entry")).Return(nil)

	svc := timeentry.NewService(repo, nil, zerolog.Nop(), timeentry.WithClock(clock))
	e, err := svc.Create(ctx, tech, timeentry.CreateRequest{TaskID: &taskID, StartedAt: fixed.Add(-time.Hour), Duration: 45})
	require.NoError(t, err)
	require.Equal(t, "p1", *e.ProjectID)
	require.Equal(t, tech.UserID, e.UserID)
	require.True(t, e.IsBillable)
	require.False(t, e.IsRunning)
}

func TestCreate_Validation(t *testing.T) {
	ctx := context.Background()
	svc := timeentry.NewService(&mocks.TimeEntryRepository{}, nil, zerolog.Nop())

	_, err := svc.Create(ctx, tech, timeentry.CreateRequest{StartedAt: fixed, Duration: 0})
	require.ErrorIs(t, err, timeentry.ErrInvalidInput)

	before := fixed.Add(-time.Minute)
	_, err = svc.Create(ctx, tech, timeentry.CreateRequest{StartedAt: fixed, EndedAt: &before, Duration: 5})
	require.ErrorIs(t, err, timeentry.ErrInvalidInput)
}

func TestStart_StopsRunningTimerFirst(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.TimeEntryRepository{}
	starter := &mocks.Tasks{}

	starter.On("CheckAccess", ctx, tech, "t2").Return(nil)
	repo.On("TaskProject", ctx, "t2").Return(nil, nil)
	repo.On("Running", ctx, tech.UserID).Return([]timeentry.Entry{
		{ID: "old", UserID: tech.UserID, StartedAt: fixed.Add(-10*time.Minute - 30*time.Second), IsRunning: true},
	}, nil)
	repo.On("Stop", ctx, "old", fixed, 11).Return(nil)
	repo.On("Create", ctx, mock.AnythingOfType("*timeentry.Entry")).Return(nil)
	starter.On("StartWork", ctx, tech, "t2").Return(nil)

	svc := timeentry.NewService(repo, starter, zerolog.Nop(), timeentry.WithClock(clock))
	e, err := svc.Start(ctx, tech, timeentry.StartRequest{TaskID: "t2"})
	require.NoError(t, err)
	require.True(t, e.IsRunning)
	require.Equal(t, fixed, e.StartedAt)
	repo.AssertExpectations(t)
	starter.AssertExpectations(t)
}

func TestStart_StartWorkFailureDoesNotFail(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.TimeEntryRepository{}
	starter := &mocks.Tasks{}

	starter.On("CheckAccess", ctx, tech, "t2").Return(nil)
	repo.On("TaskProject", ctx, "t2").Return(nil, nil)
	repo.On("Running", ctx, tech.UserID).Return([]timeentry.Entry{}, nil)
	repo.On("Create", ctx, mock.Anything).Return(nil)
	starter.On("StartWork", ctx, tech, "t2").Return(errors.New("boom"))

	svc := timeentry.NewService(repo, starter, zerolog.Nop(), timeentry.WithClock(clock))
	_, err := svc.Start(ctx, tech, timeentry.StartRequest{TaskID: "t2"})
	require.NoError(t, err)
}

func TestStart_UnknownTask(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.TimeEntryRepository{}
	repo.On("TaskProject", ctx, "missing").Return(nil, repository.ErrNotFound)

	svc := timeentry.NewService(repo, nil, zerolog.Nop())
	_, err := svc.Start(ctx, tech, timeentry.StartRequest{TaskID: "missing"})
	require.ErrorIs(t, err, timeentry.ErrTaskNotFound)
}

func TestStart_TaskNotVisible(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.TimeEntryRepository{}
	tasks := &mocks.Tasks{}
	tasks.On("CheckAccess", ctx, tech, "hidden").Return(errs.NotFound("task not found"))

	svc := timeentry.NewService(repo, tasks, zerolog.Nop(), timeentry.WithClock(clock))
	_, err := svc.Start(ctx, tech, timeentry.StartRequest{TaskID: "hidden"})
	require.ErrorIs(t, err, timeentry.ErrTaskNotFound)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	tasks.AssertNotCalled(t, "StartWork", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreate_TaskNotVisible(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.TimeEntryRepository{}
	tasks := &mocks.Tasks{}
	hidden := "hidden"
	tasks.On("CheckAccess", ctx, tech, hidden).Return(errs.NotFound("task not found"))

	svc := timeentry.NewService(repo, tasks, zerolog.Nop(), timeentry.WithClock(clock))
	_, err := svc.Create(ctx, tech, timeentry.CreateRequest{TaskID: &hidden, StartedAt: fixed.Add(-time.Hour), Duration: 30})
	require.ErrorIs(t, err, timeentry.ErrTaskNotFound)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestStop(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.TimeEntryRepository{}
	repo.On("Get", ctx, "running").Return(&timeentry.Entry{ID: "running", UserID: tech.UserID, StartedAt: fixed.Add(-61 * time.Second), IsRunning: true}, nil)
	repo.On("Get", ctx, "stopped").Return(&timeentry.Entry{ID: "stopped", UserID: tech.UserID}, nil)
	repo.On("Get", ctx, "other").Return(&timeentry.Entry{ID: "other", UserID: "someone", IsRunning: true}, nil)
	repo.On("Stop", ctx, "running", fixed, 2).Return(nil)

	svc := timeentry.NewService(repo, nil, zerolog.Nop(), timeentry.WithClock(clock))
	e, err := svc.Stop(ctx, tech, "running")
	require.NoError(t, err)
	require.Equal(t, 2, e.Duration)
	require.False(t, e.IsRunning)
	require.Equal(t, fixed, *e.EndedAt)

	_, err = svc.Stop(ctx, tech, "stopped")
	require.ErrorIs(t, err, timeentry.ErrNotRunning)

	_, err = svc.Stop(ctx, pm, "other")
	require.ErrorIs(t, err, timeentry.ErrNotOwner)
}

func TestDelete_OwnerOrPrivileged(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.TimeEntryRepository{}
	repo.On("Get", ctx, "e1").Return(&timeentry.Entry{ID: "e1", UserID: "someone"}, nil)
	repo.On("SoftDelete", ctx, "e1", fixed).Return(nil)

	svc := timeentry.NewService(repo, nil, zerolog.Nop(), timeentry.WithClock(clock))
	require.ErrorIs(t, svc.Delete(ctx, tech, "e1"), timeentry.ErrNotOwner)
	require.NoError(t, svc.Delete(ctx, pm, "e1"))
}

func TestList_TechScopedToSelf(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.TimeEntryRepository{}
	repo.On("List", ctx, timeentry.ListOptions{UserID: tech.UserID, Limit: 100}).Return([]timeentry.Entry{}, nil)

	svc := timeentry.NewService(repo, nil, zerolog.Nop())
	_, err := svc.List(ctx, tech, timeentry.ListOptions{UserID: "someone-else"})
	require.NoError(t, err)
	repo.AssertExpectations(t)
}
