package task_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rpggio/agencyops/internal/auth"
	"github.com/rpggio/agencyops/internal/domain/task"
	"github.com/rpggio/agencyops/internal/errs"
	"github.com/rpggio/agencyops/internal/repository"
	"github.com/rpggio/agencyops/internal/repository/mocks"
)

var (
	pm    = auth.Context{UserID: "u-pm", Role: auth.RolePM}
	tech  = auth.Context{UserID: "u-tech", Role: auth.RoleTech}
	fixed = time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)
)

type recorder struct {
	transitions []string
	cascades    map[string]int
}

func (r *recorder) RecordTransition(from, to string) {
	r.transitions = append(r.transitions, from+"->"+to)
}

func (r *recorder) RecordCascade(kind string, n int) {
	if r.cascades == nil {
		r.cascades = map[string]int{}
	}
	r.cascades[kind] += n
}

func newService(repo *mocks.TaskRepository, members *mocks.MembershipChecker, opts ...task.Option) *task.Service {
	opts = append([]task.Option{task.WithClock(func() time.Time { return fixed })}, opts...)
	return task.NewService(repo, members, nil, zerolog.Nop(), opts...)
}

func strPtr(s string) *string { return &s }

func TestUpdateStatus_CompletionUnblocksDependents(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.TaskRepository{}
	rec := &recorder{}

	a := &task.Task{ID: "A", Title: "A", Status: task.StatusReview}
	repo.On("Get", ctx, "A").Return(a, nil)
	repo.On("Update", ctx, mock.AnythingOfType("*task.Task")).Return(nil)
	repo.On("ListDependents", ctx, "A").Return([]task.Dependent{
		{ID: "B", Status: task.StatusBlocked},
		{ID: "C", Status: task.StatusBlocked, IncompleteBlockers: []string{"X"}},
		{ID: "D", Status: task.StatusInProgress},
	}, nil)
	repo.On("SetStatuses", ctx, []string{"B"}, []task.Status{task.StatusBlocked}, task.StatusNotStarted, fixed).
		Return(int64(1), nil)

	svc := newService(repo, nil, task.WithRecorder(rec))
	updated, cascade, err := svc.UpdateStatus(ctx, pm, "A", task.StatusDone)
	require.NoError(t, err)
	require.Equal(t, task.StatusDone, updated.Status)
	require.Equal(t, fixed, *updated.CompletedAt)
	require.Equal(t, []string{"B"}, cascade.Unblocked)
	require.Empty(t, cascade.Reblocked)
	require.Equal(t, []string{"review->done"}, rec.transitions)
	require.Equal(t, 1, rec.cascades["unblock"])
	repo.AssertExpectations(t)
}

func TestUpdateStatus_ReopenReblocksActiveDependents(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.TaskRepository{}

	completed := fixed.Add(-time.Hour)
	a := &task.Task{ID: "A", Status: task.StatusDone, CompletedAt: &completed}
	repo.On("Get", ctx, "A").Return(a, nil)
	repo.On("Update", ctx, mock.Anything).Return(nil)
	repo.On("ListDependents", ctx, "A").Return([]task.Dependent{
		{ID: "B", Status: task.StatusNotStarted},
		{ID: "C", Status: task.StatusDone},
		{ID: "D", Status: task.StatusAbandoned},
		{ID: "E", Status: task.StatusReview},
		{ID: "F", Status: task.StatusBlocked},
	}, nil)
	repo.On("SetStatuses", ctx, []string{"B", "E"},
		[]task.Status{task.StatusNotStarted, task.StatusInProgress, task.StatusReview},
		task.StatusBlocked, fixed).Return(int64(2), nil)

	svc := newService(repo, nil)
	updated, cascade, err := svc.UpdateStatus(ctx, pm, "A", task.StatusInProgress)
	require.NoError(t, err)
	require.Nil(t, updated.CompletedAt)
	require.Equal(t, []string{"B", "E"}, cascade.Reblocked)
	repo.AssertExpectations(t)
}

func TestUpdateStatus_DoneToDoneDoesNotCascade(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.TaskRepository{}

	repo.On("Get", ctx, "A").Return(&task.Task{ID: "A", Status: task.StatusDone}, nil)
	repo.On("Update", ctx, mock.Anything).Return(nil)

	svc := newService(repo, nil)
	_, cascade, err := svc.UpdateStatus(ctx, pm, "A", task.StatusDone)
	require.NoError(t, err)
	require.True(t, cascade.Empty())
	repo.AssertNotCalled(t, "ListDependents", mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "SetStatuses", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateStatus_NonDoneTransitionsNeverTouchDependents(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.TaskRepository{}

	repo.On("Get", ctx, "A").Return(&task.Task{ID: "A", Status: task.StatusNotStarted}, nil)
	repo.On("Update", ctx, mock.Anything).Return(nil)

	svc := newService(repo, nil)
	updated, _, err := svc.UpdateStatus(ctx, pm, "A", task.StatusInProgress)
	require.NoError(t, err)
	require.Equal(t, fixed, *updated.StartedAt)
	require.True(t, updated.IsFocus)
	repo.AssertNotCalled(t, "ListDependents", mock.Anything, mock.Anything)
}

func TestUpdateStatus_InvalidTransition(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.TaskRepository{}
	repo.On("Get", ctx, "A").Return(&task.Task{ID: "A", Status: task.StatusNotStarted}, nil)

	svc := newService(repo, nil)
	_, _, err := svc.UpdateStatus(ctx, pm, "A", task.StatusDone)
	require.ErrorIs(t, err, task.ErrInvalidTransition)
	require.True(t, errs.Is(err, errs.KindValidation))
	repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestUpdateStatus_BlockedTaskWaitsForBlockers(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.TaskRepository{}
	repo.On("Get", ctx, "B").Return(&task.Task{ID: "B", Status: task.StatusBlocked}, nil)

	svc := newService(repo, nil)
	for _, to := range []task.Status{task.StatusInProgress, task.StatusNotStarted} {
		repo.On("IncompleteBlockers", ctx, "B").Return([]string{"A"}, nil).Once()
		_, _, err := svc.UpdateStatus(ctx, pm, "B", to)
		require.ErrorIs(t, err, task.ErrInvalidTransition)
		require.Contains(t, err.Error(), "still blocked by A")
	}
	repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestUpdateStatus_BlockedTaskLeavesOnceBlockersDone(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.TaskRepository{}
	repo.On("Get", ctx, "B").Return(&task.Task{ID: "B", Status: task.StatusBlocked}, nil)
	repo.On("IncompleteBlockers", ctx, "B").Return([]string{}, nil)
	repo.On("Update", ctx, mock.AnythingOfType("*task.Task")).Return(nil)

	svc := newService(repo, nil)
	updated, cascade, err := svc.UpdateStatus(ctx, pm, "B", task.StatusInProgress)
	require.NoError(t, err)
	require.True(t, cascade.Empty())
	require.Equal(t, task.StatusInProgress, updated.Status)
}

func TestUpdateStatus_BlockedTaskMayBeAbandoned(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.TaskRepository{}
	repo.On("Get", ctx, "B").Return(&task.Task{ID: "B", Status: task.StatusBlocked}, nil)
	repo.On("Update", ctx, mock.AnythingOfType("*task.Task")).Return(nil)

	svc := newService(repo, nil)
	updated, _, err := svc.UpdateStatus(ctx, pm, "B", task.StatusAbandoned)
	require.NoError(t, err)
	require.Equal(t, task.StatusAbandoned, updated.Status)
	repo.AssertNotCalled(t, "IncompleteBlockers", mock.Anything, mock.Anything)
}

func TestUpdateStatus_NotFound(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.TaskRepository{}
	repo.On("Get", ctx, "missing").Return(nil, repository.ErrNotFound)

	svc := newService(repo, nil)
	_, _, err := svc.UpdateStatus(ctx, pm, "missing", task.StatusDone)
	require.ErrorIs(t, err, task.ErrTaskNotFound)
}

func TestUpdate_TechFieldRestriction(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.TaskRepository{}
	svc := newService(repo, nil)

	_, _, err := svc.Update(ctx, tech, "A", task.UpdateRequest{
		Title:         task.Some("renamed"),
		BillingAmount: task.Some(500.0),
		Invoiced:      task.Some(true),
	})
	require.True(t, errs.Is(err, errs.KindPermission))
	require.Contains(t, err.Error(), "Tech users cannot update: billing_amount, invoiced")
	repo.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}

func TestUpdate_TechVisibility(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.TaskRepository{}
	members := &mocks.MembershipChecker{}

	repo.On("Get", ctx, "adhoc-other").Return(&task.Task{ID: "adhoc-other", AssigneeID: strPtr("someone")}, nil)
	repo.On("Get", ctx, "proj-task").Return(&task.Task{ID: "proj-task", ProjectID: strPtr("P")}, nil)
	members.On("IsMember", ctx, "P", tech.UserID).Return(false, nil)

	svc := newService(repo, members)
	_, err := svc.Get(ctx, tech, "adhoc-other")
	require.ErrorIs(t, err, task.ErrTaskNotFound)
	_, err = svc.Get(ctx, tech, "proj-task")
	require.ErrorIs(t, err, task.ErrTaskNotFound)
}

func TestUpdate_TechMayChangeStatusOnOwnTask(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.TaskRepository{}

	own := &task.Task{ID: "T", Status: task.StatusNotStarted, AssigneeID: strPtr(tech.UserID)}
	repo.On("Get", ctx, "T").Return(own, nil)
	repo.On("Update", ctx, mock.Anything).Return(nil)

	svc := newService(repo, nil)
	updated, _, err := svc.Update(ctx, tech, "T", task.UpdateRequest{
		Status: task.Some(task.StatusInProgress),
		Notes:  task.Some("on it"),
	})
	require.NoError(t, err)
	require.Equal(t, task.StatusInProgress, updated.Status)
	require.Equal(t, "on it", updated.Notes)
}

func TestUpdate_NoFields(t *testing.T) {
	svc := newService(&mocks.TaskRepository{}, nil)
	_, _, err := svc.Update(context.Background(), pm, "A", task.UpdateRequest{})
	require.ErrorIs(t, err, task.ErrNoChanges)
}

func TestCreate_Defaults(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.TaskRepository{}
	repo.On("Create", ctx, mock.AnythingOfType("*task.Task")).Return(nil)

	svc := newService(repo, nil)
	created, err := svc.Create(ctx, pm, task.CreateRequest{Title: " Audit DNS ", ClientID: strPtr("c1")})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	require.Equal(t, "Audit DNS", created.Title)
	require.Equal(t, task.StatusNotStarted, created.Status)
	require.Equal(t, 3, created.Priority)
	require.True(t, created.IsBillable)
	require.Equal(t, task.BatteryAverageDrain, created.BatteryImpact)
	require.Nil(t, created.EstimatedMinutes)
}

func TestCreate_RequiresPM(t *testing.T) {
	svc := newService(&mocks.TaskRepository{}, nil)
	_, err := svc.Create(context.Background(), tech, task.CreateRequest{Title: "x"})
	require.ErrorIs(t, err, auth.ErrForbidden)
}

func TestCreate_ForeignKey(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.TaskRepository{}
	repo.On("Create", ctx, mock.Anything).Return(repository.ErrForeignKeyViolation)

	svc := newService(repo, nil)
	_, err := svc.Create(ctx, pm, task.CreateRequest{Title: "x", ProjectID: strPtr("nope")})
	require.ErrorIs(t, err, task.ErrInvalidInput)
}

func TestAddDependency_RejectsSelfAndCycles(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.TaskRepository{}
	svc := newService(repo, nil)

	_, err := svc.AddDependency(ctx, pm, "A", "A")
	require.ErrorIs(t, err, task.ErrSelfDependency)

	// B is blocked by C, C is blocked by A: adding A blocked-by B closes A->B->C->A.
	repo.On("Get", ctx, "A").Return(&task.Task{ID: "A", Status: task.StatusNotStarted}, nil)
	repo.On("Get", ctx, "B").Return(&task.Task{ID: "B", Status: task.StatusBlocked}, nil)
	repo.On("BlockerIDs", ctx, "B").Return([]string{"C"}, nil)
	repo.On("BlockerIDs", ctx, "C").Return([]string{"A"}, nil)

	_, err = svc.AddDependency(ctx, pm, "A", "B")
	require.ErrorIs(t, err, task.ErrCircularDependency)
	repo.AssertNotCalled(t, "AddDependency", mock.Anything, mock.Anything, mock.Anything)
}

func TestAddDependency_BlocksActiveTask(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.TaskRepository{}

	repo.On("Get", ctx, "A").Return(&task.Task{ID: "A", Status: task.StatusInProgress}, nil).Once()
	repo.On("Get", ctx, "A").Return(&task.Task{ID: "A", Status: task.StatusBlocked}, nil).Once()
	repo.On("Get", ctx, "B").Return(&task.Task{ID: "B", Status: task.StatusReview}, nil)
	repo.On("BlockerIDs", ctx, "B").Return([]string{}, nil)
	repo.On("AddDependency", ctx, "A", "B").Return(nil)
	repo.On("SetStatuses", ctx, []string{"A"}, mock.Anything, task.StatusBlocked, fixed).Return(int64(1), nil)

	svc := newService(repo, nil)
	updated, err := svc.AddDependency(ctx, pm, "A", "B")
	require.NoError(t, err)
	require.Equal(t, task.StatusBlocked, updated.Status)
	repo.AssertExpectations(t)
}

func TestAddDependency_DoneBlockerLeavesTaskAlone(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.TaskRepository{}

	repo.On("Get", ctx, "A").Return(&task.Task{ID: "A", Status: task.StatusNotStarted}, nil)
	repo.On("Get", ctx, "B").Return(&task.Task{ID: "B", Status: task.StatusDone}, nil)
	repo.On("BlockerIDs", ctx, "B").Return([]string{}, nil)
	repo.On("AddDependency", ctx, "A", "B").Return(nil)

	svc := newService(repo, nil)
	updated, err := svc.AddDependency(ctx, pm, "A", "B")
	require.NoError(t, err)
	require.Equal(t, task.StatusNotStarted, updated.Status)
	repo.AssertNotCalled(t, "SetStatuses", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRemoveDependency_UnblocksWhenLastBlockerGone(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.TaskRepository{}

	repo.On("Get", ctx, "A").Return(&task.Task{ID: "A", Status: task.StatusBlocked}, nil).Once()
	repo.On("Get", ctx, "A").Return(&task.Task{ID: "A", Status: task.StatusNotStarted}, nil).Once()
	repo.On("RemoveDependency", ctx, "A", "B").Return(nil)
	repo.On("IncompleteBlockers", ctx, "A").Return([]string{}, nil)
	repo.On("SetStatuses", ctx, []string{"A"}, []task.Status{task.StatusBlocked}, task.StatusNotStarted, fixed).
		Return(int64(1), nil)

	svc := newService(repo, nil)
	updated, err := svc.RemoveDependency(ctx, pm, "A", "B")
	require.NoError(t, err)
	require.Equal(t, task.StatusNotStarted, updated.Status)
	repo.AssertExpectations(t)
}

func TestRemoveDependency_MissingEdge(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.TaskRepository{}
	repo.On("Get", ctx, "A").Return(&task.Task{ID: "A", Status: task.StatusBlocked}, nil)
	repo.On("RemoveDependency", ctx, "A", "B").Return(repository.ErrNotFound)

	svc := newService(repo, nil)
	_, err := svc.RemoveDependency(ctx, pm, "A", "B")
	require.ErrorIs(t, err, task.ErrDependencyNotFound)
}

func TestStartWork_AssignsAndStarts(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.TaskRepository{}

	tk := &task.Task{ID: "T", Status: task.StatusNotStarted}
	repo.On("Get", ctx, "T").Return(tk, nil)
	repo.On("Update", ctx, tk).Return(nil)

	svc := newService(repo, nil)
	require.NoError(t, svc.StartWork(ctx, pm, "T"))
	require.Equal(t, task.StatusInProgress, tk.Status)
	require.Equal(t, pm.UserID, *tk.AssigneeID)
	require.True(t, tk.IsFocus)
}
