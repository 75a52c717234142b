package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/rpggio/agencyops/internal/auth"
	"github.com/rpggio/agencyops/internal/domain/activity"
	"github.com/rpggio/agencyops/internal/domain/client"
	"github.com/rpggio/agencyops/internal/domain/project"
	"github.com/rpggio/agencyops/internal/domain/retainer"
	"github.com/rpggio/agencyops/internal/domain/task"
	"github.com/rpggio/agencyops/internal/domain/timeentry"
	"github.com/rpggio/agencyops/internal/domain/user"
	"github.com/rpggio/agencyops/internal/domain/workload"
)

// TaskRepository is a mock for task.Repository. InTx runs the callback
// against the mock itself.
type TaskRepository struct {
	mock.Mock
}

func (m *TaskRepository) Create(ctx context.Context, t *task.Task) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *TaskRepository) Get(ctx context.Context, id string) (*task.Task, error) {
	args := m.Called(ctx, id)
	if t, ok := args.Get(0).(*task.Task); ok {
		return t, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *TaskRepository) List(ctx context.Context, opts task.ListOptions) ([]task.Task, error) {
	args := m.Called(ctx, opts)
	if list, ok := args.Get(0).([]task.Task); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *TaskRepository) Update(ctx context.Context, t *task.Task) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *TaskRepository) SoftDelete(ctx context.Context, id string, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

func (m *TaskRepository) ListDependents(ctx context.Context, blockerID string) ([]task.Dependent, error) {
	args := m.Called(ctx, blockerID)
	if list, ok := args.Get(0).([]task.Dependent); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *TaskRepository) SetStatuses(ctx context.Context, ids []string, from []task.Status, to task.Status, at time.Time) (int64, error) {
	args := m.Called(ctx, ids, from, to, at)
	return args.Get(0).(int64), args.Error(1)
}

func (m *TaskRepository) AddDependency(ctx context.Context, taskID, blockerID string) error {
	args := m.Called(ctx, taskID, blockerID)
	return args.Error(0)
}

func (m *TaskRepository) RemoveDependency(ctx context.Context, taskID, blockerID string) error {
	args := m.Called(ctx, taskID, blockerID)
	return args.Error(0)
}

func (m *TaskRepository) BlockerIDs(ctx context.Context, taskID string) ([]string, error) {
	args := m.Called(ctx, taskID)
	if ids, ok := args.Get(0).([]string); ok {
		return ids, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *TaskRepository) IncompleteBlockers(ctx context.Context, taskID string) ([]string, error) {
	args := m.Called(ctx, taskID)
	if ids, ok := args.Get(0).([]string); ok {
		return ids, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *TaskRepository) TimeSpent(ctx context.Context, taskID string) (int, error) {
	args := m.Called(ctx, taskID)
	return args.Int(0), args.Error(1)
}

func (m *TaskRepository) HourlyRate(ctx context.Context, taskID string) (*float64, error) {
	args := m.Called(ctx, taskID)
	if rate, ok := args.Get(0).(*float64); ok {
		return rate, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *TaskRepository) InTx(ctx context.Context, fn func(task.Repository) error) error {
	return fn(m)
}

// MembershipChecker is a mock for task.MembershipChecker.
type MembershipChecker struct {
	mock.Mock
}

func (m *MembershipChecker) IsMember(ctx context.Context, projectID, userID string) (bool, error) {
	args := m.Called(ctx, projectID, userID)
	return args.Bool(0), args.Error(1)
}

// ActivityRepository is a mock for activity.Repository.
type ActivityRepository struct {
	mock.Mock
}

func (m *ActivityRepository) Log(ctx context.Context, entry *activity.Entry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *ActivityRepository) List(ctx context.Context, opts activity.ListOptions) ([]activity.Entry, error) {
	args := m.Called(ctx, opts)
	if list, ok := args.Get(0).([]activity.Entry); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// ClientRepository is a mock for client.Repository.
type ClientRepository struct {
	mock.Mock
}

func (m *ClientRepository) Create(ctx context.Context, c *client.Client) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *ClientRepository) Get(ctx context.Context, id string) (*client.Client, error) {
	args := m.Called(ctx, id)
	if c, ok := args.Get(0).(*client.Client); ok {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ClientRepository) List(ctx context.Context, opts client.ListOptions) ([]client.Client, error) {
	args := m.Called(ctx, opts)
	if list, ok := args.Get(0).([]client.Client); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ClientRepository) Update(ctx context.Context, c *client.Client) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *ClientRepository) SoftDelete(ctx context.Context, id string, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

func (m *ClientRepository) CreateSite(ctx context.Context, site *client.Site) error {
	args := m.Called(ctx, site)
	return args.Error(0)
}

func (m *ClientRepository) ListSites(ctx context.Context, clientID string) ([]client.Site, error) {
	args := m.Called(ctx, clientID)
	if list, ok := args.Get(0).([]client.Site); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// ProjectRepository is a mock for project.Repository.
type ProjectRepository struct {
	mock.Mock
}

func (m *ProjectRepository) Create(ctx context.Context, proj *project.Project) error {
	args := m.Called(ctx, proj)
	return args.Error(0)
}

func (m *ProjectRepository) Get(ctx context.Context, id string) (*project.Project, error) {
	args := m.Called(ctx, id)
	if proj, ok := args.Get(0).(*project.Project); ok {
		return proj, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ProjectRepository) List(ctx context.Context, opts project.ListOptions) ([]project.Summary, error) {
	args := m.Called(ctx, opts)
	if list, ok := args.Get(0).([]project.Summary); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ProjectRepository) AddMember(ctx context.Context, projectID, userID string) error {
	args := m.Called(ctx, projectID, userID)
	return args.Error(0)
}

func (m *ProjectRepository) IsMember(ctx context.Context, projectID, userID string) (bool, error) {
	args := m.Called(ctx, projectID, userID)
	return args.Bool(0), args.Error(1)
}

// UserRepository is a mock for user.Repository.
type UserRepository struct {
	mock.Mock
}

func (m *UserRepository) Create(ctx context.Context, u *user.User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

func (m *UserRepository) Get(ctx context.Context, id string) (*user.User, error) {
	args := m.Called(ctx, id)
	if u, ok := args.Get(0).(*user.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *UserRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	args := m.Called(ctx, email)
	if u, ok := args.Get(0).(*user.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *UserRepository) List(ctx context.Context) ([]user.User, error) {
	args := m.Called(ctx)
	if list, ok := args.Get(0).([]user.User); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// TimeEntryRepository is a mock for timeentry.Repository.
type TimeEntryRepository struct {
	mock.Mock
}

func (m *TimeEntryRepository) Create(ctx context.Context, e *timeentry.Entry) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}

func (m *TimeEntryRepository) Get(ctx context.Context, id string) (*timeentry.Entry, error) {
	args := m.Called(ctx, id)
	if e, ok := args.Get(0).(*timeentry.Entry); ok {
		return e, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *TimeEntryRepository) List(ctx context.Context, opts timeentry.ListOptions) ([]timeentry.Entry, error) {
	args := m.Called(ctx, opts)
	if list, ok := args.Get(0).([]timeentry.Entry); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *TimeEntryRepository) Stop(ctx context.Context, id string, endedAt time.Time, duration int) error {
	args := m.Called(ctx, id, endedAt, duration)
	return args.Error(0)
}

func (m *TimeEntryRepository) SoftDelete(ctx context.Context, id string, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

func (m *TimeEntryRepository) Running(ctx context.Context, userID string) ([]timeentry.Entry, error) {
	args := m.Called(ctx, userID)
	if list, ok := args.Get(0).([]timeentry.Entry); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *TimeEntryRepository) TaskProject(ctx context.Context, taskID string) (*string, error) {
	args := m.Called(ctx, taskID)
	if p, ok := args.Get(0).(*string); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

// RetainerRepository is a mock for retainer.Repository.
type RetainerRepository struct {
	mock.Mock
}

func (m *RetainerRepository) LoggedEntries(ctx context.Context, clientID string, start, end time.Time) ([]retainer.LoggedEntry, error) {
	args := m.Called(ctx, clientID, start, end)
	if list, ok := args.Get(0).([]retainer.LoggedEntry); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *RetainerRepository) ScheduledTasks(ctx context.Context, clientID string, start, end time.Time) ([]retainer.OpenTask, error) {
	args := m.Called(ctx, clientID, start, end)
	if list, ok := args.Get(0).([]retainer.OpenTask); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *RetainerRepository) UnscheduledTasks(ctx context.Context, clientID string) ([]retainer.OpenTask, error) {
	args := m.Called(ctx, clientID)
	if list, ok := args.Get(0).([]retainer.OpenTask); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *RetainerRepository) ClaimAlert(ctx context.Context, clientID, month string, threshold int, at time.Time) (bool, error) {
	args := m.Called(ctx, clientID, month, threshold, at)
	return args.Bool(0), args.Error(1)
}

func (m *RetainerRepository) ReleaseAlert(ctx context.Context, clientID, month string, threshold int) error {
	args := m.Called(ctx, clientID, month, threshold)
	return args.Error(0)
}

// Notifier is a mock for retainer.Notifier.
type Notifier struct {
	mock.Mock
}

func (m *Notifier) NotifyRetainerAlert(ctx context.Context, alert retainer.Alert) error {
	args := m.Called(ctx, alert)
	return args.Error(0)
}

// Tasks is a mock for timeentry.Tasks.
type Tasks struct {
	mock.Mock
}

func (m *Tasks) CheckAccess(ctx context.Context, actor auth.Context, taskID string) error {
	args := m.Called(ctx, actor, taskID)
	return args.Error(0)
}

func (m *Tasks) StartWork(ctx context.Context, actor auth.Context, taskID string) error {
	args := m.Called(ctx, actor, taskID)
	return args.Error(0)
}

// WorkloadRepository is a mock for workload.Repository.
type WorkloadRepository struct {
	mock.Mock
}

func (m *WorkloadRepository) Entries(ctx context.Context, f workload.EntryFilter) ([]workload.EntryRow, error) {
	args := m.Called(ctx, f)
	if list, ok := args.Get(0).([]workload.EntryRow); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *WorkloadRepository) ActiveMembers(ctx context.Context) ([]workload.Member, error) {
	args := m.Called(ctx)
	if list, ok := args.Get(0).([]workload.Member); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *WorkloadRepository) AssignedTasks(ctx context.Context) ([]workload.AssignedTask, error) {
	args := m.Called(ctx)
	if list, ok := args.Get(0).([]workload.AssignedTask); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *WorkloadRepository) DueTasks(ctx context.Context, from, to time.Time) ([]workload.DueTask, error) {
	args := m.Called(ctx, from, to)
	if list, ok := args.Get(0).([]workload.DueTask); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *WorkloadRepository) ClaimDueNotice(ctx context.Context, taskID, userID, day string, at time.Time) (bool, error) {
	args := m.Called(ctx, taskID, userID, day, at)
	return args.Bool(0), args.Error(1)
}

func (m *WorkloadRepository) ReleaseDueNotice(ctx context.Context, taskID, userID, day string) error {
	args := m.Called(ctx, taskID, userID, day)
	return args.Error(0)
}

// DueNotifier is a mock for workload.DueNotifier.
type DueNotifier struct {
	mock.Mock
}

func (m *DueNotifier) NotifyTaskDueSoon(ctx context.Context, t workload.DueTask) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}
