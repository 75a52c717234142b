package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rpggio/agencyops/internal/domain/client"
	"github.com/rpggio/agencyops/internal/domain/project"
	"github.com/rpggio/agencyops/internal/domain/task"
	"github.com/rpggio/agencyops/internal/domain/user"
)

// NewTestDB creates a new in-memory SQLite database for testing
func NewTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := New(MemoryPath, Options{})
	require.NoError(t, err, "failed to create test database")

	err = db.RunMigrations()
	require.NoError(t, err, "failed to run migrations")

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

// TestMigrations verifies that migrations run successfully and are repeatable
func TestMigrations(t *testing.T) {
	db := NewTestDB(t)
	require.NoError(t, db.RunMigrations())

	tables := []string{
		"users",
		"clients",
		"projects",
		"project_members",
		"tasks",
		"task_dependencies",
		"time_entries",
		"activity_log",
		"retainer_alerts",
	}

	for _, table := range tables {
		var count int
		err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&count)
		require.NoError(t, err, "failed to query table %s", table)
		require.Equal(t, 1, count, "table %s not found", table)
	}
}

// TestForeignKeys verifies that foreign key constraints are enabled
func TestForeignKeys(t *testing.T) {
	db := NewTestDB(t)

	var enabled int
	err := db.QueryRow("PRAGMA foreign_keys").Scan(&enabled)
	require.NoError(t, err)
	require.Equal(t, 1, enabled, "foreign keys not enabled")
}

func TestCheck(t *testing.T) {
	db := NewTestDB(t)
	require.NoError(t, db.Check(context.Background()))
}

var epoch = time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

// fixture seeds rows through the repositories.
type fixture struct {
	t        *testing.T
	db       *DB
	users    *UserRepository
	clients  *ClientRepository
	projects *ProjectRepository
	tasks    *TaskRepository
	n        int
}

func newFixture(t *testing.T) *fixture {
	db := NewTestDB(t)
	return &fixture{
		t:        t,
		db:       db,
		users:    NewUserRepository(db),
		clients:  NewClientRepository(db),
		projects: NewProjectRepository(db),
		tasks:    NewTaskRepository(db),
	}
}

func (f *fixture) next() time.Time {
	f.n++
	return epoch.Add(time.Duration(f.n) * time.Minute)
}

func (f *fixture) user(id string) *user.User {
	u := &user.User{ID: id, Name: id, Email: id + "@example.com", Role: "tech", IsActive: true, TargetHoursPerWeek: 40, CreatedAt: f.next()}
	require.NoError(f.t, f.users.Create(context.Background(), u))
	return u
}

func (f *fixture) client(id string, retainerHours float64) *client.Client {
	c := &client.Client{ID: id, Name: id, Status: client.StatusActive, CreatedAt: f.next(), UpdatedAt: f.next()}
	if retainerHours > 0 {
		c.RetainerHours = &retainerHours
	}
	require.NoError(f.t, f.clients.Create(context.Background(), c))
	return c
}

func (f *fixture) project(id, clientID string, isRetainer bool) *project.Project {
	p := &project.Project{ID: id, ClientID: clientID, Name: id, Status: project.StatusInProgress, IsRetainer: isRetainer, CreatedAt: f.next()}
	require.NoError(f.t, f.projects.Create(context.Background(), p))
	return p
}

func (f *fixture) task(id string, status task.Status, mutate ...func(*task.Task)) *task.Task {
	now := f.next()
	tk := &task.Task{
		ID:            id,
		Title:         id,
		Status:        status,
		Priority:      3,
		IsBillable:    true,
		MysteryFactor: "none",
		BatteryImpact: task.BatteryAverageDrain,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	for _, m := range mutate {
		m(tk)
	}
	require.NoError(f.t, f.tasks.Create(context.Background(), tk))
	return tk
}

func (f *fixture) depend(taskID, blockerID string) {
	require.NoError(f.t, f.tasks.AddDependency(context.Background(), taskID, blockerID))
}

func (f *fixture) status(id string) task.Status {
	var s task.Status
	require.NoError(f.t, f.db.QueryRow("SELECT status FROM tasks WHERE id = ?", id).Scan(&s))
	return s
}
