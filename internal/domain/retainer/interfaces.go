package retainer

import (
	"context"
	"time"

	"github.com/rpggio/agencyops/internal/domain/client"
)

// Repository reads the time and task data the calculator aggregates, and
// records sent alerts.
type Repository interface {
	// LoggedEntries returns live, billable entries started in [start, end] on
	// live tasks that resolve to the client, through their project or directly.
	LoggedEntries(ctx context.Context, clientID string, start, end time.Time) ([]LoggedEntry, error)
	// ScheduledTasks returns live open tasks of the client due in [start, end].
	ScheduledTasks(ctx context.Context, clientID string, start, end time.Time) ([]OpenTask, error)
	// UnscheduledTasks returns live open tasks of the client with no due date.
	UnscheduledTasks(ctx context.Context, clientID string) ([]OpenTask, error)

	// ClaimAlert records an alert. It returns false when the same client,
	// month and threshold was already recorded.
	ClaimAlert(ctx context.Context, clientID, month string, threshold int, at time.Time) (bool, error)
	// ReleaseAlert forgets a claimed alert so it is retried on the next run.
	ReleaseAlert(ctx context.Context, clientID, month string, threshold int) error
}

// Clients is the subset of the client repository the calculator needs.
type Clients interface {
	Get(ctx context.Context, id string) (*client.Client, error)
	List(ctx context.Context, opts client.ListOptions) ([]client.Client, error)
}

// Notifier delivers retainer alerts.
type Notifier interface {
	NotifyRetainerAlert(ctx context.Context, alert Alert) error
}

// Recorder receives alert counters.
type Recorder interface {
	RecordAlert(threshold int)
}
