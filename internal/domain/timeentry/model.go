package timeentry

import "time"

// Entry is a span of logged work owned by one user.
type Entry struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	TaskID      *string    `json:"task_id"`
	ProjectID   *string    `json:"project_id"`
	Description string     `json:"description,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	EndedAt     *time.Time `json:"ended_at"`
	// Duration is in whole minutes. Zero while the timer runs.
	Duration   int       `json:"duration"`
	IsRunning  bool      `json:"is_running"`
	IsBillable bool      `json:"is_billable"`
	CreatedAt  time.Time `json:"created_at"`
}

// ElapsedMinutes rounds an elapsed span up to whole minutes, at least one.
func ElapsedMinutes(start, end time.Time) int {
	seconds := int64(end.Sub(start) / time.Second)
	if seconds <= 0 {
		return 1
	}
	minutes := int((seconds + 59) / 60)
	return minutes
}
