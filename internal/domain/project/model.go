package project

import (
	"fmt"
	"time"
)

// Status is the delivery stage of a project.
type Status string

const (
	StatusQuote      Status = "quote"
	StatusQueue      Status = "queue"
	StatusReady      Status = "ready"
	StatusInProgress Status = "in_progress"
	StatusReview     Status = "review"
	StatusDone       Status = "done"
	StatusSuspended  Status = "suspended"
	StatusCancelled  Status = "cancelled"
)

// ParseStatus validates a project status.
func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusQuote, StatusQueue, StatusReady, StatusInProgress, StatusReview,
		StatusDone, StatusSuspended, StatusCancelled:
		return st, nil
	}
	return "", fmt.Errorf("%w: invalid status %q", ErrInvalidInput, s)
}

// Project groups a client's tasks
type Project struct {
	ID          string    `json:"id"`
	ClientID    string    `json:"client_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Status      Status    `json:"status"`
	IsRetainer  bool      `json:"is_retainer"`
	Members     []string  `json:"members"`
	CreatedAt   time.Time `json:"created_at"`
}

// Summary is a lightweight representation for listing
type Summary struct {
	ID         string    `json:"id"`
	ClientID   string    `json:"client_id"`
	Name       string    `json:"name"`
	Status     Status    `json:"status"`
	IsRetainer bool      `json:"is_retainer"`
	TaskCount  int       `json:"task_count"`
	OpenTasks  int       `json:"open_tasks"`
	CreatedAt  time.Time `json:"created_at"`
}
