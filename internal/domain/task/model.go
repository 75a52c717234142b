package task

import (
	"fmt"
	"time"

	"github.com/rpggio/agencyops/internal/domain/estimate"
)

// Status is the workflow state of a task.
type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusInProgress Status = "in_progress"
	StatusReview     Status = "review"
	StatusDone       Status = "done"
	StatusBlocked    Status = "blocked"
	StatusAbandoned  Status = "abandoned"
)

// ParseStatus validates a status name.
func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusNotStarted, StatusInProgress, StatusReview, StatusDone, StatusBlocked, StatusAbandoned:
		return st, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

// BatteryImpact describes how draining a task is for the assignee.
type BatteryImpact string

const (
	BatteryAverageDrain BatteryImpact = "average_drain"
	BatteryHighDrain    BatteryImpact = "high_drain"
	BatteryEnergizing   BatteryImpact = "energizing"
)

// ParseBatteryImpact validates a battery impact name.
func ParseBatteryImpact(s string) (BatteryImpact, error) {
	switch b := BatteryImpact(s); b {
	case BatteryAverageDrain, BatteryHighDrain, BatteryEnergizing:
		return b, nil
	}
	return "", fmt.Errorf("%w: invalid battery impact %q", ErrInvalidInput, s)
}

// Task is a unit of work owned by a project, or billed directly to a client.
type Task struct {
	ID               string                 `json:"id"`
	Title            string                 `json:"title"`
	Description      string                 `json:"description,omitempty"`
	Status           Status                 `json:"status"`
	Priority         int                    `json:"priority"`
	IsFocus          bool                   `json:"is_focus"`
	ProjectID        *string                `json:"project_id"`
	ClientID         *string                `json:"client_id"`
	SiteID           *string                `json:"site_id,omitempty"`
	AssigneeID       *string                `json:"assignee_id"`
	IsBillable       bool                   `json:"is_billable"`
	IsRetainerWork   bool                   `json:"is_retainer_work"`
	IsSupport        bool                   `json:"is_support"`
	BillingAmount    *float64               `json:"billing_amount"`
	BillingTarget    *int                   `json:"billing_target"`
	EnergyEstimate   *estimate.Energy       `json:"energy_estimate"`
	MysteryFactor    estimate.MysteryFactor `json:"mystery_factor"`
	BatteryImpact    BatteryImpact          `json:"battery_impact"`
	EstimatedMinutes *int                   `json:"estimated_minutes"`
	Notes            string                 `json:"notes,omitempty"`
	Requirements     string                 `json:"requirements,omitempty"`
	Invoiced         bool                   `json:"invoiced"`
	StartedAt        *time.Time             `json:"started_at"`
	CompletedAt      *time.Time             `json:"completed_at"`
	DueDate          *time.Time             `json:"due_date"`
	CreatedAt        time.Time              `json:"created_at"`
	UpdatedAt        time.Time              `json:"updated_at"`
	BlockedBy        []Ref                  `json:"blocked_by"`
	Blocking         []Ref                  `json:"blocking"`
}

// Ref is a lightweight reference to a related task.
type Ref struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Status Status `json:"status"`
}

// Dependent is a task whose blocked_by set contains a given blocker, with the
// ids of its live blockers that are not yet done.
type Dependent struct {
	ID                 string
	Status             Status
	IncompleteBlockers []string
}

// CascadeResult lists the dependents touched by a status change.
type CascadeResult struct {
	Unblocked []string `json:"unblocked,omitempty"`
	Reblocked []string `json:"reblocked,omitempty"`
}

// Empty reports whether no dependent changed.
func (c CascadeResult) Empty() bool {
	return len(c.Unblocked) == 0 && len(c.Reblocked) == 0
}
