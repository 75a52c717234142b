package retainer

import (
	"time"

	"github.com/rpggio/agencyops/internal/domain/estimate"
)

// LoggedEntry is one billable time entry in the period, joined with the task
// it was logged against.
type LoggedEntry struct {
	TaskID            string
	Title             string
	ProjectID         *string
	ProjectName       *string
	ProjectIsRetainer bool
	Duration          int
	CompletedAt       *time.Time
	IsRetainerWork    bool
	IsSupport         bool
	Invoiced          bool
	BillingAmount     *float64
}

// OpenTask is a task of the client that is neither done nor abandoned.
type OpenTask struct {
	ID                string
	Title             string
	ProjectID         *string
	ProjectName       *string
	ProjectIsRetainer bool
	DueDate           *time.Time
	Status            string
	AssigneeID        *string
	AssigneeName      *string
	EnergyEstimate    *estimate.Energy
	MysteryFactor     estimate.MysteryFactor
	IsRetainerWork    bool
	IsSupport         bool
	BillingAmount     *float64
}

// RealizedTask is a task with retainer time logged in the period.
type RealizedTask struct {
	ID               string     `json:"id"`
	Title            string     `json:"title"`
	ProjectName      *string    `json:"project_name"`
	ProjectID        *string    `json:"project_id"`
	TimeSpentMinutes int        `json:"time_spent_minutes"`
	CompletedAt      *time.Time `json:"completed_at"`
	IsRetainerWork   bool       `json:"is_retainer_work"`
	Invoiced         bool       `json:"invoiced"`
}

// ScheduledTask is an open retainer task due in the period with no time logged.
type ScheduledTask struct {
	ID                  string                 `json:"id"`
	Title               string                 `json:"title"`
	ProjectName         *string                `json:"project_name"`
	ProjectID           *string                `json:"project_id"`
	DueDate             *time.Time             `json:"due_date"`
	Status              string                 `json:"status"`
	AssigneeID          *string                `json:"assignee_id"`
	AssigneeName        *string                `json:"assignee_name"`
	EnergyEstimate      *estimate.Energy       `json:"energy_estimate"`
	MysteryFactor       estimate.MysteryFactor `json:"mystery_factor"`
	EstimatedMinutesMin int                    `json:"estimated_minutes_min"`
	EstimatedMinutesMax int                    `json:"estimated_minutes_max"`
	IsRetainerWork      bool                   `json:"is_retainer_work"`
}

// Usage is the realized and projected retainer consumption of one client for
// one month.
type Usage struct {
	Month                   string          `json:"month"`
	Period                  Period          `json:"period"`
	RetainerHours           float64         `json:"retainerHours"`
	UsedMinutes             int             `json:"usedMinutes"`
	OverageMinutes          int             `json:"overageMinutes"`
	Tasks                   []RealizedTask  `json:"tasks"`
	ScheduledMinutes        int             `json:"scheduledMinutes"`
	ScheduledTasks          []ScheduledTask `json:"scheduledTasks"`
	ProjectedTotalMinutes   int             `json:"projectedTotalMinutes"`
	ProjectedOverageMinutes int             `json:"projectedOverageMinutes"`
	UnscheduledTasksCount   int             `json:"unscheduledTasksCount"`
	UnscheduledMinutes      int             `json:"unscheduledMinutes"`
}

// Level grades how much of a retainer has been used.
type Level string

const (
	LevelHealthy  Level = "healthy"
	LevelWarning  Level = "warning"
	LevelCritical Level = "critical"
	LevelExceeded Level = "exceeded"
)

// LevelFor grades a usage percentage.
func LevelFor(percent float64) Level {
	switch {
	case percent >= 100:
		return LevelExceeded
	case percent >= 90:
		return LevelCritical
	case percent >= 75:
		return LevelWarning
	}
	return LevelHealthy
}

// Status is one row of the retainer status report.
type Status struct {
	ClientID       string    `json:"clientId"`
	ClientName     string    `json:"clientName"`
	PeriodStart    time.Time `json:"periodStart"`
	PeriodEnd      time.Time `json:"periodEnd"`
	AllocatedHours float64   `json:"allocatedHours"`
	UsedHours      float64   `json:"usedHours"`
	RemainingHours float64   `json:"remainingHours"`
	PercentUsed    int       `json:"percentUsed"`
	Status         Level     `json:"status"`

	percent float64
}

// Summary counts report rows per level.
type Summary struct {
	Total    int `json:"total"`
	Exceeded int `json:"exceeded"`
	Critical int `json:"critical"`
	Warning  int `json:"warning"`
	Healthy  int `json:"healthy"`
}

// Report is the status of every active retainer client for a month.
type Report struct {
	Month     string   `json:"month"`
	Period    Period   `json:"period"`
	Retainers []Status `json:"retainers"`
	Summary   Summary  `json:"summary"`
}

// Alert is a usage threshold crossing for one client and month.
type Alert struct {
	ClientID       string  `json:"clientId"`
	ClientName     string  `json:"clientName"`
	Month          string  `json:"month"`
	Threshold      int     `json:"threshold"`
	UsedHours      float64 `json:"usedHours"`
	AllocatedHours float64 `json:"allocatedHours"`
	PercentUsed    int     `json:"percentUsed"`
}

// AlertRun summarizes one alert check.
type AlertRun struct {
	Month          string  `json:"month"`
	ClientsChecked int     `json:"clientsChecked"`
	AlertsSent     int     `json:"alertsSent"`
	Alerts         []Alert `json:"alerts"`
}
