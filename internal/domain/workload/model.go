package workload

import (
	"time"

	"github.com/rpggio/agencyops/internal/domain/estimate"
)

// EntryRow is a finished time entry joined with its user, task, project and
// client. The client comes from the project, or from the task when the task
// has no project.
type EntryRow struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	UserName    string     `json:"user_name"`
	TaskID      *string    `json:"task_id"`
	TaskTitle   *string    `json:"task_title"`
	ProjectID   *string    `json:"project_id"`
	ProjectName *string    `json:"project_name"`
	ClientID    *string    `json:"client_id"`
	ClientName  *string    `json:"client_name"`
	Description string     `json:"description"`
	StartedAt   time.Time  `json:"started_at"`
	EndedAt     *time.Time `json:"ended_at"`
	Duration    int        `json:"duration"`
	IsBillable  bool       `json:"is_billable"`
}

// EntryFilter narrows the entries a report reads. Bounds are inclusive.
type EntryFilter struct {
	From      *time.Time
	To        *time.Time
	UserID    string
	ClientID  string
	ProjectID string
}

// GroupBy selects how a time report buckets its entries.
type GroupBy string

const (
	GroupDay     GroupBy = "day"
	GroupWeek    GroupBy = "week"
	GroupProject GroupBy = "project"
	GroupClient  GroupBy = "client"
	GroupUser    GroupBy = "user"
	GroupAll     GroupBy = "all"
)

// ParseGroupBy validates a grouping. Empty selects GroupDay.
func ParseGroupBy(s string) (GroupBy, error) {
	switch g := GroupBy(s); g {
	case "":
		return GroupDay, nil
	case GroupDay, GroupWeek, GroupProject, GroupClient, GroupUser, GroupAll:
		return g, nil
	}
	return "", ErrInvalidGroupBy
}

// TimeQuery selects the entries of a time report.
type TimeQuery struct {
	Start     *time.Time
	End       *time.Time
	UserID    string
	ClientID  string
	ProjectID string
	GroupBy   GroupBy
}

// Group is one bucket of a time report.
type Group struct {
	Key     string  `json:"key"`
	Label   string  `json:"label"`
	Minutes int     `json:"minutes"`
	Hours   float64 `json:"hours"`
	Count   int     `json:"count"`
}

// UserSplit is the billable and non-billable time of one user.
type UserSplit struct {
	UserID             string  `json:"user_id"`
	UserName           string  `json:"user_name"`
	TotalMinutes       int     `json:"totalMinutes"`
	BillableMinutes    int     `json:"billableMinutes"`
	NonBillableMinutes int     `json:"nonBillableMinutes"`
	BillableHours      float64 `json:"billableHours"`
	NonBillableHours   float64 `json:"nonBillableHours"`
	BillablePercent    int     `json:"billablePercent"`
}

// Totals sums every entry of a time report.
type Totals struct {
	TotalMinutes    int     `json:"totalMinutes"`
	TotalHours      float64 `json:"totalHours"`
	BillableMinutes int     `json:"billableMinutes"`
	BillableHours   float64 `json:"billableHours"`
	BillablePercent int     `json:"billablePercent"`
	EntryCount      int     `json:"entryCount"`
}

// TimeReport lists entries newest first with their groups and totals.
type TimeReport struct {
	GroupBy GroupBy     `json:"group_by"`
	Entries []EntryRow  `json:"entries"`
	Grouped []Group     `json:"grouped"`
	ByUser  []UserSplit `json:"by_user"`
	Totals  Totals      `json:"totals"`
}

// Member is an active user with a weekly target.
type Member struct {
	ID                 string
	Name               string
	TargetHoursPerWeek float64
}

// AssignedTask is a live task with an assignee, and the minutes logged on it.
type AssignedTask struct {
	AssigneeID       string
	Status           string
	EnergyEstimate   *estimate.Energy
	MysteryFactor    estimate.MysteryFactor
	EstimatedMinutes *int
	LoggedMinutes    int
}

// Closed reports whether the task is done or abandoned.
func (t AssignedTask) Closed() bool {
	return t.Status == "done" || t.Status == "abandoned"
}

// ReservedMinutes is the time a task holds on its assignee: the logged time
// once closed, otherwise the midpoint of its estimate range, falling back to
// the flat minute estimate.
func (t AssignedTask) ReservedMinutes() float64 {
	if t.Closed() {
		return float64(t.LoggedMinutes)
	}
	if t.EnergyEstimate != nil && t.EnergyEstimate.Valid() {
		base := float64(t.EnergyEstimate.Minutes())
		return (base + base*t.MysteryFactor.Multiplier()) / 2
	}
	if t.EstimatedMinutes != nil {
		return float64(*t.EstimatedMinutes)
	}
	return 0
}

// PeriodType is the span of a utilization report.
type PeriodType string

const (
	PeriodWeek  PeriodType = "week"
	PeriodMonth PeriodType = "month"
)

// UtilizationQuery selects the period of a utilization report. A week needs
// Year and Week (ISO numbering); a month needs Year and Month. Anything else
// reports the current month.
type UtilizationQuery struct {
	Period PeriodType
	Year   int
	Month  int
	Week   int
}

// Period is a report span with inclusive bounds.
type Period struct {
	Start time.Time  `json:"start"`
	End   time.Time  `json:"end"`
	Type  PeriodType `json:"type"`
}

// Level classifies a utilization percentage.
type Level string

const (
	LevelUnder  Level = "under"
	LevelTarget Level = "target"
	LevelOver   Level = "over"
)

// LevelFor classifies a utilization percentage: under 80 is under target,
// over 110 is over.
func LevelFor(percent int) Level {
	switch {
	case percent < 80:
		return LevelUnder
	case percent > 110:
		return LevelOver
	}
	return LevelTarget
}

// UserUtilization is one row of a utilization report.
type UserUtilization struct {
	UserID             string  `json:"userId"`
	UserName           string  `json:"userName"`
	TotalMinutes       int     `json:"totalMinutes"`
	TotalHours         float64 `json:"totalHours"`
	BillableMinutes    int     `json:"billableMinutes"`
	BillableHours      float64 `json:"billableHours"`
	NonBillableMinutes int     `json:"nonBillableMinutes"`
	NonBillableHours   float64 `json:"nonBillableHours"`
	BillablePercent    int     `json:"billablePercent"`
	TargetHours        float64 `json:"targetHours"`
	// UtilizationPercent counts logged hours plus the estimates of open tasks.
	UtilizationPercent int     `json:"utilizationPercent"`
	ReservedHours      float64 `json:"reservedHours"`
	Status             Level   `json:"status"`
}

// UtilizationSummary sums the team.
type UtilizationSummary struct {
	TotalHours     float64 `json:"totalHours"`
	BillableHours  float64 `json:"billableHours"`
	AvgUtilization int     `json:"avgUtilization"`
	TargetHours    float64 `json:"targetHours"`
	ReservedHours  float64 `json:"reservedHours"`
}

// Utilization is the team utilization for a period, busiest first.
type Utilization struct {
	Period  Period             `json:"period"`
	Team    []UserUtilization  `json:"team"`
	Summary UtilizationSummary `json:"summary"`
}

// DueTask is an open assigned task due soon.
type DueTask struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	AssigneeID   string    `json:"assignee_id"`
	AssigneeName string    `json:"assignee_name"`
	DueDate      time.Time `json:"due_date"`
	ProjectName  *string   `json:"project_name"`
}

// DueRun is the outcome of one due-soon pass.
type DueRun struct {
	Day               string    `json:"day"`
	TasksChecked      int       `json:"tasksChecked"`
	NotificationsSent int       `json:"notificationsSent"`
	Notified          []DueTask `json:"notified"`
}
