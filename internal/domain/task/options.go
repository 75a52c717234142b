package task

import (
	"encoding/json"
	"time"

	"github.com/rpggio/agencyops/internal/domain/estimate"
)

// ListOptions provides filtering options for listing tasks.
type ListOptions struct {
	ProjectID  string
	ClientID   string
	AssigneeID string
	Statuses   []Status
	// VisibleTo restricts results to tasks a tech user may see: ad-hoc tasks
	// assigned to them, or tasks on projects they are a member of.
	VisibleTo string
	Limit     int
	Offset    int
}

// Optional is a request field that distinguishes "absent" from "set to null".
type Optional[T any] struct {
	Set   bool
	Value *T
}

// Some returns an Optional holding v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Value: &v}
}

// Null returns an Optional that clears the field.
func Null[T any]() Optional[T] {
	return Optional[T]{Set: true}
}

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if string(data) == "null" {
		o.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

// CreateRequest describes a task creation request.
type CreateRequest struct {
	Title          string                 `json:"title"`
	Description    string                 `json:"description"`
	Status         Status                 `json:"status"`
	Priority       int                    `json:"priority"`
	ProjectID      *string                `json:"project_id"`
	ClientID       *string                `json:"client_id"`
	SiteID         *string                `json:"site_id"`
	AssigneeID     *string                `json:"assignee_id"`
	IsBillable     *bool                  `json:"is_billable"`
	IsRetainerWork bool                   `json:"is_retainer_work"`
	IsSupport      bool                   `json:"is_support"`
	BillingAmount  *float64               `json:"billing_amount"`
	BillingTarget  *int                   `json:"billing_target"`
	EnergyEstimate *estimate.Energy       `json:"energy_estimate"`
	MysteryFactor  estimate.MysteryFactor `json:"mystery_factor,omitempty"`
	BatteryImpact  BatteryImpact          `json:"battery_impact,omitempty"`
	Notes          string                 `json:"notes"`
	Requirements   string                 `json:"requirements"`
	DueDate        *time.Time             `json:"due_date"`
}

// UpdateRequest is a partial task update. Only fields that are Set change.
type UpdateRequest struct {
	Title          Optional[string]                 `json:"title"`
	Description    Optional[string]                 `json:"description"`
	Status         Optional[Status]                 `json:"status"`
	Priority       Optional[int]                    `json:"priority"`
	IsFocus        Optional[bool]                   `json:"is_focus"`
	Notes          Optional[string]                 `json:"notes"`
	Requirements   Optional[string]                 `json:"requirements"`
	AssigneeID     Optional[string]                 `json:"assignee_id"`
	EnergyEstimate Optional[estimate.Energy]        `json:"energy_estimate"`
	MysteryFactor  Optional[estimate.MysteryFactor] `json:"mystery_factor"`
	BatteryImpact  Optional[BatteryImpact]          `json:"battery_impact"`
	DueDate        Optional[time.Time]              `json:"due_date"`
	IsBillable     Optional[bool]                   `json:"is_billable"`
	IsRetainerWork Optional[bool]                   `json:"is_retainer_work"`
	IsSupport      Optional[bool]                   `json:"is_support"`
	BillingAmount  Optional[float64]                `json:"billing_amount"`
	BillingTarget  Optional[int]                    `json:"billing_target"`
	Invoiced       Optional[bool]                   `json:"invoiced"`
}

// techFields are the fields a tech user may change.
var techFields = map[string]bool{
	"status":          true,
	"title":           true,
	"description":     true,
	"priority":        true,
	"is_focus":        true,
	"notes":           true,
	"requirements":    true,
	"assignee_id":     true,
	"energy_estimate": true,
	"mystery_factor":  true,
	"battery_impact":  true,
	"due_date":        true,
}

// SetFields lists the JSON names of the fields present in the request, in
// declaration order.
func (r UpdateRequest) SetFields() []string {
	var fields []string
	add := func(name string, set bool) {
		if set {
			fields = append(fields, name)
		}
	}
	add("title", r.Title.Set)
	add("description", r.Description.Set)
	add("status", r.Status.Set)
	add("priority", r.Priority.Set)
	add("is_focus", r.IsFocus.Set)
	add("notes", r.Notes.Set)
	add("requirements", r.Requirements.Set)
	add("assignee_id", r.AssigneeID.Set)
	add("energy_estimate", r.EnergyEstimate.Set)
	add("mystery_factor", r.MysteryFactor.Set)
	add("battery_impact", r.BatteryImpact.Set)
	add("due_date", r.DueDate.Set)
	add("is_billable", r.IsBillable.Set)
	add("is_retainer_work", r.IsRetainerWork.Set)
	add("is_support", r.IsSupport.Set)
	add("billing_amount", r.BillingAmount.Set)
	add("billing_target", r.BillingTarget.Set)
	add("invoiced", r.Invoiced.Set)
	return fields
}
