package retainer

import (
	"math"
	"sort"

	"github.com/rpggio/agencyops/internal/domain/estimate"
)

// Input is everything Calculate needs for one client and month. Scheduled
// holds open tasks due in the period; Unscheduled holds open tasks with no
// due date.
type Input struct {
	Period        Period
	RetainerHours float64
	Logged        []LoggedEntry
	Scheduled     []OpenTask
	Unscheduled   []OpenTask
}

// IsRetainerWork decides whether a task counts against the retainer: it is
// flagged as retainer work, its project is a retainer project, or the client
// has retainer hours and the task carries no fixed price.
func IsRetainerWork(explicit, projectIsRetainer bool, billingAmount *float64, retainerHours float64) bool {
	if explicit || projectIsRetainer {
		return true
	}
	return retainerHours > 0 && (billingAmount == nil || *billingAmount == 0)
}

// Empty returns zero usage for the period.
func Empty(p Period, retainerHours float64) Usage {
	return Usage{
		Month:          p.Month,
		Period:         p,
		RetainerHours:  retainerHours,
		Tasks:          []RealizedTask{},
		ScheduledTasks: []ScheduledTask{},
	}
}

// Calculate aggregates realized time per task and projects the remaining
// month from open task estimates.
func Calculate(in Input) Usage {
	u := Empty(in.Period, in.RetainerHours)

	byTask := make(map[string]*RealizedTask)
	var order []string
	for _, e := range in.Logged {
		if e.IsSupport || !IsRetainerWork(e.IsRetainerWork, e.ProjectIsRetainer, e.BillingAmount, in.RetainerHours) {
			continue
		}
		rt, ok := byTask[e.TaskID]
		if !ok {
			rt = &RealizedTask{
				ID:             e.TaskID,
				Title:          e.Title,
				ProjectName:    e.ProjectName,
				ProjectID:      e.ProjectID,
				CompletedAt:    e.CompletedAt,
				IsRetainerWork: e.IsRetainerWork,
				Invoiced:       e.Invoiced,
			}
			byTask[e.TaskID] = rt
			order = append(order, e.TaskID)
		}
		rt.TimeSpentMinutes += e.Duration
	}
	for _, id := range order {
		rt := byTask[id]
		u.Tasks = append(u.Tasks, *rt)
		u.UsedMinutes += rt.TimeSpentMinutes
	}
	sort.SliceStable(u.Tasks, func(i, j int) bool {
		return u.Tasks[i].TimeSpentMinutes > u.Tasks[j].TimeSpentMinutes
	})
	u.OverageMinutes = overage(u.UsedMinutes, in.RetainerHours)

	for _, t := range in.Scheduled {
		if !counts(t, byTask, in.RetainerHours) {
			continue
		}
		low, high := bounds(t)
		u.ScheduledTasks = append(u.ScheduledTasks, ScheduledTask{
			ID:                  t.ID,
			Title:               t.Title,
			ProjectName:         t.ProjectName,
			ProjectID:           t.ProjectID,
			DueDate:             t.DueDate,
			Status:              t.Status,
			AssigneeID:          t.AssigneeID,
			AssigneeName:        t.AssigneeName,
			EnergyEstimate:      t.EnergyEstimate,
			MysteryFactor:       t.MysteryFactor,
			EstimatedMinutesMin: low,
			EstimatedMinutesMax: high,
			IsRetainerWork:      t.IsRetainerWork,
		})
		u.ScheduledMinutes += high
	}
	sort.SliceStable(u.ScheduledTasks, func(i, j int) bool {
		a, b := u.ScheduledTasks[i].DueDate, u.ScheduledTasks[j].DueDate
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		}
		return a.Before(*b)
	})

	for _, t := range in.Unscheduled {
		if !counts(t, byTask, in.RetainerHours) {
			continue
		}
		_, high := bounds(t)
		u.UnscheduledTasksCount++
		u.UnscheduledMinutes += high
	}

	u.ProjectedTotalMinutes = u.UsedMinutes + u.ScheduledMinutes
	u.ProjectedOverageMinutes = overage(u.ProjectedTotalMinutes, in.RetainerHours)
	return u
}

func counts(t OpenTask, logged map[string]*RealizedTask, retainerHours float64) bool {
	if t.IsSupport || t.Status == "done" || t.Status == "abandoned" {
		return false
	}
	if _, ok := logged[t.ID]; ok {
		return false
	}
	return IsRetainerWork(t.IsRetainerWork, t.ProjectIsRetainer, t.BillingAmount, retainerHours)
}

// bounds returns the base and multiplied minute estimates, zero without energy.
func bounds(t OpenTask) (int, int) {
	if t.EnergyEstimate == nil || !t.EnergyEstimate.Valid() {
		return 0, 0
	}
	r := estimate.ForTask(t.EnergyEstimate, t.MysteryFactor)
	return r.MinMinutes, r.MaxMinutes
}

// overage compares against the retainer in fractional minutes and rounds
// the excess to the nearest minute.
func overage(minutes int, hours float64) int {
	return max(int(math.Round(float64(minutes)-hours*60)), 0)
}
