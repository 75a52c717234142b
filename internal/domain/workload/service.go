// Package workload reports logged time and team utilization, and reminds
// assignees of tasks coming due.
package workload

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/rs/zerolog"

	"github.com/rpggio/agencyops/internal/auth"
)

// DueWindow is how far ahead due-soon notices look.
const DueWindow = 24 * time.Hour

// Service builds workload reports.
type Service struct {
	repo     Repository
	notifier DueNotifier
	loc      *time.Location
	logger   zerolog.Logger
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithLocation sets the zone days, weeks and months are cut in.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) { s.loc = loc }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithNotifier sets where due-soon notices are sent.
func WithNotifier(n DueNotifier) Option {
	return func(s *Service) { s.notifier = n }
}

// NewService creates a new workload service.
func NewService(repo Repository, logger zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		repo:   repo,
		loc:    time.UTC,
		logger: logger.With().Str("component", "workload").Logger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Time reports logged time. Tech users only ever see their own entries.
func (s *Service) Time(ctx context.Context, actor auth.Context, q TimeQuery) (*TimeReport, error) {
	if q.Start != nil && q.End != nil && q.Start.After(*q.End) {
		return nil, ErrInvalidRange
	}
	groupBy, err := ParseGroupBy(string(q.GroupBy))
	if err != nil {
		return nil, err
	}

	f := EntryFilter{From: q.Start, To: q.End, UserID: q.UserID, ClientID: q.ClientID, ProjectID: q.ProjectID}
	if !actor.Privileged() {
		f.UserID = actor.UserID
	}
	entries, err := s.repo.Entries(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("loading time entries: %w", err)
	}

	r := &TimeReport{
		GroupBy: groupBy,
		Entries: entries,
		Grouped: s.group(entries, groupBy),
		ByUser:  splitByUser(entries),
	}
	for _, e := range entries {
		r.Totals.TotalMinutes += e.Duration
		if e.IsBillable {
			r.Totals.BillableMinutes += e.Duration
		}
	}
	r.Totals.EntryCount = len(entries)
	r.Totals.TotalHours = hours(r.Totals.TotalMinutes)
	r.Totals.BillableHours = hours(r.Totals.BillableMinutes)
	r.Totals.BillablePercent = percent(r.Totals.BillableMinutes, r.Totals.TotalMinutes)
	return r, nil
}

func (s *Service) group(entries []EntryRow, by GroupBy) []Group {
	index := map[string]int{}
	groups := []Group{}
	for _, e := range entries {
		key, label := s.bucket(e, by)
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, Group{Key: key, Label: label})
		}
		groups[i].Minutes += e.Duration
		groups[i].Count++
	}
	for i := range groups {
		groups[i].Hours = hours(groups[i].Minutes)
	}
	slices.SortStableFunc(groups, func(a, b Group) int { return cmp.Compare(b.Minutes, a.Minutes) })
	return groups
}

func (s *Service) bucket(e EntryRow, by GroupBy) (key, label string) {
	switch by {
	case GroupDay:
		day := e.StartedAt.In(s.loc)
		return day.Format(time.DateOnly), day.Format("Mon, Jan 2")
	case GroupWeek:
		monday := WeekStart(e.StartedAt.In(s.loc))
		return monday.Format(time.DateOnly), "Week of " + monday.Format("Jan 2")
	case GroupProject:
		if e.ProjectID == nil {
			return "no-project", "No Project"
		}
		return *e.ProjectID, deref(e.ProjectName, "Unknown")
	case GroupClient:
		if e.ClientID == nil {
			return "no-client", "No Client"
		}
		return *e.ClientID, deref(e.ClientName, "Unknown")
	case GroupUser:
		if e.UserName == "" {
			return e.UserID, "Unknown"
		}
		return e.UserID, e.UserName
	}
	return "all", "All"
}

func splitByUser(entries []EntryRow) []UserSplit {
	index := map[string]int{}
	rows := []UserSplit{}
	for _, e := range entries {
		i, ok := index[e.UserID]
		if !ok {
			i = len(rows)
			index[e.UserID] = i
			rows = append(rows, UserSplit{UserID: e.UserID, UserName: e.UserName})
		}
		rows[i].TotalMinutes += e.Duration
		if e.IsBillable {
			rows[i].BillableMinutes += e.Duration
		} else {
			rows[i].NonBillableMinutes += e.Duration
		}
	}
	for i := range rows {
		r := &rows[i]
		r.BillableHours = hours(r.BillableMinutes)
		r.NonBillableHours = hours(r.NonBillableMinutes)
		r.BillablePercent = percent(r.BillableMinutes, r.TotalMinutes)
	}
	slices.SortStableFunc(rows, func(a, b UserSplit) int { return cmp.Compare(b.TotalMinutes, a.TotalMinutes) })
	return rows
}

// WeekStart returns midnight of the Monday on or before t, in t's zone.
func WeekStart(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	return time.Date(t.Year(), t.Month(), t.Day()-offset, 0, 0, 0, 0, t.Location())
}

// Utilization reports, for every active user, logged time against their
// target and the time their assigned tasks reserve.
func (s *Service) Utilization(ctx context.Context, actor auth.Context, q UtilizationQuery) (*Utilization, error) {
	if err := actor.Require(auth.RoleAdmin, auth.RolePM); err != nil {
		return nil, err
	}
	p, err := s.Period(q)
	if err != nil {
		return nil, err
	}

	members, err := s.repo.ActiveMembers(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading users: %w", err)
	}
	start, end := p.Start.UTC(), p.End.UTC()
	entries, err := s.repo.Entries(ctx, EntryFilter{From: &start, To: &end})
	if err != nil {
		return nil, fmt.Errorf("loading time entries: %w", err)
	}
	tasks, err := s.repo.AssignedTasks(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading assigned tasks: %w", err)
	}

	type logged struct{ billable, nonBillable int }
	byUser := map[string]logged{}
	for _, e := range entries {
		l := byUser[e.UserID]
		if e.IsBillable {
			l.billable += e.Duration
		} else {
			l.nonBillable += e.Duration
		}
		byUser[e.UserID] = l
	}
	reserved := map[string]float64{}
	open := map[string]float64{}
	for _, t := range tasks {
		m := t.ReservedMinutes()
		reserved[t.AssigneeID] += m
		if !t.Closed() {
			open[t.AssigneeID] += m
		}
	}

	weeks := float64(WorkingDays(p.Start, p.End)) / 5
	u := &Utilization{Period: p, Team: make([]UserUtilization, 0, len(members))}
	for _, m := range members {
		l := byUser[m.ID]
		total := l.billable + l.nonBillable
		row := UserUtilization{
			UserID:             m.ID,
			UserName:           m.Name,
			TotalMinutes:       total,
			TotalHours:         hours(total),
			BillableMinutes:    l.billable,
			BillableHours:      hours(l.billable),
			NonBillableMinutes: l.nonBillable,
			NonBillableHours:   hours(l.nonBillable),
			BillablePercent:    percent(l.billable, total),
			TargetHours:        round2(m.TargetHoursPerWeek * weeks),
			ReservedHours:      round2(reserved[m.ID] / 60),
		}
		if row.TargetHours > 0 {
			committed := row.TotalHours + open[m.ID]/60
			row.UtilizationPercent = int(math.Round(committed / row.TargetHours * 100))
		}
		row.Status = LevelFor(row.UtilizationPercent)
		u.Team = append(u.Team, row)

		u.Summary.TotalHours += row.TotalHours
		u.Summary.BillableHours += row.BillableHours
		u.Summary.TargetHours += row.TargetHours
		u.Summary.ReservedHours += row.ReservedHours
	}
	slices.SortStableFunc(u.Team, func(a, b UserUtilization) int { return cmp.Compare(b.TotalHours, a.TotalHours) })

	if u.Summary.TargetHours > 0 {
		u.Summary.AvgUtilization = int(math.Round(u.Summary.TotalHours / u.Summary.TargetHours * 100))
	}
	u.Summary.TotalHours = round2(u.Summary.TotalHours)
	u.Summary.BillableHours = round2(u.Summary.BillableHours)
	u.Summary.TargetHours = round2(u.Summary.TargetHours)
	u.Summary.ReservedHours = round2(u.Summary.ReservedHours)
	return u, nil
}

// Period resolves the span of a utilization report.
func (s *Service) Period(q UtilizationQuery) (Period, error) {
	switch {
	case q.Period == PeriodWeek && q.Year > 0 && q.Week > 0:
		if q.Week > 53 {
			return Period{}, fmt.Errorf("%w: week %d", ErrInvalidPeriod, q.Week)
		}
		start := ISOWeekStart(q.Year, q.Week, s.loc)
		return Period{Start: start, End: start.AddDate(0, 0, 7).Add(-time.Nanosecond), Type: PeriodWeek}, nil
	case q.Period != "" && q.Period != PeriodWeek && q.Period != PeriodMonth:
		return Period{}, fmt.Errorf("%w: period must be week or month", ErrInvalidPeriod)
	case q.Year > 0 && q.Month > 0:
		if q.Month > 12 {
			return Period{}, fmt.Errorf("%w: month %d", ErrInvalidPeriod, q.Month)
		}
		return monthPeriod(q.Year, time.Month(q.Month), s.loc), nil
	}
	now := s.now().In(s.loc)
	return monthPeriod(now.Year(), now.Month(), s.loc), nil
}

func monthPeriod(year int, month time.Month, loc *time.Location) Period {
	start := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	return Period{Start: start, End: start.AddDate(0, 1, 0).Add(-time.Nanosecond), Type: PeriodMonth}
}

// ISOWeekStart returns the Monday that starts ISO week `week` of `year`.
func ISOWeekStart(year, week int, loc *time.Location) time.Time {
	jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, loc)
	return WeekStart(jan4).AddDate(0, 0, (week-1)*7)
}

// WorkingDays counts the weekdays from start to end, both included.
func WorkingDays(start, end time.Time) int {
	n := 0
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			n++
		}
	}
	return n
}

// NotifyDueSoon reminds assignees of open tasks due within DueWindow, at
// most once per task, assignee and day.
func (s *Service) NotifyDueSoon(ctx context.Context, actor auth.Context) (*DueRun, error) {
	if err := actor.Require(auth.RoleAdmin); err != nil {
		return nil, err
	}
	now := s.now()
	tasks, err := s.repo.DueTasks(ctx, now.UTC(), now.Add(DueWindow).UTC())
	if err != nil {
		return nil, fmt.Errorf("loading due tasks: %w", err)
	}

	run := &DueRun{Day: now.In(s.loc).Format(time.DateOnly), TasksChecked: len(tasks), Notified: []DueTask{}}
	for _, t := range tasks {
		claimed, err := s.repo.ClaimDueNotice(ctx, t.ID, t.AssigneeID, run.Day, now.UTC())
		if err != nil {
			return nil, fmt.Errorf("recording due notice: %w", err)
		}
		if !claimed {
			continue
		}
		if s.notifier != nil {
			if err := s.notifier.NotifyTaskDueSoon(ctx, t); err != nil {
				s.logger.Error().Err(err).Str("task_id", t.ID).Str("user_id", t.AssigneeID).Msg("failed to send due notice")
				if rerr := s.repo.ReleaseDueNotice(ctx, t.ID, t.AssigneeID, run.Day); rerr != nil {
					s.logger.Error().Err(rerr).Str("task_id", t.ID).Msg("failed to release due notice")
				}
				continue
			}
		}
		run.NotificationsSent++
		run.Notified = append(run.Notified, t)
	}

	s.logger.Info().
		Str("day", run.Day).
		Int("tasks_checked", run.TasksChecked).
		Int("notifications_sent", run.NotificationsSent).
		Msg("due-soon notices checked")
	return run, nil
}

func hours(minutes int) float64 {
	return round2(float64(minutes) / 60)
}

func percent(part, whole int) int {
	if whole <= 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(whole) * 100))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func deref(s *string, fallback string) string {
	if s == nil || *s == "" {
		return fallback
	}
	return *s
}
