package workload_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rpggio/agencyops/internal/auth"
	"github.com/rpggio/agencyops/internal/domain/estimate"
	"github.com/rpggio/agencyops/internal/domain/workload"
	"github.com/rpggio/agencyops/internal/repository/mocks"
)

var (
	admin = auth.Context{UserID: "u-admin", Role: auth.RoleAdmin}
	pm    = auth.Context{UserID: "u-pm", Role: auth.RolePM}
	tech  = auth.Context{UserID: "u-tech", Role: auth.RoleTech}
	fixed = time.Date(2026, 4, 15, 12, 0, 0, 0, time.UTC)
)

func str(s string) *string { return &s }

func at(day, hour int) time.Time { return time.Date(2026, 4, day, hour, 0, 0, 0, time.UTC) }

func newService(repo *mocks.WorkloadRepository, opts ...workload.Option) *workload.Service {
	opts = append([]workload.Option{workload.WithClock(func() time.Time { return fixed })}, opts...)
	return workload.NewService(repo, zerolog.Nop(), opts...)
}

func sampleEntries() []workload.EntryRow {
	return []workload.EntryRow{
		{ID: "e1", UserID: "ana", UserName: "Ana", ProjectID: str("p1"), ProjectName: str("Site"),
			ClientID: str("c1"), ClientName: str("Acme"), StartedAt: at(14, 10), Duration: 60, IsBillable: true},
		{ID: "e2", UserID: "ben", UserName: "Ben", StartedAt: at(13, 9), Duration: 30},
		{ID: "e3", UserID: "ana", UserName: "Ana", ProjectID: str("p1"), ProjectName: str("Site"),
			ClientID: str("c1"), ClientName: str("Acme"), StartedAt: at(12, 9), Duration: 90, IsBillable: true},
	}
}

func TestTime_Totals(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.WorkloadRepository{}
	repo.On("Entries", ctx, workload.EntryFilter{}).Return(sampleEntries(), nil)

	r, err := newService(repo).Time(ctx, pm, workload.TimeQuery{})
	require.NoError(t, err)
	assert.Equal(t, workload.GroupDay, r.GroupBy)
	assert.Equal(t, workload.Totals{
		TotalMinutes:    180,
		TotalHours:      3,
		BillableMinutes: 150,
		BillableHours:   2.5,
		BillablePercent: 83,
		EntryCount:      3,
	}, r.Totals)

	require.Len(t, r.ByUser, 2)
	assert.Equal(t, "ana", r.ByUser[0].UserID)
	assert.Equal(t, 150, r.ByUser[0].BillableMinutes)
	assert.Equal(t, 100, r.ByUser[0].BillablePercent)
	assert.Equal(t, "ben", r.ByUser[1].UserID)
	assert.Equal(t, 30, r.ByUser[1].NonBillableMinutes)
	assert.Equal(t, 0.5, r.ByUser[1].NonBillableHours)
	assert.Zero(t, r.ByUser[1].BillablePercent)
}

func TestTime_Grouping(t *testing.T) {
	tests := []struct {
		by     workload.GroupBy
		groups []workload.Group
	}{
		{workload.GroupDay, []workload.Group{
			{Key: "2026-04-12", Label: "Sun, Apr 12", Minutes: 90, Hours: 1.5, Count: 1},
			{Key: "2026-04-14", Label: "Tue, Apr 14", Minutes: 60, Hours: 1, Count: 1},
			{Key: "2026-04-13", Label: "Mon, Apr 13", Minutes: 30, Hours: 0.5, Count: 1},
		}},
		{workload.GroupWeek, []workload.Group{
			{Key: "2026-04-13", Label: "Week of Apr 13", Minutes: 90, Hours: 1.5, Count: 2},
			{Key: "2026-04-06", Label: "Week of Apr 6", Minutes: 90, Hours: 1.5, Count: 1},
		}},
		{workload.GroupProject, []workload.Group{
			{Key: "p1", Label: "Site", Minutes: 150, Hours: 2.5, Count: 2},
			{Key: "no-project", Label: "No Project", Minutes: 30, Hours: 0.5, Count: 1},
		}},
		{workload.GroupClient, []workload.Group{
			{Key: "c1", Label: "Acme", Minutes: 150, Hours: 2.5, Count: 2},
			{Key: "no-client", Label: "No Client", Minutes: 30, Hours: 0.5, Count: 1},
		}},
		{workload.GroupUser, []workload.Group{
			{Key: "ana", Label: "Ana", Minutes: 150, Hours: 2.5, Count: 2},
			{Key: "ben", Label: "Ben", Minutes: 30, Hours: 0.5, Count: 1},
		}},
		{workload.GroupAll, []workload.Group{
			{Key: "all", Label: "All", Minutes: 180, Hours: 3, Count: 3},
		}},
	}
	for _, tt := range tests {
		t.Run(string(tt.by), func(t *testing.T) {
			ctx := context.Background()
			repo := &mocks.WorkloadRepository{}
			repo.On("Entries", ctx, mock.Anything).Return(sampleEntries(), nil)

			r, err := newService(repo).Time(ctx, pm, workload.TimeQuery{GroupBy: tt.by})
			require.NoError(t, err)
			assert.Equal(t, tt.groups, r.Grouped)
		})
	}
}

func TestTime_TechSeesOwnEntries(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.WorkloadRepository{}
	repo.On("Entries", ctx, workload.EntryFilter{UserID: "u-tech", ProjectID: "p1"}).Return([]workload.EntryRow{}, nil)

	r, err := newService(repo).Time(ctx, tech, workload.TimeQuery{UserID: "someone-else", ProjectID: "p1"})
	require.NoError(t, err)
	assert.Empty(t, r.Entries)
	assert.Empty(t, r.Grouped)
	assert.Zero(t, r.Totals.BillablePercent)
	repo.AssertExpectations(t)
}

func TestTime_Validation(t *testing.T) {
	ctx := context.Background()
	svc := newService(&mocks.WorkloadRepository{})

	_, err := svc.Time(ctx, pm, workload.TimeQuery{GroupBy: "month"})
	require.ErrorIs(t, err, workload.ErrInvalidGroupBy)

	start, end := at(14, 0), at(13, 0)
	_, err = svc.Time(ctx, pm, workload.TimeQuery{Start: &start, End: &end})
	require.ErrorIs(t, err, workload.ErrInvalidRange)
}

func TestWeekStart(t *testing.T) {
	assert.Equal(t, at(13, 0), workload.WeekStart(at(13, 9)))
	assert.Equal(t, at(13, 0), workload.WeekStart(at(19, 23)))
	assert.Equal(t, at(6, 0), workload.WeekStart(at(12, 9)))
}

func TestPeriod(t *testing.T) {
	svc := newService(&mocks.WorkloadRepository{})

	p, err := svc.Period(workload.UtilizationQuery{})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), p.Start)
	assert.Equal(t, time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC).Add(-time.Nanosecond), p.End)
	assert.Equal(t, workload.PeriodMonth, p.Type)

	p, err = svc.Period(workload.UtilizationQuery{Period: workload.PeriodWeek, Year: 2026, Week: 16})
	require.NoError(t, err)
	assert.Equal(t, at(13, 0), p.Start)
	assert.Equal(t, at(20, 0).Add(-time.Nanosecond), p.End)
	assert.Equal(t, workload.PeriodWeek, p.Type)

	// 2026-W01 starts in the previous calendar year.
	assert.Equal(t, time.Date(2025, 12, 29, 0, 0, 0, 0, time.UTC), workload.ISOWeekStart(2026, 1, time.UTC))

	_, err = svc.Period(workload.UtilizationQuery{Period: workload.PeriodMonth, Year: 2026, Month: 13})
	require.ErrorIs(t, err, workload.ErrInvalidPeriod)
	_, err = svc.Period(workload.UtilizationQuery{Period: "quarter"})
	require.ErrorIs(t, err, workload.ErrInvalidPeriod)
}

func TestWorkingDays(t *testing.T) {
	assert.Equal(t, 22, workload.WorkingDays(time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 4, 30, 23, 0, 0, 0, time.UTC)))
	assert.Equal(t, 5, workload.WorkingDays(at(13, 0), at(19, 23)))
}

func TestUtilization(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.WorkloadRepository{}
	start, end := at(13, 0), at(20, 0).Add(-time.Nanosecond)

	energy := estimate.Energy(5)
	long := 1320
	repo.On("ActiveMembers", ctx).Return([]workload.Member{
		{ID: "ana", Name: "Ana", TargetHoursPerWeek: 40},
		{ID: "ben", Name: "Ben", TargetHoursPerWeek: 20},
		{ID: "cy", Name: "Cy"},
	}, nil)
	repo.On("Entries", ctx, workload.EntryFilter{From: &start, To: &end}).Return([]workload.EntryRow{
		{UserID: "ana", Duration: 600, IsBillable: true},
		{UserID: "ana", Duration: 120},
		{UserID: "ben", Duration: 60, IsBillable: true},
	}, nil)
	repo.On("AssignedTasks", ctx).Return([]workload.AssignedTask{
		{AssigneeID: "ana", Status: "in_progress", EnergyEstimate: &energy, MysteryFactor: estimate.MysteryAverage},
		{AssigneeID: "ana", Status: "done", EnergyEstimate: &energy, LoggedMinutes: 90},
		{AssigneeID: "ben", Status: "not_started", EstimatedMinutes: &long},
	}, nil)

	u, err := newService(repo).Utilization(ctx, pm, workload.UtilizationQuery{Period: workload.PeriodWeek, Year: 2026, Week: 16})
	require.NoError(t, err)
	require.Len(t, u.Team, 3)

	ana := u.Team[0]
	assert.Equal(t, "ana", ana.UserID)
	assert.Equal(t, 12.0, ana.TotalHours)
	assert.Equal(t, 10.0, ana.BillableHours)
	assert.Equal(t, 2.0, ana.NonBillableHours)
	assert.Equal(t, 83, ana.BillablePercent)
	assert.Equal(t, 40.0, ana.TargetHours)
	assert.Equal(t, 6.3, ana.ReservedHours)
	assert.Equal(t, 42, ana.UtilizationPercent)
	assert.Equal(t, workload.LevelUnder, ana.Status)

	ben := u.Team[1]
	assert.Equal(t, "ben", ben.UserID)
	assert.Equal(t, 22.0, ben.ReservedHours)
	assert.Equal(t, 115, ben.UtilizationPercent)
	assert.Equal(t, workload.LevelOver, ben.Status)

	cy := u.Team[2]
	assert.Zero(t, cy.UtilizationPercent)
	assert.Equal(t, workload.LevelUnder, cy.Status)

	assert.Equal(t, workload.UtilizationSummary{
		TotalHours:     13,
		BillableHours:  11,
		AvgUtilization: 22,
		TargetHours:    60,
		ReservedHours:  28.3,
	}, u.Summary)
}

func TestUtilization_TechForbidden(t *testing.T) {
	_, err := newService(&mocks.WorkloadRepository{}).Utilization(context.Background(), tech, workload.UtilizationQuery{})
	require.ErrorIs(t, err, auth.ErrForbidden)
}

func TestLevelFor(t *testing.T) {
	assert.Equal(t, workload.LevelUnder, workload.LevelFor(79))
	assert.Equal(t, workload.LevelTarget, workload.LevelFor(80))
	assert.Equal(t, workload.LevelTarget, workload.LevelFor(110))
	assert.Equal(t, workload.LevelOver, workload.LevelFor(111))
}

func TestNotifyDueSoon(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.WorkloadRepository{}
	notifier := &mocks.DueNotifier{}

	due := []workload.DueTask{
		{ID: "t1", AssigneeID: "ana", DueDate: fixed.Add(time.Hour)},
		{ID: "t2", AssigneeID: "ben", DueDate: fixed.Add(2 * time.Hour)},
		{ID: "t3", AssigneeID: "cy", DueDate: fixed.Add(3 * time.Hour)},
	}
	repo.On("DueTasks", ctx, fixed, fixed.Add(workload.DueWindow)).Return(due, nil)
	repo.On("ClaimDueNotice", ctx, "t1", "ana", "2026-04-15", fixed).Return(true, nil)
	repo.On("ClaimDueNotice", ctx, "t2", "ben", "2026-04-15", fixed).Return(false, nil)
	repo.On("ClaimDueNotice", ctx, "t3", "cy", "2026-04-15", fixed).Return(true, nil)
	repo.On("ReleaseDueNotice", ctx, "t3", "cy", "2026-04-15").Return(nil)
	notifier.On("NotifyTaskDueSoon", ctx, due[0]).Return(nil)
	notifier.On("NotifyTaskDueSoon", ctx, due[2]).Return(errors.New("webhook down"))

	run, err := newService(repo, workload.WithNotifier(notifier)).NotifyDueSoon(ctx, admin)
	require.NoError(t, err)
	assert.Equal(t, "2026-04-15", run.Day)
	assert.Equal(t, 3, run.TasksChecked)
	assert.Equal(t, 1, run.NotificationsSent)
	assert.Equal(t, []workload.DueTask{due[0]}, run.Notified)
	repo.AssertExpectations(t)
	notifier.AssertNotCalled(t, "NotifyTaskDueSoon", ctx, due[1])
}

func TestNotifyDueSoon_AdminOnly(t *testing.T) {
	_, err := newService(&mocks.WorkloadRepository{}).NotifyDueSoon(context.Background(), pm)
	require.ErrorIs(t, err, auth.ErrForbidden)
}
