package task

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	all := []Status{StatusNotStarted, StatusInProgress, StatusReview, StatusDone, StatusBlocked, StatusAbandoned}
	allowed := map[Status][]Status{
		StatusNotStarted: {StatusInProgress, StatusBlocked, StatusAbandoned},
		StatusInProgress: {StatusReview, StatusNotStarted, StatusBlocked, StatusAbandoned},
		StatusReview:     {StatusDone, StatusInProgress, StatusAbandoned},
		StatusDone:       {StatusInProgress},
		StatusBlocked:    {StatusNotStarted, StatusInProgress, StatusAbandoned},
		StatusAbandoned:  {StatusNotStarted},
	}

	for _, from := range all {
		for _, to := range all {
			want := from == to
			for _, a := range allowed[from] {
				if a == to {
					want = true
				}
			}
			require.Equal(t, want, CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestValidateTransition_NamesBothStates(t *testing.T) {
	err := ValidateTransition(StatusNotStarted, StatusDone)
	require.ErrorIs(t, err, ErrInvalidTransition)
	require.Contains(t, err.Error(), "not_started")
	require.Contains(t, err.Error(), "done")

	require.ErrorIs(t, ValidateTransition(StatusNotStarted, Status("paused")), ErrInvalidStatus)
	require.NoError(t, ValidateTransition(StatusReview, StatusDone))
}

func TestApplyStatus_SideEffects(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	t1 := t0.Add(time.Hour)
	t2 := t1.Add(time.Hour)

	task := &Task{Status: StatusNotStarted}
	ApplyStatus(task, StatusInProgress, t0)
	require.Equal(t, t0, *task.StartedAt)
	require.True(t, task.IsFocus)

	ApplyStatus(task, StatusReview, t1)
	ApplyStatus(task, StatusInProgress, t1)
	require.Equal(t, t0, *task.StartedAt, "started_at is only set once")

	ApplyStatus(task, StatusReview, t1)
	ApplyStatus(task, StatusDone, t2)
	require.Equal(t, t2, *task.CompletedAt)

	ApplyStatus(task, StatusInProgress, t2)
	require.Nil(t, task.CompletedAt)
}

func TestCascadeFor(t *testing.T) {
	require.Equal(t, cascadeUnblock, cascadeFor(StatusReview, StatusDone))
	require.Equal(t, cascadeReblock, cascadeFor(StatusDone, StatusInProgress))
	require.Equal(t, cascadeNone, cascadeFor(StatusDone, StatusDone))
	require.Equal(t, cascadeNone, cascadeFor(StatusNotStarted, StatusInProgress))
	require.Equal(t, cascadeNone, cascadeFor(StatusBlocked, StatusAbandoned))
}

func TestCandidates(t *testing.T) {
	deps := []Dependent{
		{ID: "b", Status: StatusBlocked},
		{ID: "c", Status: StatusBlocked, IncompleteBlockers: []string{"x"}},
		{ID: "d", Status: StatusInProgress},
		{ID: "e", Status: StatusDone},
		{ID: "f", Status: StatusAbandoned},
		{ID: "g", Status: StatusReview},
		{ID: "h", Status: StatusNotStarted},
	}
	require.Equal(t, []string{"b"}, UnblockCandidates(deps))
	require.Equal(t, []string{"d", "g", "h"}, ReblockCandidates(deps))
}

func TestValidateCreateInput(t *testing.T) {
	p, c := "p1", "c1"
	cases := []struct {
		name string
		req  CreateRequest
		ok   bool
	}{
		{"minimal", CreateRequest{Title: "Fix it"}, true},
		{"blank title", CreateRequest{Title: "  "}, false},
		{"project and client", CreateRequest{Title: "x", ProjectID: &p, ClientID: &c}, false},
		{"site without client", CreateRequest{Title: "x", SiteID: &p}, false},
		{"priority range", CreateRequest{Title: "x", Priority: 9}, false},
		{"created done", CreateRequest{Title: "x", Status: StatusDone}, false},
		{"created blocked", CreateRequest{Title: "x", Status: StatusBlocked}, true},
		{"bad battery", CreateRequest{Title: "x", BatteryImpact: "meh"}, false},
		{"bad mystery", CreateRequest{Title: "x", MysteryFactor: "lots"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateCreateInput(tc.req)
			if tc.ok {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
			}
		})
	}
}

func TestCreateRequestRoundTrip(t *testing.T) {
	data, err := json.Marshal(CreateRequest{Title: "x"})
	require.NoError(t, err)
	require.NotContains(t, string(data), "mystery_factor")
	require.NotContains(t, string(data), "battery_impact")

	var req CreateRequest
	require.NoError(t, json.Unmarshal(data, &req))
	require.NoError(t, ValidateCreateInput(req))

	require.NoError(t, json.Unmarshal([]byte(`{"title":"x","mystery_factor":"","battery_impact":""}`), &req))
	require.NoError(t, ValidateCreateInput(req))
}
