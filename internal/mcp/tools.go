package mcp

import (
	"context"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"

	"github.com/rpggio/agencyops/internal/auth"
	"github.com/rpggio/agencyops/internal/domain/task"
	"github.com/rpggio/agencyops/internal/domain/timeentry"
	"github.com/rpggio/agencyops/internal/errs"
)

type toolset struct {
	svc      Services
	recorder Recorder
	logger   zerolog.Logger
	now      func() time.Time
}

type taskInput struct {
	TaskID string `json:"task_id" jsonschema:"the task id"`
}

type statusInput struct {
	TaskID string `json:"task_id" jsonschema:"the task id"`
	Status string `json:"status" jsonschema:"target status: not_started, in_progress, review, done, blocked or abandoned"`
}

type dependencyInput struct {
	TaskID    string `json:"task_id" jsonschema:"the dependent task"`
	BlockerID string `json:"blocker_id" jsonschema:"the task that must be done first"`
}

type usageInput struct {
	ClientID string `json:"client_id" jsonschema:"the client id"`
	Month    string `json:"month,omitempty" jsonschema:"YYYY-MM, defaults to the current month"`
}

type monthInput struct {
	Month string `json:"month,omitempty" jsonschema:"YYYY-MM, defaults to the current month"`
}

type logTimeInput struct {
	TaskID      string `json:"task_id" jsonschema:"the task worked on"`
	Minutes     int    `json:"minutes" jsonschema:"minutes spent, positive"`
	Description string `json:"description,omitempty" jsonschema:"what was done"`
	StartedAt   string `json:"started_at,omitempty" jsonschema:"RFC 3339 start time, defaults to now minus minutes"`
	Billable    *bool  `json:"billable,omitempty" jsonschema:"defaults to true"`
}

// statusChange is the result of a status update.
type statusChange struct {
	Task    *task.Task         `json:"task"`
	Cascade task.CascadeResult `json:"cascade"`
}

func registerTools(server *sdkmcp.Server, ts *toolset) {
	if ts.now == nil {
		ts.now = func() time.Time { return time.Now().UTC() }
	}
	readOnly := &sdkmcp.ToolAnnotations{ReadOnlyHint: true}

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "get_task",
		Description: "Get a task with its status, estimate and dependencies",
		Annotations: readOnly,
	}, handle(ts, "get_task", ts.getTask))

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name: "update_task_status",
		Description: "Move a task to a new status. Completing or reopening a task " +
			"unblocks or reblocks its dependents; the result lists them",
	}, handle(ts, "update_task_status", ts.updateTaskStatus))

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "add_task_dependency",
		Description: "Record that a task is blocked by another task. Cycles are rejected",
	}, handle(ts, "add_task_dependency", ts.addDependency))

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "remove_task_dependency",
		Description: "Remove a blocked-by edge. A blocked task with no remaining blockers returns to not_started",
	}, handle(ts, "remove_task_dependency", ts.removeDependency))

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "get_retainer_usage",
		Description: "Realized and projected retainer minutes for one client and month",
		Annotations: readOnly,
	}, handle(ts, "get_retainer_usage", ts.retainerUsage))

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "list_retainer_statuses",
		Description: "Usage level of every active retainer client for a month",
		Annotations: readOnly,
	}, handle(ts, "list_retainer_statuses", ts.retainerStatuses))

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "log_time",
		Description: "Log minutes worked on a task for the caller",
	}, handle(ts, "log_time", ts.logTime))
}

// handle adapts a domain call to a tool handler: it resolves the caller,
// records the outcome and renders the value or error as text content.
func handle[In any](ts *toolset, name string, fn func(context.Context, auth.Context, In) (any, error)) sdkmcp.ToolHandlerFor[In, any] {
	return func(ctx context.Context, _ *sdkmcp.CallToolRequest, in In) (*sdkmcp.CallToolResult, any, error) {
		actor, err := actorFrom(ctx)
		var out any
		if err == nil {
			out, err = fn(ctx, actor, in)
		}
		if ts.recorder != nil {
			ts.recorder.RecordToolCall(name, err == nil)
		}
		if err != nil {
			if errs.KindOf(err) == errs.KindInternal {
				ts.logger.Error().Err(err).Str("tool", name).Msg("tool call failed")
			}
			return errorResult(err), nil, nil
		}
		return &sdkmcp.CallToolResult{
			Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: formatPayload(out)}},
		}, nil, nil
	}
}

func (ts *toolset) getTask(ctx context.Context, actor auth.Context, in taskInput) (any, error) {
	return ts.svc.Tasks.Get(ctx, actor, in.TaskID)
}

func (ts *toolset) updateTaskStatus(ctx context.Context, actor auth.Context, in statusInput) (any, error) {
	to, err := task.ParseStatus(in.Status)
	if err != nil {
		return nil, err
	}
	t, cascade, err := ts.svc.Tasks.UpdateStatus(ctx, actor, in.TaskID, to)
	if err != nil {
		return nil, err
	}
	return statusChange{Task: t, Cascade: cascade}, nil
}

func (ts *toolset) addDependency(ctx context.Context, actor auth.Context, in dependencyInput) (any, error) {
	return ts.svc.Tasks.AddDependency(ctx, actor, in.TaskID, in.BlockerID)
}

func (ts *toolset) removeDependency(ctx context.Context, actor auth.Context, in dependencyInput) (any, error) {
	return ts.svc.Tasks.RemoveDependency(ctx, actor, in.TaskID, in.BlockerID)
}

func (ts *toolset) retainerUsage(ctx context.Context, actor auth.Context, in usageInput) (any, error) {
	return ts.svc.Retainers.Usage(ctx, actor, in.ClientID, in.Month)
}

func (ts *toolset) retainerStatuses(ctx context.Context, actor auth.Context, in monthInput) (any, error) {
	return ts.svc.Retainers.Statuses(ctx, actor, in.Month)
}

func (ts *toolset) logTime(ctx context.Context, actor auth.Context, in logTimeInput) (any, error) {
	if in.Minutes <= 0 {
		return nil, errs.Validation("minutes must be positive")
	}
	ended := ts.now()
	started := ended.Add(-time.Duration(in.Minutes) * time.Minute)
	if in.StartedAt != "" {
		t, err := time.Parse(time.RFC3339, in.StartedAt)
		if err != nil {
			return nil, errs.Validation("started_at must be RFC 3339")
		}
		started = t.UTC()
		ended = started.Add(time.Duration(in.Minutes) * time.Minute)
	}
	taskID := in.TaskID
	return ts.svc.TimeEntries.Create(ctx, actor, timeentry.CreateRequest{
		TaskID:      &taskID,
		Description: in.Description,
		StartedAt:   started,
		EndedAt:     &ended,
		Duration:    in.Minutes,
		IsBillable:  in.Billable,
	})
}
