package mcp

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

const serverInstructions = `agencyops tracks agency tasks, their dependencies and client retainer hours.

- Tasks move through a fixed workflow. Read agencyops://docs/task-workflow before changing statuses.
- Completing a task unblocks dependents whose blockers are all done. Reopening a done task
  reblocks its active dependents. update_task_status reports both.
- Retainer usage counts billable logged time plus the estimates of open tasks due this month.
- Months are YYYY-MM; omit them for the current month.
`

type docResource struct {
	URI         string
	Name        string
	Title       string
	Description string
	Content     string
}

var docResources = []docResource{
	{
		URI:         "agencyops://docs/task-workflow",
		Name:        "task_workflow",
		Title:       "Task status workflow",
		Description: "Allowed status transitions and how dependencies cascade.",
		Content: `# Task status workflow

| From        | Allowed next statuses                          |
|-------------|------------------------------------------------|
| not_started | in_progress, blocked, abandoned                |
| in_progress | review, not_started, blocked, abandoned        |
| review      | done, in_progress, abandoned                   |
| done        | in_progress                                    |
| blocked     | not_started, in_progress, abandoned            |
| abandoned   | not_started                                    |

Setting a task to its current status is a no-op.

Side effects:
- Entering in_progress records started_at once and marks the task as focus.
- Entering done records completed_at; leaving done clears it.

## Dependencies

A task may be blocked by other tasks. Edges that would form a cycle are rejected.

- When a blocker becomes done, every blocked dependent whose blockers are all done
  moves to not_started.
- When a done blocker is reopened, dependents in not_started, in_progress or review
  move to blocked. Done, abandoned and already blocked dependents are left alone.
- Adding a dependency on an incomplete blocker blocks an active task.
- A blocked task cannot move to not_started or in_progress while any blocker is not done.
- Removing the last incomplete blocker of a blocked task returns it to not_started.

Deleted tasks never hold a dependent blocked.
`,
	},
}

func registerDocResources(server *sdkmcp.Server) {
	for _, doc := range docResources {
		server.AddResource(&sdkmcp.Resource{
			URI:         doc.URI,
			Name:        doc.Name,
			Title:       doc.Title,
			Description: doc.Description,
			MIMEType:    "text/markdown",
			Size:        int64(len(doc.Content)),
		}, func(_ context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
			uri := doc.URI
			if req != nil && req.Params != nil && req.Params.URI != "" {
				uri = req.Params.URI
			}
			return &sdkmcp.ReadResourceResult{
				Contents: []*sdkmcp.ResourceContents{{
					URI:      uri,
					MIMEType: "text/markdown",
					Text:     doc.Content,
				}},
			}, nil
		})
	}
}
