package mcp

import (
	"errors"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/rpggio/agencyops/internal/domain/retainer"
	"github.com/rpggio/agencyops/internal/domain/task"
	"github.com/rpggio/agencyops/internal/errs"
)

// APIError is the body of a failed tool call.
type APIError struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	RecoveryHint string `json:"recovery_hint,omitempty"`
}

func (e *APIError) Error() string {
	return e.Code + ": " + e.Message
}

// MapError classifies an error for tool results. Internal errors are reported
// without detail.
func MapError(err error) *APIError {
	if err == nil {
		return nil
	}
	kind := errs.KindOf(err)
	out := &APIError{Code: kind.String(), Message: err.Error()}
	switch {
	case kind == errs.KindInternal:
		out.Message = "an internal error occurred"
	case errors.Is(err, task.ErrInvalidTransition):
		out.RecoveryHint = "Read agencyops://docs/task-workflow for the allowed transitions"
	case errors.Is(err, task.ErrCircularDependency):
		out.RecoveryHint = "Remove the reverse dependency first"
	case errors.Is(err, retainer.ErrInvalidMonth):
		out.RecoveryHint = "Pass month as YYYY-MM or omit it for the current month"
	}
	return out
}

func errorResult(err error) *sdkmcp.CallToolResult {
	apiErr := MapError(err)
	return &sdkmcp.CallToolResult{
		IsError: true,
		Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: formatPayload(apiErr)}},
	}
}
