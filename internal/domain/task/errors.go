package task

import "github.com/rpggio/agencyops/internal/errs"

var (
	// ErrTaskNotFound indicates the task doesn't exist or isn't visible to the caller.
	ErrTaskNotFound = errs.NotFound("task not found")
	// ErrBlockerNotFound indicates the blocking task doesn't exist.
	ErrBlockerNotFound = errs.NotFound("blocking task not found")
	// ErrDependencyNotFound indicates the dependency edge doesn't exist.
	ErrDependencyNotFound = errs.NotFound("dependency not found")
	// ErrInvalidTransition indicates a status change outside the allowed edges.
	ErrInvalidTransition = errs.Validation("invalid status transition")
	// ErrInvalidStatus indicates an unknown status name.
	ErrInvalidStatus = errs.Validation("invalid task status")
	// ErrInvalidInput indicates invalid task input.
	ErrInvalidInput = errs.Validation("invalid task input")
	// ErrSelfDependency indicates a task cannot block itself.
	ErrSelfDependency = errs.Validation("a task cannot depend on itself")
	// ErrCircularDependency indicates the new edge would close a cycle.
	ErrCircularDependency = errs.Validation("circular dependency")
	// ErrDependencyExists indicates the edge is already recorded.
	ErrDependencyExists = errs.Conflict("dependency already exists")
	// ErrNoChanges indicates an update request without any fields.
	ErrNoChanges = errs.Validation("no fields to update")
)
