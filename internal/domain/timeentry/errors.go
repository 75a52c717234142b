package timeentry

import "github.com/rpggio/agencyops/internal/errs"

var (
	// ErrEntryNotFound indicates the time entry doesn't exist.
	ErrEntryNotFound = errs.NotFound("time entry not found")
	// ErrNotOwner indicates the caller doesn't own the entry.
	ErrNotOwner = errs.Permission("not authorized to modify this time entry")
	// ErrNotRunning indicates a stop on a stopped timer.
	ErrNotRunning = errs.Validation("timer is not running")
	// ErrInvalidInput indicates invalid time entry input.
	ErrInvalidInput = errs.Validation("invalid time entry input")
	// ErrTaskNotFound indicates the referenced task doesn't exist.
	ErrTaskNotFound = errs.NotFound("task not found")
)
