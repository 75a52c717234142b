package user

import "github.com/rpggio/agencyops/internal/errs"

var (
	// ErrUserNotFound indicates the user doesn't exist.
	ErrUserNotFound = errs.NotFound("user not found")
	// ErrInvalidInput indicates invalid user input.
	ErrInvalidInput = errs.Validation("invalid user input")
	// ErrEmailTaken indicates another user already has the email.
	ErrEmailTaken = errs.Conflict("email already in use")
	// ErrInactive indicates a deactivated user.
	ErrInactive = errs.Unauthorized("user is inactive")
)
