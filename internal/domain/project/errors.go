package project

import "github.com/rpggio/agencyops/internal/errs"

var (
	// ErrProjectNotFound indicates the project doesn't exist.
	ErrProjectNotFound = errs.NotFound("project not found")
	// ErrInvalidInput indicates invalid project input.
	ErrInvalidInput = errs.Validation("invalid project input")
)
