package client

import "github.com/rpggio/agencyops/internal/errs"

var (
	// ErrClientNotFound indicates the client doesn't exist.
	ErrClientNotFound = errs.NotFound("client not found")
	// ErrInvalidInput indicates invalid client input.
	ErrInvalidInput = errs.Validation("invalid client input")
)
