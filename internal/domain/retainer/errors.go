package retainer

import "github.com/rpggio/agencyops/internal/errs"

var (
	// ErrInvalidMonth indicates a malformed month parameter.
	ErrInvalidMonth = errs.Validation("invalid month format, use YYYY-MM")
	// ErrClientNotFound indicates the client doesn't exist or was deleted.
	ErrClientNotFound = errs.NotFound("client not found")
)
