package activity

import "github.com/rpggio/agencyops/internal/errs"

// ErrInvalidInput indicates an invalid activity entry.
var ErrInvalidInput = errs.Validation("invalid activity entry")
