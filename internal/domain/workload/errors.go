package workload

import "github.com/rpggio/agencyops/internal/errs"

var (
	ErrInvalidGroupBy = errs.Validation("group_by must be one of day, week, project, client, user, all")
	ErrInvalidRange   = errs.Validation("start must not be after end")
	ErrInvalidPeriod  = errs.Validation("invalid report period")
)
