package transport

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/rs/zerolog"

	"github.com/rpggio/agencyops/internal/errs"
)

// ProblemDetail follows RFC 7807 for error responses.
type ProblemDetail struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
}

// problemResponse returns an RFC 7807 Problem Detail error response.
func problemResponse(c *fiber.Ctx, status int, errType, title, detail string) error {
	return c.Status(status).JSON(ProblemDetail{
		Type:     errType,
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: c.Path(),
	}, "application/problem+json")
}

// statusFor maps an error kind to an HTTP status.
func statusFor(kind errs.Kind) int {
	switch kind {
	case errs.KindValidation:
		return fiber.StatusBadRequest
	case errs.KindNotFound:
		return fiber.StatusNotFound
	case errs.KindPermission:
		return fiber.StatusForbidden
	case errs.KindUnauthorized:
		return fiber.StatusUnauthorized
	case errs.KindConflict:
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

// customErrorHandler renders classified domain errors as problem documents.
// Unclassified errors are logged and reported without detail.
func customErrorHandler(logger zerolog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return problemResponse(c, fe.Code, "http_error", utils.StatusMessage(fe.Code), fe.Message)
		}

		kind := errs.KindOf(err)
		status := statusFor(kind)
		if kind == errs.KindInternal {
			logger.Error().
				Err(err).
				Str("path", c.Path()).
				Str("method", c.Method()).
				Str("request_id", requestID(c)).
				Msg("unhandled error")
			return problemResponse(c, status, kind.String(), "Internal Server Error", "An internal error occurred")
		}
		return problemResponse(c, status, kind.String(), utils.StatusMessage(status), err.Error())
	}
}
