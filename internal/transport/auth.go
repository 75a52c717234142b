package transport

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/rpggio/agencyops/internal/auth"
)

const actorKey = "actor"

// Verifier turns a bearer token into a caller identity.
type Verifier interface {
	Verify(token string) (auth.Context, error)
}

// isPublic reports paths that skip bearer authentication.
func isPublic(path string) bool {
	return path == "/healthz" || path == "/readyz" || path == "/metrics" ||
		strings.HasPrefix(path, "/api/v1/cron/")
}

// NewAuthMiddleware returns a Fiber middleware that validates the
// Authorization header. A nil verifier disables authentication and every
// request acts as the system administrator.
func NewAuthMiddleware(verifier Verifier, logger zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if isPublic(c.Path()) {
			return c.Next()
		}
		if verifier == nil {
			c.Locals(actorKey, auth.System)
			c.SetUserContext(auth.WithContext(c.UserContext(), auth.System))
			return c.Next()
		}

		header := c.Get(fiber.HeaderAuthorization)
		if header == "" {
			return problemResponse(c, fiber.StatusUnauthorized,
				"missing_auth", "Unauthorized",
				"Authorization header is required")
		}
		if !strings.HasPrefix(header, "Bearer ") {
			return problemResponse(c, fiber.StatusUnauthorized,
				"invalid_auth_scheme", "Unauthorized",
				"Authorization header must use Bearer scheme")
		}

		actor, err := verifier.Verify(strings.TrimSpace(strings.TrimPrefix(header, "Bearer ")))
		if err != nil {
			logger.Warn().
				Str("path", c.Path()).
				Str("method", c.Method()).
				Msg("unauthorized request: invalid token")
			return problemResponse(c, fiber.StatusUnauthorized,
				"invalid_token", "Unauthorized",
				"Invalid or expired token")
		}

		c.Locals(actorKey, actor)
		c.SetUserContext(auth.WithContext(c.UserContext(), actor))
		return c.Next()
	}
}

// requireCronSecret guards scheduled-job endpoints with a shared secret. An
// empty configured secret rejects every call.
func requireCronSecret(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		got := c.Get("X-Cron-Secret")
		if secret == "" || got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
			return problemResponse(c, fiber.StatusUnauthorized,
				"invalid_cron_secret", "Unauthorized",
				"Missing or invalid X-Cron-Secret header")
		}
		c.Locals(actorKey, auth.System)
		return c.Next()
	}
}

// actorFrom returns the identity attached by the auth middleware.
func actorFrom(c *fiber.Ctx) auth.Context {
	actor, _ := c.Locals(actorKey).(auth.Context)
	return actor
}
