package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"

	"github.com/rpggio/agencyops/internal/auth"
)

func trafficLoggingMiddleware(logger zerolog.Logger, direction string) sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			if logger.GetLevel() > zerolog.DebugLevel {
				return next(ctx, method, req)
			}

			actor, _ := auth.FromContext(ctx)
			evt := logger.With().
				Str("direction", direction).
				Str("method", method).
				Str("session_id", safeSessionID(req)).
				Str("user_id", actor.UserID).
				Logger()
			evt.Debug().Str("stage", "request").Str("params", formatPayload(safeParams(req))).Msg("mcp traffic")

			result, err := next(ctx, method, req)
			if !strings.HasPrefix(method, "notifications/") {
				evt.Debug().
					Str("stage", "response").
					Str("result", formatPayload(result)).
					Err(err).
					Msg("mcp traffic")
			}

			return result, err
		}
	}
}

func safeSessionID(req sdkmcp.Request) (id string) {
	if req == nil {
		return ""
	}
	defer func() {
		if recover() != nil {
			id = ""
		}
	}()
	session := req.GetSession()
	if session == nil {
		return ""
	}
	return session.ID()
}

func safeParams(req sdkmcp.Request) (params any) {
	if req == nil {
		return nil
	}
	defer func() {
		if recover() != nil {
			params = nil
		}
	}()
	return req.GetParams()
}

func formatPayload(payload any) string {
	if payload == nil {
		return "<nil>"
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Sprintf("%T", payload)
	}
	return string(data)
}
