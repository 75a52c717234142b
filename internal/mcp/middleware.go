package mcp

import (
	"context"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/rpggio/agencyops/internal/auth"
	"github.com/rpggio/agencyops/internal/errs"
)

// TokenVerifier turns a bearer token into a caller identity.
type TokenVerifier interface {
	Verify(token string) (auth.Context, error)
}

// authMiddleware implements bearer token authentication as MCP middleware.
func authMiddleware(verifier TokenVerifier) sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			// Protocol handshakes carry no identity.
			if method == "initialize" || method == "ping" || strings.HasPrefix(method, "notifications/") {
				return next(ctx, method, req)
			}

			extra := req.GetExtra()
			if extra == nil || extra.Header == nil {
				return nil, errs.Unauthorized("unauthorized: missing headers")
			}

			header := extra.Header.Get("Authorization")
			token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
			if token == "" || token == header {
				return nil, errs.Unauthorized("unauthorized: missing bearer token")
			}

			actor, err := verifier.Verify(token)
			if err != nil {
				return nil, err
			}

			return next(auth.WithContext(ctx, actor), method, req)
		}
	}
}

// identityMiddleware runs every call as a fixed identity, for stdio use.
func identityMiddleware(actor auth.Context) sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			return next(auth.WithContext(ctx, actor), method, req)
		}
	}
}

func actorFrom(ctx context.Context) (auth.Context, error) {
	actor, ok := auth.FromContext(ctx)
	if !ok {
		return auth.Context{}, errs.Unauthorized("no caller identity")
	}
	return actor, nil
}
