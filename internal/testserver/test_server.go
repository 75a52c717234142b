// Package testserver runs the HTTP API over an in-memory database for tests.
package testserver

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/rpggio/agencyops/internal/app"
	"github.com/rpggio/agencyops/internal/auth"
	"github.com/rpggio/agencyops/internal/domain/user"
	"github.com/rpggio/agencyops/internal/health"
	"github.com/rpggio/agencyops/internal/metrics"
	"github.com/rpggio/agencyops/internal/sqlite"
	"github.com/rpggio/agencyops/internal/transport"
)

// Secret signs test tokens.
const Secret = "test-secret-0123456789"

// CronSecret guards the cron endpoints of test servers.
const CronSecret = "cron-secret"

// TestServer is an API server with its services and database.
type TestServer struct {
	t      *testing.T
	App    *app.App
	Server *transport.Server
	Issuer *auth.Issuer
}

// Option tunes the services of a test server.
type Option func(*app.Options)

// WithClock fixes the time seen by the services.
func WithClock(now time.Time) Option {
	return func(o *app.Options) { o.Clock = func() time.Time { return now } }
}

// New starts a test server with bearer authentication enabled.
func New(t *testing.T, opts ...Option) *TestServer {
	t.Helper()

	db, err := sqlite.New(sqlite.MemoryPath, sqlite.Options{})
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())
	t.Cleanup(func() { _ = db.Close() })

	issuer, err := auth.NewIssuer(Secret, time.Hour)
	require.NoError(t, err)

	logger := zerolog.Nop()
	appOpts := app.Options{Metrics: metrics.New()}
	for _, opt := range opts {
		opt(&appOpts)
	}
	a := app.New(db, appOpts, logger)

	checker := health.NewChecker(logger)
	checker.RegisterPinger("database", db)

	server := transport.NewServer(transport.ServerConfig{
		CronSecret: CronSecret,
		Verifier:   issuer,
	}, a.HTTPServices(), checker, appOpts.Metrics, logger)

	return &TestServer{t: t, App: a, Server: server, Issuer: issuer}
}

// CreateUser adds a user directly through the service.
func (ts *TestServer) CreateUser(name, email string, role auth.Role) *user.User {
	ts.t.Helper()
	u, err := ts.App.Users.Create(context.Background(), auth.System, user.CreateRequest{
		Name:  name,
		Email: email,
		Role:  role,
	})
	require.NoError(ts.t, err)
	return u
}

// Token issues a bearer token for u.
func (ts *TestServer) Token(u *user.User) string {
	ts.t.Helper()
	token, err := ts.Issuer.Issue(auth.Context{UserID: u.ID, Role: u.Role})
	require.NoError(ts.t, err)
	return token
}

// Do sends a request with an optional JSON body and bearer token.
func (ts *TestServer) Do(method, path, token string, body any) *http.Response {
	ts.t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(ts.t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := ts.Server.App().Test(req, -1)
	require.NoError(ts.t, err)
	return resp
}

// DoJSON sends a request, checks the status and decodes the body into out.
func (ts *TestServer) DoJSON(method, path, token string, body any, wantStatus int, out any) {
	ts.t.Helper()
	resp := ts.Do(method, path, token, body)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(ts.t, err)
	require.Equal(ts.t, wantStatus, resp.StatusCode, string(data))
	if out != nil {
		require.NoError(ts.t, json.Unmarshal(data, out))
	}
}
