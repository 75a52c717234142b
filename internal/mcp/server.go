// Package mcp exposes task and retainer operations as Model Context Protocol
// tools.
package mcp

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"

	"github.com/rpggio/agencyops/internal/auth"
	"github.com/rpggio/agencyops/internal/domain/retainer"
	"github.com/rpggio/agencyops/internal/domain/task"
	"github.com/rpggio/agencyops/internal/domain/timeentry"
)

// TaskService defines task operations needed by MCP.
type TaskService interface {
	Get(ctx context.Context, actor auth.Context, id string) (*task.Task, error)
	UpdateStatus(ctx context.Context, actor auth.Context, id string, to task.Status) (*task.Task, task.CascadeResult, error)
	AddDependency(ctx context.Context, actor auth.Context, taskID, blockerID string) (*task.Task, error)
	RemoveDependency(ctx context.Context, actor auth.Context, taskID, blockerID string) (*task.Task, error)
}

// RetainerService defines retainer operations needed by MCP.
type RetainerService interface {
	Usage(ctx context.Context, actor auth.Context, clientID, month string) (*retainer.Usage, error)
	Statuses(ctx context.Context, actor auth.Context, month string) (*retainer.Report, error)
}

// TimeEntryService defines time tracking operations needed by MCP.
type TimeEntryService interface {
	Create(ctx context.Context, actor auth.Context, req timeentry.CreateRequest) (*timeentry.Entry, error)
}

// Services contains all domain services needed by MCP.
type Services struct {
	Tasks       TaskService
	Retainers   RetainerService
	TimeEntries TimeEntryService
}

// Recorder receives tool call counters.
type Recorder interface {
	RecordToolCall(tool string, ok bool)
}

// Config contains server configuration.
type Config struct {
	Services Services
	// Verifier authenticates bearer tokens on the HTTP transport. When nil,
	// every call runs as Identity.
	Verifier TokenVerifier
	Identity auth.Context
	Recorder Recorder
	Logger   zerolog.Logger
	Version  string
}

// NewServer creates and configures an MCP server with all tools and middleware.
func NewServer(cfg Config) *sdkmcp.Server {
	version := cfg.Version
	if version == "" {
		version = "dev"
	}
	server := sdkmcp.NewServer(&sdkmcp.Implementation{
		Name:    "agencyops",
		Version: version,
	}, &sdkmcp.ServerOptions{
		Instructions: serverInstructions,
	})

	registerDocResources(server)

	if cfg.Verifier != nil {
		server.AddReceivingMiddleware(authMiddleware(cfg.Verifier))
	} else {
		server.AddReceivingMiddleware(identityMiddleware(cfg.Identity))
	}
	server.AddReceivingMiddleware(trafficLoggingMiddleware(cfg.Logger, "inbound"))
	server.AddSendingMiddleware(trafficLoggingMiddleware(cfg.Logger, "outbound"))

	registerTools(server, &toolset{
		svc:      cfg.Services,
		recorder: cfg.Recorder,
		logger:   cfg.Logger.With().Str("component", "mcp").Logger(),
	})

	return server
}
