// Package health reports readiness from the service's dependencies.
package health

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Status is the state of one dependency.
type Status string

const (
	StatusOK   Status = "ok"
	StatusDown Status = "down"
)

// Pinger is a dependency that can be probed, such as the database.
type Pinger interface {
	Check(ctx context.Context) error
}

// Checker probes registered dependencies for the readiness endpoint.
type Checker struct {
	mu      sync.RWMutex
	pingers map[string]Pinger
	timeout time.Duration
	logger  zerolog.Logger
}

// NewChecker creates a checker with a five second probe timeout.
func NewChecker(logger zerolog.Logger) *Checker {
	return &Checker{
		pingers: make(map[string]Pinger),
		timeout: 5 * time.Second,
		logger:  logger.With().Str("component", "health").Logger(),
	}
}

// RegisterPinger adds a dependency that is down whenever p.Check fails.
func (c *Checker) RegisterPinger(name string, p Pinger) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pingers[name] = p
}

// Ready probes every dependency concurrently. It reports false when any is
// down, along with the per-dependency results.
func (c *Checker) Ready(ctx context.Context) (bool, map[string]Status) {
	c.mu.RLock()
	pingers := make(map[string]Pinger, len(c.pingers))
	for name, p := range c.pingers {
		pingers[name] = p
	}
	c.mu.RUnlock()

	var (
		mu      sync.Mutex
		results = make(map[string]Status, len(pingers))
		ready   = true
		g       errgroup.Group
	)
	for name, p := range pingers {
		g.Go(func() error {
			probeCtx, cancel := context.WithTimeout(ctx, c.timeout)
			defer cancel()

			status := StatusOK
			if err := p.Check(probeCtx); err != nil {
				c.logger.Warn().Err(err).Str("check", name).Msg("health check failed")
				status = StatusDown
			}
			mu.Lock()
			results[name] = status
			if status == StatusDown {
				ready = false
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return ready, results
}
