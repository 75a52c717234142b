package retainer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/rpggio/agencyops/internal/auth"
	"github.com/rpggio/agencyops/internal/domain/client"
	"github.com/rpggio/agencyops/internal/repository"
)

// DefaultThresholds are the usage percentages that raise an alert.
var DefaultThresholds = []int{80, 100}

const defaultConcurrency = 4

// Service computes retainer usage and raises alerts.
type Service struct {
	repo        Repository
	clients     Clients
	notifier    Notifier
	recorder    Recorder
	loc         *time.Location
	concurrency int
	thresholds  []int
	logger      zerolog.Logger
	now         func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithLocation sets the zone calendar months are cut in.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) { s.loc = loc }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithNotifier sets where alerts are sent.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithRecorder attaches a metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

// WithConcurrency bounds how many clients are computed at once.
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithThresholds replaces the alert thresholds. Non-positive values are
// ignored; an empty result keeps the defaults.
func WithThresholds(thresholds ...int) Option {
	return func(s *Service) {
		var keep []int
		for _, t := range thresholds {
			if t > 0 {
				keep = append(keep, t)
			}
		}
		if len(keep) > 0 {
			s.thresholds = descending(keep)
		}
	}
}

func descending(values []int) []int {
	out := append([]int(nil), values...)
	sort.Sort(sort.Reverse(sort.IntSlice(out)))
	return out
}

// NewService creates a new retainer service.
func NewService(repo Repository, clients Clients, logger zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		repo:        repo,
		clients:     clients,
		loc:         time.UTC,
		concurrency: defaultConcurrency,
		thresholds:  descending(DefaultThresholds),
		logger:      logger.With().Str("component", "retainer").Logger(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Period resolves a YYYY-MM month, or the current month when empty.
func (s *Service) Period(month string) (Period, error) {
	if month == "" {
		return MonthOf(s.now(), s.loc), nil
	}
	return ParseMonth(month, s.loc)
}

// Usage computes the retainer usage of a client for a month.
func (s *Service) Usage(ctx context.Context, actor auth.Context, clientID, month string) (*Usage, error) {
	if err := actor.Require(auth.RoleAdmin, auth.RolePM); err != nil {
		return nil, err
	}
	p, err := s.Period(month)
	if err != nil {
		return nil, err
	}
	c, err := s.clients.Get(ctx, clientID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrClientNotFound
		}
		return nil, fmt.Errorf("getting client: %w", err)
	}
	u, err := s.usage(ctx, c, p)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Service) usage(ctx context.Context, c *client.Client, p Period) (Usage, error) {
	hours := 0.0
	if c.RetainerHours != nil && *c.RetainerHours > 0 {
		hours = *c.RetainerHours
	}
	if p.Start.After(s.now()) {
		return Empty(p, hours), nil
	}

	in := Input{Period: p, RetainerHours: hours}
	var err error
	if in.Logged, err = s.repo.LoggedEntries(ctx, c.ID, p.Start.UTC(), p.End.UTC()); err != nil {
		return Usage{}, fmt.Errorf("loading time entries: %w", err)
	}
	if in.Scheduled, err = s.repo.ScheduledTasks(ctx, c.ID, p.Start.UTC(), p.End.UTC()); err != nil {
		return Usage{}, fmt.Errorf("loading scheduled tasks: %w", err)
	}
	if in.Unscheduled, err = s.repo.UnscheduledTasks(ctx, c.ID); err != nil {
		return Usage{}, fmt.Errorf("loading unscheduled tasks: %w", err)
	}
	return Calculate(in), nil
}

// Statuses reports every active retainer client for a month, most used first.
func (s *Service) Statuses(ctx context.Context, actor auth.Context, month string) (*Report, error) {
	if err := actor.Require(auth.RoleAdmin, auth.RolePM); err != nil {
		return nil, err
	}
	p, err := s.Period(month)
	if err != nil {
		return nil, err
	}
	rows, err := s.statuses(ctx, p)
	if err != nil {
		return nil, err
	}

	r := &Report{Month: p.Month, Period: p, Retainers: rows}
	for _, row := range rows {
		r.Summary.Total++
		switch row.Status {
		case LevelExceeded:
			r.Summary.Exceeded++
		case LevelCritical:
			r.Summary.Critical++
		case LevelWarning:
			r.Summary.Warning++
		default:
			r.Summary.Healthy++
		}
	}
	return r, nil
}

func (s *Service) statuses(ctx context.Context, p Period) ([]Status, error) {
	clients, err := s.clients.List(ctx, client.ListOptions{Status: client.StatusActive, WithRetainer: true})
	if err != nil {
		return nil, fmt.Errorf("listing retainer clients: %w", err)
	}

	rows := make([]Status, len(clients))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i := range clients {
		c := &clients[i]
		g.Go(func() error {
			u, err := s.usage(gctx, c, p)
			if err != nil {
				return fmt.Errorf("client %s: %w", c.ID, err)
			}
			rows[i] = statusOf(c, p, u)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].percent > rows[j].percent })
	return rows, nil
}

func statusOf(c *client.Client, p Period, u Usage) Status {
	allocated := u.RetainerHours
	used := float64(u.UsedMinutes) / 60
	percent := 0.0
	if allocated > 0 {
		percent = used / allocated * 100
	}
	return Status{
		ClientID:       c.ID,
		ClientName:     c.Name,
		PeriodStart:    p.Start,
		PeriodEnd:      p.End,
		AllocatedHours: allocated,
		UsedHours:      round2(used),
		RemainingHours: round2(allocated - used),
		PercentUsed:    int(math.Round(percent)),
		Status:         LevelFor(percent),
		percent:        percent,
	}
}

// CheckAlerts raises, at most once per client, month and threshold, the
// highest threshold each client has crossed.
func (s *Service) CheckAlerts(ctx context.Context, actor auth.Context, month string) (*AlertRun, error) {
	if err := actor.Require(auth.RoleAdmin); err != nil {
		return nil, err
	}
	p, err := s.Period(month)
	if err != nil {
		return nil, err
	}
	rows, err := s.statuses(ctx, p)
	if err != nil {
		return nil, err
	}

	run := &AlertRun{Month: p.Month, ClientsChecked: len(rows), Alerts: []Alert{}}
	for _, row := range rows {
		threshold := crossed(s.thresholds, row.percent)
		if threshold == 0 {
			continue
		}
		alert := Alert{
			ClientID:       row.ClientID,
			ClientName:     row.ClientName,
			Month:          p.Month,
			Threshold:      threshold,
			UsedHours:      row.UsedHours,
			AllocatedHours: row.AllocatedHours,
			PercentUsed:    row.PercentUsed,
		}
		sent, err := s.raise(ctx, alert)
		if err != nil {
			return nil, err
		}
		if sent {
			run.AlertsSent++
			run.Alerts = append(run.Alerts, alert)
		}
	}

	s.logger.Info().
		Str("month", p.Month).
		Int("clients_checked", run.ClientsChecked).
		Int("alerts_sent", run.AlertsSent).
		Msg("retainer alerts checked")
	return run, nil
}

func (s *Service) raise(ctx context.Context, a Alert) (bool, error) {
	claimed, err := s.repo.ClaimAlert(ctx, a.ClientID, a.Month, a.Threshold, s.now().UTC())
	if err != nil {
		return false, fmt.Errorf("recording alert: %w", err)
	}
	if !claimed {
		return false, nil
	}
	if s.notifier != nil {
		if err := s.notifier.NotifyRetainerAlert(ctx, a); err != nil {
			s.logger.Error().Err(err).Str("client_id", a.ClientID).Int("threshold", a.Threshold).Msg("failed to send retainer alert")
			if rerr := s.repo.ReleaseAlert(ctx, a.ClientID, a.Month, a.Threshold); rerr != nil {
				s.logger.Error().Err(rerr).Str("client_id", a.ClientID).Msg("failed to release retainer alert")
			}
			return false, nil
		}
	}
	if s.recorder != nil {
		s.recorder.RecordAlert(a.Threshold)
	}
	return true, nil
}

// crossed returns the highest threshold reached. thresholds is sorted
// highest first.
func crossed(thresholds []int, percent float64) int {
	for _, t := range thresholds {
		if percent >= float64(t) {
			return t
		}
	}
	return 0
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
