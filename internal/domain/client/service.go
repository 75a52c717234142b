package client

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rpggio/agencyops/internal/auth"
	"github.com/rpggio/agencyops/internal/repository"
)

// Service handles client operations.
type Service struct {
	repo   Repository
	logger zerolog.Logger
}

// NewService creates a new client service.
func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, logger: logger.With().Str("component", "client").Logger()}
}

// CreateRequest defines client creation inputs.
type CreateRequest struct {
	Name          string   `json:"name"`
	RetainerHours *float64 `json:"retainer_hours"`
	HourlyRate    *float64 `json:"hourly_rate"`
}

// UpdateRequest changes the non-nil fields. A zero retainer or rate clears it.
type UpdateRequest struct {
	Name          *string  `json:"name"`
	Status        *Status  `json:"status"`
	RetainerHours *float64 `json:"retainer_hours"`
	HourlyRate    *float64 `json:"hourly_rate"`
}

// SiteRequest defines site creation inputs.
type SiteRequest struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Create creates a new client.
func (s *Service) Create(ctx context.Context, actor auth.Context, req CreateRequest) (*Client, error) {
	if err := actor.Require(auth.RoleAdmin, auth.RolePM); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if err := validateAmounts(req.RetainerHours, req.HourlyRate); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	c := &Client{
		ID:            uuid.NewString(),
		Name:          strings.TrimSpace(req.Name),
		Status:        StatusActive,
		RetainerHours: positive(req.RetainerHours),
		HourlyRate:    positive(req.HourlyRate),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("creating client: %w", err)
	}
	return c, nil
}

// Get fetches a client by ID.
func (s *Service) Get(ctx context.Context, actor auth.Context, id string) (*Client, error) {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrClientNotFound
		}
		return nil, fmt.Errorf("getting client: %w", err)
	}
	return c, nil
}

// List returns live clients.
func (s *Service) List(ctx context.Context, actor auth.Context, opts ListOptions) ([]Client, error) {
	return s.repo.List(ctx, opts)
}

// Update applies a partial update.
func (s *Service) Update(ctx context.Context, actor auth.Context, id string, req UpdateRequest) (*Client, error) {
	if err := actor.Require(auth.RoleAdmin, auth.RolePM); err != nil {
		return nil, err
	}
	if err := validateAmounts(req.RetainerHours, req.HourlyRate); err != nil {
		return nil, err
	}
	c, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		if strings.TrimSpace(*req.Name) == "" {
			return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
		}
		c.Name = strings.TrimSpace(*req.Name)
	}
	if req.Status != nil {
		st, err := ParseStatus(string(*req.Status))
		if err != nil {
			return nil, err
		}
		c.Status = st
	}
	if req.RetainerHours != nil {
		c.RetainerHours = positive(req.RetainerHours)
	}
	if req.HourlyRate != nil {
		c.HourlyRate = positive(req.HourlyRate)
	}
	c.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, c); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrClientNotFound
		}
		return nil, fmt.Errorf("updating client: %w", err)
	}
	s.logger.Info().Str("client_id", c.ID).Msg("client updated")
	return c, nil
}

// Delete soft-deletes a client.
func (s *Service) Delete(ctx context.Context, actor auth.Context, id string) error {
	if err := actor.Require(auth.RoleAdmin); err != nil {
		return err
	}
	if err := s.repo.SoftDelete(ctx, id, time.Now().UTC()); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrClientNotFound
		}
		return fmt.Errorf("deleting client: %w", err)
	}
	return nil
}

// CreateSite adds a site to a live client.
func (s *Service) CreateSite(ctx context.Context, actor auth.Context, clientID string, req SiteRequest) (*Site, error) {
	if err := actor.Require(auth.RoleAdmin, auth.RolePM); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Name) == "" {
		return nil, fmt.Errorf("%w: site name is required", ErrInvalidInput)
	}
	if _, err := s.Get(ctx, actor, clientID); err != nil {
		return nil, err
	}
	site := &Site{
		ID:        uuid.NewString(),
		ClientID:  clientID,
		Name:      strings.TrimSpace(req.Name),
		URL:       strings.TrimSpace(req.URL),
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.CreateSite(ctx, site); err != nil {
		return nil, fmt.Errorf("creating site: %w", err)
	}
	return site, nil
}

// Sites lists the sites of a live client.
func (s *Service) Sites(ctx context.Context, actor auth.Context, clientID string) ([]Site, error) {
	if _, err := s.Get(ctx, actor, clientID); err != nil {
		return nil, err
	}
	return s.repo.ListSites(ctx, clientID)
}

func validateAmounts(values ...*float64) error {
	for _, v := range values {
		if v != nil && *v < 0 {
			return fmt.Errorf("%w: amounts must not be negative", ErrInvalidInput)
		}
	}
	return nil
}

func positive(v *float64) *float64 {
	if v == nil || *v <= 0 {
		return nil
	}
	out := *v
	return &out
}
