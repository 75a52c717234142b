package user

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rpggio/agencyops/internal/auth"
	"github.com/rpggio/agencyops/internal/repository"
)

// Service handles user operations.
type Service struct {
	repo   Repository
	logger zerolog.Logger
}

// NewService creates a new user service.
func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, logger: logger.With().Str("component", "user").Logger()}
}

// CreateRequest defines user creation inputs.
type CreateRequest struct {
	Name  string    `json:"name"`
	Email string    `json:"email"`
	Role  auth.Role `json:"role"`
	// TargetHoursPerWeek defaults to DefaultTargetHours when unset.
	TargetHoursPerWeek *float64 `json:"target_hours_per_week,omitempty"`
}

// DefaultTargetHours is the weekly target of a user created without one.
const DefaultTargetHours = 40.0

// Create adds a user. Only admins may create users.
func (s *Service) Create(ctx context.Context, actor auth.Context, req CreateRequest) (*User, error) {
	if err := actor.Require(auth.RoleAdmin); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	addr, err := mail.ParseAddress(req.Email)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid email", ErrInvalidInput)
	}
	role, err := auth.ParseRole(string(req.Role))
	if err != nil {
		return nil, err
	}
	target := DefaultTargetHours
	if req.TargetHoursPerWeek != nil {
		if *req.TargetHoursPerWeek < 0 || *req.TargetHoursPerWeek > 168 {
			return nil, fmt.Errorf("%w: target_hours_per_week must be between 0 and 168", ErrInvalidInput)
		}
		target = *req.TargetHoursPerWeek
	}

	u := &User{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(req.Name),
		Email:     strings.ToLower(addr.Address),
		Role:      role,
		IsActive:  true,
		CreatedAt: time.Now().UTC(),

		TargetHoursPerWeek: target,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("creating user: %w", err)
	}
	s.logger.Info().Str("user_id", u.ID).Str("role", string(u.Role)).Msg("user created")
	return u, nil
}

// Get fetches a user by ID.
func (s *Service) Get(ctx context.Context, id string) (*User, error) {
	u, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("getting user: %w", err)
	}
	return u, nil
}

// Lookup resolves a user by id or email, for token issuing.
func (s *Service) Lookup(ctx context.Context, idOrEmail string) (*User, error) {
	var (
		u   *User
		err error
	)
	if strings.Contains(idOrEmail, "@") {
		u, err = s.repo.GetByEmail(ctx, strings.ToLower(idOrEmail))
	} else {
		u, err = s.repo.Get(ctx, idOrEmail)
	}
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("looking up user: %w", err)
	}
	if !u.IsActive {
		return nil, ErrInactive
	}
	return u, nil
}

// List returns all users.
func (s *Service) List(ctx context.Context, actor auth.Context) ([]User, error) {
	if err := actor.Require(auth.RoleAdmin, auth.RolePM); err != nil {
		return nil, err
	}
	return s.repo.List(ctx)
}
