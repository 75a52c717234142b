package project

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

// Service handles project operations.
type Service struct {
	repo   Repository
	logger zerolog.Logger
}

// NewService creates a new project service.
func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, logger: logger.With().Str("component", "project").Logger()}
}

// CreateRequest defines project creation inputs.
type CreateRequest struct {
	ClientID    string `json:"client_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Status      Status `json:"status"`
	IsRetainer  bool   `json:"is_retainer"`
}

// Create creates a new project.
func (s *Service) Create(ctx context.Context, actor auth.Context, req CreateRequest) (*Project, error) {
	if err := actor.Require(auth.RoleAdmin, auth.RolePM); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.ClientID) == "" {
		return nil, fmt.Errorf("%w: name and client_id are required", ErrInvalidInput)
	}
	status := StatusQuote
	if req.Status != "" {
		st, err := ParseStatus(string(req.Status))
		if err != nil {
			return nil, err
		}
		status = st
	}

	proj := &Project{
		ID:          uuid.NewString(),
		ClientID:    req.ClientID,
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Status:      status,
		IsRetainer:  req.IsRetainer,
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, proj); err != nil {
		if errors.Is(err, repository.ErrForeignKeyViolation) {
			return nil, fmt.Errorf("%w: client not found", ErrInvalidInput)
		}
		return nil, fmt.Errorf("creating project: %w", err)
	}

	return proj, nil
}

// Get fetches a project by ID. Tech users only see projects they belong to.
func (s *Service) Get(ctx context.Context, actor auth.Context, id string) (*Project, error) {
	proj, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("getting project: %w", err)
	}
	if !actor.Privileged() && !contains(proj.Members, actor.UserID) {
		return nil, ErrProjectNotFound
	}
	return proj, nil
}

// List returns project summaries.
func (s *Service) List(ctx context.Context, actor auth.Context, opts ListOptions) ([]Summary, error) {
	if !actor.Privileged() {
		opts.MemberID = actor.UserID
	}
	return s.repo.List(ctx, opts)
}

// AddMember adds a user to the project team.
func (s *Service) AddMember(ctx context.Context, actor auth.Context, projectID, userID string) error {
	if err := actor.Require(auth.RoleAdmin, auth.RolePM); err != nil {
		return err
	}
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("%w: user_id is required", ErrInvalidInput)
	}
	if err := s.repo.AddMember(ctx, projectID, userID); err != nil {
		if errors.Is(err, repository.ErrForeignKeyViolation) {
			return fmt.Errorf("%w: unknown project or user", ErrInvalidInput)
		}
		return fmt.Errorf("adding member: %w", err)
	}
	s.logger.Info().Str("project_id", projectID).Str("user_id", userID).Msg("member added")
	return nil
}

// IsMember reports whether userID belongs to the project team.
func (s *Service) IsMember(ctx context.Context, projectID, userID string) (bool, error) {
	return s.repo.IsMember(ctx, projectID, userID)
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
