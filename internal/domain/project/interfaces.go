package project

import "context"

// ListOptions filters project listings.
type ListOptions struct {
	ClientID string
	// MemberID limits results to projects the user belongs to.
	MemberID string
}

// Repository provides persistence for projects and their members.
type Repository interface {
	Create(ctx context.Context, proj *Project) error
	Get(ctx context.Context, id string) (*Project, error)
	List(ctx context.Context, opts ListOptions) ([]Summary, error)
	AddMember(ctx context.Context, projectID, userID string) error
	IsMember(ctx context.Context, projectID, userID string) (bool, error)
}
