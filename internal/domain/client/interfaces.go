package client

import (
	"context"
	"time"
)

// ListOptions filters client listings.
type ListOptions struct {
	Status       Status
	WithRetainer bool
}

// Repository provides persistence for clients.
type Repository interface {
	Create(ctx context.Context, c *Client) error
	Get(ctx context.Context, id string) (*Client, error)
	List(ctx context.Context, opts ListOptions) ([]Client, error)
	Update(ctx context.Context, c *Client) error
	SoftDelete(ctx context.Context, id string, at time.Time) error
	CreateSite(ctx context.Context, site *Site) error
	ListSites(ctx context.Context, clientID string) ([]Site, error)
}
