package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rpggio/agencyops/internal/domain/client"
	"github.com/rpggio/agencyops/internal/repository"
)

// ClientRepository implements client.Repository for SQLite
type ClientRepository struct {
	db *DB
}

// NewClientRepository creates a new ClientRepository
func NewClientRepository(db *DB) *ClientRepository {
	return &ClientRepository{db: db}
}

const clientColumns = `id, name, status, retainer_hours, hourly_rate, created_at, updated_at`

func scanClient(s rowScanner) (*client.Client, error) {
	var c client.Client
	if err := s.Scan(&c.ID, &c.Name, &c.Status, &c.RetainerHours, &c.HourlyRate, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// Create inserts a client
func (r *ClientRepository) Create(ctx context.Context, c *client.Client) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO clients (id, name, status, retainer_hours, hourly_rate, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.Status, c.RetainerHours, c.HourlyRate, c.CreatedAt.UTC(), c.UpdatedAt.UTC())
	return translate(err, "create client")
}

// Get retrieves a live client by ID
func (r *ClientRepository) Get(ctx context.Context, id string) (*client.Client, error) {
	f := live("").add("id = ?", id)
	c, err := scanClient(r.db.QueryRowContext(ctx, "SELECT "+clientColumns+" FROM clients"+f.where(), f.args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get client: %w", err)
	}
	return c, nil
}

// List returns live clients ordered by name
func (r *ClientRepository) List(ctx context.Context, opts client.ListOptions) ([]client.Client, error) {
	f := live("")
	if opts.Status != "" {
		f.add("status = ?", opts.Status)
	}
	if opts.WithRetainer {
		f.add("retainer_hours > 0")
	}

	rows, err := r.db.QueryContext(ctx, "SELECT "+clientColumns+" FROM clients"+f.where()+" ORDER BY name", f.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}
	defer rows.Close()

	clients := []client.Client{}
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan client: %w", err)
		}
		clients = append(clients, *c)
	}
	return clients, rows.Err()
}

// Update writes a live client
func (r *ClientRepository) Update(ctx context.Context, c *client.Client) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE clients SET name = ?, status = ?, retainer_hours = ?, hourly_rate = ?, updated_at = ?
		WHERE id = ? AND is_deleted = 0`,
		c.Name, c.Status, c.RetainerHours, c.HourlyRate, c.UpdatedAt.UTC(), c.ID)
	return expectOne(res, err, "update client")
}

// CreateSite inserts a site
func (r *ClientRepository) CreateSite(ctx context.Context, site *client.Site) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sites (id, client_id, name, url, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		site.ID, site.ClientID, site.Name, site.URL, site.CreatedAt.UTC())
	return translate(err, "create site")
}

// ListSites returns a client's sites ordered by name
func (r *ClientRepository) ListSites(ctx context.Context, clientID string) ([]client.Site, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, client_id, name, url, created_at FROM sites
		WHERE client_id = ? ORDER BY name`, clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sites: %w", err)
	}
	defer rows.Close()

	sites := []client.Site{}
	for rows.Next() {
		var s client.Site
		if err := rows.Scan(&s.ID, &s.ClientID, &s.Name, &s.URL, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan site: %w", err)
		}
		sites = append(sites, s)
	}
	return sites, rows.Err()
}

// SoftDelete marks a client deleted
func (r *ClientRepository) SoftDelete(ctx context.Context, id string, at time.Time) error {
	return softDelete(ctx, r.db, "clients", id, at)
}
