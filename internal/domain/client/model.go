package client

import (
	"fmt"
	"math"
	"time"
)

// Status is the commercial state of a client.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// ParseStatus validates a client status.
func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusActive, StatusInactive:
		return st, nil
	}
	return "", fmt.Errorf("%w: invalid status %q", ErrInvalidInput, s)
}

// Client is a customer billed for project and ad-hoc work.
type Client struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Status        Status    `json:"status"`
	RetainerHours *float64  `json:"retainer_hours"`
	HourlyRate    *float64  `json:"hourly_rate"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// RetainerMinutes returns the monthly allotment in minutes, zero without a retainer.
func (c *Client) RetainerMinutes() int {
	if c.RetainerHours == nil || *c.RetainerHours <= 0 {
		return 0
	}
	return int(math.Round(*c.RetainerHours * 60))
}

// Site is a client web property that tasks can be filed against.
type Site struct {
	ID        string    `json:"id"`
	ClientID  string    `json:"client_id"`
	Name      string    `json:"name"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
}
