package user

import (
	"time"

	"github.com/rpggio/agencyops/internal/auth"
)

// User is a team member who can be assigned tasks and log time.
type User struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Email    string    `json:"email"`
	Role     auth.Role `json:"role"`
	IsActive bool      `json:"is_active"`
	// TargetHoursPerWeek is what utilization is measured against.
	TargetHoursPerWeek float64   `json:"target_hours_per_week"`
	CreatedAt          time.Time `json:"created_at"`
}

// AuthContext returns the identity the user acts as.
func (u *User) AuthContext() auth.Context {
	return auth.Context{UserID: u.ID, Role: u.Role}
}
