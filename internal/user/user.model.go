package user

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

type User struct {
	ID          uuid.UUID `json:"id"`
	ClerkID     string    `json:"clerkId"`
	Email       string    `json:"email"`
	Username    string    `json:"username"`
	FirstName   string    `json:"firstName"`
	LastName    string    `json:"lastName"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	Role        Role      `json:"role"`
	TotalRides  int       `json:"total_rides"`
	TotalPoints int       `json:"total_points"`
	StreakDays  int       `json:"streak_days"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Opponent is the public view of another rider.
type Opponent struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	ImageURL string    `json:"imageUrl,omitempty"`
}
