package leaderboard

import "github.com/google/uuid"

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

type LeaderboardEntry struct {
	UserID      uuid.UUID `json:"user_id" db:"user_id"`
	Username    string    `json:"username" db:"username"`
	ImageURL    *string   `json:"image_url" db:"image_url"`
	TotalRides  int       `json:"total_rides" db:"total_rides"`
	TotalPoints int       `json:"total_points" db:"total_points"`
	Rank        int       `json:"rank" db:"rank"`
}

type Leaderboard struct {
	Entries      []*LeaderboardEntry `json:"entries"`
	UserPosition *LeaderboardEntry   `json:"user_position"`
	TotalUsers   int                 `json:"total_users"`
}

// ClampLimit bounds a requested page size.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}
