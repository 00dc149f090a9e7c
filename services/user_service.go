package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"bikeToWorkAPI/internal/leaderboard"
	"bikeToWorkAPI/internal/stats"
	"bikeToWorkAPI/internal/user"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/microcosm-cc/bluemonday"
)

var textPolicy = bluemonday.StrictPolicy()

// sanitizeText strips any markup from user supplied display text.
func sanitizeText(s string) string {
	return strings.TrimSpace(textPolicy.Sanitize(s))
}

type UserService struct {
	db *pgxpool.Pool
}

func NewUserService(db *pgxpool.Pool) *UserService {
	return &UserService{db: db}
}

const profileColumns = `
	id, clerk_id, email, username, first_name, last_name, image_url, role,
	total_rides, total_points, streak_days, created_at, updated_at
`

func scanProfile(row rowScanner) (*user.User, error) {
	u := &user.User{}
	err := row.Scan(
		&u.ID, &u.ClerkID, &u.Email, &u.Username, &u.FirstName, &u.LastName, &u.ImageURL, &u.Role,
		&u.TotalRides, &u.TotalPoints, &u.StreakDays, &u.CreatedAt, &u.UpdatedAt,
	)
	return u, err
}

func (s *UserService) CreateUser(ctx context.Context, req *user.CreateUserRequest) (*user.User, error) {
	query := `
	INSERT INTO profiles (clerk_id, email, username, first_name, last_name, image_url)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (clerk_id) DO UPDATE
	SET email = EXCLUDED.email, updated_at = NOW()
	RETURNING ` + profileColumns

	u, err := scanProfile(s.db.QueryRow(
		ctx,
		query,
		req.ClerkID,
		req.Email,
		sanitizeText(req.Username),
		sanitizeText(req.FirstName),
		sanitizeText(req.LastName),
		req.ImageURL,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return u, nil
}

func (s *UserService) GetUserByClerkID(ctx context.Context, clerkID string) (*user.User, error) {
	u, err := scanProfile(s.db.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE clerk_id = $1`, clerkID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", clerkID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

func (s *UserService) GetUserByID(ctx context.Context, userID uuid.UUID) (*user.User, error) {
	u, err := scanProfile(s.db.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = $1`, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", userID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// ResolveUserID maps an authenticated Clerk subject to the profile id.
func (s *UserService) ResolveUserID(ctx context.Context, clerkID string) (uuid.UUID, error) {
	var userID uuid.UUID
	err := s.db.QueryRow(ctx, `SELECT id FROM profiles WHERE clerk_id = $1`, clerkID).Scan(&userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, fmt.Errorf("user %s: %w", clerkID, ErrNotFound)
		}
		return uuid.Nil, fmt.Errorf("failed to resolve user: %w", err)
	}
	return userID, nil
}

func (s *UserService) UpdateProfileByClerkID(ctx context.Context, clerkID string, req *user.UpdateProfileRequest) (*user.User, error) {
	query := `
	UPDATE profiles
	SET
		username = COALESCE(NULLIF($2, ''), username),
		first_name = COALESCE(NULLIF($3, ''), first_name),
		last_name = COALESCE(NULLIF($4, ''), last_name),
		image_url = COALESCE(NULLIF($5, ''), image_url),
		updated_at = NOW()
	WHERE clerk_id = $1
	RETURNING ` + profileColumns

	u, err := scanProfile(s.db.QueryRow(
		ctx,
		query,
		clerkID,
		sanitizeText(req.Username),
		sanitizeText(req.FirstName),
		sanitizeText(req.LastName),
		req.ImageURL,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", clerkID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	return u, nil
}

func (s *UserService) DeleteUserByClerkID(ctx context.Context, clerkID string) error {
	result, err := s.db.Exec(ctx, `DELETE FROM profiles WHERE clerk_id = $1`, clerkID)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("user %s: %w", clerkID, ErrNotFound)
	}

	return nil
}

// IsAdmin reports whether the profile behind clerkID has the admin role.
func (s *UserService) IsAdmin(ctx context.Context, clerkID string) (bool, error) {
	var role user.Role
	err := s.db.QueryRow(ctx, `SELECT role FROM profiles WHERE clerk_id = $1`, clerkID).Scan(&role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, fmt.Errorf("user %s: %w", clerkID, ErrNotFound)
		}
		return false, fmt.Errorf("failed to get role: %w", err)
	}
	return role == user.RoleAdmin, nil
}

// ListOpponents returns every other rider that can be challenged.
func (s *UserService) ListOpponents(ctx context.Context, clerkID string) ([]*user.Opponent, error) {
	rows, err := s.db.Query(ctx, `
	SELECT id, username, COALESCE(image_url, '')
	FROM profiles
	WHERE clerk_id <> $1
	ORDER BY username
	`, clerkID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch opponents: %w", err)
	}
	defer rows.Close()

	opponents := []*user.Opponent{}
	for rows.Next() {
		o := &user.Opponent{}
		if err := rows.Scan(&o.ID, &o.Username, &o.ImageURL); err != nil {
			return nil, fmt.Errorf("failed to scan opponent: %w", err)
		}
		opponents = append(opponents, o)
	}
	return opponents, rows.Err()
}

// SaveDerivedStats stores the counters shown on the profile and leaderboard.
func (s *UserService) SaveDerivedStats(ctx context.Context, userID uuid.UUID, snap stats.UserStatsSnapshot) error {
	_, err := s.db.Exec(ctx, `
	UPDATE profiles
	SET total_rides = $2, total_points = $3, streak_days = $4, updated_at = NOW()
	WHERE id = $1
	`, userID, snap.TotalRides, snap.TotalPoints, snap.CurrentStreakDays)
	if err != nil {
		return fmt.Errorf("failed to save stats for %s: %w", userID, err)
	}
	return nil
}

// GetRanking returns the top riders by points plus the caller's own row,
// which may fall outside the top.
func (s *UserService) GetRanking(ctx context.Context, clerkID string, limit int) (*leaderboard.Leaderboard, error) {
	userID, err := s.ResolveUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}
	limit = leaderboard.ClampLimit(limit)

	query := `
	WITH ranked AS (
		SELECT
			id AS user_id,
			username,
			image_url,
			total_rides,
			total_points,
			RANK() OVER (ORDER BY total_points DESC) AS rank
		FROM profiles
	)
	SELECT user_id, username, image_url, total_rides, total_points, rank
	FROM ranked
	WHERE rank <= $2 OR user_id = $1
	ORDER BY rank, username
	`

	rows, err := s.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch leaderboard: %w", err)
	}
	defer rows.Close()

	board := &leaderboard.Leaderboard{Entries: []*leaderboard.LeaderboardEntry{}}
	for rows.Next() {
		entry := &leaderboard.LeaderboardEntry{}
		err := rows.Scan(
			&entry.UserID,
			&entry.Username,
			&entry.ImageURL,
			&entry.TotalRides,
			&entry.TotalPoints,
			&entry.Rank,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		if entry.Rank <= limit && len(board.Entries) < limit {
			board.Entries = append(board.Entries, entry)
		}
		if entry.UserID == userID {
			board.UserPosition = entry
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var total int
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM profiles`).Scan(&total); err != nil {
		log.Printf("GetRanking: failed to count profiles: %v", err)
	}
	board.TotalUsers = total

	return board, nil
}
