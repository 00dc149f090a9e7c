package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"bikeToWorkAPI/internal/achievement"
	"bikeToWorkAPI/internal/metrics"
	"bikeToWorkAPI/internal/notification"
	"bikeToWorkAPI/internal/stats"
	"bikeToWorkAPI/utils"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type achievementStore interface {
	Definitions(ctx context.Context) ([]achievement.Achievement, error)
	Unlocked(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]time.Time, error)
	Unlock(ctx context.Context, userID, achievementID uuid.UUID, at time.Time) (bool, error)
}

type SnapshotProvider interface {
	SnapshotFor(ctx context.Context, userID uuid.UUID) (stats.UserStatsSnapshot, error)
}

type AchievementService struct {
	store    achievementStore
	users    UserResolver
	stats    SnapshotProvider
	notifier utils.NotificationCreator
	now      func() time.Time
}

func NewAchievementService(db *pgxpool.Pool, users UserResolver, snapshots SnapshotProvider, notifier utils.NotificationCreator) *AchievementService {
	return newAchievementService(&pgAchievementStore{db: db}, users, snapshots, notifier)
}

func newAchievementService(store achievementStore, users UserResolver, snapshots SnapshotProvider, notifier utils.NotificationCreator) *AchievementService {
	return &AchievementService{
		store:    store,
		users:    users,
		stats:    snapshots,
		notifier: notifier,
		now:      time.Now,
	}
}

// LoadDefinitions returns the achievement definitions that can be shown.
// Non-positive targets are logged and left out. Unknown requirement types are
// kept so they list with zero progress; Evaluate never unlocks them.
func (s *AchievementService) LoadDefinitions(ctx context.Context) ([]achievement.Achievement, error) {
	defs, err := s.store.Definitions(ctx)
	if err != nil {
		return nil, err
	}

	shown := make([]achievement.Achievement, 0, len(defs))
	for _, def := range defs {
		if err := def.Validate(); err != nil {
			if !errors.Is(err, achievement.ErrUnknownRequirement) {
				log.Printf("Skipping achievement %s: %v", def.ID, err)
				continue
			}
			log.Printf("Achievement %s has no progress source: %v", def.ID, err)
		}
		shown = append(shown, def)
	}
	return shown, nil
}

// GetAchievements lists every achievement with the caller's unlock state and progress.
func (s *AchievementService) GetAchievements(ctx context.Context, clerkID string) ([]achievement.AchievementWithStatus, error) {
	userID, err := s.users.ResolveUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	defs, err := s.LoadDefinitions(ctx)
	if err != nil {
		return nil, err
	}
	unlocked, err := s.store.Unlocked(ctx, userID)
	if err != nil {
		return nil, err
	}
	snap, err := s.stats.SnapshotFor(ctx, userID)
	if err != nil {
		return nil, err
	}

	result := make([]achievement.AchievementWithStatus, 0, len(defs))
	for _, def := range defs {
		progress, err := achievement.ProgressFor(def.RequirementType, def.RequirementValue, snap)
		if err != nil {
			return nil, fmt.Errorf("achievement %s: %w", def.ID, err)
		}
		item := achievement.AchievementWithStatus{
			Achievement: def,
			Progress:    progress,
		}
		if at, ok := unlocked[def.ID]; ok {
			at := at
			item.Unlocked = true
			item.UnlockedAt = &at
		}
		result = append(result, item)
	}
	return result, nil
}

// CheckAndUnlock records every achievement the user's current stats satisfy
// and has not unlocked yet. Safe to call repeatedly.
func (s *AchievementService) CheckAndUnlock(ctx context.Context, userID uuid.UUID) ([]achievement.Achievement, error) {
	defs, err := s.LoadDefinitions(ctx)
	if err != nil {
		return nil, err
	}
	unlockedAt, err := s.store.Unlocked(ctx, userID)
	if err != nil {
		return nil, err
	}
	snap, err := s.stats.SnapshotFor(ctx, userID)
	if err != nil {
		return nil, err
	}

	unlocked := make(map[uuid.UUID]bool, len(unlockedAt))
	for id := range unlockedAt {
		unlocked[id] = true
	}

	now := s.now()
	var newlyUnlocked []achievement.Achievement
	var notes []*notification.CreateNotificationRequest
	for _, def := range achievement.Evaluate(defs, snap, unlocked) {
		inserted, err := s.store.Unlock(ctx, userID, def.ID, now)
		if err != nil {
			return newlyUnlocked, err
		}
		if !inserted {
			continue
		}
		newlyUnlocked = append(newlyUnlocked, def)
		metrics.AchievementsUnlocked.WithLabelValues(string(def.RequirementType)).Inc()
		notes = append(notes, notification.AchievementUnlocked(userID, def.ID, def.Name))
		log.Printf("User %s unlocked achievement %q", userID, def.Name)
	}

	utils.Notify(s.notifier, notes...)
	return newlyUnlocked, nil
}

type pgAchievementStore struct {
	db *pgxpool.Pool
}

func (p *pgAchievementStore) Definitions(ctx context.Context) ([]achievement.Achievement, error) {
	rows, err := p.db.Query(ctx, `
		SELECT id, name, description, icon, requirement_type, requirement_value, created_at
		FROM achievements
		ORDER BY requirement_type, requirement_value
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch achievements: %w", err)
	}
	defer rows.Close()

	var defs []achievement.Achievement
	for rows.Next() {
		var a achievement.Achievement
		var requirementType string
		if err := rows.Scan(&a.ID, &a.Name, &a.Description, &a.Icon, &requirementType, &a.RequirementValue, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan achievement: %w", err)
		}
		a.RequirementType = achievement.RequirementType(requirementType)
		defs = append(defs, a)
	}
	return defs, rows.Err()
}

func (p *pgAchievementStore) Unlocked(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]time.Time, error) {
	rows, err := p.db.Query(ctx, `
		SELECT achievement_id, unlocked_at
		FROM user_achievements
		WHERE user_id = $1
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch unlocked achievements: %w", err)
	}
	defer rows.Close()

	unlocked := make(map[uuid.UUID]time.Time)
	for rows.Next() {
		var id uuid.UUID
		var at time.Time
		if err := rows.Scan(&id, &at); err != nil {
			return nil, fmt.Errorf("failed to scan unlocked achievement: %w", err)
		}
		unlocked[id] = at
	}
	return unlocked, rows.Err()
}

func (p *pgAchievementStore) Unlock(ctx context.Context, userID, achievementID uuid.UUID, at time.Time) (bool, error) {
	result, err := p.db.Exec(ctx, `
		INSERT INTO user_achievements (user_id, achievement_id, unlocked_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, achievement_id) DO NOTHING
	`, userID, achievementID, at)
	if err != nil {
		return false, fmt.Errorf("failed to unlock achievement %s: %w", achievementID, err)
	}
	return result.RowsAffected() == 1, nil
}
