package achievement

import (
	"errors"
	"fmt"
	"math"
	"time"

	"bikeToWorkAPI/internal/stats"

	"github.com/google/uuid"
)

type RequirementType string

const (
	RequirementTotalRides RequirementType = "total_rides"
	RequirementStreak     RequirementType = "streak"
	RequirementWeekly     RequirementType = "weekly"
	RequirementMonthly    RequirementType = "monthly"
	RequirementUnknown    RequirementType = "unknown"
)

var (
	ErrNonPositiveTarget  = errors.New("achievement target must be positive")
	ErrUnknownRequirement = errors.New("unknown requirement type")
)

// ParseRequirementType maps a stored requirement type to the closed set,
// returning RequirementUnknown for anything it does not recognise.
func ParseRequirementType(s string) RequirementType {
	switch RequirementType(s) {
	case RequirementTotalRides, RequirementStreak, RequirementWeekly, RequirementMonthly:
		return RequirementType(s)
	default:
		return RequirementUnknown
	}
}

type Achievement struct {
	ID               uuid.UUID       `json:"id" db:"id"`
	Name             string          `json:"name" db:"name"`
	Description      string          `json:"description" db:"description"`
	Icon             string          `json:"icon" db:"icon"`
	RequirementType  RequirementType `json:"requirement_type" db:"requirement_type"`
	RequirementValue int             `json:"requirement_value" db:"requirement_value"`
	CreatedAt        time.Time       `json:"created_at" db:"created_at"`
}

// Validate rejects definitions that can never be unlocked.
func (a Achievement) Validate() error {
	if a.RequirementValue <= 0 {
		return fmt.Errorf("achievement %q: %w", a.Name, ErrNonPositiveTarget)
	}
	if ParseRequirementType(string(a.RequirementType)) == RequirementUnknown {
		return fmt.Errorf("achievement %q: %w %q", a.Name, ErrUnknownRequirement, a.RequirementType)
	}
	return nil
}

type UserAchievement struct {
	ID            uuid.UUID `json:"id" db:"id"`
	UserID        uuid.UUID `json:"user_id" db:"user_id"`
	AchievementID uuid.UUID `json:"achievement_id" db:"achievement_id"`
	UnlockedAt    time.Time `json:"unlocked_at" db:"unlocked_at"`
}

type Progress struct {
	Current    int `json:"current"`
	Target     int `json:"target"`
	Percentage int `json:"percentage"`
}

type AchievementWithStatus struct {
	Achievement
	Unlocked   bool       `json:"unlocked"`
	UnlockedAt *time.Time `json:"unlocked_at,omitempty"`
	Progress   Progress   `json:"progress"`
}

// ProgressFor measures how far a snapshot is toward a target of the given
// requirement type. Unknown types report zero progress without failing.
func ProgressFor(requirementType RequirementType, target int, snap stats.UserStatsSnapshot) (Progress, error) {
	if target <= 0 {
		return Progress{}, ErrNonPositiveTarget
	}

	var current int
	switch ParseRequirementType(string(requirementType)) {
	case RequirementTotalRides:
		current = snap.TotalRides
	case RequirementStreak:
		current = snap.CurrentStreakDays
	case RequirementWeekly:
		current = snap.WeeklyRideCount
	case RequirementMonthly:
		current = snap.MonthlyRideCount
	case RequirementUnknown:
		return Progress{Current: 0, Target: target, Percentage: 0}, nil
	}

	return Progress{
		Current:    current,
		Target:     target,
		Percentage: Percentage(current, target),
	}, nil
}

// Percentage is round(current/target*100) capped at 100. target must be positive.
func Percentage(current, target int) int {
	if current <= 0 {
		return 0
	}
	p := int(math.Round(float64(current) / float64(target) * 100))
	if p > 100 {
		return 100
	}
	return p
}

// Evaluate returns the definitions the snapshot satisfies that are not in
// unlocked yet. Invalid definitions are skipped.
func Evaluate(defs []Achievement, snap stats.UserStatsSnapshot, unlocked map[uuid.UUID]bool) []Achievement {
	var reached []Achievement
	for _, def := range defs {
		if unlocked[def.ID] {
			continue
		}
		if def.Validate() != nil {
			continue
		}
		progress, err := ProgressFor(def.RequirementType, def.RequirementValue, snap)
		if err != nil {
			continue
		}
		if progress.Current >= progress.Target {
			reached = append(reached, def)
		}
	}
	return reached
}
