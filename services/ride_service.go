package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"bikeToWorkAPI/internal/metrics"
	"bikeToWorkAPI/internal/notification"
	"bikeToWorkAPI/internal/photostore"
	"bikeToWorkAPI/internal/ride"
	"bikeToWorkAPI/internal/stats"
	"bikeToWorkAPI/utils"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PhotoStore interface {
	Upload(ctx context.Context, userID string, data []byte, at time.Time) (string, error)
	Delete(ctx context.Context, url string) error
}

type RideService struct {
	db            *pgxpool.Pool
	repo          *RideRepository
	photos        PhotoStore
	users         *UserService
	stats         *StatsService
	achievements  *AchievementService
	notifier      utils.NotificationCreator
	cal           stats.Calendar
	pointsPerRide int
	now           func() time.Time
}

type RideServiceDeps struct {
	Repo          *RideRepository
	Photos        PhotoStore
	Users         *UserService
	Stats         *StatsService
	Achievements  *AchievementService
	Notifier      utils.NotificationCreator
	Calendar      stats.Calendar
	PointsPerRide int
}

func NewRideService(db *pgxpool.Pool, deps RideServiceDeps) *RideService {
	return &RideService{
		db:            db,
		repo:          deps.Repo,
		photos:        deps.Photos,
		users:         deps.Users,
		stats:         deps.Stats,
		achievements:  deps.Achievements,
		notifier:      deps.Notifier,
		cal:           deps.Calendar,
		pointsPerRide: deps.PointsPerRide,
		now:           time.Now,
	}
}

// SubmitRide uploads the photo and records an unverified ride for today.
func (s *RideService) SubmitRide(ctx context.Context, clerkID string, photo []byte, location string) (*ride.Ride, error) {
	userID, err := s.users.ResolveUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	var loc *string
	if location != "" {
		parsed, err := ride.ParseLocation(location)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
		l := parsed.String()
		loc = &l
	}

	now := s.now()
	today := s.cal.Day(now)
	now = now.In(today.Location())
	photoURL, err := s.photos.Upload(ctx, userID.String(), photo, now)
	if err != nil {
		if errors.Is(err, photostore.ErrEmptyPhoto) || errors.Is(err, photostore.ErrNotAnImage) {
			return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
		return nil, fmt.Errorf("failed to upload photo: %w", err)
	}

	saved, err := s.repo.Insert(ctx, &ride.Ride{
		UserID:   userID,
		RideDate: today,
		RideTime: now.Format(ride.TimeLayout),
		PhotoURL: photoURL,
		Location: loc,
	})
	if err != nil {
		if delErr := s.photos.Delete(context.Background(), photoURL); delErr != nil {
			log.Printf("Failed to remove orphaned photo %s: %v", photoURL, delErr)
		}
		return nil, err
	}

	s.stats.Invalidate(userID)
	metrics.RidesSubmitted.Inc()
	log.Printf("Ride %s submitted by %s", saved.ID, userID)
	return saved, nil
}

func (s *RideService) GetUserRides(ctx context.Context, clerkID string) ([]*ride.Ride, error) {
	userID, err := s.users.ResolveUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListByUser(ctx, userID)
}

// GetVerificationQueue lists rides of other users that still wait for review.
func (s *RideService) GetVerificationQueue(ctx context.Context, clerkID string) ([]*ride.Ride, error) {
	userID, err := s.users.ResolveUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListUnreviewed(ctx, userID)
}

// VerifyRide approves or rejects another user's ride. Only admins may
// change a review that already happened.
func (s *RideService) VerifyRide(ctx context.Context, reviewerClerkID string, rideID uuid.UUID, approved bool) (*ride.Ride, error) {
	reviewer, err := s.users.GetUserByClerkID(ctx, reviewerClerkID)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	rd, err := s.repo.GetForUpdate(ctx, tx, rideID)
	if err != nil {
		return nil, err
	}
	if rd.UserID == reviewer.ID {
		return nil, ErrOwnRide
	}
	if rd.Reviewed() && !reviewer.IsAdmin() {
		return nil, ErrAlreadyReviewed
	}

	points := 0
	if approved {
		points = s.pointsPerRide
	}
	at := s.now()
	if err := s.repo.SetVerification(ctx, tx, rd.ID, reviewer.ID, approved, points, at); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit verification: %w", err)
	}

	rd.Verified = approved
	rd.Points = points
	rd.VerifiedBy = &reviewer.ID
	rd.VerificationDate = &at

	metrics.RideVerifications.WithLabelValues(metrics.VerificationOutcome(approved)).Inc()
	log.Printf("Ride %s reviewed by %s: approved=%t", rd.ID, reviewer.ID, approved)

	if _, err := s.RecalculateUserStats(ctx, rd.UserID); err != nil {
		log.Printf("Failed to recalculate stats for %s: %v", rd.UserID, err)
	}
	if _, err := s.achievements.CheckAndUnlock(ctx, rd.UserID); err != nil {
		log.Printf("Failed to check achievements for %s: %v", rd.UserID, err)
	}
	utils.Notify(s.notifier, notification.RideReviewed(rd.UserID, rd.ID, approved, points))

	return rd, nil
}

// DeleteRide removes a ride and its photo. Admin only.
func (s *RideService) DeleteRide(ctx context.Context, adminClerkID string, rideID uuid.UUID) error {
	isAdmin, err := s.users.IsAdmin(ctx, adminClerkID)
	if err != nil {
		return err
	}
	if !isAdmin {
		return ErrForbidden
	}

	ownerID, photoURL, err := s.repo.Delete(ctx, rideID)
	if err != nil {
		return err
	}
	if err := s.photos.Delete(ctx, photoURL); err != nil {
		log.Printf("Failed to delete photo for ride %s: %v", rideID, err)
	}

	if _, err := s.RecalculateUserStats(ctx, ownerID); err != nil {
		log.Printf("Failed to recalculate stats for %s: %v", ownerID, err)
	}
	return nil
}

// RecalculateUserStats refreshes the cached snapshot and copies its
// counters onto the profile.
func (s *RideService) RecalculateUserStats(ctx context.Context, userID uuid.UUID) (stats.UserStatsSnapshot, error) {
	snap, err := s.stats.Refresh(ctx, userID)
	if err != nil {
		return stats.UserStatsSnapshot{}, err
	}
	if err := s.users.SaveDerivedStats(ctx, userID, snap); err != nil {
		return snap, err
	}
	return snap, nil
}
