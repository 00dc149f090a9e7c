package services

import (
	"context"
	"fmt"
	"time"

	"bikeToWorkAPI/internal/calendar"
	"bikeToWorkAPI/internal/metrics"
	"bikeToWorkAPI/internal/stats"
	"bikeToWorkAPI/internal/statscache"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

const maxSeriesBuckets = 24

// snapshotLoadTimeout bounds a shared snapshot load, which outlives any
// single caller's context.
const snapshotLoadTimeout = 10 * time.Second

type RideLister interface {
	ListRecords(ctx context.Context, userID uuid.UUID) ([]stats.RideRecord, error)
}

type UserResolver interface {
	ResolveUserID(ctx context.Context, clerkID string) (uuid.UUID, error)
}

type StatsService struct {
	rides RideLister
	users UserResolver
	cache *statscache.Cache
	now   func() time.Time
	group singleflight.Group
}

func NewStatsService(rides RideLister, users UserResolver, cache *statscache.Cache) *StatsService {
	return &StatsService{
		rides: rides,
		users: users,
		cache: cache,
		now:   time.Now,
	}
}

func (s *StatsService) Options() stats.Options {
	return s.cache.Options()
}

func (s *StatsService) GetUserStats(ctx context.Context, clerkID string) (stats.UserStatsSnapshot, error) {
	userID, err := s.users.ResolveUserID(ctx, clerkID)
	if err != nil {
		return stats.UserStatsSnapshot{}, err
	}
	return s.SnapshotFor(ctx, userID)
}

// SnapshotFor serves from the cache and loads rides once per user on a miss,
// however many requests miss at the same time. The load is detached from the
// first caller's cancellation so waiters are not failed by it.
func (s *StatsService) SnapshotFor(ctx context.Context, userID uuid.UUID) (stats.UserStatsSnapshot, error) {
	if snap, ok := s.cache.Get(userID, s.now()); ok {
		metrics.StatsCacheLookups.WithLabelValues("hit").Inc()
		return snap, nil
	}
	metrics.StatsCacheLookups.WithLabelValues("miss").Inc()

	v, err, _ := s.group.Do(userID.String(), func() (any, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), snapshotLoadTimeout)
		defer cancel()
		return s.Refresh(loadCtx, userID)
	})
	if err != nil {
		return stats.UserStatsSnapshot{}, err
	}
	return v.(stats.UserStatsSnapshot), nil
}

// Refresh recomputes the snapshot from storage, bypassing the cache.
func (s *StatsService) Refresh(ctx context.Context, userID uuid.UUID) (stats.UserStatsSnapshot, error) {
	records, err := s.rides.ListRecords(ctx, userID)
	if err != nil {
		return stats.UserStatsSnapshot{}, fmt.Errorf("failed to load rides for stats: %w", err)
	}
	return s.cache.Refresh(userID, records, s.now()), nil
}

func (s *StatsService) Invalidate(userID uuid.UUID) {
	s.cache.Invalidate(userID)
}

// GetSeries builds a chart series with labels for the caller's language.
func (s *StatsService) GetSeries(ctx context.Context, clerkID string, unit stats.Unit, buckets int, acceptLanguage string) ([]stats.Bucket, error) {
	if unit != stats.UnitDay && unit != stats.UnitMonth {
		return nil, fmt.Errorf("unit %q: %w", unit, ErrInvalidInput)
	}
	if buckets < 0 || buckets > maxSeriesBuckets {
		return nil, fmt.Errorf("buckets must be between 1 and %d: %w", maxSeriesBuckets, ErrInvalidInput)
	}

	userID, err := s.users.ResolveUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}
	records, err := s.rides.ListRecords(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load rides for series: %w", err)
	}

	opts := s.Options()
	counted := opts.Policy.Filter(records)
	return stats.ComputeSeries(counted, s.now(), unit, buckets, opts.Calendar, stats.LabelsFor(acceptLanguage)), nil
}

func (s *StatsService) GetCalendar(ctx context.Context, clerkID string, year, month int) (*calendar.CalendarResponse, error) {
	if month < 1 || month > 12 || year < 2000 || year > 9999 {
		return nil, fmt.Errorf("year %d month %d: %w", year, month, ErrInvalidInput)
	}

	userID, err := s.users.ResolveUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}
	records, err := s.rides.ListRecords(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load rides for calendar: %w", err)
	}

	opts := s.Options()
	return calendar.Build(opts.Policy.Filter(records), year, time.Month(month), s.now(), opts.Calendar), nil
}
