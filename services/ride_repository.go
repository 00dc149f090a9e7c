package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bikeToWorkAPI/internal/ride"
	"bikeToWorkAPI/internal/stats"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const dateLayout = "2006-01-02"

// RideRepository reads and writes the rides table. DATE columns come back as
// UTC midnight; they are rebuilt as midnight in the configured calendar so
// every date rule sees the civil date the rider submitted.
type RideRepository struct {
	db  *pgxpool.Pool
	cal stats.Calendar
}

func NewRideRepository(db *pgxpool.Pool, cal stats.Calendar) *RideRepository {
	return &RideRepository{db: db, cal: cal}
}

func (r *RideRepository) civil(d time.Time) time.Time {
	return r.cal.Date(d.Year(), d.Month(), d.Day())
}

const rideColumns = `
	r.id, r.user_id, r.ride_date, r.ride_time, r.photo_url, r.location,
	r.verified, r.verified_by, r.verification_date, r.points, r.created_at,
	COALESCE(p.username, '')
`

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *RideRepository) scanRide(row rowScanner) (*ride.Ride, error) {
	rd := &ride.Ride{}
	err := row.Scan(
		&rd.ID, &rd.UserID, &rd.RideDate, &rd.RideTime, &rd.PhotoURL, &rd.Location,
		&rd.Verified, &rd.VerifiedBy, &rd.VerificationDate, &rd.Points, &rd.CreatedAt,
		&rd.Username,
	)
	if err != nil {
		return nil, err
	}
	rd.RideDate = r.civil(rd.RideDate)
	return rd, nil
}

func (r *RideRepository) queryRides(ctx context.Context, query string, args ...any) ([]*ride.Ride, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query rides: %w", err)
	}
	defer rows.Close()

	rides := []*ride.Ride{}
	for rows.Next() {
		rd, err := r.scanRide(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ride: %w", err)
		}
		rides = append(rides, rd)
	}
	return rides, rows.Err()
}

// ListRecords returns the stats view of every ride a user submitted.
func (r *RideRepository) ListRecords(ctx context.Context, userID uuid.UUID) ([]stats.RideRecord, error) {
	rows, err := r.db.Query(ctx, `SELECT ride_date, verified, points FROM rides WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query ride records: %w", err)
	}
	defer rows.Close()

	records := []stats.RideRecord{}
	for rows.Next() {
		var rec stats.RideRecord
		if err := rows.Scan(&rec.RideDate, &rec.Verified, &rec.Points); err != nil {
			return nil, fmt.Errorf("failed to scan ride record: %w", err)
		}
		rec.RideDate = r.civil(rec.RideDate)
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (r *RideRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*ride.Ride, error) {
	return r.queryRides(ctx, `
		SELECT `+rideColumns+`
		FROM rides r
		LEFT JOIN profiles p ON p.id = r.user_id
		WHERE r.user_id = $1
		ORDER BY r.ride_date DESC, r.created_at DESC
	`, userID)
}

// ListUnreviewed returns rides nobody has reviewed yet, excluding the reviewer's own.
func (r *RideRepository) ListUnreviewed(ctx context.Context, reviewerID uuid.UUID) ([]*ride.Ride, error) {
	return r.queryRides(ctx, `
		SELECT `+rideColumns+`
		FROM rides r
		LEFT JOIN profiles p ON p.id = r.user_id
		WHERE r.verified_by IS NULL AND r.user_id <> $1
		ORDER BY r.created_at DESC
	`, reviewerID)
}

func (r *RideRepository) Insert(ctx context.Context, rd *ride.Ride) (*ride.Ride, error) {
	query := `
		WITH inserted AS (
			INSERT INTO rides (user_id, ride_date, ride_time, photo_url, location, verified, points)
			VALUES ($1, $2::date, $3, $4, $5, false, 0)
			RETURNING *
		)
		SELECT ` + rideColumns + `
		FROM inserted r
		LEFT JOIN profiles p ON p.id = r.user_id
	`
	row := r.db.QueryRow(ctx, query, rd.UserID, rd.RideDate.Format(dateLayout), rd.RideTime, rd.PhotoURL, rd.Location)
	saved, err := r.scanRide(row)
	if err != nil {
		return nil, fmt.Errorf("failed to insert ride: %w", err)
	}
	return saved, nil
}

// GetForUpdate locks the ride row for the rest of the transaction.
func (r *RideRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, rideID uuid.UUID) (*ride.Ride, error) {
	row := tx.QueryRow(ctx, `
		SELECT `+rideColumns+`
		FROM rides r
		LEFT JOIN profiles p ON p.id = r.user_id
		WHERE r.id = $1
		FOR UPDATE OF r
	`, rideID)
	rd, err := r.scanRide(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get ride: %w", err)
	}
	return rd, nil
}

func (r *RideRepository) SetVerification(ctx context.Context, tx pgx.Tx, rideID, reviewerID uuid.UUID, approved bool, points int, at time.Time) error {
	_, err := tx.Exec(ctx, `
		UPDATE rides
		SET verified = $2, verified_by = $3, verification_date = $4, points = $5
		WHERE id = $1
	`, rideID, approved, reviewerID, at, points)
	if err != nil {
		return fmt.Errorf("failed to update ride verification: %w", err)
	}
	return nil
}

// Delete removes a ride and returns its owner and photo URL.
func (r *RideRepository) Delete(ctx context.Context, rideID uuid.UUID) (uuid.UUID, string, error) {
	var ownerID uuid.UUID
	var photoURL string
	err := r.db.QueryRow(ctx, `DELETE FROM rides WHERE id = $1 RETURNING user_id, photo_url`, rideID).Scan(&ownerID, &photoURL)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, "", ErrNotFound
		}
		return uuid.Nil, "", fmt.Errorf("failed to delete ride: %w", err)
	}
	return ownerID, photoURL, nil
}
