package ride

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const TimeLayout = "15:04:05"

var ErrInvalidLocation = errors.New("location must be \"lat,lng\" within WGS84 bounds")

type Ride struct {
	ID               uuid.UUID  `json:"id" db:"id"`
	UserID           uuid.UUID  `json:"user_id" db:"user_id"`
	RideDate         time.Time  `json:"ride_date" db:"ride_date"`
	RideTime         string     `json:"ride_time" db:"ride_time"`
	PhotoURL         string     `json:"photo_url" db:"photo_url"`
	Location         *string    `json:"location,omitempty" db:"location"`
	Verified         bool       `json:"verified" db:"verified"`
	VerifiedBy       *uuid.UUID `json:"verified_by,omitempty" db:"verified_by"`
	VerificationDate *time.Time `json:"verification_date,omitempty" db:"verification_date"`
	Points           int        `json:"points" db:"points"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`

	Username string `json:"username,omitempty"`
}

// Reviewed reports whether someone has already approved or rejected the ride.
func (r *Ride) Reviewed() bool {
	return r.VerifiedBy != nil
}

type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (l Location) String() string {
	return strconv.FormatFloat(l.Latitude, 'f', 6, 64) + "," + strconv.FormatFloat(l.Longitude, 'f', 6, 64)
}

// ParseLocation reads the "lat,lng" form browsers report from geolocation.
func ParseLocation(s string) (Location, error) {
	parts := strings.Split(strings.TrimSpace(s), ",")
	if len(parts) != 2 {
		return Location{}, ErrInvalidLocation
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return Location{}, fmt.Errorf("%w: %v", ErrInvalidLocation, err)
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return Location{}, fmt.Errorf("%w: %v", ErrInvalidLocation, err)
	}
	if math.IsNaN(lat) || math.IsNaN(lng) {
		return Location{}, ErrInvalidLocation
	}
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return Location{}, ErrInvalidLocation
	}
	return Location{Latitude: lat, Longitude: lng}, nil
}

type VerifyRideRequest struct {
	Approved *bool `json:"approved" validate:"required"`
}

type SubmitRideResponse struct {
	Ride    *Ride  `json:"ride"`
	Message string `json:"message"`
}
