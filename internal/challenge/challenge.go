package challenge

import (
	"errors"
	"time"

	"bikeToWorkAPI/internal/stats"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

var (
	ErrSelfChallenge      = errors.New("cannot challenge yourself")
	ErrEndDateNotInFuture = errors.New("end date must be after today")
	ErrNotOpponent        = errors.New("only the challenged user can respond")
	ErrInvalidTransition  = errors.New("challenge cannot move to that status")
)

type Challenge struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	CreatorID  uuid.UUID  `json:"creator_id" db:"creator_id"`
	OpponentID uuid.UUID  `json:"opponent_id" db:"opponent_id"`
	StartDate  time.Time  `json:"start_date" db:"start_date"`
	EndDate    time.Time  `json:"end_date" db:"end_date"`
	Status     Status     `json:"status" db:"status"`
	WinnerID   *uuid.UUID `json:"winner_id,omitempty" db:"winner_id"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`

	CreatorUsername  string  `json:"creator_username"`
	OpponentUsername string  `json:"opponent_username"`
	WinnerUsername   *string `json:"winner_username,omitempty"`
}

type CreateChallengeRequest struct {
	OpponentID uuid.UUID `json:"opponent_id" validate:"required"`
	EndDate    string    `json:"end_date" validate:"required,datetime=2006-01-02"`
}

type RespondRequest struct {
	Accept *bool `json:"accept" validate:"required"`
}

var transitions = map[Status][]Status{
	StatusPending: {StatusActive, StatusCancelled},
	StatusActive:  {StatusCompleted},
}

func (s Status) CanTransition(to Status) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// ValidateNew checks a challenge before it is stored. Dates are calendar days.
func ValidateNew(creatorID, opponentID uuid.UUID, endDate, today time.Time) error {
	if creatorID == opponentID {
		return ErrSelfChallenge
	}
	if !endDate.After(today) {
		return ErrEndDateNotInFuture
	}
	return nil
}

// Respond returns the status the challenge moves to when responder accepts
// or declines it.
func (c *Challenge) Respond(responderID uuid.UUID, accept bool) (Status, error) {
	if responderID != c.OpponentID {
		return c.Status, ErrNotOpponent
	}
	next := StatusCancelled
	if accept {
		next = StatusActive
	}
	if !c.Status.CanTransition(next) {
		return c.Status, ErrInvalidTransition
	}
	return next, nil
}

// HasEnded reports whether an active challenge is past its last day.
func (c *Challenge) HasEnded(today time.Time) bool {
	return c.Status == StatusActive && today.After(c.EndDate)
}

// CountInWindow counts rides dated on any day from start to end inclusive.
func CountInWindow(rides []stats.RideRecord, start, end time.Time, cal stats.Calendar) int {
	first, last := cal.Day(start), cal.Day(end)
	n := 0
	for _, r := range rides {
		day := cal.Day(r.RideDate)
		if day.Before(first) || day.After(last) {
			continue
		}
		n++
	}
	return n
}

// DecideWinner returns the participant with more rides, or nil on a tie.
func (c *Challenge) DecideWinner(creatorRides, opponentRides int) *uuid.UUID {
	switch {
	case creatorRides > opponentRides:
		id := c.CreatorID
		return &id
	case opponentRides > creatorRides:
		id := c.OpponentID
		return &id
	default:
		return nil
	}
}

// Participant reports whether userID is the creator or the opponent.
func (c *Challenge) Participant(userID uuid.UUID) bool {
	return userID == c.CreatorID || userID == c.OpponentID
}
