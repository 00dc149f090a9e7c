package notification

import (
	"time"

	"github.com/google/uuid"
)

type NotificationType string

const (
	TypeChallenge         NotificationType = "challenge"
	TypeChallengeResponse NotificationType = "challenge_response"
	TypeChallengeResult   NotificationType = "challenge_result"
	TypeAchievement       NotificationType = "achievement"
	TypeRideVerified      NotificationType = "ride_verified"
)

type NotificationStatus string

const (
	StatusPending NotificationStatus = "pending"
	StatusSent    NotificationStatus = "sent"
	StatusFailed  NotificationStatus = "failed"
)

type Notification struct {
	ID        uuid.UUID          `json:"id" db:"id"`
	UserID    uuid.UUID          `json:"user_id" db:"user_id"`
	Type      NotificationType   `json:"type" db:"type"`
	Title     string             `json:"title" db:"title"`
	Message   string             `json:"message" db:"message"`
	RelatedID *uuid.UUID         `json:"related_id,omitempty" db:"related_id"`
	Data      map[string]any     `json:"data" db:"data"`
	Read      bool               `json:"read" db:"read"`
	Status    NotificationStatus `json:"status" db:"status"`
	CreatedAt time.Time          `json:"created_at" db:"created_at"`
}

type DeviceToken struct {
	Token    string    `json:"token" db:"token"`
	Platform string    `json:"platform" db:"platform"`
	AddedAt  time.Time `json:"added_at" db:"added_at"`
	LastUsed time.Time `json:"last_used" db:"last_used"`
}
