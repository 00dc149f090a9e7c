package utils

import (
	"context"
	"log"
	"time"

	"bikeToWorkAPI/internal/notification"
)

// NotificationCreator is the one method the notifying code paths need from
// the notification service.
type NotificationCreator interface {
	CreateNotification(ctx context.Context, req *notification.CreateNotificationRequest) (*notification.Notification, error)
}

// Notify stores each request on a background context so a cancelled request
// does not drop the notification. Failures are logged, never returned.
func Notify(notifier NotificationCreator, reqs ...*notification.CreateNotificationRequest) {
	if notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for _, req := range reqs {
		if req == nil {
			continue
		}
		if _, err := notifier.CreateNotification(ctx, req); err != nil {
			log.Printf("Failed to create %s notification for user %s: %v", req.Type, req.UserID, err)
		}
	}
}
