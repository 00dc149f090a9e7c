package utils

import (
	"context"
	"errors"
	"testing"

	"bikeToWorkAPI/internal/notification"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

type recordingNotifier struct {
	got  []*notification.CreateNotificationRequest
	fail bool
}

func (r *recordingNotifier) CreateNotification(ctx context.Context, req *notification.CreateNotificationRequest) (*notification.Notification, error) {
	r.got = append(r.got, req)
	if r.fail {
		return nil, errors.New("insert failed")
	}
	return &notification.Notification{ID: uuid.New()}, nil
}

func TestNotify(t *testing.T) {
	n := &recordingNotifier{}
	a := notification.RideReviewed(uuid.New(), uuid.New(), true, 10)
	b := notification.AchievementUnlocked(uuid.New(), uuid.New(), "Pierwszy przejazd")

	Notify(n, a, nil, b)
	assert.Equal(t, []*notification.CreateNotificationRequest{a, b}, n.got)
}

func TestNotify_KeepsGoingAfterFailure(t *testing.T) {
	n := &recordingNotifier{fail: true}
	Notify(n, notification.RideReviewed(uuid.New(), uuid.New(), false, 0), notification.RideReviewed(uuid.New(), uuid.New(), true, 10))
	assert.Len(t, n.got, 2)
}

func TestNotify_NilNotifier(t *testing.T) {
	assert.NotPanics(t, func() { Notify(nil, notification.RideReviewed(uuid.New(), uuid.New(), true, 10)) })
}
