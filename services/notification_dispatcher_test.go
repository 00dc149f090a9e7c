package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"bikeToWorkAPI/internal/notification"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDeliveryStore struct {
	mu       sync.Mutex
	tokens   map[uuid.UUID][]notification.DeviceToken
	tokenErr error
	marks    map[uuid.UUID]notification.NotificationStatus
	reasons  map[uuid.UUID]string
}

func newFakeDeliveryStore() *fakeDeliveryStore {
	return &fakeDeliveryStore{
		tokens:  map[uuid.UUID][]notification.DeviceToken{},
		marks:   map[uuid.UUID]notification.NotificationStatus{},
		reasons: map[uuid.UUID]string{},
	}
}

func (f *fakeDeliveryStore) DeviceTokens(ctx context.Context, userID uuid.UUID) ([]notification.DeviceToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.tokenErr != nil {
		return nil, f.tokenErr
	}
	return f.tokens[userID], nil
}

func (f *fakeDeliveryStore) MarkDelivery(ctx context.Context, id uuid.UUID, status notification.NotificationStatus, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.marks[id] = status
	f.reasons[id] = reason
	return nil
}

func (f *fakeDeliveryStore) PurgeRead(ctx context.Context, olderThan time.Duration) (int64, error) {
	return 0, nil
}

func (f *fakeDeliveryStore) status(id uuid.UUID) (notification.NotificationStatus, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.marks[id]
	return s, ok
}

func TestDispatcher_DeliversToRegisteredDevices(t *testing.T) {
	store := newFakeDeliveryStore()
	userID := uuid.New()
	store.tokens[userID] = []notification.DeviceToken{{Token: "tok-1", Platform: "android"}}

	var mu sync.Mutex
	var gotTitle string
	var gotTokens int
	d := NewNotificationDispatcher(store, 2)
	defer d.Stop()
	d.SetPushProvider(&mockPushProvider{
		SendPushFunc: func(ctx context.Context, tokens []notification.DeviceToken, title, body string, data map[string]any) error {
			mu.Lock()
			defer mu.Unlock()
			gotTitle = title
			gotTokens = len(tokens)
			return nil
		},
	})

	notif := &notification.Notification{ID: uuid.New(), UserID: userID, Title: "Nowe wyzwanie!", Message: "hi"}
	d.DispatchNotification(notif)

	require.Eventually(t, func() bool {
		s, ok := store.status(notif.ID)
		return ok && s == notification.StatusSent
	}, time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "Nowe wyzwanie!", gotTitle)
	assert.Equal(t, 1, gotTokens)
}

func TestDispatcher_MarksFailedPush(t *testing.T) {
	store := newFakeDeliveryStore()
	userID := uuid.New()
	store.tokens[userID] = []notification.DeviceToken{{Token: "tok-1"}}

	d := NewNotificationDispatcher(store, 1)
	defer d.Stop()
	d.SetPushProvider(&mockPushProvider{
		SendPushFunc: func(ctx context.Context, tokens []notification.DeviceToken, title, body string, data map[string]any) error {
			return errors.New("fcm unavailable")
		},
	})

	notif := &notification.Notification{ID: uuid.New(), UserID: userID}
	d.DispatchNotification(notif)

	require.Eventually(t, func() bool {
		s, ok := store.status(notif.ID)
		return ok && s == notification.StatusFailed
	}, time.Second, 10*time.Millisecond)

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.Equal(t, "fcm unavailable", store.reasons[notif.ID])
}

func TestDispatcher_NoDevicesCountsAsSent(t *testing.T) {
	store := newFakeDeliveryStore()
	d := NewNotificationDispatcher(store, 1)
	defer d.Stop()

	called := make(chan struct{}, 1)
	d.SetPushProvider(&mockPushProvider{
		SendPushFunc: func(ctx context.Context, tokens []notification.DeviceToken, title, body string, data map[string]any) error {
			called <- struct{}{}
			return nil
		},
	})

	notif := &notification.Notification{ID: uuid.New(), UserID: uuid.New()}
	d.DispatchNotification(notif)

	require.Eventually(t, func() bool {
		s, ok := store.status(notif.ID)
		return ok && s == notification.StatusSent
	}, time.Second, 10*time.Millisecond)
	assert.Empty(t, called)
}

func TestDispatcher_StopIsIdempotent(t *testing.T) {
	d := NewNotificationDispatcher(newFakeDeliveryStore(), 3)
	d.Stop()
	d.Stop()

	done := make(chan struct{})
	go func() {
		d.DispatchNotification(&notification.Notification{ID: uuid.New()})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("DispatchNotification blocked after Stop")
	}
}
