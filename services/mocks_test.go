package services

import (
	"context"
	"sync"

	"bikeToWorkAPI/internal/notification"
	"bikeToWorkAPI/internal/stats"

	"github.com/google/uuid"
)

type mockRideLister struct {
	ListRecordsFunc func(ctx context.Context, userID uuid.UUID) ([]stats.RideRecord, error)

	mu    sync.Mutex
	calls int
}

func (m *mockRideLister) ListRecords(ctx context.Context, userID uuid.UUID) ([]stats.RideRecord, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	return m.ListRecordsFunc(ctx, userID)
}

func (m *mockRideLister) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type mockUserResolver struct {
	ResolveUserIDFunc func(ctx context.Context, clerkID string) (uuid.UUID, error)
}

func (m *mockUserResolver) ResolveUserID(ctx context.Context, clerkID string) (uuid.UUID, error) {
	return m.ResolveUserIDFunc(ctx, clerkID)
}

type mockNotifier struct {
	mu       sync.Mutex
	requests []*notification.CreateNotificationRequest
}

func (m *mockNotifier) CreateNotification(ctx context.Context, req *notification.CreateNotificationRequest) (*notification.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	return &notification.Notification{ID: uuid.New(), UserID: req.UserID, Type: req.Type}, nil
}

func (m *mockNotifier) Requests() []*notification.CreateNotificationRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*notification.CreateNotificationRequest(nil), m.requests...)
}

type mockPushProvider struct {
	SendPushFunc func(ctx context.Context, tokens []notification.DeviceToken, title, body string, data map[string]any) error
}

func (m *mockPushProvider) SendPush(ctx context.Context, tokens []notification.DeviceToken, title, body string, data map[string]any) error {
	return m.SendPushFunc(ctx, tokens, title, body, data)
}
