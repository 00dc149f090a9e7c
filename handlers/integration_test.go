package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"bikeToWorkAPI/internal/leaderboard"
	"bikeToWorkAPI/internal/notification"
	"bikeToWorkAPI/internal/stats"
	"bikeToWorkAPI/internal/testutil"
	"bikeToWorkAPI/internal/user"
	"bikeToWorkAPI/services"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignUpProfileAndDeleteFlow(t *testing.T) {
	pool := testutil.SetupTestDB(t)

	userService := services.NewUserService(pool)
	userHandler := NewUserHandler(userService)
	webhookHandler := newTestWebhookHandler(userService)

	clerkID := testutil.NewClerkID("flow")

	t.Log("Step 1: Clerk reports the new user")
	rec := httptest.NewRecorder()
	webhookHandler.HandleClerkWebhook(rec, signedWebhook(t, string(testutil.ClerkWebhookPayload("user.created", clerkID, "kolarz"))))
	require.Equal(t, http.StatusOK, rec.Code)

	t.Log("Step 2: User reads the profile")
	rec = httptest.NewRecorder()
	userHandler.GetProfile(rec, authed(httptest.NewRequest(http.MethodGet, "/api/v1/user", nil), clerkID))
	require.Equal(t, http.StatusOK, rec.Code)

	var profile user.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &profile))
	assert.Equal(t, clerkID, profile.ClerkID)
	assert.Equal(t, "kolarz@example.com", profile.Email)
	assert.Equal(t, user.RoleUser, profile.Role)
	assert.Zero(t, profile.TotalPoints)

	t.Log("Step 3: User renames themselves")
	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/api/v1/user", strings.NewReader(`{"username": "szybki_kolarz"}`))
	req.Header.Set("Content-Type", "application/json")
	userHandler.UpdateProfile(rec, authed(req, clerkID))
	require.Equal(t, http.StatusOK, rec.Code)

	updated, err := userService.GetUserByClerkID(context.Background(), clerkID)
	require.NoError(t, err)
	assert.Equal(t, "szybki_kolarz", updated.Username)

	t.Log("Step 4: Clerk reports the deletion")
	rec = httptest.NewRecorder()
	webhookHandler.HandleClerkWebhook(rec, signedWebhook(t, string(testutil.ClerkWebhookPayload("user.deleted", clerkID, ""))))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	userHandler.GetProfile(rec, authed(httptest.NewRequest(http.MethodGet, "/api/v1/user", nil), clerkID))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNotificationInboxFlow(t *testing.T) {
	pool := testutil.SetupTestDB(t)
	ctx := context.Background()

	userService := services.NewUserService(pool)
	notificationService := services.NewNotificationService(pool)
	t.Cleanup(notificationService.Stop)
	h := NewNotificationHandler(notificationService)

	clerkID := testutil.NewClerkID("inbox")
	u, err := userService.CreateUser(ctx, &user.CreateUserRequest{ClerkID: clerkID, Email: "inbox@example.com", Username: "inbox"})
	require.NoError(t, err)

	for _, req := range []*notification.CreateNotificationRequest{
		notification.AchievementUnlocked(u.ID, u.ID, "Pierwsza jazda"),
		notification.RideReviewed(u.ID, u.ID, true, 10),
	} {
		_, err := notificationService.CreateNotification(ctx, req)
		require.NoError(t, err)
	}

	rec := httptest.NewRecorder()
	h.GetNotifications(rec, authed(httptest.NewRequest(http.MethodGet, "/api/v1/notifications?page_size=10", nil), clerkID))
	require.Equal(t, http.StatusOK, rec.Code)

	var list notification.NotificationListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Notifications, 2)
	assert.Equal(t, 2, list.UnreadCount)
	assert.Equal(t, 2, list.TotalCount)

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/api/v1/notifications/"+list.Notifications[0].ID.String()+"/read", nil)
	req = mux.SetURLVars(req, map[string]string{"id": list.Notifications[0].ID.String()})
	h.MarkAsRead(rec, authed(req, clerkID))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.GetUnreadCount(rec, authed(httptest.NewRequest(http.MethodGet, "/api/v1/notifications/unread-count", nil), clerkID))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"unread_count": 1}`, rec.Body.String())

	rec = httptest.NewRecorder()
	h.MarkAllAsRead(rec, authed(httptest.NewRequest(http.MethodPut, "/api/v1/notifications/read-all", nil), clerkID))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	body := bytes.NewBufferString(`{"token": "fcm-token-123", "platform": "android"}`)
	h.RegisterDevice(rec, authed(httptest.NewRequest(http.MethodPost, "/api/v1/notifications/register-device", body), clerkID))
	require.Equal(t, http.StatusOK, rec.Code)

	tokens, err := notificationService.DeviceTokens(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	assert.Equal(t, "android", tokens[0].Platform)
}

func TestRankingAndOpponents(t *testing.T) {
	pool := testutil.SetupTestDB(t)
	ctx := context.Background()

	userService := services.NewUserService(pool)
	h := NewUserHandler(userService)

	leader, err := userService.CreateUser(ctx, &user.CreateUserRequest{ClerkID: testutil.NewClerkID("leader"), Email: "leader@example.com", Username: "leader"})
	require.NoError(t, err)
	chaser, err := userService.CreateUser(ctx, &user.CreateUserRequest{ClerkID: testutil.NewClerkID("chaser"), Email: "chaser@example.com", Username: "chaser"})
	require.NoError(t, err)
	require.NoError(t, userService.SaveDerivedStats(ctx, leader.ID, stats.UserStatsSnapshot{TotalRides: 100000, TotalPoints: 1000000}))

	rec := httptest.NewRecorder()
	h.GetRanking(rec, authed(httptest.NewRequest(http.MethodGet, "/api/v1/ranking?limit=1", nil), chaser.ClerkID))
	require.Equal(t, http.StatusOK, rec.Code)

	var board leaderboard.Leaderboard
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &board))
	require.Len(t, board.Entries, 1)
	assert.Equal(t, leader.ID, board.Entries[0].UserID)
	assert.Equal(t, 1, board.Entries[0].Rank)
	require.NotNil(t, board.UserPosition)
	assert.Equal(t, chaser.ID, board.UserPosition.UserID)
	assert.GreaterOrEqual(t, board.TotalUsers, 2)

	rec = httptest.NewRecorder()
	h.ListOpponents(rec, authed(httptest.NewRequest(http.MethodGet, "/api/v1/users/opponents", nil), chaser.ClerkID))
	require.Equal(t, http.StatusOK, rec.Code)

	var opponents []user.Opponent
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &opponents))
	var ids []string
	for _, o := range opponents {
		ids = append(ids, o.ID.String())
	}
	assert.Contains(t, ids, leader.ID.String())
	assert.NotContains(t, ids, chaser.ID.String())
}

func TestDeleteAccount(t *testing.T) {
	pool := testutil.SetupTestDB(t)
	userService := services.NewUserService(pool)
	h := NewUserHandler(userService)

	u, err := userService.CreateUser(context.Background(), &user.CreateUserRequest{ClerkID: testutil.NewClerkID("leaving"), Email: "leaving@example.com", Username: "leaving"})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	h.DeleteAccount(rec, authed(httptest.NewRequest(http.MethodDelete, "/api/v1/user", nil), u.ClerkID))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.DeleteAccount(rec, authed(httptest.NewRequest(http.MethodDelete, "/api/v1/user", nil), u.ClerkID))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
