package handlers

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"bikeToWorkAPI/internal/clerkhook"
	"bikeToWorkAPI/internal/user"
	"bikeToWorkAPI/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProfileStore struct {
	created []*user.CreateUserRequest
	updated map[string]*user.UpdateProfileRequest
	deleted []string
	known   map[string]bool
}

func newFakeProfileStore() *fakeProfileStore {
	return &fakeProfileStore{updated: map[string]*user.UpdateProfileRequest{}, known: map[string]bool{}}
}

func (f *fakeProfileStore) CreateUser(ctx context.Context, req *user.CreateUserRequest) (*user.User, error) {
	f.created = append(f.created, req)
	f.known[req.ClerkID] = true
	return &user.User{ClerkID: req.ClerkID, Username: req.Username}, nil
}

func (f *fakeProfileStore) UpdateProfileByClerkID(ctx context.Context, clerkID string, req *user.UpdateProfileRequest) (*user.User, error) {
	if !f.known[clerkID] {
		return nil, services.ErrNotFound
	}
	f.updated[clerkID] = req
	return &user.User{ClerkID: clerkID}, nil
}

func (f *fakeProfileStore) DeleteUserByClerkID(ctx context.Context, clerkID string) error {
	if !f.known[clerkID] {
		return services.ErrNotFound
	}
	delete(f.known, clerkID)
	f.deleted = append(f.deleted, clerkID)
	return nil
}

var (
	webhookSecret = "whsec_" + base64.StdEncoding.EncodeToString([]byte("clerk-test-signing-secret"))
	webhookNow    = time.Date(2026, 10, 14, 9, 30, 0, 0, time.UTC)
)

func signedWebhook(t *testing.T, body string) *http.Request {
	t.Helper()
	sig, err := clerkhook.Sign(webhookSecret, "msg_abc", webhookNow, []byte(body))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/clerk", strings.NewReader(body))
	req.Header.Set("svix-id", "msg_abc")
	req.Header.Set("svix-timestamp", strconv.FormatInt(webhookNow.Unix(), 10))
	req.Header.Set("svix-signature", sig)
	return req
}

func newTestWebhookHandler(store ProfileStore) *WebhookHandler {
	h := NewWebhookHandler(store, webhookSecret)
	h.now = func() time.Time { return webhookNow }
	return h
}

const createdEvent = `{
	"type": "user.created",
	"data": {
		"id": "user_2x",
		"username": "kolarz",
		"first_name": "Jan",
		"last_name": "Kowalski",
		"image_url": "https://img.clerk.com/a.png",
		"primary_email_address_id": "idn_1",
		"email_addresses": [{"id": "idn_1", "email_address": "jan@example.com", "verification": {"status": "verified"}}]
	}
}`

func TestWebhookHandler_UserLifecycle(t *testing.T) {
	store := newFakeProfileStore()
	h := newTestWebhookHandler(store)

	rec := httptest.NewRecorder()
	h.HandleClerkWebhook(rec, signedWebhook(t, createdEvent))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, store.created, 1)
	assert.Equal(t, "user_2x", store.created[0].ClerkID)
	assert.Equal(t, "jan@example.com", store.created[0].Email)
	assert.Equal(t, "kolarz", store.created[0].Username)

	rec = httptest.NewRecorder()
	h.HandleClerkWebhook(rec, signedWebhook(t, `{"type": "user.updated", "data": {"id": "user_2x", "username": "szybki"}}`))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "szybki", store.updated["user_2x"].Username)

	rec = httptest.NewRecorder()
	h.HandleClerkWebhook(rec, signedWebhook(t, `{"type": "user.deleted", "data": {"id": "user_2x"}}`))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"user_2x"}, store.deleted)

	rec = httptest.NewRecorder()
	h.HandleClerkWebhook(rec, signedWebhook(t, `{"type": "user.deleted", "data": {"id": "user_2x"}}`))
	assert.Equal(t, http.StatusOK, rec.Code, "repeated delete is acknowledged")
}

func TestWebhookHandler_UpdateBeforeCreateCreatesProfile(t *testing.T) {
	store := newFakeProfileStore()
	h := newTestWebhookHandler(store)

	rec := httptest.NewRecorder()
	h.HandleClerkWebhook(rec, signedWebhook(t, strings.Replace(createdEvent, "user.created", "user.updated", 1)))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, store.created, 1)
	assert.Equal(t, "user_2x", store.created[0].ClerkID)
}

func TestWebhookHandler_RejectsBadSignature(t *testing.T) {
	store := newFakeProfileStore()
	h := newTestWebhookHandler(store)

	req := signedWebhook(t, createdEvent)
	req.Header.Set("svix-signature", "v1,Zm9yZ2Vk")
	rec := httptest.NewRecorder()
	h.HandleClerkWebhook(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = signedWebhook(t, createdEvent)
	req.Header.Del("svix-id")
	rec = httptest.NewRecorder()
	h.HandleClerkWebhook(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	assert.Empty(t, store.created)
}

func TestWebhookHandler_UnconfiguredSecret(t *testing.T) {
	h := NewWebhookHandler(newFakeProfileStore(), "")
	rec := httptest.NewRecorder()
	h.HandleClerkWebhook(rec, signedWebhook(t, createdEvent))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestWebhookHandler_IgnoresOtherEvents(t *testing.T) {
	store := newFakeProfileStore()
	h := newTestWebhookHandler(store)

	rec := httptest.NewRecorder()
	h.HandleClerkWebhook(rec, signedWebhook(t, `{"type": "session.created", "data": {}}`))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, store.created)
}
