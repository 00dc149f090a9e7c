package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"bikeToWorkAPI/internal/clerkhook"
	"bikeToWorkAPI/internal/user"
	"bikeToWorkAPI/services"
)

const maxWebhookBytes = int64(65536)

type ProfileStore interface {
	CreateUser(ctx context.Context, req *user.CreateUserRequest) (*user.User, error)
	UpdateProfileByClerkID(ctx context.Context, clerkID string, req *user.UpdateProfileRequest) (*user.User, error)
	DeleteUserByClerkID(ctx context.Context, clerkID string) error
}

type WebhookHandler struct {
	profiles ProfileStore
	secret   string
	now      func() time.Time
}

func NewWebhookHandler(profiles ProfileStore, secret string) *WebhookHandler {
	if secret == "" {
		log.Println("CLERK_WEBHOOK_SECRET not set, Clerk webhooks will be rejected")
	}
	return &WebhookHandler{
		profiles: profiles,
		secret:   secret,
		now:      time.Now,
	}
}

func (h *WebhookHandler) HandleClerkWebhook(w http.ResponseWriter, r *http.Request) {
	if h.secret == "" {
		http.Error(w, "Webhook not configured", http.StatusServiceUnavailable)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		log.Printf("Error reading webhook body: %v", err)
		http.Error(w, "Error reading body", http.StatusBadRequest)
		return
	}

	err = clerkhook.Verify(
		h.secret,
		r.Header.Get("svix-id"),
		r.Header.Get("svix-timestamp"),
		r.Header.Get("svix-signature"),
		body,
		h.now(),
	)
	if err != nil {
		log.Printf("Invalid webhook signature: %v", err)
		http.Error(w, "Invalid signature", http.StatusUnauthorized)
		return
	}

	var event clerkhook.ClerkWebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		log.Printf("Error parsing webhook: %v", err)
		http.Error(w, "Error parsing webhook", http.StatusBadRequest)
		return
	}

	log.Printf("Received webhook event: %s", event.Type)

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	switch event.Type {
	case clerkhook.EventUserCreated:
		err = h.handleUserCreated(ctx, event.Data)
	case clerkhook.EventUserUpdated:
		err = h.handleUserUpdated(ctx, event.Data)
	case clerkhook.EventUserDeleted:
		err = h.handleUserDeleted(ctx, event.Data)
	default:
		log.Printf("Unhandled webhook event type: %s", event.Type)
	}
	if err != nil {
		log.Printf("Error handling %s: %v", event.Type, err)
		http.Error(w, "Error processing webhook", http.StatusInternalServerError)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *WebhookHandler) handleUserCreated(ctx context.Context, data json.RawMessage) error {
	var userData clerkhook.ClerkUserData
	if err := json.Unmarshal(data, &userData); err != nil {
		return fmt.Errorf("failed to unmarshal user data: %w", err)
	}

	created, err := h.profiles.CreateUser(ctx, &user.CreateUserRequest{
		ClerkID:   userData.ID,
		Email:     userData.PrimaryEmail(),
		Username:  userData.DisplayName(),
		FirstName: userData.FirstName,
		LastName:  userData.LastName,
		ImageURL:  userData.Image(),
	})
	if err != nil {
		return fmt.Errorf("failed to create user in database: %w", err)
	}

	log.Printf("Successfully created user: %s (Clerk ID: %s)", created.Username, created.ClerkID)
	return nil
}

func (h *WebhookHandler) handleUserUpdated(ctx context.Context, data json.RawMessage) error {
	var userData clerkhook.ClerkUserData
	if err := json.Unmarshal(data, &userData); err != nil {
		return fmt.Errorf("failed to unmarshal user data: %w", err)
	}

	_, err := h.profiles.UpdateProfileByClerkID(ctx, userData.ID, &user.UpdateProfileRequest{
		Username:  userData.DisplayName(),
		FirstName: userData.FirstName,
		LastName:  userData.LastName,
		ImageURL:  userData.Image(),
	})
	if errors.Is(err, services.ErrNotFound) {
		// user.updated can arrive before user.created was processed.
		return h.handleUserCreated(ctx, data)
	}
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	log.Printf("Successfully updated user: Clerk ID: %s", userData.ID)
	return nil
}

func (h *WebhookHandler) handleUserDeleted(ctx context.Context, data json.RawMessage) error {
	var userData struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &userData); err != nil {
		return fmt.Errorf("failed to unmarshal user data: %w", err)
	}

	err := h.profiles.DeleteUserByClerkID(ctx, userData.ID)
	if errors.Is(err, services.ErrNotFound) {
		log.Printf("User %s already deleted", userData.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	log.Printf("Successfully deleted user: Clerk ID: %s", userData.ID)
	return nil
}
