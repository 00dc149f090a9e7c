package handlers

import (
	"context"
	"net/http"
	"time"

	"bikeToWorkAPI/internal/challenge"
	"bikeToWorkAPI/middleware"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

type ChallengeService interface {
	CreateChallenge(ctx context.Context, clerkID string, req challenge.CreateChallengeRequest) (*challenge.Challenge, error)
	RespondToChallenge(ctx context.Context, clerkID string, challengeID uuid.UUID, accept bool) (*challenge.Challenge, error)
	GetUserChallenges(ctx context.Context, clerkID string) ([]*challenge.Challenge, error)
}

type ChallengeHandler struct {
	challengeService ChallengeService
}

func NewChallengeHandler(challengeService ChallengeService) *ChallengeHandler {
	return &ChallengeHandler{
		challengeService: challengeService,
	}
}

func (h *ChallengeHandler) GetUserChallenges(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	challenges, err := h.challengeService.GetUserChallenges(ctx, clerkID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, challenges)
}

// POST /api/v1/challenges - {"opponent_id": "...", "end_date": "2026-10-31"}
func (h *ChallengeHandler) CreateChallenge(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req challenge.CreateChallengeRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := h.challengeService.CreateChallenge(ctx, clerkID, req)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, created)
}

// POST /api/v1/challenges/{id}/respond - {"accept": true}
func (h *ChallengeHandler) RespondToChallenge(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	challengeID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid challenge ID")
		return
	}

	var req challenge.RespondRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := h.challengeService.RespondToChallenge(ctx, clerkID, challengeID, *req.Accept)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, updated)
}
