package handlers

import (
	"context"
	"net/http"
	"time"

	"bikeToWorkAPI/internal/achievement"
	"bikeToWorkAPI/middleware"
)

type AchievementService interface {
	GetAchievements(ctx context.Context, clerkID string) ([]achievement.AchievementWithStatus, error)
}

type AchievementHandler struct {
	achievementService AchievementService
}

func NewAchievementHandler(achievementService AchievementService) *AchievementHandler {
	return &AchievementHandler{
		achievementService: achievementService,
	}
}

func (h *AchievementHandler) GetAchievements(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	list, err := h.achievementService.GetAchievements(ctx, clerkID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, list)
}
