package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"bikeToWorkAPI/internal/calendar"
	"bikeToWorkAPI/internal/stats"
	"bikeToWorkAPI/middleware"
)

type StatsService interface {
	GetUserStats(ctx context.Context, clerkID string) (stats.UserStatsSnapshot, error)
	GetSeries(ctx context.Context, clerkID string, unit stats.Unit, buckets int, acceptLanguage string) ([]stats.Bucket, error)
	GetCalendar(ctx context.Context, clerkID string, year, month int) (*calendar.CalendarResponse, error)
}

type StatsHandler struct {
	statsService StatsService
	now          func() time.Time
}

func NewStatsHandler(statsService StatsService) *StatsHandler {
	return &StatsHandler{
		statsService: statsService,
		now:          time.Now,
	}
}

func (h *StatsHandler) GetUserStats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	snap, err := h.statsService.GetUserStats(ctx, clerkID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, snap)
}

// GET /api/v1/stats/series?unit=day|month&buckets=7
func (h *StatsHandler) GetSeries(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	unit := stats.Unit(r.URL.Query().Get("unit"))
	if unit == "" {
		unit = stats.UnitDay
	}

	buckets := 0
	if raw := r.URL.Query().Get("buckets"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			respondWithError(w, http.StatusBadRequest, "buckets must be a positive integer")
			return
		}
		buckets = n
	}

	series, err := h.statsService.GetSeries(ctx, clerkID, unit, buckets, r.Header.Get("Accept-Language"))
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"unit":    unit,
		"buckets": series,
	})
}

// GET /api/v1/stats/calendar?year=2026&month=10 - defaults to the current month
func (h *StatsHandler) GetCalendar(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	now := h.now()
	year, month := now.Year(), int(now.Month())
	if raw := r.URL.Query().Get("year"); raw != "" {
		y, err := strconv.Atoi(raw)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid year")
			return
		}
		year = y
	}
	if raw := r.URL.Query().Get("month"); raw != "" {
		m, err := strconv.Atoi(raw)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid month")
			return
		}
		month = m
	}

	resp, err := h.statsService.GetCalendar(ctx, clerkID, year, month)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, resp)
}
