package handlers

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"bikeToWorkAPI/internal/photostore"
	"bikeToWorkAPI/internal/ride"
	"bikeToWorkAPI/middleware"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

type RideService interface {
	SubmitRide(ctx context.Context, clerkID string, photo []byte, location string) (*ride.Ride, error)
	GetUserRides(ctx context.Context, clerkID string) ([]*ride.Ride, error)
	GetVerificationQueue(ctx context.Context, clerkID string) ([]*ride.Ride, error)
	VerifyRide(ctx context.Context, reviewerClerkID string, rideID uuid.UUID, approved bool) (*ride.Ride, error)
	DeleteRide(ctx context.Context, adminClerkID string, rideID uuid.UUID) error
}

type RideHandler struct {
	rideService RideService
}

func NewRideHandler(rideService RideService) *RideHandler {
	return &RideHandler{
		rideService: rideService,
	}
}

// POST /api/v1/rides - multipart form with a "photo" file and optional "location"
func (h *RideHandler) SubmitRide(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, photostore.MaxPhotoBytes+1<<20)
	if err := r.ParseMultipartForm(photostore.MaxPhotoBytes); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid multipart form or photo too large")
		return
	}

	file, _, err := r.FormFile("photo")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Photo is required")
		return
	}
	defer file.Close()

	photo, err := io.ReadAll(io.LimitReader(file, photostore.MaxPhotoBytes+1))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Failed to read photo")
		return
	}
	if len(photo) > photostore.MaxPhotoBytes {
		respondWithError(w, http.StatusRequestEntityTooLarge, "Photo must be at most 10 MB")
		return
	}

	form := submitRideForm{Location: strings.TrimSpace(r.FormValue("location"))}
	if err := requestValidator.Validate(form); err != nil {
		respondWithError(w, http.StatusBadRequest, ride.ErrInvalidLocation.Error())
		return
	}

	saved, err := h.rideService.SubmitRide(ctx, clerkID, photo, form.Location)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, ride.SubmitRideResponse{
		Ride:    saved,
		Message: "Przejazd dodany! Czeka na weryfikację.",
	})
}

func (h *RideHandler) GetUserRides(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	rides, err := h.rideService.GetUserRides(ctx, clerkID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, rides)
}

func (h *RideHandler) GetVerificationQueue(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	rides, err := h.rideService.GetVerificationQueue(ctx, clerkID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, rides)
}

// POST /api/v1/rides/{id}/verify - {"approved": true}
func (h *RideHandler) VerifyRide(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	rideID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid ride ID")
		return
	}

	var req ride.VerifyRideRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	verified, err := h.rideService.VerifyRide(ctx, clerkID, rideID, *req.Approved)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, verified)
}

func (h *RideHandler) DeleteRide(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	rideID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid ride ID")
		return
	}

	if err := h.rideService.DeleteRide(ctx, clerkID, rideID); err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Ride deleted"})
}
