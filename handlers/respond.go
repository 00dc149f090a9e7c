package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"bikeToWorkAPI/internal/challenge"
	"bikeToWorkAPI/internal/errtrack"
	"bikeToWorkAPI/services"

	"github.com/go-playground/validator/v10"
)

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "Internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

// respondWithServiceError maps service sentinel errors onto HTTP statuses.
// Anything unrecognised is logged, sent to error tracking and reported as
// a 500 without details.
func respondWithServiceError(w http.ResponseWriter, err error) {
	var validationErrs validator.ValidationErrors
	switch {
	case errors.Is(err, services.ErrNotFound):
		respondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrForbidden):
		respondWithError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, services.ErrOwnRide):
		respondWithError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, services.ErrAlreadyReviewed),
		errors.Is(err, services.ErrInvalidState),
		errors.Is(err, challenge.ErrInvalidTransition):
		respondWithError(w, http.StatusConflict, err.Error())
	case errors.Is(err, services.ErrInvalidInput), errors.As(err, &validationErrs):
		respondWithError(w, http.StatusBadRequest, err.Error())
	default:
		log.Printf("Internal error: %v", err)
		errtrack.CaptureException(err, nil)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}
