package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"bikeToWorkAPI/internal/ride"

	"github.com/go-playground/validator/v10"
)

// RequestValidator wraps go-playground validator with the app's own rules.
type RequestValidator struct {
	validate *validator.Validate
}

func NewRequestValidator() *RequestValidator {
	v := validator.New()
	v.RegisterValidation("latlng", validateLatLng)
	return &RequestValidator{validate: v}
}

func (rv *RequestValidator) Validate(i interface{}) error {
	return rv.validate.Struct(i)
}

// validateLatLng accepts an empty value or a "lat,lng" pair within WGS84 bounds.
func validateLatLng(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if s == "" {
		return true
	}
	_, err := ride.ParseLocation(s)
	return err == nil
}

var requestValidator = NewRequestValidator()

// decodeAndValidate reads a JSON body into dst and runs its validate tags.
func decodeAndValidate(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return requestValidator.Validate(dst)
}

type submitRideForm struct {
	Location string `validate:"latlng"`
}
