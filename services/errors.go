package services

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("forbidden")
	ErrInvalidInput    = errors.New("invalid input")
	ErrInvalidState    = errors.New("invalid state")
	ErrAlreadyReviewed = errors.New("ride has already been reviewed")
	ErrOwnRide         = errors.New("cannot verify your own ride")
)
