// Package apperr holds the error taxonomy shared by every service and its
// mapping onto HTTP status codes.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidAmount     = fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("forbidden")
	ErrInsufficientFunds = errors.New("insufficient credits")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrInvalidState      = errors.New("product is not in a valid state for this operation")
	ErrAlreadyVip        = errors.New("product is already VIP")
	ErrConflict          = errors.New("already exists")
)

// Status maps an error to the HTTP status code it should be reported with.
func Status(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrInsufficientFunds),
		errors.Is(err, ErrInvalidTransition),
		errors.Is(err, ErrInvalidState),
		errors.Is(err, ErrAlreadyVip):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
