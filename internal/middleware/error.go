package middleware

import (
	"encoding/json"
	"errors"
	"net/http"

	"parkease-api/internal/apperr"
)

// ErrorResponse is the JSON error envelope for every failure.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// WriteError renders a taxonomy error as status + envelope. Internal
// failures never leak their cause to the client.
func WriteError(w http.ResponseWriter, err error) {
	kind := apperr.KindOf(err)
	msg := "an unexpected error occurred"
	var details any
	var e *apperr.Error
	if errors.As(err, &e) && kind != apperr.Internal {
		msg = e.Message
		details = e.Details
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus(kind))
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   kind.Code(),
		Message: msg,
		Details: details,
	})
}

func httpStatus(kind apperr.Kind) int {
	switch kind {
	case apperr.Validation:
		return http.StatusBadRequest
	case apperr.NotFound:
		return http.StatusNotFound
	case apperr.Inactive:
		return http.StatusUnprocessableEntity
	case apperr.Conflict, apperr.InvalidState:
		return http.StatusConflict
	case apperr.Forbidden:
		return http.StatusForbidden
	case apperr.Unauthenticated:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
