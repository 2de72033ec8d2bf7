package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/bookstore/internal/apperror"
)

// errorBody is the JSON error shape: {"error": "..."}.
type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeJSONError writes err as {"error": message} with the matching status.
func writeJSONError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), errorBody{Error: publicMessage(err)})
}

// statusFor maps the apperror taxonomy to an HTTP status. Untyped errors
// are 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, apperror.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, apperror.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, apperror.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperror.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// publicMessage is the text safe to show a user. Only AppError messages are
// shown verbatim; wrapped internal errors never leak.
func publicMessage(err error) string {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "Something went wrong. Please try again."
}
