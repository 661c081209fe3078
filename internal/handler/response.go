package handler

// RESPONSE HELPERS:
// Successful responses are JSON; failures are the HTTP status plus a
// plain-text status message, e.g.
//
//	403 Forbidden
//	Can not review your own game
//
// writeError is the only place a service error becomes a status code.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/game-marketplace/internal/apperror"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent; all we can do is log.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeStatus sends a bodiless success such as 200 after a PATCH.
func writeStatus(w http.ResponseWriter, status int) {
	w.WriteHeader(status)
}

// statusFor maps the apperror sentinels to HTTP codes.
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
	case errors.Is(err, apperror.ErrTooManyRequests):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// writeError sends err as a status code and message. Errors that carry no
// apperror sentinel are logged and reported as a bare 500 so that SQL or
// file paths never reach the client.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	status := statusFor(err)

	var appErr *apperror.AppError
	if status == http.StatusInternalServerError || !errors.As(err, &appErr) {
		logger.Error("internal error", slog.String("error", err.Error()))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	http.Error(w, appErr.Message, status)
}
