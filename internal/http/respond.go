package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"hisobchi/internal/core"
	applog "hisobchi/internal/log"
)

type errorResponse struct {
	Error string `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// respondError maps the error taxonomy onto HTTP statuses. Storage failures
// stay generic so internals never leak to the caller.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validationErr core.ValidationError
		notFoundErr   core.NotFoundError
		authErr       core.AuthorizationError
	)
	switch {
	case errors.As(err, &validationErr):
		respondJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: validationErr.Error()})
	case errors.As(err, &notFoundErr):
		respondJSON(w, http.StatusNotFound, errorResponse{Error: notFoundErr.Error()})
	case errors.As(err, &authErr):
		respondJSON(w, http.StatusForbidden, errorResponse{Error: authErr.Error()})
	default:
		slog.ErrorContext(r.Context(), "Request failed",
			applog.FieldComponent, applog.ComponentHTTP,
			applog.FieldError, err,
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path)
		respondJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}
