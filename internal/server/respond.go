package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/vors-gg/vors/internal/services"
	"github.com/vors-gg/vors/internal/shared"
)

// writeJSON writes v as a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps an error from the service layer to an HTTP response.
// Auth failures become 401 so the page can redirect to re-authentication;
// remote API errors pass their status through.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrNoRefreshToken),
		errors.Is(err, shared.ErrNotAuthenticated),
		errors.Is(err, shared.ErrRefreshFailed):
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "authentication required"})
	case errors.Is(err, shared.ErrNoDevice):
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "no playback device available"})
	case errors.Is(err, shared.ErrSessionNotFound):
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "session not found"})
	case errors.Is(err, shared.ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
	default:
		var apiErr *services.APIError
		if errors.As(err, &apiErr) {
			message := apiErr.Message
			if message == "" {
				message = http.StatusText(apiErr.Status)
			}
			writeJSON(w, apiErr.Status, map[string]any{"error": message})
			return
		}
		writeJSON(w, http.StatusBadGateway, map[string]any{"error": "upstream request failed"})
	}
}
