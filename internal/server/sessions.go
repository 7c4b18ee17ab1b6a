package server

import (
	"encoding/json"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/vors-gg/vors/internal/models"
	"github.com/vors-gg/vors/internal/repositories"
	"github.com/vors-gg/vors/internal/shared"
)

// SessionsHandler exposes party session CRUD for the game page.
// Implements the [Handler] interface for registration with a [Router].
type SessionsHandler struct {
	repo   *repositories.SessionRepository
	logger *log.Logger
	mux    *http.ServeMux
}

// NewSessionsHandler creates the session endpoint group.
func NewSessionsHandler(repo *repositories.SessionRepository, logger *log.Logger) *SessionsHandler {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	h := &SessionsHandler{repo: repo, logger: logger}

	h.mux = http.NewServeMux()
	h.mux.HandleFunc("POST /api/sessions", h.create)
	h.mux.HandleFunc("GET /api/sessions", h.list)
	h.mux.HandleFunc("GET /api/sessions/{id}", h.get)
	h.mux.HandleFunc("PUT /api/sessions/{id}", h.update)
	h.mux.HandleFunc("DELETE /api/sessions/{id}", h.delete)
	h.mux.HandleFunc("POST /api/sessions/{id}/rounds", h.bumpRounds)

	return h
}

// Routes returns the HTTP routes this handler serves.
func (h *SessionsHandler) Routes() []string {
	return []string{
		"POST /api/sessions",
		"GET /api/sessions",
		"GET /api/sessions/{id}",
		"PUT /api/sessions/{id}",
		"DELETE /api/sessions/{id}",
		"POST /api/sessions/{id}/rounds",
	}
}

func (h *SessionsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// sessionPayload is the request and response shape for a session.
type sessionPayload struct {
	ID       string          `json:"id,omitempty"`
	Name     string          `json:"name"`
	Players  []string        `json:"players"`
	Settings models.Settings `json:"settings"`
	Rounds   int             `json:"rounds"`
}

func toPayload(s *models.Session) sessionPayload {
	return sessionPayload{
		ID:       s.ID(),
		Name:     s.Name(),
		Players:  s.Players(),
		Settings: s.Settings(),
		Rounds:   s.Rounds(),
	}
}

func (h *SessionsHandler) create(w http.ResponseWriter, r *http.Request) {
	var payload sessionPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "malformed session"})
		return
	}

	session := models.NewSession(0, payload.Name, payload.Players)
	session.SetSettings(payload.Settings)

	if err := h.repo.Create(session); err != nil {
		h.logger.Warn("failed to create session", "error", err)
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusCreated, toPayload(session))
}

func (h *SessionsHandler) list(w http.ResponseWriter, r *http.Request) {
	criteria := map[string]any{}
	if name := r.URL.Query().Get("name"); name != "" {
		criteria["name"] = name
	}

	sessions, err := h.repo.List(criteria)
	if err != nil {
		h.logger.Error("failed to list sessions", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "failed to list sessions"})
		return
	}

	payloads := make([]sessionPayload, 0, len(sessions))
	for _, s := range sessions {
		payloads = append(payloads, toPayload(s))
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": payloads})
}

func (h *SessionsHandler) get(w http.ResponseWriter, r *http.Request) {
	session, err := h.repo.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPayload(session))
}

func (h *SessionsHandler) update(w http.ResponseWriter, r *http.Request) {
	session, err := h.repo.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	var payload sessionPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "malformed session"})
		return
	}

	if payload.Name != "" {
		session.SetName(payload.Name)
	}
	if payload.Players != nil {
		session.SetPlayers(payload.Players)
	}
	session.SetSettings(payload.Settings)

	if err := h.repo.Update(session); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, toPayload(session))
}

func (h *SessionsHandler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.repo.Delete(r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// bumpRounds increments the round counter, called by the page at the end
// of each mini-game round.
func (h *SessionsHandler) bumpRounds(w http.ResponseWriter, r *http.Request) {
	session, err := h.repo.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	session.IncrementRounds()
	if err := h.repo.Update(session); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "failed to update session"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rounds": session.Rounds()})
}
