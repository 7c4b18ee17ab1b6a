package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/vors-gg/vors/internal/services"
	"github.com/vors-gg/vors/internal/shared"
	"github.com/vors-gg/vors/internal/tokens"
)

// PlayerHandler proxies playback actions to the Spotify Web API so the
// game page never handles the raw access token. Implements the [Handler]
// interface for registration with a [Router].
type PlayerHandler struct {
	client   *services.Client
	playback *services.PlaybackController
	queue    *services.QueueManager
	policy   tokens.CookiePolicy
	logger   *log.Logger
	mux      *http.ServeMux
}

// PlayerHandlerOpts configures a PlayerHandler.
type PlayerHandlerOpts struct {
	Client   *services.Client
	Playback *services.PlaybackController
	Queue    *services.QueueManager
	Policy   tokens.CookiePolicy
	Logger   *log.Logger
}

// NewPlayerHandler creates the player proxy endpoint group.
func NewPlayerHandler(opts PlayerHandlerOpts) *PlayerHandler {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	h := &PlayerHandler{
		client:   opts.Client,
		playback: opts.Playback,
		queue:    opts.Queue,
		policy:   opts.Policy,
		logger:   opts.Logger,
	}

	h.mux = http.NewServeMux()
	h.mux.HandleFunc("GET /api/spotify/player", h.playerState)
	h.mux.HandleFunc("GET /api/spotify/player/currently-playing", h.currentlyPlaying)
	h.mux.HandleFunc("GET /api/spotify/player/devices", h.devices)
	h.mux.HandleFunc("PUT /api/spotify/player/play", h.play)
	h.mux.HandleFunc("PUT /api/spotify/player/pause", h.pause)
	h.mux.HandleFunc("POST /api/spotify/player/next", h.next)
	h.mux.HandleFunc("POST /api/spotify/player/previous", h.previous)
	h.mux.HandleFunc("PUT /api/spotify/player/volume", h.volume)
	h.mux.HandleFunc("PUT /api/spotify/player/shuffle", h.shuffle)
	h.mux.HandleFunc("POST /api/spotify/player/queue", h.queueTrack)
	h.mux.HandleFunc("POST /api/spotify/player/queue/batch", h.queueBatch)
	h.mux.HandleFunc("GET /api/spotify/playlists/{id}/tracks", h.playlistTracks)
	h.mux.HandleFunc("GET /api/spotify/albums/{id}/tracks", h.albumTracks)

	return h
}

// Routes returns the HTTP routes this handler serves.
func (h *PlayerHandler) Routes() []string {
	return []string{
		"GET /api/spotify/player",
		"GET /api/spotify/player/currently-playing",
		"GET /api/spotify/player/devices",
		"PUT /api/spotify/player/play",
		"PUT /api/spotify/player/pause",
		"POST /api/spotify/player/next",
		"POST /api/spotify/player/previous",
		"PUT /api/spotify/player/volume",
		"PUT /api/spotify/player/shuffle",
		"POST /api/spotify/player/queue",
		"POST /api/spotify/player/queue/batch",
		"GET /api/spotify/playlists/{id}/tracks",
		"GET /api/spotify/albums/{id}/tracks",
	}
}

func (h *PlayerHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *PlayerHandler) jar(w http.ResponseWriter, r *http.Request) *tokens.HTTPJar {
	return tokens.NewHTTPJar(w, r, h.policy)
}

// playerState reports the playback state. A 204 upstream means nothing is
// playing, not "no device": it is reported as is_playing false and never
// triggers device activation by itself.
func (h *PlayerHandler) playerState(w http.ResponseWriter, r *http.Request) {
	state, err := h.client.PlaybackState(r.Context(), h.jar(w, r))
	if err != nil {
		writeError(w, err)
		return
	}
	if state == nil {
		writeJSON(w, http.StatusOK, map[string]any{"is_playing": false})
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (h *PlayerHandler) currentlyPlaying(w http.ResponseWriter, r *http.Request) {
	state, err := h.client.CurrentlyPlaying(r.Context(), h.jar(w, r))
	if err != nil {
		writeError(w, err)
		return
	}
	if state == nil {
		writeJSON(w, http.StatusOK, map[string]any{"is_playing": false})
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (h *PlayerHandler) devices(w http.ResponseWriter, r *http.Request) {
	devices, err := h.client.Devices(r.Context(), h.jar(w, r))
	if err != nil {
		writeError(w, err)
		return
	}
	if devices == nil {
		devices = []services.Device{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"devices": devices})
}

// play starts playback, activating the best available device first when
// none is active.
func (h *PlayerHandler) play(w http.ResponseWriter, r *http.Request) {
	jar := h.jar(w, r)

	var opts services.PlayOptions
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&opts); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "malformed play options"})
			return
		}
	}

	if opts.DeviceID == "" {
		deviceID, err := h.playback.EnsureActiveDevice(r.Context(), jar)
		if err != nil {
			writeError(w, err)
			return
		}
		opts.DeviceID = deviceID
	}

	if err := h.client.Play(r.Context(), jar, opts); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *PlayerHandler) pause(w http.ResponseWriter, r *http.Request) {
	if err := h.client.Pause(r.Context(), h.jar(w, r)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *PlayerHandler) next(w http.ResponseWriter, r *http.Request) {
	if err := h.client.Next(r.Context(), h.jar(w, r)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *PlayerHandler) previous(w http.ResponseWriter, r *http.Request) {
	if err := h.client.Previous(r.Context(), h.jar(w, r)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *PlayerHandler) volume(w http.ResponseWriter, r *http.Request) {
	percent, err := strconv.Atoi(r.URL.Query().Get("volume_percent"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "volume_percent must be an integer"})
		return
	}

	if err := h.client.SetVolume(r.Context(), h.jar(w, r), percent); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *PlayerHandler) shuffle(w http.ResponseWriter, r *http.Request) {
	state, err := strconv.ParseBool(r.URL.Query().Get("state"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "state must be a boolean"})
		return
	}

	if err := h.client.SetShuffle(r.Context(), h.jar(w, r), state); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *PlayerHandler) queueTrack(w http.ResponseWriter, r *http.Request) {
	uri := r.URL.Query().Get("uri")
	if uri == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "uri is required"})
		return
	}

	if err := h.queue.QueueTrack(r.Context(), h.jar(w, r), uri); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *PlayerHandler) queueBatch(w http.ResponseWriter, r *http.Request) {
	var body struct {
		URIs []string `json:"uris"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || len(body.URIs) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "uris is required"})
		return
	}

	result := h.queue.QueueTracks(r.Context(), h.jar(w, r), body.URIs)
	writeJSON(w, http.StatusOK, result)
}

func (h *PlayerHandler) playlistTracks(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	page, err := h.client.PlaylistTracks(r.Context(), h.jar(w, r), r.PathValue("id"), limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *PlayerHandler) albumTracks(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	page, err := h.client.AlbumTracks(r.Context(), h.jar(w, r), r.PathValue("id"), limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func pagination(r *http.Request) (limit, offset int) {
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
