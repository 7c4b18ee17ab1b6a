package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/vors-gg/vors/internal/shared"
	"github.com/vors-gg/vors/internal/tokens"
	"golang.org/x/oauth2"
)

// SpotifyAuthURL is the Spotify authorization endpoint.
const SpotifyAuthURL = "https://accounts.spotify.com/authorize"

// Short-lived cookies carrying the PKCE exchange state across the redirect
// round trip. The verifier is encrypted like the tokens; the state value is
// random and only compared for equality.
const (
	verifierCookie   = "spotify_pkce_verifier"
	stateCookie      = "spotify_auth_state"
	exchangeLifetime = 10 * time.Minute
)

// spotifyScopes is everything the game page needs: reading and steering
// playback, plus reading playlists to queue from.
var spotifyScopes = []string{
	"user-read-playback-state",
	"user-modify-playback-state",
	"user-read-currently-playing",
	"playlist-read-private",
	"playlist-read-collaborative",
}

// AuthHandler owns the OAuth PKCE flow and the token lifecycle endpoints.
// Implements the [Handler] interface for registration with a [Router].
type AuthHandler struct {
	manager *tokens.Manager
	cipher  *tokens.Cipher
	config  *oauth2.Config
	policy  tokens.CookiePolicy
	logger  *log.Logger
	mux     *http.ServeMux
}

// AuthHandlerOpts configures an AuthHandler.
type AuthHandlerOpts struct {
	Manager *tokens.Manager
	Cipher  *tokens.Cipher
	// ClientID and RedirectURI must match the values registered with
	// Spotify; the redirect URI is used byte-identically at authorization
	// and exchange time.
	ClientID    string
	RedirectURI string
	AuthURL     string
	TokenURL    string
	Policy      tokens.CookiePolicy
	Logger      *log.Logger
}

// NewAuthHandler creates the auth endpoint group.
func NewAuthHandler(opts AuthHandlerOpts) *AuthHandler {
	if opts.AuthURL == "" {
		opts.AuthURL = SpotifyAuthURL
	}
	if opts.TokenURL == "" {
		opts.TokenURL = tokens.SpotifyTokenURL
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	h := &AuthHandler{
		manager: opts.Manager,
		cipher:  opts.Cipher,
		policy:  opts.Policy,
		logger:  opts.Logger,
		config: &oauth2.Config{
			ClientID:    opts.ClientID,
			RedirectURL: opts.RedirectURI,
			Scopes:      spotifyScopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  opts.AuthURL,
				TokenURL: opts.TokenURL,
			},
		},
	}

	h.mux = http.NewServeMux()
	h.mux.HandleFunc("GET /auth/login", h.login)
	h.mux.HandleFunc("GET /auth/callback", h.callback)
	h.mux.HandleFunc("POST /auth/exchange", h.exchange)
	h.mux.HandleFunc("POST /auth/refresh-token", h.refresh)
	h.mux.HandleFunc("POST /auth/logout", h.logout)
	h.mux.HandleFunc("GET /auth/status", h.status)
	h.mux.HandleFunc("GET /auth/validate", h.validate)

	return h
}

// Routes returns the HTTP routes this handler serves.
func (h *AuthHandler) Routes() []string {
	return []string{
		"GET /auth/login",
		"GET /auth/callback",
		"POST /auth/exchange",
		"POST /auth/refresh-token",
		"POST /auth/logout",
		"GET /auth/status",
		"GET /auth/validate",
	}
}

func (h *AuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// login starts the PKCE flow: generates the verifier and state, persists
// both for the redirect round trip, and sends the browser to the
// authorization server with an S256 challenge.
func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	verifier := oauth2.GenerateVerifier()
	state := shared.GenerateID()

	encrypted, err := h.cipher.Encrypt(verifier)
	if err != nil {
		h.logger.Error("failed to encrypt PKCE verifier", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "failed to start authorization"})
		return
	}

	jar := tokens.NewHTTPJar(w, r, h.policy)
	jar.Set(verifierCookie, encrypted, exchangeLifetime)
	jar.Set(stateCookie, state, exchangeLifetime)

	url := h.config.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))
	http.Redirect(w, r, url, http.StatusFound)
}

// callback completes the flow: validates state, consumes the verifier
// (single use), exchanges the code and stores the tokens.
func (h *AuthHandler) callback(w http.ResponseWriter, r *http.Request) {
	jar := tokens.NewHTTPJar(w, r, h.policy)

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Warn("authorization denied", "error", errParam)
		h.clearExchangeState(jar)
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": fmt.Sprintf("authorization failed: %s", errParam)})
		return
	}

	state := r.URL.Query().Get("state")
	if state == "" || state != jar.Get(stateCookie) {
		h.clearExchangeState(jar)
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid state parameter"})
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		h.clearExchangeState(jar)
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "missing authorization code"})
		return
	}

	verifier := h.readVerifier(jar)
	h.clearExchangeState(jar)
	if verifier == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "authorization session expired, start over"})
		return
	}

	if err := h.exchangeCode(r, jar, code, verifier); err != nil {
		h.logger.Error("code exchange failed", "error", err)
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "token exchange failed"})
		return
	}

	http.Redirect(w, r, "/", http.StatusFound)
}

// exchange trades a code + verifier supplied by page script for tokens.
// Kept for clients that ran the authorization redirect themselves; the
// verifier may come from the request body or from the login cookie.
func (h *AuthHandler) exchange(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Code     string `json:"code"`
		Verifier string `json:"code_verifier"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Code == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "code is required"})
		return
	}

	jar := tokens.NewHTTPJar(w, r, h.policy)
	verifier := body.Verifier
	if verifier == "" {
		verifier = h.readVerifier(jar)
	}
	h.clearExchangeState(jar)
	if verifier == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "code_verifier is required"})
		return
	}

	if err := h.exchangeCode(r, jar, body.Code, verifier); err != nil {
		h.logger.Error("code exchange failed", "error", err)
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "token exchange failed"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// refresh rotates the access token on behalf of the page. The raw token
// never appears in the response body: it stays inside the encrypted
// cookies, out of reach of page script.
func (h *AuthHandler) refresh(w http.ResponseWriter, r *http.Request) {
	jar := tokens.NewHTTPJar(w, r, h.policy)

	if _, err := h.manager.Refresh(r.Context(), jar); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"expires_at": h.manager.Store().Expiry(jar),
	})
}

// logout clears every token cookie unconditionally.
func (h *AuthHandler) logout(w http.ResponseWriter, r *http.Request) {
	jar := tokens.NewHTTPJar(w, r, h.policy)
	h.manager.Store().Clear(jar)
	h.clearExchangeState(jar)
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// status reports the stored token state for diagnostics.
func (h *AuthHandler) status(w http.ResponseWriter, r *http.Request) {
	jar := tokens.NewHTTPJar(w, r, h.policy)
	writeJSON(w, http.StatusOK, h.manager.Status(jar))
}

// validate answers the page's cheap "am I still logged in" poll.
func (h *AuthHandler) validate(w http.ResponseWriter, r *http.Request) {
	jar := tokens.NewHTTPJar(w, r, h.policy)
	writeJSON(w, http.StatusOK, map[string]any{
		"valid": h.manager.Store().IsValid(jar, tokens.DefaultValidityBuffer),
	})
}

// exchangeCode performs the authorization-code exchange and persists the
// resulting tokens.
func (h *AuthHandler) exchangeCode(r *http.Request, jar tokens.Jar, code, verifier string) error {
	token, err := h.config.Exchange(r.Context(), code, oauth2.VerifierOption(verifier))
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrExchangeFailed, err)
	}

	expiresIn := int(time.Until(token.Expiry).Seconds())
	if expiresIn <= 0 {
		expiresIn = 3600
	}

	return h.manager.Store().SetTokens(jar, token.AccessToken, token.RefreshToken, expiresIn)
}

// readVerifier decrypts the verifier cookie, or returns "" when absent or
// unreadable.
func (h *AuthHandler) readVerifier(jar tokens.Jar) string {
	encrypted := jar.Get(verifierCookie)
	if encrypted == "" {
		return ""
	}

	verifier, err := h.cipher.Decrypt(encrypted)
	if err != nil {
		h.logger.Error("failed to decrypt PKCE verifier", "error", err)
		return ""
	}
	return verifier
}

// clearExchangeState drops the redirect round-trip cookies. The verifier
// is single use.
func (h *AuthHandler) clearExchangeState(jar tokens.Jar) {
	jar.Remove(verifierCookie)
	jar.Remove(stateCookie)
}
