package tokens

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/vors-gg/vors/internal/shared"
	"golang.org/x/sync/singleflight"
)

// SpotifyTokenURL is the Spotify authorization server's token endpoint.
const SpotifyTokenURL = "https://accounts.spotify.com/api/token"

// RetryConfig bounds the refresh retry loop.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Multiplier  int
}

// DefaultRetryConfig matches the documented refresh policy: three attempts,
// exponential backoff from 1s doubling up to a 10s cap.
var DefaultRetryConfig = RetryConfig{
	MaxAttempts: 3,
	BaseDelay:   time.Second,
	MaxDelay:    10 * time.Second,
	Multiplier:  2,
}

// Backoff returns the delay before the given retry attempt (1-based).
func (c RetryConfig) Backoff(attempt int) time.Duration {
	delay := c.BaseDelay
	for i := 1; i < attempt; i++ {
		delay *= time.Duration(c.Multiplier)
	}
	if delay > c.MaxDelay {
		delay = c.MaxDelay
	}
	return delay
}

// RefreshError describes a failed call to the token endpoint, carrying the
// HTTP status and the OAuth error code from the response body.
type RefreshError struct {
	Status      int
	Code        string
	Description string
}

func (e *RefreshError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("token endpoint error: status %d: %s", e.Status, e.Code)
	}
	return fmt.Sprintf("token endpoint error: status %d", e.Status)
}

// Terminal reports whether retrying cannot succeed: an invalid_grant
// response or any 4xx other than 401/429 means the refresh token itself is
// bad and the user must re-authenticate.
func (e *RefreshError) Terminal() bool {
	if e.Status == http.StatusBadRequest && e.Code == "invalid_grant" {
		return true
	}
	return e.Status >= 400 && e.Status < 500 &&
		e.Status != http.StatusUnauthorized && e.Status != http.StatusTooManyRequests
}

// TokenStatus summarizes the stored token state for diagnostics.
type TokenStatus struct {
	HasToken         bool  `json:"has_token"`
	IsValid          bool  `json:"is_valid"`
	NeedsRefresh     bool  `json:"needs_refresh"`
	ExpiresAt        int64 `json:"expires_at,omitempty"`
	TimeUntilExpiry  int64 `json:"time_until_expiry_ms,omitempty"`
	ExpiresInMinutes int64 `json:"expires_in_minutes,omitempty"`
}

// tokenResponse is the token endpoint's success body.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	Scope        string `json:"scope"`
}

// Manager produces currently-valid access tokens, refreshing through the
// token endpoint only when the stored token is stale. Concurrent refreshes
// for the same refresh token are deduplicated: one network call wins and
// every waiting caller observes its result.
type Manager struct {
	store      *Store
	clientID   string
	tokenURL   string
	httpClient *http.Client
	logger     *log.Logger
	retry      RetryConfig
	group      singleflight.Group
	sleep      func(ctx context.Context, d time.Duration) error
}

// ManagerOpts configures a Manager. Zero-value fields fall back to
// production defaults.
type ManagerOpts struct {
	Store      *Store
	ClientID   string
	TokenURL   string
	HTTPClient *http.Client
	Logger     *log.Logger
	Retry      RetryConfig
}

// NewManager creates a Manager over the given store and Spotify client ID.
func NewManager(opts ManagerOpts) *Manager {
	if opts.TokenURL == "" {
		opts.TokenURL = SpotifyTokenURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = DefaultRetryConfig
	}

	return &Manager{
		store:      opts.Store,
		clientID:   opts.ClientID,
		tokenURL:   opts.TokenURL,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		retry:      opts.Retry,
		sleep:      sleepContext,
	}
}

// Store exposes the underlying token store.
func (m *Manager) Store() *Store {
	return m.store
}

// ValidToken returns a usable access token, refreshing transparently when
// the stored one is within the validity buffer of expiring. Returns
// [shared.ErrNoRefreshToken] or [shared.ErrRefreshFailed] when the caller
// must re-authenticate.
func (m *Manager) ValidToken(ctx context.Context, jar Jar) (string, error) {
	if m.store.IsValid(jar, DefaultValidityBuffer) {
		if token := m.store.AccessToken(jar); token != "" {
			return token, nil
		}
	}
	return m.Refresh(ctx, jar)
}

// Refresh exchanges the stored refresh token for a new access token,
// unconditionally. The API client uses this after a 401 even when the
// stored token still looked valid: Spotify is the ground truth.
func (m *Manager) Refresh(ctx context.Context, jar Jar) (string, error) {
	refreshToken := m.store.RefreshToken(jar)
	if refreshToken == "" {
		return "", shared.ErrNoRefreshToken
	}

	// Collapse concurrent refreshes for the same token into one network
	// call. Spotify may invalidate a refresh token after first use, so
	// letting N callers race would fail N-1 of them spuriously. The
	// in-flight entry is dropped as soon as the call settles.
	result, err, _ := m.group.Do(fingerprint(refreshToken), func() (any, error) {
		return m.performRefresh(ctx, jar, refreshToken)
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

// Status reports the stored token state for the status endpoint.
func (m *Manager) Status(jar Jar) TokenStatus {
	data := m.store.All(jar)
	if data == nil {
		return TokenStatus{}
	}

	untilExpiry := data.ExpiresAt - time.Now().UnixMilli()
	return TokenStatus{
		HasToken:         true,
		IsValid:          data.IsValid,
		NeedsRefresh:     !m.store.IsValid(jar, DefaultValidityBuffer),
		ExpiresAt:        data.ExpiresAt,
		TimeUntilExpiry:  untilExpiry,
		ExpiresInMinutes: untilExpiry / 60_000,
	}
}

// performRefresh runs the retry loop around the token endpoint call and
// persists the outcome. A response carrying a new refresh token rotates the
// full bundle; otherwise only the access token is updated.
func (m *Manager) performRefresh(ctx context.Context, jar Jar, refreshToken string) (string, error) {
	var lastErr error

	for attempt := 1; attempt <= m.retry.MaxAttempts; attempt++ {
		if attempt > 1 {
			delay := m.retry.Backoff(attempt - 1)
			m.logger.Info("retrying token refresh", "attempt", attempt, "max", m.retry.MaxAttempts, "delay", delay)
			if err := m.sleep(ctx, delay); err != nil {
				return "", err
			}
		}

		resp, err := m.requestRefresh(ctx, refreshToken)
		if err == nil {
			if resp.AccessToken == "" {
				err = fmt.Errorf("%w: token endpoint returned no access token", shared.ErrRefreshFailed)
			} else {
				if resp.RefreshToken != "" {
					err = m.store.SetTokens(jar, resp.AccessToken, resp.RefreshToken, resp.ExpiresIn)
				} else {
					err = m.store.UpdateAccessToken(jar, resp.AccessToken, resp.ExpiresIn)
				}
				if err == nil {
					m.logger.Debug("token refresh successful")
					return resp.AccessToken, nil
				}
			}
		}

		lastErr = err
		m.logger.Warn("token refresh attempt failed", "attempt", attempt, "error", err)

		var refreshErr *RefreshError
		if errors.As(err, &refreshErr) && refreshErr.Terminal() {
			m.logger.Warn("non-retryable refresh error, stopping", "status", refreshErr.Status, "code", refreshErr.Code)
			break
		}
	}

	return "", fmt.Errorf("%w: %v", shared.ErrRefreshFailed, lastErr)
}

// requestRefresh performs one POST to the token endpoint.
func (m *Manager) requestRefresh(ctx context.Context, refreshToken string) (*tokenResponse, error) {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
		"client_id":     {m.clientID},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("refresh request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var oauthErr struct {
			Error       string `json:"error"`
			Description string `json:"error_description"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&oauthErr)
		return nil, &RefreshError{Status: resp.StatusCode, Code: oauthErr.Error, Description: oauthErr.Description}
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}
	return &tr, nil
}

// fingerprint derives the dedup key from the trailing bytes of a refresh
// token. It only needs to disambiguate concurrent operations, not be
// cryptographically unique.
func fingerprint(refreshToken string) string {
	tail := refreshToken
	if len(tail) > 10 {
		tail = tail[len(tail)-10:]
	}
	return base64.StdEncoding.EncodeToString([]byte(tail))
}

// sleepContext waits for the duration or the context, whichever ends first.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
