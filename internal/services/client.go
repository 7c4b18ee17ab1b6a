// Authenticated HTTP client for the Spotify Web API
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/vors-gg/vors/internal/shared"
	"github.com/vors-gg/vors/internal/tokens"
)

// SpotifyAPIBaseURL is the Spotify Web API root.
const SpotifyAPIBaseURL = "https://api.spotify.com/v1"

// APIError is a non-2xx outcome from the remote API after the client's own
// one-shot recovery. It carries the HTTP status, the structured error
// message from the response body, and any Retry-After hint.
type APIError struct {
	Status     int
	Message    string
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("spotify API error: status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("spotify API error: status %d", e.Status)
}

// Client performs authenticated calls against the Spotify Web API. Tokens
// come from the [tokens.Manager]; a 401 triggers one forced refresh and one
// retry, a 429 one Retry-After sleep and one retry. A second failure of
// either kind surfaces to the caller.
type Client struct {
	manager    *tokens.Manager
	baseURL    string
	httpClient *http.Client
	logger     *log.Logger
	sleep      func(ctx context.Context, d time.Duration) error
}

// ClientOpts configures a Client. Zero-value fields fall back to production
// defaults.
type ClientOpts struct {
	Manager    *tokens.Manager
	BaseURL    string
	HTTPClient *http.Client
	Logger     *log.Logger
}

// NewClient creates a Client over the given token manager.
func NewClient(opts ClientOpts) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = SpotifyAPIBaseURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	return &Client{
		manager:    opts.Manager,
		baseURL:    opts.BaseURL,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		sleep: func(ctx context.Context, d time.Duration) error {
			timer := time.NewTimer(d)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-timer.C:
				return nil
			}
		},
	}
}

// Manager exposes the underlying token manager.
func (c *Client) Manager() *tokens.Manager {
	return c.manager
}

// Request performs one authenticated call. A 204 (or empty body) yields nil
// data; a non-2xx yields a *APIError. Returns [shared.ErrNoRefreshToken] or
// [shared.ErrRefreshFailed] without touching the network when no token is
// obtainable, and [shared.ErrNotAuthenticated] when the remote rejects a
// freshly refreshed token.
func (c *Client) Request(ctx context.Context, jar tokens.Jar, method, endpoint string, body any) (json.RawMessage, error) {
	return c.request(ctx, jar, method, endpoint, body, false)
}

func (c *Client) request(ctx context.Context, jar tokens.Jar, method, endpoint string, body any, isRetry bool) (json.RawMessage, error) {
	token, err := c.manager.ValidToken(ctx, jar)
	if err != nil {
		return nil, err
	}

	data, err := c.do(ctx, token, method, endpoint, body)
	if err == nil {
		return data, nil
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) || isRetry {
		if apiErr != nil && apiErr.Status == http.StatusUnauthorized {
			// The token was refreshed for this retry and still rejected.
			return nil, fmt.Errorf("%w: token rejected after refresh", shared.ErrNotAuthenticated)
		}
		return nil, err
	}

	switch apiErr.Status {
	case http.StatusUnauthorized:
		// The remote service is the ground truth: refresh even though the
		// stored token looked valid, then retry exactly once.
		c.logger.Info("401 from API, forcing token refresh", "endpoint", endpoint)
		if _, refreshErr := c.manager.Refresh(ctx, jar); refreshErr != nil {
			return nil, refreshErr
		}
		return c.request(ctx, jar, method, endpoint, body, true)
	case http.StatusTooManyRequests:
		delay := apiErr.RetryAfter
		if delay <= 0 {
			delay = time.Second
		}
		c.logger.Warn("rate limited by API, backing off", "endpoint", endpoint, "delay", delay)
		if sleepErr := c.sleep(ctx, delay); sleepErr != nil {
			return nil, sleepErr
		}
		return c.request(ctx, jar, method, endpoint, body, true)
	default:
		return nil, err
	}
}

// do issues one HTTP call with the bearer header attached and normalizes
// the outcome.
func (c *Client) do(ctx context.Context, token, method, endpoint string, body any) (json.RawMessage, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", shared.ErrAPIRequest, err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if resp.StatusCode == http.StatusNoContent || len(raw) == 0 {
			return nil, nil
		}
		return json.RawMessage(raw), nil
	}

	return nil, newAPIError(resp, raw)
}

// newAPIError builds an *APIError from a non-2xx response, pulling the
// message from Spotify's {"error":{"status","message"}} body shape when
// present.
func newAPIError(resp *http.Response, raw []byte) *APIError {
	apiErr := &APIError{Status: resp.StatusCode}

	var body struct {
		Error struct {
			Status  int    `json:"status"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && body.Error.Message != "" {
		apiErr.Message = body.Error.Message
	}

	if header := resp.Header.Get("Retry-After"); header != "" {
		if seconds, err := strconv.Atoi(header); err == nil && seconds > 0 {
			apiErr.RetryAfter = time.Duration(seconds) * time.Second
		}
	}

	return apiErr
}
