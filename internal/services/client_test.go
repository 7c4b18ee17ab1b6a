package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vors-gg/vors/internal/shared"
	tu "github.com/vors-gg/vors/internal/testing"
	"github.com/vors-gg/vors/internal/tokens"
)

// newTestClient builds a Client whose token manager refreshes against
// tokenURL. The returned jar holds a fresh access token so requests hit
// the API without refreshing first.
func newTestClient(t *testing.T, apiURL, tokenURL string) (*Client, *tu.MemoryJar) {
	t.Helper()

	cipher, err := tokens.NewCipher(tu.EncryptionKey)
	if err != nil {
		t.Fatalf("failed to create cipher: %v", err)
	}
	logger := shared.NewLogger(io.Discard)
	store := tokens.NewStore(cipher, logger)

	manager := tokens.NewManager(tokens.ManagerOpts{
		Store:    store,
		ClientID: "test-client",
		TokenURL: tokenURL,
		Logger:   logger,
	})

	client := NewClient(ClientOpts{
		Manager: manager,
		BaseURL: apiURL,
		Logger:  logger,
	})
	client.sleep = func(context.Context, time.Duration) error { return nil }

	jar := tu.NewMemoryJar()
	if err := store.SetTokens(jar, "valid-token", "refresh-1", 3600); err != nil {
		t.Fatalf("SetTokens failed: %v", err)
	}
	return client, jar
}

// tokenEndpoint answers every refresh with the given access token.
func tokenEndpoint(accessToken string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": accessToken,
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	}))
}

func TestClient(t *testing.T) {
	t.Run("Request", func(t *testing.T) {
		t.Run("Success With Body", func(t *testing.T) {
			api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if got := r.Header.Get("Authorization"); got != "Bearer valid-token" {
					t.Errorf("unexpected Authorization header: %q", got)
				}
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{"is_playing":true}`))
			}))
			defer api.Close()

			client, jar := newTestClient(t, api.URL, "http://127.0.0.1:0")
			raw, err := client.Request(context.Background(), jar, http.MethodGet, "/me/player", nil)
			if err != nil {
				t.Fatalf("Request failed: %v", err)
			}
			if string(raw) != `{"is_playing":true}` {
				t.Errorf("unexpected body: %s", raw)
			}
		})

		t.Run("No Content Yields Nil Data", func(t *testing.T) {
			api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNoContent)
			}))
			defer api.Close()

			client, jar := newTestClient(t, api.URL, "http://127.0.0.1:0")
			raw, err := client.Request(context.Background(), jar, http.MethodGet, "/me/player", nil)
			if err != nil {
				t.Fatalf("Request failed: %v", err)
			}
			if raw != nil {
				t.Errorf("expected nil data for 204, got %s", raw)
			}
		})

		t.Run("No Token Means No Network Call", func(t *testing.T) {
			var calls atomic.Int32
			api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
			}))
			defer api.Close()

			client, _ := newTestClient(t, api.URL, "http://127.0.0.1:0")
			_, err := client.Request(context.Background(), tu.NewMemoryJar(), http.MethodGet, "/me/player", nil)
			if !errors.Is(err, shared.ErrNoRefreshToken) {
				t.Errorf("expected ErrNoRefreshToken, got %v", err)
			}
			if calls.Load() != 0 {
				t.Errorf("expected no API calls, got %d", calls.Load())
			}
		})

		t.Run("Error Body And Retry-After Parsed", func(t *testing.T) {
			api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				_, _ = w.Write([]byte(`{"error":{"status":403,"message":"Player command failed: Premium required"}}`))
			}))
			defer api.Close()

			client, jar := newTestClient(t, api.URL, "http://127.0.0.1:0")
			_, err := client.Request(context.Background(), jar, http.MethodPut, "/me/player/play", nil)

			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected *APIError, got %v", err)
			}
			if apiErr.Status != http.StatusForbidden {
				t.Errorf("expected status 403, got %d", apiErr.Status)
			}
			if apiErr.Message != "Player command failed: Premium required" {
				t.Errorf("unexpected message: %q", apiErr.Message)
			}
		})
	})

	t.Run("Recovery", func(t *testing.T) {
		t.Run("Single Retry After 401", func(t *testing.T) {
			tokenSrv := tokenEndpoint("refreshed-token")
			defer tokenSrv.Close()

			var calls atomic.Int32
			api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if calls.Add(1) == 1 {
					w.WriteHeader(http.StatusUnauthorized)
					return
				}
				if got := r.Header.Get("Authorization"); got != "Bearer refreshed-token" {
					t.Errorf("retry should carry the refreshed token, got %q", got)
				}
				_, _ = w.Write([]byte(`{"ok":true}`))
			}))
			defer api.Close()

			client, jar := newTestClient(t, api.URL, tokenSrv.URL)
			raw, err := client.Request(context.Background(), jar, http.MethodGet, "/me/player", nil)
			if err != nil {
				t.Fatalf("Request failed: %v", err)
			}
			if string(raw) != `{"ok":true}` {
				t.Errorf("unexpected body: %s", raw)
			}
			if got := calls.Load(); got != 2 {
				t.Errorf("expected exactly 2 API attempts, got %d", got)
			}
		})

		t.Run("Second 401 Is Terminal", func(t *testing.T) {
			tokenSrv := tokenEndpoint("refreshed-token")
			defer tokenSrv.Close()

			var calls atomic.Int32
			api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(http.StatusUnauthorized)
			}))
			defer api.Close()

			client, jar := newTestClient(t, api.URL, tokenSrv.URL)
			_, err := client.Request(context.Background(), jar, http.MethodGet, "/me/player", nil)
			if !errors.Is(err, shared.ErrNotAuthenticated) {
				t.Errorf("expected ErrNotAuthenticated, got %v", err)
			}
			if got := calls.Load(); got != 2 {
				t.Errorf("expected exactly 2 API attempts, got %d", got)
			}
		})

		t.Run("429 Sleeps Retry-After Then Retries Once", func(t *testing.T) {
			var calls atomic.Int32
			api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if calls.Add(1) == 1 {
					w.Header().Set("Retry-After", "3")
					w.WriteHeader(http.StatusTooManyRequests)
					return
				}
				_, _ = w.Write([]byte(`{"ok":true}`))
			}))
			defer api.Close()

			client, jar := newTestClient(t, api.URL, "http://127.0.0.1:0")
			var slept time.Duration
			client.sleep = func(_ context.Context, d time.Duration) error {
				slept = d
				return nil
			}

			if _, err := client.Request(context.Background(), jar, http.MethodGet, "/me/player", nil); err != nil {
				t.Fatalf("Request failed: %v", err)
			}
			if slept != 3*time.Second {
				t.Errorf("expected 3s sleep from Retry-After, got %v", slept)
			}
			if got := calls.Load(); got != 2 {
				t.Errorf("expected exactly 2 API attempts, got %d", got)
			}
		})

		t.Run("429 Without Retry-After Defaults To One Second", func(t *testing.T) {
			var calls atomic.Int32
			api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(http.StatusTooManyRequests)
			}))
			defer api.Close()

			client, jar := newTestClient(t, api.URL, "http://127.0.0.1:0")
			var slept time.Duration
			client.sleep = func(_ context.Context, d time.Duration) error {
				slept = d
				return nil
			}

			_, err := client.Request(context.Background(), jar, http.MethodGet, "/me/player", nil)
			var apiErr *APIError
			if !errors.As(err, &apiErr) || apiErr.Status != http.StatusTooManyRequests {
				t.Errorf("expected surfaced 429 after one retry, got %v", err)
			}
			if slept != time.Second {
				t.Errorf("expected default 1s sleep, got %v", slept)
			}
			if got := calls.Load(); got != 2 {
				t.Errorf("expected exactly 2 API attempts, got %d", got)
			}
		})

		t.Run("Other Errors Surface Without Retry", func(t *testing.T) {
			var calls atomic.Int32
			api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(http.StatusNotFound)
			}))
			defer api.Close()

			client, jar := newTestClient(t, api.URL, "http://127.0.0.1:0")
			_, err := client.Request(context.Background(), jar, http.MethodGet, "/playlists/nope/tracks", nil)

			var apiErr *APIError
			if !errors.As(err, &apiErr) || apiErr.Status != http.StatusNotFound {
				t.Errorf("expected 404 APIError, got %v", err)
			}
			if got := calls.Load(); got != 1 {
				t.Errorf("expected a single API attempt, got %d", got)
			}
		})
	})
}
