package server

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/vors-gg/vors/internal/shared"
	tu "github.com/vors-gg/vors/internal/testing"
	"github.com/vors-gg/vors/internal/tokens"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
}

func TestMiddleware(t *testing.T) {
	t.Run("SecurityHeaders", func(t *testing.T) {
		t.Run("Development", func(t *testing.T) {
			rec := httptest.NewRecorder()
			SecurityHeaders(false)(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

			if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
				t.Error("expected nosniff header")
			}
			if rec.Header().Get("Strict-Transport-Security") != "" {
				t.Error("HSTS must not be set outside production")
			}
		})

		t.Run("Production Adds HSTS", func(t *testing.T) {
			rec := httptest.NewRecorder()
			SecurityHeaders(true)(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

			if rec.Header().Get("Strict-Transport-Security") == "" {
				t.Error("expected HSTS header in production")
			}
		})
	})

	t.Run("CORS", func(t *testing.T) {
		t.Run("Allowed Origin With Credentials", func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/spotify/player", nil)
			req.Header.Set("Origin", "http://127.0.0.1:5173")

			rec := httptest.NewRecorder()
			CORS("http://127.0.0.1:5173")(okHandler()).ServeHTTP(rec, req)

			if rec.Header().Get("Access-Control-Allow-Origin") != "http://127.0.0.1:5173" {
				t.Error("expected origin to be allowed")
			}
			if rec.Header().Get("Access-Control-Allow-Credentials") != "true" {
				t.Error("cookies must be allowed to travel cross-origin")
			}
		})

		t.Run("Preflight Short-Circuits", func(t *testing.T) {
			req := httptest.NewRequest(http.MethodOptions, "/api/spotify/player", nil)
			req.Header.Set("Origin", "http://127.0.0.1:5173")

			rec := httptest.NewRecorder()
			CORS("http://127.0.0.1:5173")(okHandler()).ServeHTTP(rec, req)

			if rec.Code != http.StatusNoContent {
				t.Errorf("expected 204 for preflight, got %d", rec.Code)
			}
		})

		t.Run("Other Origins Ignored", func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Origin", "http://evil.example")

			rec := httptest.NewRecorder()
			CORS("http://127.0.0.1:5173")(okHandler()).ServeHTTP(rec, req)

			if rec.Header().Get("Access-Control-Allow-Origin") != "" {
				t.Error("unknown origins must not be allowed")
			}
		})
	})

	t.Run("RequireAuth", func(t *testing.T) {
		cipher, err := tokens.NewCipher(tu.EncryptionKey)
		if err != nil {
			t.Fatalf("failed to create cipher: %v", err)
		}
		store := tokens.NewStore(cipher, shared.NewLogger(io.Discard))
		gate := RequireAuth(store, tokens.DefaultPolicy(false))

		t.Run("API Request Without Tokens Gets JSON 401", func(t *testing.T) {
			rec := httptest.NewRecorder()
			gate(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/spotify/player", nil))

			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", rec.Code)
			}
			if !strings.Contains(rec.Body.String(), "authentication required") {
				t.Errorf("expected JSON error body, got %s", rec.Body.String())
			}
		})

		t.Run("Browser Request Without Tokens Redirects", func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/game", nil)
			req.Header.Set("Accept", "text/html")

			rec := httptest.NewRecorder()
			gate(okHandler()).ServeHTTP(rec, req)

			if rec.Code != http.StatusFound {
				t.Fatalf("expected redirect, got %d", rec.Code)
			}
			if rec.Header().Get("Location") != "/auth/login" {
				t.Errorf("expected redirect to login, got %s", rec.Header().Get("Location"))
			}
		})

		t.Run("Refresh Token Alone Passes", func(t *testing.T) {
			// An expired access token is fine: the client refreshes it
			// transparently on the next API call.
			jar := tu.NewMemoryJar()
			if err := store.SetTokens(jar, "stale", "refresh-1", 0); err != nil {
				t.Fatalf("SetTokens failed: %v", err)
			}

			req := httptest.NewRequest(http.MethodGet, "/api/spotify/player", nil)
			req.AddCookie(&http.Cookie{Name: tokens.RefreshTokenCookie, Value: jar.Values[tokens.RefreshTokenCookie]})

			rec := httptest.NewRecorder()
			gate(okHandler()).ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				t.Errorf("expected gate to pass with a refresh token, got %d", rec.Code)
			}
		})
	})

	t.Run("RequestLogger Passes Through", func(t *testing.T) {
		rec := httptest.NewRecorder()
		RequestLogger(shared.NewLogger(io.Discard))(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
			t.Errorf("expected pass-through, got %d %q", rec.Code, rec.Body.String())
		}
	})
}

func TestBasicRouter(t *testing.T) {
	t.Run("Method Patterns", func(t *testing.T) {
		router := NewBasicRouter()
		router.Handle(http.MethodGet, "/ping", okHandler())

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
		if rec.Code != http.StatusOK {
			t.Errorf("expected 200 for GET, got %d", rec.Code)
		}

		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/ping", nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected 405 for POST, got %d", rec.Code)
		}
	})

	t.Run("Middleware Order", func(t *testing.T) {
		var order []string
		mw := func(name string) Middleware {
			return func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					order = append(order, name)
					next.ServeHTTP(w, r)
				})
			}
		}

		router := NewBasicRouter()
		router.Use(mw("first"), mw("second"))
		router.Handle(http.MethodGet, "/ping", okHandler())

		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ping", nil))

		if len(order) != 2 || order[0] != "first" || order[1] != "second" {
			t.Errorf("expected first-added middleware to run first, got %v", order)
		}
	})

	t.Run("Protected Scopes Middleware To One Handler", func(t *testing.T) {
		cipher, err := tokens.NewCipher(tu.EncryptionKey)
		if err != nil {
			t.Fatalf("failed to create cipher: %v", err)
		}
		store := tokens.NewStore(cipher, shared.NewLogger(io.Discard))

		router := NewBasicRouter()
		router.Handler(Protected(&staticHandler{route: "GET /api/private"}, RequireAuth(store, tokens.DefaultPolicy(false))))
		router.Handler(&staticHandler{route: "GET /public"})

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/private", nil))
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected gated route to 401, got %d", rec.Code)
		}

		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/public", nil))
		if rec.Code != http.StatusOK {
			t.Errorf("expected open route to pass, got %d", rec.Code)
		}
	})
}

// staticHandler serves one route with a 200.
type staticHandler struct {
	route string
}

func (h *staticHandler) Routes() []string { return []string{h.route} }

func (h *staticHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
