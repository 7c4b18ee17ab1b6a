package tokens

import (
	"net/http"
	"time"
)

// Cookie names for the persisted token fields. Only token_expiry and
// token_type carry plaintext; the token cookies hold encrypted payloads.
const (
	AccessTokenCookie  = "spotify_access_token"
	RefreshTokenCookie = "spotify_refresh_token"
	TokenExpiryCookie  = "spotify_token_expiry"
	TokenTypeCookie    = "spotify_token_type"
)

// Jar is the narrow cookie capability the token layer depends on.
// An adapter implements it per host framework; the core never sees the
// framework's concrete cookie type.
type Jar interface {
	// Get returns the named cookie's value, or "" when absent.
	Get(name string) string
	// Set writes a cookie with the given lifetime.
	Set(name, value string, maxAge time.Duration)
	// Remove deletes the named cookie.
	Remove(name string)
}

// CookiePolicy carries the environment-dependent cookie attributes.
// Production uses Secure + strict SameSite; development relaxes both so the
// flow works over plain HTTP on a loopback address.
type CookiePolicy struct {
	Secure   bool
	SameSite http.SameSite
	Path     string
}

// DefaultPolicy returns the cookie attributes for the given environment.
func DefaultPolicy(production bool) CookiePolicy {
	if production {
		return CookiePolicy{Secure: true, SameSite: http.SameSiteStrictMode, Path: "/"}
	}
	return CookiePolicy{Secure: false, SameSite: http.SameSiteLaxMode, Path: "/"}
}

// HTTPJar adapts one request/response pair to the [Jar] interface.
// Writes are mirrored into an overlay map so reads within the same request
// observe values set earlier in the request (net/http response cookies are
// otherwise write-only).
type HTTPJar struct {
	r       *http.Request
	w       http.ResponseWriter
	policy  CookiePolicy
	overlay map[string]string
	removed map[string]bool
}

// NewHTTPJar creates a Jar over the given response writer and request.
func NewHTTPJar(w http.ResponseWriter, r *http.Request, policy CookiePolicy) *HTTPJar {
	if policy.Path == "" {
		policy.Path = "/"
	}
	return &HTTPJar{
		r:       r,
		w:       w,
		policy:  policy,
		overlay: make(map[string]string),
		removed: make(map[string]bool),
	}
}

func (j *HTTPJar) Get(name string) string {
	if j.removed[name] {
		return ""
	}
	if v, ok := j.overlay[name]; ok {
		return v
	}
	c, err := j.r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}

func (j *HTTPJar) Set(name, value string, maxAge time.Duration) {
	http.SetCookie(j.w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     j.policy.Path,
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   j.policy.Secure,
		SameSite: j.policy.SameSite,
	})
	j.overlay[name] = value
	delete(j.removed, name)
}

func (j *HTTPJar) Remove(name string) {
	http.SetCookie(j.w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     j.policy.Path,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   j.policy.Secure,
		SameSite: j.policy.SameSite,
	})
	delete(j.overlay, name)
	j.removed[name] = true
}
