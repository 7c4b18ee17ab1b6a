package tokens

import (
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
)

// DefaultValidityBuffer is subtracted from the stored expiry when deciding
// whether a token is still usable, so callers never start a remote call with
// a token that expires mid-flight.
const DefaultValidityBuffer = 5 * time.Minute

// refreshTokenLifetime is the cookie lifetime for the refresh token, which
// outlives many access-token rotations.
const refreshTokenLifetime = 30 * 24 * time.Hour

// TokenData is the composite view of the stored token material, used by
// status and diagnostic endpoints.
type TokenData struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    int64 // epoch milliseconds
	TokenType    string
	IsValid      bool
}

// Store encrypts tokens into a cookie [Jar] and answers validity questions
// without network access.
type Store struct {
	cipher *Cipher
	logger *log.Logger
	now    func() time.Time
}

// NewStore creates a Store using the given cipher for token encryption.
func NewStore(cipher *Cipher, logger *log.Logger) *Store {
	return &Store{cipher: cipher, logger: logger, now: time.Now}
}

// SetTokens encrypts and persists a full token bundle. The access token and
// expiry live only as long as the token itself; the refresh token gets a
// materially longer lifetime. Prior values are overwritten.
func (s *Store) SetTokens(jar Jar, accessToken, refreshToken string, expiresIn int) error {
	encAccess, err := s.cipher.Encrypt(accessToken)
	if err != nil {
		return fmt.Errorf("failed to set tokens: %w", err)
	}
	encRefresh, err := s.cipher.Encrypt(refreshToken)
	if err != nil {
		return fmt.Errorf("failed to set tokens: %w", err)
	}

	ttl := time.Duration(expiresIn) * time.Second
	expiresAt := s.now().Add(ttl).UnixMilli()

	jar.Set(AccessTokenCookie, encAccess, ttl)
	jar.Set(RefreshTokenCookie, encRefresh, refreshTokenLifetime)
	jar.Set(TokenExpiryCookie, strconv.FormatInt(expiresAt, 10), ttl)
	jar.Set(TokenTypeCookie, "Bearer", ttl)

	return nil
}

// UpdateAccessToken rotates the access token and expiry while leaving the
// refresh token and its lifetime untouched. Used after a refresh that did
// not issue a new refresh token.
func (s *Store) UpdateAccessToken(jar Jar, accessToken string, expiresIn int) error {
	encAccess, err := s.cipher.Encrypt(accessToken)
	if err != nil {
		return fmt.Errorf("failed to update access token: %w", err)
	}

	ttl := time.Duration(expiresIn) * time.Second
	expiresAt := s.now().Add(ttl).UnixMilli()

	jar.Set(AccessTokenCookie, encAccess, ttl)
	jar.Set(TokenExpiryCookie, strconv.FormatInt(expiresAt, 10), ttl)
	jar.Set(TokenTypeCookie, "Bearer", ttl)

	return nil
}

// AccessToken decrypts and returns the stored access token, or "" when the
// cookie is absent or fails decryption. Decryption failure is logged but
// never surfaced: callers treat "" as "no usable token".
func (s *Store) AccessToken(jar Jar) string {
	encrypted := jar.Get(AccessTokenCookie)
	if encrypted == "" {
		return ""
	}

	token, err := s.cipher.Decrypt(encrypted)
	if err != nil {
		s.logger.Error("failed to decrypt access token", "error", err)
		return ""
	}
	return token
}

// RefreshToken decrypts and returns the stored refresh token, or "" when
// absent or undecryptable.
func (s *Store) RefreshToken(jar Jar) string {
	encrypted := jar.Get(RefreshTokenCookie)
	if encrypted == "" {
		return ""
	}

	token, err := s.cipher.Decrypt(encrypted)
	if err != nil {
		s.logger.Error("failed to decrypt refresh token", "error", err)
		return ""
	}
	return token
}

// Expiry returns the stored expiry as epoch milliseconds, or 0 when absent
// or malformed.
func (s *Store) Expiry(jar Jar) int64 {
	raw := jar.Get(TokenExpiryCookie)
	if raw == "" {
		return 0
	}

	expiry, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		s.logger.Warn("malformed token expiry cookie", "value", raw)
		return 0
	}
	return expiry
}

// TokenType returns the stored token type, defaulting to "Bearer".
func (s *Store) TokenType(jar Jar) string {
	if t := jar.Get(TokenTypeCookie); t != "" {
		return t
	}
	return "Bearer"
}

// IsValid reports whether an access token is present and will remain valid
// for at least the given buffer.
func (s *Store) IsValid(jar Jar, buffer time.Duration) bool {
	if s.AccessToken(jar) == "" {
		return false
	}

	expiry := s.Expiry(jar)
	if expiry == 0 {
		return false
	}

	return s.now().UnixMilli() < expiry-buffer.Milliseconds()
}

// Clear removes all persisted token fields unconditionally. Used on logout
// and on unrecoverable auth failure.
func (s *Store) Clear(jar Jar) {
	for _, name := range []string{AccessTokenCookie, RefreshTokenCookie, TokenExpiryCookie, TokenTypeCookie} {
		jar.Remove(name)
	}
}

// All returns the composite token view, or nil when any required field is
// missing or unreadable.
func (s *Store) All(jar Jar) *TokenData {
	accessToken := s.AccessToken(jar)
	refreshToken := s.RefreshToken(jar)
	expiry := s.Expiry(jar)

	if accessToken == "" || refreshToken == "" || expiry == 0 {
		return nil
	}

	return &TokenData{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    expiry,
		TokenType:    s.TokenType(jar),
		IsValid:      s.IsValid(jar, DefaultValidityBuffer),
	}
}
