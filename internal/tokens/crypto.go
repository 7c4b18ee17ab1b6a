package tokens

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/vors-gg/vors/internal/shared"
)

// associatedData binds every ciphertext to its purpose so a value encrypted
// for token storage cannot be replayed in another context.
const associatedData = "spotify-auth"

// ivSize is the GCM nonce width in bytes. Fixed so the iv segment of the
// encoded form has a known width.
const ivSize = 16

// tagSize is the GCM authentication tag width in bytes.
const tagSize = 16

// Cipher performs authenticated encryption of token material before it is
// persisted in client-held cookies.
type Cipher struct {
	aead cipher.AEAD
}

// NewCipher constructs a Cipher from a 64-character hex key (32 bytes for
// AES-256). A missing or malformed key is a startup error: the process must
// not run with tokens it cannot protect.
func NewCipher(hexKey string) (*Cipher, error) {
	if hexKey == "" {
		return nil, fmt.Errorf("%w: encryption key is required", shared.ErrMissingConfig)
	}

	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("%w: encryption key must be hex encoded", shared.ErrInvalidConfig)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("%w: encryption key must be 32 bytes (64 hex characters), got %d", shared.ErrInvalidConfig, len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cipher: %w", err)
	}

	aead, err := cipher.NewGCMWithNonceSize(block, ivSize)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize GCM: %w", err)
	}

	return &Cipher{aead: aead}, nil
}

// Encrypt seals plaintext with a fresh random iv and returns the
// iv:authTag:ciphertext hex-colon encoding stored in cookies. Two calls with
// the same plaintext never produce the same output.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	iv := make([]byte, ivSize)
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("failed to generate iv: %w", err)
	}

	// Seal appends the auth tag after the ciphertext.
	sealed := c.aead.Seal(nil, iv, []byte(plaintext), []byte(associatedData))
	split := len(sealed) - tagSize

	return hex.EncodeToString(iv) + ":" +
		hex.EncodeToString(sealed[split:]) + ":" +
		hex.EncodeToString(sealed[:split]), nil
}

// Decrypt reverses Encrypt. It fails closed: a wrong segment count, bad hex,
// or a tag that does not verify returns an error, never garbage plaintext.
// This boundary is what keeps a tampered cookie from becoming a valid token.
func (c *Cipher) Decrypt(encoded string) (string, error) {
	parts := strings.Split(encoded, ":")
	if len(parts) != 3 {
		return "", fmt.Errorf("invalid encrypted data format")
	}

	iv, err := hex.DecodeString(parts[0])
	if err != nil {
		return "", fmt.Errorf("invalid iv encoding: %w", err)
	}
	if len(iv) != ivSize {
		return "", fmt.Errorf("invalid iv length: %d", len(iv))
	}

	tag, err := hex.DecodeString(parts[1])
	if err != nil {
		return "", fmt.Errorf("invalid auth tag encoding: %w", err)
	}
	if len(tag) != tagSize {
		return "", fmt.Errorf("invalid auth tag length: %d", len(tag))
	}

	ciphertext, err := hex.DecodeString(parts[2])
	if err != nil {
		return "", fmt.Errorf("invalid ciphertext encoding: %w", err)
	}

	plaintext, err := c.aead.Open(nil, iv, append(ciphertext, tag...), []byte(associatedData))
	if err != nil {
		return "", fmt.Errorf("decryption failed: %w", err)
	}

	return string(plaintext), nil
}
