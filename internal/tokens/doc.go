// Package tokens implements the Spotify token lifecycle: AEAD-encrypted
// cookie storage, validity tracking against expiry, and automatic refresh
// with per-token deduplication and bounded retry.
//
// The package is built around three types:
//
//   - [Cipher] : AES-256-GCM encryption of token material, encoded as
//     iv:authTag:ciphertext hex segments
//   - [Store] : reads and writes encrypted tokens through a narrow [Jar]
//     capability interface, so the core never depends on a concrete
//     framework cookie type
//   - [Manager] : produces a currently-valid access token, refreshing
//     through the Spotify token endpoint only when needed
//
// Decryption failures are swallowed at the [Store] boundary (logged,
// reported as "no token"); refresh failures propagate as typed errors so
// handlers can tell "re-authenticate" apart from transient trouble.
package tokens
