// Package services wraps outbound calls to the Spotify Web API behind an
// authenticated [Client] and builds playback policy on top of it.
//
// # Client
//
// [Client] attaches bearer tokens obtained from [tokens.Manager] and
// normalizes outcomes: 204 and empty bodies become nil data, non-2xx
// becomes [*APIError] carrying the HTTP status, the structured error
// message, and any Retry-After hint.
//
// Recovery is exactly one layer deep. The first 401 forces a refresh (the
// remote service is the ground truth, even when the stored expiry says the
// token should still work) and retries once; a second 401 surfaces as
// [shared.ErrNotAuthenticated]. A 429 sleeps for the Retry-After duration,
// defaulting to one second, and retries once. Everything else surfaces
// without a second attempt. This is deliberately separate from the
// Manager's own retry loop: refresh failures and API-call failures have
// different causes and different acceptable retry budgets.
//
// # Playback policy
//
// [PlaybackController] resolves which device receives commands (active
// device first, then a computer, then whatever the service listed first)
// and transfers playback to it when needed. [QueueManager] paces batch
// queue additions sequentially with per-item accounting.
//
// # Server client
//
// [ServerClient] is the thin HTTP client the CLI uses against a running
// vors server for diagnostics.
//
// # Error Handling
//
// Typed errors from the shared package cross this boundary:
//   - [shared.ErrNoRefreshToken] : never authenticated or logged out
//   - [shared.ErrRefreshFailed] : refresh exhausted its retry budget
//   - [shared.ErrNotAuthenticated] : remote rejected a refreshed token
//   - [shared.ErrNoDevice] : no playback device available
//   - [shared.ErrAPIRequest] : transport-level failure
package services
