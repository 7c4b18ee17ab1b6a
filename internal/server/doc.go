// Package server provides HTTP routing, middleware, and the endpoint
// groups the game page talks to.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with
// method-qualified patterns, so handlers can register wildcard routes such
// as "GET /api/spotify/playlists/{id}/tracks".
//
// # Endpoint Groups
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib
// handler interface and adds Routes, allowing handlers to encapsulate their
// route definitions:
//
//   - [AuthHandler] : the OAuth PKCE flow (login redirect, callback,
//     exchange) and the token lifecycle endpoints (refresh, logout,
//     status, validate). The raw access token never appears in a response
//     body; it lives only in encrypted cookies.
//   - [PlayerHandler] : proxies every playback action to the Spotify Web
//     API through the authenticated client, so page script never holds a
//     bearer token.
//   - [SessionsHandler] : party session CRUD backed by SQLite.
//
// [Protected] wraps a handler group with middleware scoped to its routes,
// which is how the player and session groups sit behind [RequireAuth]
// while the auth group stays open.
//
// # Middleware
//
// [RequestLogger] logs every request with status and duration.
// [SecurityHeaders] and [CORS] implement the production security posture;
// CORS allows credentials so the page's token cookies travel with API
// calls from a separate origin during development.
package server
