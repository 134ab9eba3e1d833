// Package glean is the HTTP client for the glean feed reader backend.
//
// # Overview
//
// The package is split into two layers. Session owns everything about
// issuing a request: backend origin resolution, bearer token attachment,
// and recovery from token expiry. Client adds typed methods for each API
// resource (auth, feeds, folders, tags, entries, bookmarks, admin) on top
// of the session's generic verbs.
//
// # Session lifecycle
//
// A session is constructed once per process with an OriginResolver and a
// TokenStore and is passed explicitly to every call site; there is no
// package-level token state. Tokens are created by Login, rotated as a pair
// by refresh, and deleted by Logout or by a terminal authentication failure.
//
// # 401 recovery
//
// Any request that fails with HTTP 401 triggers at most one recovery
// attempt:
//
//  1. If the failing call was itself login or refresh, or no refresh token
//     is stored, recovery is impossible: tokens are cleared and
//     OnSessionExpired fires.
//  2. Otherwise the session exchanges the refresh token for a new pair.
//     Concurrent 401s share one in-flight exchange (singleflight); each
//     waiter retries its own request once with the rotated access token.
//  3. A 401 on the retried request is returned to the caller unchanged.
//     The session never loops.
//
// The session does not retry network errors or non-401 HTTP errors, and it
// does not deduplicate identical GETs; those are caller concerns.
//
// # Origin resolution
//
// The resolver is called lazily on the first request. A result using a
// scheme other than http or https fails that request with ErrInvalidOrigin
// before any network I/O. Successful results are cached for the session
// lifetime; failures are re-resolved on the next request.
//
// # Errors
//
// Non-2xx responses become *APIError. ErrSessionExpired wraps terminal
// authentication failures; ErrInvalidOrigin wraps configuration failures.
// Everything else is a wrapped transport or decoding error.
package glean
