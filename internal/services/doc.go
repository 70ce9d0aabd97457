// Package services implements the [PlaylistService] interface for the Spotify Web API.
//
// # Sessions and tokens
//
// A [Session] is a plain string map (one per browser session, or "cli" for the command line).
// [TokenCache] stores the OAuth token in it under [KeyAccessToken], [KeyRefreshToken],
// [KeyExpiresAt] (unix seconds) and [KeyTokenType].
//
// Background work never shares a session with a request handler: it receives a [Session.Clone].
//
// # Spotify Implementation
//
// [SpotifyService] uses [oauth2] for the authorization code exchange and token refresh.
// Refresh is lazy: before each request the token is checked, and one expiring within 60 seconds
// is exchanged using the refresh token. The refreshed session is passed to the callback set with
// [SpotifyService.SetTokenRefreshCallback] so callers can persist it.
//
// Requests can be throttled with [WithRateLimit]. Nothing is retried.
//
// # Error Handling
//
// Services use typed errors from shared package:
//   - [shared.ErrNotAuthenticated] : no token, or the API answered 401
//   - [shared.ErrNoRefreshToken] : token expired and cannot be refreshed
//   - [shared.ErrRefreshFailed] : the token endpoint rejected the refresh
//   - [shared.ErrNotFound] : the API answered 404
//   - [shared.ErrAPIRequest] : any other failed request
package services
