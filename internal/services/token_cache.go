package services

import (
	"maps"
	"strconv"
	"time"

	"golang.org/x/oauth2"
)

// Session keys holding the cached OAuth token.
const (
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
	KeyExpiresAt    = "expires_at"
	KeyTokenType    = "token_type"
)

// expiryWindow is how close to expiry a token is treated as already expired.
const expiryWindow = 60 * time.Second

// Session is a per-browser credential bag. Background work receives a [Session.Clone].
type Session map[string]string

// Clone returns an independent copy.
func (s Session) Clone() Session {
	if s == nil {
		return Session{}
	}
	return maps.Clone(s)
}

// Expired reports whether the cached token expires within the next 60 seconds.
// A token without an expiry is treated as live.
func (s Session) Expired(now time.Time) bool {
	raw, ok := s[KeyExpiresAt]
	if !ok || raw == "" {
		return false
	}
	expiresAt, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return true
	}
	return time.Unix(expiresAt, 0).Sub(now) < expiryWindow
}

// IsTokenExpired is [Session.Expired] against the wall clock.
func IsTokenExpired(s Session) bool {
	return s.Expired(time.Now())
}

// IsAuthenticated reports whether the session carries an access token that is not about to expire.
func IsAuthenticated(s Session) bool {
	if s[KeyAccessToken] == "" {
		return false
	}
	return !IsTokenExpired(s)
}

// ClearToken removes the cached token from s and reports whether one was present.
func ClearToken(s Session) bool {
	return NewTokenCache(s).Clear()
}

// TokenCache reads and writes an [oauth2.Token] in a [Session].
type TokenCache struct {
	session Session
}

func NewTokenCache(s Session) *TokenCache {
	return &TokenCache{session: s}
}

// Get returns the cached token, if any.
func (c *TokenCache) Get() (*oauth2.Token, bool) {
	if c.session == nil {
		return nil, false
	}
	access := c.session[KeyAccessToken]
	refresh := c.session[KeyRefreshToken]
	if access == "" && refresh == "" {
		return nil, false
	}

	tok := &oauth2.Token{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    c.session[KeyTokenType],
	}
	if raw := c.session[KeyExpiresAt]; raw != "" {
		if secs, err := strconv.ParseInt(raw, 10, 64); err == nil {
			tok.Expiry = time.Unix(secs, 0)
		}
	}
	return tok, true
}

// Save writes tok into the session, keeping the previous refresh token when tok has none.
func (c *TokenCache) Save(tok *oauth2.Token) {
	if c.session == nil || tok == nil {
		return
	}
	c.session[KeyAccessToken] = tok.AccessToken
	if tok.RefreshToken != "" {
		c.session[KeyRefreshToken] = tok.RefreshToken
	}
	if tok.TokenType != "" {
		c.session[KeyTokenType] = tok.TokenType
	}
	if !tok.Expiry.IsZero() {
		c.session[KeyExpiresAt] = strconv.FormatInt(tok.Expiry.Unix(), 10)
	} else {
		delete(c.session, KeyExpiresAt)
	}
}

// Clear removes the token and reports whether one was cached.
func (c *TokenCache) Clear() bool {
	_, had := c.Get()
	for _, k := range []string{KeyAccessToken, KeyRefreshToken, KeyExpiresAt, KeyTokenType} {
		delete(c.session, k)
	}
	return had
}
