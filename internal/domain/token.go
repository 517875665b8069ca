package domain

import "time"

// DefaultTokenTTL is how long an issued access token stays usable.
const DefaultTokenTTL = 24 * time.Hour

// CachedToken is a persisted access token.
type CachedToken struct {
	Token    string    `json:"access_token"`
	IssuedAt time.Time `json:"timestamp"`
}

// Usable reports whether the token can still be used at now.
func (t *CachedToken) Usable(now time.Time, ttl time.Duration) bool {
	if t == nil || t.Token == "" || t.IssuedAt.IsZero() {
		return false
	}
	return now.Sub(t.IssuedAt) < ttl
}
