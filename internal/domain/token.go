package domain

import "time"

// Token is a bearer credential for the catalog API
type Token struct {
	AccessToken string
	ExpiresAt   time.Time
}

// IsZero reports whether no token is held
func (t Token) IsZero() bool {
	return t.AccessToken == ""
}

// ValidAt reports whether the token may still be used at now. A token stops
// being usable safetyMargin before its declared expiry.
func (t Token) ValidAt(now time.Time, safetyMargin time.Duration) bool {
	if t.IsZero() {
		return false
	}
	return now.Before(t.ExpiresAt.Add(-safetyMargin))
}
