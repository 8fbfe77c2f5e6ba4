package domain

import "time"

// Token is a persisted opaque bearer token. The raw value is returned to the
// client exactly once, at login; afterwards it only ever arrives back in an
// Authorization header and is matched against the stored row.
type Token struct {
	ID        int64
	Value     string
	Username  string
	CreatedAt time.Time
	ExpiresAt time.Time
	Revoked   bool
}

// Valid reports whether the token is usable at the given instant.
// Revocation is permanent; expiry is checked against the row, not the clock
// that issued it.
func (t Token) Valid(now time.Time) bool {
	return !t.Revoked && now.Before(t.ExpiresAt)
}
