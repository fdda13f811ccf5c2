package domain

import "time"

// TokenPayload carries the claims embedded in both access and refresh
// tokens. Access and refresh tokens share this shape and differ only in
// lifetime and server-side tracking.
type TokenPayload struct {
	AccountID string
	Email     string
	Role      Role
}

// RefreshRecord tracks an issued refresh token. The signed token value is
// the natural primary key; the signature covers a second-granularity
// expiry claim plus the secret, so collisions do not occur in practice.
// A record is valid only while ExpiresAt is in the future and the owning
// account is not banned.
type RefreshRecord struct {
	Token     string
	AccountID string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired reports whether the record is past its validity window.
func (r *RefreshRecord) Expired(now time.Time) bool {
	return !r.ExpiresAt.After(now)
}
