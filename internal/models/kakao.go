package models

import "time"

// KakaoToken is a stored external messaging credential for one user.
// One row per user; saving again replaces the previous token.
type KakaoToken struct {
	// UserID is the owning user.
	UserID string

	// AccessToken is the messaging-service access token.
	AccessToken string

	// RefreshToken is optional.
	RefreshToken string

	// ExpiresAt is the Unix timestamp after which the token is unusable.
	// Zero means no known expiry.
	ExpiresAt int64

	// UpdatedAt is the Unix timestamp of the last save.
	UpdatedAt int64
}

// Expired reports whether the token is past its expiry at the given time.
func (t *KakaoToken) Expired(now time.Time) bool {
	return t.ExpiresAt != 0 && t.ExpiresAt < now.Unix()
}
