package models

// User represents a registered user account.
type User struct {
	// ID is the unique identifier for the user (UUID format).
	ID string

	// Email is the user's email address (unique). Used for login.
	Email string

	// Nickname is the display name shown to other group members.
	Nickname string

	// PasswordHash is the bcrypt hash of the user's password.
	PasswordHash string

	// KakaoID is the user's numeric identifier on the external messaging
	// service. Zero when the account is not linked.
	KakaoID int64

	// PayKey is the user's payment-destination identifier, appended to the
	// payment base URL to build a transfer link. Empty when not configured.
	PayKey string

	// CreatedAt is the Unix timestamp when the user account was created.
	CreatedAt int64

	// UpdatedAt is the Unix timestamp of the last profile change.
	UpdatedAt int64
}
