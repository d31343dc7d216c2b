package guard

import "errors"

var (
	// ErrUserNotFound is returned when no user matches the identifier.
	ErrUserNotFound = errors.New("user not found")

	// ErrInvalidCredentials is returned for unknown users and wrong passwords alike.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidResetToken is returned for malformed, forged, already-used,
	// or wrong-realm reset tokens.
	ErrInvalidResetToken = errors.New("invalid password reset token")

	// ErrResetTokenExpired is returned for well-formed but expired reset tokens.
	ErrResetTokenExpired = errors.New("password reset token expired")
)
