package constants

import "errors"

// Token errors.
var (
	ErrInvalidJWTFormat  = errors.New("invalid JWT format")
	ErrNoExpirationClaim = errors.New("no expiration claim found")
	ErrNoAccessToken     = errors.New("no access_token in authentication response")
)
