package auth

import "errors"

var (
	// ErrTokenInvalid is returned for a token with a bad signature, an
	// expired lifetime or missing claims.
	ErrTokenInvalid = errors.New("auth: invalid token")

	// ErrSecretRequired is returned when signing or verifying without a secret.
	ErrSecretRequired = errors.New("auth: jwt secret is not configured")

	// ErrInvalidRole is returned when minting a token for an unknown role.
	ErrInvalidRole = errors.New("auth: invalid role")
)
