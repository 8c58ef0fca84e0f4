package credentials

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNoExpiry is returned when an access token carries no exp claim.
var ErrNoExpiry = errors.New("token has no expiry")

// AccessTokenExpiry returns the exp claim of a JWT access token.
//
// The signature is NOT verified; the result is only used for display and
// for the expiry recorded next to the stored token. The server remains the
// authority on whether a token is still valid.
func AccessTokenExpiry(access string) (time.Time, error) {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(access, &claims); err != nil {
		return time.Time{}, err
	}

	if claims.ExpiresAt == nil {
		return time.Time{}, ErrNoExpiry
	}

	return claims.ExpiresAt.Time, nil
}
