package credentials

import "errors"

// Sentinel errors
var (
	// ErrTokenNotFound is returned when the requested token is not stored.
	ErrTokenNotFound = errors.New("token not found")

	// ErrIncompletePair is returned when saving only one half of a token pair.
	ErrIncompletePair = errors.New("access and refresh tokens must be saved together")

	// ErrTokenChanged is returned by UpdateAccess when the stored pair was
	// cleared or replaced after the refresh token was read.
	ErrTokenChanged = errors.New("stored tokens changed")
)

// TokenStore holds the access/refresh token pair between runs.
//
// Both tokens are present together or both absent. Reads return
// ErrTokenNotFound when nothing is stored.
type TokenStore interface {
	// Save overwrites both tokens.
	Save(access, refresh string) error
	// UpdateAccess replaces the access token only while refresh is still
	// the stored refresh token, and returns ErrTokenChanged otherwise.
	UpdateAccess(refresh, access string) error
	// ReadAccess returns the stored access token.
	ReadAccess() (string, error)
	// ReadRefresh returns the stored refresh token.
	ReadRefresh() (string, error)
	// Clear removes both tokens. Clearing an empty store is not an error.
	Clear() error
}

func validatePair(access, refresh string) error {
	if access == "" || refresh == "" {
		return ErrIncompletePair
	}
	return nil
}
