package session

import "github.com/wolfeidau/polly/internal/models"

// State is the session lifecycle stage.
type State int

const (
	// StateUnauthenticated has no tokens. Error may carry the last
	// credential failure.
	StateUnauthenticated State = iota
	// StateAuthenticating has a login or registration in flight.
	StateAuthenticating
	// StateProfilePending holds tokens and is fetching the profile.
	StateProfilePending
	// StateReady holds tokens and a loaded profile.
	StateReady
	// StateProfileFailed holds tokens but the profile could not be loaded
	// because of a transient failure. Error carries a soft warning.
	StateProfileFailed
	// StateLoggedOut is entered by Logout and left by the next login.
	StateLoggedOut
)

var stateNames = map[State]string{
	StateUnauthenticated: "unauthenticated",
	StateAuthenticating:  "authenticating",
	StateProfilePending:  "profile-pending",
	StateReady:           "ready",
	StateProfileFailed:   "profile-failed",
	StateLoggedOut:       "logged-out",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Snapshot is an immutable view of the session.
//
// Profile is only set in StateReady. Error is only set in
// StateUnauthenticated and StateProfileFailed.
type Snapshot struct {
	State   State
	Profile *models.UserProfile
	Error   string
}

// Authenticated reports whether a token pair is established, whether or
// not the profile has loaded.
func (s Snapshot) Authenticated() bool {
	switch s.State {
	case StateProfilePending, StateReady, StateProfileFailed:
		return true
	}
	return false
}

// Loading reports whether an operation is still settling.
func (s Snapshot) Loading() bool {
	return s.State == StateAuthenticating || s.State == StateProfilePending
}

// IsAdmin is derived from the loaded profile only; it is false until the
// profile arrives.
func (s Snapshot) IsAdmin() bool {
	return s.State == StateReady && s.Profile.IsAdmin()
}
