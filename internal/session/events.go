package session

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/polly/internal/gateway"
	"github.com/wolfeidau/polly/internal/models"
)

// event is the outcome of an asynchronous step, consumed by apply.
type event interface {
	name() string
}

type credentialFailed struct{ message string }

type loginSucceeded struct{ pair *models.TokenPair }

type profileLoaded struct{ profile *models.UserProfile }

type profileFailed struct{ err error }

type profileUpdated struct{ profile *models.UserProfile }

type authRejected struct{}

func (credentialFailed) name() string { return "credential-failed" }
func (loginSucceeded) name() string   { return "login-succeeded" }
func (profileLoaded) name() string    { return "profile-loaded" }
func (profileFailed) name() string    { return "profile-failed" }
func (profileUpdated) name() string   { return "profile-updated" }
func (authRejected) name() string     { return "auth-rejected" }

// apply feeds ev to the state machine. Events from an older epoch, or that
// do not fit the current state, are dropped with ErrSuperseded.
func (c *Controller) apply(epoch uint64, ev event) error {
	c.mu.Lock()

	if epoch != c.epoch {
		c.mu.Unlock()
		log.Debug().Str("event", ev.name()).Msg("discarding stale session event")
		return ErrSuperseded
	}

	next, err := c.reduce(ev)
	if err != nil && next == nil {
		c.mu.Unlock()
		log.Debug().Err(err).Str("event", ev.name()).Msg("discarding session event")
		return err
	}

	prev := c.transition(*next)
	c.notifyLocked(prev)

	return err
}

// reduce computes the next snapshot for ev and performs the token store
// side effect that belongs to the transition. A nil snapshot means the
// event was rejected. Callers hold c.mu.
func (c *Controller) reduce(ev event) (*Snapshot, error) {
	state := c.snap.State

	switch ev := ev.(type) {
	case credentialFailed:
		if state != StateAuthenticating {
			return nil, ErrSuperseded
		}
		return &Snapshot{State: StateUnauthenticated, Error: ev.message}, nil

	case loginSucceeded:
		if state != StateAuthenticating {
			return nil, ErrSuperseded
		}
		if ev.pair == nil {
			return &Snapshot{State: StateUnauthenticated, Error: msgLoginFailed}, gateway.ErrMalformedResponse
		}
		if err := c.tokens.Save(ev.pair.Access, ev.pair.Refresh); err != nil {
			return &Snapshot{State: StateUnauthenticated, Error: msgLoginFailed}, fmt.Errorf("failed to store tokens: %w", err)
		}
		return &Snapshot{State: StateProfilePending}, nil

	case profileLoaded:
		if state != StateProfilePending {
			return nil, ErrSuperseded
		}
		return &Snapshot{State: StateReady, Profile: ev.profile}, nil

	case profileFailed:
		if state != StateProfilePending {
			return nil, ErrSuperseded
		}
		if gateway.IsAuthError(ev.err) {
			log.Info().Err(ev.err).Msg("authentication rejected, logging out")
			c.logoutLocked()
			return &Snapshot{State: StateLoggedOut}, nil
		}
		log.Warn().Err(ev.err).Msg("failed to load profile, keeping session")
		return &Snapshot{State: StateProfileFailed, Error: failureMessage(ev.err, msgProfileUnavailable)}, nil

	case profileUpdated:
		if state != StateReady {
			return nil, ErrSuperseded
		}
		return &Snapshot{State: StateReady, Profile: ev.profile}, nil

	case authRejected:
		log.Info().Msg("authentication rejected, logging out")
		c.logoutLocked()
		return &Snapshot{State: StateLoggedOut}, nil
	}

	return nil, fmt.Errorf("unknown session event %T", ev)
}

// failureMessage turns err into a short message suitable for display.
func failureMessage(err error, fallback string) string {
	var apiErr *gateway.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message(fallback)
	}
	if gateway.IsTransient(err) {
		return msgUnreachable
	}
	return fallback
}
