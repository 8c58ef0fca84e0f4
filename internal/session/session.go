// Package session owns the client side authentication state: the token
// pair lifecycle and the profile of the signed in user.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/polly/internal/credentials"
	"github.com/wolfeidau/polly/internal/gateway"
	"github.com/wolfeidau/polly/internal/models"
	"github.com/wolfeidau/polly/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	// ErrSuperseded is returned when a logout or a newer login overtook the
	// operation; its result was discarded.
	ErrSuperseded = errors.New("session operation superseded")

	// ErrSessionExpired is returned when the server rejected the stored
	// tokens and the session was logged out.
	ErrSessionExpired = errors.New("session expired")

	// ErrInvalidState is returned when an operation is not allowed in the
	// current state.
	ErrInvalidState = errors.New("operation not allowed in current session state")
)

const (
	msgLoginFailed        = "Login failed"
	msgRegistrationFailed = "Registration failed"
	msgProfileUnavailable = "Unable to load profile"
	msgUnreachable        = "Unable to reach server"
)

// UserService is the subset of the account API the controller needs.
type UserService interface {
	Login(ctx context.Context, creds models.Credentials) (*models.TokenPair, error)
	Register(ctx context.Context, reg models.Registration) (*models.UserProfile, error)
	Me(ctx context.Context) (*models.UserProfile, error)
	UpdateMe(ctx context.Context, update models.ProfileUpdate) (*models.UserProfile, error)
}

// Option configures a Controller.
type Option func(*Controller)

// WithProfileRetry bounds RetryProfile to maxTries attempts with an
// exponential backoff starting at initial.
func WithProfileRetry(maxTries uint, initial time.Duration) Option {
	return func(c *Controller) {
		c.retryTries = max(maxTries, 1)
		c.retryInitial = initial
	}
}

// Controller is the session state machine.
//
// Network calls run without holding the state lock; their outcomes are fed
// to apply, the only place the snapshot changes. Every operation records the
// epoch it started in, and outcomes from an older epoch are dropped, so a
// profile that arrives after Logout cannot bring the session back.
//
// Subscribers run synchronously, in transition order, and must not call
// Login, Register, Logout, RetryProfile or UpdateProfile from the callback.
type Controller struct {
	tokens  credentials.TokenStore
	users   UserService
	metrics *telemetry.Metrics

	retryTries   uint
	retryInitial time.Duration

	mu      sync.Mutex
	snap    Snapshot
	seq     uint64
	epoch   uint64
	subs    map[int]func(Snapshot)
	nextSub int

	notifyMu  sync.Mutex
	delivered uint64
}

// New creates a controller. When an access token is already stored the
// session starts in StateProfilePending and Start loads the profile;
// otherwise it starts unauthenticated. A token store that cannot be read
// counts as empty.
func New(tokens credentials.TokenStore, users UserService, opts ...Option) *Controller {
	c := &Controller{
		tokens:       tokens,
		users:        users,
		metrics:      telemetry.GetMetrics(),
		retryTries:   3,
		retryInitial: 500 * time.Millisecond,
		subs:         make(map[int]func(Snapshot)),
	}

	for _, opt := range opts {
		opt(c)
	}

	c.snap = Snapshot{State: StateUnauthenticated}

	access, err := tokens.ReadAccess()
	switch {
	case err == nil && access != "":
		c.snap = Snapshot{State: StateProfilePending}
	case err != nil && !errors.Is(err, credentials.ErrTokenNotFound):
		log.Warn().Err(err).Msg("failed to read stored token, starting unauthenticated")
	}

	return c
}

// State returns the current snapshot.
func (c *Controller) State() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap
}

// Subscribe registers fn to receive every new snapshot. The returned
// function removes the subscription.
func (c *Controller) Subscribe(fn func(Snapshot)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subs, id)
	}
}

// Start loads the profile of a session restored from the token store. It
// does nothing unless the session is in StateProfilePending.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.snap.State != StateProfilePending {
		c.mu.Unlock()
		return nil
	}
	epoch := c.epoch
	c.mu.Unlock()

	return c.fetchProfile(ctx, epoch)
}

// Login authenticates with a username and password, stores the returned
// token pair and then loads the profile.
//
// A credential failure leaves the session unauthenticated with Error set.
// After the tokens are stored any profile failure is returned as well: an
// auth rejection (ErrSessionExpired) logs out, anything else leaves the
// session in StateProfileFailed.
func (c *Controller) Login(ctx context.Context, username, password string) error {
	epoch := c.begin()

	pair, err := c.users.Login(ctx, models.Credentials{Username: username, Password: password})
	if err != nil {
		c.apply(epoch, credentialFailed{message: failureMessage(err, msgLoginFailed)})
		return fmt.Errorf("login failed: %w", err)
	}

	if err := c.apply(epoch, loginSucceeded{pair: pair}); err != nil {
		return err
	}

	return c.fetchProfile(ctx, epoch)
}

// Register creates an account and, on success, logs in with the same
// username and password.
func (c *Controller) Register(ctx context.Context, reg models.Registration) error {
	epoch := c.begin()

	if _, err := c.users.Register(ctx, reg); err != nil {
		c.apply(epoch, credentialFailed{message: failureMessage(err, msgRegistrationFailed)})
		return fmt.Errorf("registration failed: %w", err)
	}

	return c.Login(ctx, reg.Username, reg.Password)
}

// Logout clears the stored tokens and resets the session. It always
// succeeds locally; a token store that fails to clear is logged.
func (c *Controller) Logout() {
	c.mu.Lock()
	c.logoutLocked()
	prev := c.transition(Snapshot{State: StateLoggedOut})
	c.notifyLocked(prev)
}

// logoutLocked invalidates in-flight operations and clears the tokens.
// Callers hold c.mu.
func (c *Controller) logoutLocked() {
	c.epoch++
	if err := c.tokens.Clear(); err != nil {
		log.Error().Err(err).Msg("failed to clear tokens")
	}
}

// RetryProfile reloads the profile after a transient failure, backing off
// between attempts. Auth rejections stop immediately and log out.
func (c *Controller) RetryProfile(ctx context.Context) error {
	c.mu.Lock()
	if c.snap.State != StateProfileFailed {
		state := c.snap.State
		c.mu.Unlock()
		return fmt.Errorf("%w: retry profile in %s", ErrInvalidState, state)
	}
	epoch := c.epoch
	prev := c.transition(Snapshot{State: StateProfilePending})
	c.notifyLocked(prev)

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.retryInitial

	profile, err := backoff.Retry(ctx, func() (*models.UserProfile, error) {
		p, err := c.users.Me(ctx)
		if err != nil && !gateway.IsTransient(err) {
			return nil, backoff.Permanent(err)
		}
		return p, err
	}, backoff.WithBackOff(b), backoff.WithMaxTries(c.retryTries))

	return c.profileResult(epoch, profile, err)
}

// UpdateProfile changes username and/or email of the signed in user.
// An auth rejection logs out; other failures leave the session unchanged.
func (c *Controller) UpdateProfile(ctx context.Context, update models.ProfileUpdate) error {
	c.mu.Lock()
	if c.snap.State != StateReady {
		state := c.snap.State
		c.mu.Unlock()
		return fmt.Errorf("%w: update profile in %s", ErrInvalidState, state)
	}
	epoch := c.epoch
	c.mu.Unlock()

	profile, err := c.users.UpdateMe(ctx, update)
	if err != nil {
		if gateway.IsAuthError(err) {
			c.apply(epoch, authRejected{})
			return fmt.Errorf("%w: %v", ErrSessionExpired, err)
		}
		return fmt.Errorf("update profile failed: %w", err)
	}

	return c.apply(epoch, profileUpdated{profile: profile})
}

// begin starts a login or registration, superseding anything in flight.
func (c *Controller) begin() uint64 {
	c.mu.Lock()
	c.epoch++
	epoch := c.epoch
	prev := c.transition(Snapshot{State: StateAuthenticating})
	c.notifyLocked(prev)
	return epoch
}

func (c *Controller) fetchProfile(ctx context.Context, epoch uint64) error {
	profile, err := c.users.Me(ctx)
	return c.profileResult(epoch, profile, err)
}

func (c *Controller) profileResult(epoch uint64, profile *models.UserProfile, err error) error {
	if err == nil && profile == nil {
		err = fmt.Errorf("%w: empty profile", gateway.ErrMalformedResponse)
	}

	if err != nil {
		if applyErr := c.apply(epoch, profileFailed{err: err}); applyErr != nil {
			return applyErr
		}
		if gateway.IsAuthError(err) {
			return fmt.Errorf("%w: %v", ErrSessionExpired, err)
		}
		return fmt.Errorf("load profile failed: %w", err)
	}

	return c.apply(epoch, profileLoaded{profile: profile})
}

// transition replaces the snapshot and returns the previous one. Callers
// hold c.mu.
func (c *Controller) transition(next Snapshot) Snapshot {
	prev := c.snap
	c.snap = next
	c.seq++

	c.metrics.SessionTransitionsTotal.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("from", prev.State.String()),
		attribute.String("to", next.State.String()),
	))

	log.Debug().
		Stringer("from", prev.State).
		Stringer("to", next.State).
		Msg("session transition")

	return prev
}

// notifyLocked releases c.mu and delivers the current snapshot to the
// subscribers. A snapshot older than one already delivered is dropped, so
// subscribers never observe the session going backwards.
func (c *Controller) notifyLocked(prev Snapshot) {
	snap, seq := c.snap, c.seq
	subs := make([]func(Snapshot), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	c.mu.Unlock()

	if prev == snap {
		return
	}

	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	if seq <= c.delivered {
		return
	}
	c.delivered = seq

	for _, fn := range subs {
		fn(snap)
	}
}
