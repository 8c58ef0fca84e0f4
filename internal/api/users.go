package api

import (
	"context"
	"net/http"

	"github.com/wolfeidau/polly/internal/gateway"
	"github.com/wolfeidau/polly/internal/models"
)

// Users covers the account endpoints.
type Users struct {
	d Dispatcher
}

// Register creates an account. It does not log the user in.
func (u *Users) Register(ctx context.Context, reg models.Registration) (*models.UserProfile, error) {
	return call[*models.UserProfile](ctx, u.d, &gateway.Request{
		Method:    http.MethodPost,
		Path:      "api/users/register/",
		Body:      reg,
		Anonymous: true,
	})
}

// Login exchanges a username and password for a token pair.
func (u *Users) Login(ctx context.Context, creds models.Credentials) (*models.TokenPair, error) {
	return call[*models.TokenPair](ctx, u.d, &gateway.Request{
		Method:    http.MethodPost,
		Path:      "api/users/login/",
		Body:      creds,
		Anonymous: true,
	})
}

// Me returns the profile of the authenticated user.
func (u *Users) Me(ctx context.Context) (*models.UserProfile, error) {
	return call[*models.UserProfile](ctx, u.d, gateway.Get("api/users/me/"))
}

// UpdateMe changes the username and/or email of the authenticated user.
func (u *Users) UpdateMe(ctx context.Context, update models.ProfileUpdate) (*models.UserProfile, error) {
	return call[*models.UserProfile](ctx, u.d, patch("api/users/me/", update))
}
