package api

import (
	"context"

	"github.com/wolfeidau/polly/internal/gateway"
	"github.com/wolfeidau/polly/internal/models"
)

// Admin covers the administrator endpoints.
type Admin struct {
	d Dispatcher
}

func (a *Admin) Users(ctx context.Context) ([]models.UserProfile, error) {
	return call[[]models.UserProfile](ctx, a.d, gateway.Get("api/admin/users/"))
}

func (a *Admin) User(ctx context.Context, id int64) (*models.UserProfile, error) {
	return call[*models.UserProfile](ctx, a.d, gateway.Get(idPath("api/admin/users/%d/", id)))
}

func (a *Admin) CreateUser(ctx context.Context, user models.AdminUser) (*models.UserProfile, error) {
	return call[*models.UserProfile](ctx, a.d, gateway.Post("api/admin/users/", user))
}

func (a *Admin) UpdateUser(ctx context.Context, id int64, user models.AdminUser) (*models.UserProfile, error) {
	return call[*models.UserProfile](ctx, a.d, put(idPath("api/admin/users/%d/", id), user))
}

func (a *Admin) DeleteUser(ctx context.Context, id int64) error {
	return exec(ctx, a.d, del(idPath("api/admin/users/%d/", id)))
}

func (a *Admin) Polls(ctx context.Context) ([]models.AdminPoll, error) {
	return call[[]models.AdminPoll](ctx, a.d, gateway.Get("api/admin/polls/"))
}

func (a *Admin) Poll(ctx context.Context, id int64) (*models.AdminPoll, error) {
	return call[*models.AdminPoll](ctx, a.d, gateway.Get(idPath("api/admin/polls/%d/", id)))
}

func (a *Admin) CreatePoll(ctx context.Context, poll models.AdminPoll) (*models.AdminPoll, error) {
	return call[*models.AdminPoll](ctx, a.d, gateway.Post("api/admin/polls/", poll))
}

func (a *Admin) UpdatePoll(ctx context.Context, id int64, poll models.AdminPoll) (*models.AdminPoll, error) {
	return call[*models.AdminPoll](ctx, a.d, put(idPath("api/admin/polls/%d/", id), poll))
}

func (a *Admin) DeletePoll(ctx context.Context, id int64) error {
	return exec(ctx, a.d, del(idPath("api/admin/polls/%d/", id)))
}

func (a *Admin) Votes(ctx context.Context) ([]models.Vote, error) {
	return call[[]models.Vote](ctx, a.d, gateway.Get("api/admin/votes/"))
}

func (a *Admin) DeleteVote(ctx context.Context, id int64) error {
	return exec(ctx, a.d, del(idPath("api/admin/votes/%d/", id)))
}
