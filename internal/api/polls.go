package api

import (
	"context"
	"net/url"

	"github.com/wolfeidau/polly/internal/gateway"
	"github.com/wolfeidau/polly/internal/models"
)

// CategoryAll disables category filtering.
const CategoryAll = "All"

// categoryCodes maps display names to backend category values.
var categoryCodes = map[string]string{
	"Technology":    "TECH",
	"Entertainment": "ENT",
	"Sports":        "SPRT",
	"Politics":      "POL",
	"Lifestyle":     "LIFE",
	"Education":     "EDU",
}

// CategoryCode returns the backend value for a category display name.
// Unknown names are passed through so backend codes work as well.
func CategoryCode(name string) string {
	if code, ok := categoryCodes[name]; ok {
		return code
	}
	return name
}

// Polls covers the poll and vote endpoints used by regular users.
type Polls struct {
	d Dispatcher
}

// List returns active polls, optionally filtered by category.
func (p *Polls) List(ctx context.Context, category string) ([]models.Poll, error) {
	req := gateway.Get("api/polls/")
	if category != "" && category != CategoryAll {
		req.Query = url.Values{"category": {CategoryCode(category)}}
	}
	return call[[]models.Poll](ctx, p.d, req)
}

// Categories returns the backend category choices.
func (p *Polls) Categories(ctx context.Context) ([]models.Category, error) {
	return call[[]models.Category](ctx, p.d, gateway.Get("api/polls/categories/"))
}

func (p *Polls) Get(ctx context.Context, id int64) (*models.Poll, error) {
	return call[*models.Poll](ctx, p.d, gateway.Get(idPath("api/polls/%d/", id)))
}

func (p *Polls) Create(ctx context.Context, poll models.PollCreate) (*models.Poll, error) {
	return call[*models.Poll](ctx, p.d, gateway.Post("api/polls/create/", poll))
}

// Vote casts a vote for optionID and returns the server message.
func (p *Polls) Vote(ctx context.Context, pollID, optionID int64) (string, error) {
	out, err := call[models.Detail](ctx, p.d, gateway.Post(idPath("api/polls/%d/vote/", pollID), models.VoteRequest{Option: optionID}))
	return out.Detail, err
}

// Retract withdraws the caller's vote and returns the server message.
func (p *Polls) Retract(ctx context.Context, pollID int64) (string, error) {
	out, err := call[models.Detail](ctx, p.d, del(idPath("api/polls/%d/retract/", pollID)))
	return out.Detail, err
}

func (p *Polls) Results(ctx context.Context, pollID int64) (*models.PollResult, error) {
	return call[*models.PollResult](ctx, p.d, gateway.Get(idPath("api/polls/%d/results/", pollID)))
}

func (p *Polls) Delete(ctx context.Context, pollID int64) error {
	return exec(ctx, p.d, del(idPath("api/polls/%d/", pollID)))
}

// History returns the polls the caller voted on.
func (p *Polls) History(ctx context.Context) ([]models.Poll, error) {
	return call[[]models.Poll](ctx, p.d, gateway.Get("api/polls/user-history/"))
}

// Mine returns the polls the caller created.
func (p *Polls) Mine(ctx context.Context) ([]models.Poll, error) {
	return call[[]models.Poll](ctx, p.d, gateway.Get("api/polls/user-polls/"))
}

func (p *Polls) CreateMine(ctx context.Context, poll models.PollCreate) (*models.Poll, error) {
	return call[*models.Poll](ctx, p.d, gateway.Post("api/polls/user-polls/", poll))
}

func (p *Polls) GetMine(ctx context.Context, id int64) (*models.Poll, error) {
	return call[*models.Poll](ctx, p.d, gateway.Get(idPath("api/polls/user-polls/%d/", id)))
}

func (p *Polls) UpdateMine(ctx context.Context, id int64, poll models.PollCreate) (*models.Poll, error) {
	return call[*models.Poll](ctx, p.d, patch(idPath("api/polls/user-polls/%d/", id), poll))
}

func (p *Polls) DeleteMine(ctx context.Context, id int64) error {
	return exec(ctx, p.d, del(idPath("api/polls/user-polls/%d/", id)))
}
