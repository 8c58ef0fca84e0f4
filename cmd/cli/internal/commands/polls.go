package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wolfeidau/polly/internal/api"
	"github.com/wolfeidau/polly/internal/models"
)

type PollsCmd struct {
	List       PollsListCmd       `cmd:"" help:"List active polls"`
	Categories PollsCategoriesCmd `cmd:"" help:"List poll categories"`
	Show       PollsShowCmd       `cmd:"" help:"Show a poll"`
	Vote       PollsVoteCmd       `cmd:"" help:"Vote on a poll"`
	Retract    PollsRetractCmd    `cmd:"" help:"Retract your vote"`
	Results    PollsResultsCmd    `cmd:"" help:"Show poll results"`
	Create     PollsCreateCmd     `cmd:"" help:"Create a poll"`
	Delete     PollsDeleteCmd     `cmd:"" help:"Delete a poll"`
	History    PollsHistoryCmd    `cmd:"" help:"List polls you voted on"`
	Mine       PollsMineCmd       `cmd:"" help:"List polls you created"`
}

type PollsListCmd struct {
	Category string `help:"Category name (Technology, Entertainment, Sports, Politics, Lifestyle, Education) or All" default:"All"`
	Output   string `help:"Output format" enum:"table,yaml" default:"table"`
}

func (l *PollsListCmd) Run(ctx context.Context, globals *Globals) error {
	app, err := globals.NewApp()
	if err != nil {
		return err
	}

	if _, err := app.authorize(ctx, "/explore"); err != nil {
		return err
	}

	polls, err := app.API.Polls.List(ctx, l.Category)
	if err != nil {
		return failure("failed to list polls", err)
	}

	return app.printPolls(polls, l.Output)
}

type PollsCategoriesCmd struct{}

func (c *PollsCategoriesCmd) Run(ctx context.Context, globals *Globals) error {
	app, err := globals.NewApp()
	if err != nil {
		return err
	}

	categories, err := app.API.Polls.Categories(ctx)
	if err != nil {
		return failure("failed to list categories", err)
	}

	tw := app.table()
	fmt.Fprintln(tw, "CODE\tNAME")
	for _, c := range categories {
		fmt.Fprintf(tw, "%s\t%s\n", c.Value, c.Label)
	}
	return tw.Flush()
}

type PollsShowCmd struct {
	ID     int64  `arg:"" help:"Poll ID"`
	Output string `help:"Output format" enum:"table,yaml" default:"table"`
}

func (s *PollsShowCmd) Run(ctx context.Context, globals *Globals) error {
	app, err := globals.NewApp()
	if err != nil {
		return err
	}

	if _, err := app.authorize(ctx, pollPath(s.ID)); err != nil {
		return err
	}

	poll, err := app.API.Polls.Get(ctx, s.ID)
	if err != nil {
		return failure("failed to get poll", err)
	}

	if s.Output == "yaml" {
		return app.printYAML(poll)
	}

	fmt.Fprintf(app.out, "%s\n", poll.Question)
	fmt.Fprintf(app.out, "Category: %s  Created by: %s  Expires: %s\n\n", poll.Category, poll.Creator, formatTime(poll.ExpiryDate))

	tw := app.table()
	fmt.Fprintln(tw, "OPTION\tTEXT\tVOTES\t")
	for _, o := range poll.Options {
		mark := ""
		if poll.UserVote != nil && poll.UserVote.ID == o.ID {
			mark = "*"
		}
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\n", o.ID, o.Text, o.Votes, mark)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if poll.Expired(time.Now()) {
		fmt.Fprintln(app.out, "\nThis poll has expired.")
	}
	return nil
}

type PollsVoteCmd struct {
	ID     int64 `arg:"" help:"Poll ID"`
	Option int64 `arg:"" help:"Option ID"`
}

func (v *PollsVoteCmd) Run(ctx context.Context, globals *Globals) error {
	app, err := globals.NewApp()
	if err != nil {
		return err
	}

	if _, err := app.authorize(ctx, pollPath(v.ID)); err != nil {
		return err
	}

	msg, err := app.API.Polls.Vote(ctx, v.ID, v.Option)
	if err != nil {
		return failure("vote failed", err)
	}

	fmt.Fprintln(app.out, orDefault(msg, "Vote recorded."))
	return nil
}

type PollsRetractCmd struct {
	ID int64 `arg:"" help:"Poll ID"`
}

func (r *PollsRetractCmd) Run(ctx context.Context, globals *Globals) error {
	app, err := globals.NewApp()
	if err != nil {
		return err
	}

	if _, err := app.authorize(ctx, pollPath(r.ID)); err != nil {
		return err
	}

	msg, err := app.API.Polls.Retract(ctx, r.ID)
	if err != nil {
		return failure("retract failed", err)
	}

	fmt.Fprintln(app.out, orDefault(msg, "Vote retracted."))
	return nil
}

type PollsResultsCmd struct {
	ID     int64  `arg:"" help:"Poll ID"`
	Output string `help:"Output format" enum:"table,yaml" default:"table"`
}

func (r *PollsResultsCmd) Run(ctx context.Context, globals *Globals) error {
	app, err := globals.NewApp()
	if err != nil {
		return err
	}

	if _, err := app.authorize(ctx, pollPath(r.ID)); err != nil {
		return err
	}

	res, err := app.API.Polls.Results(ctx, r.ID)
	if err != nil {
		return failure("failed to get results", err)
	}

	if r.Output == "yaml" {
		return app.printYAML(res)
	}

	fmt.Fprintf(app.out, "%s\n\n", res.Question)

	tw := app.table()
	fmt.Fprintln(tw, "OPTION\tVOTES\tPERCENT\t")
	for _, o := range res.Options {
		bar := strings.Repeat("█", int(o.Percentage/5))
		fmt.Fprintf(tw, "%s\t%d\t%.1f%%\t%s\n", o.Text, o.Votes, o.Percentage, bar)
	}
	return tw.Flush()
}

type PollsCreateCmd struct {
	Question string        `help:"Poll question" required:""`
	Category string        `help:"Category name or code" required:""`
	Options  []string      `name:"option" help:"Answer option, repeat for each option" required:""`
	Expires  time.Duration `help:"Close the poll after this long"`
}

func (c *PollsCreateCmd) Run(ctx context.Context, globals *Globals) error {
	if len(c.Options) < 2 {
		return errors.New("a poll needs at least two options")
	}

	app, err := globals.NewApp()
	if err != nil {
		return err
	}

	if _, err := app.authorize(ctx, "/create-poll"); err != nil {
		return err
	}

	req := models.PollCreate{
		Question: c.Question,
		Category: api.CategoryCode(c.Category),
		Options:  c.Options,
	}
	if c.Expires > 0 {
		expiry := time.Now().Add(c.Expires).UTC()
		req.ExpiryDate = &expiry
	}

	poll, err := app.API.Polls.Create(ctx, req)
	if err != nil {
		return failure("failed to create poll", err)
	}

	fmt.Fprintf(app.out, "Created poll %d: %s\n", poll.ID, poll.Question)
	return nil
}

type PollsDeleteCmd struct {
	ID int64 `arg:"" help:"Poll ID"`
}

func (d *PollsDeleteCmd) Run(ctx context.Context, globals *Globals) error {
	app, err := globals.NewApp()
	if err != nil {
		return err
	}

	if _, err := app.authorize(ctx, pollPath(d.ID)); err != nil {
		return err
	}

	if err := app.API.Polls.Delete(ctx, d.ID); err != nil {
		return failure("failed to delete poll", err)
	}

	fmt.Fprintf(app.out, "Deleted poll %d\n", d.ID)
	return nil
}

type PollsHistoryCmd struct {
	Output string `help:"Output format" enum:"table,yaml" default:"table"`
}

func (h *PollsHistoryCmd) Run(ctx context.Context, globals *Globals) error {
	app, err := globals.NewApp()
	if err != nil {
		return err
	}

	if _, err := app.authorize(ctx, "/history"); err != nil {
		return err
	}

	polls, err := app.API.Polls.History(ctx)
	if err != nil {
		return failure("failed to get history", err)
	}

	return app.printPolls(polls, h.Output)
}

type PollsMineCmd struct {
	Output string `help:"Output format" enum:"table,yaml" default:"table"`
}

func (m *PollsMineCmd) Run(ctx context.Context, globals *Globals) error {
	app, err := globals.NewApp()
	if err != nil {
		return err
	}

	if _, err := app.authorize(ctx, "/active-polls"); err != nil {
		return err
	}

	polls, err := app.API.Polls.Mine(ctx)
	if err != nil {
		return failure("failed to list your polls", err)
	}

	return app.printPolls(polls, m.Output)
}

func (a *App) printPolls(polls []models.Poll, output string) error {
	if output == "yaml" {
		return a.printYAML(polls)
	}

	if len(polls) == 0 {
		fmt.Fprintln(a.out, "No polls found.")
		return nil
	}

	now := time.Now()
	tw := a.table()
	fmt.Fprintln(tw, "ID\tQUESTION\tCATEGORY\tCREATOR\tEXPIRES\tVOTED")
	for _, p := range polls {
		expires := formatTime(p.ExpiryDate)
		if p.Expired(now) {
			expires = "expired"
		}
		voted := ""
		if p.UserVote != nil {
			voted = p.UserVote.Text
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", p.ID, truncate(p.Question, 40), p.Category, p.Creator, expires, voted)
	}
	return tw.Flush()
}

func pollPath(id int64) string {
	return fmt.Sprintf("/poll/%d", id)
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
