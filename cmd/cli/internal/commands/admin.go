package commands

import (
	"context"
	"fmt"
)

type AdminCmd struct {
	Users AdminUsersCmd `cmd:"" help:"Manage users"`
	Polls AdminPollsCmd `cmd:"" help:"Manage polls"`
	Votes AdminVotesCmd `cmd:"" help:"Manage votes"`
}

type AdminUsersCmd struct {
	List   AdminUsersListCmd   `cmd:"" help:"List users"`
	Delete AdminUsersDeleteCmd `cmd:"" help:"Delete a user"`
}

type AdminPollsCmd struct {
	List   AdminPollsListCmd   `cmd:"" help:"List all polls"`
	Delete AdminPollsDeleteCmd `cmd:"" help:"Delete a poll"`
}

type AdminVotesCmd struct {
	List   AdminVotesListCmd   `cmd:"" help:"List all votes"`
	Delete AdminVotesDeleteCmd `cmd:"" help:"Delete a vote"`
}

// adminApp wires the client stack and checks the signed in user may open
// the admin screen at path.
func adminApp(ctx context.Context, globals *Globals, path string) (*App, error) {
	app, err := globals.NewApp()
	if err != nil {
		return nil, err
	}

	if _, err := app.authorize(ctx, path); err != nil {
		return nil, err
	}

	return app, nil
}

type AdminUsersListCmd struct {
	Output string `help:"Output format" enum:"table,yaml" default:"table"`
}

func (l *AdminUsersListCmd) Run(ctx context.Context, globals *Globals) error {
	app, err := adminApp(ctx, globals, "/admin/users")
	if err != nil {
		return err
	}

	users, err := app.API.Admin.Users(ctx)
	if err != nil {
		return failure("failed to list users", err)
	}

	if l.Output == "yaml" {
		return app.printYAML(users)
	}

	tw := app.table()
	fmt.Fprintln(tw, "ID\tUSERNAME\tEMAIL\tROLE\tACTIVE\tJOINED")
	for _, u := range users {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%t\t%s\n", u.ID, u.Username, u.Email, u.Role, u.Active, formatTime(&u.JoinedAt))
	}
	return tw.Flush()
}

type AdminUsersDeleteCmd struct {
	ID int64 `arg:"" help:"User ID"`
}

func (d *AdminUsersDeleteCmd) Run(ctx context.Context, globals *Globals) error {
	app, err := adminApp(ctx, globals, "/admin/users")
	if err != nil {
		return err
	}

	if err := app.API.Admin.DeleteUser(ctx, d.ID); err != nil {
		return failure("failed to delete user", err)
	}

	fmt.Fprintf(app.out, "Deleted user %d\n", d.ID)
	return nil
}

type AdminPollsListCmd struct {
	Output string `help:"Output format" enum:"table,yaml" default:"table"`
}

func (l *AdminPollsListCmd) Run(ctx context.Context, globals *Globals) error {
	app, err := adminApp(ctx, globals, "/admin/polls")
	if err != nil {
		return err
	}

	polls, err := app.API.Admin.Polls(ctx)
	if err != nil {
		return failure("failed to list polls", err)
	}

	if l.Output == "yaml" {
		return app.printYAML(polls)
	}

	tw := app.table()
	fmt.Fprintln(tw, "ID\tQUESTION\tCATEGORY\tCREATOR\tOPTIONS\tEXPIRES")
	for _, p := range polls {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\t%s\n", p.ID, truncate(p.Question, 40), p.Category, p.Creator, len(p.Options), formatTime(p.ExpiryDate))
	}
	return tw.Flush()
}

type AdminPollsDeleteCmd struct {
	ID int64 `arg:"" help:"Poll ID"`
}

func (d *AdminPollsDeleteCmd) Run(ctx context.Context, globals *Globals) error {
	app, err := adminApp(ctx, globals, "/admin/polls")
	if err != nil {
		return err
	}

	if err := app.API.Admin.DeletePoll(ctx, d.ID); err != nil {
		return failure("failed to delete poll", err)
	}

	fmt.Fprintf(app.out, "Deleted poll %d\n", d.ID)
	return nil
}

type AdminVotesListCmd struct {
	Output string `help:"Output format" enum:"table,yaml" default:"table"`
}

func (l *AdminVotesListCmd) Run(ctx context.Context, globals *Globals) error {
	app, err := adminApp(ctx, globals, "/admin/votes")
	if err != nil {
		return err
	}

	votes, err := app.API.Admin.Votes(ctx)
	if err != nil {
		return failure("failed to list votes", err)
	}

	if l.Output == "yaml" {
		return app.printYAML(votes)
	}

	tw := app.table()
	fmt.Fprintln(tw, "ID\tUSER\tPOLL\tOPTION\tCAST")
	for _, v := range votes {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", v.ID, v.User, truncate(v.Poll, 40), v.Option, formatTime(&v.CreatedAt))
	}
	return tw.Flush()
}

type AdminVotesDeleteCmd struct {
	ID int64 `arg:"" help:"Vote ID"`
}

func (d *AdminVotesDeleteCmd) Run(ctx context.Context, globals *Globals) error {
	app, err := adminApp(ctx, globals, "/admin/votes")
	if err != nil {
		return err
	}

	if err := app.API.Admin.DeleteVote(ctx, d.ID); err != nil {
		return failure("failed to delete vote", err)
	}

	fmt.Fprintf(app.out, "Deleted vote %d\n", d.ID)
	return nil
}
