package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/wolfeidau/polly/internal/models"
	"github.com/wolfeidau/polly/internal/routes"
	"github.com/wolfeidau/polly/internal/session"
)

type LoginCmd struct {
	Username string `arg:"" help:"Account username"`
	Password string `help:"Account password, prompted for when omitted" env:"POLLY_PASSWORD"`
}

func (l *LoginCmd) Run(ctx context.Context, globals *Globals) error {
	app, err := globals.NewApp()
	if err != nil {
		return err
	}

	password := l.Password
	if password == "" {
		if password, err = app.promptPassword("Password"); err != nil {
			return err
		}
	}

	err = app.Session.Login(ctx, l.Username, password)
	return app.reportLogin(err)
}

type RegisterCmd struct {
	Username string `arg:"" help:"Account username"`
	Email    string `help:"Email address" required:""`
	Password string `help:"Account password, prompted for when omitted" env:"POLLY_PASSWORD"`
}

func (r *RegisterCmd) Run(ctx context.Context, globals *Globals) error {
	app, err := globals.NewApp()
	if err != nil {
		return err
	}

	password, confirm := r.Password, r.Password
	if password == "" {
		if password, err = app.promptPassword("Password"); err != nil {
			return err
		}
		if confirm, err = app.promptPassword("Confirm password"); err != nil {
			return err
		}
	}

	err = app.Session.Register(ctx, models.Registration{
		Username:  r.Username,
		Email:     r.Email,
		Password:  password,
		Password2: confirm,
	})
	return app.reportLogin(err)
}

// reportLogin prints the outcome of a login or registration.
func (a *App) reportLogin(err error) error {
	snap := a.Session.State()

	switch snap.State {
	case session.StateReady:
		fmt.Fprintf(a.out, "Logged in as %s (%s)\n", snap.Profile.Username, snap.Profile.Role)
		fmt.Fprintf(a.out, "Home: %s\n", routes.Home(snap))
		return nil
	case session.StateProfileFailed:
		fmt.Fprintf(a.out, "Logged in, but the profile could not be loaded: %s\n", snap.Error)
		return nil
	case session.StateUnauthenticated:
		if snap.Error != "" {
			return errors.New(snap.Error)
		}
	case session.StateLoggedOut:
		return errors.New("session rejected by server, please log in again")
	}

	if err != nil {
		return err
	}
	return fmt.Errorf("login did not complete (%s)", snap.State)
}

type LogoutCmd struct{}

func (l *LogoutCmd) Run(ctx context.Context, globals *Globals) error {
	app, err := globals.NewApp()
	if err != nil {
		return err
	}

	app.Session.Logout()
	fmt.Fprintln(app.out, "Logged out.")
	return nil
}

type WhoamiCmd struct {
	Output string `help:"Output format" enum:"table,yaml" default:"table"`
}

func (w *WhoamiCmd) Run(ctx context.Context, globals *Globals) error {
	app, err := globals.NewApp()
	if err != nil {
		return err
	}

	snap := app.restore(ctx)
	if !snap.Authenticated() {
		return errNotLoggedIn
	}
	if snap.State != session.StateReady {
		return fmt.Errorf("logged in, but the profile could not be loaded: %s", snap.Error)
	}

	if w.Output == "yaml" {
		return app.printYAML(snap.Profile)
	}

	p := snap.Profile
	tw := app.table()
	fmt.Fprintf(tw, "ID:\t%d\n", p.ID)
	fmt.Fprintf(tw, "Username:\t%s\n", p.Username)
	fmt.Fprintf(tw, "Email:\t%s\n", p.Email)
	fmt.Fprintf(tw, "Role:\t%s\n", p.Role)
	fmt.Fprintf(tw, "Active:\t%t\n", p.Active)
	fmt.Fprintf(tw, "Joined:\t%s\n", formatTime(&p.JoinedAt))
	fmt.Fprintf(tw, "Layout:\t%s\n", routes.Layout(snap))
	fmt.Fprintf(tw, "Home:\t%s\n", routes.Home(snap))
	if exp, err := app.tokenExpiry(); err == nil {
		fmt.Fprintf(tw, "Token expires:\t%s\n", formatTime(&exp))
	}
	return tw.Flush()
}

type ProfileCmd struct {
	Update ProfileUpdateCmd `cmd:"" help:"Update username or email"`
}

type ProfileUpdateCmd struct {
	Username string `help:"New username"`
	Email    string `help:"New email address"`
}

func (p *ProfileUpdateCmd) Run(ctx context.Context, globals *Globals) error {
	if p.Username == "" && p.Email == "" {
		return errors.New("nothing to update, pass --username and/or --email")
	}

	app, err := globals.NewApp()
	if err != nil {
		return err
	}

	if _, err := app.authorize(ctx, "/profile"); err != nil {
		return err
	}

	err = app.Session.UpdateProfile(ctx, models.ProfileUpdate{Username: p.Username, Email: p.Email})
	if err != nil {
		if errors.Is(err, session.ErrSessionExpired) {
			return errNotLoggedIn
		}
		return failure("update profile failed", err)
	}

	profile := app.Session.State().Profile
	fmt.Fprintf(app.out, "Profile updated: %s <%s>\n", profile.Username, profile.Email)
	return nil
}
