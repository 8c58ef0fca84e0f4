package main

import (
	"context"
	"time"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/polly/cmd/cli/internal/commands"
	"github.com/wolfeidau/polly/internal/config"
	"github.com/wolfeidau/polly/internal/logger"
	"github.com/wolfeidau/polly/internal/telemetry"
)

var (
	version = "dev"
	cli     struct {
		Login    commands.LoginCmd    `cmd:"" help:"Log in with username and password"`
		Register commands.RegisterCmd `cmd:"" help:"Create an account and log in"`
		Logout   commands.LogoutCmd   `cmd:"" help:"Log out and forget stored tokens"`
		Whoami   commands.WhoamiCmd   `cmd:"" help:"Show the signed in user"`
		Profile  commands.ProfileCmd  `cmd:"" help:"Manage your profile"`
		Polls    commands.PollsCmd    `cmd:"" help:"Browse, vote on and create polls"`
		Admin    commands.AdminCmd    `cmd:"" help:"Administer users, polls and votes"`
		Navigate commands.NavigateCmd `cmd:"" help:"Show how a screen path resolves for the current session"`

		Debug          bool          `help:"Enable debug mode."`
		Server         string        `help:"Polly server URL" default:"http://localhost:8000/" env:"POLLY_SERVER"`
		Timeout        time.Duration `help:"HTTP request timeout" default:"30s" env:"POLLY_TIMEOUT"`
		CredentialsDir string        `help:"Token store directory (default ~/.polly/credentials)" env:"POLLY_CREDENTIALS_DIR"`
		CacheDir       string        `help:"HTTP cache directory, in memory when empty" env:"POLLY_CACHE_DIR"`
		Telemetry      bool          `help:"Export traces and metrics over OTLP." env:"POLLY_TELEMETRY"`
		Version        kong.VersionFlag
	}
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	ctx := context.Background()
	cmd := kong.Parse(&cli,
		kong.Name("polly-cli"),
		kong.Description("Command line client for the polly polling service."),
		kong.Configuration(config.YAML, config.DefaultPath),
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))

	log.Logger = logger.Setup(cli.Debug)

	shutdown := func(context.Context) error { return nil }
	if cli.Telemetry {
		var err error
		shutdown, err = telemetry.InitTelemetry(ctx, "polly-cli", version)
		cmd.FatalIfErrorf(err)
	}

	err := cmd.Run(&commands.Globals{
		Debug:          cli.Debug,
		Version:        version,
		Server:         cli.Server,
		Timeout:        cli.Timeout,
		CredentialsDir: cli.CredentialsDir,
		CacheDir:       cli.CacheDir,
	})

	if shutdownErr := shutdown(ctx); shutdownErr != nil {
		log.Warn().Err(shutdownErr).Msg("failed to flush telemetry")
	}

	cmd.FatalIfErrorf(err)
}
