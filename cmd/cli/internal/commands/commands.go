package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/polly/internal/api"
	"github.com/wolfeidau/polly/internal/client"
	"github.com/wolfeidau/polly/internal/credentials"
	"github.com/wolfeidau/polly/internal/gateway"
	"github.com/wolfeidau/polly/internal/routes"
	"github.com/wolfeidau/polly/internal/session"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

var errNotLoggedIn = errors.New("not logged in, run: polly-cli login <username>")

type Globals struct {
	Debug          bool
	Version        string
	Server         string
	Timeout        time.Duration
	CredentialsDir string
	CacheDir       string

	Stdout io.Writer
	Stdin  io.Reader
}

func (g *Globals) stdout() io.Writer {
	if g.Stdout == nil {
		return os.Stdout
	}
	return g.Stdout
}

func (g *Globals) stdin() io.Reader {
	if g.Stdin == nil {
		return os.Stdin
	}
	return g.Stdin
}

// App is the wired client stack shared by all commands.
type App struct {
	Tokens  *credentials.FileStore
	API     *api.Client
	Session *session.Controller
	Routes  *routes.Table

	out io.Writer
	in  *bufio.Reader
	tty bool // stdin is the process terminal
}

// NewApp wires the token store, HTTP client, gateway, API bindings and
// session controller from the global flags.
func (g *Globals) NewApp() (*App, error) {
	tokens, err := credentials.NewFileStore(g.CredentialsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token store: %w", err)
	}

	config := client.DefaultConfig()
	config.Debug = g.Debug
	config.CacheDir = g.CacheDir
	if g.Server != "" {
		config.ServerURL = g.Server
	}
	if g.Timeout > 0 {
		config.Timeout = g.Timeout
	}

	httpClient, err := client.NewHTTPClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create http client: %w", err)
	}

	gw, err := gateway.New(config.ServerURL, httpClient, tokens)
	if err != nil {
		return nil, fmt.Errorf("failed to create gateway: %w", err)
	}

	apiClient := api.New(gw)

	return &App{
		Tokens:  tokens,
		API:     apiClient,
		Session: session.New(tokens, apiClient.Users),
		Routes:  routes.DefaultTable(),
		out:     g.stdout(),
		in:      bufio.NewReader(g.stdin()),
		tty:     g.Stdin == nil && term.IsTerminal(int(os.Stdin.Fd())),
	}, nil
}

// restore loads the profile of a stored session. A profile that failed to
// load for a transient reason is retried once with backoff.
func (a *App) restore(ctx context.Context) session.Snapshot {
	if err := a.Session.Start(ctx); err != nil {
		log.Debug().Err(err).Msg("failed to restore session")
	}

	if a.Session.State().State == session.StateProfileFailed {
		if err := a.Session.RetryProfile(ctx); err != nil {
			log.Debug().Err(err).Msg("failed to reload profile")
		}
	}

	return a.Session.State()
}

// authorize restores the session and checks it may open the screen at path.
func (a *App) authorize(ctx context.Context, path string) (session.Snapshot, error) {
	snap := a.restore(ctx)

	d := a.Routes.Navigate(snap, path)
	switch {
	case d.Kind == routes.Render:
		return snap, nil
	case d.Kind == routes.Redirect && d.Target == routes.PathLogin:
		return snap, errNotLoggedIn
	case snap.State == session.StateProfileFailed:
		return snap, fmt.Errorf("permission denied: %s (%s)", path, snap.Error)
	}

	return snap, fmt.Errorf("permission denied: %s is not available to %s accounts", path, routes.Layout(snap))
}

func (a *App) prompt(label string) (string, error) {
	fmt.Fprintf(a.out, "%s: ", label)

	line, err := a.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read %s: %w", strings.ToLower(label), err)
	}

	return strings.TrimSpace(line), nil
}

// promptPassword reads a secret without echo when stdin is a terminal,
// otherwise it reads a line like prompt.
func (a *App) promptPassword(label string) (string, error) {
	if !a.tty {
		return a.prompt(label)
	}

	fmt.Fprintf(a.out, "%s: ", label)
	secret, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(a.out)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", strings.ToLower(label), err)
	}

	return strings.TrimSpace(string(secret)), nil
}

func (a *App) table() *tabwriter.Writer {
	return tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
}

func (a *App) printYAML(v any) error {
	enc := yaml.NewEncoder(a.out)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return enc.Close()
}

// failure turns an API error into a short message for the terminal.
func failure(action string, err error) error {
	if gateway.StatusCode(err) == http.StatusUnauthorized {
		return errNotLoggedIn
	}

	var apiErr *gateway.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%s: %s", action, apiErr.Message(apiErr.Error()))
	}

	if gateway.IsTransient(err) {
		return fmt.Errorf("%s: unable to reach server: %w", action, err)
	}

	return fmt.Errorf("%s: %w", action, err)
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

// truncate shortens s to at most n runes, marking the cut with "..." when
// there is room for it.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:max(n, 0)])
	}
	return string(r[:n-3]) + "..."
}

func (a *App) tokenExpiry() (time.Time, error) {
	access, err := a.Tokens.ReadAccess()
	if err != nil {
		return time.Time{}, err
	}
	return credentials.AccessTokenExpiry(access)
}
