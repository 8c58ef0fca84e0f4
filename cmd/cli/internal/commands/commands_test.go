package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/polly/internal/credentials"
	"github.com/wolfeidau/polly/internal/models"
)

// backend is a minimal polly server. Access tokens are "A-<username>" and
// refresh tokens "R-<username>"; access tokens listed in expired are
// rejected until refreshed.
type backend struct {
	mu      sync.Mutex
	users   map[string]models.UserProfile
	expired map[string]bool
	deleted []string
}

func newBackend(t *testing.T) (*backend, *httptest.Server) {
	t.Helper()

	b := &backend{
		users: map[string]models.UserProfile{
			"alice": {ID: 1, Username: "alice", Email: "alice@example.com", Role: models.RoleUser, Active: true},
			"root":  {ID: 2, Username: "root", Email: "root@example.com", Role: models.RoleAdmin, Active: true},
		},
		expired: map[string]bool{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/users/login/", func(w http.ResponseWriter, r *http.Request) {
		var creds models.Credentials
		_ = json.NewDecoder(r.Body).Decode(&creds)
		if _, ok := b.users[creds.Username]; !ok || creds.Password != "pw" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "No active account found with the given credentials"})
			return
		}
		writeJSON(w, http.StatusOK, models.TokenPair{Access: "A-" + creds.Username, Refresh: "R-" + creds.Username})
	})
	mux.HandleFunc("POST /api/users/token/refresh/", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		name, ok := strings.CutPrefix(body["refresh"], "R-")
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Token is invalid or expired"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"access": "A2-" + name})
	})
	mux.HandleFunc("GET /api/users/me/", b.authed(func(w http.ResponseWriter, r *http.Request, user models.UserProfile) {
		writeJSON(w, http.StatusOK, user)
	}))
	mux.HandleFunc("GET /api/polls/", b.authed(func(w http.ResponseWriter, r *http.Request, user models.UserProfile) {
		writeJSON(w, http.StatusOK, []models.Poll{
			{ID: 3, Question: "Tabs or spaces?", Creator: "root", Category: r.URL.Query().Get("category")},
		})
	}))
	mux.HandleFunc("GET /api/admin/users/", b.authed(func(w http.ResponseWriter, r *http.Request, user models.UserProfile) {
		if !user.IsAdmin() {
			writeJSON(w, http.StatusForbidden, map[string]string{"detail": "You do not have permission to perform this action."})
			return
		}
		writeJSON(w, http.StatusOK, []models.UserProfile{b.users["alice"], b.users["root"]})
	}))
	mux.HandleFunc("DELETE /api/admin/users/{id}/", b.authed(func(w http.ResponseWriter, r *http.Request, user models.UserProfile) {
		b.mu.Lock()
		b.deleted = append(b.deleted, r.PathValue("id"))
		b.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return b, srv
}

func (b *backend) authed(next func(http.ResponseWriter, *http.Request, models.UserProfile)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, _ := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")

		b.mu.Lock()
		expired := b.expired[token]
		b.mu.Unlock()

		name := strings.TrimPrefix(strings.TrimPrefix(token, "A2-"), "A-")
		user, ok := b.users[name]
		if expired || !ok || name == token {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Given token not valid for any token type"})
			return
		}
		next(w, r, user)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newGlobals(t *testing.T, srv *httptest.Server) (*Globals, *bytes.Buffer) {
	t.Helper()

	var out bytes.Buffer
	return &Globals{
		Server:         srv.URL,
		CredentialsDir: t.TempDir(),
		Stdout:         &out,
		Stdin:          strings.NewReader(""),
	}, &out
}

func storedTokens(t *testing.T, g *Globals) (string, string) {
	t.Helper()

	store, err := credentials.NewFileStore(g.CredentialsDir)
	require.NoError(t, err)

	access, _ := store.ReadAccess()
	refresh, _ := store.ReadRefresh()
	return access, refresh
}

func TestLoginWhoamiLogout(t *testing.T) {
	_, srv := newBackend(t)
	g, out := newGlobals(t, srv)
	ctx := context.Background()

	require.NoError(t, (&LoginCmd{Username: "alice", Password: "pw"}).Run(ctx, g))
	assert.Contains(t, out.String(), "Logged in as alice (user)")
	assert.Contains(t, out.String(), "Home: /active-polls")

	access, refresh := storedTokens(t, g)
	assert.Equal(t, "A-alice", access)
	assert.Equal(t, "R-alice", refresh)

	out.Reset()
	require.NoError(t, (&WhoamiCmd{Output: "table"}).Run(ctx, g))
	assert.Contains(t, out.String(), "alice@example.com")
	assert.Contains(t, out.String(), "Layout:")

	out.Reset()
	require.NoError(t, (&WhoamiCmd{Output: "yaml"}).Run(ctx, g))
	assert.Contains(t, out.String(), "username: alice")
	assert.Contains(t, out.String(), "role: user")

	require.NoError(t, (&LogoutCmd{}).Run(ctx, g))
	access, refresh = storedTokens(t, g)
	assert.Empty(t, access)
	assert.Empty(t, refresh)

	err := (&WhoamiCmd{Output: "table"}).Run(ctx, g)
	assert.ErrorIs(t, err, errNotLoggedIn)
}

func TestLogin_PromptsForPassword(t *testing.T) {
	_, srv := newBackend(t)
	g, out := newGlobals(t, srv)
	g.Stdin = strings.NewReader("pw\n")

	require.NoError(t, (&LoginCmd{Username: "root"}).Run(context.Background(), g))
	assert.Contains(t, out.String(), "Password: ")
	assert.Contains(t, out.String(), "Logged in as root (admin)")
	assert.Contains(t, out.String(), "Home: /admin/dashboard")
}

func TestLogin_BadCredentials(t *testing.T) {
	_, srv := newBackend(t)
	g, _ := newGlobals(t, srv)

	err := (&LoginCmd{Username: "alice", Password: "nope"}).Run(context.Background(), g)
	require.Error(t, err)
	assert.Equal(t, "No active account found with the given credentials", err.Error())

	access, refresh := storedTokens(t, g)
	assert.Empty(t, access)
	assert.Empty(t, refresh)
}

func TestPollsList_RefreshesExpiredToken(t *testing.T) {
	b, srv := newBackend(t)
	g, out := newGlobals(t, srv)
	ctx := context.Background()

	require.NoError(t, (&LoginCmd{Username: "alice", Password: "pw"}).Run(ctx, g))

	b.mu.Lock()
	b.expired["A-alice"] = true
	b.mu.Unlock()

	out.Reset()
	require.NoError(t, (&PollsListCmd{Category: "Technology", Output: "table"}).Run(ctx, g))
	assert.Contains(t, out.String(), "Tabs or spaces?")
	assert.Contains(t, out.String(), "TECH")

	access, refresh := storedTokens(t, g)
	assert.Equal(t, "A2-alice", access)
	assert.Equal(t, "R-alice", refresh, "refresh token is not rotated")
}

func TestPollsList_NotLoggedIn(t *testing.T) {
	_, srv := newBackend(t)
	g, _ := newGlobals(t, srv)

	err := (&PollsListCmd{Category: "All", Output: "table"}).Run(context.Background(), g)
	assert.ErrorIs(t, err, errNotLoggedIn)
}

func TestAdminUsers(t *testing.T) {
	t.Run("user is denied before any admin call", func(t *testing.T) {
		_, srv := newBackend(t)
		g, _ := newGlobals(t, srv)
		ctx := context.Background()

		require.NoError(t, (&LoginCmd{Username: "alice", Password: "pw"}).Run(ctx, g))

		err := (&AdminUsersListCmd{Output: "table"}).Run(ctx, g)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "permission denied")
	})

	t.Run("admin lists and deletes", func(t *testing.T) {
		b, srv := newBackend(t)
		g, out := newGlobals(t, srv)
		ctx := context.Background()

		require.NoError(t, (&LoginCmd{Username: "root", Password: "pw"}).Run(ctx, g))

		out.Reset()
		require.NoError(t, (&AdminUsersListCmd{Output: "table"}).Run(ctx, g))
		assert.Contains(t, out.String(), "alice@example.com")
		assert.Contains(t, out.String(), "root@example.com")

		require.NoError(t, (&AdminUsersDeleteCmd{ID: 1}).Run(ctx, g))
		assert.Equal(t, []string{"1"}, b.deleted)
	})
}

func TestNavigate(t *testing.T) {
	_, srv := newBackend(t)
	g, out := newGlobals(t, srv)
	ctx := context.Background()

	require.NoError(t, (&NavigateCmd{Path: "/admin/users"}).Run(ctx, g))
	assert.Contains(t, out.String(), "unauthenticated")
	assert.Contains(t, out.String(), "redirect")
	assert.Contains(t, out.String(), "/login")

	require.NoError(t, (&LoginCmd{Username: "alice", Password: "pw"}).Run(ctx, g))

	out.Reset()
	require.NoError(t, (&NavigateCmd{Path: "/admin/users"}).Run(ctx, g))
	assert.Contains(t, out.String(), "ready")
	assert.Contains(t, out.String(), "/active-polls")

	out.Reset()
	require.NoError(t, (&NavigateCmd{Path: "/poll/12"}).Run(ctx, g))
	assert.Contains(t, out.String(), "/poll/{id}")
	assert.Contains(t, out.String(), "12")
	assert.Contains(t, out.String(), "render")
}

func TestPromptPassword_ReadsLineWhenNotTerminal(t *testing.T) {
	_, srv := newBackend(t)
	g, _ := newGlobals(t, srv)
	g.Stdin = strings.NewReader("secret\nsecret\n")

	app, err := g.NewApp()
	require.NoError(t, err)
	assert.False(t, app.tty, "a supplied reader is never treated as a terminal")

	password, err := app.promptPassword("Password")
	require.NoError(t, err)
	assert.Equal(t, "secret", password)

	confirm, err := app.promptPassword("Confirm password")
	require.NoError(t, err)
	assert.Equal(t, "secret", confirm)
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		n    int
		want string
	}{
		{name: "short", in: "Tabs", n: 10, want: "Tabs"},
		{name: "exact", in: "Tabs or spaces", n: 14, want: "Tabs or spaces"},
		{name: "ascii", in: "Tabs or spaces?", n: 10, want: "Tabs or..."},
		{name: "multibyte", in: "¿Café o té? ¡Decide ya!", n: 10, want: "¿Café o..."},
		{name: "emoji", in: "🍕🍔🌮🍣🍜", n: 4, want: "🍕..."},
		{name: "no room for marker", in: "Tabs or spaces?", n: 2, want: "Ta"},
		{name: "zero", in: "Tabs", n: 0, want: ""},
		{name: "negative", in: "Tabs", n: -1, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncate(tt.in, tt.n)
			assert.Equal(t, tt.want, got)
			assert.True(t, utf8.ValidString(got))
		})
	}
}
