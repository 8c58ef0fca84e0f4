package routes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/polly/internal/models"
	"github.com/wolfeidau/polly/internal/session"
)

var (
	signedOut = session.Snapshot{State: session.StateUnauthenticated}
	loggedOut = session.Snapshot{State: session.StateLoggedOut}
	pending   = session.Snapshot{State: session.StateProfilePending}
	failed    = session.Snapshot{State: session.StateProfileFailed, Error: "Unable to load profile"}
	user      = session.Snapshot{State: session.StateReady, Profile: &models.UserProfile{Username: "alice", Role: models.RoleUser}}
	admin     = session.Snapshot{State: session.StateReady, Profile: &models.UserProfile{Username: "root", Role: models.RoleAdmin}}
)

func TestAuthorize(t *testing.T) {
	adminRoute := Route{Pattern: "/admin/users", AllowedRoles: adminOnly}
	userRoute := Route{Pattern: "/explore", AllowedRoles: userOnly}
	shared := Route{Pattern: "/profile", AllowedRoles: anyRole}
	login := Route{Pattern: PathLogin, Public: true}
	home := Route{Pattern: PathHome, Landing: true}

	tests := []struct {
		name   string
		snap   session.Snapshot
		route  Route
		kind   Kind
		target string
	}{
		{"anonymous to protected", signedOut, userRoute, Redirect, PathLogin},
		{"logged out to admin", loggedOut, adminRoute, Redirect, PathLogin},
		{"anonymous to public", signedOut, login, Render, ""},
		{"user to public", user, login, Render, ""},
		{"loading waits", session.Snapshot{State: session.StateAuthenticating}, userRoute, Wait, ""},
		{"profile pending waits", pending, adminRoute, Wait, ""},
		{"user to user route", user, userRoute, Render, ""},
		{"user to admin route", user, adminRoute, Redirect, UserHome},
		{"admin to admin route", admin, adminRoute, Render, ""},
		{"admin to user route", admin, userRoute, Redirect, AdminHome},
		{"user to shared", user, shared, Render, ""},
		{"admin to shared", admin, shared, Render, ""},
		{"profile failed to admin route", failed, adminRoute, Redirect, UserHome},
		{"profile failed to user route", failed, userRoute, Render, ""},
		{"anonymous to home", signedOut, home, Render, ""},
		{"user to home", user, home, Redirect, UserHome},
		{"admin to home", admin, home, Redirect, AdminHome},
		{"pending to home", pending, home, Wait, ""},
		{"no roles declared", user, Route{Pattern: "/anything"}, Render, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Authorize(tt.snap, tt.route)
			assert.Equal(t, tt.kind, d.Kind)
			assert.Equal(t, tt.target, d.Target)
			require.NotNil(t, d.Route)
			assert.Equal(t, tt.route.Pattern, d.Route.Pattern)
		})
	}
}

func TestAuthorize_AdminBlockedUntilProfileLoads(t *testing.T) {
	adminRoutes := []string{"/admin/dashboard", "/admin/users", "/admin/polls", "/admin/votes"}
	table := DefaultTable()

	for _, snap := range []session.Snapshot{pending, failed, signedOut, loggedOut} {
		for _, p := range adminRoutes {
			d := table.Navigate(snap, p)
			assert.NotEqual(t, Render, d.Kind, "%s in %s", p, snap.State)
		}
	}

	for _, p := range adminRoutes {
		assert.Equal(t, Render, table.Navigate(admin, p).Kind, p)
	}
}

func TestNavigate_RoleMismatchGoesHomeNotLogin(t *testing.T) {
	d := DefaultTable().Navigate(user, "/admin/dashboard")
	assert.Equal(t, Redirect, d.Kind)
	assert.Equal(t, UserHome, d.Target)

	// following the redirect settles
	d = DefaultTable().Navigate(user, d.Target)
	assert.Equal(t, Render, d.Kind)
}

func TestNavigate_RedirectsSettle(t *testing.T) {
	table := DefaultTable()

	for _, snap := range []session.Snapshot{signedOut, failed, user, admin} {
		for _, start := range []string{"/", "/nope", "/home", "/explore", "/admin/votes", "/poll/9", "/profile"} {
			p := start
			hops := 0
			for {
				d := table.Navigate(snap, p)
				if d.Kind != Redirect {
					assert.Equal(t, Render, d.Kind)
					break
				}
				p = d.Target
				hops++
				require.LessOrEqual(t, hops, 2, "redirect loop from %s in %s", start, snap.State)
			}
		}
	}
}

func TestNavigate_CatchAll(t *testing.T) {
	table := DefaultTable()

	tests := []struct {
		name   string
		snap   session.Snapshot
		kind   Kind
		target string
	}{
		{"anonymous", signedOut, Redirect, PathLogin},
		{"user", user, Redirect, PathHome},
		{"admin", admin, Redirect, AdminHome},
		{"loading", pending, Wait, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := table.Navigate(tt.snap, "/does/not/exist")
			assert.Equal(t, tt.kind, d.Kind)
			assert.Equal(t, tt.target, d.Target)
			assert.Nil(t, d.Route)
		})
	}
}

func TestTable_Match(t *testing.T) {
	table := DefaultTable()

	route, params, ok := table.Match("/poll/42")
	require.True(t, ok)
	assert.Equal(t, "/poll/{id}", route.Pattern)
	assert.Equal(t, map[string]string{"id": "42"}, params)

	route, _, ok = table.Match("/poll/42/")
	require.True(t, ok, "trailing slash is cleaned")
	assert.Equal(t, "/poll/{id}", route.Pattern)

	route, params, ok = table.Match("profile")
	require.True(t, ok)
	assert.Equal(t, "/profile", route.Pattern)
	assert.Nil(t, params)

	_, _, ok = table.Match("/poll")
	assert.False(t, ok)

	_, _, ok = table.Match("/")
	assert.False(t, ok)

	_, _, ok = table.Match("/admin/../login")
	assert.True(t, ok)
}

func TestTable_MatchIgnoresQueryAndFragment(t *testing.T) {
	table := DefaultTable()

	route, _, ok := table.Match("/active-polls?tab=1")
	require.True(t, ok)
	assert.Equal(t, "/active-polls", route.Pattern)

	route, params, ok := table.Match("/poll/7?x=1#results")
	require.True(t, ok)
	assert.Equal(t, "/poll/{id}", route.Pattern)
	assert.Equal(t, map[string]string{"id": "7"}, params)

	_, _, ok = table.Match("/poll/%zz")
	assert.False(t, ok, "malformed escapes match nothing")

	d := table.Navigate(user, "/poll/7?x=1")
	assert.Equal(t, Render, d.Kind)
	assert.Equal(t, "7", d.Params["id"])
}

func TestNavigate_Params(t *testing.T) {
	d := DefaultTable().Navigate(user, "/poll/7")
	assert.Equal(t, Render, d.Kind)
	assert.Equal(t, "7", d.Params["id"])
}

func TestLayout(t *testing.T) {
	assert.Equal(t, LayoutAdmin, Layout(admin))
	assert.Equal(t, LayoutUser, Layout(user))
	assert.Equal(t, LayoutUser, Layout(pending))
	assert.Equal(t, LayoutUser, Layout(failed))
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "render", Render.String())
	assert.Equal(t, "wait", Wait.String())
	assert.Equal(t, "redirect", Redirect.String())
	assert.Equal(t, "unknown", Kind(99).String())
}
