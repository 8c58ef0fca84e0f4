// Package routes decides what a navigation to a screen should do given the
// current session snapshot.
package routes

import (
	"context"
	"net/http"
	"net/url"
	"path"
	"slices"
	"strings"

	"github.com/wolfeidau/polly/internal/models"
	"github.com/wolfeidau/polly/internal/session"
)

const (
	PathLogin    = "/login"
	PathRegister = "/register"
	PathHome     = "/home"

	// AdminHome and UserHome are the landing screens for each role.
	AdminHome = "/admin/dashboard"
	UserHome  = "/active-polls"
)

const (
	LayoutAdmin = "admin"
	LayoutUser  = "user"
)

// Kind is the outcome of authorizing a navigation.
type Kind int

const (
	// Render shows the requested screen.
	Render Kind = iota
	// Wait shows a neutral loading indicator; the session is still settling.
	Wait
	// Redirect sends the navigation to Decision.Target.
	Redirect
)

func (k Kind) String() string {
	switch k {
	case Render:
		return "render"
	case Wait:
		return "wait"
	case Redirect:
		return "redirect"
	}
	return "unknown"
}

// Route describes a screen and who may see it.
type Route struct {
	Pattern string
	// AllowedRoles restricts the screen to these roles. Empty means any
	// authenticated user.
	AllowedRoles []models.Role
	// Public screens render for everyone.
	Public bool
	// Landing screens render for anonymous users and send authenticated
	// users to their role home.
	Landing bool
}

// Decision is the result of Authorize. Target is only set for Redirect.
type Decision struct {
	Kind   Kind
	Target string
	Route  *Route
	Params map[string]string
}

// Home returns the landing screen for the role in s. Until the profile has
// loaded this is always the user home.
func Home(s session.Snapshot) string {
	if s.IsAdmin() {
		return AdminHome
	}
	return UserHome
}

// Layout returns the layout shared screens such as the profile are drawn in.
func Layout(s session.Snapshot) string {
	if s.IsAdmin() {
		return LayoutAdmin
	}
	return LayoutUser
}

// Authorize applies the session to a single route.
func Authorize(s session.Snapshot, r Route) Decision {
	route := &r

	switch {
	case r.Public:
		return Decision{Kind: Render, Route: route}
	case s.Loading():
		return Decision{Kind: Wait, Route: route}
	case r.Landing:
		if s.Authenticated() {
			return Decision{Kind: Redirect, Target: Home(s), Route: route}
		}
		return Decision{Kind: Render, Route: route}
	case !s.Authenticated():
		return Decision{Kind: Redirect, Target: PathLogin, Route: route}
	case !roleAllowed(s, r.AllowedRoles):
		return Decision{Kind: Redirect, Target: Home(s), Route: route}
	}

	return Decision{Kind: Render, Route: route}
}

func roleAllowed(s session.Snapshot, allowed []models.Role) bool {
	if len(allowed) == 0 {
		return true
	}
	if s.IsAdmin() {
		return slices.Contains(allowed, models.RoleAdmin)
	}
	return slices.Contains(allowed, models.RoleUser)
}

// notFound handles paths that match no route.
func notFound(s session.Snapshot) Decision {
	switch {
	case s.Loading():
		return Decision{Kind: Wait}
	case !s.Authenticated():
		return Decision{Kind: Redirect, Target: PathLogin}
	case s.IsAdmin():
		return Decision{Kind: Redirect, Target: AdminHome}
	}
	return Decision{Kind: Redirect, Target: PathHome}
}

var (
	userOnly  = []models.Role{models.RoleUser}
	adminOnly = []models.Role{models.RoleAdmin}
	anyRole   = []models.Role{models.RoleUser, models.RoleAdmin}
)

// DefaultRoutes is the screen table of the polling application.
var DefaultRoutes = []Route{
	{Pattern: PathLogin, Public: true},
	{Pattern: PathRegister, Public: true},
	{Pattern: PathHome, Landing: true},

	{Pattern: "/active-polls", AllowedRoles: userOnly},
	{Pattern: "/explore", AllowedRoles: userOnly},
	{Pattern: "/history", AllowedRoles: userOnly},
	{Pattern: "/create-poll", AllowedRoles: userOnly},
	{Pattern: "/poll/{id}", AllowedRoles: userOnly},

	{Pattern: "/profile", AllowedRoles: anyRole},

	{Pattern: "/admin/dashboard", AllowedRoles: adminOnly},
	{Pattern: "/admin/users", AllowedRoles: adminOnly},
	{Pattern: "/admin/polls", AllowedRoles: adminOnly},
	{Pattern: "/admin/votes", AllowedRoles: adminOnly},
}

// Table resolves paths to routes using http.ServeMux pattern matching.
type Table struct {
	mux    *http.ServeMux
	routes []Route
}

type matchKey struct{}

type match struct {
	route  *Route
	params map[string]string
}

// NewTable builds a table from routes. Like http.ServeMux it panics on an
// invalid or duplicate pattern.
func NewTable(routes ...Route) *Table {
	t := &Table{
		mux:    http.NewServeMux(),
		routes: slices.Clone(routes),
	}

	for i := range t.routes {
		route := &t.routes[i]
		names := wildcards(route.Pattern)

		t.mux.HandleFunc(route.Pattern, func(_ http.ResponseWriter, req *http.Request) {
			m, _ := req.Context().Value(matchKey{}).(*match)
			if m == nil {
				return
			}
			m.route = route
			if len(names) > 0 {
				m.params = make(map[string]string, len(names))
				for _, name := range names {
					m.params[name] = req.PathValue(name)
				}
			}
		})
	}

	return t
}

// DefaultTable returns a table over DefaultRoutes.
func DefaultTable() *Table {
	return NewTable(DefaultRoutes...)
}

// Routes returns the routes in registration order.
func (t *Table) Routes() []Route {
	return slices.Clone(t.routes)
}

// Match finds the route for p, along with any wildcard values. Any query
// or fragment on p is ignored.
func (t *Table) Match(p string) (*Route, map[string]string, bool) {
	u, err := url.Parse(p)
	if err != nil {
		return nil, nil, false
	}

	target := u.Path
	if !strings.HasPrefix(target, "/") {
		target = "/" + target
	}

	m := &match{}
	req := &http.Request{
		Method: http.MethodGet,
		URL:    &url.URL{Path: path.Clean(target)},
		Header: http.Header{},
	}
	req = req.WithContext(context.WithValue(context.Background(), matchKey{}, m))

	t.mux.ServeHTTP(discard{}, req)

	if m.route == nil {
		return nil, nil, false
	}
	return m.route, m.params, true
}

// Navigate authorizes a navigation to p. Paths that match no route are
// sent to the role home, or to the login screen when signed out.
func (t *Table) Navigate(s session.Snapshot, p string) Decision {
	route, params, ok := t.Match(p)
	if !ok {
		return notFound(s)
	}

	d := Authorize(s, *route)
	d.Params = params
	return d
}

func wildcards(pattern string) []string {
	var names []string
	for seg := range strings.SplitSeq(pattern, "/") {
		if strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}") {
			names = append(names, strings.TrimSuffix(strings.Trim(seg, "{}"), "..."))
		}
	}
	return names
}

// discard is a ResponseWriter for matching only.
type discard struct{}

func (discard) Header() http.Header         { return http.Header{} }
func (discard) Write(b []byte) (int, error) { return len(b), nil }
func (discard) WriteHeader(int)             {}
