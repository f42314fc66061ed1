package guard

import (
	"net/url"

	"github.com/havenstay/authsession"
	"github.com/havenstay/authsession/session"
)

// Role is the closed role enum.
type Role = session.Role

const (
	RoleUser  = session.RoleUser
	RoleHost  = session.RoleHost
	RoleAdmin = session.RoleAdmin
)

// Status is the outcome of a guard evaluation.
type Status uint8

const (
	// StatusPending means the manager is still loading; render a neutral
	// waiting indicator and do not redirect.
	StatusPending Status = iota
	// StatusUnauthenticated redirects to sign-in.
	StatusUnauthenticated
	// StatusForbidden redirects to the access-denied destination.
	StatusForbidden
	// StatusAuthorized renders the protected content.
	StatusAuthorized
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusUnauthenticated:
		return "unauthenticated"
	case StatusForbidden:
		return "forbidden"
	case StatusAuthorized:
		return "authorized"
	}
	return "unknown"
}

const (
	DefaultSignInPath = "/login"
	DefaultDeniedPath = "/unauthorized"
)

// Destinations names the redirect targets.
type Destinations struct {
	SignInPath string
	DeniedPath string
}

// DefaultDestinations returns /login and /unauthorized.
func DefaultDestinations() Destinations {
	return Destinations{SignInPath: DefaultSignInPath, DeniedPath: DefaultDeniedPath}
}

func (d Destinations) withDefaults() Destinations {
	if d.SignInPath == "" {
		d.SignInPath = DefaultSignInPath
	}
	if d.DeniedPath == "" {
		d.DeniedPath = DefaultDeniedPath
	}
	return d
}

// Input is everything a decision depends on.
type Input struct {
	Loading       bool
	Authenticated bool
	Role          Role
	Location      string
}

// InputFromState builds an Input from a manager snapshot.
func InputFromState(st authsession.State, location string) Input {
	return Input{
		Loading:       st.Loading,
		Authenticated: st.IsAuthenticated(),
		Role:          st.Role(),
		Location:      location,
	}
}

// Decision is the result of [Decide]. Redirect is empty for Pending and
// Authorized. From carries the originating location on sign-in redirects.
type Decision struct {
	Status   Status
	Redirect string
	From     string
}

// Decide evaluates in against p. It is a pure function.
func Decide(in Input, p Policy, dest Destinations) Decision {
	dest = dest.withDefaults()
	switch {
	case in.Loading:
		return Decision{Status: StatusPending}
	case !in.Authenticated:
		return Decision{Status: StatusUnauthenticated, Redirect: dest.SignInPath, From: in.Location}
	case !p.Allows(in.Role):
		return Decision{Status: StatusForbidden, Redirect: dest.DeniedPath}
	}
	return Decision{Status: StatusAuthorized}
}

// RedirectURL renders the redirect target with the originating location as
// the from query parameter. It is empty when no redirect is needed.
func (d Decision) RedirectURL() string {
	if d.Redirect == "" {
		return ""
	}
	if d.From == "" {
		return d.Redirect
	}
	return d.Redirect + "?" + url.Values{"from": {d.From}}.Encode()
}

// StateSource is the read side of [authsession.Manager].
type StateSource interface {
	State() authsession.State
	Subscribe(fn func(authsession.State)) func()
}

// Guard evaluates route policies against a live state source.
type Guard struct {
	source StateSource
	routes *Routes
	dest   Destinations
}

// New binds source to routes. A nil routes uses [DefaultRoutes].
func New(source StateSource, routes *Routes, dest Destinations) *Guard {
	if routes == nil {
		routes = DefaultRoutes()
	}
	return &Guard{source: source, routes: routes, dest: dest.withDefaults()}
}

// Routes returns the bound registry.
func (g *Guard) Routes() *Routes {
	return g.routes
}

// Destinations returns the redirect targets.
func (g *Guard) Destinations() Destinations {
	return g.dest
}

// Check evaluates pattern against the current snapshot.
func (g *Guard) Check(pattern, location string) Decision {
	return g.evaluate(g.source.State(), pattern, location)
}

// Watch calls fn with the current decision and again on every manager
// change. The returned func stops watching.
func (g *Guard) Watch(pattern, location string, fn func(Decision)) func() {
	policy := g.routes.Policy(pattern)
	stop := g.source.Subscribe(func(st authsession.State) {
		fn(Decide(InputFromState(st, location), policy, g.dest))
	})
	fn(g.Check(pattern, location))
	return stop
}

func (g *Guard) evaluate(st authsession.State, pattern, location string) Decision {
	return Decide(InputFromState(st, location), g.routes.Policy(pattern), g.dest)
}

// CheckPolicy evaluates an ad hoc policy against the current snapshot.
func (g *Guard) CheckPolicy(p Policy, location string) Decision {
	return Decide(InputFromState(g.source.State(), location), p, g.dest)
}
