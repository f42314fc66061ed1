package guard

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrRoutesFrozen is returned when registering into a frozen [Routes].
var ErrRoutesFrozen = errors.New("routes frozen")

// Policy is the authorization requirement of one route. The zero Policy
// admits any authenticated session. A restricted Policy admits only the
// roles in Roles, so a restricted Policy with no roles admits nobody.
type Policy struct {
	Restricted bool
	Roles      RoleSet
}

// Restrict returns a policy admitting only roles.
func Restrict(roles ...Role) Policy {
	return Policy{Restricted: true, Roles: RolesOf(roles...)}
}

// Allows reports whether role satisfies p.
func (p Policy) Allows(role Role) bool {
	return !p.Restricted || p.Roles.Has(role)
}

func (p Policy) String() string {
	if !p.Restricted {
		return "any"
	}
	return p.Roles.String()
}

// Routes maps route patterns to policies. Register everything at startup,
// then Freeze; lookups are safe for concurrent use.
type Routes struct {
	mu       sync.RWMutex
	policies map[string]Policy
	frozen   bool
}

// NewRoutes returns an empty registry.
func NewRoutes() *Routes {
	return &Routes{policies: make(map[string]Policy)}
}

// DefaultRoutes returns the frozen registry of protected application views.
func DefaultRoutes() *Routes {
	r := NewRoutes()
	r.mustRegister("/profile-settings", Policy{})
	r.mustRegister("/host", Restrict(RoleHost, RoleAdmin))
	r.mustRegister("/admin", Restrict(RoleAdmin))
	r.Freeze()
	return r
}

// Register sets the policy for pattern.
func (r *Routes) Register(pattern string, p Policy) error {
	if pattern == "" {
		return errors.New("empty route pattern")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return fmt.Errorf("%w: %s", ErrRoutesFrozen, pattern)
	}
	r.policies[pattern] = p
	return nil
}

func (r *Routes) mustRegister(pattern string, p Policy) {
	if err := r.Register(pattern, p); err != nil {
		panic(err)
	}
}

// Freeze makes the registry read-only.
func (r *Routes) Freeze() {
	r.mu.Lock()
	r.frozen = true
	r.mu.Unlock()
}

// Frozen reports whether Freeze was called.
func (r *Routes) Frozen() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.frozen
}

// Policy returns the policy for pattern. Unknown patterns require
// authentication only.
func (r *Routes) Policy(pattern string) Policy {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.policies[pattern]
}

// Lookup is Policy with a presence flag.
func (r *Routes) Lookup(pattern string) (Policy, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.policies[pattern]
	return p, ok
}

// Patterns lists registered patterns in sorted order.
func (r *Routes) Patterns() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.policies))
	for p := range r.policies {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
