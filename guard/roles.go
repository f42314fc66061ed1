package guard

import (
	"errors"
	"strings"

	"github.com/havenstay/authsession/session"
)

// RoleSet is a bitmask over the closed [session.Role] enum. The zero value
// is the empty set.
type RoleSet uint8

// RolesOf builds a set from roles. Invalid roles are ignored.
func RolesOf(roles ...session.Role) RoleSet {
	var s RoleSet
	for _, r := range roles {
		s.Add(r)
	}
	return s
}

// ErrNoRoles is returned by [ParseRoles] when no name is given.
var ErrNoRoles = errors.New("no roles")

// ParseRoles builds a set from role names. At least one name is required
// and every name must be a known role.
func ParseRoles(names ...string) (RoleSet, error) {
	if len(names) == 0 {
		return 0, ErrNoRoles
	}
	var s RoleSet
	for _, name := range names {
		r, err := session.ParseRole(name)
		if err != nil {
			return 0, err
		}
		s.Add(r)
	}
	return s, nil
}

func bit(r session.Role) (RoleSet, bool) {
	if !r.Valid() {
		return 0, false
	}
	return 1 << (r - 1), true
}

// Add inserts r.
func (s *RoleSet) Add(r session.Role) {
	if b, ok := bit(r); ok {
		*s |= b
	}
}

// Remove deletes r.
func (s *RoleSet) Remove(r session.Role) {
	if b, ok := bit(r); ok {
		*s &^= b
	}
}

// Has reports membership. Invalid roles are never members.
func (s RoleSet) Has(r session.Role) bool {
	b, ok := bit(r)
	return ok && s&b != 0
}

// Empty reports whether no role is set.
func (s RoleSet) Empty() bool {
	return s == 0
}

// Roles lists the members in ascending order.
func (s RoleSet) Roles() []session.Role {
	var out []session.Role
	for _, r := range session.Roles {
		if s.Has(r) {
			out = append(out, r)
		}
	}
	return out
}

func (s RoleSet) String() string {
	if s.Empty() {
		return "none"
	}
	roles := s.Roles()
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = r.String()
	}
	return strings.Join(names, ",")
}
