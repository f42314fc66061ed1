package session

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrPartialSession is returned by [Session.Validate] when exactly one of
// user and token is present.
var ErrPartialSession = errors.New("partial session")

// ErrSessionExpired is returned by [Session.Validate] when the session
// deadline is not strictly in the future.
var ErrSessionExpired = errors.New("session expired")

// ErrUnknownRole is returned when a role name is not one of the closed set.
var ErrUnknownRole = errors.New("unknown role")

// Role is the coarse authorization tier attached to a [User]. The set is
// closed; the zero value is not a valid role.
type Role uint8

const (
	// RoleUser is a regular guest account.
	RoleUser Role = iota + 1
	// RoleHost can manage listings.
	RoleHost
	// RoleAdmin has full access.
	RoleAdmin
)

// Roles lists every valid role in ascending order.
var Roles = []Role{RoleUser, RoleHost, RoleAdmin}

// ParseRole maps a lowercase role name to its [Role].
func ParseRole(name string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "user":
		return RoleUser, nil
	case "host":
		return RoleHost, nil
	case "admin":
		return RoleAdmin, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownRole, name)
}

// Valid reports whether r is one of the declared roles.
func (r Role) Valid() bool {
	return r >= RoleUser && r <= RoleAdmin
}

func (r Role) String() string {
	switch r {
	case RoleUser:
		return "user"
	case RoleHost:
		return "host"
	case RoleAdmin:
		return "admin"
	}
	return "unknown"
}

// MarshalText encodes the role by name so persisted records stay readable.
func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownRole, r)
	}
	return []byte(r.String()), nil
}

// UnmarshalText rejects names outside the closed role set.
func (r *Role) UnmarshalText(text []byte) error {
	role, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = role
	return nil
}

// User is the identity record carried by a [Session].
type User struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	Name          string `json:"name"`
	Avatar        string `json:"avatar,omitempty"`
	EmailVerified bool   `json:"emailVerified"`
	PhoneVerified bool   `json:"phoneVerified"`
	Role          Role   `json:"role"`
}

// Session is the bundle of tokens and identity currently recognized by the
// client. A session is either fully populated (User and Token set) or
// absent; ExpiresAt is in epoch milliseconds.
type Session struct {
	User         *User  `json:"user"`
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
	ExpiresAt    int64  `json:"expiresAt"`
}

// Clone returns a deep copy. A nil receiver yields nil.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	if s.User != nil {
		u := *s.User
		out.User = &u
	}
	return &out
}

// Deadline returns ExpiresAt as a time.
func (s *Session) Deadline() time.Time {
	return time.UnixMilli(s.ExpiresAt)
}

// Validate checks the no-partial-session invariant and that the session is
// still active at now.
func (s *Session) Validate(now time.Time) error {
	if s == nil {
		return ErrPartialSession
	}
	if (s.User == nil) != (s.Token == "") {
		return ErrPartialSession
	}
	if s.User == nil {
		return ErrPartialSession
	}
	if !s.User.Role.Valid() {
		return fmt.Errorf("%w: %d", ErrUnknownRole, s.User.Role)
	}
	if s.ExpiresAt <= now.UnixMilli() {
		return ErrSessionExpired
	}
	return nil
}

// ProfileUpdate is a partial user update. Only non-nil fields are applied;
// identity, role and verification flags cannot be changed through it.
type ProfileUpdate struct {
	Name   *string `json:"name,omitempty"`
	Email  *string `json:"email,omitempty"`
	Avatar *string `json:"avatar,omitempty"`
}

// Empty reports whether no field is set.
func (p ProfileUpdate) Empty() bool {
	return p.Name == nil && p.Email == nil && p.Avatar == nil
}

// Apply copies the set fields onto u.
func (p ProfileUpdate) Apply(u *User) {
	if u == nil {
		return
	}
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.Avatar != nil {
		u.Avatar = *p.Avatar
	}
}
