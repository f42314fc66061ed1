package guard

import (
	"errors"
	"testing"

	"github.com/havenstay/authsession/session"
)

func TestRoleSetMembership(t *testing.T) {
	s := RolesOf(RoleHost, RoleAdmin, session.Role(0), session.Role(9))
	if s.Has(RoleUser) || !s.Has(RoleHost) || !s.Has(RoleAdmin) {
		t.Fatalf("unexpected membership %s", s)
	}
	if s.Has(session.Role(9)) {
		t.Fatal("invalid role must never be a member")
	}

	s.Remove(RoleHost)
	if s.Has(RoleHost) || s.String() != "admin" {
		t.Fatalf("remove failed: %s", s)
	}

	var empty RoleSet
	if !empty.Empty() || empty.String() != "none" {
		t.Fatalf("zero set should be empty, got %s", empty)
	}
}

func TestParseRoles(t *testing.T) {
	s, err := ParseRoles("host", " Admin ")
	if err != nil {
		t.Fatalf("ParseRoles: %v", err)
	}
	if s != RolesOf(RoleHost, RoleAdmin) || s.String() != "host,admin" {
		t.Fatalf("unexpected set %s", s)
	}

	if _, err := ParseRoles("owner"); !errors.Is(err, session.ErrUnknownRole) {
		t.Fatalf("expected ErrUnknownRole, got %v", err)
	}
	if _, err := ParseRoles("host", ""); !errors.Is(err, session.ErrUnknownRole) {
		t.Fatalf("expected ErrUnknownRole for blank name, got %v", err)
	}
	if _, err := ParseRoles(); !errors.Is(err, ErrNoRoles) {
		t.Fatalf("expected ErrNoRoles, got %v", err)
	}
}

func TestPolicyAllows(t *testing.T) {
	var open Policy
	for _, role := range session.Roles {
		if !open.Allows(role) {
			t.Fatalf("zero policy should admit %s", role)
		}
	}
	if open.String() != "any" {
		t.Fatalf("zero policy string = %q", open.String())
	}

	for _, p := range []Policy{Restrict(), Restrict(session.Role(0)), {Restricted: true}} {
		for _, role := range session.Roles {
			if p.Allows(role) {
				t.Fatalf("policy %s should not admit %s", p, role)
			}
		}
	}
	if Restrict().String() != "none" {
		t.Fatalf("empty restricted policy string = %q", Restrict().String())
	}

	hosts := Restrict(RoleHost, RoleAdmin)
	if hosts.Allows(RoleUser) || !hosts.Allows(RoleHost) || hosts.String() != "host,admin" {
		t.Fatalf("unexpected host policy %s", hosts)
	}
}

func TestRoutesFreeze(t *testing.T) {
	r := NewRoutes()
	if err := r.Register("/reports", Restrict(RoleAdmin)); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Register("", Policy{}); err == nil {
		t.Fatal("expected empty pattern error")
	}
	r.Freeze()
	if !r.Frozen() {
		t.Fatal("expected frozen")
	}
	if err := r.Register("/late", Policy{}); !errors.Is(err, ErrRoutesFrozen) {
		t.Fatalf("expected ErrRoutesFrozen, got %v", err)
	}

	if p, ok := r.Lookup("/reports"); !ok || !p.Roles.Has(RoleAdmin) {
		t.Fatalf("lookup failed: %+v %v", p, ok)
	}
	if _, ok := r.Lookup("/late"); ok {
		t.Fatal("late registration must not land")
	}
}

func TestDefaultRoutes(t *testing.T) {
	r := DefaultRoutes()
	if !r.Frozen() {
		t.Fatal("default routes should be frozen")
	}
	got := r.Patterns()
	want := []string{"/admin", "/host", "/profile-settings"}
	if len(got) != len(want) {
		t.Fatalf("patterns = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("patterns = %v, want %v", got, want)
		}
	}

	if r.Policy("/profile-settings").Restricted {
		t.Fatal("profile settings should admit any session")
	}
	if r.Policy("/host") != Restrict(RoleHost, RoleAdmin) {
		t.Fatalf("host policy = %s", r.Policy("/host").Roles)
	}
	if r.Policy("/admin") != Restrict(RoleAdmin) {
		t.Fatalf("admin policy = %s", r.Policy("/admin").Roles)
	}
}
