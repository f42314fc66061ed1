package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/havenstay/authsession"
	"github.com/havenstay/authsession/guard"
	"github.com/havenstay/authsession/session"
)

type staticSource struct {
	mu    sync.Mutex
	state authsession.State
}

func (s *staticSource) State() authsession.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *staticSource) Subscribe(func(authsession.State)) func() { return func() {} }

func (s *staticSource) set(st authsession.State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

func signedIn(role session.Role) authsession.State {
	return authsession.State{Session: &session.Session{
		User:      &session.User{ID: "u1", Email: "a@b.c", Role: role},
		Token:     "tok",
		ExpiresAt: time.Now().Add(time.Hour).UnixMilli(),
	}}
}

type middlewareTest struct {
	source *staticSource
	router chi.Router
}

func newMiddlewareTest(t *testing.T) *middlewareTest {
	t.Helper()

	src := &staticSource{}
	g := guard.New(src, nil, guard.Destinations{})

	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		d, found := DecisionFromContext(r.Context())
		if !found || d.Status != guard.StatusAuthorized {
			t.Errorf("handler reached without authorized decision: %+v", d)
		}
		w.WriteHeader(http.StatusOK)
	})

	r := chi.NewRouter()
	r.With(RequireRoute(g)).Get("/host", ok)
	r.With(RequireRoute(g)).Get("/admin", ok)
	r.With(Require(g, "/profile-settings")).Get("/profile-settings", ok)
	r.With(RequireRoles(g, guard.RoleAdmin)).Get("/reports", ok)
	r.With(RequireRoles(g)).Get("/vault", ok)

	return &middlewareTest{source: src, router: r}
}

func (mt *middlewareTest) get(target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	mt.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestPendingReturnsLoading(t *testing.T) {
	mt := newMiddlewareTest(t)
	mt.source.set(authsession.State{Loading: true})

	rec := mt.get("/host")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "1" {
		t.Fatalf("unexpected Retry-After %q", rec.Header().Get("Retry-After"))
	}
	if body := rec.Body.String(); body != "Loading...\n" {
		t.Fatalf("unexpected body %q", body)
	}
}

func TestUnauthenticatedRedirectsWithOrigin(t *testing.T) {
	mt := newMiddlewareTest(t)

	rec := mt.get("/profile-settings?tab=security")
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", rec.Code)
	}
	if got, want := rec.Header().Get("Location"), "/login?from=%2Fprofile-settings%3Ftab%3Dsecurity"; got != want {
		t.Fatalf("Location = %q, want %q", got, want)
	}
}

func TestForbiddenRedirectsToDenied(t *testing.T) {
	mt := newMiddlewareTest(t)
	mt.source.set(signedIn(session.RoleUser))

	for _, target := range []string{"/host", "/admin", "/reports"} {
		rec := mt.get(target)
		if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/unauthorized" {
			t.Fatalf("%s: got %d to %q", target, rec.Code, rec.Header().Get("Location"))
		}
	}

	if rec := mt.get("/profile-settings"); rec.Code != http.StatusOK {
		t.Fatalf("profile settings: expected 200, got %d", rec.Code)
	}
}

func TestAuthorizedReachesHandler(t *testing.T) {
	mt := newMiddlewareTest(t)
	mt.source.set(signedIn(session.RoleHost))

	if rec := mt.get("/host"); rec.Code != http.StatusOK {
		t.Fatalf("host: expected 200, got %d", rec.Code)
	}
	if rec := mt.get("/admin"); rec.Code != http.StatusSeeOther {
		t.Fatalf("admin: expected 303, got %d", rec.Code)
	}

	mt.source.set(signedIn(session.RoleAdmin))
	if rec := mt.get("/reports"); rec.Code != http.StatusOK {
		t.Fatalf("reports: expected 200, got %d", rec.Code)
	}
}

func TestNilGuardRejects(t *testing.T) {
	h := Require(nil, "/host")(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler must not run")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/host", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestRequireRolesWithoutRolesDeniesEveryone(t *testing.T) {
	mt := newMiddlewareTest(t)
	for _, role := range session.Roles {
		mt.source.set(signedIn(role))
		rec := mt.get("/vault")
		if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != guard.DefaultDeniedPath {
			t.Fatalf("%s: expected denied redirect, got %d %q", role, rec.Code, rec.Header().Get("Location"))
		}
	}
}
