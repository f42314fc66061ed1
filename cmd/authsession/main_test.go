package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/havenstay/authsession/identity"
	"github.com/havenstay/authsession/internal/config"
	"github.com/havenstay/authsession/internal/logging"
)

type cliTest struct {
	t   *testing.T
	dir string
}

func newCLITest(t *testing.T) *cliTest {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("AUTHSESSION_STORE_DIR", dir)
	return &cliTest{t: t, dir: dir}
}

func (c *cliTest) run(args ...string) (string, string, int) {
	c.t.Helper()
	var stdout, stderr bytes.Buffer
	full := append([]string{"-store=file", "-latency=0", "-env=" + c.dir + "/absent.env"}, args...)
	code := run(full, &stdout, &stderr)
	return stdout.String(), stderr.String(), code
}

func TestSessionPersistsAcrossInvocations(t *testing.T) {
	c := newCLITest(t)

	out, errOut, code := c.run("sign-in", identity.DemoEmail, identity.DemoPassword)
	if code != 0 {
		t.Fatalf("sign-in exit %d: %s", code, errOut)
	}
	if !strings.Contains(out, "Welcome back, Demo User!") {
		t.Fatalf("expected greeting, got %q", out)
	}

	out, _, code = c.run("status")
	if code != 0 || !strings.Contains(out, identity.DemoEmail) || !strings.Contains(out, "user") {
		t.Fatalf("status exit %d: %q", code, out)
	}

	out, _, _ = c.run("check", "/host")
	if strings.TrimSpace(out) != "forbidden -> /unauthorized" {
		t.Fatalf("unexpected check output %q", out)
	}

	if _, errOut, code := c.run("sign-out"); code != 0 {
		t.Fatalf("sign-out exit %d: %s", code, errOut)
	}
	out, _, _ = c.run("status")
	if strings.TrimSpace(out) != "signed out" {
		t.Fatalf("expected signed out, got %q", out)
	}

	out, _, _ = c.run("check", "/profile-settings")
	if strings.TrimSpace(out) != "unauthenticated -> /login?from=%2Fprofile-settings" {
		t.Fatalf("unexpected check output %q", out)
	}
}

func TestInvalidCredentialsExitNonZero(t *testing.T) {
	c := newCLITest(t)

	out, errOut, code := c.run("sign-in", identity.DemoEmail, "wrong")
	if code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}
	if !strings.Contains(out, "Invalid email or password") || !strings.Contains(errOut, "invalid credentials") {
		t.Fatalf("stdout %q stderr %q", out, errOut)
	}
}

func TestUsageErrors(t *testing.T) {
	c := newCLITest(t)

	if _, _, code := c.run(); code != 2 {
		t.Fatalf("no command: exit %d", code)
	}
	if _, _, code := c.run("teleport"); code != 2 {
		t.Fatalf("unknown command: exit %d", code)
	}
	if _, errOut, code := c.run("sign-in", "only-email"); code != 1 || !strings.Contains(errOut, "wrong number of arguments") {
		t.Fatalf("bad args: exit %d %q", code, errOut)
	}
}

func TestProfileOnlySendsGivenFields(t *testing.T) {
	c := newCLITest(t)

	if _, errOut, code := c.run("sign-in", identity.DemoEmail, identity.DemoPassword); code != 0 {
		t.Fatalf("sign-in: %s", errOut)
	}
	if _, errOut, code := c.run("profile", "-name", "Renamed"); code != 0 {
		t.Fatalf("profile: %s", errOut)
	}
	out, _, _ := c.run("status")
	if !strings.Contains(out, "Renamed") || !strings.Contains(out, identity.DemoEmail) {
		t.Fatalf("unexpected status %q", out)
	}
}

func TestRouterGuardsAndSignsIn(t *testing.T) {
	cfg := config.Default()
	cfg.Identity.Latency = 0
	cfg.Manager.Notifications.Async = false
	logger := logging.NewWithWriter(&bytes.Buffer{}, cfg.Logging, "authsession", "test")

	env, cleanup, err := open(context.Background(), cfg, consoleSink{w: &bytes.Buffer{}}, logger)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer cleanup()

	srv := httptest.NewServer(newRouter(env, guardFor(env)))
	defer srv.Close()
	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}

	resp, err := client.Get(srv.URL + "/profile-settings")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther || resp.Header.Get("Location") != "/login?from=%2Fprofile-settings" {
		t.Fatalf("got %d %q", resp.StatusCode, resp.Header.Get("Location"))
	}

	resp, err = client.PostForm(srv.URL+"/login", url.Values{
		"email":    {identity.DemoEmail},
		"password": {identity.DemoPassword},
		"from":     {"/profile-settings"},
	})
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.Header.Get("Location") != "/profile-settings" {
		t.Fatalf("expected return to origin, got %q", resp.Header.Get("Location"))
	}

	resp, err = client.Get(srv.URL + "/profile-settings")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 after sign-in, got %d", resp.StatusCode)
	}

	resp, err = client.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	var body bytes.Buffer
	_, _ = body.ReadFrom(resp.Body)
	resp.Body.Close()
	if !strings.Contains(body.String(), "authsession_sign_in_success_total 1") {
		t.Fatalf("unexpected metrics:\n%s", body.String())
	}
}

func TestSafeReturn(t *testing.T) {
	for in, want := range map[string]string{
		"/host":          "/host",
		"//evil.example": "/profile-settings",
		"https://evil":   "/profile-settings",
		"":               "/profile-settings",
	} {
		if got := safeReturn(in); got != want {
			t.Fatalf("safeReturn(%q) = %q, want %q", in, got, want)
		}
	}
}
