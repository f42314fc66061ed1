package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/havenstay/authsession/session"
)

func newMockTest(t *testing.T, cfg MockConfig) *Mock {
	t.Helper()
	m, err := NewMock(cfg)
	if err != nil {
		t.Fatalf("NewMock: %v", err)
	}
	return m
}

func TestMockDemoLogin(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m := newMockTest(t, MockConfig{Now: func() time.Time { return now }})

	sess, err := m.Login(context.Background(), DemoEmail, DemoPassword)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	u := sess.User
	if u.ID != DemoUserID || u.Name != DemoName || u.Avatar != DemoAvatar {
		t.Fatalf("unexpected demo user: %+v", u)
	}
	if !u.EmailVerified || u.PhoneVerified || u.Role != session.RoleUser {
		t.Fatalf("unexpected demo flags: %+v", u)
	}
	if sess.Token == "" || sess.RefreshToken == "" {
		t.Fatal("expected tokens")
	}
	if want := now.Add(time.Hour).UnixMilli(); sess.ExpiresAt != want {
		t.Fatalf("expected expiresAt %d, got %d", want, sess.ExpiresAt)
	}

	exp, err := ExpiryFromToken(sess.Token)
	if err != nil {
		t.Fatalf("ExpiryFromToken: %v", err)
	}
	if exp.UnixMilli() != sess.ExpiresAt {
		t.Fatalf("token exp %d does not match expiresAt %d", exp.UnixMilli(), sess.ExpiresAt)
	}
}

func TestMockRejectsBadCredentials(t *testing.T) {
	m := newMockTest(t, MockConfig{})

	for _, tc := range []struct{ email, password string }{
		{DemoEmail, "wrong"},
		{"nobody@example.com", DemoPassword},
	} {
		sess, err := m.Login(context.Background(), tc.email, tc.password)
		if sess != nil {
			t.Fatalf("expected no session for %s", tc.email)
		}
		if KindOf(err) != KindInvalidCredentials {
			t.Fatalf("expected invalid credentials for %s, got %v", tc.email, err)
		}
	}
}

func TestMockFailMethod(t *testing.T) {
	m := newMockTest(t, MockConfig{})
	cause := errors.New("network down")
	m.FailMethod(MethodLogout, cause)

	err := m.Logout(context.Background())
	if KindOf(err) != KindRemote || !errors.Is(err, cause) {
		t.Fatalf("expected remote failure wrapping cause, got %v", err)
	}

	m.FailMethod(MethodLogout, nil)
	if err := m.Logout(context.Background()); err != nil {
		t.Fatalf("expected cleared injection, got %v", err)
	}
	if got := m.Calls(MethodLogout); got != 2 {
		t.Fatalf("expected 2 logout calls, got %d", got)
	}
}

func TestMockLatencyHonorsContext(t *testing.T) {
	m := newMockTest(t, MockConfig{Latency: time.Minute})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := m.VerifyEmail(ctx, "tok")
	if KindOf(err) != KindRemote || !errors.Is(err, context.Canceled) {
		t.Fatalf("expected canceled remote failure, got %v", err)
	}
}

func TestMockRegisterThenLogin(t *testing.T) {
	m := newMockTest(t, MockConfig{})
	ctx := context.Background()

	reg, err := m.Register(ctx, "new@example.com", "s3cret-pass", "New Person")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if reg.User.ID == DemoUserID || reg.User.EmailVerified {
		t.Fatalf("unexpected registered user: %+v", reg.User)
	}

	if _, err := m.Register(ctx, "NEW@example.com", "other", "Dup"); KindOf(err) != KindRemote {
		t.Fatalf("expected duplicate registration to fail, got %v", err)
	}

	sess, err := m.Login(ctx, "new@example.com", "s3cret-pass")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if sess.User.ID != reg.User.ID {
		t.Fatalf("expected same account, got %s vs %s", sess.User.ID, reg.User.ID)
	}
}

func TestMockAuthenticatedCallsUpdateAccount(t *testing.T) {
	m := newMockTest(t, MockConfig{})
	sess, err := m.Login(context.Background(), DemoEmail, DemoPassword)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	ctx := WithAccessToken(context.Background(), sess.Token)

	name := "Renamed"
	if err := m.UpdateProfile(ctx, session.ProfileUpdate{Name: &name}); err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if err := m.VerifyPhone(ctx, "+15550100", "123456"); err != nil {
		t.Fatalf("VerifyPhone: %v", err)
	}

	u, ok := m.Account(DemoEmail)
	if !ok {
		t.Fatal("demo account missing")
	}
	if u.Name != name || !u.PhoneVerified {
		t.Fatalf("expected account updates, got %+v", u)
	}

	// Without a token the call still succeeds and changes nothing.
	other := "Ignored"
	if err := m.UpdateProfile(context.Background(), session.ProfileUpdate{Name: &other}); err != nil {
		t.Fatalf("UpdateProfile without token: %v", err)
	}
	if u, _ := m.Account(DemoEmail); u.Name != name {
		t.Fatalf("expected name unchanged, got %q", u.Name)
	}
}

func TestMockLinkSocialRejectsUnknownProvider(t *testing.T) {
	m := newMockTest(t, MockConfig{})
	if err := m.LinkSocial(context.Background(), "google"); err != nil {
		t.Fatalf("LinkSocial(google): %v", err)
	}
	err := m.LinkSocial(context.Background(), "myspace")
	if !errors.Is(err, ErrUnsupportedProvider) {
		t.Fatalf("expected unsupported provider, got %v", err)
	}
}
