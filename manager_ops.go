package authsession

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/havenstay/authsession/identity"
)

// call describes one run through the operation protocol.
type call struct {
	op Operation
	// remote performs the identity call. A non-nil session replaces the
	// current one.
	remote func(ctx context.Context) (*Session, error)
	// apply mutates the current user after a successful call that returned
	// no session.
	apply func(*User)
	// clearAlways drops the session whether or not remote succeeded.
	clearAlways bool
	// detail fills the success description, when it has a placeholder.
	detail func(*Session) []any
}

// run executes c: admission, loading, the identity call, then exactly one
// notification. Loading is cleared on every path that set it.
func (m *Manager) run(ctx context.Context, c call) error {
	if m.closed.Load() {
		return ErrClosed
	}
	if err := m.awaitReady(ctx); err != nil {
		return err
	}

	// A queued caller counts as loading from the moment it starts waiting,
	// so loading never drops between two serialized calls.
	counted := false
	release, err := m.flights.acquire(ctx, c.op, m.config.policyFor(c.op), func() {
		counted = true
		m.beginLoading()
	})
	if err != nil {
		if counted {
			m.endLoading()
		}
		if errors.Is(err, ErrOperationInFlight) {
			m.metrics.Inc(MetricOperationRejected)
			m.logger.Debug("operation rejected", "operation", string(c.op))
			return fmt.Errorf("%w: %s", ErrOperationInFlight, c.op)
		}
		return err
	}
	if !counted {
		m.beginLoading()
	}
	defer m.endLoading()
	defer release()

	callCtx := identity.WithAccessToken(ctx, m.accessToken())
	if m.config.Identity.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(callCtx, m.config.Identity.Timeout)
		defer cancel()
	}

	start := time.Now()
	sess, err := c.remote(callCtx)
	m.metrics.Observe(MetricIdentityLatency, time.Since(start))

	// The call has settled; persisting and notifying must not be cut short
	// by the caller's deadline.
	ctx = context.WithoutCancel(ctx)

	if err == nil && sess != nil {
		if verr := sess.Validate(m.now()); verr != nil {
			err = fmt.Errorf("unusable session from backend: %w", verr)
		}
	}

	if c.clearAlways {
		m.clearSession(ctx)
	}

	if err != nil {
		return m.fail(ctx, c.op, err)
	}

	switch {
	case sess != nil:
		m.replaceSession(ctx, sess)
	case c.apply != nil:
		m.mutateSession(ctx, c.apply)
	}

	m.metrics.Inc(MetricOperationSuccess)
	m.logger.Info("operation succeeded", "operation", string(c.op))

	var args []any
	if c.detail != nil {
		args = c.detail(sess)
	}
	m.notifier.Emit(ctx, successMessages[c.op].notification(c.op, SeveritySuccess, m.now(), args...))
	return nil
}

func (m *Manager) fail(ctx context.Context, op Operation, err error) error {
	m.metrics.Inc(MetricOperationFailure)

	if op == OpSignIn && identity.KindOf(err) == identity.KindInvalidCredentials {
		m.metrics.Inc(MetricSignInInvalidCredentials)
		m.logger.Info("sign in rejected", "operation", string(op))
		m.notifier.Emit(ctx, invalidCredentialsMessage.notification(op, SeverityDestructive, m.now()))
		return fmt.Errorf("%w: %s", ErrInvalidCredentials, op)
	}

	m.logger.Warn("operation failed", "operation", string(op), "error", err)
	m.notifier.Emit(ctx, failureMessages[op].notification(op, SeverityDestructive, m.now()))
	return fmt.Errorf("%w: %s: %w", ErrRemoteOperation, op, err)
}

func (m *Manager) rejectInput(op Operation, reason string) error {
	m.metrics.Inc(MetricValidationRejected)
	return fmt.Errorf("%w: %s: %s", ErrValidation, op, reason)
}

// requireFields checks name/value pairs for non-blank values.
func (m *Manager) requireFields(op Operation, pairs ...string) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		if strings.TrimSpace(pairs[i+1]) == "" {
			return m.rejectInput(op, pairs[i]+" is required")
		}
	}
	return nil
}

// SignIn exchanges credentials for a session. A rejected pair returns
// [ErrInvalidCredentials] and leaves any current session in place.
func (m *Manager) SignIn(ctx context.Context, email, password string) error {
	if err := m.requireFields(OpSignIn, "email", email, "password", password); err != nil {
		return err
	}
	err := m.run(ctx, call{
		op: OpSignIn,
		remote: func(ctx context.Context) (*Session, error) {
			return m.identity.Login(ctx, email, password)
		},
		detail: func(s *Session) []any { return []any{s.User.Name} },
	})
	if err == nil {
		m.metrics.Inc(MetricSignInSuccess)
	}
	return err
}

// SignUp registers an account and adopts the returned session.
func (m *Manager) SignUp(ctx context.Context, email, password, name string) error {
	if err := m.requireFields(OpSignUp, "email", email, "password", password, "name", name); err != nil {
		return err
	}
	err := m.run(ctx, call{
		op: OpSignUp,
		remote: func(ctx context.Context) (*Session, error) {
			return m.identity.Register(ctx, email, password, name)
		},
	})
	if err == nil {
		m.metrics.Inc(MetricSignUpSuccess)
	}
	return err
}

// SignOut calls the remote logout and then always clears the session from
// memory and store. A remote failure is still reported through the error
// and a destructive notification, but never blocks the local sign-out.
func (m *Manager) SignOut(ctx context.Context) error {
	err := m.run(ctx, call{
		op: OpSignOut,
		remote: func(ctx context.Context) (*Session, error) {
			return nil, m.identity.Logout(ctx)
		},
		clearAlways: true,
	})
	switch {
	case err == nil:
		m.metrics.Inc(MetricSignOut)
	case isRemote(err):
		m.metrics.Inc(MetricSignOut)
		m.metrics.Inc(MetricSignOutRemoteFailure)
	}
	return err
}

func (m *Manager) SendPasswordResetEmail(ctx context.Context, email string) error {
	if err := m.requireFields(OpSendPasswordResetEmail, "email", email); err != nil {
		return err
	}
	return m.run(ctx, call{
		op: OpSendPasswordResetEmail,
		remote: func(ctx context.Context) (*Session, error) {
			return nil, m.identity.RequestPasswordReset(ctx, email)
		},
	})
}

func (m *Manager) ResetPassword(ctx context.Context, token, newPassword string) error {
	if err := m.requireFields(OpResetPassword, "token", token, "new password", newPassword); err != nil {
		return err
	}
	return m.run(ctx, call{
		op: OpResetPassword,
		remote: func(ctx context.Context) (*Session, error) {
			return nil, m.identity.ConfirmPasswordReset(ctx, token, newPassword)
		},
	})
}

// VerifyEmail confirms the email token and marks the current user's email
// as verified.
func (m *Manager) VerifyEmail(ctx context.Context, token string) error {
	if err := m.requireFields(OpVerifyEmail, "token", token); err != nil {
		return err
	}
	return m.run(ctx, call{
		op: OpVerifyEmail,
		remote: func(ctx context.Context) (*Session, error) {
			return nil, m.identity.VerifyEmail(ctx, token)
		},
		apply: func(u *User) { u.EmailVerified = true },
	})
}

// VerifyPhone confirms the code and marks the current user's phone as
// verified.
func (m *Manager) VerifyPhone(ctx context.Context, phone, code string) error {
	if err := m.requireFields(OpVerifyPhone, "phone", phone, "code", code); err != nil {
		return err
	}
	return m.run(ctx, call{
		op: OpVerifyPhone,
		remote: func(ctx context.Context) (*Session, error) {
			return nil, m.identity.VerifyPhone(ctx, phone, code)
		},
		apply: func(u *User) { u.PhoneVerified = true },
	})
}

func (m *Manager) SendVerificationCode(ctx context.Context, phone string) error {
	if err := m.requireFields(OpSendVerificationCode, "phone", phone); err != nil {
		return err
	}
	return m.run(ctx, call{
		op: OpSendVerificationCode,
		remote: func(ctx context.Context) (*Session, error) {
			return nil, m.identity.SendVerificationCode(ctx, phone)
		},
	})
}

// LinkSocialAccount links one of [identity.ProviderNames].
func (m *Manager) LinkSocialAccount(ctx context.Context, provider string) error {
	if err := m.requireFields(OpLinkSocialAccount, "provider", provider); err != nil {
		return err
	}
	if !identity.SupportedProvider(provider) {
		return m.rejectInput(OpLinkSocialAccount, fmt.Sprintf("unsupported provider %q", provider))
	}
	name := strings.ToLower(strings.TrimSpace(provider))
	return m.run(ctx, call{
		op: OpLinkSocialAccount,
		remote: func(ctx context.Context) (*Session, error) {
			return nil, m.identity.LinkSocial(ctx, name)
		},
		detail: func(*Session) []any { return []any{name} },
	})
}

// UpdateProfile applies the set fields of update to the current user once
// the backend accepts them.
func (m *Manager) UpdateProfile(ctx context.Context, update ProfileUpdate) error {
	if update.Empty() {
		return m.rejectInput(OpUpdateProfile, "no fields to update")
	}
	fields := []struct {
		name  string
		value *string
	}{{"name", update.Name}, {"email", update.Email}, {"avatar", update.Avatar}}
	for _, f := range fields {
		if f.value != nil && strings.TrimSpace(*f.value) == "" {
			return m.rejectInput(OpUpdateProfile, f.name+" must not be empty")
		}
	}
	update = cloneProfileUpdate(update)
	return m.run(ctx, call{
		op: OpUpdateProfile,
		remote: func(ctx context.Context) (*Session, error) {
			return nil, m.identity.UpdateProfile(ctx, update)
		},
		apply: update.Apply,
	})
}

func (m *Manager) EnableTwoFactor(ctx context.Context) error {
	return m.run(ctx, call{
		op: OpEnableTwoFactor,
		remote: func(ctx context.Context) (*Session, error) {
			return nil, m.identity.EnableTwoFactor(ctx)
		},
	})
}

func (m *Manager) DisableTwoFactor(ctx context.Context) error {
	return m.run(ctx, call{
		op: OpDisableTwoFactor,
		remote: func(ctx context.Context) (*Session, error) {
			return nil, m.identity.DisableTwoFactor(ctx)
		},
	})
}

func (m *Manager) VerifyTwoFactor(ctx context.Context, code string) error {
	if err := m.requireFields(OpVerifyTwoFactor, "code", code); err != nil {
		return err
	}
	return m.run(ctx, call{
		op: OpVerifyTwoFactor,
		remote: func(ctx context.Context) (*Session, error) {
			return nil, m.identity.VerifyTwoFactor(ctx, code)
		},
	})
}

func cloneProfileUpdate(u ProfileUpdate) ProfileUpdate {
	dup := func(p *string) *string {
		if p == nil {
			return nil
		}
		v := *p
		return &v
	}
	return ProfileUpdate{Name: dup(u.Name), Email: dup(u.Email), Avatar: dup(u.Avatar)}
}

func isRemote(err error) bool {
	return err != nil && errors.Is(err, ErrRemoteOperation)
}
