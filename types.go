package authsession

import (
	"fmt"
	"strings"

	"github.com/havenstay/authsession/session"
)

// Data model re-exported from the session package so callers only need one
// import for the common path.
type (
	User          = session.User
	Session       = session.Session
	Role          = session.Role
	ProfileUpdate = session.ProfileUpdate
)

const (
	RoleUser  = session.RoleUser
	RoleHost  = session.RoleHost
	RoleAdmin = session.RoleAdmin
)

// Operation names one session-mutating operation of [Manager].
type Operation string

const (
	OpSignIn                 Operation = "sign_in"
	OpSignUp                 Operation = "sign_up"
	OpSignOut                Operation = "sign_out"
	OpSendPasswordResetEmail Operation = "send_password_reset_email"
	OpResetPassword          Operation = "reset_password"
	OpVerifyEmail            Operation = "verify_email"
	OpVerifyPhone            Operation = "verify_phone"
	OpSendVerificationCode   Operation = "send_verification_code"
	OpLinkSocialAccount      Operation = "link_social_account"
	OpUpdateProfile          Operation = "update_profile"
	OpEnableTwoFactor        Operation = "enable_two_factor"
	OpDisableTwoFactor       Operation = "disable_two_factor"
	OpVerifyTwoFactor        Operation = "verify_two_factor"
)

// Operations lists every operation in declaration order.
var Operations = []Operation{
	OpSignIn,
	OpSignUp,
	OpSignOut,
	OpSendPasswordResetEmail,
	OpResetPassword,
	OpVerifyEmail,
	OpVerifyPhone,
	OpSendVerificationCode,
	OpLinkSocialAccount,
	OpUpdateProfile,
	OpEnableTwoFactor,
	OpDisableTwoFactor,
	OpVerifyTwoFactor,
}

// Valid reports whether op is a known operation.
func (op Operation) Valid() bool {
	for _, known := range Operations {
		if op == known {
			return true
		}
	}
	return false
}

// ConcurrencyPolicy decides what happens when an operation is invoked while
// another call of the same operation is still in flight.
type ConcurrencyPolicy uint8

const (
	// PolicyLastWriteWins lets overlapping calls run independently; the
	// session reflects whichever completes last.
	PolicyLastWriteWins ConcurrencyPolicy = iota
	// PolicyReject fails the second call with [ErrOperationInFlight].
	PolicyReject
	// PolicyQueue makes the second call wait for the first to settle.
	PolicyQueue
)

func (p ConcurrencyPolicy) String() string {
	switch p {
	case PolicyLastWriteWins:
		return "last_write_wins"
	case PolicyReject:
		return "reject"
	case PolicyQueue:
		return "queue"
	}
	return fmt.Sprintf("policy(%d)", uint8(p))
}

// MarshalText encodes the policy by name.
func (p ConcurrencyPolicy) MarshalText() ([]byte, error) {
	if p > PolicyQueue {
		return nil, fmt.Errorf("unknown concurrency policy %d", uint8(p))
	}
	return []byte(p.String()), nil
}

// UnmarshalText accepts the names produced by MarshalText.
func (p *ConcurrencyPolicy) UnmarshalText(text []byte) error {
	policy, err := ParseConcurrencyPolicy(string(text))
	if err != nil {
		return err
	}
	*p = policy
	return nil
}

// ParseConcurrencyPolicy maps a policy name to its value.
func ParseConcurrencyPolicy(name string) (ConcurrencyPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "last_write_wins", "last-write-wins":
		return PolicyLastWriteWins, nil
	case "reject":
		return PolicyReject, nil
	case "queue":
		return PolicyQueue, nil
	}
	return 0, fmt.Errorf("unknown concurrency policy %q", name)
}

// State is a point-in-time view of the manager.
type State struct {
	// Session is a private copy; nil when signed out.
	Session *Session
	// Loading is true while initialization or any operation is in flight.
	Loading bool
}

// IsAuthenticated is derived from Session and never stored.
func (s State) IsAuthenticated() bool {
	return s.Session != nil && s.Session.User != nil
}

// Role returns the current user's role, or zero when signed out.
func (s State) Role() Role {
	if !s.IsAuthenticated() {
		return 0
	}
	return s.Session.User.Role
}
