package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/havenstay/authsession/session"
)

// Method names a remote identity operation. The value doubles as the path
// segment on the HTTP wire.
type Method string

const (
	MethodLogin                Method = "login"
	MethodRegister             Method = "register"
	MethodLogout               Method = "logout"
	MethodRequestPasswordReset Method = "request-password-reset"
	MethodConfirmPasswordReset Method = "confirm-password-reset"
	MethodVerifyEmail          Method = "verify-email"
	MethodVerifyPhone          Method = "verify-phone"
	MethodSendVerificationCode Method = "send-verification-code"
	MethodLinkSocial           Method = "link-social"
	MethodUpdateProfile        Method = "update-profile"
	MethodEnableTwoFactor      Method = "enable-two-factor"
	MethodDisableTwoFactor     Method = "disable-two-factor"
	MethodVerifyTwoFactor      Method = "verify-two-factor"
)

// Methods lists every remote operation.
var Methods = []Method{
	MethodLogin,
	MethodRegister,
	MethodLogout,
	MethodRequestPasswordReset,
	MethodConfirmPasswordReset,
	MethodVerifyEmail,
	MethodVerifyPhone,
	MethodSendVerificationCode,
	MethodLinkSocial,
	MethodUpdateProfile,
	MethodEnableTwoFactor,
	MethodDisableTwoFactor,
	MethodVerifyTwoFactor,
}

// Service is the remote identity backend as seen by the client. Every call
// is an independent request/response exchange and may block.
type Service interface {
	Login(ctx context.Context, email, password string) (*session.Session, error)
	Register(ctx context.Context, email, password, name string) (*session.Session, error)
	Logout(ctx context.Context) error
	RequestPasswordReset(ctx context.Context, email string) error
	ConfirmPasswordReset(ctx context.Context, token, newPassword string) error
	VerifyEmail(ctx context.Context, token string) error
	VerifyPhone(ctx context.Context, phone, code string) error
	SendVerificationCode(ctx context.Context, phone string) error
	LinkSocial(ctx context.Context, provider string) error
	UpdateProfile(ctx context.Context, update session.ProfileUpdate) error
	EnableTwoFactor(ctx context.Context) error
	DisableTwoFactor(ctx context.Context) error
	VerifyTwoFactor(ctx context.Context, code string) error
}

// Kind classifies a failed call.
type Kind uint8

const (
	// KindRemote covers every failure other than rejected credentials.
	KindRemote Kind = iota
	// KindInvalidCredentials is only produced by Login.
	KindInvalidCredentials
)

func (k Kind) String() string {
	if k == KindInvalidCredentials {
		return "invalid_credentials"
	}
	return "remote"
}

var (
	// ErrInvalidCredentials is the cause carried by KindInvalidCredentials failures.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrRemote is the default cause for KindRemote failures.
	ErrRemote = errors.New("remote operation failed")
)

// Failure is the tagged error returned by Service implementations.
type Failure struct {
	Method Method
	Kind   Kind
	Err    error
}

func (f *Failure) Error() string {
	if f.Err == nil {
		return fmt.Sprintf("identity %s: %s", f.Method, f.Kind)
	}
	return fmt.Sprintf("identity %s: %s: %v", f.Method, f.Kind, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// KindOf classifies err. Untagged errors are treated as remote failures.
func KindOf(err error) Kind {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	if errors.Is(err, ErrInvalidCredentials) {
		return KindInvalidCredentials
	}
	return KindRemote
}

func remoteFailure(method Method, err error) error {
	if err == nil {
		err = ErrRemote
	}
	return &Failure{Method: method, Kind: KindRemote, Err: err}
}

func credentialsFailure() error {
	return &Failure{Method: MethodLogin, Kind: KindInvalidCredentials, Err: ErrInvalidCredentials}
}
