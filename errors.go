package authsession

import "errors"

var (
	// ErrValidation is returned when an operation's input is rejected before
	// any remote call. No loading transition and no notification happen.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidCredentials is returned by SignIn when the backend does not
	// recognize the email and password pair.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrRemoteOperation is returned when the identity backend call fails for
	// any other reason, or returns an unusable session.
	ErrRemoteOperation = errors.New("remote operation failed")
	// ErrOperationInFlight is returned under [PolicyReject] when the same
	// operation is already running.
	ErrOperationInFlight = errors.New("operation already in flight")
	// ErrClosed is returned by operations invoked after [Manager.Close].
	ErrClosed = errors.New("session manager closed")
)
