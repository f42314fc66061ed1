package authsession

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"
)

// Severity is the visual weight of a notification.
type Severity string

const (
	SeveritySuccess     Severity = "success"
	SeverityDestructive Severity = "destructive"
)

// Notification is a user-facing outcome. Descriptions are written for end
// users and never carry backend error text.
type Notification struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Severity    Severity  `json:"severity"`
	Operation   Operation `json:"operation,omitempty"`
	Time        time.Time `json:"time"`
}

// NotificationSink receives outcomes. It does not influence control flow.
type NotificationSink interface {
	Notify(ctx context.Context, n Notification)
}

// NoOpSink drops notifications.
type NoOpSink struct{}

func (NoOpSink) Notify(context.Context, Notification) {}

// ChannelSink writes notifications into a buffered channel.
type ChannelSink struct {
	notifications chan Notification
}

func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{notifications: make(chan Notification, buffer)}
}

func (s *ChannelSink) Notify(ctx context.Context, n Notification) {
	select {
	case s.notifications <- n:
	case <-ctx.Done():
	}
}

func (s *ChannelSink) Notifications() <-chan Notification {
	return s.notifications
}

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink struct {
	writer io.Writer
	mu     sync.Mutex
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{writer: w}
}

func (s *JSONWriterSink) Notify(_ context.Context, n Notification) {
	if s == nil || s.writer == nil {
		return
	}
	data, err := json.Marshal(n)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, _ = s.writer.Write(data)
	_, _ = s.writer.Write([]byte("\n"))
}

// LogSink logs notifications: success at info, destructive at warn.
type LogSink struct {
	Logger *slog.Logger
}

func (s LogSink) Notify(ctx context.Context, n Notification) {
	if s.Logger == nil {
		return
	}
	level := slog.LevelInfo
	if n.Severity == SeverityDestructive {
		level = slog.LevelWarn
	}
	s.Logger.Log(ctx, level, n.Title,
		"description", n.Description,
		"operation", string(n.Operation),
	)
}

type message struct {
	title       string
	description string
}

var successMessages = map[Operation]message{
	OpSignIn:                 {"Successfully signed in", "Welcome back, %s!"},
	OpSignUp:                 {"Account created", "Please verify your email address to complete registration"},
	OpSignOut:                {"Signed out", "You have been successfully signed out"},
	OpSendPasswordResetEmail: {"Reset email sent", "Check your email for the reset link"},
	OpResetPassword:          {"Password updated", "Your password has been successfully reset"},
	OpVerifyEmail:            {"Email verified", "Your email has been successfully verified"},
	OpVerifyPhone:            {"Phone verified", "Your phone number has been successfully verified"},
	OpSendVerificationCode:   {"Verification code sent", "Check your phone for the verification code"},
	OpLinkSocialAccount:      {"Account linked", "Your %s account has been linked"},
	OpUpdateProfile:          {"Profile updated", "Your profile information has been updated"},
	OpEnableTwoFactor:        {"Two-factor enabled", "Two-factor authentication has been enabled for your account"},
	OpDisableTwoFactor:       {"Two-factor disabled", "Two-factor authentication has been disabled for your account"},
	OpVerifyTwoFactor:        {"Two-factor verified", "Two-factor code verified successfully"},
}

var failureMessages = map[Operation]message{
	OpSignIn:                 {"Authentication failed", "Could not sign you in. Please try again later."},
	OpSignUp:                 {"Registration failed", "Could not create your account. Please try again later."},
	OpSignOut:                {"Signed out locally", "There was a problem signing you out of the server"},
	OpSendPasswordResetEmail: {"Reset failed", "Could not send reset email"},
	OpResetPassword:          {"Reset failed", "Could not reset your password"},
	OpVerifyEmail:            {"Verification failed", "Could not verify your email"},
	OpVerifyPhone:            {"Verification failed", "Could not verify your phone"},
	OpSendVerificationCode:   {"Sending failed", "Could not send verification code"},
	OpLinkSocialAccount:      {"Linking failed", "Could not link your social account"},
	OpUpdateProfile:          {"Update failed", "Could not update your profile"},
	OpEnableTwoFactor:        {"Enable failed", "Could not enable two-factor authentication"},
	OpDisableTwoFactor:       {"Disable failed", "Could not disable two-factor authentication"},
	OpVerifyTwoFactor:        {"Verification failed", "Invalid two-factor code"},
}

var (
	invalidCredentialsMessage = message{"Authentication failed", "Invalid email or password"}
	sessionExpiredMessage     = message{"Session expired", "Please sign in again"}
)

func (msg message) notification(op Operation, severity Severity, now time.Time, args ...any) Notification {
	description := msg.description
	if len(args) > 0 {
		description = fmt.Sprintf(description, args...)
	}
	return Notification{
		Title:       msg.title,
		Description: description,
		Severity:    severity,
		Operation:   op,
		Time:        now,
	}
}

// notifier delivers to the sink either inline or through the async
// dispatcher.
type notifier interface {
	Emit(ctx context.Context, n Notification)
	Close()
	Dropped() uint64
}

type inlineNotifier struct {
	sink NotificationSink
}

func (n inlineNotifier) Emit(ctx context.Context, v Notification) { n.sink.Notify(ctx, v) }
func (inlineNotifier) Close() {}
func (inlineNotifier) Dropped() uint64 { return 0 }
