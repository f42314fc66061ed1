package identity

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/havenstay/authsession/session"
)

// Demo account seeded into every [Mock].
const (
	DemoEmail    = "demo@example.com"
	DemoPassword = "password"
	DemoUserID   = "1"
	DemoName     = "Demo User"
	DemoAvatar   = "https://i.pravatar.cc/150?u=demo"
)

// MockConfig configures [NewMock].
type MockConfig struct {
	// Latency is applied to every call before it resolves.
	Latency time.Duration
	// TokenTTL defaults to [DefaultTokenTTL].
	TokenTTL time.Duration
	// SigningKey signs access tokens. A random key is generated when empty.
	SigningKey []byte
	Now        func() time.Time
	Logger     *slog.Logger
}

type account struct {
	user         session.User
	passwordHash string
	phone        string
	twoFactor    bool
	providers    map[string]struct{}
}

// Mock is an in-process identity backend. It recognizes the demo account
// plus any account created through Register, and accepts every other call.
// Failures can be injected per method with FailMethod.
type Mock struct {
	config MockConfig
	tokens *tokenMinter

	mu       sync.Mutex
	accounts map[string]*account
	failing  map[Method]error
	calls    map[Method]int
}

// NewMock builds a mock backend seeded with the demo account.
func NewMock(cfg MockConfig) (*Mock, error) {
	if cfg.TokenTTL == 0 {
		cfg.TokenTTL = DefaultTokenTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if len(cfg.SigningKey) == 0 {
		cfg.SigningKey = []byte(uuid.NewString() + uuid.NewString())
	}

	tokens, err := newTokenMinter(tokenIssuerConfig{key: cfg.SigningKey, ttl: cfg.TokenTTL, now: cfg.Now})
	if err != nil {
		return nil, err
	}

	hash, err := hashPassword(defaultHashParams, DemoPassword)
	if err != nil {
		return nil, fmt.Errorf("hash demo password: %w", err)
	}

	m := &Mock{
		config:   cfg,
		tokens:   tokens,
		accounts: make(map[string]*account),
		failing:  make(map[Method]error),
		calls:    make(map[Method]int),
	}
	m.accounts[DemoEmail] = &account{
		user: session.User{
			ID:            DemoUserID,
			Email:         DemoEmail,
			Name:          DemoName,
			Avatar:        DemoAvatar,
			EmailVerified: true,
			PhoneVerified: false,
			Role:          session.RoleUser,
		},
		passwordHash: hash,
		providers:    make(map[string]struct{}),
	}
	return m, nil
}

// FailMethod makes every later call to method fail with a remote failure
// wrapping err. A nil err clears the injection.
func (m *Mock) FailMethod(method Method, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failing, method)
		return
	}
	m.failing[method] = err
}

// Calls returns how many times method was invoked.
func (m *Mock) Calls(method Method) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[method]
}

// Account returns a copy of the stored user for email.
func (m *Mock) Account(email string) (session.User, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	acc, ok := m.accounts[normalizeEmail(email)]
	if !ok {
		return session.User{}, false
	}
	return acc.user, true
}

func (m *Mock) enter(ctx context.Context, method Method) error {
	m.mu.Lock()
	m.calls[method]++
	injected := m.failing[method]
	m.mu.Unlock()

	m.config.Logger.Debug("identity call", "method", string(method))

	if m.config.Latency > 0 {
		timer := time.NewTimer(m.config.Latency)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return remoteFailure(method, ctx.Err())
		}
	}

	if injected != nil {
		return remoteFailure(method, injected)
	}
	return nil
}

func (m *Mock) issue(user session.User) (*session.Session, error) {
	token, exp, err := m.tokens.mint(user.ID, user.Email, user.Role.String())
	if err != nil {
		return nil, err
	}
	u := user
	return &session.Session{
		User:         &u,
		Token:        token,
		RefreshToken: uuid.NewString(),
		ExpiresAt:    exp.UnixMilli(),
	}, nil
}

// caller resolves the account behind the access token in ctx. Calls made
// without a token are accepted and touch no account.
func (m *Mock) caller(ctx context.Context) *account {
	token := AccessTokenFromContext(ctx)
	if token == "" {
		return nil
	}
	claims, err := m.tokens.parse(token)
	if err != nil {
		m.config.Logger.Debug("ignoring unverifiable access token", "error", err)
		return nil
	}
	for _, acc := range m.accounts {
		if acc.user.ID == claims.Subject {
			return acc
		}
	}
	return nil
}

func (m *Mock) Login(ctx context.Context, email, password string) (*session.Session, error) {
	if err := m.enter(ctx, MethodLogin); err != nil {
		return nil, err
	}

	m.mu.Lock()
	acc, ok := m.accounts[normalizeEmail(email)]
	var user session.User
	var hash string
	if ok {
		user, hash = acc.user, acc.passwordHash
	}
	m.mu.Unlock()

	if !ok {
		return nil, credentialsFailure()
	}
	match, err := verifyPassword(password, hash)
	if err != nil {
		return nil, remoteFailure(MethodLogin, err)
	}
	if !match {
		return nil, credentialsFailure()
	}

	sess, err := m.issue(user)
	if err != nil {
		return nil, remoteFailure(MethodLogin, err)
	}
	return sess, nil
}

func (m *Mock) Register(ctx context.Context, email, password, name string) (*session.Session, error) {
	if err := m.enter(ctx, MethodRegister); err != nil {
		return nil, err
	}

	hash, err := hashPassword(defaultHashParams, password)
	if err != nil {
		return nil, remoteFailure(MethodRegister, err)
	}

	key := normalizeEmail(email)
	m.mu.Lock()
	if _, exists := m.accounts[key]; exists {
		m.mu.Unlock()
		return nil, remoteFailure(MethodRegister, errors.New("email already registered"))
	}
	acc := &account{
		user: session.User{
			ID:    uuid.NewString(),
			Email: strings.TrimSpace(email),
			Name:  name,
			Role:  session.RoleUser,
		},
		passwordHash: hash,
		providers:    make(map[string]struct{}),
	}
	m.accounts[key] = acc
	user := acc.user
	m.mu.Unlock()

	sess, err := m.issue(user)
	if err != nil {
		return nil, remoteFailure(MethodRegister, err)
	}
	return sess, nil
}

func (m *Mock) Logout(ctx context.Context) error {
	return m.enter(ctx, MethodLogout)
}

func (m *Mock) RequestPasswordReset(ctx context.Context, email string) error {
	return m.enter(ctx, MethodRequestPasswordReset)
}

func (m *Mock) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	return m.enter(ctx, MethodConfirmPasswordReset)
}

func (m *Mock) VerifyEmail(ctx context.Context, token string) error {
	if err := m.enter(ctx, MethodVerifyEmail); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if acc := m.caller(ctx); acc != nil {
		acc.user.EmailVerified = true
	}
	return nil
}

func (m *Mock) VerifyPhone(ctx context.Context, phone, code string) error {
	if err := m.enter(ctx, MethodVerifyPhone); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if acc := m.caller(ctx); acc != nil {
		acc.phone = phone
		acc.user.PhoneVerified = true
	}
	return nil
}

func (m *Mock) SendVerificationCode(ctx context.Context, phone string) error {
	return m.enter(ctx, MethodSendVerificationCode)
}

func (m *Mock) LinkSocial(ctx context.Context, provider string) error {
	if err := m.enter(ctx, MethodLinkSocial); err != nil {
		return err
	}
	if !SupportedProvider(provider) {
		return remoteFailure(MethodLinkSocial, fmt.Errorf("%w: %q", ErrUnsupportedProvider, provider))
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if acc := m.caller(ctx); acc != nil {
		acc.providers[strings.ToLower(provider)] = struct{}{}
	}
	return nil
}

func (m *Mock) UpdateProfile(ctx context.Context, update session.ProfileUpdate) error {
	if err := m.enter(ctx, MethodUpdateProfile); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	acc := m.caller(ctx)
	if acc == nil {
		return nil
	}
	oldKey := normalizeEmail(acc.user.Email)
	update.Apply(&acc.user)
	if newKey := normalizeEmail(acc.user.Email); newKey != oldKey {
		delete(m.accounts, oldKey)
		m.accounts[newKey] = acc
	}
	return nil
}

func (m *Mock) EnableTwoFactor(ctx context.Context) error {
	return m.setTwoFactor(ctx, MethodEnableTwoFactor, true)
}

func (m *Mock) DisableTwoFactor(ctx context.Context) error {
	return m.setTwoFactor(ctx, MethodDisableTwoFactor, false)
}

func (m *Mock) VerifyTwoFactor(ctx context.Context, code string) error {
	return m.enter(ctx, MethodVerifyTwoFactor)
}

func (m *Mock) setTwoFactor(ctx context.Context, method Method, enabled bool) error {
	if err := m.enter(ctx, method); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if acc := m.caller(ctx); acc != nil {
		acc.twoFactor = enabled
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
