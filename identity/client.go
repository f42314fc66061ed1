package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/havenstay/authsession/session"
)

const (
	defaultClientTimeout = 10 * time.Second
	maxResponseBytes     = 1 << 20
	requestIDHeader      = "X-Request-ID"
)

// ClientConfig configures [NewClient].
type ClientConfig struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Social     map[string]SocialConfig
	Logger     *slog.Logger
}

// Client is a [Service] backed by the HTTP identity API served by
// [NewHandler].
type Client struct {
	base   *url.URL
	http   *http.Client
	social map[string]SocialConfig
	logger *slog.Logger
}

// NewClient validates cfg and returns an HTTP-backed service.
func NewClient(cfg ClientConfig) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("identity base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("identity base url: unsupported scheme %q", base.Scheme)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultClientTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Client{base: base, http: httpClient, social: cfg.Social, logger: logger}, nil
}

func (c *Client) endpoint(method Method) string {
	return c.base.String() + "/v1/auth/" + string(method)
}

// call posts body and decodes the response into out when out is non-nil.
func (c *Client) call(ctx context.Context, method Method, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return remoteFailure(method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(method), bytes.NewReader(payload))
	if err != nil {
		return remoteFailure(method, err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(requestIDHeader, requestID)
	if token := AccessTokenFromContext(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("identity request failed", "method", string(method), "request_id", requestID, "error", err)
		return remoteFailure(method, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return remoteFailure(method, err)
	}
	c.logger.Debug("identity request",
		"method", string(method),
		"status", resp.StatusCode,
		"request_id", requestID,
		"duration", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if method == MethodLogin && resp.StatusCode == http.StatusUnauthorized {
			return credentialsFailure()
		}
		var apiErr errorResponse
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error != "" {
			return remoteFailure(method, fmt.Errorf("status %d: %s", resp.StatusCode, apiErr.Error))
		}
		return remoteFailure(method, fmt.Errorf("status %d", resp.StatusCode))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return remoteFailure(method, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

// callSession performs a call that yields a new session. A missing
// expiresAt is derived from the access token's exp claim.
func (c *Client) callSession(ctx context.Context, method Method, body any) (*session.Session, error) {
	var sess session.Session
	if err := c.call(ctx, method, body, &sess); err != nil {
		return nil, err
	}
	if sess.User == nil || sess.Token == "" {
		return nil, remoteFailure(method, session.ErrPartialSession)
	}
	if sess.ExpiresAt == 0 {
		exp, err := ExpiryFromToken(sess.Token)
		if err != nil {
			return nil, remoteFailure(method, err)
		}
		sess.ExpiresAt = exp.UnixMilli()
	}
	return &sess, nil
}

func (c *Client) Login(ctx context.Context, email, password string) (*session.Session, error) {
	return c.callSession(ctx, MethodLogin, loginRequest{Email: email, Password: password})
}

func (c *Client) Register(ctx context.Context, email, password, name string) (*session.Session, error) {
	return c.callSession(ctx, MethodRegister, registerRequest{Email: email, Password: password, Name: name})
}

func (c *Client) Logout(ctx context.Context) error {
	return c.call(ctx, MethodLogout, struct{}{}, nil)
}

func (c *Client) RequestPasswordReset(ctx context.Context, email string) error {
	return c.call(ctx, MethodRequestPasswordReset, emailRequest{Email: email}, nil)
}

func (c *Client) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	return c.call(ctx, MethodConfirmPasswordReset, confirmResetRequest{Token: token, NewPassword: newPassword}, nil)
}

func (c *Client) VerifyEmail(ctx context.Context, token string) error {
	return c.call(ctx, MethodVerifyEmail, tokenRequest{Token: token}, nil)
}

func (c *Client) VerifyPhone(ctx context.Context, phone, code string) error {
	return c.call(ctx, MethodVerifyPhone, phoneRequest{Phone: phone, Code: code}, nil)
}

func (c *Client) SendVerificationCode(ctx context.Context, phone string) error {
	return c.call(ctx, MethodSendVerificationCode, phoneRequest{Phone: phone}, nil)
}

// LinkSocial starts an authorization flow for provider and hands the
// authorization URL to the backend, which completes the exchange.
func (c *Client) LinkSocial(ctx context.Context, provider string) error {
	link, err := NewLinkRequest(provider, c.social[strings.ToLower(provider)])
	if err != nil {
		return remoteFailure(MethodLinkSocial, err)
	}
	return c.call(ctx, MethodLinkSocial, linkSocialRequest{
		Provider: link.Provider,
		AuthURL:  link.AuthURL,
		State:    link.State,
	}, nil)
}

func (c *Client) UpdateProfile(ctx context.Context, update session.ProfileUpdate) error {
	return c.call(ctx, MethodUpdateProfile, updateProfileRequest(update), nil)
}

func (c *Client) EnableTwoFactor(ctx context.Context) error {
	return c.call(ctx, MethodEnableTwoFactor, struct{}{}, nil)
}

func (c *Client) DisableTwoFactor(ctx context.Context) error {
	return c.call(ctx, MethodDisableTwoFactor, struct{}{}, nil)
}

func (c *Client) VerifyTwoFactor(ctx context.Context, code string) error {
	return c.call(ctx, MethodVerifyTwoFactor, codeRequest{Code: code}, nil)
}

var _ Service = (*Client)(nil)
var _ Service = (*Mock)(nil)
