package identity

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTokenTTL is the access token lifetime issued by [Mock].
const DefaultTokenTTL = time.Hour

const tokenIssuer = "authsession-mock"

// Claims are the access token claims issued by the mock backend.
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

type tokenIssuerConfig struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

type tokenMinter struct {
	config tokenIssuerConfig
}

func newTokenMinter(cfg tokenIssuerConfig) (*tokenMinter, error) {
	if len(cfg.key) < 16 {
		return nil, errors.New("signing key must be at least 16 bytes")
	}
	if cfg.ttl <= 0 {
		return nil, errors.New("invalid token TTL")
	}
	if cfg.now == nil {
		cfg.now = time.Now
	}
	return &tokenMinter{config: cfg}, nil
}

// mint signs an HS256 access token for the subject. The returned deadline
// matches the exp claim exactly.
func (m *tokenMinter) mint(subject, email, role string) (string, time.Time, error) {
	now := m.config.now().Truncate(time.Second)
	exp := now.Add(m.config.ttl)

	claims := Claims{
		Email: email,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.config.key)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

func (m *tokenMinter) parse(token string) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(m.config.now),
	)
	parsed, err := parser.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return m.config.key, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

// ExpiryFromToken reads the exp claim without verifying the signature. The
// client uses it when a backend omits expiresAt from its response.
func ExpiryFromToken(token string) (time.Time, error) {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, fmt.Errorf("parse token: %w", err)
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, errors.New("token has no exp claim")
	}
	return claims.ExpiresAt.Time, nil
}
