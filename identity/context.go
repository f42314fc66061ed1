package identity

import "context"

type accessTokenContextKey struct{}

// WithAccessToken attaches the current session's access token to ctx so
// authenticated calls can present it to the backend.
func WithAccessToken(ctx context.Context, token string) context.Context {
	if token == "" {
		return ctx
	}
	return context.WithValue(ctx, accessTokenContextKey{}, token)
}

// AccessTokenFromContext returns the token attached by [WithAccessToken].
func AccessTokenFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	token, _ := ctx.Value(accessTokenContextKey{}).(string)
	return token
}
