package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/havenstay/authsession/guard"
)

// RetryAfter is the Retry-After hint sent while the session is loading.
const RetryAfter = time.Second

type decisionContextKey struct{}

// DecisionFromContext returns the decision that admitted the request.
func DecisionFromContext(ctx context.Context) (guard.Decision, bool) {
	d, ok := ctx.Value(decisionContextKey{}).(guard.Decision)
	return d, ok
}

// Require gates handlers with the policy registered for pattern.
func Require(g *guard.Guard, pattern string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if g == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			serve(w, r, next, g.Check(pattern, location(r)))
		})
	}
}

func serve(w http.ResponseWriter, r *http.Request, next http.Handler, d guard.Decision) {
	switch d.Status {
	case guard.StatusPending:
		w.Header().Set("Retry-After", strconv.Itoa(int(RetryAfter/time.Second)))
		w.Header().Set("Cache-Control", "no-store")
		http.Error(w, "Loading...", http.StatusServiceUnavailable)
	case guard.StatusAuthorized:
		ctx := context.WithValue(r.Context(), decisionContextKey{}, d)
		next.ServeHTTP(w, r.WithContext(ctx))
	default:
		http.Redirect(w, r, d.RedirectURL(), http.StatusSeeOther)
	}
}

func location(r *http.Request) string {
	if r.URL == nil {
		return "/"
	}
	return r.URL.RequestURI()
}
