package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/havenstay/authsession/guard"
)

// RequireRoute gates handlers with the policy registered for the matched
// chi route pattern, falling back to the request path outside chi.
func RequireRoute(g *guard.Guard) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if g == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			serve(w, r, next, g.Check(routePattern(r), location(r)))
		})
	}
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return r.URL.Path
}
