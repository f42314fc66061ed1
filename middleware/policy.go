package middleware

import (
	"net/http"

	"github.com/havenstay/authsession/guard"
)

// RequireRoles gates handlers with an inline policy instead of a
// registered route. Only the listed roles are admitted; no roles admits
// nobody.
func RequireRoles(g *guard.Guard, roles ...guard.Role) func(http.Handler) http.Handler {
	return RequirePolicy(g, guard.Restrict(roles...))
}

// RequirePolicy gates handlers with p.
func RequirePolicy(g *guard.Guard, p guard.Policy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if g == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			serve(w, r, next, g.CheckPolicy(p, location(r)))
		})
	}
}
