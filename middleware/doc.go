// Package middleware adapts [guard.Guard] decisions to net/http.
//
// # Outcomes
//
//   - Pending: 503 with Retry-After and a neutral "Loading..." body.
//   - Unauthenticated: 303 to the sign-in path carrying ?from=<location>.
//   - Forbidden: 303 to the access-denied path.
//   - Authorized: the wrapped handler runs with the decision in context.
//
// [Require] and [RequirePolicy] take the policy explicitly. [RequireRoute]
// looks it up by the matched chi route pattern, so it must be attached
// with chi's inline middleware (r.With) or inside a route group.
package middleware
