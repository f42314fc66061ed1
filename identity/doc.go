// Package identity defines the remote identity service consumed by the
// session manager, together with three implementations of it.
//
// # Implementations
//
//   - [Mock]: in-process backend with the demo account, argon2id password
//     hashes and HS256 access tokens. Latency and per-method failures can
//     be injected for tests and demos.
//   - [Client]: HTTP client for the JSON API at POST /v1/auth/{method}.
//     A 401 from login is classified as invalid credentials; every other
//     failure is a remote failure.
//   - [NewHandler]: chi router that serves any [Service] over that API.
//
// # Errors
//
// Implementations return *[Failure]. Use [KindOf] to classify an error;
// untagged errors count as remote failures.
//
// # Social linking
//
// [NewLinkRequest] builds a PKCE authorization URL for the providers in
// [Providers] using golang.org/x/oauth2.
package identity
