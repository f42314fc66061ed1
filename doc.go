// Package authsession is a client-resident authentication session manager.
//
// A [Manager] owns the one session the client currently recognizes. It
// restores the persisted copy at start, runs every session-mutating
// operation through a single protocol, and publishes snapshots that the
// guard package turns into navigation decisions.
//
// # Lifecycle
//
//	m, err := authsession.New().
//		WithIdentity(svc).
//		WithStore(store).
//		WithNotificationSink(sink).
//		Build()
//	m.Start(ctx)
//	defer m.Close()
//
// Build returns a manager that already reports Loading. Start restores the
// persisted session in the background and clears the initialization
// loading flag exactly once; operations wait for that before they run.
//
// # Operation protocol
//
// Each operation validates its input (rejections return [ErrValidation]
// without touching state), passes the concurrency policy, sets loading,
// makes one identity call, then either adopts or mutates the session and
// persists it, or leaves it untouched. Exactly one notification is emitted
// per admitted call and loading is always cleared. SignOut clears the local
// session even when the remote logout fails.
//
// # Architecture boundaries
//
// The root package owns orchestration only. Persistence lives in session,
// the remote contract in identity, and authorization decisions in guard.
//
// # What this package must NOT do
//
//   - Expose the in-memory session by reference; callers get copies.
//   - Surface backend error text in notifications.
//   - Change a user's role.
package authsession
