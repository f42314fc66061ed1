// Package session owns the client-side session model and its persisted
// shadow copy.
//
// # Record format
//
// The current session is stored as one JSON record under a single key:
//
//	{"v":1,"user":{...},"token":"...","refreshToken":"...","expiresAt":<epoch ms>}
//
// A missing record, a record that fails to decode, and a record whose
// expiresAt is not in the future are all treated as "no session"; [Store.Load]
// removes such records as it finds them.
//
// # Backends
//
// [Store] delegates raw bytes to a [Backend]: [MemoryBackend], [FileBackend],
// [RedisBackend] or [SQLiteBackend].
//
// # What this package must NOT do
//
//   - Import the root package, identity or guard (no upward imports).
//   - Make authorization decisions.
//   - Surface backend failures from Save or Clear.
package session
