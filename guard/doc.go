// Package guard decides whether a protected view may render, must wait for
// the session manager to finish loading, or must redirect.
//
// [Decide] is a pure function of manager state and route policy. [Guard]
// binds it to a live [authsession.Manager] and a [Routes] registry.
package guard
