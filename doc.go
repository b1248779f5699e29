// Package goAccount provides user registration and session authentication:
// argon2id password storage, short-lived JWT access tokens, a single opaque
// refresh token per user, and single-use password reset tokens delivered by
// email.
//
// Engine methods are safe to call from multiple goroutines after
// initialization through [Builder.Build].
//
// # Architecture boundaries
//
// goAccount is the public surface. It exposes [Engine], [Builder], [Config],
// the [UserStore] and [Mailer] ports, and the token stores. Flow
// orchestration, rate limiting and audit dispatch live under internal/ and
// are never exported. Storage backends live in store/ and import this
// package, never the other way around.
//
// # Token model
//
// A refresh token is stored only as the hex sha256 of its value, one per
// user. Login replaces it, so logging in on a second device ends the first
// device's session. Refresh never rotates it. Reset tokens follow the same
// hash-only rule and are cleared the moment they are presented.
//
// # Performance contract
//
// ValidateAccess is the hot path and never touches the user store. Login
// cost is dominated by password verification.
package goAccount
