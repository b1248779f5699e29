// Package middleware adapts goAccount access-token validation to net/http.
//
// [Guard] reads the Authorization header, calls Engine.ValidateAccess, and
// stores the authenticated user id on the request context where
// goAccount.UserIDFromContext can read it. [ClientIP] records the caller's
// address so the engine can throttle and audit by IP.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does not parse
// tokens or touch any store itself.
package middleware
