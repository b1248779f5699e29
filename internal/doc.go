// Package internal contains helpers private to goAccount: token secrets,
// refresh-token framing, and token hashing.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher + Sink implementations)
//   - flows: pure-function orchestrators for every Engine operation
//   - logging: slog setup with trace context
//   - rate: Redis-backed login and reset-request throttles
package internal
