// Package rate provides Redis-backed fixed-window counters for failed logins
// and forgot-password requests.
//
// # Window semantics
//
// INCR + conditional EXPIRE on the first hit. Key prefixes:
//   - al:  login per-email
//   - ali: login per-IP
//   - arr: forgot-password requests per-email
package rate
