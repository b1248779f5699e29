// Package jwt issues and verifies short-lived access tokens whose only
// application claim is the user id. Verification is pure: no store lookups.
package jwt
