// Package refresh implements the opaque refresh-token format.
//
// A refresh token is the base64url (unpadded) encoding of
//
//	len(subject) (1 byte) | subject | 32-byte secret
//
// The subject is the user id the token was minted for. Only [Hash] of the
// token is ever persisted, so a leaked store does not yield usable tokens.
// [Subject] recovers the embedded user id so callers can confirm that the
// record a hash resolved to is the one the token was minted for.
package refresh
