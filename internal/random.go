package internal

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
)

const (
	secretSize         = 32
	maxSubjectSize     = 255
	minRefreshTokenRaw = 1 + 1 + secretSize
)

// NewSecret returns 32 bytes from the system CSPRNG.
func NewSecret() ([secretSize]byte, error) {
	var secret [secretSize]byte
	_, err := rand.Read(secret[:])
	return secret, err
}

// HashToken returns the hex sha256 of the raw token string. Only this value
// is ever persisted.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// EncodeRefreshToken frames subject and secret as
// len(subject) | subject | secret and encodes it base64url without padding.
func EncodeRefreshToken(subject string, secret [secretSize]byte) (string, error) {
	if subject == "" {
		return "", errors.New("empty refresh subject")
	}
	if len(subject) > maxSubjectSize {
		return "", errors.New("refresh subject too long")
	}

	raw := make([]byte, 0, 1+len(subject)+secretSize)
	raw = append(raw, byte(len(subject)))
	raw = append(raw, subject...)
	raw = append(raw, secret[:]...)

	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// DecodeRefreshToken reverses [EncodeRefreshToken].
func DecodeRefreshToken(token string) (string, [secretSize]byte, error) {
	var secret [secretSize]byte

	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return "", secret, err
	}
	if len(raw) < minRefreshTokenRaw {
		return "", secret, errors.New("invalid refresh token size")
	}

	n := int(raw[0])
	if n == 0 || len(raw) != 1+n+secretSize {
		return "", secret, errors.New("invalid refresh token size")
	}

	copy(secret[:], raw[1+n:])
	return string(raw[1 : 1+n]), secret, nil
}

// NewResetToken returns a base64url raw reset token and its persisted hash.
func NewResetToken() (string, string, error) {
	secret, err := NewSecret()
	if err != nil {
		return "", "", err
	}
	raw := base64.RawURLEncoding.EncodeToString(secret[:])
	return raw, HashToken(raw), nil
}
