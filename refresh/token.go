package refresh

import (
	"errors"
	"fmt"

	"github.com/MrEthical07/goAccount/internal"
)

// ErrMalformed is returned by [Subject] when a token cannot be decoded.
var ErrMalformed = errors.New("malformed refresh token")

// Issue mints a fresh refresh token bound to subject.
func Issue(subject string) (string, error) {
	secret, err := internal.NewSecret()
	if err != nil {
		return "", err
	}
	return internal.EncodeRefreshToken(subject, secret)
}

// Subject returns the user id embedded in token.
func Subject(token string) (string, error) {
	subject, _, err := internal.DecodeRefreshToken(token)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return subject, nil
}

// Hash returns the persisted form of token.
func Hash(token string) string {
	return internal.HashToken(token)
}
