package goAccount

import "errors"

var (
	// ErrAlreadyExists is returned by Register when the email is already taken.
	ErrAlreadyExists = errors.New("user already exists")
	// ErrInvalidCredentials is returned by Login for an unknown email, a wrong
	// password, or a blocked account.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrNotFound is returned when a user or token lookup has no match.
	ErrNotFound = errors.New("not found")
	// ErrMissingToken is returned by Refresh when no refresh token is presented.
	ErrMissingToken = errors.New("no refresh token presented")
	// ErrTokenMismatch is returned by Refresh when the presented token does not
	// belong to the user it resolved to.
	ErrTokenMismatch = errors.New("refresh token mismatch")
	// ErrTokenExpired is returned when a token is past its expiry.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid is returned when a token fails signature or format checks.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrDeliveryFailure is returned by ForgotPassword when the reset email
	// could not be sent.
	ErrDeliveryFailure = errors.New("email delivery failed")
	// ErrTokenInvalidOrExpired is returned by ResetPassword for an unknown,
	// consumed, or expired reset token.
	ErrTokenInvalidOrExpired = errors.New("token is invalid or has expired")
	// ErrNoUser is returned by authenticated flows when the caller's record no
	// longer exists.
	ErrNoUser = errors.New("user no longer exists")
	// ErrNoSuchUser is returned by ForgotPassword when no user has the email.
	ErrNoSuchUser = errors.New("no user found with that email address")
	// ErrInvalidInput is returned when required request fields are empty or
	// the password violates policy.
	ErrInvalidInput = errors.New("invalid input")
	// ErrLoginRateLimited is returned by Login when the attempt budget is spent.
	ErrLoginRateLimited = errors.New("login rate limited")
	// ErrResetRateLimited is returned by ForgotPassword when the request budget
	// is spent.
	ErrResetRateLimited = errors.New("password reset rate limited")
	// ErrUnavailable wraps backend failures (store, limiter).
	ErrUnavailable = errors.New("backend unavailable")
	// ErrEngineNotReady is returned when the engine was not built.
	ErrEngineNotReady = errors.New("engine not initialized")
)
