package flows

import "time"

// ValidateErrors carries host-level sentinel errors used by access validation.
type ValidateErrors struct {
	EngineNotReady error
	TokenInvalid   error
}

// ValidateDeps captures access-token validation dependencies. Observe, when
// set, receives the verification latency.
type ValidateDeps struct {
	Now               func() time.Time
	VerifyAccessToken func(string) (string, error)
	Observe           func(time.Duration)

	Errors ValidateErrors
}

// RunValidate verifies an access token without touching any store.
func RunValidate(token string, deps ValidateDeps) (string, error) {
	if deps.VerifyAccessToken == nil {
		return "", deps.Errors.EngineNotReady
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Observe != nil {
		start := deps.Now()
		defer func() { deps.Observe(deps.Now().Sub(start)) }()
	}

	if token == "" {
		return "", deps.Errors.TokenInvalid
	}
	return deps.VerifyAccessToken(token)
}
