package middleware

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"

	goAccount "github.com/MrEthical07/goAccount"
)

// Validator is the part of *goAccount.Engine the guard needs.
type Validator interface {
	ValidateAccess(ctx context.Context, accessToken string) (string, error)
}

// Guard rejects requests without a valid bearer access token with 401 and
// otherwise passes them on with the user id attached to the context.
func Guard(v Validator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if v == nil {
				unauthorized(w, "You are not logged in! Please log in to get access.")
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				unauthorized(w, "You are not logged in! Please log in to get access.")
				return
			}

			userID, err := v.ValidateAccess(r.Context(), token)
			if err != nil {
				unauthorized(w, "Invalid or expired token. Please log in again.")
				return
			}

			next.ServeHTTP(w, r.WithContext(goAccount.WithUserID(r.Context(), userID)))
		})
	}
}

// ClientIP stores the remote host of the request with goAccount.WithClientIP.
// Put chi's RealIP in front of it when running behind a trusted proxy.
func ClientIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := r.RemoteAddr
		if host, _, err := net.SplitHostPort(ip); err == nil {
			ip = host
		}
		next.ServeHTTP(w, r.WithContext(goAccount.WithClientIP(r.Context(), ip)))
	})
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "fail", "message": message})
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}
