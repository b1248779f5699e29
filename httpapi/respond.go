package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	goAccount "github.com/MrEthical07/goAccount"
)

const maxBodyBytes = 1 << 20

type envelope struct {
	Status      string          `json:"status"`
	Message     string          `json:"message,omitempty"`
	Token       string          `json:"token,omitempty"`
	AccessToken string          `json:"accessToken,omitempty"`
	Data        *goAccount.User `json:"data,omitempty"`
}

// errorStatus maps flow errors to response codes; the first match wins.
var errorStatus = []struct {
	err    error
	status int
}{
	{goAccount.ErrInvalidInput, http.StatusBadRequest},
	{goAccount.ErrTokenInvalidOrExpired, http.StatusBadRequest},
	{goAccount.ErrAlreadyExists, http.StatusConflict},
	{goAccount.ErrInvalidCredentials, http.StatusUnauthorized},
	{goAccount.ErrMissingToken, http.StatusUnauthorized},
	{goAccount.ErrTokenExpired, http.StatusUnauthorized},
	{goAccount.ErrTokenInvalid, http.StatusUnauthorized},
	{goAccount.ErrNotFound, http.StatusForbidden},
	{goAccount.ErrTokenMismatch, http.StatusForbidden},
	{goAccount.ErrNoUser, http.StatusNotFound},
	{goAccount.ErrNoSuchUser, http.StatusNotFound},
	{goAccount.ErrLoginRateLimited, http.StatusTooManyRequests},
	{goAccount.ErrResetRateLimited, http.StatusTooManyRequests},
	{goAccount.ErrEngineNotReady, http.StatusServiceUnavailable},
}

func statusFor(err error) int {
	for _, m := range errorStatus {
		if errors.Is(err, m.err) {
			return m.status
		}
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		writeJSON(w, status, envelope{Status: "error", Message: "Something went wrong, please try again later."})
		return
	}
	writeJSON(w, status, envelope{Status: "fail", Message: err.Error()})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return goAccount.ErrInvalidInput
	}
	return nil
}
