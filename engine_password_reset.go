package goAccount

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/url"
	"time"

	"github.com/MrEthical07/goAccount/internal/flows"
)

const resetEmailTemplate = `<p>Hi,</p>
<p>Please follow this link to reset your password. This link is valid for {{.Validity}}.</p>
<p><a href="{{.Link}}">Click here</a></p>
`

type resetEmailData struct {
	Link     string
	Validity string
}

func parseResetTemplate() (*template.Template, error) {
	return template.New("reset").Parse(resetEmailTemplate)
}

// ForgotPassword issues a reset token for the user with email and mails the
// reset link. A previously issued reset token is replaced. When delivery
// fails the new token is cleared and [ErrDeliveryFailure] is returned.
func (e *Engine) ForgotPassword(ctx context.Context, email string) error {
	if e == nil || e.reset == nil {
		return ErrEngineNotReady
	}

	if err := flows.RunForgotPassword(ctx, normalizeEmail(email), e.flows.ForgotPassword); err != nil {
		e.logFailure(ctx, "forgot_password", err)
		return err
	}
	return nil
}

// ResetPassword sets newPassword on the owner of rawToken. The token is
// consumed whether or not it has expired, so it succeeds at most once.
func (e *Engine) ResetPassword(ctx context.Context, rawToken, newPassword string) error {
	if e == nil || e.reset == nil {
		return ErrEngineNotReady
	}

	if err := flows.RunResetPassword(ctx, rawToken, newPassword, e.flows.ResetPassword); err != nil {
		e.logFailure(ctx, "reset_password", err)
		return err
	}
	return nil
}

func (e *Engine) sendResetEmail(ctx context.Context, to, rawToken string) error {
	var body bytes.Buffer
	err := e.resetTpl.Execute(&body, resetEmailData{
		Link:     e.config.PasswordReset.LinkBaseURL + url.PathEscape(rawToken),
		Validity: humanDuration(e.config.PasswordReset.TTL),
	})
	if err != nil {
		return err
	}

	return e.mailer.Send(ctx, Email{
		To:      to,
		Subject: e.config.PasswordReset.Subject,
		HTML:    body.String(),
	})
}

// humanDuration renders whole minutes and hours the way the reset email
// phrases them, e.g. "10 minutes" or "1 hour".
func humanDuration(d time.Duration) string {
	unit := func(n int64, word string) string {
		if n == 1 {
			return "1 " + word
		}
		return fmt.Sprintf("%d %ss", n, word)
	}
	switch {
	case d >= time.Hour && d%time.Hour == 0:
		return unit(int64(d/time.Hour), "hour")
	case d >= time.Minute && d%time.Minute == 0:
		return unit(int64(d/time.Minute), "minute")
	default:
		return d.String()
	}
}
