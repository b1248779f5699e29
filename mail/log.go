package mail

import (
	"context"
	"log/slog"

	goAccount "github.com/MrEthical07/goAccount"
)

// LogMailer writes each message to a logger instead of sending it. The body
// carries the reset link, so use it only where logs are private.
type LogMailer struct {
	logger *slog.Logger
}

// NewLogMailer returns a LogMailer writing at Info level. A nil logger uses
// slog.Default.
func NewLogMailer(logger *slog.Logger) *LogMailer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(ctx context.Context, msg goAccount.Email) error {
	m.logger.InfoContext(ctx, "outbound email",
		"to", msg.To,
		"subject", msg.Subject,
		"html", msg.HTML,
	)
	return nil
}
