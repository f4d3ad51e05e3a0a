package email

import (
	"context"
	"log/slog"
)

// devSender logs messages instead of sending them. Used when no Postmark
// token is configured, so local signup/reset flows work without an account.
type devSender struct {
	log *slog.Logger
}

// NewDevSender returns a Sender that writes every message to the logger.
func NewDevSender(log *slog.Logger) Sender {
	return &devSender{log: log}
}

func (d *devSender) Send(ctx context.Context, params SendParams) error {
	if err := params.Validate(); err != nil {
		return err
	}

	d.log.InfoContext(ctx, "dev email (not sent)",
		slog.String("to", params.To),
		slog.String("subject", params.Subject),
		slog.String("tag", params.Tag),
		slog.String("body_html", params.BodyHTML),
	)
	return nil
}
