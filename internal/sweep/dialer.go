package sweep

import (
	"context"
	"log/slog"

	"github.com/afreisinger/gmail-telegram-notifications/internal/config"
	"github.com/afreisinger/gmail-telegram-notifications/internal/instrumentation"
	"github.com/afreisinger/gmail-telegram-notifications/internal/mailbox"
)

// IMAPDialer opens real IMAP sessions with the run settings.
type IMAPDialer struct {
	Settings config.Settings
	Logger   *slog.Logger
	Metrics  *instrumentation.Metrics
}

// Dial implements Dialer.
func (d IMAPDialer) Dial(ctx context.Context, creds config.Credentials) (Session, error) {
	s, err := mailbox.Dial(ctx, mailbox.Options{
		Addr:      d.Settings.IMAPAddr,
		User:      creds.User,
		Password:  creds.Password,
		Mailbox:   d.Settings.Mailbox,
		Timeout:   d.Settings.IMAPTimeout,
		BatchSize: d.Settings.FetchBatchSize,
		Logger:    d.Logger,
		Metrics:   d.Metrics,
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}
