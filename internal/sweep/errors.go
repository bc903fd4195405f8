package sweep

import (
	"errors"

	"github.com/afreisinger/gmail-telegram-notifications/internal/attachments"
	"github.com/afreisinger/gmail-telegram-notifications/internal/config"
	"github.com/afreisinger/gmail-telegram-notifications/internal/instrumentation"
	"github.com/afreisinger/gmail-telegram-notifications/internal/mailbox"
	"github.com/afreisinger/gmail-telegram-notifications/internal/telegram"
)

// ErrorKind names the category of err: config, auth, connection, io or
// notify. Anything else is "other".
func ErrorKind(err error) string {
	var (
		configErr *config.ConfigError
		authErr   *mailbox.AuthError
		connErr   *mailbox.ConnectionError
		writeErr  *attachments.WriteError
		notifyErr *telegram.NotifyError
	)
	switch {
	case errors.As(err, &configErr):
		return instrumentation.ErrorKindConfig
	case errors.As(err, &authErr):
		return instrumentation.ErrorKindAuth
	case errors.As(err, &connErr):
		return instrumentation.ErrorKindConnection
	case errors.As(err, &writeErr):
		return instrumentation.ErrorKindIO
	case errors.As(err, &notifyErr):
		return instrumentation.ErrorKindNotify
	default:
		return "other"
	}
}
