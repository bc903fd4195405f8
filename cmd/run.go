package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/afreisinger/gmail-telegram-notifications/internal/attachments"
	"github.com/afreisinger/gmail-telegram-notifications/internal/config"
	"github.com/afreisinger/gmail-telegram-notifications/internal/instrumentation"
	"github.com/afreisinger/gmail-telegram-notifications/internal/logging"
	"github.com/afreisinger/gmail-telegram-notifications/internal/report"
	"github.com/afreisinger/gmail-telegram-notifications/internal/sweep"
	"github.com/afreisinger/gmail-telegram-notifications/internal/telegram"
)

const shutdownTimeout = 10 * time.Second

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Sweep the inbox once and send the Telegram summary",
		Long: `Run loads credentials.yaml and the three sender lists, connects to the
mailbox, applies the configured actions to every message, commits the
deletions, sends one Telegram message for the notify matches and prints a
report. It exits non-zero when configuration, login or the mailbox listing
fails; failures of single actions are only reported.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
}

func runPipeline(ctx context.Context, stdout, stderr io.Writer) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	settings, err := config.LoadSettings()
	if err != nil {
		return err
	}

	logger, err := logging.New(stderr, settings.LogLevel, settings.LogFormat)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version

	provider, err := instrumentation.NewProvider(ctx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		// The run context may already be canceled; telemetry still gets flushed.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Warn("instrumentation shutdown failed", logging.Err(err))
		}
	}()

	metrics := provider.Metrics()

	runner := sweep.NewRunner(sweep.RunnerOptions{
		Settings: settings,
		Dialer: sweep.IMAPDialer{
			Settings: settings,
			Logger:   logger,
			Metrics:  metrics,
		},
		NewNotifier: func(creds config.Credentials) (sweep.Notifier, error) {
			client, err := telegram.NewClient(telegram.Options{
				Token:   creds.TelegramToken,
				ChatID:  creds.TelegramChatID,
				BaseURL: settings.TelegramAPIURL,
				Timeout: settings.NotifyTimeout,
				Logger:  logger,
				Metrics: metrics,
			})
			if err != nil {
				return nil, err
			}
			return client, nil
		},
		Saver:    attachments.NewSaver(settings.AttachmentDir, logger),
		Reporter: report.New(stdout),
		Logger:   logger,
		Metrics:  metrics,
		Audit:    instrumentation.NewAuditLogger(logger, instrConfig.AuditLogging),
	})

	_, err = runner.Run(ctx)
	return err
}
