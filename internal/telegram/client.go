package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/afreisinger/gmail-telegram-notifications/internal/instrumentation"
	"github.com/afreisinger/gmail-telegram-notifications/internal/logging"
)

const (
	// DefaultBaseURL is the public Bot API endpoint.
	DefaultBaseURL = "https://api.telegram.org"

	defaultTimeout       = 15 * time.Second
	defaultRetryInterval = time.Second
	maxRetryAfter        = 10 * time.Second
	maxResponseBytes     = 1 << 20
	opSendMessage        = "sendMessage"
)

// Options configures NewClient.
type Options struct {
	Token  string
	ChatID string

	// BaseURL overrides the API endpoint (default: https://api.telegram.org)
	BaseURL string

	// Timeout bounds each HTTP attempt (default: 15s)
	Timeout time.Duration

	// RetryInterval is the pause before the single retry (default: 1s)
	RetryInterval time.Duration

	// HTTPClient overrides the HTTP client. Its Timeout is left untouched.
	HTTPClient *http.Client

	Logger  *slog.Logger
	Metrics *instrumentation.Metrics
}

// Client posts messages to one Telegram chat.
type Client struct {
	token         string
	chatID        string
	baseURL       string
	timeout       time.Duration
	retryInterval time.Duration
	httpClient    *http.Client
	logger        *slog.Logger
	metrics       *instrumentation.Metrics
}

// NewClient creates a Client for the given bot token and chat.
func NewClient(opts Options) (*Client, error) {
	if opts.Token == "" {
		return nil, fmt.Errorf("telegram token cannot be empty")
	}
	if opts.ChatID == "" {
		return nil, fmt.Errorf("telegram chat ID cannot be empty")
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = defaultRetryInterval
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Client{
		token:         opts.Token,
		chatID:        opts.ChatID,
		baseURL:       strings.TrimSuffix(opts.BaseURL, "/"),
		timeout:       opts.Timeout,
		retryInterval: opts.RetryInterval,
		httpClient:    opts.HTTPClient,
		logger:        logging.WithComponent(opts.Logger, "telegram"),
		metrics:       opts.Metrics,
	}, nil
}

// Notify sends the summary of entries as one message. It makes no request
// when entries is empty.
func (c *Client) Notify(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		c.logger.Debug("nothing to notify")
		return nil
	}

	ctx, span := instrumentation.StartNotifySpan(ctx, len(entries))
	defer span.End()
	start := time.Now()

	err := c.SendMessage(ctx, FormatSummary(entries))
	if err != nil {
		c.metrics.RecordNotify(ctx, instrumentation.StatusError, time.Since(start))
		instrumentation.SetSpanError(span, err)
		return err
	}

	c.metrics.RecordNotify(ctx, instrumentation.StatusSuccess, time.Since(start))
	instrumentation.SetSpanSuccess(span)
	c.logger.Info("notification sent", slog.Int("entries", len(entries)))
	return nil
}

// SendMessage posts text to the chat, retrying once on transient failures.
func (c *Client) SendMessage(ctx context.Context, text string) error {
	body, err := json.Marshal(sendMessageRequest{ChatID: c.chatID, Text: text})
	if err != nil {
		return &NotifyError{Op: opSendMessage, Err: err}
	}

	logger := logging.WithOperation(c.logger, opSendMessage)

	var (
		attempt int
		lastErr *NotifyError
	)
	_, err = backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		err := c.post(ctx, body)
		if err == nil {
			return struct{}{}, nil
		}

		if !errors.As(err, &lastErr) || !lastErr.Temporary() {
			return struct{}{}, backoff.Permanent(err)
		}
		if wait := lastErr.retryAfter; wait > 0 && wait <= maxRetryAfter {
			return struct{}{}, backoff.RetryAfter(int(wait / time.Second))
		}
		return struct{}{}, err
	},
		backoff.WithBackOff(backoff.NewConstantBackOff(c.retryInterval)),
		backoff.WithMaxTries(2),
		backoff.WithNotify(func(err error, wait time.Duration) {
			logger.Warn("telegram request failed, retrying",
				slog.Int("attempt", attempt),
				slog.Duration("wait", wait),
				logging.Err(lastErr))
		}),
	)
	if err == nil {
		return nil
	}
	if ctx.Err() == nil && lastErr != nil {
		return lastErr
	}
	return &NotifyError{Op: opSendMessage, Err: err}
}

// post performs one sendMessage attempt.
func (c *Client) post(ctx context.Context, body []byte) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	endpoint := c.baseURL + "/bot" + c.token + "/" + opSendMessage
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return &NotifyError{Op: opSendMessage, Err: c.redact(err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &NotifyError{Op: opSendMessage, Err: c.redact(err)}
	}
	defer resp.Body.Close()

	var apiResp apiResponse
	decodeErr := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&apiResp)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		nerr := &NotifyError{
			Op:          opSendMessage,
			StatusCode:  resp.StatusCode,
			Description: apiResp.Description,
		}
		if apiResp.Parameters != nil {
			nerr.retryAfter = time.Duration(apiResp.Parameters.RetryAfter) * time.Second
		}
		return nerr
	}
	if decodeErr != nil {
		return &NotifyError{Op: opSendMessage, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", decodeErr)}
	}
	if !apiResp.OK {
		desc := apiResp.Description
		if desc == "" {
			desc = "response not ok"
		}
		return &NotifyError{Op: opSendMessage, StatusCode: resp.StatusCode, Description: desc}
	}

	return nil
}

// redact strips the bot token from errors that embed the request URL.
func (c *Client) redact(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		return &url.Error{
			Op:  uerr.Op,
			URL: strings.ReplaceAll(uerr.URL, c.token, logging.SanitizeToken(c.token)),
			Err: uerr.Err,
		}
	}
	return errors.New(strings.ReplaceAll(err.Error(), c.token, logging.SanitizeToken(c.token)))
}
