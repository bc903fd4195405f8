package telegram

import (
	"fmt"
	"time"
)

// Entry is one line of the notification summary.
type Entry struct {
	Sender  string
	Subject string
	Date    time.Time
}

// sendMessageRequest is the JSON body of a sendMessage call.
type sendMessageRequest struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

// apiResponse is the envelope every Bot API method answers with.
type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description,omitempty"`
	ErrorCode   int    `json:"error_code,omitempty"`
	Parameters  *struct {
		RetryAfter int `json:"retry_after,omitempty"`
	} `json:"parameters,omitempty"`
}

// NotifyError represents an error from the Telegram Bot API.
type NotifyError struct {
	// Op is the API method that failed (e.g., "sendMessage")
	Op string

	// StatusCode is the HTTP status, zero when no response was received
	StatusCode int

	// Description is the error text returned by Telegram, if any
	Description string

	// Err is the underlying error
	Err error

	// retryAfter is the pause Telegram asked for on a 429
	retryAfter time.Duration
}

// Error implements the error interface
func (e *NotifyError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Description != "":
		return fmt.Sprintf("telegram %s: status %d: %s", e.Op, e.StatusCode, e.Description)
	case e.StatusCode != 0 && e.Err != nil:
		return fmt.Sprintf("telegram %s: status %d: %v", e.Op, e.StatusCode, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("telegram %s: status %d", e.Op, e.StatusCode)
	default:
		return fmt.Sprintf("telegram %s: %v", e.Op, e.Err)
	}
}

// Unwrap implements the errors.Unwrap interface
func (e *NotifyError) Unwrap() error {
	return e.Err
}

// Temporary reports whether a retry might succeed.
func (e *NotifyError) Temporary() bool {
	if e.StatusCode == 0 {
		return e.Err != nil
	}
	return e.StatusCode == 429 || e.StatusCode >= 500
}
