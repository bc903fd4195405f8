package mailbox

import (
	"fmt"
	"time"
)

// Message is a view of one mailbox entry, built from its IMAP envelope.
type Message struct {
	// UID is the unique identifier assigned by the mail store.
	UID uint32

	// Sender is the lower-cased bare address of the first From entry.
	Sender string

	// SenderName is the display name of the first From entry, if any.
	SenderName string

	Subject string
	Date    time.Time

	// Seen reports whether the message carried \Seen when it was fetched.
	Seen bool
}

// Attachment is one MIME part marked as an attachment.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// AuthError reports that the mail store rejected the credentials.
type AuthError struct {
	// User is the account that failed to log in
	User string

	// Err is the underlying error
	Err error
}

// Error implements the error interface
func (e *AuthError) Error() string {
	return fmt.Sprintf("imap login (user: %s): %v", e.User, e.Err)
}

// Unwrap implements the errors.Unwrap interface
func (e *AuthError) Unwrap() error {
	return e.Err
}

// ConnectionError reports a network or protocol failure talking to the mail store.
type ConnectionError struct {
	// Op is the operation that failed (e.g., "dial", "select", "fetch")
	Op string

	// Addr is the server address
	Addr string

	// Err is the underlying error
	Err error
}

// Error implements the error interface
func (e *ConnectionError) Error() string {
	if e.Addr != "" {
		return fmt.Sprintf("imap %s (addr: %s): %v", e.Op, e.Addr, e.Err)
	}
	return fmt.Sprintf("imap %s: %v", e.Op, e.Err)
}

// Unwrap implements the errors.Unwrap interface
func (e *ConnectionError) Unwrap() error {
	return e.Err
}
