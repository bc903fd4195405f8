package sweep

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"github.com/afreisinger/gmail-telegram-notifications/internal/attachments"
	"github.com/afreisinger/gmail-telegram-notifications/internal/config"
	"github.com/afreisinger/gmail-telegram-notifications/internal/mailbox"
	"github.com/afreisinger/gmail-telegram-notifications/internal/telegram"
)

// Mailbox is the part of a mail session the Dispatcher needs.
type Mailbox interface {
	ForeachMessage(ctx context.Context, fn func(*mailbox.Message) error) error
	Attachments(ctx context.Context, uid uint32) ([]mailbox.Attachment, error)
	Delete(ctx context.Context, uid uint32) error
	MarkSeen(ctx context.Context, uid uint32) error
}

// Session is a Mailbox whose deletions can be committed and which must be
// closed exactly once.
type Session interface {
	Mailbox
	Expunge(ctx context.Context) (int, error)
	Close(ctx context.Context) error
}

// Dialer opens a Session for the given credentials.
type Dialer interface {
	Dial(ctx context.Context, creds config.Credentials) (Session, error)
}

// Notifier delivers the notification summary.
type Notifier interface {
	Notify(ctx context.Context, entries []NotificationEntry) error
}

// AttachmentSaver persists the attachment parts of one message.
type AttachmentSaver interface {
	Save(uid uint32, parts []mailbox.Attachment) ([]attachments.Saved, []error)
}

// Reporter presents the outcome of a run.
type Reporter interface {
	Print(result *Result) error
}

// NotificationEntry is one message collected for the summary.
type NotificationEntry = telegram.Entry

// SavedAttachment is an attachment written during the run.
type SavedAttachment struct {
	Sender string
	attachments.Saved
}

// SenderCount is the number of messages deleted for one sender.
type SenderCount struct {
	Sender string
	Count  int
}

// Result is the outcome of a run.
type Result struct {
	Scanned          int
	Deleted          int
	Notified         int
	AttachmentsSaved int

	// Expunged is the number of messages the server reported as removed.
	Expunged int

	// NotificationSent reports whether the summary was delivered.
	NotificationSent bool

	DeletedBySender map[string]int
	Notifications   []NotificationEntry
	Attachments     []SavedAttachment

	// Errors holds the non-fatal errors of the run, in order.
	Errors []error
}

func newResult() *Result {
	return &Result{DeletedBySender: make(map[string]int)}
}

// DeletionsBySender returns the per-sender deletion counts, highest first,
// ties broken by sender.
func (r *Result) DeletionsBySender() []SenderCount {
	out := make([]SenderCount, 0, len(r.DeletedBySender))
	for sender, n := range r.DeletedBySender {
		out = append(out, SenderCount{Sender: sender, Count: n})
	}
	slices.SortFunc(out, func(a, b SenderCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return strings.Compare(a.Sender, b.Sender)
	})
	return out
}

func (r *Result) addError(err error) {
	if err != nil {
		r.Errors = append(r.Errors, err)
	}
}
