package sweep

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/afreisinger/gmail-telegram-notifications/internal/config"
	"github.com/afreisinger/gmail-telegram-notifications/internal/mailbox"
)

// fakeMailbox is an in-memory Session with IMAP mark-then-expunge semantics.
type fakeMailbox struct {
	messages map[uint32]*mailbox.Message
	parts    map[uint32][]mailbox.Attachment
	pending  map[uint32]bool

	deleteCalls   map[uint32]int
	seenCalls     []uint32
	failDelete    map[uint32]error
	failParts     map[uint32]error
	failListAfter int // fail ForeachMessage after this many messages, 0 disables
	expungeErr    error
	closeCalls    int
}

func newFakeMailbox() *fakeMailbox {
	return &fakeMailbox{
		messages:    make(map[uint32]*mailbox.Message),
		parts:       make(map[uint32][]mailbox.Attachment),
		pending:     make(map[uint32]bool),
		deleteCalls: make(map[uint32]int),
		failDelete:  make(map[uint32]error),
		failParts:   make(map[uint32]error),
	}
}

var baseDate = time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

func (f *fakeMailbox) add(uid uint32, sender, subject string, parts ...mailbox.Attachment) *mailbox.Message {
	msg := &mailbox.Message{
		UID:     uid,
		Sender:  sender,
		Subject: subject,
		Date:    baseDate.Add(time.Duration(uid) * time.Minute),
	}
	f.messages[uid] = msg
	if len(parts) > 0 {
		f.parts[uid] = parts
	}
	return msg
}

// uids lists the messages currently in the store.
func (f *fakeMailbox) uids() []uint32 {
	out := make([]uint32, 0, len(f.messages))
	for uid := range f.messages {
		out = append(out, uid)
	}
	slices.Sort(out)
	return out
}

func (f *fakeMailbox) ForeachMessage(ctx context.Context, fn func(*mailbox.Message) error) error {
	for i, uid := range f.uids() {
		if f.failListAfter > 0 && i == f.failListAfter {
			return &mailbox.ConnectionError{Op: "fetch", Err: errors.New("connection reset")}
		}
		msg := *f.messages[uid]
		if err := fn(&msg); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeMailbox) Attachments(ctx context.Context, uid uint32) ([]mailbox.Attachment, error) {
	if err := f.failParts[uid]; err != nil {
		return nil, err
	}
	return f.parts[uid], nil
}

func (f *fakeMailbox) Delete(ctx context.Context, uid uint32) error {
	f.deleteCalls[uid]++
	if err := f.failDelete[uid]; err != nil {
		return err
	}
	f.pending[uid] = true
	return nil
}

func (f *fakeMailbox) MarkSeen(ctx context.Context, uid uint32) error {
	f.seenCalls = append(f.seenCalls, uid)
	f.messages[uid].Seen = true
	return nil
}

func (f *fakeMailbox) Expunge(ctx context.Context) (int, error) {
	if f.expungeErr != nil {
		return 0, f.expungeErr
	}
	n := len(f.pending)
	for uid := range f.pending {
		delete(f.messages, uid)
	}
	clear(f.pending)
	return n, nil
}

func (f *fakeMailbox) Close(ctx context.Context) error {
	f.closeCalls++
	if f.closeCalls > 1 {
		return nil
	}
	if f.expungeErr != nil {
		return f.expungeErr
	}
	_, err := f.Expunge(ctx)
	return err
}

// countingDialer counts connection attempts.
type countingDialer struct {
	session *fakeMailbox
	err     error
	calls   int
}

func (d *countingDialer) Dial(ctx context.Context, creds config.Credentials) (Session, error) {
	d.calls++
	if d.err != nil {
		return nil, d.err
	}
	return d.session, nil
}

type fakeNotifier struct {
	calls   int
	entries []NotificationEntry
	err     error
}

func (n *fakeNotifier) Notify(ctx context.Context, entries []NotificationEntry) error {
	n.calls++
	n.entries = append(n.entries, entries...)
	return n.err
}

func (n *fakeNotifier) factory() NotifierFactory {
	return func(config.Credentials) (Notifier, error) { return n, nil }
}

type fakeReporter struct {
	printed *Result
}

func (r *fakeReporter) Print(res *Result) error {
	r.printed = res
	return nil
}

const validCredentials = `user: me@gmail.com
password: app-password
telegram_token: "123456:ABC-token"
telegram_chat_id: "42"
`

func writeJSONList(t *testing.T, path string, emails []string) {
	t.Helper()
	data, err := json.Marshal(map[string][]string{"emails": emails})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o600))
}

// writeConfig lays out credentials and the three lists in a temp dir.
func writeConfig(t *testing.T, deleteSet, notifySet, attachmentSet []string) config.Settings {
	t.Helper()
	dir := t.TempDir()

	s := config.Settings{
		CredentialsFile:    filepath.Join(dir, "credentials.yaml"),
		DeleteListFile:     filepath.Join(dir, "delete_email_list.json"),
		NotifyListFile:     filepath.Join(dir, "notify_email_list.json"),
		AttachmentListFile: filepath.Join(dir, "attachment_senders.json"),
		AttachmentDir:      filepath.Join(dir, "attachments"),
		IMAPAddr:           "imap.example.test:993",
		Mailbox:            "INBOX",
		IMAPTimeout:        time.Second,
		FetchBatchSize:     10,
		TelegramAPIURL:     "http://telegram.invalid",
		NotifyTimeout:      time.Second,
	}

	require.NoError(t, os.WriteFile(s.CredentialsFile, []byte(validCredentials), 0o600))
	writeJSONList(t, s.DeleteListFile, deleteSet)
	writeJSONList(t, s.NotifyListFile, notifySet)
	writeJSONList(t, s.AttachmentListFile, attachmentSet)
	return s
}

func mustLists(t *testing.T, deleteSet, notifySet, attachmentSet []string) config.SenderLists {
	t.Helper()
	d, err := config.NewSenderList(config.ListDelete, deleteSet...)
	require.NoError(t, err)
	n, err := config.NewSenderList(config.ListNotify, notifySet...)
	require.NoError(t, err)
	a, err := config.NewSenderList(config.ListAttachment, attachmentSet...)
	require.NoError(t, err)
	return config.SenderLists{Delete: d, Notify: n, Attachment: a}
}

func listFiles(t *testing.T, dir string) map[string][]byte {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return map[string][]byte{}
	}
	require.NoError(t, err)

	files := make(map[string][]byte, len(entries))
	for _, e := range entries {
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		require.NoError(t, err)
		files[e.Name()] = data
	}
	return files
}

func writeFile(path string) error {
	return os.WriteFile(path, nil, 0o644)
}
