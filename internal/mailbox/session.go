package mailbox

import (
	"cmp"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"slices"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"

	"github.com/afreisinger/gmail-telegram-notifications/internal/instrumentation"
	"github.com/afreisinger/gmail-telegram-notifications/internal/logging"
)

const (
	defaultMailbox   = "INBOX"
	defaultTimeout   = 30 * time.Second
	defaultBatchSize = 50
)

// Options configures Dial.
type Options struct {
	// Addr is host:port of the IMAP server. The connection always uses TLS.
	Addr     string
	User     string
	Password string

	// Mailbox is the folder to select (default: INBOX)
	Mailbox string

	// Timeout bounds the dial and every command (default: 30s)
	Timeout time.Duration

	// BatchSize is the number of envelopes fetched per round trip (default: 50)
	BatchSize int

	// TLSConfig overrides the TLS settings. ServerName defaults to the host in Addr.
	TLSConfig *tls.Config

	Logger  *slog.Logger
	Metrics *instrumentation.Metrics
}

// Session is an authenticated IMAP connection with a selected mailbox.
// It is not safe for concurrent use.
type Session struct {
	opts    Options
	conn    net.Conn
	client  *imapclient.Client
	logger  *slog.Logger
	metrics *instrumentation.Metrics

	// pending holds UIDs flagged \Deleted and not yet expunged
	pending map[imap.UID]struct{}
	closed  bool
}

// Dial connects to opts.Addr over TLS, logs in and selects the mailbox.
// It returns *AuthError when the server rejects the credentials and
// *ConnectionError for any other failure.
func Dial(ctx context.Context, opts Options) (*Session, error) {
	if opts.Mailbox == "" {
		opts.Mailbox = defaultMailbox
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	logger := logging.WithComponent(opts.Logger, "mailbox")

	ctx, span := instrumentation.StartIMAPSpan(ctx, "dial")
	defer span.End()
	start := time.Now()

	dialCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	dialer := &tls.Dialer{
		NetDialer: &net.Dialer{Timeout: opts.Timeout},
		Config:    opts.TLSConfig,
	}
	conn, err := dialer.DialContext(dialCtx, "tcp", opts.Addr)
	if err != nil {
		err = &ConnectionError{Op: "dial", Addr: opts.Addr, Err: err}
		opts.Metrics.RecordIMAPOperation(ctx, "dial", instrumentation.StatusError, time.Since(start))
		instrumentation.SetSpanError(span, err)
		return nil, err
	}

	s := &Session{
		opts:    opts,
		conn:    conn,
		logger:  logger,
		metrics: opts.Metrics,
		pending: make(map[imap.UID]struct{}),
	}
	s.client = imapclient.New(conn, &imapclient.Options{
		WordDecoder: wordDecoder,
	})

	if err := s.login(ctx); err != nil {
		_ = s.client.Close()
		s.closed = true
		opts.Metrics.RecordIMAPOperation(ctx, "dial", instrumentation.StatusError, time.Since(start))
		instrumentation.SetSpanError(span, err)
		return nil, err
	}

	s.metrics.RecordIMAPOperation(ctx, "dial", instrumentation.StatusSuccess, time.Since(start))
	instrumentation.SetSpanSuccess(span)
	return s, nil
}

func (s *Session) login(ctx context.Context) error {
	release := s.deadline(ctx)
	defer release()

	if err := s.client.Login(s.opts.User, s.opts.Password).Wait(); err != nil {
		var imapErr *imap.Error
		if errors.As(err, &imapErr) {
			return &AuthError{User: s.opts.User, Err: err}
		}
		return s.connErr("login", err)
	}

	data, err := s.client.Select(s.opts.Mailbox, nil).Wait()
	if err != nil {
		return s.connErr("select", err)
	}

	s.logger.Info("mailbox selected",
		logging.UserHash(s.opts.User),
		logging.Mailbox(s.opts.Mailbox),
		slog.Any("messages", data.NumMessages))
	return nil
}

// ForeachMessage calls fn for every message in the mailbox, in ascending UID
// order. Envelopes are fetched one batch at a time; fn may call Delete,
// MarkSeen or Attachments. Iteration stops at the first error from fn.
func (s *Session) ForeachMessage(ctx context.Context, fn func(*Message) error) error {
	uids, err := s.searchAll(ctx)
	if err != nil {
		return err
	}

	s.logger.Debug("listing messages", slog.Int("count", len(uids)))

	for start := 0; start < len(uids); start += s.opts.BatchSize {
		if err := ctx.Err(); err != nil {
			return err
		}

		end := min(start+s.opts.BatchSize, len(uids))
		bufs, err := s.fetchEnvelopes(ctx, uids[start:end])
		if err != nil {
			return err
		}

		for _, buf := range bufs {
			if err := fn(messageFromBuffer(buf)); err != nil {
				return err
			}
		}
	}

	return nil
}

func (s *Session) searchAll(ctx context.Context) ([]imap.UID, error) {
	var uids []imap.UID
	err := s.do(ctx, "search", func() error {
		data, err := s.client.UIDSearch(&imap.SearchCriteria{}, nil).Wait()
		if err != nil {
			return err
		}
		uids = data.AllUIDs()
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.Sort(uids)
	return uids, nil
}

func (s *Session) fetchEnvelopes(ctx context.Context, uids []imap.UID) ([]*imapclient.FetchMessageBuffer, error) {
	var bufs []*imapclient.FetchMessageBuffer
	err := s.do(ctx, "fetch", func() error {
		var err error
		bufs, err = s.client.Fetch(imap.UIDSetNum(uids...), &imap.FetchOptions{
			UID:      true,
			Envelope: true,
			Flags:    true,
		}).Collect()
		return err
	})
	if err != nil {
		return nil, err
	}

	// Servers may answer a UID FETCH in any order.
	slices.SortFunc(bufs, func(a, b *imapclient.FetchMessageBuffer) int {
		return cmp.Compare(a.UID, b.UID)
	})
	return bufs, nil
}

// Attachments downloads the message with the given UID without setting
// \Seen and returns its attachment parts.
func (s *Session) Attachments(ctx context.Context, uid uint32) ([]Attachment, error) {
	section := &imap.FetchItemBodySection{Peek: true}

	var raw []byte
	err := s.do(ctx, "fetch_body", func() error {
		bufs, err := s.client.Fetch(imap.UIDSetNum(imap.UID(uid)), &imap.FetchOptions{
			UID:         true,
			BodySection: []*imap.FetchItemBodySection{section},
		}).Collect()
		if err != nil {
			return err
		}
		if len(bufs) == 0 {
			return fmt.Errorf("message UID %d not found", uid)
		}
		raw = bufs[0].FindBodySection(section)
		return nil
	})
	if err != nil {
		return nil, err
	}

	attachments, err := parseAttachments(raw)
	if err != nil {
		return attachments, fmt.Errorf("message UID %d: %w", uid, err)
	}
	return attachments, nil
}

// Delete flags the message \Deleted. The removal is tentative until Expunge
// or Close commits it. Deleting the same UID twice is a no-op.
func (s *Session) Delete(ctx context.Context, uid uint32) error {
	if _, ok := s.pending[imap.UID(uid)]; ok {
		return nil
	}
	if err := s.addFlag(ctx, "delete", uid, imap.FlagDeleted); err != nil {
		return err
	}
	s.pending[imap.UID(uid)] = struct{}{}
	return nil
}

// MarkSeen sets \Seen on the message.
func (s *Session) MarkSeen(ctx context.Context, uid uint32) error {
	return s.addFlag(ctx, "mark_seen", uid, imap.FlagSeen)
}

func (s *Session) addFlag(ctx context.Context, op string, uid uint32, flag imap.Flag) error {
	return s.do(ctx, op, func() error {
		return s.client.Store(imap.UIDSetNum(imap.UID(uid)), &imap.StoreFlags{
			Op:     imap.StoreFlagsAdd,
			Silent: true,
			Flags:  []imap.Flag{flag},
		}, nil).Close()
	})
}

// Pending returns the number of deletions not yet committed.
func (s *Session) Pending() int {
	return len(s.pending)
}

// Expunge permanently removes the messages flagged by Delete and returns how
// many the server reported as expunged. It uses UID EXPUNGE when the server
// supports UIDPLUS so only this session's deletions are committed.
func (s *Session) Expunge(ctx context.Context) (int, error) {
	if len(s.pending) == 0 {
		return 0, nil
	}

	uids := make([]imap.UID, 0, len(s.pending))
	for uid := range s.pending {
		uids = append(uids, uid)
	}
	slices.Sort(uids)

	var expunged []uint32
	err := s.do(ctx, "expunge", func() error {
		var cmd *imapclient.ExpungeCommand
		if s.client.Caps().Has(imap.CapUIDPlus) {
			cmd = s.client.UIDExpunge(imap.UIDSetNum(uids...))
		} else {
			cmd = s.client.Expunge()
		}
		var err error
		expunged, err = cmd.Collect()
		return err
	})
	if err != nil {
		return 0, err
	}

	clear(s.pending)
	s.logger.Info("deletions committed", slog.Int("expunged", len(expunged)))
	return len(expunged), nil
}

// Close commits pending deletions, logs out and releases the connection.
// It is safe to call more than once.
func (s *Session) Close(ctx context.Context) error {
	if s.closed {
		return nil
	}

	var errs []error
	if len(s.pending) > 0 {
		if _, err := s.Expunge(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	s.closed = true

	release := s.deadline(ctx)
	defer release()
	if err := s.client.Logout().Wait(); err != nil {
		errs = append(errs, s.connErr("logout", err))
		_ = s.client.Close()
	}

	return errors.Join(errs...)
}

// do runs one IMAP command under the session deadline and records it.
func (s *Session) do(ctx context.Context, op string, fn func() error) error {
	if s.closed {
		return s.connErr(op, errors.New("session closed"))
	}

	ctx, span := instrumentation.StartIMAPSpan(ctx, op)
	defer span.End()

	release := s.deadline(ctx)
	defer release()

	start := time.Now()
	err := fn()
	if err != nil {
		err = s.connErr(op, err)
		s.logger.Debug("imap command failed",
			logging.Operation(op),
			logging.Status(logging.StatusError),
			logging.Err(err))
		s.metrics.RecordIMAPOperation(ctx, op, instrumentation.StatusError, time.Since(start))
		instrumentation.SetSpanError(span, err)
		return err
	}

	s.metrics.RecordIMAPOperation(ctx, op, instrumentation.StatusSuccess, time.Since(start))
	instrumentation.SetSpanSuccess(span)
	return nil
}

// deadline sets a read/write deadline on the connection bounded by both the
// session timeout and ctx. The returned func clears it.
func (s *Session) deadline(ctx context.Context) func() {
	d := time.Now().Add(s.opts.Timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(d) {
		d = ctxDeadline
	}
	_ = s.conn.SetDeadline(d)
	return func() { _ = s.conn.SetDeadline(time.Time{}) }
}

func (s *Session) connErr(op string, err error) error {
	var connErr *ConnectionError
	if errors.As(err, &connErr) {
		return err
	}
	return &ConnectionError{Op: op, Addr: s.opts.Addr, Err: err}
}
