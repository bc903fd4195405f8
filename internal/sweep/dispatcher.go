package sweep

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/afreisinger/gmail-telegram-notifications/internal/instrumentation"
	"github.com/afreisinger/gmail-telegram-notifications/internal/logging"
	"github.com/afreisinger/gmail-telegram-notifications/internal/mailbox"
)

// DispatchOptions tunes the Dispatcher.
type DispatchOptions struct {
	// NotifyUnseenOnly skips notify matches that already carry \Seen.
	NotifyUnseenOnly bool

	// MarkNotifiedSeen sets \Seen on every message added to the summary.
	MarkNotifiedSeen bool

	Logger  *slog.Logger
	Metrics *instrumentation.Metrics
	Audit   *instrumentation.AuditLogger
}

// Dispatcher applies the classified actions to every message of a mailbox.
type Dispatcher struct {
	classifier *Classifier
	saver      AttachmentSaver
	opts       DispatchOptions
	logger     *slog.Logger
}

// NewDispatcher returns a Dispatcher. saver may be nil when the attachment
// list is empty.
func NewDispatcher(classifier *Classifier, saver AttachmentSaver, opts DispatchOptions) *Dispatcher {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Dispatcher{
		classifier: classifier,
		saver:      saver,
		opts:       opts,
		logger:     logging.WithComponent(opts.Logger, "dispatcher"),
	}
}

// Run walks mb once. Failures of single actions are recorded in the
// returned Result; an error is returned only when listing the mailbox
// fails, together with the partial Result.
func (d *Dispatcher) Run(ctx context.Context, mb Mailbox) (*Result, error) {
	res := newResult()
	deleted := make(map[uint32]struct{})

	err := mb.ForeachMessage(ctx, func(msg *mailbox.Message) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		res.Scanned++
		d.opts.Metrics.RecordMessageScanned(ctx)

		actions := d.classifier.Classify(msg.Sender)
		if actions == ActionNone {
			return nil
		}

		d.logger.Debug("message matched",
			logging.UID(msg.UID),
			logging.Domain(msg.Sender),
			slog.String("actions", actions.String()))

		// Attachments are read before the message is flagged for deletion.
		if actions.Has(ActionAttachment) {
			d.saveAttachments(ctx, mb, msg, res)
		}
		if actions.Has(ActionNotify) {
			d.collect(ctx, mb, msg, res)
		}
		if actions.Has(ActionDelete) {
			if _, ok := deleted[msg.UID]; !ok {
				if d.delete(ctx, mb, msg, res) {
					deleted[msg.UID] = struct{}{}
				}
			}
		}
		return nil
	})
	if err != nil {
		return res, fmt.Errorf("scan mailbox: %w", err)
	}

	d.logger.Info("mailbox scanned",
		slog.Int("scanned", res.Scanned),
		slog.Int("deleted", res.Deleted),
		slog.Int("notified", res.Notified),
		slog.Int("attachments", res.AttachmentsSaved),
		slog.Int("errors", len(res.Errors)))
	return res, nil
}

func (d *Dispatcher) delete(ctx context.Context, mb Mailbox, msg *mailbox.Message, res *Result) bool {
	record := instrumentation.NewActionRecord(instrumentation.ActionDelete, msg.UID, msg.Sender).
		WithSubject(msg.Subject).
		WithSpanContext(ctx)

	err := mb.Delete(ctx, msg.UID)
	d.finish(ctx, record, err)
	if err != nil {
		res.addError(fmt.Errorf("delete message %d from %s: %w", msg.UID, msg.Sender, err))
		return false
	}

	res.Deleted++
	res.DeletedBySender[msg.Sender]++
	return true
}

func (d *Dispatcher) collect(ctx context.Context, mb Mailbox, msg *mailbox.Message, res *Result) {
	if d.opts.NotifyUnseenOnly && msg.Seen {
		d.opts.Metrics.RecordMessageAction(ctx, instrumentation.ActionNotify, instrumentation.StatusSkipped, msg.Sender)
		return
	}

	record := instrumentation.NewActionRecord(instrumentation.ActionNotify, msg.UID, msg.Sender).
		WithSubject(msg.Subject).
		WithSpanContext(ctx)

	res.Notifications = append(res.Notifications, NotificationEntry{
		Sender:  msg.Sender,
		Subject: msg.Subject,
		Date:    msg.Date,
	})
	res.Notified++

	var err error
	if d.opts.MarkNotifiedSeen && !msg.Seen {
		if err = mb.MarkSeen(ctx, msg.UID); err != nil {
			res.addError(fmt.Errorf("mark message %d seen: %w", msg.UID, err))
		}
	}
	d.finish(ctx, record, err)
}

func (d *Dispatcher) saveAttachments(ctx context.Context, mb Mailbox, msg *mailbox.Message, res *Result) {
	record := instrumentation.NewActionRecord(instrumentation.ActionAttachment, msg.UID, msg.Sender).
		WithSubject(msg.Subject).
		WithSpanContext(ctx)

	parts, err := mb.Attachments(ctx, msg.UID)
	if err != nil {
		d.finish(ctx, record, err)
		res.addError(fmt.Errorf("fetch attachments of message %d: %w", msg.UID, err))
		return
	}
	if len(parts) == 0 {
		d.finish(ctx, record, nil)
		return
	}
	if d.saver == nil {
		err := fmt.Errorf("no attachment saver configured")
		d.finish(ctx, record, err)
		res.addError(err)
		return
	}

	saved, errs := d.saver.Save(msg.UID, parts)
	for _, s := range saved {
		res.Attachments = append(res.Attachments, SavedAttachment{Sender: msg.Sender, Saved: s})
		d.opts.Metrics.RecordAttachmentSaved(ctx, s.Size)
	}
	res.AttachmentsSaved += len(saved)
	for _, err := range errs {
		res.addError(err)
	}

	var firstErr error
	if len(errs) > 0 {
		firstErr = errs[0]
	}
	d.finish(ctx, record, firstErr)
}

// finish records the outcome of one action in metrics and the audit log.
func (d *Dispatcher) finish(ctx context.Context, record *instrumentation.ActionRecord, err error) {
	record.Complete(err)
	d.logger.Debug("action finished",
		logging.Operation(record.Action),
		logging.UID(record.UID),
		logging.Status(record.Status()),
		logging.Err(err))
	d.opts.Metrics.RecordMessageAction(ctx, record.Action, record.Status(), record.Sender)
	d.opts.Audit.LogAction(record)
}
