package sweep

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/afreisinger/gmail-telegram-notifications/internal/attachments"
	"github.com/afreisinger/gmail-telegram-notifications/internal/config"
	"github.com/afreisinger/gmail-telegram-notifications/internal/instrumentation"
	"github.com/afreisinger/gmail-telegram-notifications/internal/logging"
)

// State is a stage of a run.
type State int

const (
	StateIdle State = iota
	StateLoadingConfig
	StateConnected
	StateScanning
	StateFinalizingDeletions
	StateNotifying
	StateReporting
	StateDone
	StateFailed
)

var stateNames = [...]string{
	StateIdle:                "idle",
	StateLoadingConfig:       "loading_config",
	StateConnected:           "connected",
	StateScanning:            "scanning",
	StateFinalizingDeletions: "finalizing_deletions",
	StateNotifying:           "notifying",
	StateReporting:           "reporting",
	StateDone:                "done",
	StateFailed:              "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// NotifierFactory builds the Notifier once credentials are known.
type NotifierFactory func(creds config.Credentials) (Notifier, error)

// RunnerOptions wires a Runner.
type RunnerOptions struct {
	Settings    config.Settings
	Dialer      Dialer
	NewNotifier NotifierFactory

	// Saver defaults to an attachments.Saver over Settings.AttachmentDir.
	Saver AttachmentSaver

	// Reporter is optional; without it the Reporting stage only logs.
	Reporter Reporter

	Logger  *slog.Logger
	Metrics *instrumentation.Metrics
	Audit   *instrumentation.AuditLogger
}

// Runner executes one run. A Runner is single use.
type Runner struct {
	opts    RunnerOptions
	logger  *slog.Logger
	state   State
	history []State
}

// NewRunner returns a Runner in StateIdle.
func NewRunner(opts RunnerOptions) *Runner {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Saver == nil {
		opts.Saver = attachments.NewSaver(opts.Settings.AttachmentDir, opts.Logger)
	}
	return &Runner{
		opts:    opts,
		logger:  logging.WithComponent(opts.Logger, "runner"),
		state:   StateIdle,
		history: []State{StateIdle},
	}
}

// State returns the current state.
func (r *Runner) State() State {
	return r.state
}

// History returns every state the runner went through, in order.
func (r *Runner) History() []State {
	return append([]State(nil), r.history...)
}

func (r *Runner) transition(to State) {
	r.logger.Info("stage transition",
		slog.String("from", r.state.String()),
		logging.Stage(to.String()))
	r.state = to
	r.history = append(r.history, to)
}

// Run executes the pipeline. It returns an error only for fatal failures:
// configuration, connection, authentication or listing the mailbox. The
// Result is never nil and holds whatever was done before a failure.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	if r.state != StateIdle {
		return newResult(), errors.New("runner already used")
	}

	start := time.Now()
	res, err := r.run(ctx)

	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
		r.opts.Metrics.RecordRunError(ctx, ErrorKind(err))
		r.logger.Error("run failed", logging.Err(err))
		r.transition(StateFailed)
	}
	for _, e := range res.Errors {
		r.opts.Metrics.RecordRunError(ctx, ErrorKind(e))
	}
	r.opts.Metrics.RecordRun(ctx, status, time.Since(start))

	return res, err
}

func (r *Runner) run(ctx context.Context) (*Result, error) {
	res := newResult()

	r.transition(StateLoadingConfig)
	creds, lists, notifier, err := r.loadConfig(ctx)
	if err != nil {
		return res, err
	}

	r.transition(StateConnected)
	session, err := r.connect(ctx, creds)
	if err != nil {
		return res, err
	}

	closed := false
	closeSession := func() {
		if closed {
			return
		}
		closed = true
		if err := session.Close(ctx); err != nil {
			res.addError(fmt.Errorf("close session: %w", err))
		}
	}
	defer closeSession()

	r.transition(StateScanning)
	scanCtx, span := instrumentation.StartStageSpan(ctx, StateScanning.String())
	dispatcher := NewDispatcher(NewClassifier(lists), r.opts.Saver, DispatchOptions{
		NotifyUnseenOnly: r.opts.Settings.NotifyUnseenOnly,
		MarkNotifiedSeen: r.opts.Settings.MarkNotifiedSeen,
		Logger:           r.opts.Logger,
		Metrics:          r.opts.Metrics,
		Audit:            r.opts.Audit,
	})
	scanned, err := dispatcher.Run(scanCtx, session)
	mergeResult(res, scanned)
	if err != nil {
		instrumentation.SetSpanError(span, err)
		span.End()
		// Deletions flagged before the failure are still committed by Close.
		closeSession()
		return res, err
	}
	instrumentation.SetSpanSuccess(span)
	span.End()

	r.transition(StateFinalizingDeletions)
	r.finalize(ctx, session, res)
	closeSession()

	r.transition(StateNotifying)
	r.notify(ctx, notifier, res)

	r.transition(StateReporting)
	if r.opts.Reporter != nil {
		if err := r.opts.Reporter.Print(res); err != nil {
			r.logger.Warn("report not printed", logging.Err(err))
		}
	}

	r.transition(StateDone)
	return res, nil
}

func (r *Runner) loadConfig(ctx context.Context) (config.Credentials, config.SenderLists, Notifier, error) {
	_, span := instrumentation.StartStageSpan(ctx, StateLoadingConfig.String())
	defer span.End()

	fail := func(err error) (config.Credentials, config.SenderLists, Notifier, error) {
		instrumentation.SetSpanError(span, err)
		return config.Credentials{}, config.SenderLists{}, nil, err
	}

	creds, err := config.LoadCredentials(r.opts.Settings.CredentialsFile)
	if err != nil {
		return fail(err)
	}
	lists, err := config.LoadSenderLists(r.opts.Settings)
	if err != nil {
		return fail(err)
	}
	if r.opts.NewNotifier == nil {
		return fail(errors.New("no notifier configured"))
	}
	notifier, err := r.opts.NewNotifier(creds)
	if err != nil {
		return fail(fmt.Errorf("create notifier: %w", err))
	}

	r.logger.Info("configuration loaded",
		logging.UserHash(creds.User),
		slog.Int("delete_senders", lists.Delete.Len()),
		slog.Int("notify_senders", lists.Notify.Len()),
		slog.Int("attachment_senders", lists.Attachment.Len()))

	instrumentation.SetSpanSuccess(span)
	return creds, lists, notifier, nil
}

func (r *Runner) connect(ctx context.Context, creds config.Credentials) (Session, error) {
	ctx, span := instrumentation.StartStageSpan(ctx, StateConnected.String())
	defer span.End()

	if r.opts.Dialer == nil {
		err := errors.New("no dialer configured")
		instrumentation.SetSpanError(span, err)
		return nil, err
	}

	session, err := r.opts.Dialer.Dial(ctx, creds)
	if err != nil {
		instrumentation.SetSpanError(span, err)
		return nil, err
	}

	instrumentation.SetSpanSuccess(span)
	return session, nil
}

func (r *Runner) finalize(ctx context.Context, session Session, res *Result) {
	ctx, span := instrumentation.StartStageSpan(ctx, StateFinalizingDeletions.String())
	defer span.End()

	n, err := session.Expunge(ctx)
	if err != nil {
		instrumentation.SetSpanError(span, err)
		res.addError(fmt.Errorf("commit deletions: %w", err))
		return
	}
	res.Expunged = n
	instrumentation.SetSpanSuccess(span)
}

func (r *Runner) notify(ctx context.Context, notifier Notifier, res *Result) {
	if len(res.Notifications) == 0 {
		return
	}

	ctx, span := instrumentation.StartStageSpan(ctx, StateNotifying.String())
	defer span.End()

	if err := notifier.Notify(ctx, res.Notifications); err != nil {
		instrumentation.SetSpanError(span, err)
		res.addError(err)
		return
	}
	res.NotificationSent = true
	instrumentation.SetSpanSuccess(span)
}

func mergeResult(dst, src *Result) {
	if src == nil {
		return
	}
	errs := dst.Errors
	*dst = *src
	dst.Errors = append(errs, src.Errors...)
	if dst.DeletedBySender == nil {
		dst.DeletedBySender = make(map[string]int)
	}
}
