package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"clipflow/internal/align"
	"clipflow/internal/config"
	"clipflow/internal/extraction"
	"clipflow/internal/gate"
	"clipflow/internal/ledger"
	"clipflow/internal/logging"
	"clipflow/internal/retry"
	"clipflow/internal/services"
	"clipflow/internal/services/framegen"
	"clipflow/internal/session"
	"clipflow/internal/transcription"
)

// FrameService is the frame-rendering surface the orchestrator wires into
// its workers and the dependency gate. framegen.Client satisfies it.
type FrameService interface {
	Submit(ctx context.Context, videoHandle string) (string, error)
	Poll(ctx context.Context, jobID string) (framegen.PollResult, error)
	ProbeAudio(ctx context.Context, audioHandle string) error
}

// AlignedHandler receives the paired frame/transcript list once a session
// completes with both artifacts present. It is the boundary to the
// downstream analysis collaborator.
type AlignedHandler func(sessionID string, aligned []align.AlignedSegment)

// Orchestrator launches frame extraction and transcription concurrently per
// session and owns every mutation of the session record through a
// single-writer event loop.
type Orchestrator struct {
	cfg       *config.Config
	store     *session.Store
	frames    FrameService
	speech    transcription.Transcriber
	logger    *slog.Logger
	onAligned AlignedHandler

	mu      sync.RWMutex
	running bool
	runCtx  context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	active  map[string]*runtime

	subMu       sync.Mutex
	subscribers map[string][]chan session.Snapshot
}

// Option configures optional orchestrator behavior.
type Option func(*Orchestrator)

// WithAlignedHandler installs the downstream consumer of aligned output.
func WithAlignedHandler(handler AlignedHandler) Option {
	return func(o *Orchestrator) {
		o.onAligned = handler
	}
}

// New constructs an orchestrator.
func New(cfg *config.Config, store *session.Store, frames FrameService, speechClient transcription.Transcriber, logger *slog.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cfg:         cfg,
		store:       store,
		frames:      frames,
		speech:      speechClient,
		logger:      logging.NewComponentLogger(logger, "orchestrator"),
		active:      make(map[string]*runtime),
		subscribers: make(map[string][]chan session.Snapshot),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Start enables session processing. Worker lifetimes are bound to the
// supplied context, not to the contexts of individual API requests.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.running {
		return errors.New("orchestrator already running")
	}
	o.runCtx, o.cancel = context.WithCancel(ctx)
	o.running = true
	return nil
}

// Stop cancels all session loops and waits for them to drain.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	if !o.running {
		o.mu.Unlock()
		return
	}
	cancel := o.cancel
	o.running = false
	o.cancel = nil
	o.mu.Unlock()

	cancel()
	o.wg.Wait()
}

// Begin validates the request, creates the session record, and launches both
// workers concurrently. Malformed input is rejected synchronously before any
// worker starts.
func (o *Orchestrator) Begin(ctx context.Context, videoHandle string, durationSeconds float64) (session.Snapshot, error) {
	if strings.TrimSpace(videoHandle) == "" {
		return session.Snapshot{}, services.Wrap(services.ErrValidation, "orchestrator", "begin", "video handle required", nil)
	}
	if durationSeconds <= 0 {
		return session.Snapshot{}, services.Wrap(services.ErrValidation, "orchestrator", "begin", "duration must be positive", nil)
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.running {
		return session.Snapshot{}, errors.New("orchestrator not running")
	}

	sess, err := o.store.NewSession(ctx, videoHandle, durationSeconds)
	if err != nil {
		return session.Snapshot{}, err
	}
	sess.Stage = session.StageProcessing
	sess.TranscriptionStage = session.TranscriptionAwaitingAudio
	// Seed the waiting payload so a status read racing the worker's first
	// gate check still carries a message and estimate.
	sess.SetWaiting(transcription.AwaitingAudioMessage, o.cfg.Workflow.DependencyWaitSeconds)
	if err := o.store.Update(ctx, sess); err != nil {
		return session.Snapshot{}, err
	}

	rt := o.newRuntime(sess)
	o.active[sess.ID] = rt

	o.logger.Info("session started",
		logging.String(logging.FieldSessionID, sess.ID),
		logging.Float64("duration_seconds", durationSeconds),
		logging.String(logging.FieldEventType, "session_started"),
	)

	// Snapshot before the loop and workers launch: from that point on the
	// session loop is the only goroutine allowed to touch the record.
	snap := sess.Snapshot()

	o.wg.Add(1)
	go o.runSession(o.runCtx, rt, sess)
	o.startExtraction(o.runCtx, rt)
	o.startTranscription(o.runCtx, rt)

	return snap, nil
}

// Snapshot returns the persisted state of a session.
func (o *Orchestrator) Snapshot(ctx context.Context, id string) (session.Snapshot, error) {
	sess, err := o.store.GetByID(ctx, id)
	if err != nil {
		return session.Snapshot{}, err
	}
	if sess == nil {
		return session.Snapshot{}, services.Wrap(services.ErrNotFound, "orchestrator", "snapshot", "session "+id+" not found", nil)
	}
	return sess.Snapshot(), nil
}

// List returns snapshots of every known session, newest first.
func (o *Orchestrator) List(ctx context.Context) ([]session.Snapshot, error) {
	sessions, err := o.store.List(ctx)
	if err != nil {
		return nil, err
	}
	snaps := make([]session.Snapshot, 0, len(sessions))
	for _, sess := range sessions {
		snaps = append(snaps, sess.Snapshot())
	}
	return snaps, nil
}

// RetrySection requests a manual retry scoped to one section. Retrying an
// already-complete section is a no-op: the underlying remote call is not
// re-run and no cost entry is duplicated.
func (o *Orchestrator) RetrySection(ctx context.Context, id string, section session.Section) error {
	o.mu.RLock()
	rt := o.active[id]
	o.mu.RUnlock()

	if rt == nil {
		sess, err := o.store.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if sess == nil {
			return services.Wrap(services.ErrNotFound, "orchestrator", "retry", "session "+id+" not found", nil)
		}
		return services.Wrap(services.ErrValidation, "orchestrator", "retry",
			"session is no longer active; submit the video again", nil)
	}

	reply := make(chan error, 1)
	select {
	case rt.events <- retryRequestEvent{section: section, reply: reply}:
	case <-ctx.Done():
		return ctx.Err()
	case <-o.runCtx.Done():
		return o.runCtx.Err()
	}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribe registers for snapshot updates of one session. The returned
// cancel function must be called to release the subscription. Slow consumers
// miss intermediate snapshots rather than blocking the session loop.
func (o *Orchestrator) Subscribe(id string) (<-chan session.Snapshot, func()) {
	ch := make(chan session.Snapshot, 8)
	o.subMu.Lock()
	o.subscribers[id] = append(o.subscribers[id], ch)
	o.subMu.Unlock()

	cancel := func() {
		o.subMu.Lock()
		defer o.subMu.Unlock()
		subs := o.subscribers[id]
		for i, sub := range subs {
			if sub == ch {
				o.subscribers[id] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
	}
	return ch, cancel
}

func (o *Orchestrator) notify(id string, snap session.Snapshot) {
	o.subMu.Lock()
	subs := append([]chan session.Snapshot(nil), o.subscribers[id]...)
	o.subMu.Unlock()
	for _, sub := range subs {
		select {
		case sub <- snap:
		default:
		}
	}
}

func (o *Orchestrator) newRuntime(sess *session.Session) *runtime {
	extractionScheduler := retry.NewScheduler(o.extractionPolicy())
	transcriptionScheduler := retry.NewScheduler(o.transcriptionPolicy())

	audioGate := gate.New(o.frames, secondsToDuration(o.cfg.Workflow.DependencyWaitSeconds))

	return &runtime{
		id:          sess.ID,
		videoHandle: sess.VideoHandle,
		duration:    sess.DurationSeconds,
		events:      make(chan event, 16),
		ledger:      ledger.New(),
		extraction:  extraction.NewWorker(o.frames, extractionScheduler, o.logger),
		transcription: transcription.NewWorker(audioGate, o.speech, transcriptionScheduler, o.logger),
	}
}

// extractionPolicy paces pending polls at the service poll interval while
// failures back off separately.
func (o *Orchestrator) extractionPolicy() retry.Policy {
	pollInterval := secondsToDuration(o.cfg.FrameGen.PollIntervalSeconds)
	failureDelay := o.failureDelay()
	return retry.Policy{
		MaxAttempts: o.cfg.Workflow.MaxAttempts,
		Delay: func(attempt int) time.Duration {
			if attempt == 0 {
				return pollInterval
			}
			return failureDelay(attempt)
		},
	}
}

// transcriptionPolicy paces dependency-gate rechecks at the gate poll
// cadence while service failures back off separately.
func (o *Orchestrator) transcriptionPolicy() retry.Policy {
	gatePoll := secondsToDuration(o.cfg.Workflow.GatePollSeconds)
	failureDelay := o.failureDelay()
	return retry.Policy{
		MaxAttempts: o.cfg.Workflow.MaxAttempts,
		Delay: func(attempt int) time.Duration {
			if attempt == 0 {
				return gatePoll
			}
			return failureDelay(attempt)
		},
	}
}

func (o *Orchestrator) failureDelay() func(int) time.Duration {
	base := secondsToDuration(o.cfg.Workflow.RetryDelaySeconds)
	if o.cfg.Workflow.RetryBackoff {
		return retry.Backoff(base, 30*time.Second)
	}
	return retry.FixedDelay(base)
}

func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}
