package orchestrator

import (
	"context"

	"clipflow/internal/align"
	"clipflow/internal/extraction"
	"clipflow/internal/ledger"
	"clipflow/internal/logging"
	"clipflow/internal/services"
	"clipflow/internal/services/speech"
	"clipflow/internal/session"
	"clipflow/internal/transcription"
)

// runtime is the in-flight state of one session. Only the session loop
// goroutine touches it after launch.
type runtime struct {
	id          string
	videoHandle string
	duration    float64
	events      chan event
	ledger      *ledger.Ledger

	extraction    *extraction.Worker
	transcription *transcription.Worker

	extractionActive    bool
	transcriptionActive bool

	// Retained for segmentation-only retry after a stage-two failure.
	timedSegments []speech.TimedSegment
	failedDuring  session.TranscriptionStage
}

type event interface{ isEvent() }

type extractionProgressEvent struct{ progress extraction.Progress }

type extractionResultEvent struct {
	outcome extraction.Outcome
	err     error
}

type transcriptionUpdateEvent struct{ update transcription.Update }

type transcriptGeneratedEvent struct{ result speech.Result }

type transcriptionResultEvent struct {
	segments []session.TranscriptSegment
	during   session.TranscriptionStage
	err      error
}

type retryRequestEvent struct {
	section session.Section
	reply   chan error
}

type snapshotRequestEvent struct{ reply chan session.Snapshot }

func (extractionProgressEvent) isEvent()  {}
func (extractionResultEvent) isEvent()    {}
func (transcriptionUpdateEvent) isEvent() {}
func (transcriptGeneratedEvent) isEvent() {}
func (transcriptionResultEvent) isEvent() {}
func (retryRequestEvent) isEvent()        {}
func (snapshotRequestEvent) isEvent()     {}

// send delivers an event to the session loop unless the run context ends
// first.
func (rt *runtime) send(ctx context.Context, ev event) {
	select {
	case rt.events <- ev:
	case <-ctx.Done():
	}
}

// snapshotter returns a function workers use to observe current session
// state. It round-trips through the loop so readers never race the writer.
func (rt *runtime) snapshotter(ctx context.Context) func() session.Snapshot {
	return func() session.Snapshot {
		reply := make(chan session.Snapshot, 1)
		select {
		case rt.events <- snapshotRequestEvent{reply: reply}:
		case <-ctx.Done():
			return session.Snapshot{}
		}
		select {
		case snap := <-reply:
			return snap
		case <-ctx.Done():
			return session.Snapshot{}
		}
	}
}

// runSession is the single writer for one session record. It applies worker
// events to the in-memory session, persists after every mutation, and stays
// alive for manual retries until the orchestrator shuts down.
func (o *Orchestrator) runSession(ctx context.Context, rt *runtime, sess *session.Session) {
	defer o.wg.Done()
	defer func() {
		o.mu.Lock()
		delete(o.active, rt.id)
		o.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-rt.events:
			o.handleEvent(ctx, rt, sess, ev)
		}
	}
}

func (o *Orchestrator) handleEvent(ctx context.Context, rt *runtime, sess *session.Session, ev event) {
	switch ev := ev.(type) {
	case snapshotRequestEvent:
		ev.reply <- sess.Snapshot()
		return
	case extractionProgressEvent:
		o.applyExtractionProgress(rt, sess, ev.progress)
	case extractionResultEvent:
		o.applyExtractionResult(rt, sess, ev)
	case transcriptionUpdateEvent:
		o.applyTranscriptionUpdate(sess, ev.update)
	case transcriptGeneratedEvent:
		sess.FullTranscript = ev.result.Text
		rt.timedSegments = ev.result.Segments
		o.recordCost(rt, sess, session.CostTranscription, ev.result.Cost)
	case transcriptionResultEvent:
		o.applyTranscriptionResult(rt, sess, ev)
	case retryRequestEvent:
		ev.reply <- o.applyRetry(ctx, rt, sess, ev.section)
	}

	o.persist(ctx, sess)
}

func (o *Orchestrator) applyExtractionProgress(rt *runtime, sess *session.Session, progress extraction.Progress) {
	sess.SetExtractionProgress(progress.Percent)
	if progress.AudioSourceHandle != "" && sess.PublishAudioSource(progress.AudioSourceHandle) {
		o.logger.Info("audio source published mid-extraction",
			logging.String(logging.FieldSessionID, sess.ID),
			logging.String(logging.FieldEventType, "audio_source_published"),
		)
		// Shortcut: the dependency just resolved, so cut the gate's
		// current wait short instead of letting the poll timer expire.
		rt.transcription.Scheduler().Wake()
	}
}

func (o *Orchestrator) applyExtractionResult(rt *runtime, sess *session.Session, ev extractionResultEvent) {
	rt.extractionActive = false
	if ev.err != nil {
		sess.AppendError(session.SectionFrames, ev.err.Error())
		sess.Stage = session.StageFailed
		o.logger.Error("frame extraction failed",
			logging.String(logging.FieldSessionID, sess.ID),
			logging.Error(ev.err),
			logging.String(logging.FieldEventType, "extraction_failed"),
		)
		return
	}

	sess.Frames = ev.outcome.Frames
	sess.SetExtractionProgress(100)
	if ev.outcome.AudioSourceHandle != "" && sess.PublishAudioSource(ev.outcome.AudioSourceHandle) {
		rt.transcription.Scheduler().Wake()
	}
	o.recordCost(rt, sess, session.CostFrameExtraction, ev.outcome.Cost)
	sess.FramesOutstanding = 0
	o.logger.Info("frame extraction complete",
		logging.String(logging.FieldSessionID, sess.ID),
		logging.Int("frames", len(sess.Frames)),
		logging.String(logging.FieldEventType, "extraction_complete"),
	)
	o.maybeComplete(rt, sess)
}

func (o *Orchestrator) applyTranscriptionUpdate(sess *session.Session, update transcription.Update) {
	if update.Stage != "" {
		sess.TranscriptionStage = update.Stage
	}
	if update.Stage == session.TranscriptionAwaitingAudio {
		sess.SetWaiting(update.WaitingMessage, update.EstimatedWaitSeconds)
	} else {
		sess.ClearWaiting()
	}
	if update.SegmentationProgress > 0 {
		sess.SegmentationProgress = update.SegmentationProgress
	}
}

func (o *Orchestrator) applyTranscriptionResult(rt *runtime, sess *session.Session, ev transcriptionResultEvent) {
	rt.transcriptionActive = false
	if ev.err != nil {
		rt.failedDuring = ev.during
		sess.AppendError(session.SectionTranscription, ev.err.Error())
		sess.TranscriptionStage = session.TranscriptionFailed
		sess.Stage = session.StageFailed
		sess.ClearWaiting()
		o.logger.Error("transcription failed",
			logging.String(logging.FieldSessionID, sess.ID),
			logging.String("during", string(ev.during)),
			logging.Error(ev.err),
			logging.String(logging.FieldEventType, "transcription_failed"),
		)
		return
	}

	sess.Segments = ev.segments
	sess.SegmentationProgress = 100
	sess.TranscriptionStage = session.TranscriptionCompleted
	sess.TranscriptionOutstanding = 0
	o.logger.Info("transcription complete",
		logging.String(logging.FieldSessionID, sess.ID),
		logging.Int("segments", len(sess.Segments)),
		logging.String(logging.FieldEventType, "transcription_complete"),
	)
	o.maybeComplete(rt, sess)
}

// applyRetry services a manual retry request inside the loop, so section
// state cannot change between the check and the relaunch.
func (o *Orchestrator) applyRetry(ctx context.Context, rt *runtime, sess *session.Session, section session.Section) error {
	switch section {
	case session.SectionFrames:
		if sess.FramesOutstanding == 0 {
			return nil
		}
		if rt.extractionActive {
			rt.extraction.Scheduler().Wake()
			return nil
		}
		sess.Stage = session.StageProcessing
		o.startExtraction(ctx, rt)
		return nil
	case session.SectionTranscription:
		if sess.TranscriptionOutstanding == 0 {
			return nil
		}
		if rt.transcriptionActive {
			rt.transcription.Scheduler().Wake()
			return nil
		}
		sess.Stage = session.StageProcessing
		if rt.failedDuring == session.TranscriptionSegmenting && sess.FullTranscript != "" {
			// The transcript already exists; redo only the local
			// segmentation instead of paying for generation again.
			o.startSegmentation(ctx, rt, sess.FullTranscript)
			return nil
		}
		sess.TranscriptionStage = session.TranscriptionAwaitingAudio
		o.startTranscription(ctx, rt)
		return nil
	default:
		return services.Wrap(services.ErrValidation, "orchestrator", "retry",
			"unknown section "+string(section), nil)
	}
}

func (o *Orchestrator) maybeComplete(rt *runtime, sess *session.Session) {
	if sess.FramesOutstanding != 0 || sess.TranscriptionOutstanding != 0 {
		return
	}
	sess.Stage = session.StageCompleted
	sess.ClearWaiting()
	costs := rt.ledger.BySource()
	o.logger.Info("session complete",
		logging.String(logging.FieldSessionID, sess.ID),
		logging.Float64("total_cost", rt.ledger.Total()),
		logging.Float64("frame_cost", costs[session.CostFrameExtraction]),
		logging.Float64("transcription_cost", costs[session.CostTranscription]),
		logging.String(logging.FieldEventType, "session_complete"),
	)

	if o.onAligned != nil && len(sess.Frames) > 0 && len(sess.Segments) > 0 {
		aligned := align.Index(sess.Frames, sess.Segments)
		handler := o.onAligned
		id := sess.ID
		go handler(id, aligned)
	}
}

func (o *Orchestrator) recordCost(rt *runtime, sess *session.Session, source session.CostSource, amount float64) {
	if amount <= 0 {
		return
	}
	rt.ledger.Add(source, amount)
	sess.AppendCost(source, amount)
}

func (o *Orchestrator) persist(ctx context.Context, sess *session.Session) {
	if err := o.store.Update(ctx, sess); err != nil {
		o.logger.Error("persist session failed",
			logging.String(logging.FieldSessionID, sess.ID),
			logging.Error(err),
		)
	}
	o.notify(sess.ID, sess.Snapshot())
}

func (o *Orchestrator) startExtraction(ctx context.Context, rt *runtime) {
	rt.extractionActive = true
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		outcome, err := rt.extraction.Run(ctx, rt.videoHandle, func(progress extraction.Progress) {
			rt.send(ctx, extractionProgressEvent{progress: progress})
		})
		rt.send(ctx, extractionResultEvent{outcome: outcome, err: err})
	}()
}

func (o *Orchestrator) startTranscription(ctx context.Context, rt *runtime) {
	rt.transcriptionActive = true
	// The window is read here, not at worker construction, so a config
	// change between attempts applies to the next segmentation run.
	window := o.cfg.Workflow.SegmentWindowSeconds
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		report := func(update transcription.Update) {
			rt.send(ctx, transcriptionUpdateEvent{update: update})
		}
		result, err := rt.transcription.GenerateTranscript(ctx, rt.snapshotter(ctx), report)
		if err != nil {
			rt.send(ctx, transcriptionResultEvent{during: session.TranscriptionGenerating, err: err})
			return
		}
		rt.send(ctx, transcriptGeneratedEvent{result: result})

		segments, err := rt.transcription.SegmentTranscript(result.Text, result.Segments, rt.duration, window, report)
		rt.send(ctx, transcriptionResultEvent{
			segments: segments,
			during:   session.TranscriptionSegmenting,
			err:      err,
		})
	}()
}

// startSegmentation reruns only stage two with the stored transcript.
func (o *Orchestrator) startSegmentation(ctx context.Context, rt *runtime, transcript string) {
	rt.transcriptionActive = true
	timed := rt.timedSegments
	window := o.cfg.Workflow.SegmentWindowSeconds
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		report := func(update transcription.Update) {
			rt.send(ctx, transcriptionUpdateEvent{update: update})
		}
		segments, err := rt.transcription.SegmentTranscript(transcript, timed, rt.duration, window, report)
		rt.send(ctx, transcriptionResultEvent{
			segments: segments,
			during:   session.TranscriptionSegmenting,
			err:      err,
		})
	}()
}
