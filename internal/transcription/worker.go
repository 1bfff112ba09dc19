package transcription

import (
	"context"
	"fmt"
	"log/slog"

	"clipflow/internal/gate"
	"clipflow/internal/logging"
	"clipflow/internal/retry"
	"clipflow/internal/services/speech"
	"clipflow/internal/session"
)

// AwaitingAudioMessage is the user-facing reason reported while transcription
// waits on the audio source from frame extraction.
const AwaitingAudioMessage = "waiting for audio track extraction to complete"

// Transcriber is the slice of the speech client the worker needs.
type Transcriber interface {
	Transcribe(ctx context.Context, audioHandle string) (speech.Result, error)
}

// Update is one status report surfaced into session state. Waiting fields are
// informational only; they must never be recorded as errors.
type Update struct {
	Stage                session.TranscriptionStage
	WaitingMessage       string
	EstimatedWaitSeconds float64
	SegmentationProgress float64
}

// Worker runs the two-stage transcription pipeline: transcript generation
// gated on the audio dependency, then deterministic local segmentation.
type Worker struct {
	gate        *gate.Gate
	transcriber Transcriber
	scheduler   *retry.Scheduler
	logger      *slog.Logger
}

// NewWorker constructs a transcription worker.
func NewWorker(g *gate.Gate, transcriber Transcriber, scheduler *retry.Scheduler, logger *slog.Logger) *Worker {
	return &Worker{
		gate:        g,
		transcriber: transcriber,
		scheduler:   scheduler,
		logger:      logging.NewComponentLogger(logger, "transcription"),
	}
}

// Scheduler exposes the worker's retry scheduler so the orchestrator can wake
// a waiting worker the moment its dependency is satisfied.
func (w *Worker) Scheduler() *retry.Scheduler {
	return w.scheduler
}

// GenerateTranscript is stage one: it consults the dependency gate before
// every attempt and invokes the remote service once the audio source is
// ready. NotYetReady keeps the worker in AwaitingAudio without consuming the
// failure budget; a definitive gate or service failure surfaces as the
// terminal error after the configured attempts.
func (w *Worker) GenerateTranscript(ctx context.Context, snapshot func() session.Snapshot, report func(Update)) (speech.Result, error) {
	var result speech.Result
	err := w.scheduler.Run(ctx, func(ctx context.Context) (retry.Result, error) {
		status := w.gate.Check(ctx, snapshot())
		switch status.State {
		case gate.NotYetReady:
			estimate := status.EstimatedWait.Seconds()
			w.logger.Debug("audio source not ready",
				logging.Float64("estimated_wait_seconds", estimate),
			)
			report(Update{
				Stage:                session.TranscriptionAwaitingAudio,
				WaitingMessage:       AwaitingAudioMessage,
				EstimatedWaitSeconds: estimate,
			})
			return retry.Waiting, nil
		case gate.Failed:
			return retry.Failed, status.Cause
		}

		report(Update{Stage: session.TranscriptionGenerating})
		res, err := w.transcriber.Transcribe(ctx, status.Handle)
		if err != nil {
			w.logger.Warn("transcribe attempt failed", logging.Error(err))
			return retry.Failed, err
		}
		result = res
		return retry.Done, nil
	})
	if err != nil {
		return speech.Result{}, err
	}

	w.logger.Info("transcript generated",
		logging.Int("timed_segments", len(result.Segments)),
		logging.String(logging.FieldEventType, "transcript_generated"),
	)
	return result, nil
}

// SegmentTranscript is stage two: deterministic, local, no remote call. It
// can be re-entered on its own after a failure without repeating transcript
// generation.
func (w *Worker) SegmentTranscript(text string, timed []speech.TimedSegment, durationSeconds, windowSeconds float64, report func(Update)) ([]session.TranscriptSegment, error) {
	report(Update{Stage: session.TranscriptionSegmenting})

	segments, err := FixedSegments(text, timed, durationSeconds, windowSeconds)
	if err != nil {
		return nil, err
	}

	report(Update{Stage: session.TranscriptionSegmenting, SegmentationProgress: 100})
	w.logger.Info(fmt.Sprintf("segmented transcript into %d windows", len(segments)),
		logging.Float64("window_seconds", windowSeconds),
		logging.String(logging.FieldEventType, "transcript_segmented"),
	)
	return segments, nil
}
