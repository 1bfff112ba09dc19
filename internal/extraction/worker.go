package extraction

import (
	"context"
	"log/slog"

	"clipflow/internal/logging"
	"clipflow/internal/retry"
	"clipflow/internal/services"
	"clipflow/internal/services/framegen"
	"clipflow/internal/session"
)

// Service is the slice of the frame-rendering client the worker needs.
type Service interface {
	Submit(ctx context.Context, videoHandle string) (string, error)
	Poll(ctx context.Context, jobID string) (framegen.PollResult, error)
}

// Progress is one incremental update reported while the remote job runs.
// AudioSourceHandle is set on exactly one update: the first poll that sees
// the demuxed audio track.
type Progress struct {
	Percent           float64
	Message           string
	AudioSourceHandle string
}

// Outcome is the terminal success payload.
type Outcome struct {
	Frames            []session.Frame
	AudioSourceHandle string
	Cost              float64
}

// Worker drives the remote frame-rendering service to completion.
type Worker struct {
	service   Service
	scheduler *retry.Scheduler
	logger    *slog.Logger
}

// NewWorker constructs a frame-extraction worker.
func NewWorker(service Service, scheduler *retry.Scheduler, logger *slog.Logger) *Worker {
	return &Worker{
		service:   service,
		scheduler: scheduler,
		logger:    logging.NewComponentLogger(logger, "extraction"),
	}
}

// Scheduler exposes the worker's retry scheduler for manual-retry wakeups.
func (w *Worker) Scheduler() *retry.Scheduler {
	return w.scheduler
}

// Run submits the rendering job and polls it to completion, reporting
// monotonic progress through report. Remote failures are retried per policy;
// the terminal error is returned for the caller to record.
func (w *Worker) Run(ctx context.Context, videoHandle string, report func(Progress)) (Outcome, error) {
	var jobID string
	err := w.scheduler.Run(ctx, func(ctx context.Context) (retry.Result, error) {
		id, err := w.service.Submit(ctx, videoHandle)
		if err != nil {
			w.logger.Warn("submit attempt failed", logging.Error(err))
			return retry.Failed, err
		}
		jobID = id
		return retry.Done, nil
	})
	if err != nil {
		return Outcome{}, err
	}

	w.logger.Info("frame rendering job submitted",
		logging.String("job_id", jobID),
		logging.String(logging.FieldEventType, "extraction_submitted"),
	)
	report(Progress{Percent: 0, Message: "frame extraction submitted"})

	var outcome Outcome
	audioPublished := false
	err = w.scheduler.Run(ctx, func(ctx context.Context) (retry.Result, error) {
		result, err := w.service.Poll(ctx, jobID)
		if err != nil {
			w.logger.Warn("poll attempt failed", logging.Error(err))
			return retry.Failed, err
		}

		if result.AudioSourceHandle != "" && !audioPublished {
			audioPublished = true
			w.logger.Info("audio source available",
				logging.String(logging.FieldEventType, "audio_source_published"),
			)
			report(Progress{
				Percent:           result.Progress,
				Message:           "audio track available",
				AudioSourceHandle: result.AudioSourceHandle,
			})
		}

		switch result.Status {
		case framegen.JobPending:
			report(Progress{Percent: result.Progress, Message: "rendering frames"})
			return retry.Waiting, nil
		case framegen.JobReady:
			outcome = Outcome{
				Frames:            convertFrames(result.Frames),
				AudioSourceHandle: result.AudioSourceHandle,
				Cost:              result.Cost,
			}
			report(Progress{Percent: 100, Message: "frame extraction complete"})
			return retry.Done, nil
		default:
			message := result.Message
			if message == "" {
				message = "remote rendering job failed"
			}
			return retry.Failed, services.Wrap(services.ErrExternalService, "extraction", "poll", message, nil)
		}
	})
	if err != nil {
		return Outcome{}, err
	}
	return outcome, nil
}

func convertFrames(frames []framegen.Frame) []session.Frame {
	out := make([]session.Frame, 0, len(frames))
	for _, frame := range frames {
		out = append(out, session.Frame{
			Timestamp: frame.Timestamp,
			URL:       frame.URL,
			Filename:  frame.Filename,
		})
	}
	return out
}
