package transcription

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"clipflow/internal/gate"
	"clipflow/internal/logging"
	"clipflow/internal/retry"
	"clipflow/internal/services"
	"clipflow/internal/services/speech"
	"clipflow/internal/session"
)

type stubTranscriber struct {
	mu     sync.Mutex
	calls  int
	result speech.Result
	err    error
}

func (s *stubTranscriber) Transcribe(context.Context, string) (speech.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.result, s.err
}

func (s *stubTranscriber) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func testScheduler(maxAttempts int) *retry.Scheduler {
	return retry.NewScheduler(retry.Policy{
		MaxAttempts: maxAttempts,
		Delay:       retry.FixedDelay(time.Millisecond),
	})
}

func TestGenerateTranscriptWaitsForAudioHandle(t *testing.T) {
	transcriber := &stubTranscriber{result: speech.Result{Text: "done talking"}}
	worker := NewWorker(gate.New(nil, time.Minute), transcriber, testScheduler(3), logging.NewNop())

	var mu sync.Mutex
	snap := session.Snapshot{}
	checks := 0
	snapshot := func() session.Snapshot {
		mu.Lock()
		defer mu.Unlock()
		checks++
		if checks == 3 {
			snap.AudioSourceHandle = "audio-1"
		}
		return snap
	}

	var updates []Update
	result, err := worker.GenerateTranscript(context.Background(), snapshot, func(u Update) {
		mu.Lock()
		defer mu.Unlock()
		updates = append(updates, u)
	})
	if err != nil {
		t.Fatalf("GenerateTranscript: %v", err)
	}
	if result.Text != "done talking" {
		t.Fatalf("result text = %q", result.Text)
	}
	if transcriber.callCount() != 1 {
		t.Fatalf("transcriber called %d times", transcriber.callCount())
	}

	sawWaiting := false
	for _, u := range updates {
		if u.Stage == session.TranscriptionAwaitingAudio {
			sawWaiting = true
			if u.WaitingMessage == "" || u.EstimatedWaitSeconds <= 0 {
				t.Fatalf("waiting update missing detail: %+v", u)
			}
		}
	}
	if !sawWaiting {
		t.Fatal("expected at least one awaiting_audio update")
	}
}

func TestGenerateTranscriptServiceFailureExhaustsBudget(t *testing.T) {
	svcErr := services.Wrap(services.ErrExternalService, "speech", "transcribe", "upstream 500", nil)
	transcriber := &stubTranscriber{err: svcErr}
	worker := NewWorker(gate.New(nil, time.Minute), transcriber, testScheduler(2), logging.NewNop())

	snapshot := func() session.Snapshot {
		return session.Snapshot{AudioSourceHandle: "audio-1"}
	}
	_, err := worker.GenerateTranscript(context.Background(), snapshot, func(Update) {})
	if !errors.Is(err, services.ErrExternalService) {
		t.Fatalf("expected service error, got %v", err)
	}
	if transcriber.callCount() != 2 {
		t.Fatalf("expected 2 attempts, got %d", transcriber.callCount())
	}
}

func TestSegmentTranscriptReportsProgress(t *testing.T) {
	worker := NewWorker(gate.New(nil, time.Minute), &stubTranscriber{}, testScheduler(1), logging.NewNop())

	var updates []Update
	segments, err := worker.SegmentTranscript("alpha beta gamma", nil, 12, 5, func(u Update) {
		updates = append(updates, u)
	})
	if err != nil {
		t.Fatalf("SegmentTranscript: %v", err)
	}
	if len(segments) != 3 {
		t.Fatalf("expected 3 segments, got %d", len(segments))
	}
	final := updates[len(updates)-1]
	if final.SegmentationProgress != 100 {
		t.Fatalf("final progress = %g", final.SegmentationProgress)
	}
}

func TestSegmentTranscriptEmptyTextFails(t *testing.T) {
	worker := NewWorker(gate.New(nil, time.Minute), &stubTranscriber{}, testScheduler(1), logging.NewNop())
	_, err := worker.SegmentTranscript("", nil, 12, 5, func(Update) {})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
