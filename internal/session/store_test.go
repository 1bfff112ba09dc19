package session_test

import (
	"context"
	"testing"

	"clipflow/internal/session"
	"clipflow/internal/testsupport"
)

func TestNewSessionDefaults(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	sess, err := store.NewSession(ctx, "video-1", 42.5)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	if sess.ID == "" {
		t.Fatal("session has no id")
	}
	if sess.Stage != session.StagePending {
		t.Fatalf("stage = %q", sess.Stage)
	}
	if sess.FramesOutstanding != 1 || sess.TranscriptionOutstanding != 1 {
		t.Fatalf("counters = %d/%d, want 1/1", sess.FramesOutstanding, sess.TranscriptionOutstanding)
	}
	if sess.TranscriptionStage != session.TranscriptionIdle {
		t.Fatalf("transcription stage = %q", sess.TranscriptionStage)
	}
}

func TestUpdateRoundTrip(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	sess, err := store.NewSession(ctx, "video-1", 30)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}

	sess.Stage = session.StageProcessing
	sess.TranscriptionStage = session.TranscriptionSegmenting
	sess.PublishAudioSource("audio-1")
	sess.SetExtractionProgress(55)
	sess.Frames = []session.Frame{{Timestamp: 1.5, URL: "https://frames/1.png", Filename: "1.png"}}
	sess.Segments = []session.TranscriptSegment{{StartTime: 0, EndTime: 5, Text: "hi", Confidence: 0.9, ConfidenceSource: session.ConfidenceEstimated}}
	sess.FullTranscript = "hi"
	sess.AppendError(session.SectionFrames, "poll blew up")
	sess.AppendCost(session.CostTranscription, 0.12)
	if err := store.Update(ctx, sess); err != nil {
		t.Fatalf("Update: %v", err)
	}

	loaded, err := store.GetByID(ctx, sess.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if loaded == nil {
		t.Fatal("session missing after update")
	}
	if loaded.Stage != session.StageProcessing || loaded.TranscriptionStage != session.TranscriptionSegmenting {
		t.Fatalf("stages = %q/%q", loaded.Stage, loaded.TranscriptionStage)
	}
	if loaded.AudioSourceHandle != "audio-1" {
		t.Fatalf("audio handle = %q", loaded.AudioSourceHandle)
	}
	if len(loaded.Frames) != 1 || loaded.Frames[0].URL != "https://frames/1.png" {
		t.Fatalf("frames = %+v", loaded.Frames)
	}
	if len(loaded.Segments) != 1 || loaded.Segments[0].ConfidenceSource != session.ConfidenceEstimated {
		t.Fatalf("segments = %+v", loaded.Segments)
	}
	if len(loaded.Errors) != 1 || loaded.Errors[0].Section != session.SectionFrames {
		t.Fatalf("errors = %+v", loaded.Errors)
	}
	if len(loaded.CostEntries) != 1 || loaded.CostEntries[0].Amount != 0.12 {
		t.Fatalf("cost entries = %+v", loaded.CostEntries)
	}
}

func TestGetByIDMissingReturnsNil(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	loaded, err := store.GetByID(context.Background(), "nope")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if loaded != nil {
		t.Fatalf("expected nil for unknown id, got %+v", loaded)
	}
}

func TestListNewestFirst(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	first, err := store.NewSession(ctx, "video-1", 10)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	second, err := store.NewSession(ctx, "video-2", 10)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}

	sessions, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(sessions))
	}
	if sessions[0].ID != second.ID || sessions[1].ID != first.ID {
		t.Fatalf("list order = %s, %s", sessions[0].ID, sessions[1].ID)
	}
}

func TestFailInFlightMarksOnlyActiveSessions(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	active, err := store.NewSession(ctx, "video-1", 10)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	done, err := store.NewSession(ctx, "video-2", 10)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	done.Stage = session.StageCompleted
	if err := store.Update(ctx, done); err != nil {
		t.Fatalf("Update: %v", err)
	}

	n, err := store.FailInFlight(ctx, session.DaemonStopReason)
	if err != nil {
		t.Fatalf("FailInFlight: %v", err)
	}
	if n != 1 {
		t.Fatalf("marked %d sessions, want 1", n)
	}

	reloaded, err := store.GetByID(ctx, active.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if reloaded.Stage != session.StageFailed {
		t.Fatalf("active session stage = %q", reloaded.Stage)
	}
	if len(reloaded.Errors) != 1 || reloaded.Errors[0].Message != session.DaemonStopReason {
		t.Fatalf("errors = %+v", reloaded.Errors)
	}

	untouched, err := store.GetByID(ctx, done.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if untouched.Stage != session.StageCompleted {
		t.Fatalf("completed session stage = %q", untouched.Stage)
	}
}
