package session

import (
	"math"
	"testing"
)

func TestPublishAudioSourceSetOnce(t *testing.T) {
	sess := &Session{}
	if !sess.PublishAudioSource("audio-1") {
		t.Fatal("first publish must succeed")
	}
	if sess.PublishAudioSource("audio-2") {
		t.Fatal("second publish must be a no-op")
	}
	if sess.AudioSourceHandle != "audio-1" {
		t.Fatalf("handle = %q", sess.AudioSourceHandle)
	}
	if sess.PublishAudioSource("  ") {
		t.Fatal("blank handle must never publish")
	}
}

func TestSetExtractionProgressMonotonic(t *testing.T) {
	sess := &Session{}
	sess.SetExtractionProgress(40)
	sess.SetExtractionProgress(25)
	if sess.ExtractionProgress != 40 {
		t.Fatalf("progress regressed to %g", sess.ExtractionProgress)
	}
	sess.SetExtractionProgress(150)
	if sess.ExtractionProgress != 100 {
		t.Fatalf("progress exceeded 100: %g", sess.ExtractionProgress)
	}
}

func TestSnapshotFoldsCosts(t *testing.T) {
	sess := &Session{}
	sess.AppendCost(CostFrameExtraction, 0.25)
	sess.AppendCost(CostTranscription, 0.10)
	sess.AppendCost(CostTranscription, 0.05)

	snap := sess.Snapshot()
	if math.Abs(snap.TotalCost-0.40) > 1e-9 {
		t.Fatalf("TotalCost = %g", snap.TotalCost)
	}
	if math.Abs(snap.Costs[string(CostTranscription)]-0.15) > 1e-9 {
		t.Fatalf("transcription cost = %g", snap.Costs[string(CostTranscription)])
	}
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	sess := &Session{
		Frames:   []Frame{{Timestamp: 1, URL: "f"}},
		Segments: []TranscriptSegment{{Text: "hello"}},
	}
	snap := sess.Snapshot()
	snap.Frames[0].URL = "mutated"
	snap.Segments[0].Text = "mutated"
	if sess.Frames[0].URL != "f" || sess.Segments[0].Text != "hello" {
		t.Fatal("snapshot shares backing arrays with the session")
	}
}

func TestWaitingStateNeverTouchesErrors(t *testing.T) {
	sess := &Session{}
	sess.SetWaiting("waiting for audio", 12)
	if len(sess.Errors) != 0 {
		t.Fatal("waiting recorded an error")
	}
	sess.ClearWaiting()
	if sess.WaitingMessage != "" || sess.EstimatedWaitSeconds != 0 {
		t.Fatal("waiting state not cleared")
	}
}

func TestParseSection(t *testing.T) {
	if section, ok := ParseSection(" Frames "); !ok || section != SectionFrames {
		t.Fatalf("ParseSection(Frames) = %q, %v", section, ok)
	}
	if _, ok := ParseSection("bogus"); ok {
		t.Fatal("unknown section accepted")
	}
}
