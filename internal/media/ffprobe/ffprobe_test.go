package ffprobe

import (
	"context"
	"testing"
)

const sampleOutput = `{
  "streams": [
    {"index": 0, "codec_name": "h264", "codec_type": "video"},
    {"index": 1, "codec_name": "aac", "codec_type": "audio", "duration": "125.4"}
  ],
  "format": {
    "filename": "clip.mp4",
    "duration": "125.433000",
    "format_name": "mov,mp4,m4a,3gp,3g2,mj2"
  }
}`

func TestParseSampleOutput(t *testing.T) {
	result, err := Parse([]byte(sampleOutput))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got := result.DurationSeconds(); got != 125.433 {
		t.Fatalf("DurationSeconds = %g", got)
	}
	if !result.HasAudio() {
		t.Fatal("audio stream not detected")
	}
	if result.Format.Filename != "clip.mp4" {
		t.Fatalf("filename = %q", result.Format.Filename)
	}
}

func TestParseRejectsBadJSON(t *testing.T) {
	if _, err := Parse([]byte("not json")); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestDurationSecondsHandlesMissingAndBadValues(t *testing.T) {
	cases := map[string]string{
		"empty":    "",
		"garbage":  "n/a",
		"negative": "-3.5",
	}
	for name, value := range cases {
		t.Run(name, func(t *testing.T) {
			r := Result{Format: Format{Duration: value}}
			if got := r.DurationSeconds(); got != 0 {
				t.Fatalf("DurationSeconds = %g, want 0", got)
			}
		})
	}
}

func TestHasAudioFalseForVideoOnly(t *testing.T) {
	r := Result{Streams: []Stream{{CodecType: "video"}}}
	if r.HasAudio() {
		t.Fatal("video-only container reported audio")
	}
}

func TestInspectRejectsEmptyPath(t *testing.T) {
	if _, err := Inspect(context.Background(), "ffprobe", "  "); err == nil {
		t.Fatal("expected error for empty path")
	}
}
