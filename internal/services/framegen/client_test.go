package framegen_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"clipflow/internal/services"
	"clipflow/internal/services/framegen"
)

func newClient(t *testing.T, handler http.Handler) *framegen.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := framegen.New(server.URL, "test-key", 5*time.Second)
	if err != nil {
		t.Fatalf("framegen.New: %v", err)
	}
	return client
}

func TestSubmitReturnsJobID(t *testing.T) {
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/jobs" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Fatalf("authorization header = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"job_id":"job-42"}`))
	}))

	jobID, err := client.Submit(context.Background(), "video-1")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if jobID != "job-42" {
		t.Fatalf("job id = %q", jobID)
	}
}

func TestSubmitEmptyHandleIsValidationError(t *testing.T) {
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("request must not reach the service")
	}))
	_, err := client.Submit(context.Background(), "  ")
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestPollSurfacesAudioHandleWhilePending(t *testing.T) {
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/jobs/job-42" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"pending","progress":35,"audio_source_handle":"audio-9"}`))
	}))

	result, err := client.Poll(context.Background(), "job-42")
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if result.Status != framegen.JobPending {
		t.Fatalf("status = %q", result.Status)
	}
	if result.AudioSourceHandle != "audio-9" {
		t.Fatalf("audio handle = %q", result.AudioSourceHandle)
	}
	if result.Progress != 35 {
		t.Fatalf("progress = %g", result.Progress)
	}
}

func TestPollReadyCarriesFramesAndCost(t *testing.T) {
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ready","progress":100,"cost":0.42,` +
			`"frames":[{"timestamp":1.5,"url":"https://cdn/1.png","filename":"1.png"}]}`))
	}))

	result, err := client.Poll(context.Background(), "job-42")
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if result.Status != framegen.JobReady || result.Cost != 0.42 {
		t.Fatalf("result = %+v", result)
	}
	if len(result.Frames) != 1 || result.Frames[0].Timestamp != 1.5 {
		t.Fatalf("frames = %+v", result.Frames)
	}
}

func TestPollUnknownStatusRejected(t *testing.T) {
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"exploded"}`))
	}))
	if _, err := client.Poll(context.Background(), "job-42"); !errors.Is(err, services.ErrExternalService) {
		t.Fatalf("expected external service error, got %v", err)
	}
}

func TestStatusCodeMapping(t *testing.T) {
	cases := []struct {
		code   int
		marker error
	}{
		{http.StatusUnauthorized, services.ErrConfiguration},
		{http.StatusForbidden, services.ErrConfiguration},
		{http.StatusNotFound, services.ErrNotFound},
		{http.StatusUnprocessableEntity, services.ErrValidation},
		{http.StatusTooManyRequests, services.ErrExternalService},
		{http.StatusInternalServerError, services.ErrTransient},
	}
	for _, tc := range cases {
		client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.code)
		}))
		_, err := client.Poll(context.Background(), "job-42")
		if !errors.Is(err, tc.marker) {
			t.Fatalf("status %d mapped to %v", tc.code, err)
		}
	}
}

func TestProbeAudioOK(t *testing.T) {
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			t.Fatalf("probe must be HEAD, got %s", r.Method)
		}
		w.WriteHeader(http.StatusOK)
	}))
	if err := client.ProbeAudio(context.Background(), "audio-9"); err != nil {
		t.Fatalf("ProbeAudio: %v", err)
	}
}

func TestProbeAudioGoneIsNotFound(t *testing.T) {
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	if err := client.ProbeAudio(context.Background(), "audio-9"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not-found, got %v", err)
	}
}

func TestUploadReturnsHandle(t *testing.T) {
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/uploads" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		if _, _, err := r.FormFile("video"); err != nil {
			t.Fatalf("missing video part: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"video_handle":"video-7"}`))
	}))

	path := filepath.Join(t.TempDir(), "clip.mp4")
	if err := os.WriteFile(path, []byte("not really a video"), 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	handle, err := client.Upload(context.Background(), path)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if handle != "video-7" {
		t.Fatalf("handle = %q", handle)
	}
}
