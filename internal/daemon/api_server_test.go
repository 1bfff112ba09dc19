package daemon

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"clipflow/internal/api"
	"clipflow/internal/logging"
	"clipflow/internal/orchestrator"
	"clipflow/internal/services"
	"clipflow/internal/services/framegen"
	"clipflow/internal/services/speech"
	"clipflow/internal/testsupport"
)

type scriptedFrames struct {
	mu      sync.Mutex
	release bool
}

func (f *scriptedFrames) Submit(context.Context, string) (string, error) {
	return "job-1", nil
}

func (f *scriptedFrames) Poll(context.Context, string) (framegen.PollResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.release {
		return framegen.PollResult{Status: framegen.JobPending, Progress: 15}, nil
	}
	return framegen.PollResult{
		Status: framegen.JobReady, Progress: 100,
		AudioSourceHandle: "audio-1",
		Frames:            []framegen.Frame{{Timestamp: 3, URL: "https://cdn/3.png", Filename: "3.png"}},
	}, nil
}

func (f *scriptedFrames) ProbeAudio(context.Context, string) error { return nil }

func (f *scriptedFrames) allow() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.release = true
}

type scriptedSpeech struct {
	result speech.Result
	err    error
}

func (s *scriptedSpeech) Transcribe(context.Context, string) (speech.Result, error) {
	return s.result, s.err
}

func newTestAPI(t *testing.T, frames orchestrator.FrameService, speechSvc *scriptedSpeech) (*httptest.Server, *Daemon) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	orch := orchestrator.New(cfg, store, frames, speechSvc, logging.NewNop())
	if err := orch.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(orch.Stop)

	d, err := New(cfg, store, orch, nil, logging.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	server := httptest.NewServer(d.api.server.Handler)
	t.Cleanup(server.Close)
	return server, d
}

func submitSession(t *testing.T, server *httptest.Server) string {
	t.Helper()
	body, _ := json.Marshal(api.SubmitRequest{VideoHandle: "video-1", DurationSeconds: 10})
	resp, err := http.Post(server.URL+"/api/sessions", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("submit status = %d", resp.StatusCode)
	}
	var created api.SessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return created.Session.ID
}

// getJSON fetches a URL and decodes the body into out, returning the status.
func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

// pollUntil keeps fetching url until check accepts the status code, failing
// the test at the deadline.
func pollUntil(t *testing.T, url string, timeout time.Duration, check func(status int, body []byte) bool) []byte {
	t.Helper()
	deadline := time.Now().Add(timeout)
	var last []byte
	for time.Now().Before(deadline) {
		resp, err := http.Get(url)
		if err != nil {
			t.Fatalf("GET %s: %v", url, err)
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		last = body
		if check(resp.StatusCode, body) {
			return body
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timeout polling %s; last body: %s", url, last)
	return nil
}

func TestTranscriptionEndpointContract(t *testing.T) {
	frames := &scriptedFrames{}
	server, _ := newTestAPI(t, frames, &scriptedSpeech{result: speech.Result{Text: "hello from the video"}})

	id := submitSession(t, server)
	url := server.URL + "/api/sessions/" + id + "/transcription"

	// While the audio dependency is unmet the endpoint reports 202 with the
	// waiting status, never an error.
	body := pollUntil(t, url, 5*time.Second, func(status int, body []byte) bool {
		if status != http.StatusAccepted {
			return false
		}
		var pending api.TranscriptionPending
		if err := json.Unmarshal(body, &pending); err != nil {
			return false
		}
		return pending.Status == api.TranscriptionWaiting
	})
	var pending api.TranscriptionPending
	if err := json.Unmarshal(body, &pending); err != nil {
		t.Fatalf("decode pending: %v", err)
	}
	if pending.Success {
		t.Fatal("waiting payload must not claim success")
	}
	if pending.Message == "" || pending.EstimatedWaitSeconds <= 0 {
		t.Fatalf("waiting payload incomplete: %+v", pending)
	}
	if pending.Dependency == nil || pending.Dependency.Type != "audio_source" {
		t.Fatalf("dependency = %+v", pending.Dependency)
	}
	if !pending.RetryRecommended {
		t.Fatal("waiting response must recommend retry")
	}

	frames.allow()
	body = pollUntil(t, url, 5*time.Second, func(status int, _ []byte) bool {
		return status == http.StatusOK
	})
	var result api.TranscriptionResult
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if !result.Success || result.Stage != api.StageTranscriptionComplete {
		t.Fatalf("success payload missing discriminators: %+v", result)
	}
	if result.FullTranscript != "hello from the video" || len(result.Segments) == 0 {
		t.Fatalf("result = %+v", result)
	}

	resp, err := http.Get(server.URL + "/api/sessions/" + id + "/srt")
	if err != nil {
		t.Fatalf("GET srt: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("srt status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/x-subrip" {
		t.Fatalf("srt content type = %q", ct)
	}
	srt, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(srt), " --> ") {
		t.Fatalf("srt body = %q", srt)
	}
}

func TestTranscriptionFailureReturns500WithHint(t *testing.T) {
	frames := &scriptedFrames{}
	frames.allow()
	svcErr := services.Wrap(services.ErrExternalService, "speech", "transcribe", "model unavailable", nil)
	server, _ := newTestAPI(t, frames, &scriptedSpeech{err: svcErr})

	id := submitSession(t, server)
	url := server.URL + "/api/sessions/" + id + "/transcription"

	body := pollUntil(t, url, 5*time.Second, func(status int, _ []byte) bool {
		return status == http.StatusInternalServerError
	})
	var errResp api.ErrorResponse
	if err := json.Unmarshal(body, &errResp); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if errResp.Success || errResp.Status != api.StatusError {
		t.Fatalf("error payload missing discriminators: %+v", errResp)
	}
	if !strings.Contains(errResp.Error, "model unavailable") {
		t.Fatalf("error = %q", errResp.Error)
	}
	if errResp.Hint == "" {
		t.Fatal("failure response must carry a recovery hint")
	}
}

func TestUnknownSessionIs404(t *testing.T) {
	server, _ := newTestAPI(t, &scriptedFrames{}, &scriptedSpeech{})
	for _, path := range []string{
		"/api/sessions/nope",
		"/api/sessions/nope/transcription",
		"/api/sessions/nope/srt",
	} {
		var errResp api.ErrorResponse
		if status := getJSON(t, server.URL+path, &errResp); status != http.StatusNotFound {
			t.Fatalf("%s status = %d", path, status)
		}
	}
}

func TestSubmitValidation(t *testing.T) {
	server, _ := newTestAPI(t, &scriptedFrames{}, &scriptedSpeech{})

	body, _ := json.Marshal(api.SubmitRequest{VideoHandle: "video-1", DurationSeconds: -3})
	resp, err := http.Post(server.URL+"/api/sessions", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("negative duration status = %d", resp.StatusCode)
	}

	resp, err = http.Post(server.URL+"/api/sessions", "application/json", strings.NewReader("{not json"))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("malformed body status = %d", resp.StatusCode)
	}
}

func TestRetryUnknownSectionIs400(t *testing.T) {
	frames := &scriptedFrames{}
	frames.allow()
	server, _ := newTestAPI(t, frames, &scriptedSpeech{result: speech.Result{Text: "ok"}})
	id := submitSession(t, server)

	body, _ := json.Marshal(api.RetryRequest{Section: "bogus"})
	resp, err := http.Post(server.URL+"/api/sessions/"+id+"/retry", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var errResp api.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.Contains(errResp.Error, "bogus") {
		t.Fatalf("error = %q", errResp.Error)
	}
}

func TestShutdownAcknowledgesBeforeStopping(t *testing.T) {
	server, d := newTestAPI(t, &scriptedFrames{}, &scriptedSpeech{})

	resp, err := http.Post(server.URL+"/api/shutdown", "application/json", nil)
	if err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	select {
	case <-d.StopRequested():
	case <-time.After(time.Second):
		t.Fatal("stop request not delivered")
	}
}

func TestStatusReportsSessionCount(t *testing.T) {
	frames := &scriptedFrames{}
	frames.allow()
	server, _ := newTestAPI(t, frames, &scriptedSpeech{result: speech.Result{Text: "ok"}})
	submitSession(t, server)
	submitSession(t, server)

	var status api.DaemonStatus
	if code := getJSON(t, server.URL+"/api/status", &status); code != http.StatusOK {
		t.Fatalf("status code = %d", code)
	}
	if status.SessionCount != 2 {
		t.Fatalf("session count = %d", status.SessionCount)
	}
	if status.DBPath == "" || status.LockFilePath == "" {
		t.Fatalf("paths missing: %+v", status)
	}
}
