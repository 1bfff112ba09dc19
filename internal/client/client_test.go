package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"clipflow/internal/api"
	"clipflow/internal/session"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return New(strings.TrimPrefix(server.URL, "http://"))
}

func writeJSON(t *testing.T, w http.ResponseWriter, status int, payload any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		t.Errorf("encode: %v", err)
	}
}

func TestSubmitRoundTrip(t *testing.T) {
	cli := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/sessions" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var req api.SubmitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		if req.VideoHandle != "video-1" || req.DurationSeconds != 42 {
			t.Errorf("request = %+v", req)
		}
		writeJSON(t, w, http.StatusCreated, api.SessionResponse{
			Session: session.Snapshot{ID: "abc", VideoHandle: "video-1"},
		})
	}))

	snap, err := cli.Submit(context.Background(), "video-1", 42)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if snap.ID != "abc" {
		t.Fatalf("snapshot = %+v", snap)
	}
}

func TestTranscriptionCompleted(t *testing.T) {
	cli := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, api.TranscriptionResult{
			Success:        true,
			Stage:          api.StageTranscriptionComplete,
			FullTranscript: "hello",
			Segments: []session.TranscriptSegment{
				{StartTime: 0, EndTime: 5, Text: "hello"},
			},
			WindowSeconds: 5,
		})
	}))

	result, pending, err := cli.Transcription(context.Background(), "abc")
	if err != nil {
		t.Fatalf("Transcription: %v", err)
	}
	if pending != nil {
		t.Fatalf("pending = %+v", pending)
	}
	if result.FullTranscript != "hello" || len(result.Segments) != 1 {
		t.Fatalf("result = %+v", result)
	}
}

func TestTranscriptionWaiting(t *testing.T) {
	cli := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusAccepted, api.TranscriptionPending{
			Status:               api.TranscriptionWaiting,
			Message:              "waiting for audio track extraction to complete",
			EstimatedWaitSeconds: 12,
		})
	}))

	result, pending, err := cli.Transcription(context.Background(), "abc")
	if err != nil {
		t.Fatalf("Transcription: %v", err)
	}
	if result != nil {
		t.Fatalf("result = %+v", result)
	}
	if pending.Status != api.TranscriptionWaiting || pending.EstimatedWaitSeconds != 12 {
		t.Fatalf("pending = %+v", pending)
	}
}

func TestTranscriptionFailureCarriesHint(t *testing.T) {
	cli := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusInternalServerError, api.ErrorResponse{
			Error: "speech transcribe: model unavailable",
			Hint:  "retry the transcription section or submit the video again",
		})
	}))

	_, _, err := cli.Transcription(context.Background(), "abc")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v", err)
	}
	if apiErr.StatusCode != http.StatusInternalServerError || apiErr.Hint == "" {
		t.Fatalf("apiErr = %+v", apiErr)
	}
	if !strings.Contains(apiErr.Error(), "retry the transcription section") {
		t.Fatalf("Error() = %q", apiErr.Error())
	}
}

func TestSRTPendingAndReady(t *testing.T) {
	ready := false
	cli := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !ready {
			writeJSON(t, w, http.StatusAccepted, api.TranscriptionPending{Status: api.TranscriptionProcessing})
			return
		}
		w.Header().Set("Content-Type", "application/x-subrip")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("1\n00:00:00.000 --> 00:00:05.000\nhello\n\n"))
	}))

	_, pending, err := cli.SRT(context.Background(), "abc")
	if err != nil {
		t.Fatalf("SRT: %v", err)
	}
	if pending == nil || pending.Status != api.TranscriptionProcessing {
		t.Fatalf("pending = %+v", pending)
	}

	ready = true
	body, pending, err := cli.SRT(context.Background(), "abc")
	if err != nil {
		t.Fatalf("SRT: %v", err)
	}
	if pending != nil {
		t.Fatalf("pending = %+v", pending)
	}
	if !strings.HasPrefix(body, "1\n00:00:00.000") {
		t.Fatalf("body = %q", body)
	}
}

func TestDaemonUnreachable(t *testing.T) {
	cli := New("127.0.0.1:1")
	_, err := cli.Status(context.Background())
	if err == nil || !strings.Contains(err.Error(), "daemon unreachable") {
		t.Fatalf("err = %v", err)
	}
}

func TestDecodeErrorFallsBackToStatusLine(t *testing.T) {
	cli := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "plain text failure", http.StatusBadGateway)
	}))

	_, err := cli.List(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v", err)
	}
	if apiErr.StatusCode != http.StatusBadGateway || apiErr.Message == "" {
		t.Fatalf("apiErr = %+v", apiErr)
	}
}
