package speech_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"clipflow/internal/services"
	"clipflow/internal/services/speech"
)

func newClient(t *testing.T, handler http.Handler) *speech.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := speech.New(server.URL, "test-key", "whisper-1", 5*time.Second)
	if err != nil {
		t.Fatalf("speech.New: %v", err)
	}
	return client
}

func TestTranscribeSendsHandleAndModel(t *testing.T) {
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/transcriptions" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var req map[string]string
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req["audio_source_handle"] != "audio-1" || req["model"] != "whisper-1" {
			t.Fatalf("request body = %v", req)
		}
		w.Write([]byte(`{"text":"hello world","cost":0.03,` +
			`"segments":[{"start":0,"end":2,"text":"hello world","confidence":0.97}]}`))
	}))

	result, err := client.Transcribe(context.Background(), "audio-1")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if result.Text != "hello world" || result.Cost != 0.03 {
		t.Fatalf("result = %+v", result)
	}
	if len(result.Segments) != 1 || result.Segments[0].Confidence != 0.97 {
		t.Fatalf("segments = %+v", result.Segments)
	}
}

func TestTranscribeEmptyTranscriptRejected(t *testing.T) {
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"text":"  "}`))
	}))
	if _, err := client.Transcribe(context.Background(), "audio-1"); !errors.Is(err, services.ErrExternalService) {
		t.Fatalf("expected external service error, got %v", err)
	}
}

func TestTranscribeAuthFailureIsConfiguration(t *testing.T) {
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	if _, err := client.Transcribe(context.Background(), "audio-1"); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestTranscribeServerErrorIsTransient(t *testing.T) {
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	if _, err := client.Transcribe(context.Background(), "audio-1"); !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient error, got %v", err)
	}
}

func TestTranscribeEmptyHandleIsValidation(t *testing.T) {
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("request must not reach the service")
	}))
	if _, err := client.Transcribe(context.Background(), ""); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
