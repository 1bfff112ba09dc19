package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"clipflow/internal/api"
	"clipflow/internal/config"
	"clipflow/internal/logging"
	"clipflow/internal/services"
	"clipflow/internal/session"
	"clipflow/internal/transcription"
)

type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	srv := &apiServer{
		bind:   strings.TrimSpace(cfg.Paths.APIBind),
		logger: logging.NewComponentLogger(logger, "api-server"),
		daemon: d,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", srv.handleStatus)
	mux.HandleFunc("/api/shutdown", srv.handleShutdown)
	mux.HandleFunc("/api/sessions", srv.handleSessions)
	mux.HandleFunc("/api/sessions/", srv.handleSession)

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

func (s *apiServer) start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}
	snaps, err := s.daemon.orch.List(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error(), "")
		return
	}
	s.writeJSON(w, http.StatusOK, api.DaemonStatus{
		Running:      s.daemon.Running(),
		PID:          os.Getpid(),
		SessionCount: len(snaps),
		DBPath:       s.daemon.DBPath(),
		LockFilePath: s.daemon.LockPath(),
	})
}

// handleShutdown asks the daemon to stop. The response is written before the
// shutdown begins so the client sees the acknowledgement.
func (s *apiServer) handleShutdown(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]string{"status": "stopping"})
	go s.daemon.RequestStop()
}

func (s *apiServer) handleSessions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		snaps, err := s.daemon.orch.List(r.Context())
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err.Error(), "")
			return
		}
		s.writeJSON(w, http.StatusOK, api.SessionListResponse{Sessions: snaps})
	case http.MethodPost:
		var req api.SubmitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid request body", "")
			return
		}
		snap, err := s.daemon.orch.Begin(r.Context(), req.VideoHandle, req.DurationSeconds)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		s.writeJSON(w, http.StatusCreated, api.SessionResponse{Session: snap})
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed", "")
	}
}

// handleSession routes /api/sessions/{id} and its sub-resources.
func (s *apiServer) handleSession(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/sessions/")
	id, sub, _ := strings.Cut(rest, "/")
	if id == "" {
		s.writeError(w, http.StatusNotFound, "session not found", "")
		return
	}

	switch sub {
	case "":
		if r.Method != http.MethodGet {
			s.writeError(w, http.StatusMethodNotAllowed, "method not allowed", "")
			return
		}
		snap, err := s.daemon.orch.Snapshot(r.Context(), id)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, api.SessionResponse{Session: snap})
	case "transcription":
		s.handleTranscription(w, r, id)
	case "srt":
		s.handleSRT(w, r, id)
	case "retry":
		s.handleRetry(w, r, id)
	case "events":
		s.handleEvents(w, r, id)
	default:
		s.writeError(w, http.StatusNotFound, "unknown resource", "")
	}
}

// handleTranscription implements the transcription status contract: 200 with
// the segmented transcript once it exists, 202 while the session is healthy
// but not done, 500 only for genuine failures. Waiting on the audio
// dependency is an expected condition, never an error.
func (s *apiServer) handleTranscription(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}
	snap, err := s.daemon.orch.Snapshot(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	switch snap.TranscriptionStage {
	case session.TranscriptionCompleted:
		s.writeJSON(w, http.StatusOK, api.TranscriptionResult{
			Success:        true,
			Stage:          api.StageTranscriptionComplete,
			FullTranscript: snap.FullTranscript,
			Segments:       snap.Segments,
			WindowSeconds:  s.daemon.cfg.Workflow.SegmentWindowSeconds,
		})
	case session.TranscriptionFailed:
		s.writeError(w, http.StatusInternalServerError,
			sectionError(snap, session.SectionTranscription), "retry the transcription section or submit the video again")
	case session.TranscriptionAwaitingAudio:
		s.writeJSON(w, http.StatusAccepted, api.TranscriptionPending{
			Status:  api.TranscriptionWaiting,
			Message: snap.WaitingMessage,
			Dependency: &api.Dependency{
				Type:        "audio_source",
				RequiredFor: "transcription",
			},
			EstimatedWaitSeconds: snap.EstimatedWaitSeconds,
			RetryRecommended:     true,
		})
	default:
		s.writeJSON(w, http.StatusAccepted, api.TranscriptionPending{
			Status: api.TranscriptionProcessing,
		})
	}
}

func (s *apiServer) handleSRT(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}
	snap, err := s.daemon.orch.Snapshot(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if snap.TranscriptionStage != session.TranscriptionCompleted {
		s.writeJSON(w, http.StatusAccepted, api.TranscriptionPending{Status: api.TranscriptionProcessing})
		return
	}
	w.Header().Set("Content-Type", "application/x-subrip")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(transcription.FormatSRT(snap.Segments)))
}

func (s *apiServer) handleRetry(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}
	var req api.RetryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body", "")
		return
	}
	section, ok := session.ParseSection(req.Section)
	if !ok {
		s.writeError(w, http.StatusBadRequest, "unknown section "+req.Section, "")
		return
	}
	if err := s.daemon.orch.RetrySection(r.Context(), id, section); err != nil {
		s.writeServiceError(w, err)
		return
	}
	snap, err := s.daemon.orch.Snapshot(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.SessionResponse{Session: snap})
}

// sectionError returns the most recent recorded error for a section.
func sectionError(snap session.Snapshot, section session.Section) string {
	for i := len(snap.Errors) - 1; i >= 0; i-- {
		if snap.Errors[i].Section == section {
			return snap.Errors[i].Message
		}
	}
	return "section failed"
}

func (s *apiServer) writeServiceError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	hint := ""
	switch {
	case errors.Is(err, services.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, services.ErrConfiguration):
		hint = "check service credentials in the configuration file"
	}
	s.writeError(w, status, err.Error(), hint)
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message, hint string) {
	s.writeJSON(w, status, api.ErrorResponse{Status: api.StatusError, Error: message, Hint: hint})
}
