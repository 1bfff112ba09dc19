// Package api defines the JSON wire types shared by the daemon's HTTP
// surface and the CLI client.
package api

import (
	"time"

	"clipflow/internal/session"
)

// DaemonStatus reports daemon runtime information.
type DaemonStatus struct {
	Running      bool   `json:"running"`
	PID          int    `json:"pid"`
	SessionCount int    `json:"session_count"`
	DBPath       string `json:"db_path"`
	LockFilePath string `json:"lock_file_path"`
}

// SubmitRequest starts processing for an uploaded video.
type SubmitRequest struct {
	VideoHandle     string  `json:"video_handle"`
	DurationSeconds float64 `json:"duration_seconds"`
}

// RetryRequest names the section to retry.
type RetryRequest struct {
	Section string `json:"section"`
}

// SessionResponse wraps a single session snapshot.
type SessionResponse struct {
	Session session.Snapshot `json:"session"`
}

// SessionListResponse wraps the full session listing, newest first.
type SessionListResponse struct {
	Sessions []session.Snapshot `json:"sessions"`
}

// TranscriptionStatus values returned by the transcription endpoint when the
// transcript is not ready yet.
const (
	TranscriptionWaiting    = "waiting_for_dependency"
	TranscriptionProcessing = "processing"
)

// StatusError marks every error payload, so callers can branch on a typed
// discriminator as well as the response code.
const StatusError = "error"

// StageTranscriptionComplete discriminates the successful transcription
// payload.
const StageTranscriptionComplete = "transcription_complete"

// Dependency names the artifact a waiting operation is blocked on.
type Dependency struct {
	Type        string `json:"type"`
	RequiredFor string `json:"required_for"`
}

// TranscriptionPending is the 202 payload: the transcript does not exist yet
// but nothing is wrong.
type TranscriptionPending struct {
	Success              bool        `json:"success"`
	Status               string      `json:"status"`
	Message              string      `json:"message,omitempty"`
	Dependency           *Dependency `json:"dependency,omitempty"`
	EstimatedWaitSeconds float64     `json:"estimated_wait_seconds,omitempty"`
	RetryRecommended     bool        `json:"retry_recommended,omitempty"`
}

// TranscriptionResult is the 200 payload once segmentation has finished.
type TranscriptionResult struct {
	Success        bool                        `json:"success"`
	Stage          string                      `json:"stage"`
	FullTranscript string                      `json:"full_transcript"`
	Segments       []session.TranscriptSegment `json:"segments"`
	WindowSeconds  float64                     `json:"window_seconds"`
}

// ErrorResponse is the uniform error payload. Hint carries remediation text
// when the failure maps to a known cause.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Status  string `json:"status"`
	Error   string `json:"error"`
	Hint    string `json:"hint,omitempty"`
}

// Event is one websocket message on the session event stream.
type Event struct {
	Timestamp time.Time        `json:"timestamp"`
	Session   session.Snapshot `json:"session"`
}
