package session

import (
	"strings"
	"time"
)

// Stage represents the overall lifecycle of a processing session.
type Stage string

const (
	StagePending    Stage = "pending"
	StageProcessing Stage = "processing"
	StageCompleted  Stage = "completed"
	StageFailed     Stage = "failed"
)

// Section names one of the independent processing paths inside a session.
type Section string

const (
	SectionFrames        Section = "frames"
	SectionTranscription Section = "transcription"
	SectionUpload        Section = "upload"
)

// TranscriptionStage is the state of the two-stage transcription pipeline.
type TranscriptionStage string

const (
	TranscriptionIdle          TranscriptionStage = "idle"
	TranscriptionAwaitingAudio TranscriptionStage = "awaiting_audio"
	TranscriptionGenerating    TranscriptionStage = "generating_transcript"
	TranscriptionSegmenting    TranscriptionStage = "segmenting"
	TranscriptionCompleted     TranscriptionStage = "completed"
	TranscriptionFailed        TranscriptionStage = "failed"
)

// DaemonStopReason is the error message recorded when in-flight sessions are
// failed due to daemon shutdown.
const DaemonStopReason = "Daemon stopped"

// Frame is one rendered still. Immutable once produced.
type Frame struct {
	Timestamp float64 `json:"timestamp"`
	URL       string  `json:"url"`
	Filename  string  `json:"filename"`
}

// ConfidenceSource distinguishes genuine per-segment confidence from the
// synthetic score used when the upstream transcript carries none.
type ConfidenceSource string

const (
	ConfidenceMeasured  ConfidenceSource = "measured"
	ConfidenceEstimated ConfidenceSource = "estimated"
)

// TranscriptSegment is one fixed-duration window of the aligned transcript.
type TranscriptSegment struct {
	StartTime        float64          `json:"start_time"`
	EndTime          float64          `json:"end_time"`
	Text             string           `json:"text"`
	Confidence       float64          `json:"confidence"`
	ConfidenceSource ConfidenceSource `json:"confidence_source"`
}

// ErrorRecord is an append-only entry in the session's error list. Waiting
// conditions are never recorded here.
type ErrorRecord struct {
	Section   Section   `json:"section"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// CostSource identifies which operation incurred a cost.
type CostSource string

const (
	CostFrameExtraction CostSource = "frame_extraction"
	CostTranscription   CostSource = "transcription"
)

// CostEntry is one append-only cost line; the total is a fold over entries.
type CostEntry struct {
	Source CostSource `json:"source"`
	Amount float64    `json:"amount"`
}

// Session is one end-to-end processing attempt for a single uploaded video.
// It is owned exclusively by the orchestrator's session loop; everything else
// sees immutable snapshots.
type Session struct {
	ID                       string
	VideoHandle              string
	DurationSeconds          float64
	Stage                    Stage
	FramesOutstanding        int
	TranscriptionOutstanding int
	AudioSourceHandle        string
	ExtractionProgress       float64
	TranscriptionStage       TranscriptionStage
	SegmentationProgress     float64
	WaitingMessage           string
	EstimatedWaitSeconds     float64
	FullTranscript           string
	Frames                   []Frame
	Segments                 []TranscriptSegment
	Errors                   []ErrorRecord
	CostEntries              []CostEntry
	CreatedAt                time.Time
	UpdatedAt                time.Time
}

// PublishAudioSource records the audio handle exactly once. Subsequent calls
// are no-ops, preserving the set-at-most-once invariant.
func (s *Session) PublishAudioSource(handle string) bool {
	handle = strings.TrimSpace(handle)
	if handle == "" || s.AudioSourceHandle != "" {
		return false
	}
	s.AudioSourceHandle = handle
	return true
}

// SetExtractionProgress advances extraction progress monotonically.
func (s *Session) SetExtractionProgress(percent float64) {
	if percent > 100 {
		percent = 100
	}
	if percent > s.ExtractionProgress {
		s.ExtractionProgress = percent
	}
}

// AppendError records a terminal failure for a section.
func (s *Session) AppendError(section Section, message string) {
	s.Errors = append(s.Errors, ErrorRecord{
		Section:   section,
		Message:   strings.TrimSpace(message),
		Timestamp: time.Now().UTC(),
	})
}

// AppendCost records one cost entry.
func (s *Session) AppendCost(source CostSource, amount float64) {
	s.CostEntries = append(s.CostEntries, CostEntry{Source: source, Amount: amount})
}

// SetWaiting surfaces a waiting-for-dependency status. This is informational
// state, deliberately separate from the error list.
func (s *Session) SetWaiting(message string, estimateSeconds float64) {
	s.WaitingMessage = strings.TrimSpace(message)
	s.EstimatedWaitSeconds = estimateSeconds
}

// ClearWaiting removes any waiting status.
func (s *Session) ClearWaiting() {
	s.WaitingMessage = ""
	s.EstimatedWaitSeconds = 0
}

// Terminal reports whether the session reached a final stage.
func (s *Session) Terminal() bool {
	return s.Stage == StageCompleted || s.Stage == StageFailed
}

// ParseSection converts a string into a known Section.
func ParseSection(value string) (Section, bool) {
	switch Section(strings.ToLower(strings.TrimSpace(value))) {
	case SectionFrames:
		return SectionFrames, true
	case SectionTranscription:
		return SectionTranscription, true
	case SectionUpload:
		return SectionUpload, true
	default:
		return "", false
	}
}
