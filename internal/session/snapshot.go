package session

import "time"

// Snapshot is the plain serializable view of a session read by the UI and the
// HTTP API. It is a value copy; mutating it never touches the owned record.
type Snapshot struct {
	ID                       string              `json:"id"`
	VideoHandle              string              `json:"video_handle"`
	DurationSeconds          float64             `json:"duration_seconds"`
	Stage                    Stage               `json:"stage"`
	FramesOutstanding        int                 `json:"frames_outstanding"`
	TranscriptionOutstanding int                 `json:"transcription_outstanding"`
	AudioSourceHandle        string              `json:"audio_source_handle,omitempty"`
	ExtractionProgress       float64             `json:"extraction_progress"`
	TranscriptionStage       TranscriptionStage  `json:"transcription_stage"`
	SegmentationProgress     float64             `json:"segmentation_progress"`
	WaitingMessage           string              `json:"waiting_message,omitempty"`
	EstimatedWaitSeconds     float64             `json:"estimated_wait_seconds,omitempty"`
	FullTranscript           string              `json:"full_transcript,omitempty"`
	Frames                   []Frame             `json:"frames,omitempty"`
	Segments                 []TranscriptSegment `json:"segments,omitempty"`
	Errors                   []ErrorRecord       `json:"errors"`
	Costs                    map[string]float64  `json:"costs"`
	TotalCost                float64             `json:"total_cost"`
	CreatedAt                time.Time           `json:"created_at"`
	UpdatedAt                time.Time           `json:"updated_at"`
}

// Snapshot produces an immutable copy of the session for readers.
func (s *Session) Snapshot() Snapshot {
	snap := Snapshot{
		ID:                       s.ID,
		VideoHandle:              s.VideoHandle,
		DurationSeconds:          s.DurationSeconds,
		Stage:                    s.Stage,
		FramesOutstanding:        s.FramesOutstanding,
		TranscriptionOutstanding: s.TranscriptionOutstanding,
		AudioSourceHandle:        s.AudioSourceHandle,
		ExtractionProgress:       s.ExtractionProgress,
		TranscriptionStage:       s.TranscriptionStage,
		SegmentationProgress:     s.SegmentationProgress,
		WaitingMessage:           s.WaitingMessage,
		EstimatedWaitSeconds:     s.EstimatedWaitSeconds,
		FullTranscript:           s.FullTranscript,
		Frames:                   append([]Frame(nil), s.Frames...),
		Segments:                 append([]TranscriptSegment(nil), s.Segments...),
		Errors:                   append([]ErrorRecord(nil), s.Errors...),
		Costs:                    make(map[string]float64, 2),
		CreatedAt:                s.CreatedAt,
		UpdatedAt:                s.UpdatedAt,
	}
	if snap.Errors == nil {
		snap.Errors = []ErrorRecord{}
	}
	for _, entry := range s.CostEntries {
		snap.Costs[string(entry.Source)] += entry.Amount
		snap.TotalCost += entry.Amount
	}
	return snap
}
