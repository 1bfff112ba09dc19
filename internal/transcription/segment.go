package transcription

import (
	"math"
	"strings"

	"clipflow/internal/services"
	"clipflow/internal/services/speech"
	"clipflow/internal/session"
)

// syntheticConfidence is the score assigned when the upstream transcript
// carries no confidence signal. Segments scored this way are tagged
// ConfidenceEstimated so consumers can tell them apart from measured values.
const syntheticConfidence = 0.9

// FixedSegments splits a transcript into fixed-duration windows covering
// [0, durationSeconds). It always produces ceil(duration/window) segments,
// non-overlapping and contiguous, with the final segment ending exactly at
// durationSeconds.
//
// When the upstream service supplied timed segments, text is allocated by
// segment midpoint: an upstream segment joins the window containing the
// midpoint of its own time range. Otherwise allocation is proportional:
// window i of N receives words [floor(i*W/N), floor((i+1)*W/N)) of the W
// total words, which covers every word exactly once but approximates actual
// speech timing.
func FixedSegments(text string, timed []speech.TimedSegment, durationSeconds, windowSeconds float64) ([]session.TranscriptSegment, error) {
	if durationSeconds <= 0 {
		return nil, services.Wrap(services.ErrValidation, "transcription", "segment", "duration must be positive", nil)
	}
	if windowSeconds <= 0 {
		return nil, services.Wrap(services.ErrValidation, "transcription", "segment", "segment window must be positive", nil)
	}

	count := int(math.Ceil(durationSeconds / windowSeconds))
	if count < 1 {
		count = 1
	}

	if len(timed) > 0 {
		return midpointSegments(timed, durationSeconds, windowSeconds, count), nil
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return nil, services.Wrap(services.ErrValidation, "transcription", "segment", "transcript is empty", nil)
	}
	return proportionalSegments(words, durationSeconds, windowSeconds, count), nil
}

func midpointSegments(timed []speech.TimedSegment, duration, window float64, count int) []session.TranscriptSegment {
	segments := make([]session.TranscriptSegment, 0, count)
	for i := 0; i < count; i++ {
		start := float64(i) * window
		end := start + window
		if i == count-1 {
			end = duration
		}

		var parts []string
		var confidenceSum float64
		var contributors int
		for _, seg := range timed {
			midpoint := (seg.Start + seg.End) / 2
			if midpoint >= start && midpoint < end {
				if trimmed := strings.TrimSpace(seg.Text); trimmed != "" {
					parts = append(parts, trimmed)
				}
				confidenceSum += seg.Confidence
				contributors++
			}
		}

		confidence := 0.0
		if contributors > 0 {
			confidence = confidenceSum / float64(contributors)
		}
		segments = append(segments, session.TranscriptSegment{
			StartTime:        start,
			EndTime:          end,
			Text:             strings.Join(parts, " "),
			Confidence:       confidence,
			ConfidenceSource: session.ConfidenceMeasured,
		})
	}
	return segments
}

func proportionalSegments(words []string, duration, window float64, count int) []session.TranscriptSegment {
	total := len(words)
	segments := make([]session.TranscriptSegment, 0, count)
	for i := 0; i < count; i++ {
		start := float64(i) * window
		end := start + window
		if i == count-1 {
			end = duration
		}

		lo := i * total / count
		hi := (i + 1) * total / count
		segments = append(segments, session.TranscriptSegment{
			StartTime:        start,
			EndTime:          end,
			Text:             strings.Join(words[lo:hi], " "),
			Confidence:       syntheticConfidence,
			ConfidenceSource: session.ConfidenceEstimated,
		})
	}
	return segments
}
