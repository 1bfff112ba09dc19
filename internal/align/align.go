package align

import (
	"sort"

	"clipflow/internal/session"
)

// AlignedSegment pairs one frame with the transcript segment covering its
// timestamp. It is handed to the downstream analysis collaborator and never
// persisted by the orchestrator.
type AlignedSegment struct {
	Timestamp float64                   `json:"timestamp"`
	Frame     session.Frame             `json:"frame"`
	Segment   session.TranscriptSegment `json:"transcript_segment"`
}

// Index pairs frames with transcript segments by timestamp window. A frame
// belongs to the segment whose [start, end) window contains its timestamp;
// frames outside every window pair with the nearest segment. Inputs are not
// modified; output is ordered by frame timestamp.
func Index(frames []session.Frame, segments []session.TranscriptSegment) []AlignedSegment {
	if len(frames) == 0 || len(segments) == 0 {
		return nil
	}

	ordered := append([]session.Frame(nil), frames...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Timestamp < ordered[j].Timestamp })

	aligned := make([]AlignedSegment, 0, len(ordered))
	for _, frame := range ordered {
		aligned = append(aligned, AlignedSegment{
			Timestamp: frame.Timestamp,
			Frame:     frame,
			Segment:   segmentFor(frame.Timestamp, segments),
		})
	}
	return aligned
}

func segmentFor(ts float64, segments []session.TranscriptSegment) session.TranscriptSegment {
	idx := sort.Search(len(segments), func(i int) bool { return segments[i].EndTime > ts })
	if idx >= len(segments) {
		return segments[len(segments)-1]
	}
	if ts < segments[idx].StartTime {
		// Gap before this segment: pick whichever edge is closer.
		if idx == 0 {
			return segments[0]
		}
		prev := segments[idx-1]
		if ts-prev.EndTime <= segments[idx].StartTime-ts {
			return prev
		}
	}
	return segments[idx]
}
