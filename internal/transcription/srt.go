package transcription

import (
	"fmt"
	"strings"

	"clipflow/internal/session"
)

// FormatSRT renders fixed segments as an SRT document.
func FormatSRT(segments []session.TranscriptSegment) string {
	var b strings.Builder
	for i, seg := range segments {
		fmt.Fprintf(&b, "%d\n", i+1)
		fmt.Fprintf(&b, "%s --> %s\n", srtTimestamp(seg.StartTime), srtTimestamp(seg.EndTime))
		b.WriteString(seg.Text)
		b.WriteString("\n\n")
	}
	return b.String()
}

func srtTimestamp(seconds float64) string {
	hours := int(seconds) / 3600
	minutes := (int(seconds) % 3600) / 60
	secs := seconds - float64(hours*3600+minutes*60)
	return fmt.Sprintf("%02d:%02d:%06.3f", hours, minutes, secs)
}
