// Package transcription implements the two-stage transcription pipeline:
// remote transcript generation gated on audio availability, then
// deterministic segmentation into fixed-duration windows, plus SRT export.
package transcription
