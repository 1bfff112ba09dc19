// Package orchestrator coordinates the per-session pipeline: frame
// extraction and transcription run concurrently, a single event loop owns
// every session mutation, and completion fires downstream alignment.
package orchestrator
