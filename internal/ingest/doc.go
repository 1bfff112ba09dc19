// Package ingest watches a drop directory for finished video files, probes
// them locally, uploads them, and starts processing sessions.
package ingest
