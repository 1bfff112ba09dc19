// Package framegen is the HTTP client for the remote frame-rendering service:
// submit a video handle, poll the job to completion, probe the demuxed audio
// track, and upload local files.
package framegen
