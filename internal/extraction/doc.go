// Package extraction drives the remote frame-rendering job for one session:
// submit, poll with retry, report monotonic progress, and publish the audio
// source handle the moment the service exposes it.
package extraction
