// Package speech is the HTTP client for the remote speech-to-text service.
package speech
