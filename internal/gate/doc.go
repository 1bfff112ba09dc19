// Package gate decides whether transcription's audio prerequisite is
// available, returning ready / not-yet / failed as a value rather than
// abusing the error channel for an expected condition.
package gate
