package gate

import (
	"context"
	"errors"
	"time"

	"clipflow/internal/services"
	"clipflow/internal/session"
)

// State is the tri-state outcome of a dependency check.
type State int

const (
	Ready State = iota
	NotYetReady
	Failed
)

// Status is a first-class result value, never an error. NotYetReady carries a
// wait estimate; Failed carries the definitive cause.
type Status struct {
	State         State
	Handle        string
	EstimatedWait time.Duration
	Cause         error
}

// AudioProber performs the read-only reachability probe against the remote
// service. framegen.Client satisfies it.
type AudioProber interface {
	ProbeAudio(ctx context.Context, audioHandle string) error
}

// Gate evaluates whether the audio source is reachable for transcription.
// Check is cheap and repeatable; it is the unit polled by the retry scheduler.
type Gate struct {
	prober       AudioProber
	fallbackWait time.Duration
}

// New constructs a gate. fallbackWait is the estimate reported when there is
// no extraction progress signal to derive one from.
func New(prober AudioProber, fallbackWait time.Duration) *Gate {
	if fallbackWait <= 0 {
		fallbackWait = 30 * time.Second
	}
	return &Gate{prober: prober, fallbackWait: fallbackWait}
}

// Check evaluates the precondition "is the audio source reachable" against a
// session snapshot. It has no side effects beyond the read-only probe.
func (g *Gate) Check(ctx context.Context, snap session.Snapshot) Status {
	if snap.AudioSourceHandle == "" {
		return Status{State: NotYetReady, EstimatedWait: g.estimate(snap.ExtractionProgress)}
	}

	if g.prober != nil {
		if err := g.prober.ProbeAudio(ctx, snap.AudioSourceHandle); err != nil {
			if transient(err) {
				// The handle exists but the service is momentarily
				// unreachable; that is a wait, not a failure.
				return Status{State: NotYetReady, EstimatedWait: g.fallbackWait}
			}
			return Status{State: Failed, Cause: err}
		}
	}
	return Status{State: Ready, Handle: snap.AudioSourceHandle}
}

// estimate derives a wait hint from remaining extraction progress: the closer
// extraction is to publishing the audio handle, the shorter the estimate.
func (g *Gate) estimate(progress float64) time.Duration {
	if progress <= 0 || progress >= 100 {
		return g.fallbackWait
	}
	remaining := time.Duration(float64(g.fallbackWait) * (100 - progress) / 100)
	if remaining < time.Second {
		remaining = time.Second
	}
	return remaining
}

func transient(err error) bool {
	return errors.Is(err, services.ErrTransient) || errors.Is(err, services.ErrTimeout)
}
