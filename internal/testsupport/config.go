package testsupport

import (
	"path/filepath"
	"testing"

	"clipflow/internal/config"
)

// ConfigOption customizes the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.IngestDir = filepath.Join(base, "ingest")
	cfg.Paths.APIBind = "127.0.0.1:0"
	cfg.FrameGen.BaseURL = "http://framegen.test"
	cfg.FrameGen.APIKey = "test"
	cfg.Speech.BaseURL = "http://speech.test"
	cfg.Speech.APIKey = "test"

	// Tight timings so retry and gate paths run quickly under test.
	cfg.FrameGen.PollIntervalSeconds = 0.01
	cfg.Workflow.RetryDelaySeconds = 0.01
	cfg.Workflow.GatePollSeconds = 0.01
	cfg.Workflow.DependencyWaitSeconds = 0.05

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithMaxAttempts overrides the failure budget on the test config.
func WithMaxAttempts(attempts int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Workflow.MaxAttempts = attempts
	}
}

// WithSegmentWindow overrides the segmentation window on the test config.
func WithSegmentWindow(seconds float64) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Workflow.SegmentWindowSeconds = seconds
	}
}
