package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeFrameGen()
	c.normalizeSpeech()
	c.normalizeWorkflow()
	c.normalizeIngest()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = ExpandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = ExpandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.IngestDir) == "" {
		c.Paths.IngestDir = defaultIngestDir
	}
	if c.Paths.IngestDir, err = ExpandPath(c.Paths.IngestDir); err != nil {
		return fmt.Errorf("paths.ingest_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	return nil
}

func (c *Config) normalizeFrameGen() {
	c.FrameGen.BaseURL = strings.TrimRight(strings.TrimSpace(c.FrameGen.BaseURL), "/")
	if c.FrameGen.APIKey == "" {
		if value, ok := os.LookupEnv("CLIPFLOW_FRAMEGEN_API_KEY"); ok {
			c.FrameGen.APIKey = value
		}
	}
	if c.FrameGen.PollIntervalSeconds <= 0 {
		c.FrameGen.PollIntervalSeconds = defaultFrameGenPollSeconds
	}
	if c.FrameGen.RequestTimeout <= 0 {
		c.FrameGen.RequestTimeout = defaultFrameGenTimeout
	}
}

func (c *Config) normalizeSpeech() {
	c.Speech.BaseURL = strings.TrimRight(strings.TrimSpace(c.Speech.BaseURL), "/")
	if c.Speech.APIKey == "" {
		if value, ok := os.LookupEnv("CLIPFLOW_SPEECH_API_KEY"); ok {
			c.Speech.APIKey = value
		}
	}
	if strings.TrimSpace(c.Speech.Model) == "" {
		c.Speech.Model = defaultSpeechModel
	}
	if c.Speech.RequestTimeout <= 0 {
		c.Speech.RequestTimeout = defaultSpeechTimeout
	}
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.SegmentWindowSeconds <= 0 {
		c.Workflow.SegmentWindowSeconds = defaultSegmentWindowSeconds
	}
	if c.Workflow.MaxAttempts <= 0 {
		c.Workflow.MaxAttempts = defaultMaxAttempts
	}
	if c.Workflow.RetryDelaySeconds <= 0 {
		c.Workflow.RetryDelaySeconds = defaultRetryDelaySeconds
	}
	if c.Workflow.DependencyWaitSeconds <= 0 {
		c.Workflow.DependencyWaitSeconds = defaultDependencyWaitSeconds
	}
	if c.Workflow.GatePollSeconds <= 0 {
		c.Workflow.GatePollSeconds = defaultGatePollSeconds
	}
}

func (c *Config) normalizeIngest() {
	if c.Ingest.SettleSeconds <= 0 {
		c.Ingest.SettleSeconds = defaultIngestSettleSeconds
	}
	if strings.TrimSpace(c.Ingest.FFprobeBinary) == "" {
		c.Ingest.FFprobeBinary = defaultFFprobeBinary
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
