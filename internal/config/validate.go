package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateServices(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateServices() error {
	if c.FrameGen.BaseURL == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/clipflow/config.toml"
		}
		return fmt.Errorf("framegen.base_url is required; edit %s (create with 'clipflow config init')", defaultPath)
	}
	if c.Speech.BaseURL == "" {
		return errors.New("speech.base_url is required")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.SegmentWindowSeconds <= 0 {
		return errors.New("workflow.segment_window_seconds must be positive")
	}
	if c.Workflow.MaxAttempts < 1 {
		return errors.New("workflow.max_attempts must be at least 1")
	}
	if c.Workflow.RetryDelaySeconds <= 0 {
		return errors.New("workflow.retry_delay_seconds must be positive")
	}
	if c.Workflow.GatePollSeconds <= 0 {
		return errors.New("workflow.gate_poll_seconds must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	return nil
}
