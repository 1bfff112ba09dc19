package main

import (
	"context"
	"fmt"
	"time"

	"clipflow/internal/config"
	"clipflow/internal/daemon"
	"clipflow/internal/ingest"
	"clipflow/internal/logging"
	"clipflow/internal/orchestrator"
	"clipflow/internal/services/framegen"
	"clipflow/internal/services/speech"
	"clipflow/internal/session"
)

// bootstrap wires the full daemon graph: config, logging, store, service
// clients, orchestrator, and the optional ingest watcher.
func bootstrap(configPath string) (*daemon.Daemon, func(), error) {
	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("validate config: %w", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, nil, fmt.Errorf("ensure directories: %w", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("init logging: %w", err)
	}

	store, err := session.Open(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("open session store: %w", err)
	}

	frames, err := framegen.New(cfg.FrameGen.BaseURL, cfg.FrameGen.APIKey, secondsToDuration(cfg.FrameGen.RequestTimeout))
	if err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("frame service client: %w", err)
	}
	speechClient, err := speech.New(cfg.Speech.BaseURL, cfg.Speech.APIKey, cfg.Speech.Model, secondsToDuration(cfg.Speech.RequestTimeout))
	if err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("speech service client: %w", err)
	}

	orch := orchestrator.New(cfg, store, frames, speechClient, logger)

	var watcher *ingest.Watcher
	if cfg.Ingest.Enabled {
		watcher = ingest.New(cfg, frames, orch, logger)
	}

	d, err := daemon.New(cfg, store, orch, watcher, logger)
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	if err := d.Start(context.Background()); err != nil {
		store.Close()
		return nil, nil, err
	}

	cleanup := func() {
		_ = d.Close()
	}
	return d, cleanup, nil
}

func secondsToDuration(seconds int) time.Duration {
	return time.Duration(seconds) * time.Second
}
