package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"clipflow/internal/config"
	"clipflow/internal/ingest"
	"clipflow/internal/logging"
	"clipflow/internal/orchestrator"
	"clipflow/internal/session"
)

// Daemon coordinates the orchestrator, the HTTP surface, and the optional
// ingest watcher, and enforces single-instance execution.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *session.Store
	orch    *orchestrator.Orchestrator
	watcher *ingest.Watcher
	api     *apiServer

	lockPath string
	lock     *flock.Flock

	running      atomic.Bool
	ctx          context.Context
	cancel       context.CancelFunc
	stopRequests chan struct{}
}

// New constructs a daemon with initialized dependencies. The ingest watcher
// is optional.
func New(cfg *config.Config, store *session.Store, orch *orchestrator.Orchestrator, watcher *ingest.Watcher, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || orch == nil || logger == nil {
		return nil, errors.New("daemon requires config, store, orchestrator, and logger")
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "clipflowd.lock")
	d := &Daemon{
		cfg:          cfg,
		logger:       logging.NewComponentLogger(logger, "daemon"),
		store:        store,
		orch:         orch,
		watcher:      watcher,
		lockPath:     lockPath,
		lock:         flock.New(lockPath),
		stopRequests: make(chan struct{}, 1),
	}
	d.api = newAPIServer(cfg, d, logger)
	return d, nil
}

// Start acquires the daemon lock and launches the orchestrator, the API
// server, and the ingest watcher.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another clipflow daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if err := d.orch.Start(d.ctx); err != nil {
		d.releaseLock()
		d.cancel()
		d.ctx, d.cancel = nil, nil
		return fmt.Errorf("start orchestrator: %w", err)
	}
	if err := d.api.start(d.ctx); err != nil {
		d.orch.Stop()
		d.releaseLock()
		d.cancel()
		d.ctx, d.cancel = nil, nil
		return fmt.Errorf("start api server: %w", err)
	}
	if d.watcher != nil {
		if err := d.watcher.Start(d.ctx); err != nil {
			d.api.stop()
			d.orch.Stop()
			d.releaseLock()
			d.cancel()
			d.ctx, d.cancel = nil, nil
			return fmt.Errorf("start ingest watcher: %w", err)
		}
	}

	d.running.Store(true)
	d.logger.Info("clipflow daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop shuts everything down and marks sessions that were still in flight as
// failed so restarts never resume half-written state.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if d.watcher != nil {
		d.watcher.Stop()
	}
	d.api.stop()
	d.orch.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if n, err := d.store.FailInFlight(shutdownCtx, session.DaemonStopReason); err != nil {
		d.logger.Warn("failed to mark in-flight sessions", logging.Error(err))
	} else if n > 0 {
		d.logger.Info("marked in-flight sessions failed", logging.Int("count", int(n)))
	}

	d.releaseLock()
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("clipflow daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	return d.store.Close()
}

// RequestStop asks the process hosting the daemon to shut down. It never
// blocks; duplicate requests collapse into one.
func (d *Daemon) RequestStop() {
	select {
	case d.stopRequests <- struct{}{}:
	default:
	}
}

// StopRequested signals remote shutdown requests to the host process.
func (d *Daemon) StopRequested() <-chan struct{} {
	return d.stopRequests
}

// Running reports whether the daemon has started.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// DBPath returns the session database location.
func (d *Daemon) DBPath() string {
	return d.store.Path()
}

// LockPath returns the single-instance lock file location.
func (d *Daemon) LockPath() string {
	return d.lockPath
}

func (d *Daemon) releaseLock() {
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
}
