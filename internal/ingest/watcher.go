package ingest

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"clipflow/internal/config"
	"clipflow/internal/logging"
	"clipflow/internal/media/ffprobe"
	"clipflow/internal/session"
)

// Uploader pushes a local file to the frame-rendering service and returns
// the remote video handle. framegen.Client satisfies it.
type Uploader interface {
	Upload(ctx context.Context, path string) (string, error)
}

// Beginner starts a processing session for an uploaded video.
// orchestrator.Orchestrator satisfies it.
type Beginner interface {
	Begin(ctx context.Context, videoHandle string, durationSeconds float64) (session.Snapshot, error)
}

var videoExtensions = map[string]struct{}{
	".mp4":  {},
	".mov":  {},
	".mkv":  {},
	".webm": {},
	".avi":  {},
}

// Watcher monitors the ingest directory and starts a session for every video
// file dropped into it. Files are picked up only after write activity has
// settled, so half-copied files are never uploaded.
type Watcher struct {
	dir      string
	settle   time.Duration
	ffprobe  string
	uploader Uploader
	beginner Beginner
	logger   *slog.Logger

	mu        sync.Mutex
	pending   map[string]*time.Timer
	processed map[string]struct{}

	watcher *fsnotify.Watcher
	cancel  context.CancelFunc
	done    chan struct{}
}

// New constructs an ingest watcher from configuration.
func New(cfg *config.Config, uploader Uploader, beginner Beginner, logger *slog.Logger) *Watcher {
	return &Watcher{
		dir:       cfg.Paths.IngestDir,
		settle:    time.Duration(cfg.Ingest.SettleSeconds) * time.Second,
		ffprobe:   cfg.Ingest.FFprobeBinary,
		uploader:  uploader,
		beginner:  beginner,
		logger:    logging.NewComponentLogger(logger, "ingest"),
		pending:   make(map[string]*time.Timer),
		processed: make(map[string]struct{}),
	}
}

// Start begins watching the ingest directory. Files already present at
// startup are scheduled as if they had just been written.
func (w *Watcher) Start(ctx context.Context) error {
	if w.dir == "" {
		return errors.New("ingest directory not configured")
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fw.Add(w.dir); err != nil {
		fw.Close()
		return err
	}
	w.watcher = fw

	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})

	entries, err := os.ReadDir(w.dir)
	if err == nil {
		for _, entry := range entries {
			if !entry.IsDir() {
				w.schedule(runCtx, filepath.Join(w.dir, entry.Name()))
			}
		}
	}

	go w.loop(runCtx)
	w.logger.Info("ingest watcher started", logging.String("dir", w.dir))
	return nil
}

// Stop halts the watcher and cancels pending settle timers.
func (w *Watcher) Stop() {
	if w.cancel == nil {
		return
	}
	w.cancel()
	w.cancel = nil
	_ = w.watcher.Close()
	<-w.done

	w.mu.Lock()
	for path, timer := range w.pending {
		timer.Stop()
		delete(w.pending, path)
	}
	w.mu.Unlock()
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.done)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				w.schedule(ctx, event.Name)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", logging.Error(err))
		}
	}
}

// schedule arms (or re-arms) the settle timer for a path. Every write resets
// the countdown, so the file is ingested only once it stops changing.
func (w *Watcher) schedule(ctx context.Context, path string) {
	ext := strings.ToLower(filepath.Ext(path))
	if _, ok := videoExtensions[ext]; !ok {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, done := w.processed[path]; done {
		return
	}
	if timer, ok := w.pending[path]; ok {
		timer.Reset(w.settle)
		return
	}
	w.pending[path] = time.AfterFunc(w.settle, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.processed[path] = struct{}{}
		w.mu.Unlock()
		w.ingest(ctx, path)
	})
}

func (w *Watcher) ingest(ctx context.Context, path string) {
	if ctx.Err() != nil {
		return
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return
	}

	probe, err := ffprobe.Inspect(ctx, w.ffprobe, path)
	if err != nil {
		w.logger.Error("probe failed", logging.String("file", path), logging.Error(err))
		return
	}
	duration := probe.DurationSeconds()
	if duration <= 0 {
		w.logger.Error("file has no usable duration", logging.String("file", path))
		return
	}
	if !probe.HasAudio() {
		w.logger.Warn("file has no audio track; transcription will wait indefinitely",
			logging.String("file", path))
	}

	handle, err := w.uploader.Upload(ctx, path)
	if err != nil {
		w.logger.Error("upload failed", logging.String("file", path), logging.Error(err))
		return
	}
	snap, err := w.beginner.Begin(ctx, handle, duration)
	if err != nil {
		w.logger.Error("session start failed", logging.String("file", path), logging.Error(err))
		return
	}
	w.logger.Info("file ingested",
		logging.String("file", path),
		logging.String(logging.FieldSessionID, snap.ID),
		logging.Float64("duration_seconds", duration),
		logging.String(logging.FieldEventType, "file_ingested"),
	)
}
