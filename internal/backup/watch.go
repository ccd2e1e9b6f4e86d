package backup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WatchConfig configures the auto-backup loop.
type WatchConfig struct {
	// Paths are the directories whose changes mark the store dirty,
	// typically the data directory and the asset root. Not recursive.
	Paths []string

	// Dir receives AutoBackup_*.svdata files. Events under Dir are ignored.
	Dir string

	// MaxBackups is passed to PruneAutoBackups after every backup.
	MaxBackups int

	// Interval between dirty checks. Default: 30m
	Interval time.Duration

	// OnBackup is called after each backup attempt.
	OnBackup func(res *ExportResult, err error)
}

// Watcher takes an automatic backup on every tick when the watched
// directories changed since the previous backup.
type Watcher struct {
	engine  *Engine
	config  WatchConfig
	watcher *fsnotify.Watcher

	mu    sync.Mutex
	dirty bool

	// Events before quietUntil come from our own backup (audit rows land
	// in the database) and are dropped.
	quietUntil time.Time
}

// NewWatcher creates a watcher and registers its paths. A store without
// any automatic backup yet starts dirty.
func (e *Engine) NewWatcher(config WatchConfig) (*Watcher, error) {
	if strings.TrimSpace(config.Dir) == "" {
		return nil, fmt.Errorf("backup directory is required")
	}
	if config.Interval <= 0 {
		config.Interval = 30 * time.Minute
	}
	if abs, err := filepath.Abs(config.Dir); err == nil {
		config.Dir = abs
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}

	w := &Watcher{
		engine:  e,
		config:  config,
		watcher: fsWatcher,
		dirty:   !hasAutoBackup(config.Dir),
	}
	for _, p := range config.Paths {
		if abs, err := filepath.Abs(p); err == nil {
			p = abs
		}
		if err := os.MkdirAll(p, 0755); err != nil {
			e.logger.Warn("failed to create directory for watching", "dir", p, "error", err)
			continue
		}
		if err := fsWatcher.Add(p); err != nil {
			e.logger.Warn("failed to add watch", "path", p, "error", err)
			continue
		}
		e.logger.Debug("watching directory", "path", p)
	}
	return w, nil
}

// Watch runs a Watcher until ctx is cancelled.
func (e *Engine) Watch(ctx context.Context, config WatchConfig) error {
	w, err := e.NewWatcher(config)
	if err != nil {
		return err
	}
	return w.Run(ctx)
}

// Dirty reports whether a change has been seen since the last backup.
func (w *Watcher) Dirty() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.dirty
}

// Run blocks until ctx is cancelled, then releases the fsnotify watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	logger := w.engine.logger
	logger.Info("auto backup watcher started",
		"dir", w.config.Dir,
		"interval", w.config.Interval.String(),
		"max", w.config.MaxBackups)

	for {
		select {
		case <-ctx.Done():
			logger.Info("auto backup watcher stopped")
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if w.ignored(event.Name) || event.Op == fsnotify.Chmod {
				continue
			}
			if time.Now().Before(w.quietUntil) {
				continue
			}
			w.mu.Lock()
			w.dirty = true
			w.mu.Unlock()
			logger.Debug("store changed", "path", event.Name, "op", event.Op.String())

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("fsnotify error", "error", err)

		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *Watcher) tick(ctx context.Context) {
	if !w.Dirty() {
		return
	}
	logger := w.engine.logger

	res, err := w.engine.AutoBackup(ctx, w.config.Dir)
	if err == nil {
		w.mu.Lock()
		w.dirty = false
		w.mu.Unlock()
		logger.Info("auto backup written", "path", res.Path, "size", res.Size)

		removed, pruneErr := PruneAutoBackups(w.config.Dir, w.config.MaxBackups)
		if pruneErr != nil {
			logger.Warn("prune auto backups failed", "error", pruneErr)
		}
		for _, p := range removed {
			logger.Debug("removed old auto backup", "path", p)
		}
	} else {
		logger.Error("auto backup failed", "error", err)
	}

	w.quietUntil = time.Now().Add(w.settle())
	if w.config.OnBackup != nil {
		w.config.OnBackup(res, err)
	}
}

func (w *Watcher) settle() time.Duration {
	if d := w.config.Interval / 2; d < 2*time.Second {
		return d
	}
	return 2 * time.Second
}

// ignored reports whether path lives under the backup directory.
func (w *Watcher) ignored(path string) bool {
	rel, err := filepath.Rel(w.config.Dir, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

func hasAutoBackup(dir string) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}
	for _, entry := range entries {
		if !entry.IsDir() && autoBackupName.MatchString(entry.Name()) {
			return true
		}
	}
	return false
}
