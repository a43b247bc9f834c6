package index

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// EventCallback is called for each path whose document became visible.
// kind is "added" or "replaced".
type EventCallback func(kind string, path string)

// DefaultCommitDelay is the quiet period after which watched additions
// are committed.
const DefaultCommitDelay = 500 * time.Millisecond

// Watch observes root with fsnotify and ingests created or written files
// until ctx is cancelled. Additions are committed once no new event has
// arrived for commitDelay. Removals are not tracked; a rename is handled
// through the Create event fsnotify delivers for the destination.
func Watch(ctx context.Context, c *Crawler, root string, commitDelay time.Duration, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, root); err != nil {
		return err
	}
	if commitDelay <= 0 {
		commitDelay = DefaultCommitDelay
	}

	logger.Info("watcher: started", slog.String("root", root))

	var commitTimer *time.Timer
	var commitCh <-chan time.Time
	pending := make(map[string]string)

	scheduleCommit := func() {
		if commitTimer == nil {
			commitTimer = time.NewTimer(commitDelay)
			commitCh = commitTimer.C
		} else {
			commitTimer.Reset(commitDelay)
		}
	}

	ingest := func(path string) {
		out, err := c.Ingest(path)
		if err != nil {
			logger.Error("watcher: index failed", slog.String("path", path), slog.String("error", err.Error()))
			return
		}
		switch out {
		case OutcomeAdded:
			pending[path] = "added"
			scheduleCommit()
		case OutcomeReplaced:
			pending[path] = "replaced"
			scheduleCommit()
		case OutcomeFailed:
			logger.Warn("watcher: extract failed", slog.String("path", path))
		}
	}

	flush := func() {
		if len(pending) == 0 {
			return
		}
		if _, err := c.idx.Commit(); err != nil {
			logger.Error("watcher: commit failed", slog.String("error", err.Error()))
			return
		}
		for path, kind := range pending {
			logger.Debug("watcher: indexed", slog.String("path", path), slog.String("op", kind))
			if cb != nil {
				cb(kind, path)
			}
		}
		clear(pending)
	}

	for {
		select {
		case <-ctx.Done():
			if commitTimer != nil {
				commitTimer.Stop()
			}
			flush()
			logger.Info("watcher: stopped")
			return nil

		case <-commitCh:
			flush()

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			path := ev.Name

			switch {
			case ev.Op&fsnotify.Create != 0:
				if info, statErr := os.Stat(path); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, path); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", path),
							slog.String("error", addErr.Error()))
					} else {
						logger.Debug("watcher: watching new dir", slog.String("path", path))
					}
					_ = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
						if err == nil && !d.IsDir() && c.ext.Supported(p) {
							ingest(p)
						}
						return nil
					})
					continue
				}
				if c.ext.Supported(path) {
					ingest(path)
				}

			case ev.Op&fsnotify.Write != 0:
				if c.ext.Supported(path) {
					ingest(path)
				}

			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				logger.Debug("watcher: ignoring", slog.String("path", path), slog.String("op", ev.Op.String()))
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
