package tracker

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/tagtracker/internal/models"
)

const debounce = 200 * time.Millisecond

// RunCallback is called after every watcher-driven run.
type RunCallback func(snap *Snapshot, err error)

// Watch runs the service once, then watches the search root and re-runs
// after changes settle until ctx is cancelled. Files the runs generate
// themselves are ignored. cb, if non-nil, receives every run's outcome.
//
// New directories created at runtime are added to the watch list.
func Watch(ctx context.Context, svc *Service, logger *slog.Logger, cb RunCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	root := svc.Root()
	if err := addDirsRecursive(w, root); err != nil {
		return err
	}

	run := func() {
		snap, err := svc.Run(ctx)
		if err != nil && ctx.Err() == nil {
			logger.Error("watcher: run failed", slog.String("error", err.Error()))
		}
		if cb != nil && ctx.Err() == nil {
			cb(snap, err)
		}
	}
	run()

	logger.Info("watcher: started", slog.String("root", root))

	var timer *time.Timer
	var timerCh <-chan time.Time
	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(debounce)
			timerCh = timer.C
		} else {
			timer.Reset(debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-timerCh:
			run()

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			rel, relErr := filepath.Rel(root, ev.Name)
			if relErr != nil || ignored(rel) {
				continue
			}

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, ev.Name); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", ev.Name),
							slog.String("error", addErr.Error()))
					} else {
						logger.Debug("watcher: watching new dir", slog.String("path", ev.Name))
					}
					if !svc.Latest().Generated(rel) {
						schedule()
					}
					continue
				}
			}

			if !relevant(rel) || svc.Latest().Generated(rel) {
				continue
			}
			logger.Debug("watcher: change", slog.String("path", rel), slog.String("op", ev.Op.String()))
			schedule()

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// relevant reports whether a change to rel can alter a report: markdown
// documents and JSON state files such as the Obsidian workspace.
func relevant(rel string) bool {
	ext := strings.ToLower(filepath.Ext(rel))
	return ext == models.DocExt || ext == ".json"
}

func ignored(rel string) bool {
	for _, seg := range strings.Split(filepath.ToSlash(rel), "/") {
		if seg == ".git" {
			return true
		}
	}
	return false
}

// addDirsRecursive adds root and all its subdirectories, except
// version-control metadata, to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() && path != root {
				return fs.SkipDir
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if d.Name() == ".git" {
			return fs.SkipDir
		}
		return w.Add(path)
	})
}
