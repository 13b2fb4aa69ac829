package store

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"tradelens/internal/logger"

	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 500 * time.Millisecond

// Watch reloads the repository whenever the file at path changes, until ctx
// is done. The parent directory is watched so that editors and exporters
// that replace the file by rename are still seen. Bursts of events within
// debounce collapse into one reload.
func (r *Repository) Watch(ctx context.Context, path string, debounce time.Duration) error {
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	target, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create source watcher failed: %w", err)
	}
	defer w.Close()
	if err := w.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watch %s failed: %w", filepath.Dir(target), err)
	}
	logger.Infof("[store] watching %s for changes", target)

	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case evt, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !relevant(evt, target) {
				continue
			}
			logger.Debugf("[store] source event %s %s", evt.Op, evt.Name)
			fire = time.After(debounce)
		case <-fire:
			fire = nil
			if _, err := r.Reload(ctx); err != nil {
				logger.Warnf("[store] reload after change failed, keeping previous snapshot: %v", err)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warnf("[store] watcher error: %v", err)
		}
	}
}

func relevant(evt fsnotify.Event, target string) bool {
	name, err := filepath.Abs(evt.Name)
	if err != nil || name != target {
		return false
	}
	return evt.Has(fsnotify.Write) || evt.Has(fsnotify.Create) || evt.Has(fsnotify.Rename)
}
