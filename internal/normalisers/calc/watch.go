package calc

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// ReloadFunc receives the outcome of each reload attempt.
// err is nil when the new table was applied.
type ReloadFunc func(t *Table, err error)

// Watch reloads the normaliser's table whenever the file at path changes.
// The parent directory is watched so editors that replace the file by
// rename are picked up. Invalid tables are reported and the active table
// is kept. Watch blocks until ctx is done.
func Watch(ctx context.Context, path string, n *Normaliser, onReload ReloadFunc) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	path = filepath.Clean(path)
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != path || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			t, err := LoadTableFile(path)
			if err == nil {
				err = n.Reload(t)
			}
			if onReload != nil {
				onReload(t, err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			if onReload != nil {
				onReload(nil, err)
			}
		}
	}
}
