package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/QuesmaOrg/demo-webr-ggplot/logging"
)

// defaultDebounce collapses the burst of events an editor save produces.
const defaultDebounce = 300 * time.Millisecond

// watchFiles calls onChange with the path of every file in paths that was
// written or recreated, at most once per debounce window. It blocks until
// ctx is done.
func watchFiles(ctx context.Context, paths []string, debounce time.Duration, log *logging.Logger, onChange func(path string)) error {
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// Editors often replace files, so the parent directories are watched.
	watched := make(map[string]string, len(paths))
	dirs := make(map[string]bool)
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return err
		}
		watched[abs] = p
		dir := filepath.Dir(abs)
		if dirs[dir] {
			continue
		}
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
		dirs[dir] = true
	}

	pending := make(map[string]time.Time)
	ticker := time.NewTicker(debounce / 4)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			abs, err := filepath.Abs(event.Name)
			if err != nil {
				continue
			}
			if _, ok := watched[abs]; ok {
				pending[abs] = time.Now()
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn("file watcher error", "error", err)

		case now := <-ticker.C:
			for abs, last := range pending {
				if now.Sub(last) < debounce {
					continue
				}
				delete(pending, abs)
				onChange(watched[abs])
			}
		}
	}
}
