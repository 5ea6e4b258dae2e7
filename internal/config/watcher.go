package config

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDebounce is how long to wait after the last write before
// reloading, so editors that write in several chunks trigger one reload.
const reloadDebounce = 500 * time.Millisecond

// Watcher watches a scoring config file and delivers reloaded configs to
// a callback. A failed reload keeps the previous config in effect.
type Watcher struct {
	watcher *fsnotify.Watcher
	path    string
	onLoad  func(*ScoringConfig)
}

// NewWatcher creates a file watcher for the scoring config at path.
func NewWatcher(path string, onLoad func(*ScoringConfig)) (*Watcher, error) {
	if path == "" {
		return nil, fmt.Errorf("config watcher needs a path")
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch %q: %w", path, err)
	}
	return &Watcher{watcher: watcher, path: path, onLoad: onLoad}, nil
}

// Run watches for file changes and reloads the config. Blocks until ctx
// is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	var debounce *time.Timer

	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(reloadDebounce, func() {
					cfg, err := LoadScoring(w.path)
					if err != nil {
						fmt.Fprintf(os.Stderr, "scoring config reload failed: %v\n", err)
						return
					}
					w.onLoad(cfg)
				})
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "config watcher error: %v\n", err)
		}
	}
}
