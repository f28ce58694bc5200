package app

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	mdlog "mdedit/internal/log"
)

const previewDebounce = 150 * time.Millisecond

// fileWatcher reports debounced changes to a single file. It watches the
// parent directory so editors that save by rename are still seen.
type fileWatcher struct {
	fsWatcher *fsnotify.Watcher
	path      string
	debounce  time.Duration
	onChange  chan struct{}
	errs      chan error
	done      chan struct{}
}

func newFileWatcher(path string, debounce time.Duration) (*fileWatcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}
	return &fileWatcher{
		fsWatcher: fsw,
		path:      filepath.Clean(path),
		debounce:  debounce,
		onChange:  make(chan struct{}, 1),
		errs:      make(chan error, 1),
		done:      make(chan struct{}),
	}, nil
}

// Start begins watching and returns the change channel.
func (w *fileWatcher) Start() (<-chan struct{}, error) {
	dir := filepath.Dir(w.path)
	if err := w.fsWatcher.Add(dir); err != nil {
		return nil, fmt.Errorf("watching directory %s: %w", dir, err)
	}
	go w.loop()
	return w.onChange, nil
}

func (w *fileWatcher) Stop() error {
	close(w.done)
	return w.fsWatcher.Close()
}

func (w *fileWatcher) loop() {
	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if !w.isRelevant(event) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			select {
			case w.onChange <- struct{}{}:
			default:
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			select {
			case w.errs <- err:
			default:
			}

		case <-w.done:
			if timer != nil {
				timer.Stop()
			}
			return
		}
	}
}

func (w *fileWatcher) isRelevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return false
	}
	return filepath.Clean(event.Name) == w.path
}

// watchPreview redraws the preview of path on every change until ctx ends.
func (a *App) watchPreview(ctx context.Context, path string) error {
	w, err := newFileWatcher(path, previewDebounce)
	if err != nil {
		return err
	}
	defer w.Stop()
	changes, err := w.Start()
	if err != nil {
		return err
	}

	logger := mdlog.For(a.log, mdlog.CatHost)
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-w.errs:
			logger.Warn("watch error", "path", path, "err", err)
		case <-changes:
			if err := a.previewFile(path); err != nil {
				logger.Warn("preview failed", "path", path, "err", err)
			}
		}
	}
}
