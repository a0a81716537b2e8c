// Package watch re-runs a callback when files under a directory tree
// change, debouncing bursts of events.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce is the quiet period after the last event before the
// callback runs.
const DefaultDebounce = 500 * time.Millisecond

// Watcher watches a directory tree recursively.
type Watcher struct {
	root     string
	exclude  []string
	debounce time.Duration
	logger   *zap.Logger

	fs *fsnotify.Watcher

	mu      sync.Mutex
	timer   *time.Timer
	pending chan struct{}
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithExclude skips directories with any of the given names. Hidden
// directories are always skipped.
func WithExclude(names ...string) Option {
	return func(w *Watcher) { w.exclude = append(w.exclude, names...) }
}

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

// New creates a Watcher for root and registers every directory below it.
func New(root string, opts ...Option) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}
	w := &Watcher{
		root:     filepath.Clean(root),
		debounce: DefaultDebounce,
		logger:   zap.NewNop(),
		fs:       fsw,
		pending:  make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(w)
	}
	if err := w.addRecursive(w.root); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

// Run blocks until ctx is done, calling onChange once per debounced burst
// of events. onChange runs on the calling goroutine, so calls never
// overlap. An error from onChange is logged and watching continues.
func (w *Watcher) Run(ctx context.Context, onChange func(context.Context) error) error {
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fs.Events:
			if !ok {
				return fmt.Errorf("watch: events channel closed")
			}
			if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) {
				continue
			}
			if w.excluded(event.Name) {
				continue
			}
			w.logger.Debug("file event", zap.String("op", event.Op.String()), zap.String("path", event.Name))

			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addRecursive(event.Name); err != nil {
						w.logger.Warn("watch new directory failed", zap.String("path", event.Name), zap.Error(err))
					}
				}
			}
			w.schedule()

		case err, ok := <-w.fs.Errors:
			if !ok {
				return fmt.Errorf("watch: errors channel closed")
			}
			w.logger.Error("watcher error", zap.Error(err))

		case <-w.pending:
			if err := onChange(ctx); err != nil {
				w.logger.Error("change handler failed", zap.Error(err))
			}
		}
	}
}

// schedule restarts the debounce timer.
func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		select {
		case w.pending <- struct{}{}:
		default:
		}
	})
}

// Close stops the debounce timer and releases the watches.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	return w.fs.Close()
}

// excluded reports whether path lies in a hidden or excluded directory
// below the root.
func (w *Watcher) excluded(path string) bool {
	rel, err := filepath.Rel(w.root, path)
	if err != nil || rel == "." {
		return false
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	for _, dir := range parts {
		if w.skipDir(dir) {
			return true
		}
	}
	return false
}

func (w *Watcher) skipDir(name string) bool {
	if strings.HasPrefix(name, ".") && name != "." && name != ".." {
		return true
	}
	for _, x := range w.exclude {
		if name == x {
			return true
		}
	}
	return false
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root && w.excluded(path) {
			return filepath.SkipDir
		}
		if err := w.fs.Add(path); err != nil {
			return fmt.Errorf("watch: adding %s: %w", path, err)
		}
		return nil
	})
}
