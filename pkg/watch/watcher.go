// Package watch turns files dropped into a folder into scan requests.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/qrdecryptor/qrdecryptor/pkg/errors"
	"github.com/qrdecryptor/qrdecryptor/pkg/security"
)

// DefaultDebounce is how long a file must stay quiet before it is handled
const DefaultDebounce = 300 * time.Millisecond

var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
	".bmp":  true,
	".tif":  true,
	".tiff": true,
}

var partialSuffixes = []string{"~", ".tmp", ".part", ".crdownload", ".swp"}

// Handler is called once per settled dropped file, one call at a time
type Handler func(ctx context.Context, path string)

// Watcher watches a single directory for new image files
type Watcher struct {
	dir       string
	debounce  time.Duration
	validator *security.Validator
	handle    Handler

	mu     sync.Mutex
	timers map[string]*time.Timer
	ready  chan string
	done   chan struct{}
}

// New creates a watcher on dir. validator may be nil.
func New(dir string, debounce time.Duration, validator *security.Validator, handle Handler) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		dir:       dir,
		debounce:  debounce,
		validator: validator,
		handle:    handle,
		timers:    make(map[string]*time.Timer),
		ready:     make(chan string, 16),
	}
}

// IsCandidate reports whether name looks like a finished image file
func IsCandidate(name string) bool {
	base := filepath.Base(name)
	if base == "" || strings.HasPrefix(base, ".") {
		return false
	}
	lower := strings.ToLower(base)
	for _, suffix := range partialSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return false
		}
	}
	return imageExtensions[filepath.Ext(lower)]
}

// Run watches until ctx is done. Files are handled in the order they settle.
func (w *Watcher) Run(ctx context.Context) error {
	dir, err := filepath.Abs(w.dir)
	if err != nil {
		return errors.Wrap(err, "failed to resolve watch dir")
	}
	w.dir = dir

	info, err := os.Stat(w.dir)
	if err != nil {
		return errors.Wrap(err, "failed to stat watch dir")
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", w.dir)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "failed to create watcher")
	}
	defer func() {
		_ = watcher.Close()
	}()

	if err := watcher.Add(w.dir); err != nil {
		return errors.Wrapf(err, "failed to watch %s", w.dir)
	}

	w.mu.Lock()
	w.done = make(chan struct{})
	w.mu.Unlock()

	slog.Info("watch_started", "dir", w.dir, "debounce", w.debounce)
	defer w.stopTimers()

	for {
		select {
		case <-ctx.Done():
			slog.Info("watch_stopped", "dir", w.dir)
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return fmt.Errorf("watcher channel closed")
			}
			if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) {
				w.schedule(event.Name)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher error channel closed")
			}
			slog.Warn("watch_error", "dir", w.dir, "error", err)

		case path := <-w.ready:
			w.dispatch(ctx, path)
		}
	}
}

// schedule (re)starts the quiet-period timer for path
func (w *Watcher) schedule(path string) {
	if !IsCandidate(path) {
		slog.Debug("watch_ignored", "path", path)
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.timers[path]; ok {
		t.Stop()
	}
	done := w.done
	w.timers[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()

		select {
		case w.ready <- path:
		case <-done:
		}
	})
}

func (w *Watcher) dispatch(ctx context.Context, path string) {
	if err := w.validate(path); err != nil {
		slog.Warn("watch_rejected", "path", path, "error", err)
		return
	}

	slog.Info("watch_file_dropped", "path", path)
	w.handle(ctx, path)
}

func (w *Watcher) validate(path string) error {
	info, err := os.Lstat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	if w.validator == nil {
		return nil
	}
	if err := w.validator.ValidatePath(w.dir, path); err != nil {
		return err
	}
	return w.validator.ValidateSymlink(w.dir, path)
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	close(w.done)
	for path, t := range w.timers {
		t.Stop()
		delete(w.timers, path)
	}
}
