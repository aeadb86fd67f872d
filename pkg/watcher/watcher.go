// Package watcher observes corpus roots for markdown changes and invokes a
// callback once changes settle, so the index and lint results stay current
// while serving.
package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"

	"github.com/skillhubdev/skillhub/pkg/logger"
)

// DefaultDebounce is how long the watcher waits for changes to settle
const DefaultDebounce = 500 * time.Millisecond

// OnChange receives the set of changed paths after a debounce window closes
type OnChange func(ctx context.Context, paths []string)

// Watcher observes corpus roots for changes to markdown files
type Watcher struct {
	roots      []string
	debounce   time.Duration
	ignoreDirs []string
	onChange   OnChange
}

// Option is a function that configures a Watcher
type Option func(*Watcher) error

// WithDebounce overrides the debounce window
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) error {
		if d < 0 {
			return errors.New("debounce duration cannot be negative")
		}
		w.debounce = d
		return nil
	}
}

// WithIgnoreDirs sets directory names whose events are discarded
func WithIgnoreDirs(dirs ...string) Option {
	return func(w *Watcher) error {
		w.ignoreDirs = dirs
		return nil
	}
}

// New creates a watcher over the given corpus roots
func New(roots []string, onChange OnChange, opts ...Option) (*Watcher, error) {
	if len(roots) == 0 {
		return nil, errors.New("at least one root must be watched")
	}
	if onChange == nil {
		return nil, errors.New("onChange callback is required")
	}

	w := &Watcher{
		roots:      roots,
		debounce:   DefaultDebounce,
		ignoreDirs: []string{".git", "node_modules"},
		onChange:   onChange,
	}

	for _, opt := range opts {
		if err := opt(w); err != nil {
			return nil, err
		}
	}

	return w, nil
}

// Run watches until the context is cancelled. Changed markdown paths are
// collected and delivered in one callback per debounce window.
func (w *Watcher) Run(ctx context.Context) error {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "failed to create file watcher")
	}
	defer fsWatcher.Close()

	for _, root := range w.roots {
		if err := w.addRecursive(ctx, fsWatcher, root); err != nil {
			return err
		}
	}

	var timer *time.Timer
	var timerC <-chan time.Time
	pending := make(map[string]bool)

	fire := func() {
		paths := make([]string, 0, len(pending))
		for p := range pending {
			paths = append(paths, p)
		}
		pending = make(map[string]bool)
		timerC = nil

		w.onChange(ctx, paths)
	}

	for {
		select {
		case event, ok := <-fsWatcher.Events:
			if !ok {
				return nil
			}

			if w.ignored(event.Name) {
				continue
			}

			// New directories need their own watch before files inside
			// them produce events.
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = w.addRecursive(ctx, fsWatcher, event.Name)
				}
			}

			if !relevant(event) {
				continue
			}

			logger.G(ctx).WithFields(map[string]interface{}{
				"file":      event.Name,
				"operation": event.Op.String(),
			}).Debug("Corpus change detected")

			pending[event.Name] = true
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				// Drain a tick from an already-fired timer so the reset
				// window cannot fire early.
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
			timerC = timer.C

		case <-timerC:
			fire()

		case err, ok := <-fsWatcher.Errors:
			if !ok {
				return nil
			}
			logger.G(ctx).WithError(err).Error("File watcher error")

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// relevant reports whether an event should trigger the callback: markdown
// writes, creates, renames, and removals.
func relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	return strings.HasSuffix(event.Name, ".md")
}

func (w *Watcher) ignored(path string) bool {
	for _, dir := range w.ignoreDirs {
		if strings.Contains(path, string(os.PathSeparator)+dir+string(os.PathSeparator)) {
			return true
		}
	}
	return false
}

// addRecursive watches root and every subdirectory. A missing root is not an
// error; it may be created later by an install.
func (w *Watcher) addRecursive(ctx context.Context, fsWatcher *fsnotify.Watcher, root string) error {
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() {
			return nil
		}
		for _, dir := range w.ignoreDirs {
			if info.Name() == dir {
				return filepath.SkipDir
			}
		}
		if err := fsWatcher.Add(path); err != nil {
			logger.G(ctx).WithError(err).WithField("directory", path).Warn("Failed to watch directory")
		}
		return nil
	})
	if err != nil {
		return errors.Wrapf(err, "failed to walk root '%s'", root)
	}
	return nil
}
