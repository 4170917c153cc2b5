// Package watch reruns a build when the sources of a project change.
//
// Directories under the project are registered recursively. Events are
// filtered by glob patterns and coalesced over a debounce window, so the
// callback fires once with every path that changed.
package watch

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 300 * time.Millisecond

// DefaultPatterns select the files a build depends on.
var DefaultPatterns = []string{
	"pyproject.toml",
	"**/*.pyx",
	"**/*.pxd",
	"**/*.pxi",
}

// ignoredDirs are never registered. build holds the lock file and compiled
// objects, so watching it would retrigger on every run.
var ignoredDirs = []string{
	".git",
	"build",
	"__pycache__",
}

// Config holds the parameters of a Watcher.
type Config struct {
	// Dir is the project directory. Empty means the working directory.
	Dir string

	// Patterns are doublestar globs relative to Dir. Empty means
	// DefaultPatterns.
	Patterns []string

	// Debounce is the quiet period before OnChange fires.
	Debounce time.Duration

	// OnChange receives the sorted changed paths, relative to Dir. Calls
	// never overlap.
	OnChange func(ctx context.Context, changed []string) error

	Logger *log.Logger
}

// Watcher monitors a project directory.
type Watcher struct {
	cfg      Config
	fsw      *fsnotify.Watcher
	dir      string
	patterns []string
	debounce time.Duration
	logger   *log.Logger
}

// New validates cfg and registers every directory under cfg.Dir.
func New(cfg Config) (*Watcher, error) {
	dir := cfg.Dir
	if dir == "" {
		dir = "."
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("watch: resolve directory: %w", err)
	}

	patterns := cfg.Patterns
	if len(patterns) == 0 {
		patterns = DefaultPatterns
	}
	for _, pat := range patterns {
		if !doublestar.ValidatePattern(pat) {
			return nil, fmt.Errorf("watch: invalid pattern %q", pat)
		}
	}

	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create fsnotify watcher: %w", err)
	}
	w := &Watcher{
		cfg:      cfg,
		fsw:      fsw,
		dir:      abs,
		patterns: patterns,
		debounce: debounce,
		logger:   logger,
	}
	if err := w.addDirectories(abs); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

// Run processes events until ctx is cancelled, then returns nil. Fatal
// watcher errors are returned. Run closes the watcher on exit and waits for
// a running OnChange call.
func (w *Watcher) Run(ctx context.Context) error {
	var (
		mu      sync.Mutex
		pending = make(map[string]struct{})
		timer   *time.Timer
		stopped bool
		serial  sync.Mutex
		running sync.WaitGroup
	)

	fire := func() {
		mu.Lock()
		if stopped {
			mu.Unlock()
			return
		}
		running.Add(1)
		mu.Unlock()
		defer running.Done()

		serial.Lock()
		defer serial.Unlock()
		if ctx.Err() != nil {
			return
		}

		mu.Lock()
		changed := slices.Sorted(maps.Keys(pending))
		clear(pending)
		mu.Unlock()
		if len(changed) == 0 || w.cfg.OnChange == nil {
			return
		}

		w.logger.Info("change detected", "files", changed)
		if err := w.cfg.OnChange(ctx, changed); err != nil {
			w.logger.Error("rebuild failed", "err", err)
		}
	}

	// A callback already started finishes before Run returns.
	defer func() {
		mu.Lock()
		stopped = true
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
		running.Wait()
		if err := w.fsw.Close(); err != nil {
			w.logger.Warn("close watcher", "err", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-w.fsw.Events:
			if !ok {
				return errors.New("watch: event channel closed")
			}
			if evt.Has(fsnotify.Create) {
				w.maybeAddDir(evt.Name)
			}
			rel, err := filepath.Rel(w.dir, evt.Name)
			if err != nil || !w.matches(rel) {
				continue
			}

			mu.Lock()
			pending[filepath.ToSlash(rel)] = struct{}{}
			if timer == nil {
				timer = time.AfterFunc(w.debounce, fire)
			} else {
				timer.Reset(w.debounce)
			}
			mu.Unlock()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return errors.New("watch: error channel closed")
			}
			if isFatal(err) {
				return fmt.Errorf("watch: %w", err)
			}
			w.logger.Warn("watch error", "err", err)
		}
	}
}

func (w *Watcher) addDirectories(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			w.logger.Warn("skipping inaccessible path", "path", path, "err", err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.dir && ignored(d.Name()) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watch: add directory %q: %w", path, err)
		}
		return nil
	})
}

// maybeAddDir registers directories created after startup.
func (w *Watcher) maybeAddDir(path string) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() || ignored(info.Name()) {
		return
	}
	if err := w.addDirectories(path); err != nil {
		w.logger.Warn("add new directory", "path", path, "err", err)
	}
}

func (w *Watcher) matches(rel string) bool {
	rel = filepath.ToSlash(rel)
	for _, dir := range ignoredDirs {
		if matched, _ := doublestar.Match("**/"+dir+"/**", rel); matched {
			return false
		}
	}
	for _, pat := range w.patterns {
		if matched, err := doublestar.Match(pat, rel); err == nil && matched {
			return true
		}
	}
	return false
}

func ignored(name string) bool {
	return slices.Contains(ignoredDirs, name)
}
