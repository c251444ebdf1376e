// SPDX-License-Identifier: MPL-2.0

// Package watch runs a debounced filesystem watcher over a package root.
//
// Events inside the debounce window are coalesced so the callback fires once
// with the full set of changed paths. The bundle command uses it to start a
// new bundling pass whenever a source or asset changes.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"

	"github.com/fvttdev/fvttdev/internal/discovery"
)

// DefaultDebounce is used when Config.Debounce is zero or negative.
const DefaultDebounce = 500 * time.Millisecond

var (
	// ErrInvalidPattern is returned when an ignore pattern is not a valid glob.
	ErrInvalidPattern = errors.New("invalid watch pattern")
	// ErrInvalidRoot is returned when Config.Root is empty.
	ErrInvalidRoot = errors.New("invalid watch root")

	// defaultIgnores are always excluded: VCS metadata, editor swap files and
	// OS metadata that generate noise.
	defaultIgnores = []string{
		"**/.git/**",
		"**/*.swp",
		"**/*.swo",
		"**/*~",
		"**/.DS_Store",
	}
)

type (
	// Config holds the parameters for a Watcher.
	Config struct {
		// Root is the directory watched recursively.
		Root string

		// Ignore are doublestar patterns, relative to Root, for paths that never
		// trigger callbacks. They are merged with the built-in ignores.
		Ignore []string

		// SkipDirs are directory names that are never descended into.
		SkipDirs []string

		// Exclude are absolute paths excluded together with their subtree. The
		// deploy directory goes here when it lives below Root.
		Exclude []string

		// Outside are directories beyond Root watched without recursion,
		// typically those holding sources imported from outside the package.
		// Changes there are reported relative to Root ("../shared/x.js").
		Outside []string

		// Debounce is the quiet period after the last event before the callback
		// fires. Zero or negative values fall back to DefaultDebounce.
		Debounce time.Duration

		// OnChange receives the deduplicated changed paths, relative to Root
		// and slash separated. Errors are logged and do not stop the watcher.
		OnChange func(ctx context.Context, changed []string) error

		// Logger receives watcher notices. Nil discards them.
		Logger *log.Logger
	}

	// InvalidPatternError is returned when an ignore pattern does not compile.
	InvalidPatternError struct {
		Pattern string
		Err     error
	}

	// Watcher monitors a package root and fires a debounced callback when
	// files change. Run must be called exactly once.
	Watcher struct {
		cfg      Config
		fsw      *fsnotify.Watcher
		ignores  []string
		exclude  []string
		logger   *log.Logger
		debounce time.Duration
		root     string
		started  atomic.Bool

		mu      sync.Mutex
		outside map[string]struct{}
	}
)

// Error implements the error interface.
func (e *InvalidPatternError) Error() string {
	return fmt.Sprintf("invalid ignore pattern %q: %v", e.Pattern, e.Err)
}

// Unwrap returns ErrInvalidPattern for errors.Is() compatibility.
func (e *InvalidPatternError) Unwrap() error { return ErrInvalidPattern }

// Validate checks Root and every ignore pattern. All problems are joined.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Root) == "" {
		errs = append(errs, ErrInvalidRoot)
	}
	for _, pat := range c.Ignore {
		if pat == "" {
			errs = append(errs, &InvalidPatternError{Pattern: pat, Err: errors.New("empty pattern")})
			continue
		}
		if !doublestar.ValidatePattern(pat) {
			errs = append(errs, &InvalidPatternError{Pattern: pat, Err: doublestar.ErrBadPattern})
		}
	}
	return errors.Join(errs...)
}

// New validates cfg, creates the fsnotify watcher and registers every
// directory below Root that is not ignored.
func New(cfg Config) (*Watcher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}

	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("watch: resolve root: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	exclude := make([]string, 0, len(cfg.Exclude))
	for _, p := range cfg.Exclude {
		abs, absErr := filepath.Abs(p)
		if absErr != nil {
			return nil, fmt.Errorf("watch: resolve excluded path %q: %w", p, absErr)
		}
		exclude = append(exclude, abs)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create fsnotify watcher: %w", err)
	}

	w := &Watcher{
		cfg:      cfg,
		fsw:      fsw,
		ignores:  slices.Concat(defaultIgnores, cfg.Ignore),
		exclude:  exclude,
		logger:   logger,
		debounce: debounce,
		root:     root,
		outside:  make(map[string]struct{}),
	}

	if err := w.addDirectories(); err != nil {
		if closeErr := fsw.Close(); closeErr != nil {
			logger.Warn("watch: close after init failure", "err", closeErr)
		}
		return nil, err
	}
	w.AddOutside(cfg.Outside...)
	return w, nil
}

// AddOutside watches further directories beyond Root without recursion. It
// is safe to call while Run is active. Directories below Root, excluded,
// inside a skip directory or already watched are left alone; failures to
// watch are logged.
func (w *Watcher) AddOutside(dirs ...string) {
	for _, d := range dirs {
		abs, err := filepath.Abs(d)
		if err != nil || discovery.IsWithin(abs, w.root) || w.isExcluded(abs) || w.inSkipDir(filepath.ToSlash(abs)) {
			continue
		}

		w.mu.Lock()
		_, seen := w.outside[abs]
		w.mu.Unlock()
		if seen {
			continue
		}
		if addErr := w.fsw.Add(abs); addErr != nil {
			w.logger.Warn("watch: add directory outside root", "path", abs, "err", addErr)
			continue
		}
		w.mu.Lock()
		w.outside[abs] = struct{}{}
		w.mu.Unlock()
		w.logger.Debug("watch: watching directory outside root", "path", abs)
	}
}

func (w *Watcher) isOutside(dir string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.outside[dir]
	return ok
}

// Root returns the absolute watched directory.
func (w *Watcher) Root() string { return w.root }

// Run blocks until ctx is cancelled, dispatching debounced callbacks. It
// returns nil on cancellation and an error when fsnotify fails fatally.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return errors.New("watch: Run called more than once")
	}

	var (
		mu      sync.Mutex
		pending = make(map[string]struct{})
		timer   *time.Timer
		running atomic.Bool
	)

	// fire drains the pending set. A pass that outlives the debounce window
	// reschedules instead of running concurrently.
	fire := func() {
		if ctx.Err() != nil {
			return
		}
		if !running.CompareAndSwap(false, true) {
			w.logger.Debug("watch: previous pass still running, retrying")
			mu.Lock()
			if timer != nil {
				timer.Reset(w.debounce)
			}
			mu.Unlock()
			return
		}
		defer running.Store(false)

		mu.Lock()
		if len(pending) == 0 {
			mu.Unlock()
			return
		}
		changed := slices.Sorted(maps.Keys(pending))
		clear(pending)
		mu.Unlock()

		if w.cfg.OnChange != nil {
			if err := w.cfg.OnChange(ctx, changed); err != nil {
				w.logger.Error("watch: pass failed", "err", err)
			}
		}
	}

	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
		if closeErr := w.fsw.Close(); closeErr != nil {
			w.logger.Warn("watch: close fsnotify", "err", closeErr)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-w.fsw.Events:
			if !ok {
				return errors.New("watch: fsnotify event channel closed unexpectedly")
			}
			if evt.Has(fsnotify.Chmod) && !evt.Has(fsnotify.Write) {
				continue
			}
			rel, ignored := w.classify(evt.Name)
			if ignored {
				continue
			}
			if evt.Has(fsnotify.Create) {
				w.maybeAddDir(evt.Name)
			}

			mu.Lock()
			pending[rel] = struct{}{}
			if timer == nil {
				timer = time.AfterFunc(w.debounce, fire)
			} else {
				timer.Reset(w.debounce)
			}
			mu.Unlock()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return errors.New("watch: fsnotify error channel closed unexpectedly")
			}
			if isFatalFsnotifyError(err) {
				return fmt.Errorf("watch: fatal fsnotify error: %w", err)
			}
			w.logger.Warn("watch: fsnotify error", "err", err)
		}
	}
}

// classify returns path relative to the root and whether it is ignored.
// Paths beyond the root count only when their directory was added with
// AddOutside.
func (w *Watcher) classify(path string) (string, bool) {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return path, true
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		if !w.isOutside(filepath.Dir(path)) {
			return path, true
		}
		rel = filepath.ToSlash(rel)
		return rel, w.isExcluded(path) || w.isIgnored(rel)
	}
	rel = filepath.ToSlash(rel)
	return rel, w.isExcluded(path) || w.inSkipDir(rel) || w.isIgnored(rel)
}

// addDirectories registers Root and every directory below it that is not
// ignored. Inaccessible directories are skipped with a warning.
func (w *Watcher) addDirectories() error {
	walkErr := filepath.WalkDir(w.root, func(path string, d os.DirEntry, walkDirErr error) error {
		if walkDirErr != nil {
			if path == w.root {
				return walkDirErr
			}
			w.logger.Warn("watch: skipping inaccessible path", "path", path, "err", walkDirErr)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root && w.skipDir(path) {
			return filepath.SkipDir
		}
		if addErr := w.fsw.Add(path); addErr != nil {
			return fmt.Errorf("add directory %q: %w", path, addErr)
		}
		return nil
	})
	if walkErr != nil {
		return fmt.Errorf("watch: walk directory tree: %w", walkErr)
	}
	return nil
}

// maybeAddDir registers a directory created below Root after the initial
// walk.
func (w *Watcher) maybeAddDir(path string) {
	if !discovery.IsWithin(path, w.root) {
		return
	}
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() || w.skipDir(path) {
		return
	}
	if addErr := w.fsw.Add(path); addErr != nil {
		w.logger.Warn("watch: add new directory", "path", path, "err", addErr)
	}
}

func (w *Watcher) skipDir(path string) bool {
	rel, ignored := w.classify(path)
	return ignored || w.isIgnored(rel+"/")
}

func (w *Watcher) isExcluded(path string) bool {
	return slices.ContainsFunc(w.exclude, func(dir string) bool {
		return discovery.IsWithin(path, dir)
	})
}

func (w *Watcher) inSkipDir(rel string) bool {
	for part := range strings.SplitSeq(rel, "/") {
		if slices.Contains(w.cfg.SkipDirs, part) {
			return true
		}
	}
	return false
}

func (w *Watcher) isIgnored(rel string) bool {
	return matchAny(w.ignores, rel)
}

// DefaultIgnores returns a copy of the built-in ignore patterns.
func DefaultIgnores() []string { return slices.Clone(defaultIgnores) }

func matchAny(patterns []string, rel string) bool {
	for _, pat := range patterns {
		if matched, err := doublestar.Match(pat, rel); err == nil && matched {
			return true
		}
	}
	return false
}
