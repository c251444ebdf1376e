// SPDX-License-Identifier: MPL-2.0

package watch

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/fvttdev/fvttdev/internal/testutil"
)

// syncBuffer is a goroutine-safe log sink.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// startWatcher runs w in the background and returns a stop func that
// cancels it and asserts a clean exit.
func startWatcher(t *testing.T, w *Watcher) func() {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()
	// Give the event loop time to start.
	time.Sleep(50 * time.Millisecond)
	return func() {
		t.Helper()
		cancel()
		select {
		case err := <-errCh:
			if err != nil {
				t.Fatalf("Run() error: %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("Run() did not return after cancellation")
		}
	}
}

func waitChanged(t *testing.T, ch <-chan []string) []string {
	t.Helper()
	select {
	case changed := <-ch:
		return changed
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for callback")
		return nil
	}
}

func TestWatcherDebounce(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	var (
		mu        sync.Mutex
		calls     int
		collected []string
	)
	done := make(chan struct{})

	w, err := New(Config{
		Root:     dir,
		Debounce: 100 * time.Millisecond,
		OnChange: func(_ context.Context, changed []string) error {
			mu.Lock()
			defer mu.Unlock()
			calls++
			collected = append(collected, changed...)
			if calls == 1 {
				close(done)
			}
			return nil
		},
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	stop := startWatcher(t, w)

	for _, name := range []string{"a.js", "b.js", "c.js"} {
		testutil.MustWriteFile(t, filepath.Join(dir, name), "export {};")
		time.Sleep(10 * time.Millisecond)
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for callback")
	}
	time.Sleep(200 * time.Millisecond)
	stop()

	mu.Lock()
	defer mu.Unlock()
	if calls != 1 {
		t.Errorf("expected 1 debounced callback, got %d", calls)
	}
	for _, want := range []string{"a.js", "b.js", "c.js"} {
		if !slices.Contains(collected, want) {
			t.Errorf("expected %q in changed files, got %v", want, collected)
		}
	}
}

func TestWatcherExclusions(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	testutil.WriteTree(t, dir, map[string]string{
		"module/module.json":        "{}",
		"module/src/index.js":       "",
		"module/dist/index.js":      "",
		"module/node_modules/x.js":  "",
		"module/.git/HEAD":          "",
		"module/templates/a.hbs":    "",
		"module/styles/scratch.tmp": "",
	})
	root := filepath.Join(dir, "module")

	fired := make(chan []string, 10)
	w, err := New(Config{
		Root:     root,
		Ignore:   []string{"**/*.tmp"},
		SkipDirs: []string{"node_modules"},
		Exclude:  []string{filepath.Join(root, "dist")},
		Debounce: 50 * time.Millisecond,
		OnChange: func(_ context.Context, changed []string) error {
			fired <- changed
			return nil
		},
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	stop := startWatcher(t, w)
	defer stop()

	// None of these may trigger a pass.
	testutil.MustWriteFile(t, filepath.Join(root, "dist", "index.js"), "rebuilt")
	testutil.MustWriteFile(t, filepath.Join(root, "node_modules", "x.js"), "changed")
	testutil.MustWriteFile(t, filepath.Join(root, ".git", "HEAD"), "ref")
	testutil.MustWriteFile(t, filepath.Join(root, "styles", "scratch.tmp"), "tmp")

	select {
	case changed := <-fired:
		t.Fatalf("excluded paths triggered a callback: %v", changed)
	case <-time.After(300 * time.Millisecond):
	}

	testutil.MustWriteFile(t, filepath.Join(root, "templates", "a.hbs"), "<p/>")
	changed := waitChanged(t, fired)
	if !slices.Equal(changed, []string{"templates/a.hbs"}) {
		t.Errorf("changed = %v, want [templates/a.hbs]", changed)
	}
}

func TestWatcherNewDirectory(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	fired := make(chan []string, 10)
	w, err := New(Config{
		Root:     dir,
		Debounce: 50 * time.Millisecond,
		OnChange: func(_ context.Context, changed []string) error {
			fired <- changed
			return nil
		},
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	stop := startWatcher(t, w)
	defer stop()

	testutil.MustMkdirAll(t, filepath.Join(dir, "lang"), 0o755)
	waitChanged(t, fired)

	// The new directory is registered, so writes inside it are seen.
	time.Sleep(50 * time.Millisecond)
	testutil.MustWriteFile(t, filepath.Join(dir, "lang", "en.json"), "{}")

	deadline := time.After(5 * time.Second)
	for {
		select {
		case changed := <-fired:
			if slices.Contains(changed, "lang/en.json") {
				return
			}
		case <-deadline:
			t.Fatal("write inside a new directory was not observed")
		}
	}
}

func TestWatcherOutsideDirectories(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	testutil.WriteTree(t, base, map[string]string{
		"module/module.json":        "{}",
		"shared/util.js":            "",
		"late/extra.js":             "",
		"node_modules/lib/index.js": "",
	})
	root := filepath.Join(base, "module")

	fired := make(chan []string, 10)
	w, err := New(Config{
		Root:     root,
		SkipDirs: []string{"node_modules"},
		Outside:  []string{filepath.Join(base, "shared"), filepath.Join(base, "node_modules", "lib"), root},
		Debounce: 50 * time.Millisecond,
		OnChange: func(_ context.Context, changed []string) error {
			fired <- changed
			return nil
		},
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	stop := startWatcher(t, w)
	defer stop()

	testutil.MustWriteFile(t, filepath.Join(base, "node_modules", "lib", "index.js"), "changed")
	testutil.MustWriteFile(t, filepath.Join(base, "late", "extra.js"), "changed")
	select {
	case changed := <-fired:
		t.Fatalf("unwatched directories triggered a callback: %v", changed)
	case <-time.After(300 * time.Millisecond):
	}

	testutil.MustWriteFile(t, filepath.Join(base, "shared", "util.js"), "export {};")
	if changed := waitChanged(t, fired); !slices.Equal(changed, []string{"../shared/util.js"}) {
		t.Errorf("changed = %v, want [../shared/util.js]", changed)
	}

	// Directories can be added while running.
	w.AddOutside(filepath.Join(base, "late"))
	testutil.MustWriteFile(t, filepath.Join(base, "late", "extra.js"), "again")
	if changed := waitChanged(t, fired); !slices.Equal(changed, []string{"../late/extra.js"}) {
		t.Errorf("changed = %v, want [../late/extra.js]", changed)
	}
}

func TestWatcherCallbackErrorIsLogged(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	sink := &syncBuffer{}
	fired := make(chan []string, 10)

	w, err := New(Config{
		Root:     dir,
		Debounce: 50 * time.Millisecond,
		Logger:   log.NewWithOptions(sink, log.Options{Level: log.DebugLevel}),
		OnChange: func(_ context.Context, changed []string) error {
			fired <- changed
			return errors.New("esbuild failed")
		},
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	stop := startWatcher(t, w)

	testutil.MustWriteFile(t, filepath.Join(dir, "index.js"), "x")
	waitChanged(t, fired)

	// A failed pass does not stop the watcher.
	time.Sleep(100 * time.Millisecond)
	testutil.MustWriteFile(t, filepath.Join(dir, "index.js"), "y")
	waitChanged(t, fired)
	stop()

	if !strings.Contains(sink.String(), "esbuild failed") {
		t.Errorf("callback error not logged:\n%s", sink.String())
	}
}

func TestWatcherSkipIfBusy(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	var (
		mu      sync.Mutex
		calls   int
		active  int
		overlap bool
	)
	firstDone := make(chan struct{})

	w, err := New(Config{
		Root:     dir,
		Debounce: 50 * time.Millisecond,
		OnChange: func(_ context.Context, _ []string) error {
			mu.Lock()
			calls++
			n := calls
			active++
			if active > 1 {
				overlap = true
			}
			mu.Unlock()

			if n == 1 {
				time.Sleep(300 * time.Millisecond)
				close(firstDone)
			}

			mu.Lock()
			active--
			mu.Unlock()
			return nil
		},
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	stop := startWatcher(t, w)

	testutil.MustWriteFile(t, filepath.Join(dir, "first.js"), "1")
	time.Sleep(100 * time.Millisecond)
	testutil.MustWriteFile(t, filepath.Join(dir, "second.js"), "2")

	select {
	case <-firstDone:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for first callback")
	}
	time.Sleep(300 * time.Millisecond)
	stop()

	mu.Lock()
	defer mu.Unlock()
	if overlap {
		t.Error("callbacks ran concurrently")
	}
	if calls != 2 {
		t.Errorf("expected the busy pass to be retried once, got %d calls", calls)
	}
}

func TestWatcherContextCancel(t *testing.T) {
	t.Parallel()

	w, err := New(Config{Root: t.TempDir(), Debounce: 50 * time.Millisecond})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	startWatcher(t, w)()
}

func TestWatcherDoubleRunError(t *testing.T) {
	t.Parallel()

	w, err := New(Config{Root: t.TempDir()})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	stop := startWatcher(t, w)
	defer stop()

	if err := w.Run(context.Background()); err == nil || !strings.Contains(err.Error(), "more than once") {
		t.Errorf("second Run() error = %v, want 'more than once'", err)
	}
}

func TestNew_MissingRoot(t *testing.T) {
	t.Parallel()

	if _, err := New(Config{Root: filepath.Join(t.TempDir(), "missing")}); err == nil {
		t.Error("New() should fail for a missing root")
	}
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{name: "root only", cfg: Config{Root: "/pkg"}},
		{name: "valid ignores", cfg: Config{Root: "/pkg", Ignore: []string{"**/*.tmp", "packs/**"}}},
		{name: "empty root", cfg: Config{}, wantErr: ErrInvalidRoot},
		{name: "whitespace root", cfg: Config{Root: "   "}, wantErr: ErrInvalidRoot},
		{name: "empty pattern", cfg: Config{Root: "/pkg", Ignore: []string{""}}, wantErr: ErrInvalidPattern},
		{name: "bad pattern syntax", cfg: Config{Root: "/pkg", Ignore: []string{"[invalid"}}, wantErr: ErrInvalidPattern},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestDefaultIgnores(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path    string
		ignored bool
	}{
		{".git/config", true},
		{"src/.git/objects/ab", true},
		{"index.js.swp", true},
		{"index.js.swo", true},
		{"backup~", true},
		{".DS_Store", true},
		{"assets/.DS_Store", true},
		{"src/index.ts", false},
		{"module.json", false},
		{".gitignore", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			t.Parallel()
			if got := matchAny(DefaultIgnores(), tt.path); got != tt.ignored {
				t.Errorf("matchAny(DefaultIgnores(), %q) = %v, want %v", tt.path, got, tt.ignored)
			}
		})
	}
}

func TestInSkipDir(t *testing.T) {
	t.Parallel()

	w := &Watcher{cfg: Config{SkipDirs: []string{"node_modules", "dist"}}}
	for rel, want := range map[string]bool{
		"node_modules/x/index.js": true,
		"src/dist/a.js":           true,
		"src/index.js":            false,
		"distribution/a.js":       false,
	} {
		if got := w.inSkipDir(rel); got != want {
			t.Errorf("inSkipDir(%q) = %v, want %v", rel, got, want)
		}
	}
}
