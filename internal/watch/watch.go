// Package watch re-runs a callback whenever the schema documents in a
// directory change.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/zeebo/xxh3"
)

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets how long the directory must be quiet before the callback
// runs.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// WithLogger sets the logger for the watcher.
func WithLogger(l *slog.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

// Watcher monitors a schema directory. Callbacks run one at a time on the
// goroutine that called Run.
type Watcher struct {
	dir      string
	debounce time.Duration
	logger   *slog.Logger
	onChange func(context.Context) error

	mu       sync.Mutex
	pending  time.Time
	lastHash uint64
}

// New creates a Watcher for dir.
func New(dir string, onChange func(context.Context) error, opts ...Option) *Watcher {
	w := &Watcher{
		dir:      dir,
		debounce: 300 * time.Millisecond,
		logger:   slog.Default(),
		onChange: onChange,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run watches until ctx is cancelled. The current directory content is taken
// as the baseline, so the callback only runs after a change.
func (w *Watcher) Run(ctx context.Context) error {
	hash, err := w.hash()
	if err != nil {
		return fmt.Errorf("watch: initial hash: %w", err)
	}
	w.lastHash = hash

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: create fsnotify: %w", err)
	}
	defer func() { _ = fsw.Close() }()

	if err := fsw.Add(w.dir); err != nil {
		return fmt.Errorf("watch: watch %s: %w", w.dir, err)
	}
	w.logger.Info("watching for schema changes", "dir", w.dir)

	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0 && isSchemaFile(event.Name) {
				w.mu.Lock()
				w.pending = time.Now()
				w.mu.Unlock()
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watch error", "err", err)

		case <-ticker.C:
			w.processPending(ctx)
		}
	}
}

func (w *Watcher) processPending(ctx context.Context) {
	w.mu.Lock()
	if w.pending.IsZero() || time.Since(w.pending) < w.debounce {
		w.mu.Unlock()
		return
	}
	w.pending = time.Time{}
	w.mu.Unlock()

	hash, err := w.hash()
	if err != nil {
		w.logger.Error("failed to hash schema directory", "dir", w.dir, "err", err)
		return
	}
	if hash == w.lastHash {
		w.logger.Debug("schema content unchanged, skipping", "dir", w.dir)
		return
	}
	w.lastHash = hash

	w.logger.Info("schema changed", "dir", w.dir)
	if err := w.onChange(ctx); err != nil {
		w.logger.Error("schema change handler failed", "err", err)
	}
}

// hash fingerprints the names and contents of the schema documents in dir.
func (w *Watcher) hash() (uint64, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return 0, err
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && isSchemaFile(e.Name()) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	h := xxh3.New()
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(w.dir, name))
		if err != nil {
			return 0, err
		}
		_, _ = h.WriteString(name)
		_, _ = h.Write([]byte{0})
		_, _ = h.Write(data)
		_, _ = h.Write([]byte{0})
	}
	return h.Sum64(), nil
}

func isSchemaFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}
