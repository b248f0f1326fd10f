// Package watch reloads the resolver when shapes or display rule files
// change on disk.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/c360studio/heritrace/shacl"
)

// DefaultDebounceDelay is used when Config.DebounceDelay is zero.
const DefaultDebounceDelay = 500 * time.Millisecond

// LoadFunc builds a fresh resolver from the files on disk.
type LoadFunc func() (*shacl.Resolver, error)

// Config configures a Reloader.
type Config struct {
	// Patterns are the files to watch: plain paths or doublestar globs.
	Patterns []string

	// DebounceDelay is how long to wait for more changes before reloading.
	DebounceDelay time.Duration
}

// Reloader holds the current resolver and swaps it when watched files
// change. A failed reload keeps the previous resolver.
type Reloader struct {
	load     LoadFunc
	patterns []string
	debounce time.Duration
	watcher  *fsnotify.Watcher
	logger   *slog.Logger

	current atomic.Pointer[shacl.Resolver]

	pendingMu sync.Mutex
	pending   bool

	reloads  atomic.Int64
	failures atomic.Int64
}

// New performs the initial load and prepares the file watcher. The initial
// load must succeed.
func New(load LoadFunc, cfg Config, logger *slog.Logger) (*Reloader, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.DebounceDelay <= 0 {
		cfg.DebounceDelay = DefaultDebounceDelay
	}

	resolver, err := load()
	if err != nil {
		return nil, fmt.Errorf("initial load: %w", err)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	r := &Reloader{
		load:     load,
		patterns: cleanPatterns(cfg.Patterns),
		debounce: cfg.DebounceDelay,
		watcher:  fsw,
		logger:   logger,
	}
	r.current.Store(resolver)
	return r, nil
}

// Resolver returns the current resolver.
func (r *Reloader) Resolver() *shacl.Resolver {
	return r.current.Load()
}

// Reloads returns the number of successful reloads.
func (r *Reloader) Reloads() int64 {
	return r.reloads.Load()
}

// Failures returns the number of failed reloads.
func (r *Reloader) Failures() int64 {
	return r.failures.Load()
}

// Reload rebuilds the resolver now.
func (r *Reloader) Reload() error {
	resolver, err := r.load()
	if err != nil {
		r.failures.Add(1)
		r.logger.Error("Reload failed, keeping previous resolver", "error", err)
		return err
	}
	r.current.Store(resolver)
	r.reloads.Add(1)
	r.logger.Info("Resolver reloaded", "shapes", len(resolver.Shapes().All()))
	return nil
}

// Start watches the directories holding the patterns until ctx is done.
func (r *Reloader) Start(ctx context.Context) error {
	for _, pattern := range r.patterns {
		base, _ := doublestar.SplitPattern(filepath.ToSlash(pattern))
		if err := r.addWatchesRecursive(filepath.FromSlash(base)); err != nil {
			return err
		}
	}

	go r.processEvents(ctx)

	r.logger.Info("Shape watcher started",
		"patterns", r.patterns,
		"debounce", r.debounce)
	return nil
}

// Stop stops the watcher.
func (r *Reloader) Stop() error {
	return r.watcher.Close()
}

// addWatchesRecursive adds watches to root, or to its directory when root
// is a file, and to every directory below it.
func (r *Reloader) addWatchesRecursive(root string) error {
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("watch %s: %w", root, err)
	}
	if !info.IsDir() {
		root = filepath.Dir(root)
	}

	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := r.watcher.Add(path); err != nil {
			r.logger.Warn("Failed to watch directory",
				"path", path,
				"error", err)
		} else {
			r.logger.Debug("Watching directory", "path", path)
		}
		return nil
	})
}

// processEvents handles fsnotify events with debouncing.
func (r *Reloader) processEvents(ctx context.Context) {
	ticker := time.NewTicker(r.debounce)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-r.watcher.Events:
			if !ok {
				return
			}
			r.handleFSEvent(event)

		case err, ok := <-r.watcher.Errors:
			if !ok {
				return
			}
			r.logger.Error("Watcher error", "error", err)

		case <-ticker.C:
			r.flushPending()
		}
	}
}

// handleFSEvent marks a reload as pending when a watched file changed.
func (r *Reloader) handleFSEvent(event fsnotify.Event) {
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := r.watcher.Add(event.Name); err != nil {
				r.logger.Warn("Failed to watch new directory", "path", event.Name, "error", err)
			}
			return
		}
	}
	if event.Op == fsnotify.Chmod || !r.matches(event.Name) {
		return
	}

	r.pendingMu.Lock()
	r.pending = true
	r.pendingMu.Unlock()

	r.logger.Debug("Shape file change detected",
		"path", event.Name,
		"op", event.Op.String())
}

// flushPending reloads once per debounce window.
func (r *Reloader) flushPending() {
	r.pendingMu.Lock()
	if !r.pending {
		r.pendingMu.Unlock()
		return
	}
	r.pending = false
	r.pendingMu.Unlock()

	_ = r.Reload()
}

func (r *Reloader) matches(path string) bool {
	path = filepath.ToSlash(filepath.Clean(path))
	for _, pattern := range r.patterns {
		if ok, _ := doublestar.Match(filepath.ToSlash(pattern), path); ok {
			return true
		}
	}
	return false
}

func cleanPatterns(patterns []string) []string {
	out := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if p != "" {
			out = append(out, filepath.Clean(p))
		}
	}
	return out
}
