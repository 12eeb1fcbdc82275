// Package watcher observes a workspace tree for Pick BASIC source changes
// and reports them as batches of LSP file events.
package watcher

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/pickbasic-lsp/pickhost/protocol"
)

// Watcher recursively watches a workspace root and emits debounced batches
// of file events for paths matching a glob pattern. Directories created
// after startup are picked up and watched as well.
type Watcher struct {
	root     string
	glob     string
	debounce time.Duration
	emit     func([]protocol.FileEvent)
	logger   *slog.Logger

	fsw      *fsnotify.Watcher
	stopOnce sync.Once
	stop     chan struct{}

	mu      sync.Mutex
	pending []protocol.FileEvent
	timer   *time.Timer
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the batching window (default 250ms).
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// WithLogger sets the watcher's logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

// New starts watching root. Paths matching glob (relative to root, slash
// separated) are reported to emit in batches. Close releases the watcher.
func New(root, glob string, emit func([]protocol.FileEvent), opts ...Option) (*Watcher, error) {
	if !doublestar.ValidatePattern(glob) {
		return nil, fmt.Errorf("invalid watch pattern %q", glob)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}

	w := &Watcher{
		root:     root,
		glob:     glob,
		debounce: 250 * time.Millisecond,
		emit:     emit,
		logger:   slog.Default(),
		fsw:      fsw,
		stop:     make(chan struct{}),
	}
	for _, o := range opts {
		o(w)
	}

	if err := w.addTree(root); err != nil {
		fsw.Close()
		return nil, err
	}

	go w.run()
	return w, nil
}

// addTree registers root and every directory beneath it.
func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			// Unreadable subtrees are skipped, not fatal.
			w.logger.Debug("skipping unreadable path", "path", path, "error", err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if name := d.Name(); name == ".git" || name == "node_modules" {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
		return nil
	})
}

// Matches reports whether path (absolute or root-relative) matches the
// watcher's glob.
func (w *Watcher) Matches(path string) bool {
	rel, err := filepath.Rel(w.root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		rel = path
	}
	ok, err := doublestar.Match(w.glob, filepath.ToSlash(rel))
	return err == nil && ok
}

func (w *Watcher) run() {
	for {
		select {
		case <-w.stop:
			w.mu.Lock()
			if w.timer != nil {
				w.timer.Stop()
			}
			w.mu.Unlock()
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Error("workspace watcher error", "error", err)
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addTree(event.Name); err != nil {
				w.logger.Warn("could not watch new directory", "path", event.Name, "error", err)
			}
			return
		}
	}

	if !w.Matches(event.Name) {
		return
	}

	var changeType protocol.FileChangeType
	switch {
	case event.Has(fsnotify.Create):
		changeType = protocol.FileCreated
	case event.Has(fsnotify.Write):
		changeType = protocol.FileChanged
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		changeType = protocol.FileDeleted
	default:
		return
	}

	w.enqueue(protocol.FileEvent{
		URI:  protocol.URIFromPath(event.Name),
		Type: changeType,
	})
}

func (w *Watcher) enqueue(ev protocol.FileEvent) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending = append(w.pending, ev)
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.flush)
}

func (w *Watcher) flush() {
	w.mu.Lock()
	batch := w.pending
	w.pending = nil
	w.mu.Unlock()

	if len(batch) == 0 {
		return
	}
	w.emit(dedupe(batch))
}

// dedupe keeps the last event per URI, preserving first-seen order.
func dedupe(events []protocol.FileEvent) []protocol.FileEvent {
	last := make(map[protocol.DocumentURI]protocol.FileChangeType, len(events))
	order := make([]protocol.DocumentURI, 0, len(events))
	for _, ev := range events {
		if _, seen := last[ev.URI]; !seen {
			order = append(order, ev.URI)
		}
		last[ev.URI] = ev.Type
	}

	out := make([]protocol.FileEvent, 0, len(order))
	for _, uri := range order {
		out = append(out, protocol.FileEvent{URI: uri, Type: last[uri]})
	}
	return out
}

// Close stops the watcher and releases resources.
func (w *Watcher) Close() error {
	w.stopOnce.Do(func() { close(w.stop) })
	return w.fsw.Close()
}
