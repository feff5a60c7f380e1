// Package watcher reports batches of changed and removed files below a
// directory.
package watcher

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// Filter decides which files are worth reporting. *lang.Set is one.
type Filter interface {
	Handles(path string) bool
}

// ChangeHandler receives one debounced batch of sorted paths.
type ChangeHandler func(changed, removed []string)

// Watcher monitors a directory tree for changes to files the filter accepts
type Watcher struct {
	fsw       *fsnotify.Watcher
	rootPath  string
	filter    Filter
	handler   ChangeHandler
	debouncer *Debouncer

	done      chan struct{}
	closeOnce sync.Once
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the quiet period before changes are reported.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		w.debouncer = NewDebouncer(d)
	}
}

// New creates a watcher for rootPath. Nothing is watched until Start.
func New(rootPath string, filter Filter, handler ChangeHandler, opts ...Option) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		fsw:       fsw,
		rootPath:  rootPath,
		filter:    filter,
		handler:   handler,
		debouncer: NewDebouncer(DefaultDebounce),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Start watches every directory below the root and begins reporting.
func (w *Watcher) Start() error {
	if _, err := os.Stat(w.rootPath); err != nil {
		return err
	}
	w.addTree(w.rootPath)
	go w.run()

	log.Info().Str("root", w.rootPath).Msg("file watcher started")
	return nil
}

// addTree watches dir and the directories below it, and returns the files
// in them that the filter accepts.
func (w *Watcher) addTree(dir string) []string {
	var files []string
	filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // Vanished or unreadable, skip
		}
		if !d.IsDir() {
			if w.filter.Handles(path) {
				files = append(files, path)
			}
			return nil
		}
		if path != w.rootPath && skipDir(d.Name()) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("failed to watch directory")
		}
		return nil
	})
	return files
}

func (w *Watcher) run() {
	for {
		select {
		case <-w.done:
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
			log.Error().Err(err).Msg("watcher error")
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	path := event.Name

	if event.Op == fsnotify.Chmod {
		return
	}

	// A directory that appears may already hold files, e.g. when it was
	// moved in. Those never produce events of their own.
	if event.Has(fsnotify.Create) {
		if info, err := os.Lstat(path); err == nil && info.IsDir() {
			if skipDir(filepath.Base(path)) {
				return
			}
			for _, file := range w.addTree(path) {
				w.queue(file, fsnotify.Create)
			}
			return
		}
	}

	if w.filter.Handles(path) {
		w.queue(path, event.Op)
	}
}

func (w *Watcher) queue(path string, op fsnotify.Op) {
	w.debouncer.Add(path, op)
	w.debouncer.Flush(w.dispatch)
}

func (w *Watcher) dispatch(changed, removed []string) {
	select {
	case <-w.done:
		return
	default:
	}
	log.Debug().Int("changed", len(changed)).Int("removed", len(removed)).Msg("file changes")
	w.handler(changed, removed)
}

// Close stops the watcher. Pending changes are dropped.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.done)
		w.debouncer.Stop()
		err = w.fsw.Close()
	})
	return err
}

// skipDir reports whether a directory is hidden or holds third party code.
func skipDir(name string) bool {
	return strings.HasPrefix(name, ".") || name == "vendor" || name == "node_modules"
}
