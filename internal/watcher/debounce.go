package watcher

import (
	"os"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period used when none is configured.
const DefaultDebounce = 100 * time.Millisecond

// Debouncer batches file change events to avoid redundant processing
type Debouncer struct {
	mu       sync.Mutex
	pending  map[string]fsnotify.Op
	interval time.Duration
	timer    *time.Timer
}

// NewDebouncer creates a debouncer that waits interval after the last event
func NewDebouncer(interval time.Duration) *Debouncer {
	if interval <= 0 {
		interval = DefaultDebounce
	}
	return &Debouncer{
		pending:  make(map[string]fsnotify.Op),
		interval: interval,
	}
}

// Add records a file change event. Operations on the same path combine.
func (d *Debouncer) Add(path string, op fsnotify.Op) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending[path] |= op
}

// Flush calls callback with the pending changes once no new Flush has
// happened for the debounce interval. Paths are sorted.
func (d *Debouncer) Flush(callback func(changed, removed []string)) {
	d.mu.Lock()
	defer d.mu.Unlock()

	// Cancel any existing timer
	if d.timer != nil {
		d.timer.Stop()
	}

	d.timer = time.AfterFunc(d.interval, func() {
		d.mu.Lock()
		pending := d.pending
		d.pending = make(map[string]fsnotify.Op)
		d.mu.Unlock()

		changed, removed := split(pending)
		if len(changed) > 0 || len(removed) > 0 {
			callback(changed, removed)
		}
	})
}

// Stop cancels a scheduled flush.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
}

// split sorts pending paths into changed and removed ones. A path that was
// removed or renamed but exists again counts as changed; editors and
// atomic writers replace files that way.
func split(pending map[string]fsnotify.Op) (changed, removed []string) {
	for path, op := range pending {
		gone := op.Has(fsnotify.Remove) || op.Has(fsnotify.Rename)
		if gone {
			if _, err := os.Stat(path); err != nil {
				removed = append(removed, path)
				continue
			}
			changed = append(changed, path)
			continue
		}
		if op.Has(fsnotify.Write) || op.Has(fsnotify.Create) {
			changed = append(changed, path)
		}
	}
	sort.Strings(changed)
	sort.Strings(removed)
	return changed, removed
}
