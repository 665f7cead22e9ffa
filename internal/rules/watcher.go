package rules

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchDebounce coalesces bursts of file events (editors often write a rule
// file several times in quick succession) into one reload.
const watchDebounce = 500 * time.Millisecond

// Watcher pre-warms a Store when rule files change, so the next assessment
// run does not pay the reparse. Purely an optimization: the Store's snapshot
// check stays the source of truth even if events are missed.
type Watcher struct {
	store    *Store
	roots    []string
	debounce time.Duration
}

// NewWatcher creates a watcher over the given rule directories.
func NewWatcher(store *Store, roots []string) *Watcher {
	return &Watcher{
		store:    store,
		roots:    roots,
		debounce: watchDebounce,
	}
}

// Run watches the rule roots and reloads on change. Blocks until ctx is
// cancelled. Reload failures are reported to stderr and do not stop the
// watcher: a half-written rule file will parse cleanly on a later event or
// on the next Load.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	for _, root := range w.roots {
		if err := watcher.Add(root); err != nil {
			return fmt.Errorf("watch %s: %w", root, err)
		}
	}

	// Single debounce timer, reset on each event. Dirty roots accumulate
	// until the timer fires.
	dirty := make(map[string]bool)
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	reload := func() {
		for root := range dirty {
			if _, err := w.store.Load(root); err != nil {
				fmt.Fprintf(os.Stderr, "assayer: rule reload for %s failed: %v\n", root, err)
			}
		}
		dirty = make(map[string]bool)
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-timer.C:
			reload()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			if !strings.HasSuffix(event.Name, ".json") {
				continue
			}
			w.markDirty(dirty, event.Name)
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(w.debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "assayer: rule watcher: %v\n", err)
		}
	}
}

// markDirty attributes an event path to the root that directly contains it.
// A sibling directory sharing a root's name prefix (rules-v2 next to rules)
// is not ours, and only files directly under a root are rule files.
func (w *Watcher) markDirty(dirty map[string]bool, name string) {
	dir := filepath.Dir(name)
	for _, root := range w.roots {
		if dir == filepath.Clean(root) {
			dirty[root] = true
		}
	}
}
