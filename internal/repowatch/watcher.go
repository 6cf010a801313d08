// Package repowatch watches model repository directory trees for changes
// and debounces them into a single trigger, so a burst of file writes (a
// model directory being copied into place, a config.json rewritten alongside
// its weights) produces one poll instead of one per fsnotify event.
package repowatch

import (
	"context"
	"io/fs"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Handler is called once per debounce window in which at least one change
// was observed under a watched repository.
type Handler func()

// Watcher watches a set of repository root directories, recursively, and
// calls Handler after DebounceWindow has elapsed since the last observed
// change. It never inspects what changed; the manager re-polls and computes
// its own change set.
type Watcher struct {
	fsw      *fsnotify.Watcher
	handler  Handler
	debounce time.Duration

	mu      sync.Mutex
	roots   map[string]struct{}
	changes chan struct{}
	done    chan struct{}
	once    sync.Once
}

// DefaultDebounceWindow is the quiet period after the last observed change
// before Handler runs; a burst of events inside it, such as a multi-file
// copy, coalesces into one call.
const DefaultDebounceWindow = 500 * time.Millisecond

// New creates a Watcher over roots. Call Start to begin watching.
func New(roots []string, handler Handler, debounce time.Duration) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounceWindow
	}
	w := &Watcher{
		fsw:      fsw,
		handler:  handler,
		debounce: debounce,
		roots:    map[string]struct{}{},
		changes:  make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	for _, r := range roots {
		w.roots[r] = struct{}{}
	}
	return w, nil
}

// Start begins watching every configured root recursively. It spawns two
// goroutines (event processor, debouncer) that exit when ctx is canceled or
// Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	for root := range w.roots {
		if err := w.addRecursive(root); err != nil {
			return err
		}
	}
	go w.processEvents(ctx)
	go w.debounceLoop(ctx)
	return nil
}

// Stop releases the underlying fsnotify watcher.
func (w *Watcher) Stop() {
	w.once.Do(func() {
		close(w.done)
		_ = w.fsw.Close()
	})
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// A repository root may not exist yet at startup; that is not
			// fatal, the manager surfaces it on the next poll instead.
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		return w.fsw.Add(path)
	})
}

func (w *Watcher) processEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Has(fsnotify.Create) {
				if info, err := statIsDir(ev.Name); err == nil && info {
					_ = w.fsw.Add(ev.Name)
				}
			}
			select {
			case w.changes <- struct{}{}:
			default:
			}
		case _, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
		}
	}
}

func (w *Watcher) debounceLoop(ctx context.Context) {
	var timer *time.Timer
	var timerC <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case <-w.changes:
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				timer.Reset(w.debounce)
			}
		case <-timerC:
			timer = nil
			timerC = nil
			if w.handler != nil {
				w.handler()
			}
		}
	}
}
