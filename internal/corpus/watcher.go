package corpus

import (
	"context"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const watchDebounce = 500 * time.Millisecond

// Watcher keeps the knowledge base in sync with the corpus directory. Writes
// are debounced per path before onIndex fires; removals fire onRemove with
// the deleted file's path. The caller resolves the path to whatever title the
// file was indexed under, which may not be derivable from the filename.
type Watcher struct {
	root     string
	onIndex  func(path string)
	onRemove func(path string)
	logger   *zap.Logger

	mu       sync.Mutex
	timers   map[string]*time.Timer
	notifier *fsnotify.Watcher
}

func NewWatcher(root string, onIndex, onRemove func(path string), logger *zap.Logger) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{
		root:     root,
		onIndex:  onIndex,
		onRemove: onRemove,
		logger:   logger,
		timers:   make(map[string]*time.Timer),
	}
}

// Start begins watching. It returns once the watcher is registered; events
// are handled on a background goroutine until ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	notifier, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := notifier.Add(w.root); err != nil {
		_ = notifier.Close()
		return err
	}
	w.notifier = notifier
	w.logger.Info("corpus watcher started", zap.String("dir", w.root))

	go w.run(ctx)
	return nil
}

func (w *Watcher) run(ctx context.Context) {
	defer w.close()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.notifier.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.notifier.Errors:
			if !ok {
				return
			}
			w.logger.Warn("corpus watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	if !Supported(ev.Name) {
		return
	}
	switch {
	case ev.Op.Has(fsnotify.Create) || ev.Op.Has(fsnotify.Write):
		w.debounce(ev.Name)
	case ev.Op.Has(fsnotify.Remove) || ev.Op.Has(fsnotify.Rename):
		w.cancel(ev.Name)
		if w.onRemove != nil {
			w.onRemove(ev.Name)
		}
	}
}

// debounce coalesces the burst of write events an editor or copy produces
// into a single index call.
func (w *Watcher) debounce(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.timers[path]; ok {
		t.Stop()
	}
	w.timers[path] = time.AfterFunc(watchDebounce, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()
		if w.onIndex != nil {
			w.onIndex(path)
		}
	})
}

func (w *Watcher) cancel(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.timers[path]; ok {
		t.Stop()
		delete(w.timers, path)
	}
}

func (w *Watcher) close() {
	w.mu.Lock()
	for path, t := range w.timers {
		t.Stop()
		delete(w.timers, path)
	}
	notifier := w.notifier
	w.notifier = nil
	w.mu.Unlock()
	if notifier != nil {
		_ = notifier.Close()
	}
}
