package config

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dshills/caretglide/internal/logging"
)

// reloadDebounce coalesces the write bursts editors produce when
// saving a file.
const reloadDebounce = 100 * time.Millisecond

// Watcher reloads a settings file into a Store when it changes on
// disk.
type Watcher struct {
	mu sync.Mutex

	loader *Loader
	store  *Store
	logger *logging.Logger

	watcher *fsnotify.Watcher
	pending *time.Timer
	closed  bool

	closeCh  chan struct{}
	closedWg sync.WaitGroup
}

// NewWatcher starts watching the loader's file, pushing successful
// reloads into store. The file's directory must exist; the file
// itself may not yet (editors often replace-on-save, which looks like
// remove+create).
func NewWatcher(loader *Loader, store *Store, logger *logging.Logger) (*Watcher, error) {
	if logger == nil {
		logger = logging.NullLogger
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	// Watch the directory, not the file: replace-on-save breaks a
	// direct file watch.
	dir := filepath.Dir(loader.Path())
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &Watcher{
		loader:  loader,
		store:   store,
		logger:  logger.WithComponent("config"),
		watcher: fsw,
		closeCh: make(chan struct{}),
	}

	w.closedWg.Add(1)
	go w.processLoop()

	return w, nil
}

// Close stops watching. Idempotent.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	if w.pending != nil {
		w.pending.Stop()
		w.pending = nil
	}
	close(w.closeCh)
	w.mu.Unlock()

	err := w.watcher.Close()
	w.closedWg.Wait()
	return err
}

func (w *Watcher) processLoop() {
	defer w.closedWg.Done()

	target := filepath.Clean(w.loader.Path())
	for {
		select {
		case <-w.closeCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.scheduleReload()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("settings watch error: %v", err)
		}
	}
}

func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if w.pending != nil {
		w.pending.Stop()
	}
	w.pending = time.AfterFunc(reloadDebounce, w.reload)
}

func (w *Watcher) reload() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.pending = nil
	w.mu.Unlock()

	cfg, err := w.loader.Load()
	if err != nil {
		w.logger.Warn("settings reload failed, keeping current: %v", err)
		return
	}
	if err := w.store.Update(cfg, "file"); err != nil {
		w.logger.Warn("settings reload rejected: %v", err)
		return
	}
	w.logger.Info("settings reloaded from %s", w.loader.Path())
}
