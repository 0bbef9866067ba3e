package crew

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// StopWatcher watches a signals directory for a stop file so a running crew
// can be aborted from outside the process (a second terminal, a supervisor).
// Cancellation is all-or-nothing: the whole run is torn down, there is no
// per-subtask stop.
type StopWatcher struct {
	dir string

	mu      sync.RWMutex
	stopped bool

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// stopFileName is the file whose creation signals a stop.
const stopFileName = "stop"

// NewStopWatcher starts watching dir for the stop file. When fsnotify is
// unavailable the watcher still works through the direct stat fallback in
// ShouldStop.
func NewStopWatcher(dir string) (*StopWatcher, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	sw := &StopWatcher{
		dir:  dir,
		done: make(chan struct{}),
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return sw, nil
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return sw, nil
	}
	sw.watcher = watcher

	go sw.watch()
	return sw, nil
}

// watch flips the stop flag as soon as the stop file appears.
func (sw *StopWatcher) watch() {
	for {
		select {
		case <-sw.done:
			return
		case event, ok := <-sw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) == stopFileName &&
				(event.Op&fsnotify.Create != 0 || event.Op&fsnotify.Write != 0) {
				sw.mu.Lock()
				sw.stopped = true
				sw.mu.Unlock()
			}
		case <-sw.watcher.Errors:
			// Keep watching.
		}
	}
}

// ShouldStop reports whether a stop has been signaled. It also stats the
// file directly in case the watcher missed the event.
func (sw *StopWatcher) ShouldStop() bool {
	if _, err := os.Stat(filepath.Join(sw.dir, stopFileName)); err == nil {
		sw.mu.Lock()
		sw.stopped = true
		sw.mu.Unlock()
	}

	sw.mu.RLock()
	defer sw.mu.RUnlock()
	return sw.stopped
}

// Signal creates the stop file.
func (sw *StopWatcher) Signal() error {
	return os.WriteFile(filepath.Join(sw.dir, stopFileName),
		[]byte(time.Now().Format(time.RFC3339)), 0644)
}

// Clear removes the stop file and resets the flag.
func (sw *StopWatcher) Clear() {
	sw.mu.Lock()
	sw.stopped = false
	sw.mu.Unlock()
	os.Remove(filepath.Join(sw.dir, stopFileName))
}

// CancelOnStop polls the watcher and invokes cancel once a stop is
// signaled. Returns a function that ends the polling goroutine.
func (sw *StopWatcher) CancelOnStop(cancel func()) (release func()) {
	stop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(200 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if sw.ShouldStop() {
					cancel()
					return
				}
			}
		}
	}()
	return func() { close(stop) }
}

// Close shuts down the watcher.
func (sw *StopWatcher) Close() {
	close(sw.done)
	if sw.watcher != nil {
		sw.watcher.Close()
	}
}
