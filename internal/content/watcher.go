package content

import (
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/MangriMen/aether-core/internal/events"
	"github.com/MangriMen/aether-core/internal/location"
)

// debounceWindow batches a burst of filesystem events for one instance
// into a single republished event, grounded on
// original_source/aether-core/src/features/instance/infra/fs_watcher.rs's
// notify_debouncer_mini use (1s window).
const debounceWindow = time.Second

// Watcher republishes per-instance filesystem activity as debounced
// instance.synced bus events (an event for a crash-reports/*.txt file is
// reported as a warning instead, though Watch's non-recursive registration
// does not deliver events from that subdirectory). Uses fsnotify, the corpus's own
// dependency (direct in ZaparooProject-zaparoo-core) for OS-level file
// watching.
type Watcher struct {
	paths location.Paths
	bus   *events.Bus
	log   zerolog.Logger

	fsw *fsnotify.Watcher

	mu      sync.Mutex
	pending map[string]*time.Timer
	watched map[string]bool
}

func NewWatcher(paths location.Paths, bus *events.Bus, log zerolog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		paths:   paths,
		bus:     bus,
		log:     log,
		fsw:     fsw,
		pending: make(map[string]*time.Timer),
		watched: make(map[string]bool),
	}
	go w.loop()
	return w, nil
}

// Watch registers instanceID's directory with the OS watcher. The watch is
// not recursive: only entries directly in the instance directory are
// observed, not those inside subdirectories such as mods/ or crash-reports/.
// Idempotent: re-registering an already-watched instance is a no-op.
func (w *Watcher) Watch(instanceID string) error {
	w.mu.Lock()
	if w.watched[instanceID] {
		w.mu.Unlock()
		return nil
	}
	w.watched[instanceID] = true
	w.mu.Unlock()

	dir := w.paths.InstanceDir(instanceID)
	return w.fsw.Add(dir)
}

// Unwatch removes instanceID from the OS watcher, per §3's Remove
// invariant ("unregisters file watchers").
func (w *Watcher) Unwatch(instanceID string) {
	w.mu.Lock()
	delete(w.watched, instanceID)
	w.mu.Unlock()
	_ = w.fsw.Remove(w.paths.InstanceDir(instanceID))
}

func (w *Watcher) Close() error { return w.fsw.Close() }

func (w *Watcher) loop() {
	for {
		select {
		case evt, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(evt)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.bus.Publish(events.Event{Kind: events.KindWarning, Payload: events.WarningPayload{
				Message: "filesystem watcher error", Cause: err,
			}})
		}
	}
}

func (w *Watcher) handle(evt fsnotify.Event) {
	instanceID := w.extractInstanceID(evt.Name)
	if instanceID == "" {
		return
	}
	if isCrashReport(evt.Name) {
		w.bus.Publish(events.Event{Kind: events.KindWarning, Payload: events.WarningPayload{
			Message: "crash report written: " + evt.Name,
		}})
		return
	}
	w.debounce(instanceID)
}

// extractInstanceID mirrors the original's extract_instance_path: the
// path component immediately after "instances" is the instance id.
func (w *Watcher) extractInstanceID(path string) string {
	rel, err := filepath.Rel(w.paths.InstancesRoot(), path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return ""
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) == 0 || parts[0] == "" {
		return ""
	}
	return parts[0]
}

func isCrashReport(path string) bool {
	return strings.Contains(filepath.ToSlash(path), "/crash-reports/") && strings.HasSuffix(path, ".txt")
}

func (w *Watcher) debounce(instanceID string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.pending[instanceID]; ok {
		t.Reset(debounceWindow)
		return
	}
	w.pending[instanceID] = time.AfterFunc(debounceWindow, func() {
		w.mu.Lock()
		delete(w.pending, instanceID)
		w.mu.Unlock()
		w.bus.Publish(events.Event{Kind: events.KindInstanceSynced, Payload: events.InstancePayload{InstanceID: instanceID}})
	})
}
