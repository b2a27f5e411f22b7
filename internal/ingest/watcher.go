package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"scribeflow/internal/domain"
	"scribeflow/internal/logging"
)

// Watcher feeds the queue from a watch folder. The first directory level
// under the root names the content type and the second the subcategory, so
// dropping a file into meetings/standup/ classifies it without any sidecar
// metadata.
type Watcher struct {
	root        string
	defaultType domain.ContentType
	queue       *Queue
	logger      *logging.Logger
	fsw         *fsnotify.Watcher
	settle      time.Duration

	mu     sync.Mutex
	timers map[string]*time.Timer
}

// NewWatcher creates a recursive watcher over root. settle is how long a
// path must stay quiet after its last event before admission is attempted;
// the queue then performs its own stability check.
func NewWatcher(root string, defaultType domain.ContentType, queue *Queue, settle time.Duration, logger *logging.Logger) (*Watcher, error) {
	if logger == nil {
		logger = logging.Nop()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	w := &Watcher{
		root:        root,
		defaultType: defaultType,
		queue:       queue,
		logger:      logger,
		fsw:         fsw,
		settle:      settle,
		timers:      make(map[string]*time.Timer),
	}

	if err := w.addRecursive(root); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

// Scan admits files already present under the root, oldest first within
// each directory walk. Used at startup so a restart does not orphan files
// that arrived while the service was down.
func (w *Watcher) Scan() {
	_ = filepath.Walk(w.root, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		w.admit(path)
		return nil
	})
}

// Run dispatches filesystem events until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handle(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watch error", "err", err)
		}
	}
}

// handle reacts to one filesystem event. Writes during a copy reset the
// settle timer, so admission only fires once the burst ends.
func (w *Watcher) handle(event fsnotify.Event) {
	if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		return
	}

	if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
		if event.Op&fsnotify.Create != 0 {
			if err := w.addRecursive(event.Name); err != nil {
				w.logger.Error("watching new directory failed", "dir", event.Name, "err", err)
			}
		}
		return
	}

	w.schedule(event.Name)
}

// schedule arms (or re-arms) the per-path settle timer.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.timers[path]; ok {
		t.Reset(w.settle)
		return
	}
	w.timers[path] = time.AfterFunc(w.settle, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()
		w.admit(path)
	})
}

// admit classifies the path and hands it to the queue. Rejections other
// than duplicates are logged; a later event retriggers admission.
func (w *Watcher) admit(path string) {
	ct, sub := w.classify(path)
	_, err := w.queue.Admit(AdmitRequest{
		Path:        path,
		ContentType: ct,
		Subcategory: sub,
	})
	switch {
	case err == nil:
	case errors.Is(err, ErrDuplicate):
		w.logger.Debug("already queued", "path", path)
	case errors.Is(err, ErrUnsupportedMedia):
		w.logger.Debug("ignoring non-media file", "path", path)
	default:
		w.logger.Warn("admission rejected", "path", path, "err", err)
	}
}

// classify derives content type and subcategory from the path's position
// under the watch root.
func (w *Watcher) classify(path string) (domain.ContentType, string) {
	rel, err := filepath.Rel(w.root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return w.defaultType, ""
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	switch {
	case len(parts) >= 3:
		return domain.ContentType(parts[0]), parts[1]
	case len(parts) == 2:
		return domain.ContentType(parts[0]), ""
	default:
		return w.defaultType, ""
	}
}

// addRecursive watches dir and every directory below it.
func (w *Watcher) addRecursive(dir string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return w.fsw.Add(path)
		}
		return nil
	})
}
