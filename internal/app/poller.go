package app

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/five82/steward/internal/logtail"
	"github.com/five82/steward/internal/state"
)

const (
	defaultPollInterval = 30 * time.Second
	maxBackoff          = 30 * time.Second
	settleDelay         = time.Second
)

// Notifier receives every new error snapshot found by the watcher.
type Notifier func(ctx context.Context, snap state.Snapshot)

// Watcher polls the error log whenever it changes on disk and on a fixed
// cadence as a fallback. It shares its window with the errors command, so a
// snapshot delivered here is not reported again by the command.
type Watcher struct {
	window   *logtail.Window
	path     string
	feed     *state.Store
	interval time.Duration
	notify   Notifier
	log      *zap.Logger

	failures int
	// baseline is the log's modification time when Run started. Versions no
	// newer than it were reported by a previous run and are not pushed again.
	baseline time.Time
}

// NewWatcher returns a watcher for the log at path. notify may be nil.
func NewWatcher(window *logtail.Window, path string, feed *state.Store, interval time.Duration, notify Notifier, log *zap.Logger) *Watcher {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Watcher{
		window:   window,
		path:     filepath.Clean(path),
		feed:     feed,
		interval: interval,
		notify:   notify,
		log:      log.Named("watcher"),
	}
}

// Run blocks until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	w.seedBaseline()

	var (
		events <-chan fsnotify.Event
		errs   <-chan error
	)
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		w.log.Warn("file notifications unavailable, polling only", zap.Error(err))
	} else {
		defer fsw.Close()
		if err := fsw.Add(filepath.Dir(w.path)); err != nil {
			w.log.Warn("watch log directory failed, polling only", zap.String("dir", filepath.Dir(w.path)), zap.Error(err))
		} else {
			events, errs = fsw.Events, fsw.Errors
		}
	}

	tick := time.NewTimer(0)
	defer tick.Stop()
	settle := time.NewTimer(settleDelay)
	settle.Stop()
	defer settle.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if filepath.Clean(ev.Name) == w.path && ev.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				settle.Reset(settleDelay)
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			// Warn, not Error: errors.log is the file being watched.
			w.log.Warn("file notification error", zap.Error(err))
		case <-settle.C:
			w.poll(ctx)
		case <-tick.C:
			w.poll(ctx)
			tick.Reset(calculateBackoff(w.failures, w.interval))
		}
	}
}

// seedBaseline records the current log version so startup does not resend
// errors logged before the process started.
func (w *Watcher) seedBaseline() {
	info, err := os.Stat(w.path)
	if err != nil {
		return
	}
	w.baseline = info.ModTime()
	w.log.Debug("error log baseline", zap.Time("modified", w.baseline))
}

// poll refreshes the window once and publishes the outcome.
func (w *Watcher) poll(ctx context.Context) {
	if !w.baseline.IsZero() {
		info, err := os.Stat(w.path)
		if err == nil && !info.ModTime().After(w.baseline) {
			// The window stays unconsumed so /errors still shows this version.
			w.failures = 0
			w.feed.Update(logtail.Result{Watermark: info.ModTime()}, nil)
			return
		}
		w.baseline = time.Time{}
	}

	res, err := w.window.Poll(ctx, w.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// Nothing has been logged at error level yet.
		w.failures = 0
		return
	case err != nil:
		if ctx.Err() != nil {
			return
		}
		w.failures++
		w.feed.Update(res, err)
		w.log.Warn("error log poll failed", zap.Int("failures", w.failures), zap.Error(err))
		return
	}

	w.failures = 0
	if w.feed.Update(res, nil) && w.notify != nil {
		w.notify(ctx, w.feed.Snapshot())
	}
}

// calculateBackoff returns the delay before the next scheduled poll: the base
// interval doubled for every consecutive failure, capped at maxBackoff.
func calculateBackoff(failures int, base time.Duration) time.Duration {
	if failures <= 0 || base >= maxBackoff {
		return base
	}
	backoff := base
	for range failures {
		backoff *= 2
		if backoff >= maxBackoff {
			return maxBackoff
		}
	}
	return backoff
}
