package state

import (
	"fmt"
	"sync"
	"time"

	"github.com/five82/steward/internal/logtail"
)

// Snapshot is the latest view of the error log as seen by the watcher.
type Snapshot struct {
	Text        string    // most recent tail of the error log
	Watermark   time.Time // modification time of the log version in Text
	Seq         uint64    // bumped each time Text changes
	LastChecked time.Time
	LastError   error
	// ConsecutiveFailures counts polls in a row that could not read the log.
	ConsecutiveFailures int
}

// HasErrors reports whether the watcher has seen any errors yet.
func (s Snapshot) HasErrors() bool {
	return s.Seq > 0
}

// IsUnavailable returns true when the log has been unreadable for multiple polls.
func (s Snapshot) IsUnavailable() bool {
	return s.ConsecutiveFailures >= 2
}

// Store coordinates concurrent updates to the snapshot.
type Store struct {
	mu       sync.RWMutex
	snapshot Snapshot
	now      func() time.Time
}

// Update records one poll. When err is non-nil the previous text is kept but
// the error is recorded; an unchanged result only refreshes LastChecked.
// It reports whether a new error snapshot was stored.
func (s *Store) Update(res logtail.Result, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshot.LastChecked = s.clock()
	if err != nil {
		s.snapshot.LastError = err
		s.snapshot.ConsecutiveFailures++
		return false
	}

	s.snapshot.LastError = nil
	s.snapshot.ConsecutiveFailures = 0
	if !res.Changed {
		if s.snapshot.Watermark.IsZero() {
			s.snapshot.Watermark = res.Watermark
		}
		return false
	}
	if res.Text == "" {
		// Truncated or rotated log: nothing to report.
		s.snapshot.Watermark = res.Watermark
		return false
	}
	s.snapshot.Text = res.Text
	s.snapshot.Watermark = res.Watermark
	s.snapshot.Seq++
	return true
}

// Snapshot returns a copy of the current snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snapshot
	if s.snapshot.LastError != nil {
		snap.LastError = fmt.Errorf("%w", s.snapshot.LastError)
	}
	return snap
}

func (s *Store) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}
