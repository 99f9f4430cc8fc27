package state

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/five82/steward/internal/logtail"
)

func TestStore_UpdateChanged(t *testing.T) {
	var s Store
	mark := time.Unix(100, 0)

	before := time.Now()
	if !s.Update(logtail.Result{Changed: true, Text: "boom\n", Watermark: mark}, nil) {
		t.Fatal("Update should report a new snapshot")
	}

	snap := s.Snapshot()
	if snap.Text != "boom\n" || !snap.Watermark.Equal(mark) {
		t.Fatalf("snapshot = %#v, want boom at %v", snap, mark)
	}
	if snap.Seq != 1 || !snap.HasErrors() {
		t.Fatalf("Seq = %d, want 1", snap.Seq)
	}
	if snap.LastChecked.Before(before) {
		t.Fatalf("LastChecked = %v, want >= %v", snap.LastChecked, before)
	}
}

func TestStore_NoChangeKeepsText(t *testing.T) {
	var s Store
	mark := time.Unix(100, 0)
	s.Update(logtail.Result{Changed: true, Text: "boom\n", Watermark: mark}, nil)

	if s.Update(logtail.Result{Watermark: mark}, nil) {
		t.Fatal("NoChange must not report a new snapshot")
	}
	snap := s.Snapshot()
	if snap.Text != "boom\n" || snap.Seq != 1 {
		t.Fatalf("snapshot = %#v, want text kept and Seq 1", snap)
	}
}

func TestStore_NoChangeBeforeFirstSnapshotRecordsWatermark(t *testing.T) {
	s := Store{now: func() time.Time { return time.Unix(500, 0) }}
	s.Update(logtail.Result{Watermark: time.Unix(50, 0)}, nil)

	snap := s.Snapshot()
	if snap.HasErrors() {
		t.Fatal("HasErrors() = true before any change")
	}
	if !snap.Watermark.Equal(time.Unix(50, 0)) || !snap.LastChecked.Equal(time.Unix(500, 0)) {
		t.Fatalf("snapshot = %#v", snap)
	}
}

func TestStore_UpdateErrorKeepsPreviousData(t *testing.T) {
	var s Store
	s.Update(logtail.Result{Changed: true, Text: "old\n", Watermark: time.Unix(1, 0)}, nil)

	origErr := errors.New("boom")
	if s.Update(logtail.Result{}, origErr) {
		t.Fatal("failed poll must not report a new snapshot")
	}

	snap := s.Snapshot()
	if snap.Text != "old\n" || !snap.Watermark.Equal(time.Unix(1, 0)) {
		t.Fatalf("data changed on error: %#v", snap)
	}
	if snap.LastError == nil || snap.LastError.Error() != "boom" {
		t.Fatalf("LastError = %v, want boom", snap.LastError)
	}
	if !errors.Is(snap.LastError, origErr) {
		t.Fatal("cloned error should still match the original")
	}
	if reflect.ValueOf(snap.LastError).Pointer() == reflect.ValueOf(origErr).Pointer() {
		t.Fatalf("Snapshot should clone error instance")
	}
}

func TestStore_ConsecutiveFailures(t *testing.T) {
	var s Store

	snap := s.Snapshot()
	if snap.ConsecutiveFailures != 0 || snap.IsUnavailable() {
		t.Fatalf("zero store = %#v", snap)
	}

	s.Update(logtail.Result{}, errors.New("fail 1"))
	if snap = s.Snapshot(); snap.ConsecutiveFailures != 1 || snap.IsUnavailable() {
		t.Fatalf("after 1 failure: %#v", snap)
	}

	s.Update(logtail.Result{}, errors.New("fail 2"))
	if snap = s.Snapshot(); snap.ConsecutiveFailures != 2 || !snap.IsUnavailable() {
		t.Fatalf("after 2 failures: %#v", snap)
	}

	// Success resets counter
	s.Update(logtail.Result{Watermark: time.Unix(1, 0)}, nil)
	if snap = s.Snapshot(); snap.ConsecutiveFailures != 0 || snap.IsUnavailable() || snap.LastError != nil {
		t.Fatalf("after success: %#v", snap)
	}
}

func TestStore_EmptyChangeIsNotNew(t *testing.T) {
	var s Store
	s.Update(logtail.Result{Changed: true, Text: "boom\n", Watermark: time.Unix(1, 0)}, nil)

	if s.Update(logtail.Result{Changed: true, Watermark: time.Unix(2, 0)}, nil) {
		t.Fatal("an emptied log must not report a new snapshot")
	}
	snap := s.Snapshot()
	if snap.Seq != 1 || snap.Text != "boom\n" || !snap.Watermark.Equal(time.Unix(2, 0)) {
		t.Fatalf("snapshot = %#v", snap)
	}
}
