package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNew_ErrorsGoToErrorLog(t *testing.T) {
	dir := t.TempDir()
	var console bytes.Buffer

	l, err := New(Options{Dir: dir, Level: "info", Console: &console})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	l.Logger.Info("started")
	l.Logger.Error("printdb failed")
	l.Membership.Info("user joined")
	if err := l.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}

	errorsLog, err := os.ReadFile(filepath.Join(dir, "errors.log"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.Contains(string(errorsLog), "printdb failed") {
		t.Fatalf("errors.log = %q, want the error entry", errorsLog)
	}
	if strings.Contains(string(errorsLog), "started") {
		t.Fatalf("errors.log contains info entries: %q", errorsLog)
	}

	joinleave, err := os.ReadFile(filepath.Join(dir, "joinleave.log"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.Contains(string(joinleave), "user joined") {
		t.Fatalf("joinleave.log = %q, want the membership entry", joinleave)
	}

	if !strings.Contains(console.String(), "started") {
		t.Fatalf("console output = %q, want info entries", console.String())
	}
}

func TestNew_BadLevel(t *testing.T) {
	if _, err := New(Options{Dir: t.TempDir(), Level: "loud"}); err == nil {
		t.Fatal("New returned nil error for an unknown level")
	}
}
