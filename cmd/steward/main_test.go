package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, dir string) string {
	t.Helper()
	body := fmt.Sprintf("[logs]\ndir = %q\n\n[store]\npath = %q\nbackup_dir = %q\n",
		filepath.Join(dir, "logs"), filepath.Join(dir, "bot.db"), filepath.Join(dir, "backups"))
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestErrorsCommand(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir)

	if err := os.MkdirAll(filepath.Join(dir, "logs"), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	var b strings.Builder
	for i := 1; i <= 5; i++ {
		fmt.Fprintf(&b, "error %d\n", i)
	}
	if err := os.WriteFile(filepath.Join(dir, "logs", "errors.log"), []byte(b.String()), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	out, err := execute(t, "--config", cfgPath, "errors", "-n", "2")
	if err != nil {
		t.Fatalf("errors: %v", err)
	}
	if out != "error 4\nerror 5\n" {
		t.Fatalf("output = %q", out)
	}
}

func TestErrorsCommand_MissingLog(t *testing.T) {
	cfgPath := writeConfig(t, t.TempDir())
	if _, err := execute(t, "--config", cfgPath, "errors"); err == nil {
		t.Fatal("expected an error for a missing log")
	}
}

func TestBackupCommand(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir)

	out, err := execute(t, "--config", cfgPath, "backup")
	if err != nil {
		t.Fatalf("backup: %v", err)
	}
	path := strings.TrimSpace(out)
	if filepath.Dir(path) != filepath.Join(dir, "backups") {
		t.Fatalf("backup path = %q", path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("backup not written: %v", err)
	}
}

func TestUnknownSubcommand(t *testing.T) {
	if _, err := execute(t, "frobnicate"); err == nil {
		t.Fatal("expected an error for an unknown command")
	}
}
