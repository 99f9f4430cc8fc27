package console

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/go-cmp/cmp"

	"github.com/five82/steward/internal/commands"
	"github.com/five82/steward/internal/logtail"
	"github.com/five82/steward/internal/state"
)

type fakeRunner struct {
	got    []commands.Request
	chunks []string
	err    error
}

func (f *fakeRunner) Handle(_ context.Context, req commands.Request) ([]string, error) {
	f.got = append(f.got, req)
	return f.chunks, f.err
}

func newModel(t *testing.T, runner Runner, feed *state.Store) Model {
	t.Helper()
	m := New(Options{
		Runner:    runner,
		Feed:      feed,
		OwnerID:   42,
		ThemeName: "Dracula",
		PrefsPath: filepath.Join(t.TempDir(), "console.toml"),
	})
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	return updated.(Model)
}

func typeLine(t *testing.T, m Model, line string) (Model, tea.Cmd) {
	t.Helper()
	m.input.SetValue(line)
	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	return updated.(Model), cmd
}

func lastEntry(m Model) entry {
	return m.entries[len(m.entries)-1]
}

func TestParseLine(t *testing.T) {
	tests := []struct {
		line, name, args string
	}{
		{"stats", "stats", ""},
		{"/printdb  suggestions ", "printdb", "suggestions"},
		{"  poast -100, hello there", "poast", "-100, hello there"},
		{"", "", ""},
	}
	for _, tt := range tests {
		name, args := ParseLine(tt.line)
		if name != tt.name || args != tt.args {
			t.Errorf("ParseLine(%q) = %q, %q; want %q, %q", tt.line, name, args, tt.name, tt.args)
		}
	}
}

func TestSubmit_RunsCommandAsOwner(t *testing.T) {
	runner := &fakeRunner{chunks: []string{"part one", "part two"}}
	m := newModel(t, runner, nil)

	m, cmd := typeLine(t, m, "/printdb suggestions")
	if cmd == nil {
		t.Fatal("submit returned no command")
	}
	if !m.busy {
		t.Fatal("model should be busy while the command runs")
	}
	if got := lastEntry(m); got.kind != entryInput || got.text != "> /printdb suggestions" {
		t.Fatalf("last entry = %+v", got)
	}

	updated, _ := m.Update(cmd())
	m = updated.(Model)

	want := []commands.Request{{UserID: 42, Name: "printdb", Args: "suggestions"}}
	if diff := cmp.Diff(want, runner.got); diff != "" {
		t.Fatalf("requests mismatch (-want +got):\n%s", diff)
	}
	if m.busy {
		t.Fatal("model still busy after reply")
	}
	n := len(m.entries)
	if m.entries[n-2].text != "part one" || m.entries[n-1].text != "part two" {
		t.Fatalf("entries = %+v", m.entries)
	}
	if m.input.Value() != "" {
		t.Fatalf("input not cleared: %q", m.input.Value())
	}
}

func TestSubmit_ErrorReply(t *testing.T) {
	runner := &fakeRunner{err: commands.ErrUnknownCommand}
	m := newModel(t, runner, nil)

	m, cmd := typeLine(t, m, "nope")
	updated, _ := m.Update(cmd())
	m = updated.(Model)

	if got := lastEntry(m); got.kind != entryError || got.text != commands.ErrorReply(commands.ErrUnknownCommand) {
		t.Fatalf("last entry = %+v", got)
	}
}

func TestSubmit_BlankAndQuit(t *testing.T) {
	runner := &fakeRunner{}
	m := newModel(t, runner, nil)
	before := len(m.entries)

	m, cmd := typeLine(t, m, "   ")
	if cmd != nil || len(m.entries) != before {
		t.Fatal("blank input should do nothing")
	}

	_, cmd = typeLine(t, m, "quit")
	if cmd == nil {
		t.Fatal("quit returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("quit should produce tea.QuitMsg")
	}
	if len(runner.got) != 0 {
		t.Fatalf("runner called for %v", runner.got)
	}
}

func TestHistory(t *testing.T) {
	runner := &fakeRunner{}
	m := newModel(t, runner, nil)

	for _, line := range []string{"stats", "dbs"} {
		var cmd tea.Cmd
		m, cmd = typeLine(t, m, line)
		updated, _ := m.Update(cmd())
		m = updated.(Model)
	}

	up := tea.KeyMsg{Type: tea.KeyUp}
	down := tea.KeyMsg{Type: tea.KeyDown}

	updated, _ := m.Update(up)
	m = updated.(Model)
	if m.input.Value() != "dbs" {
		t.Fatalf("after up: %q, want dbs", m.input.Value())
	}
	updated, _ = m.Update(up)
	m = updated.(Model)
	if m.input.Value() != "stats" {
		t.Fatalf("after up up: %q, want stats", m.input.Value())
	}
	updated, _ = m.Update(down)
	updated, _ = updated.Update(down)
	m = updated.(Model)
	if m.input.Value() != "" {
		t.Fatalf("after returning to the end: %q, want empty", m.input.Value())
	}
}

func TestCycleThemeSavesPrefs(t *testing.T) {
	m := newModel(t, &fakeRunner{}, nil)
	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlT})
	m = updated.(Model)
	if m.theme.Name != "Slate" {
		t.Fatalf("theme = %q, want Slate", m.theme.Name)
	}
	msg, ok := cmd().(prefsSavedMsg)
	if !ok || msg.err != nil {
		t.Fatalf("save result = %#v", msg)
	}

	reloaded := New(Options{PrefsPath: m.prefsPath, ThemeName: "Dracula"})
	if reloaded.theme.Name != "Slate" {
		t.Fatalf("reloaded theme = %q, want Slate", reloaded.theme.Name)
	}
}

func TestSnapshotAppearsOnce(t *testing.T) {
	feed := &state.Store{}
	m := newModel(t, &fakeRunner{}, feed)

	feed.Update(logtail.Result{Changed: true, Text: "panic: boom\n", Watermark: time.Unix(10, 0)}, nil)
	updated, _ := m.Update(snapshotMsg(feed.Snapshot()))
	m = updated.(Model)
	if got := lastEntry(m); got.kind != entryFeed || !strings.Contains(got.text, "panic: boom") {
		t.Fatalf("last entry = %+v", got)
	}

	count := len(m.entries)
	updated, _ = m.Update(snapshotMsg(feed.Snapshot()))
	m = updated.(Model)
	if len(m.entries) != count {
		t.Fatal("the same snapshot was appended twice")
	}
}

func TestFeedStatus(t *testing.T) {
	feed := &state.Store{}
	m := newModel(t, &fakeRunner{}, feed)
	if got := m.feedStatus(); got != "error log not checked yet" {
		t.Fatalf("feedStatus = %q", got)
	}

	feed.Update(logtail.Result{}, errors.New("one"))
	feed.Update(logtail.Result{}, errors.New("two"))
	updated, _ := m.Update(snapshotMsg(feed.Snapshot()))
	m = updated.(Model)
	if got := m.feedStatus(); !strings.Contains(got, "unavailable") {
		t.Fatalf("feedStatus = %q", got)
	}
}

func TestOutbox(t *testing.T) {
	ob := NewOutbox()
	if err := ob.Send(context.Background(), -100, "hello"); err != nil {
		t.Fatalf("Send: %v", err)
	}

	m := New(Options{Outbox: ob, PrefsPath: filepath.Join(t.TempDir(), "c.toml")})
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 40, Height: 10})
	m = updated.(Model)

	msg := waitOutboxCmd(context.Background(), ob)()
	updated, cmd := m.Update(msg)
	m = updated.(Model)
	if got := lastEntry(m); got.kind != entryOutbox || !strings.Contains(got.text, "hello") {
		t.Fatalf("last entry = %+v", got)
	}
	if cmd == nil {
		t.Fatal("outbox message should re-arm the wait")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if msg := waitOutboxCmd(ctx, ob)(); msg != nil {
		t.Fatalf("cancelled wait returned %#v", msg)
	}
}

func TestView(t *testing.T) {
	m := New(Options{PrefsPath: filepath.Join(t.TempDir(), "c.toml")})
	if m.View() != "Starting console..." {
		t.Fatalf("View before size = %q", m.View())
	}
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 160, Height: 20})
	view := updated.View()
	if !strings.Contains(view, "steward") || !strings.Contains(view, "ctrl+c quit") {
		t.Fatalf("View missing chrome:\n%s", view)
	}
}
