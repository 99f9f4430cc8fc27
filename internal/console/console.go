// Package console is the local operator console: a Bubble Tea prompt that runs
// the same commands the bot answers in chat, as the owner.
//
// Replies, errors, messages sent through the Outbox and new error-log
// snapshots from the watcher are appended to one scrolling transcript. The
// console polls the shared state.Store on a tick, like the chat side never
// does, so watcher output shows up without a command.
package console

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/five82/steward/internal/commands"
	"github.com/five82/steward/internal/prefs"
	"github.com/five82/steward/internal/state"
)

// Runner executes one command.
type Runner interface {
	Handle(ctx context.Context, req commands.Request) ([]string, error)
}

// Options configures the console.
type Options struct {
	Context   context.Context
	Runner    Runner
	Feed      *state.Store // nil disables the error feed
	Outbox    *Outbox      // nil when messages go to a real platform
	OwnerID   int64
	ThemeName string
	PrefsPath string // empty uses prefs.DefaultPath
	PollTick  time.Duration
}

type entryKind int

const (
	entryInput entryKind = iota
	entryReply
	entryError
	entryFeed
	entryOutbox
	entryInfo
)

type entry struct {
	kind entryKind
	text string
}

// Model is the Bubble Tea model for the console.
type Model struct {
	ctx       context.Context
	runner    Runner
	feed      *state.Store
	outbox    *Outbox
	ownerID   int64
	prefsPath string
	pollTick  time.Duration
	now       func() time.Time

	theme  Theme
	styles Styles
	keys   keyMap
	prefs  prefs.Prefs

	input    textinput.Model
	viewport viewport.Model
	width    int
	height   int
	ready    bool

	entries []entry
	histIdx int // len(prefs.History) when not browsing
	busy    bool

	snapshot state.Snapshot
	lastSeq  uint64
}

const (
	chromeHeight = 3 // header, input, footer
	defaultTick  = time.Second
)

// New creates the console model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	tick := opts.PollTick
	if tick <= 0 {
		tick = defaultTick
	}
	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}

	p := prefs.Load(prefsPath, opts.ThemeName)
	theme := GetTheme(p.Theme)
	p.Theme = theme.Name

	input := textinput.New()
	input.Placeholder = "help"
	input.Focus()

	m := Model{
		ctx:       ctx,
		runner:    opts.Runner,
		feed:      opts.Feed,
		outbox:    opts.Outbox,
		ownerID:   opts.OwnerID,
		prefsPath: prefsPath,
		pollTick:  tick,
		now:       time.Now,
		theme:     theme,
		styles:    theme.Styles(),
		keys:      defaultKeyMap(),
		prefs:     p,
		input:     input,
		histIdx:   len(p.History),
		entries:   []entry{{entryInfo, "Type a command, e.g. help, stats or errors."}},
	}
	m.applyTheme()
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink, tickCmd(m.pollTick)}
	if m.feed != nil {
		cmds = append(cmds, fetchSnapshotCmd(m.feed))
	}
	if m.outbox != nil {
		cmds = append(cmds, waitOutboxCmd(m.ctx, m.outbox))
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		h := max(msg.Height-chromeHeight, 1)
		if !m.ready {
			m.viewport = viewport.New(msg.Width, h)
			m.ready = true
		} else {
			m.viewport.Width, m.viewport.Height = msg.Width, h
		}
		m.input.Width = max(msg.Width-4, 1)
		m.refreshTranscript()
		return m, nil

	case replyMsg:
		m.busy = false
		if msg.err != nil {
			m.append(entryError, commands.ErrorReply(msg.err))
		}
		for _, chunk := range msg.chunks {
			m.append(entryReply, chunk)
		}
		return m, nil

	case outboxMsg:
		m.append(entryOutbox, fmt.Sprintf("→ chat %d\n%s", msg.ChatID, msg.Text))
		return m, waitOutboxCmd(m.ctx, m.outbox)

	case tickMsg:
		cmds := []tea.Cmd{tickCmd(m.pollTick)}
		if m.feed != nil {
			cmds = append(cmds, fetchSnapshotCmd(m.feed))
		}
		return m, tea.Batch(cmds...)

	case snapshotMsg:
		m.applySnapshot(state.Snapshot(msg))
		return m, nil

	case prefsSavedMsg:
		if msg.err != nil {
			m.append(entryError, msg.err.Error())
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Submit):
		return m.submit()

	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.prefs.Theme = m.theme.Name
		m.applyTheme()
		m.refreshTranscript()
		return m, savePrefsCmd(m.prefsPath, m.prefs)

	case key.Matches(msg, m.keys.Clear):
		m.entries = nil
		m.refreshTranscript()
		return m, nil

	case key.Matches(msg, m.keys.HistPrev):
		if m.histIdx > 0 {
			m.histIdx--
			m.input.SetValue(m.prefs.History[m.histIdx])
			m.input.CursorEnd()
		}
		return m, nil

	case key.Matches(msg, m.keys.HistNext):
		if m.histIdx < len(m.prefs.History) {
			m.histIdx++
		}
		if m.histIdx == len(m.prefs.History) {
			m.input.Reset()
		} else {
			m.input.SetValue(m.prefs.History[m.histIdx])
			m.input.CursorEnd()
		}
		return m, nil

	case key.Matches(msg, m.keys.PageUp, m.keys.PageDown):
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	line := strings.TrimSpace(m.input.Value())
	m.input.Reset()
	if line == "" {
		return m, nil
	}
	m.prefs.Remember(line)
	m.histIdx = len(m.prefs.History)
	m.append(entryInput, "> "+line)

	if line == "quit" || line == "exit" {
		return m, tea.Quit
	}
	if m.busy {
		m.append(entryInfo, "Still waiting on the previous command.")
		return m, nil
	}

	name, args := ParseLine(line)
	m.busy = true
	return m, runCmd(m.ctx, m.runner, commands.Request{
		UserID: m.ownerID,
		Name:   name,
		Args:   args,
	})
}

func (m *Model) applySnapshot(snap state.Snapshot) {
	m.snapshot = snap
	if snap.Seq > m.lastSeq {
		m.lastSeq = snap.Seq
		m.append(entryFeed, "New errors logged:\n"+strings.TrimRight(snap.Text, "\n"))
	}
}

func (m *Model) applyTheme() {
	m.styles = m.theme.Styles()
	m.input.PromptStyle = m.styles.Prompt
	m.input.TextStyle = m.styles.Input
}

func (m *Model) append(kind entryKind, text string) {
	m.entries = append(m.entries, entry{kind: kind, text: text})
	m.refreshTranscript()
}

func (m *Model) refreshTranscript() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Starting console..."
	}
	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(m.renderFooter())
	return b.String()
}

func (m Model) renderHeader() string {
	left := m.styles.Title.Render("steward")
	status := "ready"
	if m.busy {
		status = "running…"
	}
	right := m.styles.Muted.Render(fmt.Sprintf("%s · %s", status, m.theme.Name))
	gap := max(m.width-lipgloss.Width(left)-lipgloss.Width(right)-2, 1)
	return m.styles.Header.Width(m.width).Render(left + strings.Repeat(" ", gap) + right)
}

func (m Model) renderFooter() string {
	var parts []string
	if m.feed != nil {
		parts = append(parts, m.feedStatus())
	}
	for _, b := range m.keys.footerBindings() {
		h := b.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return m.styles.Footer.Width(m.width).Render(strings.Join(parts, "  "))
}

func (m Model) feedStatus() string {
	snap := m.snapshot
	switch {
	case snap.IsUnavailable():
		return m.styles.Warning.Render("error log unavailable")
	case snap.LastChecked.IsZero():
		return "error log not checked yet"
	default:
		return "error log checked " + humanize.RelTime(snap.LastChecked, m.now(), "ago", "from now")
	}
}

func (m Model) renderTranscript() string {
	width := max(m.viewport.Width, 1)
	rendered := make([]string, 0, len(m.entries))
	for _, e := range m.entries {
		rendered = append(rendered, m.entryStyle(e.kind).Width(width).Render(e.text))
	}
	return strings.Join(rendered, "\n")
}

func (m Model) entryStyle(kind entryKind) lipgloss.Style {
	switch kind {
	case entryInput:
		return m.styles.Input
	case entryError:
		return m.styles.Error
	case entryFeed:
		return m.styles.Feed
	case entryOutbox:
		return m.styles.Outbox
	case entryInfo:
		return m.styles.Muted
	default:
		return m.styles.Reply
	}
}

// ParseLine splits console input into a command name and its arguments. A
// leading slash is accepted so chat muscle memory works.
func ParseLine(line string) (name, args string) {
	line = strings.TrimPrefix(strings.TrimSpace(line), "/")
	name, args, _ = strings.Cut(line, " ")
	return name, strings.TrimSpace(args)
}

// Messages

type tickMsg time.Time

type snapshotMsg state.Snapshot

type replyMsg struct {
	chunks []string
	err    error
}

type outboxMsg Message

type prefsSavedMsg struct{ err error }

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func fetchSnapshotCmd(feed *state.Store) tea.Cmd {
	return func() tea.Msg {
		return snapshotMsg(feed.Snapshot())
	}
}

func runCmd(ctx context.Context, runner Runner, req commands.Request) tea.Cmd {
	return func() tea.Msg {
		chunks, err := runner.Handle(ctx, req)
		return replyMsg{chunks: chunks, err: err}
	}
}

func waitOutboxCmd(ctx context.Context, o *Outbox) tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-o.Messages():
			return outboxMsg(msg)
		case <-ctx.Done():
			return nil
		}
	}
}

func savePrefsCmd(path string, p prefs.Prefs) tea.Cmd {
	return func() tea.Msg {
		return prefsSavedMsg{err: prefs.Save(path, p)}
	}
}

// Run starts the console and blocks until the operator quits or ctx is done.
// Preferences are saved on the way out.
func Run(opts Options) error {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
		opts.Context = ctx
	}
	p := tea.NewProgram(New(opts), tea.WithAltScreen(), tea.WithContext(ctx))
	final, err := p.Run()
	if m, ok := final.(Model); ok {
		if serr := prefs.Save(m.prefsPath, m.prefs); serr != nil && err == nil {
			err = fmt.Errorf("save console prefs: %w", serr)
		}
	}
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
