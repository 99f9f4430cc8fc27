package commands

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"

	"github.com/five82/steward/internal/chat"
	"github.com/five82/steward/internal/report"
	"github.com/five82/steward/internal/store"
)

const (
	rankingPreamble = "Here's a table of least-used emojis:"
	errorsPreamble  = "There have been new errors:\n"
	statsSample     = 3

	fenceOpen  = "```\n"
	fenceClose = "```"
)

func (h *Handler) register() {
	h.add(&command{name: "help", usage: "help", help: "list commands", run: h.help})
	h.add(&command{name: "stats", usage: "stats", help: "bot statistics", run: h.stats})
	h.add(&command{name: "poast", usage: "poast <chat id>, <text>", help: "send a message to a chat", ownerOnly: true, run: h.poast}, "post")
	h.add(&command{name: "kill", usage: "kill", help: "shut the bot down", ownerOnly: true, shutdown: true, run: h.kill})
	h.add(&command{name: "least_used_emojis", usage: "least_used_emojis", help: "rank emojis by use", ownerOnly: true, run: h.leastUsedEmojis}, "emojis")
	h.add(&command{name: "dbs", usage: "dbs", help: "list database tables", ownerOnly: true, run: h.dbs})
	h.add(&command{name: "printdb", usage: "printdb <table>", help: "preview a table", ownerOnly: true, run: h.printdb})
	h.add(&command{name: "errors", usage: "errors", help: "new lines in the error log", ownerOnly: true, run: h.errorLog})
}

func (h *Handler) help(_ context.Context, req Request) ([]string, error) {
	return []string{h.helpText(req.UserID)}, nil
}

func (h *Handler) stats(ctx context.Context, _ Request) ([]string, error) {
	st, err := h.store.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}

	now := h.cfg.Now()
	var b strings.Builder
	fmt.Fprintf(&b, "Up since %s (%s).\n", h.cfg.StartedAt.Format("2006-01-02 15:04:05"),
		humanize.RelTime(h.cfg.StartedAt, now, "ago", "from now"))
	fmt.Fprintf(&b, "%s suggestions, %s titles used, %s pending memories.\n",
		humanize.Comma(st.Suggestions), humanize.Comma(st.Titles), humanize.Comma(st.PendingMemories))
	fmt.Fprintf(&b, "Reactions: %s default, %s custom.",
		humanize.Comma(st.DefaultReactions), humanize.Comma(st.CustomReactions))

	emojis, err := h.platform.Emojis(ctx)
	if err != nil {
		return nil, fmt.Errorf("stats: emojis: %w", err)
	}
	if len(emojis) > 0 {
		names := emojiNames(emojis)
		sample, err := h.store.RandomEmojis(ctx, emojiIDs(emojis), statsSample)
		if err != nil {
			return nil, fmt.Errorf("stats: %w", err)
		}
		for _, e := range sample {
			fmt.Fprintf(&b, "\n%s has been used %s.", labelFor(e, names), english.Plural(e.Uses, "time", "times"))
		}
	}
	return []string{b.String()}, nil
}

func (h *Handler) poast(ctx context.Context, req Request) ([]string, error) {
	target, text, ok := strings.Cut(req.Args, ",")
	text = strings.TrimSpace(text)
	if !ok || text == "" {
		return nil, fmt.Errorf("%w: /poast <chat id>, <text>", ErrUsage)
	}
	chatID, err := strconv.ParseInt(strings.TrimSpace(target), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: /poast <chat id>, <text> (bad chat id %q)", ErrUsage, strings.TrimSpace(target))
	}
	if err := h.platform.Send(ctx, chatID, text); err != nil {
		return nil, fmt.Errorf("poast to %d: %w", chatID, err)
	}
	return []string{"Sent."}, nil
}

func (h *Handler) kill(_ context.Context, _ Request) ([]string, error) {
	h.log.Warn("shutdown requested")
	return []string{"Shutting down."}, nil
}

func (h *Handler) leastUsedEmojis(ctx context.Context, _ Request) ([]string, error) {
	emojis, err := h.platform.Emojis(ctx)
	if err != nil {
		return nil, fmt.Errorf("least_used_emojis: %w", err)
	}
	usage, err := h.store.EmojiUsage(ctx, emojiIDs(emojis))
	if err != nil {
		return nil, fmt.Errorf("least_used_emojis: %w", err)
	}

	names := emojiNames(emojis)
	recorded := make(map[string]bool, len(usage))
	used := make([]report.Record, 0, len(usage))
	for _, u := range usage {
		recorded[u.ID] = true
		used = append(used, report.Record{Key: u.Uses, Label: labelFor(u, names)})
	}
	var unused []report.Record
	for _, e := range emojis {
		if !recorded[e.ID] {
			unused = append(unused, report.Record{Key: 0, Label: e.Label()})
		}
	}

	sealed, open := report.PackGroups(report.Rank(unused, used), h.cfg.RankingChunk, ", ",
		report.WithPreamble(rankingPreamble),
		report.WithCeiling(h.cfg.RankingCeiling),
	)
	return report.Chunks(sealed, open), nil
}

func (h *Handler) dbs(ctx context.Context, _ Request) ([]string, error) {
	tables, err := h.store.Tables(ctx)
	if err != nil {
		return nil, fmt.Errorf("dbs: %w", err)
	}
	blocks := make([]string, 0, len(tables))
	for _, t := range tables {
		blocks = append(blocks, fmt.Sprintf("\nTable: %s. Number of rows: %d.\n```\n%s\n```", t.Name, t.Rows, t.SQL))
	}
	return report.Chunks(report.PackBlocks(blocks, h.cfg.TableChunk)), nil
}

func (h *Handler) printdb(ctx context.Context, req Request) ([]string, error) {
	name := strings.TrimSpace(req.Args)
	if name == "" {
		return nil, fmt.Errorf("%w: /printdb <table>", ErrUsage)
	}
	p, err := h.store.Preview(ctx, name, h.cfg.PreviewRows)
	if errors.Is(err, store.ErrUnknownTable) {
		known, lerr := h.store.Previewable(ctx)
		if lerr != nil {
			return nil, fmt.Errorf("printdb: %w", lerr)
		}
		return nil, fmt.Errorf("%w: /printdb <table>, one of: %s", ErrUsage, strings.Join(known, ", "))
	}
	if err != nil {
		return nil, fmt.Errorf("printdb: %w", err)
	}

	header := fmt.Sprintf("First %d rows of %s:\n", len(p.Rows), p.Table)
	return report.Chunks(report.PackBlocks([]string{"```\n" + renderTable(p) + "\n```"}, h.cfg.TableChunk,
		report.WithPreamble(header))), nil
}

func (h *Handler) errorLog(ctx context.Context, _ Request) ([]string, error) {
	res, err := h.window.Poll(ctx, h.cfg.ErrorLogPath)
	if err != nil {
		return nil, fmt.Errorf("errors: %w", err)
	}
	if !res.Changed || strings.TrimSpace(res.Text) == "" {
		return []string{fmt.Sprintf("There have been no new errors. The log was last modified %s, %s.",
			res.Watermark.Format("2006-01-02 15:04:05"),
			humanize.RelTime(res.Watermark, h.cfg.Now(), "ago", "from now"))}, nil
	}
	return ErrorChunks(res.Text, h.cfg.TableChunk), nil
}

// ErrorChunks packs an error-log snapshot into reply chunks, one log line per
// unit so a line is never split across messages. Each chunk's lines are
// fenced as code; the first chunk carries the header before its fence.
func ErrorChunks(text string, maxSize int) []string {
	lines := strings.SplitAfter(text, "\n")
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	if len(lines) == 0 {
		return nil
	}
	n := len(lines)
	if !strings.HasSuffix(lines[n-1], "\n") {
		lines[n-1] += "\n"
	}

	budget := max(maxSize-len(errorsPreamble)-len(fenceOpen)-len(fenceClose), 1)
	bodies := report.Chunks(report.PackBlocks(lines, budget))
	chunks := make([]string, len(bodies))
	for i, body := range bodies {
		chunks[i] = fenceOpen + body + fenceClose
	}
	chunks[0] = errorsPreamble + chunks[0]
	return chunks
}

func renderTable(p store.Preview) string {
	t := table.New().
		Border(lipgloss.ASCIIBorder()).
		Headers(p.Columns...).
		Rows(p.Rows...)
	return t.String()
}

func emojiIDs(emojis []chat.Emoji) []string {
	ids := make([]string, len(emojis))
	for i, e := range emojis {
		ids[i] = e.ID
	}
	return ids
}

func emojiNames(emojis []chat.Emoji) map[string]string {
	names := make(map[string]string, len(emojis))
	for _, e := range emojis {
		names[e.ID] = e.Label()
	}
	return names
}

func labelFor(u store.EmojiUsage, names map[string]string) string {
	if label, ok := names[u.ID]; ok {
		return label
	}
	if u.Name != "" {
		return u.Name
	}
	return u.ID
}
