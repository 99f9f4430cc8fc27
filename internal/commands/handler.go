// Package commands implements the bot's administrative command surface.
//
// A Handler turns a command request into an ordered list of reply chunks,
// each small enough to be delivered as one chat message. Long output goes
// through the report packer; the errors command goes through a logtail window
// owned by the Handler, so the watermark survives across invocations for the
// life of the process.
package commands

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/five82/steward/internal/chat"
	"github.com/five82/steward/internal/logtail"
	"github.com/five82/steward/internal/store"
)

// Errors returned by Handle. They are converted into replies by ErrorReply.
var (
	ErrNotOwner       = errors.New("owner only")
	ErrUnknownCommand = errors.New("unknown command")
	ErrUsage          = errors.New("usage")
)

// Store is the subset of the database the commands read.
type Store interface {
	Stats(ctx context.Context) (store.Stats, error)
	EmojiUsage(ctx context.Context, ids []string) ([]store.EmojiUsage, error)
	RandomEmojis(ctx context.Context, ids []string, n int) ([]store.EmojiUsage, error)
	Tables(ctx context.Context) ([]store.Table, error)
	Previewable(ctx context.Context) ([]string, error)
	Preview(ctx context.Context, table string, limit int) (store.Preview, error)
}

// Config holds the Handler's settings.
type Config struct {
	OwnerID      int64
	ErrorLogPath string

	RankingChunk   int
	RankingCeiling int
	TableChunk     int
	PreviewRows    int

	StartedAt time.Time
	// Shutdown is called once the kill command's reply has been delivered.
	Shutdown func()
	// Now acts as time.Now, but can be mocked for testing.
	Now func() time.Time
}

// Request is one command invocation.
type Request struct {
	UserID int64
	ChatID int64
	Name   string
	Args   string
}

type command struct {
	name      string
	usage     string
	help      string
	ownerOnly bool
	shutdown  bool // stop the process after the reply is out
	run       func(ctx context.Context, req Request) ([]string, error)
}

// Handler dispatches commands.
type Handler struct {
	cfg        Config
	store      Store
	platform   chat.Platform
	window     *logtail.Window
	log        *zap.Logger
	membership *zap.Logger
	commands   map[string]*command
	aliases    map[string]string
}

// New returns a Handler. The error-log window is created here and lives as
// long as the Handler.
func New(cfg Config, st Store, platform chat.Platform, log, membership *zap.Logger) *Handler {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.StartedAt.IsZero() {
		cfg.StartedAt = cfg.Now()
	}
	if cfg.Shutdown == nil {
		cfg.Shutdown = func() {}
	}
	if log == nil {
		log = zap.NewNop()
	}
	if membership == nil {
		membership = zap.NewNop()
	}
	h := &Handler{
		cfg:        cfg,
		store:      st,
		platform:   platform,
		window:     logtail.NewWindow(logtail.DefaultWindowSize),
		log:        log,
		membership: membership,
	}
	h.register()
	return h
}

// Window returns the error-log window shared with background watchers.
func (h *Handler) Window() *logtail.Window { return h.window }

// Handle runs one command and returns its reply chunks in delivery order.
// A shutdown command calls Config.Shutdown before Handle returns; Dispatch
// defers it until the reply is sent.
func (h *Handler) Handle(ctx context.Context, req Request) ([]string, error) {
	chunks, shutdown, err := h.handle(ctx, req)
	if shutdown {
		h.cfg.Shutdown()
	}
	return chunks, err
}

func (h *Handler) handle(ctx context.Context, req Request) ([]string, bool, error) {
	name := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(req.Name), "/"))
	if alias, ok := h.aliases[name]; ok {
		name = alias
	}
	cmd, ok := h.commands[name]
	if !ok {
		return nil, false, fmt.Errorf("%w %q", ErrUnknownCommand, name)
	}
	if cmd.ownerOnly && !h.isOwner(req.UserID) {
		return nil, false, fmt.Errorf("%s: %w", name, ErrNotOwner)
	}
	h.log.Info("command", zap.String("command", name), zap.Int64("user_id", req.UserID), zap.Int64("chat_id", req.ChatID))
	chunks, err := cmd.run(ctx, req)
	return chunks, cmd.shutdown && err == nil, err
}

// Dispatch handles a platform event end to end: commands are run and every
// reply chunk is passed to reply; membership events are logged and reported
// to the owner. Failures are logged and turned into a user-facing reply.
func (h *Handler) Dispatch(ctx context.Context, ev chat.Event, reply func(string) error) {
	switch ev.Kind {
	case chat.EventMemberJoined, chat.EventMemberLeft:
		h.memberEvent(ctx, ev)
		return
	}

	chunks, shutdown, err := h.handle(ctx, Request{UserID: ev.UserID, ChatID: ev.ChatID, Name: ev.Command, Args: ev.Args})
	if shutdown {
		defer h.cfg.Shutdown()
	}
	if err != nil {
		h.logFailure(ev.Command, err)
		chunks = []string{ErrorReply(err)}
	}
	for _, chunk := range chunks {
		if err := reply(chunk); err != nil {
			h.log.Error("reply failed", zap.String("command", ev.Command), zap.Error(err))
			return
		}
	}
}

// ErrorReply converts a Handle error into a message for the user.
func ErrorReply(err error) string {
	switch {
	case errors.Is(err, ErrNotOwner):
		return "Only the bot owner can do that."
	case errors.Is(err, ErrUnknownCommand):
		return "I don't know that command. Try /help."
	case errors.Is(err, ErrUsage):
		return "Usage: " + strings.TrimPrefix(err.Error(), ErrUsage.Error()+": ")
	case errors.Is(err, logtail.ErrSourceUnavailable):
		return "I can't read the error log right now."
	case errors.Is(err, context.Canceled):
		return "Cancelled."
	default:
		return "Something went wrong, check the error log."
	}
}

func (h *Handler) logFailure(name string, err error) {
	switch {
	case errors.Is(err, ErrUsage), errors.Is(err, ErrUnknownCommand):
		h.log.Debug("command rejected", zap.String("command", name), zap.Error(err))
	case errors.Is(err, ErrNotOwner):
		h.log.Warn("command denied", zap.String("command", name), zap.Error(err))
	default:
		h.log.Error("command failed", zap.String("command", name), zap.Error(err))
	}
}

func (h *Handler) isOwner(userID int64) bool {
	return h.cfg.OwnerID != 0 && userID == h.cfg.OwnerID
}

func (h *Handler) memberEvent(ctx context.Context, ev chat.Event) {
	verb := "joined"
	if ev.Kind == chat.EventMemberLeft {
		verb = "left"
	}
	h.membership.Warn("member "+verb,
		zap.Int64("user_id", ev.UserID),
		zap.String("user", ev.UserName),
		zap.Int64("chat_id", ev.ChatID),
		zap.String("chat", ev.ChatTitle),
	)
	if h.cfg.OwnerID == 0 {
		return
	}
	text := fmt.Sprintf("User %s (%d) %s %s (%d).", ev.UserName, ev.UserID, verb, ev.ChatTitle, ev.ChatID)
	if err := h.platform.Send(ctx, h.cfg.OwnerID, text); err != nil {
		h.log.Error("notify owner failed", zap.Error(err))
	}
}

// helpText lists the commands visible to userID.
func (h *Handler) helpText(userID int64) string {
	var b strings.Builder
	b.WriteString("Commands:")
	for _, name := range h.Names() {
		cmd := h.commands[name]
		if cmd.ownerOnly && !h.isOwner(userID) {
			continue
		}
		fmt.Fprintf(&b, "\n/%s", cmd.usage)
		if cmd.help != "" {
			b.WriteString(" - " + cmd.help)
		}
	}
	return b.String()
}

func (h *Handler) add(cmd *command, aliases ...string) {
	if h.commands == nil {
		h.commands = make(map[string]*command)
		h.aliases = make(map[string]string)
	}
	h.commands[cmd.name] = cmd
	for _, a := range aliases {
		h.aliases[a] = cmd.name
	}
}

// Names returns the registered command names, sorted.
func (h *Handler) Names() []string {
	names := make([]string, 0, len(h.commands))
	for name := range h.commands {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
