package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/five82/steward/internal/chat"
	"github.com/five82/steward/internal/commands"
	"github.com/five82/steward/internal/config"
	"github.com/five82/steward/internal/console"
	"github.com/five82/steward/internal/logging"
	"github.com/five82/steward/internal/state"
	"github.com/five82/steward/internal/store"
)

// Mode selects the transport commands arrive on.
type Mode int

const (
	// ModeBot listens for commands on Telegram.
	ModeBot Mode = iota
	// ModeConsole reads commands from the local terminal.
	ModeConsole
)

// consoleOwner stands in for the owner id when the console runs without one
// configured; the operator at the terminal is the owner.
const consoleOwner int64 = 1

const backupTimeout = 30 * time.Second

// Options configure the steward application.
type Options struct {
	ConfigPath string
	PrefsPath  string // empty uses default ~/.config/steward/console.toml
	Mode       Mode
	Verbose    bool
	LogOutput  io.Writer // console log destination in bot mode; nil is stderr
}

// Run boots steward until the context is cancelled or the kill command runs.
func Run(ctx context.Context, opts Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logOut := opts.LogOutput
	if opts.Mode == ModeConsole {
		logOut = io.Discard
	}
	logs, err := logging.New(logging.Options{
		Dir:     cfg.Logs.Dir,
		Level:   cfg.Logs.Level,
		Verbose: opts.Verbose,
		Console: logOut,
	})
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer func() { _ = logs.Close() }()
	log := logs.Logger

	db, err := store.Open(ctx, cfg.Store.Path, cfg.Store.Tables)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer closeStore(db, cfg.Store.BackupDir, log)
	if err := db.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("prepare store: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		tg     *chat.Telegram
		outbox *console.Outbox
	)
	if opts.Mode == ModeBot || cfg.Telegram.Token != "" {
		tg, err = chat.NewTelegram(chat.TelegramConfig{
			Token:      cfg.Telegram.Token,
			StickerSet: cfg.Telegram.StickerSet,
			Logger:     log,
		})
		if err != nil {
			return fmt.Errorf("connect telegram: %w", err)
		}
	} else {
		outbox = console.NewOutbox()
	}
	var platform chat.Platform = outbox
	if tg != nil {
		platform = tg
	}

	ownerID := cfg.Telegram.OwnerID
	if opts.Mode == ModeConsole && ownerID == 0 {
		ownerID = consoleOwner
	}

	handler := commands.New(commands.Config{
		OwnerID:        ownerID,
		ErrorLogPath:   cfg.ErrorLogPath(),
		RankingChunk:   cfg.Limits.RankingChunk,
		RankingCeiling: cfg.Limits.RankingCeiling,
		TableChunk:     cfg.Limits.TableChunk,
		PreviewRows:    cfg.Store.PreviewRows,
		Shutdown:       cancel,
	}, db, platform, log, logs.Membership)

	feed := &state.Store{}
	g, gctx := errgroup.WithContext(ctx)

	if cfg.Watch.Enabled {
		var notify Notifier
		if opts.Mode == ModeBot {
			notify = notifyChat(platform, notifyTarget(cfg), cfg.Limits.TableChunk, log)
		}
		w := NewWatcher(handler.Window(), cfg.ErrorLogPath(), feed,
			time.Duration(cfg.Watch.IntervalSeconds)*time.Second, notify, log)
		g.Go(func() error { return w.Run(gctx) })
	}

	switch opts.Mode {
	case ModeConsole:
		g.Go(func() error {
			defer cancel()
			return console.Run(console.Options{
				Context:   gctx,
				Runner:    handler,
				Feed:      feed,
				Outbox:    outbox,
				OwnerID:   ownerID,
				ThemeName: cfg.Console.Theme,
				PrefsPath: opts.PrefsPath,
			})
		})
	default:
		if cfg.Telegram.OwnerID == 0 {
			log.Warn("no owner_id configured, owner commands are disabled")
		}
		log.Info("listening for commands")
		g.Go(func() error {
			err := tg.Listen(gctx, func(ctx context.Context, ev chat.Event) {
				handler.Dispatch(ctx, ev, func(text string) error {
					return tg.Send(ctx, ev.ChatID, text)
				})
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	if err := g.Wait(); err != nil {
		log.Error("steward stopped", zap.Error(err))
		return err
	}
	log.Info("steward stopped")
	return nil
}

func notifyTarget(cfg config.Config) int64 {
	if cfg.Watch.NotifyChat != 0 {
		return cfg.Watch.NotifyChat
	}
	return cfg.Telegram.OwnerID
}

// notifyChat sends each new error snapshot to chatID, packed like the errors
// command's reply.
func notifyChat(platform chat.Platform, chatID int64, maxSize int, log *zap.Logger) Notifier {
	return func(ctx context.Context, snap state.Snapshot) {
		if chatID == 0 {
			return
		}
		for _, chunk := range commands.ErrorChunks(snap.Text, maxSize) {
			if err := platform.Send(ctx, chatID, chunk); err != nil {
				// Warn, not Error: an Error entry would trigger another notification.
				log.Warn("error notification failed", zap.Int64("chat_id", chatID), zap.Error(err))
				return
			}
		}
	}
}

// closeStore snapshots the database into backupDir, then closes it.
func closeStore(db *store.Store, backupDir string, log *zap.Logger) {
	if backupDir != "" {
		ctx, cancel := context.WithTimeout(context.Background(), backupTimeout)
		path, err := db.Backup(ctx, backupDir)
		cancel()
		if err != nil {
			log.Error("backup failed", zap.Error(err))
		} else {
			log.Info("backup written", zap.String("path", path))
		}
	}
	if err := db.Close(); err != nil {
		log.Error("close store", zap.Error(err))
	}
}
