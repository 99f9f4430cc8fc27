package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

const (
	sendRetryLimit = 5 // N attempts to retry message sending
	pollTimeout    = 60
)

// TelegramConfig configures a Telegram platform.
type TelegramConfig struct {
	Token      string
	StickerSet string
	Logger     *zap.Logger
}

// Telegram talks to the Telegram Bot API.
type Telegram struct {
	api        *tgbotapi.BotAPI
	stickerSet string
	log        *zap.Logger
	send       func(tgbotapi.Chattable) (tgbotapi.Message, error)
	sleep      func(context.Context, time.Duration) bool
}

// NewTelegram authenticates with the Bot API.
func NewTelegram(cfg TelegramConfig) (*Telegram, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log.Info("authorized on telegram", zap.String("account", api.Self.UserName))
	return &Telegram{
		api:        api,
		stickerSet: cfg.StickerSet,
		log:        log,
		send:       api.Send,
		sleep:      sleep,
	}, nil
}

// Listen delivers incoming events to handle until ctx is cancelled. Each event
// is handled on its own goroutine so a slow command does not stall the update
// loop. Listen returns only after every handler it started has finished.
func (t *Telegram) Listen(ctx context.Context, handle func(context.Context, Event)) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = pollTimeout
	updates := t.api.GetUpdatesChan(u)
	defer t.api.StopReceivingUpdates()

	return serve(ctx, updates, handle)
}

func serve(ctx context.Context, updates tgbotapi.UpdatesChannel, handle func(context.Context, Event)) error {
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return errors.New("telegram update channel closed")
			}
			for _, ev := range toEvents(update) {
				wg.Add(1)
				go func() {
					defer wg.Done()
					handle(ctx, ev)
				}()
			}
		}
	}
}

// Send delivers text to chatID, waiting out rate limits.
func (t *Telegram) Send(ctx context.Context, chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true

	var err error
	for range sendRetryLimit {
		_, err = t.send(msg)
		if err == nil {
			return nil
		}
		wait, ok := retryAfter(err)
		if !ok {
			break
		}
		t.log.Warn("sending rate limited, waiting", zap.Int64("chat_id", chatID), zap.Duration("wait", wait))
		if !t.sleep(ctx, wait) {
			return ctx.Err()
		}
	}
	return fmt.Errorf("send to %d: %w", chatID, err)
}

// Emojis lists the stickers of the configured sticker set.
func (t *Telegram) Emojis(ctx context.Context) ([]Emoji, error) {
	if t.stickerSet == "" {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	set, err := t.api.GetStickerSet(tgbotapi.GetStickerSetConfig{Name: t.stickerSet})
	if err != nil {
		return nil, fmt.Errorf("get sticker set %s: %w", t.stickerSet, err)
	}
	emojis := make([]Emoji, 0, len(set.Stickers))
	for _, s := range set.Stickers {
		emojis = append(emojis, Emoji{ID: s.FileUniqueID, Name: s.Emoji})
	}
	return emojis, nil
}

func toEvents(update tgbotapi.Update) []Event {
	msg := update.Message
	if msg == nil || msg.Chat == nil {
		return nil
	}
	base := Event{
		ChatID:    msg.Chat.ID,
		ChatTitle: msg.Chat.Title,
		At:        time.Unix(int64(msg.Date), 0),
	}

	var events []Event
	for _, member := range msg.NewChatMembers {
		ev := base
		ev.Kind = EventMemberJoined
		ev.UserID = member.ID
		ev.UserName = displayName(&member)
		events = append(events, ev)
	}
	if msg.LeftChatMember != nil {
		ev := base
		ev.Kind = EventMemberLeft
		ev.UserID = msg.LeftChatMember.ID
		ev.UserName = displayName(msg.LeftChatMember)
		events = append(events, ev)
	}
	if msg.IsCommand() && msg.From != nil {
		ev := base
		ev.Kind = EventCommand
		ev.UserID = msg.From.ID
		ev.UserName = displayName(msg.From)
		ev.Command = msg.Command()
		ev.Args = strings.TrimSpace(msg.CommandArguments())
		events = append(events, ev)
	}
	return events
}

func displayName(u *tgbotapi.User) string {
	if u.UserName != "" {
		return "@" + u.UserName
	}
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

func retryAfter(err error) (time.Duration, bool) {
	var apiErr *tgbotapi.Error
	if !errors.As(err, &apiErr) || apiErr.RetryAfter <= 0 {
		return 0, false
	}
	return time.Duration(apiErr.RetryAfter) * time.Second, true
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

var _ Platform = (*Telegram)(nil)
