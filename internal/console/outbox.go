package console

import (
	"context"
	"slices"

	"github.com/five82/steward/internal/chat"
)

// Message is one message sent through an Outbox.
type Message struct {
	ChatID int64
	Text   string
}

// Outbox is a chat.Platform that delivers into the console transcript
// instead of a chat service. It is used when no Telegram token is configured.
type Outbox struct {
	ch     chan Message
	emojis []chat.Emoji
}

var _ chat.Platform = (*Outbox)(nil)

// NewOutbox returns an Outbox offering emojis as its catalogue.
func NewOutbox(emojis ...chat.Emoji) *Outbox {
	return &Outbox{ch: make(chan Message, 64), emojis: emojis}
}

// Send queues text for display. It blocks while the transcript is backed up.
func (o *Outbox) Send(ctx context.Context, chatID int64, text string) error {
	select {
	case o.ch <- Message{ChatID: chatID, Text: text}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Emojis returns the configured catalogue.
func (o *Outbox) Emojis(context.Context) ([]chat.Emoji, error) {
	return slices.Clone(o.emojis), nil
}

// Messages returns the delivery channel.
func (o *Outbox) Messages() <-chan Message {
	return o.ch
}
