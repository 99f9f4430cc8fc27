package chat

import (
	"context"
	"time"
)

// Platform delivers messages and describes the community's emojis.
type Platform interface {
	Send(ctx context.Context, chatID int64, text string) error
	Emojis(ctx context.Context) ([]Emoji, error)
}

// Emoji is a custom emoji known to the platform.
type Emoji struct {
	ID   string
	Name string
}

// Label renders the emoji for inclusion in a message.
func (e Emoji) Label() string {
	if e.Name == "" {
		return e.ID
	}
	return e.Name
}

// EventKind identifies what an Event carries.
type EventKind int

const (
	EventCommand EventKind = iota
	EventMemberJoined
	EventMemberLeft
)

// Event is a normalized incoming update.
type Event struct {
	Kind      EventKind
	ChatID    int64
	ChatTitle string
	UserID    int64
	UserName  string
	// Command and Args are set for EventCommand.
	Command string
	Args    string
	At      time.Time
}
