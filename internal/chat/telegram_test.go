package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

func TestToEvents_Command(t *testing.T) {
	update := tgbotapi.Update{Message: &tgbotapi.Message{
		Date: 1700000000,
		From: &tgbotapi.User{ID: 7, UserName: "owner"},
		Chat: &tgbotapi.Chat{ID: -100, Title: "TBD"},
		Text: "/printdb  suggestions ",
		Entities: []tgbotapi.MessageEntity{
			{Type: "bot_command", Offset: 0, Length: 8},
		},
	}}

	events := toEvents(update)
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	ev := events[0]
	if ev.Kind != EventCommand || ev.Command != "printdb" || ev.Args != "suggestions" {
		t.Fatalf("event = %+v", ev)
	}
	if ev.UserID != 7 || ev.UserName != "@owner" || ev.ChatID != -100 {
		t.Fatalf("event = %+v", ev)
	}
	if !ev.At.Equal(time.Unix(1700000000, 0)) {
		t.Fatalf("At = %v", ev.At)
	}
}

func TestToEvents_Membership(t *testing.T) {
	update := tgbotapi.Update{Message: &tgbotapi.Message{
		Chat:           &tgbotapi.Chat{ID: -100, Title: "TBD"},
		NewChatMembers: []tgbotapi.User{{ID: 1, FirstName: "Ann"}, {ID: 2, UserName: "bob"}},
	}}
	events := toEvents(update)
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].Kind != EventMemberJoined || events[0].UserName != "Ann" {
		t.Fatalf("first event = %+v", events[0])
	}
	if events[1].UserName != "@bob" {
		t.Fatalf("second event = %+v", events[1])
	}

	left := toEvents(tgbotapi.Update{Message: &tgbotapi.Message{
		Chat:           &tgbotapi.Chat{ID: -100},
		LeftChatMember: &tgbotapi.User{ID: 3, FirstName: "Cy", LastName: "D"},
	}})
	if len(left) != 1 || left[0].Kind != EventMemberLeft || left[0].UserName != "Cy D" {
		t.Fatalf("left events = %+v", left)
	}
}

func TestToEvents_IgnoresPlainText(t *testing.T) {
	update := tgbotapi.Update{Message: &tgbotapi.Message{
		From: &tgbotapi.User{ID: 7},
		Chat: &tgbotapi.Chat{ID: 1},
		Text: "hello",
	}}
	if events := toEvents(update); len(events) != 0 {
		t.Fatalf("got %+v, want no events", events)
	}
	if events := toEvents(tgbotapi.Update{}); len(events) != 0 {
		t.Fatalf("got %+v for empty update", events)
	}
}

func TestSend_RetriesOnRateLimit(t *testing.T) {
	var calls int
	var waits []time.Duration
	tg := &Telegram{
		log: zap.NewNop(),
		send: func(c tgbotapi.Chattable) (tgbotapi.Message, error) {
			calls++
			if calls < 3 {
				return tgbotapi.Message{}, &tgbotapi.Error{
					Code:               429,
					Message:            "Too Many Requests",
					ResponseParameters: tgbotapi.ResponseParameters{RetryAfter: 2},
				}
			}
			msg := c.(tgbotapi.MessageConfig)
			if msg.Text != "hi" || msg.ChatID != 42 {
				t.Errorf("sent %+v", msg)
			}
			return tgbotapi.Message{}, nil
		},
		sleep: func(_ context.Context, d time.Duration) bool {
			waits = append(waits, d)
			return true
		},
	}

	if err := tg.Send(context.Background(), 42, "hi"); err != nil {
		t.Fatalf("Send returned error: %v", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
	if len(waits) != 2 || waits[0] != 2*time.Second {
		t.Fatalf("waits = %v", waits)
	}
}

func TestSend_DoesNotRetryOtherErrors(t *testing.T) {
	var calls int
	boom := errors.New("chat not found")
	tg := &Telegram{
		log: zap.NewNop(),
		send: func(tgbotapi.Chattable) (tgbotapi.Message, error) {
			calls++
			return tgbotapi.Message{}, boom
		},
		sleep: func(context.Context, time.Duration) bool { return true },
	}
	err := tg.Send(context.Background(), 1, "x")
	if !errors.Is(err, boom) {
		t.Fatalf("Send error = %v, want %v", err, boom)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestSend_StopsWhenContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	tg := &Telegram{
		log: zap.NewNop(),
		send: func(tgbotapi.Chattable) (tgbotapi.Message, error) {
			return tgbotapi.Message{}, &tgbotapi.Error{ResponseParameters: tgbotapi.ResponseParameters{RetryAfter: 30}}
		},
		sleep: sleep,
	}
	if err := tg.Send(ctx, 1, "x"); !errors.Is(err, context.Canceled) {
		t.Fatalf("Send error = %v, want context.Canceled", err)
	}
}

func TestEmojiLabel(t *testing.T) {
	if got := (Emoji{ID: "abc", Name: "🐱"}).Label(); got != "🐱" {
		t.Fatalf("Label() = %q", got)
	}
	if got := (Emoji{ID: "abc"}).Label(); got != "abc" {
		t.Fatalf("Label() = %q", got)
	}
}

func TestServe_WaitsForHandlers(t *testing.T) {
	updates := make(chan tgbotapi.Update, 1)
	updates <- tgbotapi.Update{Message: &tgbotapi.Message{
		From:     &tgbotapi.User{ID: 7},
		Chat:     &tgbotapi.Chat{ID: 7},
		Text:     "/kill",
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: 5}},
	}}

	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- serve(ctx, updates, func(context.Context, Event) {
			close(started)
			<-release
		})
	}()

	<-started
	cancel()
	select {
	case err := <-done:
		t.Fatalf("serve returned %v while a handler was still running", err)
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("serve error = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("serve did not return after handlers finished")
	}
}
