package notify

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/mymmrac/telego"

	"github.com/aatumaykin/cronbot/internal/config"
	"github.com/aatumaykin/cronbot/internal/logger"
)

type fakeBot struct {
	sent []telego.SendMessageParams
	err  error
}

func (f *fakeBot) SendMessage(ctx context.Context, params *telego.SendMessageParams) (*telego.Message, error) {
	f.sent = append(f.sent, *params)
	if f.err != nil {
		return nil, f.err
	}
	return &telego.Message{}, nil
}

func TestFromConfigDisabled(t *testing.T) {
	n, err := FromConfig(config.NotifyConfig{}, logger.Nop())
	if err != nil {
		t.Fatalf("FromConfig() error = %v", err)
	}
	if _, ok := n.(*LogNotifier); !ok {
		t.Errorf("expected LogNotifier, got %T", n)
	}
}

func TestLogNotifier(t *testing.T) {
	n := NewLogNotifier(logger.Nop())
	if err := n.NotifyError(context.Background(), "daily", errors.New("boom")); err != nil {
		t.Fatalf("NotifyError() error = %v", err)
	}
}

func TestTelegramNotifierValidation(t *testing.T) {
	if _, err := newTelegramNotifier(&fakeBot{}, config.TelegramConfig{}, logger.Nop()); err == nil {
		t.Error("expected error for missing chat_id")
	}
	if _, err := NewTelegramNotifier(config.TelegramConfig{ChatID: 1}, logger.Nop()); err == nil {
		t.Error("expected error for missing token")
	}
}

func TestTelegramNotifierSend(t *testing.T) {
	bot := &fakeBot{}
	n, err := newTelegramNotifier(bot, config.TelegramConfig{ChatID: 42}, logger.Nop())
	if err != nil {
		t.Fatalf("newTelegramNotifier() error = %v", err)
	}
	n.now = func() time.Time {
		return time.Date(2026, time.March, 14, 9, 26, 53, 0, time.UTC)
	}

	if err := n.NotifyError(context.Background(), "daily", errors.New("disk full")); err != nil {
		t.Fatalf("NotifyError() error = %v", err)
	}

	if len(bot.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(bot.sent))
	}
	msg := bot.sent[0]
	if msg.ChatID.ID != 42 {
		t.Errorf("ChatID = %d, want 42", msg.ChatID.ID)
	}
	for _, want := range []string{"daily", "disk full", "2026-03-14T09:26:53Z"} {
		if !strings.Contains(msg.Text, want) {
			t.Errorf("message %q missing %q", msg.Text, want)
		}
	}
}

func TestTelegramNotifierSendFailure(t *testing.T) {
	bot := &fakeBot{err: errors.New("bad gateway")}
	n, err := newTelegramNotifier(bot, config.TelegramConfig{ChatID: 42}, logger.Nop())
	if err != nil {
		t.Fatalf("newTelegramNotifier() error = %v", err)
	}

	if err := n.NotifyError(context.Background(), "daily", errors.New("boom")); err == nil {
		t.Error("expected error when the send fails")
	}
}

func TestTelegramNotifierRateLimit(t *testing.T) {
	bot := &fakeBot{}
	n, err := newTelegramNotifier(bot, config.TelegramConfig{ChatID: 42, MessagesPerMinute: 1}, logger.Nop())
	if err != nil {
		t.Fatalf("newTelegramNotifier() error = %v", err)
	}

	// first send consumes the only token
	if err := n.NotifyError(context.Background(), "a", errors.New("x")); err != nil {
		t.Fatalf("NotifyError() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := n.NotifyError(ctx, "b", errors.New("y")); err == nil {
		t.Error("expected rate limit wait to fail on an expired context")
	}
	if len(bot.sent) != 1 {
		t.Errorf("sent %d messages, want the second to be limited", len(bot.sent))
	}
}
