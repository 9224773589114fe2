// Package notify delivers job failure notifications. Telegram is the
// only wired channel; without it failures are surfaced through the log.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/mymmrac/telego"
	"golang.org/x/time/rate"

	"github.com/aatumaykin/cronbot/internal/config"
	"github.com/aatumaykin/cronbot/internal/logger"
)

// Notifier reports a failed job run.
type Notifier interface {
	NotifyError(ctx context.Context, job string, jobErr error) error
}

// BotInterface is the slice of the Telegram bot API the notifier uses.
// It allows mock implementations in tests.
type BotInterface interface {
	SendMessage(ctx context.Context, params *telego.SendMessageParams) (*telego.Message, error)
}

// FromConfig builds the configured notifier: Telegram when enabled,
// otherwise the log fallback.
func FromConfig(cfg config.NotifyConfig, log *logger.Logger) (Notifier, error) {
	if cfg.Telegram.Enabled {
		return NewTelegramNotifier(cfg.Telegram, log)
	}
	return NewLogNotifier(log), nil
}

// LogNotifier reports failures through the application log.
type LogNotifier struct {
	logger *logger.Logger
}

func NewLogNotifier(log *logger.Logger) *LogNotifier {
	if log == nil {
		log = logger.Nop()
	}
	return &LogNotifier{logger: log}
}

func (n *LogNotifier) NotifyError(ctx context.Context, job string, jobErr error) error {
	n.logger.ErrorCtx(ctx, "Job failed", jobErr,
		logger.Field{Key: "job", Value: job})
	return nil
}

// TelegramNotifier sends failure messages to a chat, paced by a token
// bucket so bursts of failing jobs do not hit the Bot API limits.
type TelegramNotifier struct {
	bot     BotInterface
	chatID  int64
	limiter *rate.Limiter
	logger  *logger.Logger
	now     func() time.Time
}

const defaultMessagesPerMinute = 20

// NewTelegramNotifier connects a notifier to the Bot API.
func NewTelegramNotifier(cfg config.TelegramConfig, log *logger.Logger) (*TelegramNotifier, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("telegram token cannot be empty")
	}
	bot, err := telego.NewBot(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return newTelegramNotifier(bot, cfg, log)
}

func newTelegramNotifier(bot BotInterface, cfg config.TelegramConfig, log *logger.Logger) (*TelegramNotifier, error) {
	if cfg.ChatID == 0 {
		return nil, fmt.Errorf("telegram chat_id cannot be empty")
	}
	if log == nil {
		log = logger.Nop()
	}
	perMinute := cfg.MessagesPerMinute
	if perMinute <= 0 {
		perMinute = defaultMessagesPerMinute
	}
	return &TelegramNotifier{
		bot:     bot,
		chatID:  cfg.ChatID,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1),
		logger:  log,
		now:     time.Now,
	}, nil
}

func (n *TelegramNotifier) NotifyError(ctx context.Context, job string, jobErr error) error {
	if err := n.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("notification rate limit: %w", err)
	}

	text := fmt.Sprintf("🚨 Job failed: %s\n\nError: %v\nTime: %s",
		job, jobErr, n.now().Format(time.RFC3339))
	_, err := n.bot.SendMessage(ctx, &telego.SendMessageParams{
		ChatID: telego.ChatID{ID: n.chatID},
		Text:   text,
	})
	if err != nil {
		return fmt.Errorf("send telegram notification: %w", err)
	}

	n.logger.DebugCtx(ctx, "Failure notification sent",
		logger.Field{Key: "job", Value: job})
	return nil
}
