package notify

import (
	"context"
	"fmt"
	"time"

	tele "gopkg.in/telebot.v4"

	"pullupd/pkg/logx"
)

// TelegramConfig configures the send-only Telegram sink.
type TelegramConfig struct {
	Token  string
	ChatID int64
}

// Telegram pushes alerts to a single chat. The bot never polls for
// updates; it exists purely as an outbound channel.
type Telegram struct {
	bot  *tele.Bot
	chat *tele.Chat
	log  logx.Logger
}

func NewTelegram(cfg TelegramConfig, log logx.Logger) (*Telegram, error) {
	if cfg.Token == "" || cfg.ChatID == 0 {
		return nil, fmt.Errorf("telegram: token and chat_id are required")
	}
	bot, err := tele.NewBot(tele.Settings{Token: cfg.Token})
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}
	return &Telegram{
		bot:  bot,
		chat: &tele.Chat{ID: cfg.ChatID},
		log:  log,
	}, nil
}

func (t *Telegram) Name() string { return "telegram" }

func (t *Telegram) Send(ctx context.Context, n Notification) error {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		_, err := t.bot.Send(t.chat, "*"+n.Title+"*\n"+n.Body, tele.ModeMarkdown)
		done <- err
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}
