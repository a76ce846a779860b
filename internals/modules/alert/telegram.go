package alert

import (
	"context"
	"fmt"
	"strings"

	"healthwatch/config"

	"github.com/go-telegram/bot"
)

// TelegramNotifier sends plain text messages to one chat.
type TelegramNotifier struct {
	bot    *bot.Bot
	chatID int64
}

func NewTelegramNotifier(cfg config.TelegramConfig) (*TelegramNotifier, error) {
	opts := []bot.Option{bot.WithSkipGetMe()}
	if cfg.ServerURL != "" {
		opts = append(opts, bot.WithServerURL(cfg.ServerURL))
	}

	b, err := bot.New(cfg.Token, opts...)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return &TelegramNotifier{bot: b, chatID: cfg.ChatID}, nil
}

func (n *TelegramNotifier) Name() string { return config.ChannelTelegram }

func (n *TelegramNotifier) Send(ctx context.Context, p AlertPayload) error {
	_, err := n.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: n.chatID,
		Text:   formatPlainText(p),
	})
	return err
}

// formatPlainText is shared by the text-only channels.
func formatPlainText(p AlertPayload) string {
	var sb strings.Builder

	switch p.Kind {
	case KindDown:
		sb.WriteString("🚨 ")
	case KindRecovered:
		sb.WriteString("✅ ")
	}
	sb.WriteString(p.Title)
	sb.WriteString("\n")
	sb.WriteString(p.Message)
	sb.WriteString("\n")

	for _, f := range p.Fields {
		fmt.Fprintf(&sb, "\n%s: %s", f.Title, f.Value)
	}
	if !p.Timestamp.IsZero() {
		fmt.Fprintf(&sb, "\nAt: %s", p.Timestamp.UTC().Format("2006-01-02 15:04:05 MST"))
	}
	return sb.String()
}
