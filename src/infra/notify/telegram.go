package notify

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/denniswebb/mediacms/src/features/importing"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Ensure TelegramNotifier implements importing.Notifier
var _ importing.Notifier = (*TelegramNotifier)(nil)

// TelegramNotifier pushes import outcomes to a Telegram chat. It is best
// effort: a delivery failure is logged and never affects the import itself.
type TelegramNotifier struct {
	bot     *tgbotapi.BotAPI
	chatID  int64
	enabled bool
}

// NewTelegramNotifier creates a notifier for the given bot token and chat.
// When disabled or the token is invalid the notifier stays silent.
func NewTelegramNotifier(token string, chatID int64, enabled bool) *TelegramNotifier {
	if !enabled || token == "" {
		return &TelegramNotifier{}
	}

	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		slog.Error("TelegramNotifier: failed to initialize bot, notifications disabled", "error", err)
		return &TelegramNotifier{}
	}

	slog.Info("TelegramNotifier: connected", "account", bot.Self.UserName)
	return &TelegramNotifier{bot: bot, chatID: chatID, enabled: true}
}

// NotifyOutcome sends one message describing a decided import.
func (n *TelegramNotifier) NotifyOutcome(ctx context.Context, record *importing.ImportRecord) {
	if !n.enabled {
		return
	}

	msg := tgbotapi.NewMessage(n.chatID, formatOutcome(record))
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := n.bot.Send(msg); err != nil {
		slog.Error("TelegramNotifier.NotifyOutcome: send failed", "error", err, "record", record.ID)
	}
}

func formatOutcome(record *importing.ImportRecord) string {
	name := filepath.Base(record.SourcePath)
	switch record.Outcome {
	case importing.OutcomeImported:
		return fmt.Sprintf("✅ *Imported* `%s`\nMedia: `%s`", name, record.MediaID)
	case importing.OutcomeDuplicate:
		return fmt.Sprintf("♻️ *Duplicate* `%s`\n%s", name, record.Detail)
	case importing.OutcomeFailed:
		return fmt.Sprintf("❌ *Failed* `%s`\n%s", name, record.Detail)
	default:
		return fmt.Sprintf("ℹ️ `%s`: %s", name, record.Outcome)
	}
}
