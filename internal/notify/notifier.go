package notify

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/rs/zerolog/log"

	"github.com/vkart/vkart-bot/internal/messages"
)

// Notifier delivers a formatted message to a chat. It is the only outbound
// surface the engine and the fulfillment service know about.
type Notifier interface {
	Send(ctx context.Context, chatID int64, text string, keyboard *models.InlineKeyboardMarkup) error
}

// Quiet sends and swallows the outcome. The user-visible workflow must never
// fail because a chat message could not be delivered.
func Quiet(ctx context.Context, n Notifier, chatID int64, text string, keyboard *models.InlineKeyboardMarkup) {
	if err := n.Send(ctx, chatID, text, keyboard); err != nil {
		log.Warn().Err(err).Int64("chat_id", chatID).Msg("notification failed")
	}
}

// TelegramNotifier adapts the bot client to the Notifier contract.
type TelegramNotifier struct {
	bot *bot.Bot
}

func NewTelegramNotifier(b *bot.Bot) *TelegramNotifier {
	return &TelegramNotifier{bot: b}
}

func (t *TelegramNotifier) Send(ctx context.Context, chatID int64, text string, keyboard *models.InlineKeyboardMarkup) error {
	params := &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: messages.ParseModeMarkdown,
	}
	if keyboard != nil {
		params.ReplyMarkup = keyboard
	}
	_, err := t.bot.SendMessage(ctx, params)
	return err
}
