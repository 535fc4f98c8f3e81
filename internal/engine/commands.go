package engine

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/vkart/vkart-bot/internal/contextkeys"
	"github.com/vkart/vkart-bot/internal/messages"
	"github.com/vkart/vkart-bot/internal/notify"
	"github.com/vkart/vkart-bot/types"
)

func (e *Engine) handleCommand(ctx context.Context, chatID int64, session *types.Session, text string) {
	fields := strings.Fields(strings.TrimSpace(text))
	if len(fields) == 0 {
		return
	}
	cmd := fields[0]
	if strings.Contains(cmd, "@") {
		cmd = strings.SplitN(cmd, "@", 2)[0]
	}

	switch cmd {
	case "/start":
		firstName := ""
		if user, ok := contextkeys.GetUser(ctx); ok {
			firstName = user.FirstName
		}
		e.sessions.Set(ctx, chatID, types.StateMainMenu, nil)
		notify.Quiet(ctx, e.notifier, chatID, messages.Welcome(firstName), mainMenuKeyboard())
	case "/mycards":
		e.sendMyCards(ctx, chatID)
	case "/help":
		notify.Quiet(ctx, e.notifier, chatID, messages.Help(), nil)
	default:
		notify.Quiet(ctx, e.notifier, chatID, messages.Fallback(), nil)
	}
}

func (e *Engine) sendMyCards(ctx context.Context, chatID int64) {
	user, ok := contextkeys.GetUser(ctx)
	if !ok {
		notify.Quiet(ctx, e.notifier, chatID, messages.UserNotResolved(), nil)
		return
	}
	cards, err := e.ledger.ListUserCards(ctx, user.ID)
	if err != nil {
		log.Error().Err(err).Int64("chat_id", chatID).Msg("listing user cards failed")
		notify.Quiet(ctx, e.notifier, chatID, messages.RequestCreateFailed(), nil)
		return
	}
	if len(cards) == 0 {
		notify.Quiet(ctx, e.notifier, chatID, messages.NoCards(), nil)
		return
	}
	notify.Quiet(ctx, e.notifier, chatID, messages.MyCards(cards), nil)
}
