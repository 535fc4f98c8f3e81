package middleware

import (
	"context"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/rs/zerolog/log"

	"github.com/vkart/vkart-bot/internal/contextkeys"
	"github.com/vkart/vkart-bot/types"
)

type Middlewares struct {
	users types.UserStore
}

func New(users types.UserStore) *Middlewares {
	return &Middlewares{users: users}
}

// ResolveUser upserts the sender into the ledger on every update, so a user
// exists from first contact, and injects the row into the context. An upsert
// failure is logged and the update still flows through: the engine answers
// with a restart hint wherever it needs a resolved user id.
func (m *Middlewares) ResolveUser(next bot.HandlerFunc) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		var from *models.User

		switch {
		case update.Message != nil && update.Message.From != nil:
			from = update.Message.From
		case update.CallbackQuery != nil:
			from = &update.CallbackQuery.From
		}

		if from != nil && !from.IsBot {
			user, err := m.users.UpsertUser(ctx, types.UpsertUserParams{
				ChatID:    from.ID,
				Username:  from.Username,
				FirstName: from.FirstName,
				LastName:  from.LastName,
			})
			if err != nil {
				log.Error().Err(err).Int64("chat_id", from.ID).Msg("user upsert failed")
			} else {
				ctx = contextkeys.WithUser(ctx, user)
			}
		}

		next(ctx, b, update)
	}
}

// ClassifyUpdate tags the update as a command, free text or a button press so
// the engine can dispatch without re-inspecting the payload.
func (m *Middlewares) ClassifyUpdate(next bot.HandlerFunc) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		switch {
		case update.CallbackQuery != nil && update.CallbackQuery.Data != "":
			ctx = contextkeys.WithUpdateKind(ctx, contextkeys.UpdateKindClickButton)
			ctx = contextkeys.WithCallbackData(ctx, strings.TrimSpace(update.CallbackQuery.Data))
		case update.Message != nil && strings.HasPrefix(update.Message.Text, "/"):
			ctx = contextkeys.WithUpdateKind(ctx, contextkeys.UpdateKindCommand)
		case update.Message != nil && update.Message.Text != "":
			ctx = contextkeys.WithUpdateKind(ctx, contextkeys.UpdateKindText)
		default:
			ctx = contextkeys.WithUpdateKind(ctx, contextkeys.UpdateKindUnknown)
		}

		next(ctx, b, update)
	}
}
