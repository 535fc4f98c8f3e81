package engine

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/vkart/vkart-bot/internal/contextkeys"
	"github.com/vkart/vkart-bot/internal/messages"
	"github.com/vkart/vkart-bot/internal/notify"
	"github.com/vkart/vkart-bot/types"
)

// Engine drives the per-chat conversation state machine. It owns the session
// store; the ledger is written only when a flow completes. All outbound
// traffic goes through the notifier, so the engine never touches the bot
// client directly and the flows run unchanged under test.
type Engine struct {
	sessions types.SessionStore
	ledger   types.LedgerStore
	settings types.SettingsStore
	notifier notify.Notifier
}

func New(sessions types.SessionStore, ledger types.LedgerStore, settings types.SettingsStore, notifier notify.Notifier) *Engine {
	return &Engine{
		sessions: sessions,
		ledger:   ledger,
		settings: settings,
		notifier: notifier,
	}
}

// Handler adapts the engine to the bot's handler signature. Button presses
// are acknowledged here so Telegram stops the client-side spinner.
func (e *Engine) Handler() bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		if update.CallbackQuery != nil {
			_, _ = b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
				CallbackQueryID: update.CallbackQuery.ID,
			})
		}
		e.HandleUpdate(ctx, update)
	}
}

// HandleUpdate reads the session snapshot once and dispatches on the update
// kind. Concurrent updates for one chat are last-set-wins by design; chat
// platforms deliver per-chat updates serially in practice.
func (e *Engine) HandleUpdate(ctx context.Context, update *models.Update) {
	chatID := chatIDFromUpdate(update)
	if chatID == 0 {
		return
	}

	session := e.sessions.Get(ctx, chatID)
	kind, _ := contextkeys.GetUpdateKind(ctx)

	switch kind {
	case contextkeys.UpdateKindCommand:
		e.handleCommand(ctx, chatID, session, update.Message.Text)
	case contextkeys.UpdateKindClickButton:
		data, _ := contextkeys.GetCallbackData(ctx)
		e.handleCallback(ctx, chatID, session, data)
	case contextkeys.UpdateKindText:
		e.handleText(ctx, chatID, session, update.Message.Text)
	default:
		notify.Quiet(ctx, e.notifier, chatID, messages.Fallback(), nil)
	}
}

func chatIDFromUpdate(update *models.Update) int64 {
	if update == nil {
		return 0
	}
	if update.Message != nil {
		return update.Message.Chat.ID
	}
	if update.CallbackQuery != nil {
		if update.CallbackQuery.Message.Message != nil {
			return update.CallbackQuery.Message.Message.Chat.ID
		}
		if update.CallbackQuery.Message.InaccessibleMessage != nil {
			return update.CallbackQuery.Message.InaccessibleMessage.Chat.ID
		}
	}
	return 0
}

// resolveUserID prefers the id captured when the flow started and falls back
// to the user resolved for this update.
func (e *Engine) resolveUserID(ctx context.Context, session *types.Session) string {
	if id := session.DataString("user_id"); id != "" {
		return id
	}
	if user, ok := contextkeys.GetUser(ctx); ok {
		return user.ID
	}
	return ""
}

func mainMenuKeyboard() *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{{Text: messages.BtnBuyCard, CallbackData: types.CallbackBuyCard}},
			{{Text: messages.BtnRedeemCard, CallbackData: types.CallbackRedeemCard}},
			{{Text: messages.BtnMyCards, CallbackData: types.CallbackMyCards}},
			{{Text: messages.BtnHelp, CallbackData: types.CallbackHelp}},
		},
	}
}

func paymentConfirmKeyboard() *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{{Text: messages.BtnPaymentOK, CallbackData: types.CallbackPaymentDone}},
			{{Text: messages.BtnCancel, CallbackData: types.CallbackCancelPayment}},
		},
	}
}

func cardSelectionKeyboard(cards []types.Card) *models.InlineKeyboardMarkup {
	rows := make([][]models.InlineKeyboardButton, 0, len(cards))
	for i := range cards {
		card := &cards[i]
		rows = append(rows, []models.InlineKeyboardButton{{
			Text:         messages.CardOption(card),
			CallbackData: types.CallbackSelectCardPrefix + card.ID,
		}})
	}
	return &models.InlineKeyboardMarkup{InlineKeyboard: rows}
}
