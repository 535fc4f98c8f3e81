package engine

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/vkart/vkart-bot/internal/messages"
	"github.com/vkart/vkart-bot/internal/notify"
	"github.com/vkart/vkart-bot/store"
	"github.com/vkart/vkart-bot/types"
)

func (e *Engine) handleText(ctx context.Context, chatID int64, session *types.Session, text string) {
	switch session.State {
	case types.StateWaitingCardBalance:
		e.acceptCardBalance(ctx, chatID, session, text)
	case types.StateWaitingTRXAddress:
		e.acceptTRXAddress(ctx, chatID, session, text)
	default:
		notify.Quiet(ctx, e.notifier, chatID, messages.Fallback(), nil)
	}
}

// acceptCardBalance validates the requested balance. Validation failures
// re-prompt without a transition; success computes the fee breakdown, mints
// the order token and moves to the confirmation state.
func (e *Engine) acceptCardBalance(ctx context.Context, chatID int64, session *types.Session, text string) {
	amount, err := ParseAmount(text)
	if err != nil {
		var reply string
		switch {
		case errors.Is(err, ErrAmountTooSmall):
			reply = messages.AmountTooSmall()
		case errors.Is(err, ErrAmountTooLarge):
			reply = messages.AmountTooLarge()
		default:
			reply = messages.AmountNotANumber()
		}
		notify.Quiet(ctx, e.notifier, chatID, reply, nil)
		return
	}

	serviceFee := amount * messages.ServiceFeeRate
	totalAmount := amount + serviceFee

	e.sessions.Set(ctx, chatID, types.StateWaitingPaymentConfirmation, map[string]interface{}{
		"card_balance": amount,
		"service_fee":  serviceFee,
		"total_amount": totalAmount,
		"user_id":      e.resolveUserID(ctx, session),
		"order_token":  uuid.NewString(),
	})

	wallet := e.settings.PayoutWalletAddress()
	notify.Quiet(ctx, e.notifier, chatID,
		messages.PaymentInstructions(amount, serviceFee, totalAmount, wallet),
		paymentConfirmKeyboard())
}

// acceptTRXAddress finishes the redemption flow. The card balance is re-read
// from the ledger here rather than trusted from the selection step: an admin
// may have changed it in between, and the request must state the payout owed
// at creation time.
func (e *Engine) acceptTRXAddress(ctx context.Context, chatID int64, session *types.Session, text string) {
	text = strings.TrimSpace(text)
	if !ValidTRXAddress(text) {
		notify.Quiet(ctx, e.notifier, chatID, messages.InvalidTRXAddress(), nil)
		return
	}

	cardID := session.DataString("selected_card_id")
	userID := e.resolveUserID(ctx, session)
	if cardID == "" || userID == "" {
		e.sessions.Set(ctx, chatID, types.StateMainMenu, nil)
		notify.Quiet(ctx, e.notifier, chatID, messages.CardNotFound(), nil)
		return
	}

	card, err := e.ledger.GetCard(ctx, cardID)
	if err != nil {
		if !errors.Is(err, store.ErrNoRow) {
			log.Error().Err(err).Int64("chat_id", chatID).Str("card_id", cardID).Msg("card lookup failed")
		}
		e.sessions.Set(ctx, chatID, types.StateMainMenu, nil)
		notify.Quiet(ctx, e.notifier, chatID, messages.CardNotFound(), nil)
		return
	}

	redemption, err := e.ledger.CreateRedemptionRequest(ctx, types.CreateRedemptionRequestParams{
		UserID:           userID,
		CardID:           card.ID,
		RemainingBalance: card.Balance,
		TRXWalletAddress: text,
		ClientToken:      session.DataString("order_token"),
	})
	if err != nil {
		log.Error().Err(err).Int64("chat_id", chatID).Msg("redemption request creation failed")
		notify.Quiet(ctx, e.notifier, chatID, messages.RequestCreateFailed(), nil)
		return
	}

	e.sessions.Set(ctx, chatID, types.StateMainMenu, nil)
	notify.Quiet(ctx, e.notifier, chatID, messages.RedemptionRequestCreated(redemption.ID), nil)
}
