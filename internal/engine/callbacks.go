package engine

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/vkart/vkart-bot/internal/contextkeys"
	"github.com/vkart/vkart-bot/internal/messages"
	"github.com/vkart/vkart-bot/internal/notify"
	"github.com/vkart/vkart-bot/types"
)

func (e *Engine) handleCallback(ctx context.Context, chatID int64, session *types.Session, data string) {
	switch {
	case data == types.CallbackBuyCard:
		e.startPurchase(ctx, chatID)
	case data == types.CallbackPaymentDone:
		e.confirmPayment(ctx, chatID, session)
	case data == types.CallbackCancelPayment:
		e.sessions.Set(ctx, chatID, types.StateMainMenu, nil)
		notify.Quiet(ctx, e.notifier, chatID, messages.PaymentCancelled(), nil)
	case data == types.CallbackRedeemCard:
		e.startRedemption(ctx, chatID)
	case strings.HasPrefix(data, types.CallbackSelectCardPrefix):
		e.selectCard(ctx, chatID, session, strings.TrimPrefix(data, types.CallbackSelectCardPrefix))
	case data == types.CallbackMyCards:
		e.sendMyCards(ctx, chatID)
	case data == types.CallbackHelp:
		notify.Quiet(ctx, e.notifier, chatID, messages.Help(), nil)
	default:
		notify.Quiet(ctx, e.notifier, chatID, messages.Fallback(), nil)
	}
}

func (e *Engine) startPurchase(ctx context.Context, chatID int64) {
	data := map[string]interface{}{}
	if user, ok := contextkeys.GetUser(ctx); ok {
		data["user_id"] = user.ID
	}
	e.sessions.Set(ctx, chatID, types.StateWaitingCardBalance, data)
	notify.Quiet(ctx, e.notifier, chatID, messages.BuyPrompt(), nil)
}

// confirmPayment turns the accumulated flow data into a pending payment
// request. The order token minted when the user entered the confirmation
// state makes the insert idempotent, so a retried webhook delivery of the
// same tap cannot create a second request.
func (e *Engine) confirmPayment(ctx context.Context, chatID int64, session *types.Session) {
	cardBalance, ok := session.DataFloat("card_balance")
	if session.State != types.StateWaitingPaymentConfirmation || !ok {
		e.sessions.Set(ctx, chatID, types.StateMainMenu, nil)
		notify.Quiet(ctx, e.notifier, chatID, messages.PaymentFlowBroken(), nil)
		return
	}

	userID := e.resolveUserID(ctx, session)
	if userID == "" {
		notify.Quiet(ctx, e.notifier, chatID, messages.UserNotResolved(), nil)
		return
	}

	serviceFee, _ := session.DataFloat("service_fee")
	totalAmount, _ := session.DataFloat("total_amount")

	payment, err := e.ledger.CreatePaymentRequest(ctx, types.CreatePaymentRequestParams{
		UserID:      userID,
		CardBalance: cardBalance,
		ServiceFee:  serviceFee,
		TotalAmount: totalAmount,
		ClientToken: session.DataString("order_token"),
	})
	if err != nil {
		log.Error().Err(err).Int64("chat_id", chatID).Msg("payment request creation failed")
		notify.Quiet(ctx, e.notifier, chatID, messages.RequestCreateFailed(), nil)
		return
	}

	e.sessions.Set(ctx, chatID, types.StateMainMenu, nil)
	notify.Quiet(ctx, e.notifier, chatID, messages.PaymentRequestCreated(payment.ID), nil)
}

func (e *Engine) startRedemption(ctx context.Context, chatID int64) {
	user, ok := contextkeys.GetUser(ctx)
	if !ok {
		notify.Quiet(ctx, e.notifier, chatID, messages.UserNotResolved(), nil)
		return
	}

	cards, err := e.ledger.ListRedeemableCards(ctx, user.ID)
	if err != nil {
		log.Error().Err(err).Int64("chat_id", chatID).Msg("listing redeemable cards failed")
		e.sessions.Set(ctx, chatID, types.StateMainMenu, nil)
		notify.Quiet(ctx, e.notifier, chatID, messages.RequestCreateFailed(), nil)
		return
	}
	if len(cards) == 0 {
		e.sessions.Set(ctx, chatID, types.StateMainMenu, nil)
		notify.Quiet(ctx, e.notifier, chatID, messages.NoRedeemableCards(), nil)
		return
	}

	e.sessions.Set(ctx, chatID, types.StateWaitingCardSelection, map[string]interface{}{
		"user_id": user.ID,
	})
	notify.Quiet(ctx, e.notifier, chatID, messages.ChooseCardToRedeem(), cardSelectionKeyboard(cards))
}

func (e *Engine) selectCard(ctx context.Context, chatID int64, session *types.Session, cardID string) {
	if session.State != types.StateWaitingCardSelection || cardID == "" {
		notify.Quiet(ctx, e.notifier, chatID, messages.Fallback(), nil)
		return
	}

	e.sessions.Set(ctx, chatID, types.StateWaitingTRXAddress, map[string]interface{}{
		"selected_card_id": cardID,
		"user_id":          e.resolveUserID(ctx, session),
		"order_token":      uuid.NewString(),
	})
	notify.Quiet(ctx, e.notifier, chatID, messages.AskTRXAddress(), nil)
}
