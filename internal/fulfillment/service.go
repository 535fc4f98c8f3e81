package fulfillment

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/vkart/vkart-bot/internal/messages"
	"github.com/vkart/vkart-bot/internal/notify"
	"github.com/vkart/vkart-bot/store"
	"github.com/vkart/vkart-bot/types"
)

// Service executes the privileged admin actions that turn pending requests
// into committed outcomes. Every mutation is a conditional update on the
// prior status, so retrying an already-settled request fails with ErrConflict
// instead of re-applying the effect. Notifications are dispatched after the
// authoritative transition commits and their failures are only logged.
type Service struct {
	ledger   types.LedgerStore
	notifier notify.Notifier
}

func NewService(ledger types.LedgerStore, notifier notify.Notifier) *Service {
	return &Service{
		ledger:   ledger,
		notifier: notifier,
	}
}

func mapNoRow(err error, what string) error {
	if errors.Is(err, store.ErrNoRow) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return err
}

// ApprovePayment flips the payment to approved and assigns the card to the
// user, payment first. The card assignment is a compare-and-swap on the
// unassigned state, which closes the window where two approvals could hand
// out the same card; losing that race rolls the payment back to pending.
func (s *Service) ApprovePayment(ctx context.Context, paymentID, cardID, userID string) error {
	payment, err := s.ledger.GetPaymentRequest(ctx, paymentID)
	if err != nil {
		return mapNoRow(err, "payment")
	}
	if payment.Status != types.StatusPending {
		return fmt.Errorf("payment is %s: %w", payment.Status, ErrConflict)
	}

	card, err := s.ledger.GetCard(ctx, cardID)
	if err != nil {
		return mapNoRow(err, "card")
	}
	if card.IsAssigned || card.IsUsed {
		return fmt.Errorf("card is not available: %w", ErrConflict)
	}

	user, err := s.ledger.GetUser(ctx, userID)
	if err != nil {
		return mapNoRow(err, "user")
	}

	ok, err := s.ledger.SetPaymentStatus(ctx, paymentID, types.StatusPending, types.StatusApproved)
	if err != nil {
		return fmt.Errorf("approving payment: %w", err)
	}
	if !ok {
		return fmt.Errorf("payment settled concurrently: %w", ErrConflict)
	}

	ok, err = s.ledger.AssignCard(ctx, cardID, userID)
	if err != nil || !ok {
		// Roll the payment back to pending so the admin can approve again
		// with a different card. Without this the payment would be stuck
		// approved with no card attached.
		if reverted, revertErr := s.ledger.SetPaymentStatus(ctx, paymentID, types.StatusApproved, types.StatusPending); revertErr != nil || !reverted {
			log.Error().Err(revertErr).
				Str("payment_id", paymentID).
				Str("card_id", cardID).
				Msg("payment approval could not be reverted after card assignment failed")
		}
		if err != nil {
			return fmt.Errorf("assigning card: %w", err)
		}
		return fmt.Errorf("card taken concurrently: %w", ErrConflict)
	}

	// Audit record only; its failure does not roll back the assignment.
	if err := s.ledger.RecordTransaction(ctx, types.Transaction{
		UserID: userID,
		CardID: cardID,
		Type:   types.TransactionTypePurchase,
		Amount: payment.CardBalance,
		Status: "completed",
		Details: map[string]interface{}{
			"payment_id": paymentID,
			"chat_id":    user.ChatID,
		},
	}); err != nil {
		log.Warn().Err(err).Str("payment_id", paymentID).Msg("transaction record failed")
	}

	notify.Quiet(ctx, s.notifier, user.ChatID, messages.CardReady(), nil)
	return nil
}

func (s *Service) RejectPayment(ctx context.Context, paymentID string) error {
	payment, err := s.ledger.GetPaymentRequest(ctx, paymentID)
	if err != nil {
		return mapNoRow(err, "payment")
	}
	if payment.Status != types.StatusPending {
		return fmt.Errorf("payment is %s: %w", payment.Status, ErrConflict)
	}

	ok, err := s.ledger.SetPaymentStatus(ctx, paymentID, types.StatusPending, types.StatusRejected)
	if err != nil {
		return fmt.Errorf("rejecting payment: %w", err)
	}
	if !ok {
		return fmt.Errorf("payment settled concurrently: %w", ErrConflict)
	}

	if user, err := s.ledger.GetUser(ctx, payment.UserID); err == nil {
		notify.Quiet(ctx, s.notifier, user.ChatID, messages.PaymentRejected(), nil)
	}
	return nil
}

// CompleteRedemption finalizes the redemption record before touching the
// card: if retiring the card fails past that point the completed redemption
// is still on the books, which beats double-crediting the payout. That late
// failure is a degraded success, logged but not returned.
func (s *Service) CompleteRedemption(ctx context.Context, redemptionID string) error {
	redemption, err := s.ledger.GetRedemptionRequest(ctx, redemptionID)
	if err != nil {
		return mapNoRow(err, "redemption")
	}
	if redemption.Status != types.StatusPending {
		return fmt.Errorf("redemption is %s: %w", redemption.Status, ErrConflict)
	}

	card, err := s.ledger.GetCard(ctx, redemption.CardID)
	if err != nil {
		return mapNoRow(err, "card")
	}

	ok, err := s.ledger.SetRedemptionStatus(ctx, redemptionID, types.StatusPending, types.StatusCompleted)
	if err != nil {
		return fmt.Errorf("completing redemption: %w", err)
	}
	if !ok {
		return fmt.Errorf("redemption settled concurrently: %w", ErrConflict)
	}

	retired, err := s.ledger.RetireCard(ctx, card.ID)
	if err != nil || !retired {
		log.Error().Err(err).
			Str("redemption_id", redemptionID).
			Str("card_id", card.ID).
			Msg("redemption completed but card retirement failed; card state is stale")
	}

	if err := s.ledger.RecordTransaction(ctx, types.Transaction{
		UserID: redemption.UserID,
		CardID: card.ID,
		Type:   types.TransactionTypeRedemption,
		Amount: redemption.RemainingBalance,
		Status: "completed",
		Details: map[string]interface{}{
			"redemption_id": redemptionID,
		},
	}); err != nil {
		log.Warn().Err(err).Str("redemption_id", redemptionID).Msg("transaction record failed")
	}

	if user, err := s.ledger.GetUser(ctx, redemption.UserID); err == nil {
		notify.Quiet(ctx, s.notifier, user.ChatID, messages.RedemptionCompleted(redemption.RemainingBalance), nil)
	}
	return nil
}

func (s *Service) RejectRedemption(ctx context.Context, redemptionID string) error {
	redemption, err := s.ledger.GetRedemptionRequest(ctx, redemptionID)
	if err != nil {
		return mapNoRow(err, "redemption")
	}
	if redemption.Status != types.StatusPending {
		return fmt.Errorf("redemption is %s: %w", redemption.Status, ErrConflict)
	}

	ok, err := s.ledger.SetRedemptionStatus(ctx, redemptionID, types.StatusPending, types.StatusRejected)
	if err != nil {
		return fmt.Errorf("rejecting redemption: %w", err)
	}
	if !ok {
		return fmt.Errorf("redemption settled concurrently: %w", ErrConflict)
	}

	if user, err := s.ledger.GetUser(ctx, redemption.UserID); err == nil {
		notify.Quiet(ctx, s.notifier, user.ChatID, messages.RedemptionRejected(), nil)
	}
	return nil
}

// AddCard registers a new unassigned card in the inventory.
func (s *Service) AddCard(ctx context.Context, params types.CreateCardParams) (*types.Card, error) {
	card, err := s.ledger.CreateCard(ctx, params)
	if errors.Is(err, store.ErrDuplicateCard) {
		return nil, fmt.Errorf("card number already registered: %w", ErrConflict)
	}
	if err != nil {
		return nil, err
	}
	return card, nil
}

// UpdateCardBalance sets a card's balance and, when the card is assigned,
// tells the owner about the change.
func (s *Service) UpdateCardBalance(ctx context.Context, cardID string, newBalance float64) error {
	card, err := s.ledger.GetCard(ctx, cardID)
	if err != nil {
		return mapNoRow(err, "card")
	}
	if card.IsUsed && newBalance != 0 {
		return fmt.Errorf("card is retired: %w", ErrConflict)
	}

	if err := s.ledger.UpdateCardBalance(ctx, cardID, newBalance); err != nil {
		return mapNoRow(err, "card")
	}

	if card.UserID != nil {
		if user, err := s.ledger.GetUser(ctx, *card.UserID); err == nil {
			notify.Quiet(ctx, s.notifier, user.ChatID,
				messages.BalanceUpdated(card.LastFour(), card.Balance, newBalance), nil)
		}
	}
	return nil
}
