package fulfillment

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vkart/vkart-bot/internal/messages"
	"github.com/vkart/vkart-bot/store"
	"github.com/vkart/vkart-bot/types"
)

type sentMessage struct {
	chatID int64
	text   string
}

type recorderNotifier struct {
	sent []sentMessage
	fail bool
}

func (r *recorderNotifier) Send(_ context.Context, chatID int64, text string, _ *models.InlineKeyboardMarkup) error {
	if r.fail {
		return fmt.Errorf("telegram unreachable")
	}
	r.sent = append(r.sent, sentMessage{chatID: chatID, text: text})
	return nil
}

// ledgerFake backs the service with in-memory rows. Conditional updates
// behave like the real store: they report false when the row is not in the
// expected prior state.
type ledgerFake struct {
	users        map[string]*types.User
	cards        map[string]*types.Card
	payments     map[string]*types.PaymentRequest
	redemptions  map[string]*types.RedemptionRequest
	transactions []types.Transaction

	failRetire bool
	loseAssign bool
}

func newLedgerFake() *ledgerFake {
	return &ledgerFake{
		users:       map[string]*types.User{},
		cards:       map[string]*types.Card{},
		payments:    map[string]*types.PaymentRequest{},
		redemptions: map[string]*types.RedemptionRequest{},
	}
}

func (f *ledgerFake) UpsertUser(_ context.Context, _ types.UpsertUserParams) (*types.User, error) {
	return nil, fmt.Errorf("not used")
}

func (f *ledgerFake) GetUser(_ context.Context, id string) (*types.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, store.ErrNoRow
	}
	return u, nil
}

func (f *ledgerFake) GetUserByChatID(_ context.Context, _ int64) (*types.User, error) {
	return nil, store.ErrNoRow
}

func (f *ledgerFake) ListUsers(_ context.Context) ([]types.User, error) { return nil, nil }

func (f *ledgerFake) CreateCard(_ context.Context, params types.CreateCardParams) (*types.Card, error) {
	for _, c := range f.cards {
		if c.CardNumber == params.CardNumber {
			return nil, store.ErrDuplicateCard
		}
	}
	c := &types.Card{
		ID:         fmt.Sprintf("card-%d", len(f.cards)+1),
		CardNumber: params.CardNumber,
		CVV:        params.CVV,
		ExpiryDate: params.ExpiryDate,
		Balance:    params.Balance,
	}
	f.cards[c.ID] = c
	return c, nil
}

func (f *ledgerFake) GetCard(_ context.Context, id string) (*types.Card, error) {
	c, ok := f.cards[id]
	if !ok {
		return nil, store.ErrNoRow
	}
	return c, nil
}

func (f *ledgerFake) GetCardByNumber(_ context.Context, _ string) (*types.Card, error) {
	return nil, store.ErrNoRow
}

func (f *ledgerFake) ListCards(_ context.Context) ([]types.Card, error)          { return nil, nil }
func (f *ledgerFake) ListAvailableCards(_ context.Context) ([]types.Card, error) { return nil, nil }
func (f *ledgerFake) ListUserCards(_ context.Context, _ string) ([]types.Card, error) {
	return nil, nil
}
func (f *ledgerFake) ListRedeemableCards(_ context.Context, _ string) ([]types.Card, error) {
	return nil, nil
}

func (f *ledgerFake) AssignCard(_ context.Context, cardID, userID string) (bool, error) {
	if f.loseAssign {
		return false, nil
	}
	c, ok := f.cards[cardID]
	if !ok || c.IsAssigned || c.IsUsed {
		return false, nil
	}
	now := time.Now()
	c.IsAssigned = true
	c.UserID = &userID
	c.AssignedAt = &now
	return true, nil
}

func (f *ledgerFake) RetireCard(_ context.Context, cardID string) (bool, error) {
	if f.failRetire {
		return false, fmt.Errorf("connection reset")
	}
	c, ok := f.cards[cardID]
	if !ok || c.IsUsed {
		return false, nil
	}
	c.IsUsed = true
	c.Balance = 0
	return true, nil
}

func (f *ledgerFake) UpdateCardBalance(_ context.Context, cardID string, balance float64) error {
	c, ok := f.cards[cardID]
	if !ok {
		return store.ErrNoRow
	}
	c.Balance = balance
	return nil
}

func (f *ledgerFake) CreatePaymentRequest(_ context.Context, _ types.CreatePaymentRequestParams) (*types.PaymentRequest, error) {
	return nil, fmt.Errorf("not used")
}

func (f *ledgerFake) GetPaymentRequest(_ context.Context, id string) (*types.PaymentRequest, error) {
	p, ok := f.payments[id]
	if !ok {
		return nil, store.ErrNoRow
	}
	return p, nil
}

func (f *ledgerFake) ListPaymentRequests(_ context.Context) ([]types.PaymentRequest, error) {
	return nil, nil
}

func (f *ledgerFake) SetPaymentStatus(_ context.Context, id string, from, to types.RequestStatus) (bool, error) {
	p, ok := f.payments[id]
	if !ok || p.Status != from {
		return false, nil
	}
	p.Status = to
	return true, nil
}

func (f *ledgerFake) CreateRedemptionRequest(_ context.Context, _ types.CreateRedemptionRequestParams) (*types.RedemptionRequest, error) {
	return nil, fmt.Errorf("not used")
}

func (f *ledgerFake) GetRedemptionRequest(_ context.Context, id string) (*types.RedemptionRequest, error) {
	r, ok := f.redemptions[id]
	if !ok {
		return nil, store.ErrNoRow
	}
	return r, nil
}

func (f *ledgerFake) ListRedemptionRequests(_ context.Context) ([]types.RedemptionRequest, error) {
	return nil, nil
}

func (f *ledgerFake) SetRedemptionStatus(_ context.Context, id string, from, to types.RequestStatus) (bool, error) {
	r, ok := f.redemptions[id]
	if !ok || r.Status != from {
		return false, nil
	}
	r.Status = to
	return true, nil
}

func (f *ledgerFake) RecordTransaction(_ context.Context, t types.Transaction) error {
	f.transactions = append(f.transactions, t)
	return nil
}

func (f *ledgerFake) Stats(_ context.Context) (*types.DashboardStats, error) {
	return &types.DashboardStats{}, nil
}

func seed(f *ledgerFake) {
	f.users["user-1"] = &types.User{ID: "user-1", ChatID: 42, FirstName: "Ada"}
	f.cards["card-1"] = &types.Card{ID: "card-1", CardNumber: "4111111111111111", Balance: 1000}
	f.payments["payment-1"] = &types.PaymentRequest{
		ID: "payment-1", UserID: "user-1", CardBalance: 1000, ServiceFee: 200,
		TotalAmount: 1200, Status: types.StatusPending,
	}
	f.redemptions["redemption-1"] = &types.RedemptionRequest{
		ID: "redemption-1", UserID: "user-1", CardID: "card-1",
		RemainingBalance: 750, Status: types.StatusPending,
	}
}

func TestApprovePayment(t *testing.T) {
	ledger := newLedgerFake()
	seed(ledger)
	notifier := &recorderNotifier{}
	svc := NewService(ledger, notifier)

	err := svc.ApprovePayment(context.Background(), "payment-1", "card-1", "user-1")
	require.NoError(t, err)

	assert.Equal(t, types.StatusApproved, ledger.payments["payment-1"].Status)
	card := ledger.cards["card-1"]
	assert.True(t, card.IsAssigned)
	require.NotNil(t, card.UserID)
	assert.Equal(t, "user-1", *card.UserID)

	require.Len(t, ledger.transactions, 1)
	assert.Equal(t, types.TransactionTypePurchase, ledger.transactions[0].Type)

	require.Len(t, notifier.sent, 1)
	assert.Equal(t, int64(42), notifier.sent[0].chatID)
	assert.Equal(t, messages.CardReady(), notifier.sent[0].text)
}

func TestApprovePaymentTwice(t *testing.T) {
	ledger := newLedgerFake()
	seed(ledger)
	svc := NewService(ledger, &recorderNotifier{})

	require.NoError(t, svc.ApprovePayment(context.Background(), "payment-1", "card-1", "user-1"))

	err := svc.ApprovePayment(context.Background(), "payment-1", "card-1", "user-1")
	assert.ErrorIs(t, err, ErrConflict)

	// The second attempt changes nothing.
	assert.Equal(t, "user-1", *ledger.cards["card-1"].UserID)
	assert.Equal(t, types.StatusApproved, ledger.payments["payment-1"].Status)
}

func TestApprovePaymentCardTaken(t *testing.T) {
	ledger := newLedgerFake()
	seed(ledger)
	other := "user-2"
	ledger.cards["card-1"].IsAssigned = true
	ledger.cards["card-1"].UserID = &other
	svc := NewService(ledger, &recorderNotifier{})

	err := svc.ApprovePayment(context.Background(), "payment-1", "card-1", "user-1")
	assert.ErrorIs(t, err, ErrConflict)

	// The payment stays pending so the admin can pick a different card.
	assert.Equal(t, types.StatusPending, ledger.payments["payment-1"].Status)
	assert.Equal(t, other, *ledger.cards["card-1"].UserID)
}

func TestApprovePaymentLosingCardRaceRevertsPayment(t *testing.T) {
	ledger := newLedgerFake()
	seed(ledger)
	// The precondition read sees the card unassigned, but the conditional
	// assignment loses to a concurrent approval.
	ledger.loseAssign = true
	notifier := &recorderNotifier{}
	svc := NewService(ledger, notifier)

	err := svc.ApprovePayment(context.Background(), "payment-1", "card-1", "user-1")
	assert.ErrorIs(t, err, ErrConflict)

	assert.Equal(t, types.StatusPending, ledger.payments["payment-1"].Status,
		"payment must return to pending so it can be approved with another card")
	assert.False(t, ledger.cards["card-1"].IsAssigned)
	assert.Empty(t, notifier.sent)
	assert.Empty(t, ledger.transactions)

	// With the race gone the same payment approves cleanly.
	ledger.loseAssign = false
	require.NoError(t, svc.ApprovePayment(context.Background(), "payment-1", "card-1", "user-1"))
	assert.Equal(t, types.StatusApproved, ledger.payments["payment-1"].Status)
}

func TestApprovePaymentNotFound(t *testing.T) {
	ledger := newLedgerFake()
	seed(ledger)
	svc := NewService(ledger, &recorderNotifier{})

	err := svc.ApprovePayment(context.Background(), "missing", "card-1", "user-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRejectPayment(t *testing.T) {
	ledger := newLedgerFake()
	seed(ledger)
	notifier := &recorderNotifier{}
	svc := NewService(ledger, notifier)

	require.NoError(t, svc.RejectPayment(context.Background(), "payment-1"))
	assert.Equal(t, types.StatusRejected, ledger.payments["payment-1"].Status)
	require.Len(t, notifier.sent, 1)
	assert.Equal(t, messages.PaymentRejected(), notifier.sent[0].text)

	err := svc.RejectPayment(context.Background(), "payment-1")
	assert.ErrorIs(t, err, ErrConflict)
}

func TestCompleteRedemption(t *testing.T) {
	ledger := newLedgerFake()
	seed(ledger)
	notifier := &recorderNotifier{}
	svc := NewService(ledger, notifier)

	require.NoError(t, svc.CompleteRedemption(context.Background(), "redemption-1"))

	assert.Equal(t, types.StatusCompleted, ledger.redemptions["redemption-1"].Status)
	card := ledger.cards["card-1"]
	assert.True(t, card.IsUsed)
	assert.Equal(t, 0.0, card.Balance)

	require.Len(t, notifier.sent, 1)
	assert.Equal(t, messages.RedemptionCompleted(750), notifier.sent[0].text)

	err := svc.CompleteRedemption(context.Background(), "redemption-1")
	assert.ErrorIs(t, err, ErrConflict)
}

func TestCompleteRedemptionRetireFailureIsDegradedSuccess(t *testing.T) {
	ledger := newLedgerFake()
	seed(ledger)
	ledger.failRetire = true
	svc := NewService(ledger, &recorderNotifier{})

	err := svc.CompleteRedemption(context.Background(), "redemption-1")
	require.NoError(t, err)

	// The redemption is settled even though the card could not be retired.
	assert.Equal(t, types.StatusCompleted, ledger.redemptions["redemption-1"].Status)
	assert.False(t, ledger.cards["card-1"].IsUsed)
}

func TestRejectRedemption(t *testing.T) {
	ledger := newLedgerFake()
	seed(ledger)
	notifier := &recorderNotifier{}
	svc := NewService(ledger, notifier)

	require.NoError(t, svc.RejectRedemption(context.Background(), "redemption-1"))
	assert.Equal(t, types.StatusRejected, ledger.redemptions["redemption-1"].Status)
	assert.False(t, ledger.cards["card-1"].IsUsed, "rejecting must leave the card redeemable")

	err := svc.RejectRedemption(context.Background(), "redemption-1")
	assert.ErrorIs(t, err, ErrConflict)
}

func TestNotifierFailureDoesNotFailOperation(t *testing.T) {
	ledger := newLedgerFake()
	seed(ledger)
	svc := NewService(ledger, &recorderNotifier{fail: true})

	err := svc.ApprovePayment(context.Background(), "payment-1", "card-1", "user-1")
	require.NoError(t, err)
	assert.Equal(t, types.StatusApproved, ledger.payments["payment-1"].Status)
}

func TestAddCardDuplicate(t *testing.T) {
	ledger := newLedgerFake()
	svc := NewService(ledger, &recorderNotifier{})

	params := types.CreateCardParams{CardNumber: "4111111111111111", CVV: "123", ExpiryDate: "12/27", Balance: 1000}
	card, err := svc.AddCard(context.Background(), params)
	require.NoError(t, err)
	assert.False(t, card.IsAssigned)

	_, err = svc.AddCard(context.Background(), params)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestUpdateCardBalance(t *testing.T) {
	ledger := newLedgerFake()
	seed(ledger)
	owner := "user-1"
	ledger.cards["card-1"].IsAssigned = true
	ledger.cards["card-1"].UserID = &owner
	notifier := &recorderNotifier{}
	svc := NewService(ledger, notifier)

	require.NoError(t, svc.UpdateCardBalance(context.Background(), "card-1", 750))
	assert.Equal(t, 750.0, ledger.cards["card-1"].Balance)

	require.Len(t, notifier.sent, 1)
	assert.Equal(t, int64(42), notifier.sent[0].chatID)
	assert.Equal(t, messages.BalanceUpdated("1111", 1000, 750), notifier.sent[0].text)
}

func TestUpdateCardBalanceOnRetiredCard(t *testing.T) {
	ledger := newLedgerFake()
	seed(ledger)
	ledger.cards["card-1"].IsUsed = true
	ledger.cards["card-1"].Balance = 0
	svc := NewService(ledger, &recorderNotifier{})

	err := svc.UpdateCardBalance(context.Background(), "card-1", 500)
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, 0.0, ledger.cards["card-1"].Balance)

	// Forcing a retired card to zero is a no-op and stays allowed.
	require.NoError(t, svc.UpdateCardBalance(context.Background(), "card-1", 0))
}
