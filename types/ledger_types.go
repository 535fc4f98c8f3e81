package types

import (
	"context"
	"time"
)

// Card lifecycle: created unassigned and unused by an operator, assigned to a
// user when a payment is approved, retired (is_used with balance forced to
// zero) when a redemption completes.
type Card struct {
	ID         string     `json:"id"`
	CardNumber string     `json:"card_number"`
	CVV        string     `json:"cvv"`
	ExpiryDate string     `json:"expiry_date"`
	Balance    float64    `json:"balance"`
	IsAssigned bool       `json:"is_assigned"`
	IsUsed     bool       `json:"is_used"`
	UserID     *string    `json:"user_id,omitempty"`
	AssignedAt *time.Time `json:"assigned_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// LastFour returns the tail of the card number used in chat listings.
func (c *Card) LastFour() string {
	if len(c.CardNumber) < 4 {
		return c.CardNumber
	}
	return c.CardNumber[len(c.CardNumber)-4:]
}

type PaymentRequest struct {
	ID          string        `json:"id"`
	UserID      string        `json:"user_id"`
	CardBalance float64       `json:"card_balance"`
	ServiceFee  float64       `json:"service_fee"`
	TotalAmount float64       `json:"total_amount"`
	Status      RequestStatus `json:"status"`
	ClientToken string        `json:"client_token"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

type RedemptionRequest struct {
	ID               string        `json:"id"`
	UserID           string        `json:"user_id"`
	CardID           string        `json:"card_id"`
	RemainingBalance float64       `json:"remaining_balance"`
	TRXWalletAddress string        `json:"trx_wallet_address"`
	Status           RequestStatus `json:"status"`
	ClientToken      string        `json:"client_token"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

// Transaction is a best-effort audit record; writing it must never block or
// roll back the operation it describes.
type Transaction struct {
	ID        string                 `json:"id"`
	UserID    string                 `json:"user_id"`
	CardID    string                 `json:"card_id"`
	Type      string                 `json:"type"`
	Amount    float64                `json:"amount"`
	Status    string                 `json:"status"`
	Details   map[string]interface{} `json:"details,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

type CreateCardParams struct {
	CardNumber string
	CVV        string
	ExpiryDate string
	Balance    float64
}

type CreatePaymentRequestParams struct {
	UserID      string
	CardBalance float64
	ServiceFee  float64
	TotalAmount float64
	// ClientToken deduplicates retried submissions of the same confirm tap.
	ClientToken string
}

type CreateRedemptionRequestParams struct {
	UserID           string
	CardID           string
	RemainingBalance float64
	TRXWalletAddress string
	ClientToken      string
}

type DashboardStats struct {
	TotalUsers         int `json:"total_users"`
	TotalCards         int `json:"total_cards"`
	AvailableCards     int `json:"available_cards"`
	PendingPayments    int `json:"pending_payments"`
	PendingRedemptions int `json:"pending_redemptions"`
}

// LedgerStore is the durable store for users, cards and request records.
// Status transitions and card assignment are conditional updates: they report
// whether the row was in the expected prior state, so check-then-act races
// collapse into a single compare-and-swap at the store.
type LedgerStore interface {
	UserStore

	CreateCard(ctx context.Context, params CreateCardParams) (*Card, error)
	GetCard(ctx context.Context, id string) (*Card, error)
	GetCardByNumber(ctx context.Context, cardNumber string) (*Card, error)
	ListCards(ctx context.Context) ([]Card, error)
	ListAvailableCards(ctx context.Context) ([]Card, error)
	ListUserCards(ctx context.Context, userID string) ([]Card, error)
	ListRedeemableCards(ctx context.Context, userID string) ([]Card, error)
	AssignCard(ctx context.Context, cardID, userID string) (bool, error)
	RetireCard(ctx context.Context, cardID string) (bool, error)
	UpdateCardBalance(ctx context.Context, cardID string, balance float64) error

	CreatePaymentRequest(ctx context.Context, params CreatePaymentRequestParams) (*PaymentRequest, error)
	GetPaymentRequest(ctx context.Context, id string) (*PaymentRequest, error)
	ListPaymentRequests(ctx context.Context) ([]PaymentRequest, error)
	SetPaymentStatus(ctx context.Context, id string, from, to RequestStatus) (bool, error)

	CreateRedemptionRequest(ctx context.Context, params CreateRedemptionRequestParams) (*RedemptionRequest, error)
	GetRedemptionRequest(ctx context.Context, id string) (*RedemptionRequest, error)
	ListRedemptionRequests(ctx context.Context) ([]RedemptionRequest, error)
	SetRedemptionStatus(ctx context.Context, id string, from, to RequestStatus) (bool, error)

	RecordTransaction(ctx context.Context, t Transaction) error
	Stats(ctx context.Context) (*DashboardStats, error)
}
