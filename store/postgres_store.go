package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/vkart/vkart-bot/types"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

// ErrNoRow is returned by lookups that found nothing.
var ErrNoRow = errors.New("row not found")

// ErrDuplicateCard is returned when a card number is already registered.
var ErrDuplicateCard = errors.New("card number already registered")

func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		dsn = buildPostgresDSNFromEnv()
	}
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	s := &PostgresStore{pool: pool}
	if err := s.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func buildPostgresDSNFromEnv() string {
	host := strings.TrimSpace(os.Getenv("POSTGRES_HOST"))
	if host == "" {
		host = "localhost"
	}
	port := strings.TrimSpace(os.Getenv("POSTGRES_PORT"))
	if port == "" {
		port = "5432"
	}
	db := strings.TrimSpace(os.Getenv("POSTGRES_DB"))
	if db == "" {
		db = "vkart_bot"
	}
	user := strings.TrimSpace(os.Getenv("POSTGRES_USER"))
	if user == "" {
		user = "vkart_bot"
	}
	pass := os.Getenv("POSTGRES_PASSWORD")
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", urlEscape(user), urlEscape(pass), host, port, db)
}

func urlEscape(s string) string {
	r := strings.NewReplacer(
		"%", "%25",
		":", "%3A",
		"/", "%2F",
		"@", "%40",
		"?", "%3F",
		"#", "%23",
		"[", "%5B",
		"]", "%5D",
	)
	return r.Replace(s)
}

func (s *PostgresStore) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDB(*s.pool.Config().ConnConfig)
	defer db.Close()

	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.UpContext(ctx, db, "migrations")
}

func opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, 5*time.Second)
}

// --- users ---

func (s *PostgresStore) UpsertUser(ctx context.Context, params types.UpsertUserParams) (*types.User, error) {
	ctx, cancel := opCtx(ctx)
	defer cancel()
	var u types.User
	err := s.pool.QueryRow(ctx, `
INSERT INTO users (id, chat_id, username, first_name, last_name)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (chat_id) DO UPDATE SET
  username = EXCLUDED.username,
  first_name = EXCLUDED.first_name,
  last_name = EXCLUDED.last_name,
  updated_at = NOW()
RETURNING id, chat_id, username, first_name, last_name, created_at, updated_at
`, uuid.NewString(), params.ChatID, strings.TrimSpace(params.Username), strings.TrimSpace(params.FirstName), strings.TrimSpace(params.LastName)).
		Scan(&u.ID, &u.ChatID, &u.Username, &u.FirstName, &u.LastName, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *PostgresStore) GetUser(ctx context.Context, id string) (*types.User, error) {
	ctx, cancel := opCtx(ctx)
	defer cancel()
	var u types.User
	err := s.pool.QueryRow(ctx, `
SELECT id, chat_id, username, first_name, last_name, created_at, updated_at
FROM users
WHERE id = $1
`, id).Scan(&u.ID, &u.ChatID, &u.Username, &u.FirstName, &u.LastName, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoRow
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *PostgresStore) GetUserByChatID(ctx context.Context, chatID int64) (*types.User, error) {
	ctx, cancel := opCtx(ctx)
	defer cancel()
	var u types.User
	err := s.pool.QueryRow(ctx, `
SELECT id, chat_id, username, first_name, last_name, created_at, updated_at
FROM users
WHERE chat_id = $1
`, chatID).Scan(&u.ID, &u.ChatID, &u.Username, &u.FirstName, &u.LastName, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoRow
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *PostgresStore) ListUsers(ctx context.Context) ([]types.User, error) {
	ctx, cancel := opCtx(ctx)
	defer cancel()
	rows, err := s.pool.Query(ctx, `
SELECT id, chat_id, username, first_name, last_name, created_at, updated_at
FROM users
ORDER BY created_at DESC
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var users []types.User
	for rows.Next() {
		var u types.User
		if err := rows.Scan(&u.ID, &u.ChatID, &u.Username, &u.FirstName, &u.LastName, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// --- cards ---

const cardColumns = `id, card_number, cvv, expiry_date, balance, is_assigned, is_used, user_id, assigned_at, created_at, updated_at`

func scanCard(row pgx.Row) (*types.Card, error) {
	var c types.Card
	err := row.Scan(&c.ID, &c.CardNumber, &c.CVV, &c.ExpiryDate, &c.Balance,
		&c.IsAssigned, &c.IsUsed, &c.UserID, &c.AssignedAt, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoRow
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *PostgresStore) CreateCard(ctx context.Context, params types.CreateCardParams) (*types.Card, error) {
	ctx, cancel := opCtx(ctx)
	defer cancel()
	cardNumber := strings.ReplaceAll(params.CardNumber, " ", "")
	row := s.pool.QueryRow(ctx, `
INSERT INTO virtual_cards (id, card_number, cvv, expiry_date, balance, is_assigned, is_used)
VALUES ($1, $2, $3, $4, $5, FALSE, FALSE)
ON CONFLICT (card_number) DO NOTHING
RETURNING `+cardColumns, uuid.NewString(), cardNumber, params.CVV, params.ExpiryDate, params.Balance)
	card, err := scanCard(row)
	if errors.Is(err, ErrNoRow) {
		return nil, ErrDuplicateCard
	}
	return card, err
}

func (s *PostgresStore) GetCard(ctx context.Context, id string) (*types.Card, error) {
	ctx, cancel := opCtx(ctx)
	defer cancel()
	return scanCard(s.pool.QueryRow(ctx, `SELECT `+cardColumns+` FROM virtual_cards WHERE id = $1`, id))
}

func (s *PostgresStore) GetCardByNumber(ctx context.Context, cardNumber string) (*types.Card, error) {
	ctx, cancel := opCtx(ctx)
	defer cancel()
	cardNumber = strings.ReplaceAll(cardNumber, " ", "")
	return scanCard(s.pool.QueryRow(ctx, `SELECT `+cardColumns+` FROM virtual_cards WHERE card_number = $1`, cardNumber))
}

func (s *PostgresStore) listCards(ctx context.Context, query string, args ...interface{}) ([]types.Card, error) {
	ctx, cancel := opCtx(ctx)
	defer cancel()
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var cards []types.Card
	for rows.Next() {
		var c types.Card
		if err := rows.Scan(&c.ID, &c.CardNumber, &c.CVV, &c.ExpiryDate, &c.Balance,
			&c.IsAssigned, &c.IsUsed, &c.UserID, &c.AssignedAt, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		cards = append(cards, c)
	}
	return cards, rows.Err()
}

func (s *PostgresStore) ListCards(ctx context.Context) ([]types.Card, error) {
	return s.listCards(ctx, `SELECT `+cardColumns+` FROM virtual_cards ORDER BY created_at DESC`)
}

func (s *PostgresStore) ListAvailableCards(ctx context.Context) ([]types.Card, error) {
	return s.listCards(ctx, `
SELECT `+cardColumns+` FROM virtual_cards
WHERE is_assigned = FALSE AND is_used = FALSE
ORDER BY created_at
`)
}

func (s *PostgresStore) ListUserCards(ctx context.Context, userID string) ([]types.Card, error) {
	return s.listCards(ctx, `
SELECT `+cardColumns+` FROM virtual_cards
WHERE user_id = $1
ORDER BY assigned_at DESC
`, userID)
}

func (s *PostgresStore) ListRedeemableCards(ctx context.Context, userID string) ([]types.Card, error) {
	return s.listCards(ctx, `
SELECT `+cardColumns+` FROM virtual_cards
WHERE user_id = $1 AND is_used = FALSE AND balance > 0
ORDER BY assigned_at DESC
`, userID)
}

// AssignCard is a compare-and-swap: it only succeeds while the card is still
// unassigned and unused, which prevents handing one card to two payments.
func (s *PostgresStore) AssignCard(ctx context.Context, cardID, userID string) (bool, error) {
	ctx, cancel := opCtx(ctx)
	defer cancel()
	tag, err := s.pool.Exec(ctx, `
UPDATE virtual_cards
SET is_assigned = TRUE, user_id = $2, assigned_at = NOW(), updated_at = NOW()
WHERE id = $1 AND is_assigned = FALSE AND is_used = FALSE
`, cardID, userID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// RetireCard marks the card used and forces the balance to zero in the same
// statement, keeping the is_used => balance == 0 invariant.
func (s *PostgresStore) RetireCard(ctx context.Context, cardID string) (bool, error) {
	ctx, cancel := opCtx(ctx)
	defer cancel()
	tag, err := s.pool.Exec(ctx, `
UPDATE virtual_cards
SET is_used = TRUE, balance = 0, updated_at = NOW()
WHERE id = $1 AND is_used = FALSE
`, cardID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) UpdateCardBalance(ctx context.Context, cardID string, balance float64) error {
	ctx, cancel := opCtx(ctx)
	defer cancel()
	tag, err := s.pool.Exec(ctx, `
UPDATE virtual_cards
SET balance = $2, updated_at = NOW()
WHERE id = $1
`, cardID, balance)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNoRow
	}
	return nil
}

// --- payment requests ---

const paymentColumns = `id, user_id, card_balance, service_fee, total_amount, status, client_token, created_at, updated_at`

func scanPayment(row pgx.Row) (*types.PaymentRequest, error) {
	var p types.PaymentRequest
	err := row.Scan(&p.ID, &p.UserID, &p.CardBalance, &p.ServiceFee, &p.TotalAmount,
		&p.Status, &p.ClientToken, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoRow
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CreatePaymentRequest is idempotent on the client token: a retried delivery
// of the same confirm tap inserts nothing and gets the original row back.
func (s *PostgresStore) CreatePaymentRequest(ctx context.Context, params types.CreatePaymentRequestParams) (*types.PaymentRequest, error) {
	ctx, cancel := opCtx(ctx)
	defer cancel()
	token := params.ClientToken
	if token == "" {
		token = uuid.NewString()
	}
	_, err := s.pool.Exec(ctx, `
INSERT INTO payment_requests (id, user_id, card_balance, service_fee, total_amount, status, client_token)
VALUES ($1, $2, $3, $4, $5, 'pending', $6)
ON CONFLICT (client_token) DO NOTHING
`, uuid.NewString(), params.UserID, params.CardBalance, params.ServiceFee, params.TotalAmount, token)
	if err != nil {
		return nil, err
	}
	return scanPayment(s.pool.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payment_requests WHERE client_token = $1`, token))
}

func (s *PostgresStore) GetPaymentRequest(ctx context.Context, id string) (*types.PaymentRequest, error) {
	ctx, cancel := opCtx(ctx)
	defer cancel()
	return scanPayment(s.pool.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payment_requests WHERE id = $1`, id))
}

func (s *PostgresStore) ListPaymentRequests(ctx context.Context) ([]types.PaymentRequest, error) {
	ctx, cancel := opCtx(ctx)
	defer cancel()
	rows, err := s.pool.Query(ctx, `SELECT `+paymentColumns+` FROM payment_requests ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var payments []types.PaymentRequest
	for rows.Next() {
		var p types.PaymentRequest
		if err := rows.Scan(&p.ID, &p.UserID, &p.CardBalance, &p.ServiceFee, &p.TotalAmount,
			&p.Status, &p.ClientToken, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

func (s *PostgresStore) SetPaymentStatus(ctx context.Context, id string, from, to types.RequestStatus) (bool, error) {
	ctx, cancel := opCtx(ctx)
	defer cancel()
	tag, err := s.pool.Exec(ctx, `
UPDATE payment_requests
SET status = $3, updated_at = NOW()
WHERE id = $1 AND status = $2
`, id, from, to)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// --- redemption requests ---

const redemptionColumns = `id, user_id, card_id, remaining_balance, trx_wallet_address, status, client_token, created_at, updated_at`

func scanRedemption(row pgx.Row) (*types.RedemptionRequest, error) {
	var r types.RedemptionRequest
	err := row.Scan(&r.ID, &r.UserID, &r.CardID, &r.RemainingBalance, &r.TRXWalletAddress,
		&r.Status, &r.ClientToken, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoRow
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *PostgresStore) CreateRedemptionRequest(ctx context.Context, params types.CreateRedemptionRequestParams) (*types.RedemptionRequest, error) {
	ctx, cancel := opCtx(ctx)
	defer cancel()
	token := params.ClientToken
	if token == "" {
		token = uuid.NewString()
	}
	_, err := s.pool.Exec(ctx, `
INSERT INTO card_redemption_requests (id, user_id, card_id, remaining_balance, trx_wallet_address, status, client_token)
VALUES ($1, $2, $3, $4, $5, 'pending', $6)
ON CONFLICT (client_token) DO NOTHING
`, uuid.NewString(), params.UserID, params.CardID, params.RemainingBalance, params.TRXWalletAddress, token)
	if err != nil {
		return nil, err
	}
	return scanRedemption(s.pool.QueryRow(ctx, `SELECT `+redemptionColumns+` FROM card_redemption_requests WHERE client_token = $1`, token))
}

func (s *PostgresStore) GetRedemptionRequest(ctx context.Context, id string) (*types.RedemptionRequest, error) {
	ctx, cancel := opCtx(ctx)
	defer cancel()
	return scanRedemption(s.pool.QueryRow(ctx, `SELECT `+redemptionColumns+` FROM card_redemption_requests WHERE id = $1`, id))
}

func (s *PostgresStore) ListRedemptionRequests(ctx context.Context) ([]types.RedemptionRequest, error) {
	ctx, cancel := opCtx(ctx)
	defer cancel()
	rows, err := s.pool.Query(ctx, `SELECT `+redemptionColumns+` FROM card_redemption_requests ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var redemptions []types.RedemptionRequest
	for rows.Next() {
		var r types.RedemptionRequest
		if err := rows.Scan(&r.ID, &r.UserID, &r.CardID, &r.RemainingBalance, &r.TRXWalletAddress,
			&r.Status, &r.ClientToken, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		redemptions = append(redemptions, r)
	}
	return redemptions, rows.Err()
}

func (s *PostgresStore) SetRedemptionStatus(ctx context.Context, id string, from, to types.RequestStatus) (bool, error) {
	ctx, cancel := opCtx(ctx)
	defer cancel()
	tag, err := s.pool.Exec(ctx, `
UPDATE card_redemption_requests
SET status = $3, updated_at = NOW()
WHERE id = $1 AND status = $2
`, id, from, to)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// --- transactions / stats ---

func (s *PostgresStore) RecordTransaction(ctx context.Context, t types.Transaction) error {
	ctx, cancel := opCtx(ctx)
	defer cancel()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	details, err := json.Marshal(t.Details)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
INSERT INTO transactions (id, user_id, card_id, type, amount, status, details)
VALUES ($1, $2, $3, $4, $5, $6, $7)
`, t.ID, t.UserID, t.CardID, t.Type, t.Amount, t.Status, details)
	return err
}

func (s *PostgresStore) Stats(ctx context.Context) (*types.DashboardStats, error) {
	ctx, cancel := opCtx(ctx)
	defer cancel()
	var stats types.DashboardStats
	err := s.pool.QueryRow(ctx, `
SELECT
  (SELECT COUNT(*) FROM users),
  (SELECT COUNT(*) FROM virtual_cards),
  (SELECT COUNT(*) FROM virtual_cards WHERE is_assigned = FALSE AND is_used = FALSE),
  (SELECT COUNT(*) FROM payment_requests WHERE status = 'pending'),
  (SELECT COUNT(*) FROM card_redemption_requests WHERE status = 'pending')
`).Scan(&stats.TotalUsers, &stats.TotalCards, &stats.AvailableCards, &stats.PendingPayments, &stats.PendingRedemptions)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}
