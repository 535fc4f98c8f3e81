package admin

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vkart/vkart-bot/internal/fulfillment"
	"github.com/vkart/vkart-bot/store"
	"github.com/vkart/vkart-bot/types"
)

const testToken = "secret-admin-token"

type silentNotifier struct{}

func (silentNotifier) Send(_ context.Context, _ int64, _ string, _ *models.InlineKeyboardMarkup) error {
	return nil
}

// stubLedger overrides only what the routes under test touch; anything else
// panics through the nil embedded interface, which is a test bug, not a
// production path.
type stubLedger struct {
	types.LedgerStore

	users    map[string]*types.User
	cards    map[string]*types.Card
	payments map[string]*types.PaymentRequest
}

func newStubLedger() *stubLedger {
	return &stubLedger{
		users:    map[string]*types.User{},
		cards:    map[string]*types.Card{},
		payments: map[string]*types.PaymentRequest{},
	}
}

func (s *stubLedger) GetUser(_ context.Context, id string) (*types.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, store.ErrNoRow
	}
	return u, nil
}

func (s *stubLedger) ListUsers(_ context.Context) ([]types.User, error) {
	out := make([]types.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, *u)
	}
	return out, nil
}

func (s *stubLedger) GetCard(_ context.Context, id string) (*types.Card, error) {
	c, ok := s.cards[id]
	if !ok {
		return nil, store.ErrNoRow
	}
	return c, nil
}

func (s *stubLedger) AssignCard(_ context.Context, cardID, userID string) (bool, error) {
	c, ok := s.cards[cardID]
	if !ok || c.IsAssigned || c.IsUsed {
		return false, nil
	}
	now := time.Now()
	c.IsAssigned = true
	c.UserID = &userID
	c.AssignedAt = &now
	return true, nil
}

func (s *stubLedger) GetPaymentRequest(_ context.Context, id string) (*types.PaymentRequest, error) {
	p, ok := s.payments[id]
	if !ok {
		return nil, store.ErrNoRow
	}
	return p, nil
}

func (s *stubLedger) SetPaymentStatus(_ context.Context, id string, from, to types.RequestStatus) (bool, error) {
	p, ok := s.payments[id]
	if !ok || p.Status != from {
		return false, nil
	}
	p.Status = to
	return true, nil
}

func (s *stubLedger) RecordTransaction(_ context.Context, _ types.Transaction) error { return nil }

func (s *stubLedger) Stats(_ context.Context) (*types.DashboardStats, error) {
	return &types.DashboardStats{TotalUsers: len(s.users), TotalCards: len(s.cards)}, nil
}

func newTestServer(ledger *stubLedger) *httptest.Server {
	settings := store.NewSettingsStore(types.Settings{TRXWalletAddress: "TWalletForPayments1234567890abcd", CardPrice: 50})
	service := fulfillment.NewService(ledger, silentNotifier{})
	srv := NewServer(service, ledger, settings, NewAuth(testToken))
	return httptest.NewServer(srv.Routes())
}

func doRequest(t *testing.T, method, url, token string, body interface{}) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func TestAuthRequired(t *testing.T) {
	ts := newTestServer(newStubLedger())
	defer ts.Close()

	for name, token := range map[string]string{
		"no token":    "",
		"wrong token": "guessed",
	} {
		t.Run(name, func(t *testing.T) {
			resp := doRequest(t, http.MethodGet, ts.URL+"/api/admin/stats", token, nil)
			defer resp.Body.Close()
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		})
	}
}

func TestHealthNeedsNoToken(t *testing.T) {
	ts := newTestServer(newStubLedger())
	defer ts.Close()

	resp := doRequest(t, http.MethodGet, ts.URL+"/health", "", nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestApprovePaymentRoute(t *testing.T) {
	ledger := newStubLedger()
	ledger.users["user-1"] = &types.User{ID: "user-1", ChatID: 42}
	ledger.cards["card-1"] = &types.Card{ID: "card-1", CardNumber: "4111111111111111", Balance: 1000}
	ledger.payments["payment-1"] = &types.PaymentRequest{ID: "payment-1", UserID: "user-1", Status: types.StatusPending}
	ts := newTestServer(ledger)
	defer ts.Close()

	body := map[string]string{"payment_id": "payment-1", "card_id": "card-1", "user_id": "user-1"}

	resp := doRequest(t, http.MethodPost, ts.URL+"/api/admin/approve-payment", testToken, body)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, types.StatusApproved, ledger.payments["payment-1"].Status)
	assert.True(t, ledger.cards["card-1"].IsAssigned)

	// Replaying the approval is a conflict, not a second assignment.
	resp = doRequest(t, http.MethodPost, ts.URL+"/api/admin/approve-payment", testToken, body)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestApprovePaymentUnknownIDs(t *testing.T) {
	ts := newTestServer(newStubLedger())
	defer ts.Close()

	resp := doRequest(t, http.MethodPost, ts.URL+"/api/admin/approve-payment", testToken,
		map[string]string{"payment_id": "missing", "card_id": "card-1", "user_id": "user-1"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestApprovePaymentBadRequest(t *testing.T) {
	ts := newTestServer(newStubLedger())
	defer ts.Close()

	resp := doRequest(t, http.MethodPost, ts.URL+"/api/admin/approve-payment", testToken,
		map[string]string{"payment_id": "payment-1"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSettingsRoundTrip(t *testing.T) {
	ts := newTestServer(newStubLedger())
	defer ts.Close()

	newWallet := "TNewPayoutWallet1234567890abcdef"
	resp := doRequest(t, http.MethodPut, ts.URL+"/api/admin/settings", testToken,
		map[string]string{"trx_wallet_address": newWallet})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doRequest(t, http.MethodGet, ts.URL+"/api/admin/settings", testToken, nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got types.Settings
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, newWallet, got.TRXWalletAddress)
	assert.Equal(t, 50.0, got.CardPrice, "untouched fields keep their value")
}

func TestStatsRoute(t *testing.T) {
	ledger := newStubLedger()
	ledger.users["user-1"] = &types.User{ID: "user-1", ChatID: 42}
	ts := newTestServer(ledger)
	defer ts.Close()

	resp := doRequest(t, http.MethodGet, ts.URL+"/api/admin/stats", testToken, nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got types.DashboardStats
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, 1, got.TotalUsers)
}
