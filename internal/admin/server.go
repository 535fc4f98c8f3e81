package admin

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/vkart/vkart-bot/internal/fulfillment"
	"github.com/vkart/vkart-bot/types"
)

// Server exposes the admin dashboard API. Every mutating route goes through
// the fulfillment service; the read routes hit the ledger directly.
type Server struct {
	service  *fulfillment.Service
	ledger   types.LedgerStore
	settings types.SettingsStore
	auth     *Auth
}

func NewServer(service *fulfillment.Service, ledger types.LedgerStore, settings types.SettingsStore, auth *Auth) *Server {
	return &Server{
		service:  service,
		ledger:   ledger,
		settings: settings,
		auth:     auth,
	}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(s.auth.Handler)

		r.Post("/approve-payment", s.approvePayment)
		r.Post("/reject-payment", s.rejectPayment)
		r.Post("/complete-redemption", s.completeRedemption)
		r.Post("/reject-redemption", s.rejectRedemption)
		r.Post("/add-card", s.addCard)
		r.Post("/update-card-balance", s.updateCardBalance)

		r.Get("/users", s.listUsers)
		r.Get("/cards", s.listCards)
		r.Get("/available-cards", s.listAvailableCards)
		r.Get("/payments", s.listPayments)
		r.Get("/redemptions", s.listRedemptions)
		r.Get("/stats", s.stats)

		r.Get("/settings", s.getSettings)
		r.Put("/settings", s.updateSettings)
	})

	return r
}

func respondJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Warn().Err(err).Msg("response encoding failed")
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]interface{}{"success": false, "message": message})
}

// respondOperationError maps the fulfillment taxonomy onto HTTP statuses.
func respondOperationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, fulfillment.ErrUnauthorized):
		respondError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, fulfillment.ErrNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, fulfillment.ErrConflict):
		respondError(w, http.StatusConflict, err.Error())
	default:
		log.Error().Err(err).Msg("admin operation failed")
		respondError(w, http.StatusInternalServerError, "operation failed")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dest interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func (s *Server) approvePayment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PaymentID string `json:"payment_id"`
		CardID    string `json:"card_id"`
		UserID    string `json:"user_id"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.PaymentID == "" || req.CardID == "" || req.UserID == "" {
		respondError(w, http.StatusBadRequest, "payment_id, card_id and user_id are required")
		return
	}
	if err := s.service.ApprovePayment(r.Context(), req.PaymentID, req.CardID, req.UserID); err != nil {
		respondOperationError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

func (s *Server) rejectPayment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PaymentID string `json:"payment_id"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.PaymentID == "" {
		respondError(w, http.StatusBadRequest, "payment_id is required")
		return
	}
	if err := s.service.RejectPayment(r.Context(), req.PaymentID); err != nil {
		respondOperationError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

func (s *Server) completeRedemption(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RedemptionID string `json:"redemption_id"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.RedemptionID == "" {
		respondError(w, http.StatusBadRequest, "redemption_id is required")
		return
	}
	if err := s.service.CompleteRedemption(r.Context(), req.RedemptionID); err != nil {
		respondOperationError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

func (s *Server) rejectRedemption(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RedemptionID string `json:"redemption_id"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.RedemptionID == "" {
		respondError(w, http.StatusBadRequest, "redemption_id is required")
		return
	}
	if err := s.service.RejectRedemption(r.Context(), req.RedemptionID); err != nil {
		respondOperationError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

func (s *Server) addCard(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CardNumber string  `json:"card_number"`
		CVV        string  `json:"cvv"`
		ExpiryDate string  `json:"expiry_date"`
		Balance    float64 `json:"balance"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.CardNumber == "" || req.CVV == "" || req.ExpiryDate == "" || req.Balance <= 0 {
		respondError(w, http.StatusBadRequest, "fill every field and provide a positive balance")
		return
	}
	card, err := s.service.AddCard(r.Context(), types.CreateCardParams{
		CardNumber: req.CardNumber,
		CVV:        req.CVV,
		ExpiryDate: req.ExpiryDate,
		Balance:    req.Balance,
	})
	if err != nil {
		respondOperationError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"success": true, "card": card})
}

func (s *Server) updateCardBalance(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CardID     string   `json:"card_id"`
		NewBalance *float64 `json:"new_balance"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.CardID == "" || req.NewBalance == nil || *req.NewBalance < 0 {
		respondError(w, http.StatusBadRequest, "card_id and a non-negative new_balance are required")
		return
	}
	if err := s.service.UpdateCardBalance(r.Context(), req.CardID, *req.NewBalance); err != nil {
		respondOperationError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.ledger.ListUsers(r.Context())
	if err != nil {
		respondOperationError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"users": users})
}

func (s *Server) listCards(w http.ResponseWriter, r *http.Request) {
	cards, err := s.ledger.ListCards(r.Context())
	if err != nil {
		respondOperationError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"cards": cards})
}

func (s *Server) listAvailableCards(w http.ResponseWriter, r *http.Request) {
	cards, err := s.ledger.ListAvailableCards(r.Context())
	if err != nil {
		respondOperationError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"cards": cards})
}

func (s *Server) listPayments(w http.ResponseWriter, r *http.Request) {
	payments, err := s.ledger.ListPaymentRequests(r.Context())
	if err != nil {
		respondOperationError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"payments": payments})
}

func (s *Server) listRedemptions(w http.ResponseWriter, r *http.Request) {
	redemptions, err := s.ledger.ListRedemptionRequests(r.Context())
	if err != nil {
		respondOperationError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"redemptions": redemptions})
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.ledger.Stats(r.Context())
	if err != nil {
		respondOperationError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

func (s *Server) getSettings(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, s.settings.Snapshot())
}

func (s *Server) updateSettings(w http.ResponseWriter, r *http.Request) {
	var update types.SettingsUpdate
	if !decodeBody(w, r, &update) {
		return
	}
	respondJSON(w, http.StatusOK, s.settings.Update(update))
}
