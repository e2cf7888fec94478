/**
 * @description
 * This file contains the HTTP handlers for the ledger-service's customer-facing
 * API endpoints. Handlers are responsible for parsing incoming requests, calling
 * the appropriate methods on the application service, and writing the HTTP
 * response. They act as the bridge between the web layer and the business logic
 * layer.
 *
 * @dependencies
 * - encoding/json, log, net/http: Standard Go libraries.
 * - internal/app, internal/domain, internal/store: For service logic, models, and custom errors.
 */

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/google/uuid"

	"github.com/goldvault/ledger-service/internal/app"
	"github.com/goldvault/ledger-service/internal/domain"
	"github.com/goldvault/ledger-service/internal/store"
)

// LedgerHandlers holds the application service that handlers will use.
type LedgerHandlers struct {
	service *app.Service
}

// NewLedgerHandlers creates a new instance of LedgerHandlers.
func NewLedgerHandlers(service *app.Service) *LedgerHandlers {
	return &LedgerHandlers{service: service}
}

// respondWithJSON is a helper for writing JSON responses.
func respondWithJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondWithError is a helper for writing JSON error responses.
func respondWithError(w http.ResponseWriter, status int, message string) {
	respondWithJSON(w, status, map[string]string{"error": message})
}

// respondWithCodedError includes a machine-readable code alongside the message
// so clients can branch without parsing English.
func respondWithCodedError(w http.ResponseWriter, status int, code, message string) {
	respondWithJSON(w, status, map[string]string{"error": message, "code": code})
}

// writeServiceError maps service and store sentinel errors to HTTP responses.
func writeServiceError(w http.ResponseWriter, endpoint string, err error) {
	switch {
	case errors.Is(err, app.ErrInvalidAmount), errors.Is(err, app.ErrInvalidQuantity),
		errors.Is(err, app.ErrInvalidPrice), errors.Is(err, app.ErrMissingReferenceID),
		errors.Is(err, app.ErrMissingReason), errors.Is(err, app.ErrNotWithdrawal):
		respondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, app.ErrKYCIncomplete):
		respondWithCodedError(w, http.StatusForbidden, "KYC_REQUIRED", "Complete your bank and KYC details before requesting a withdrawal")
	case errors.Is(err, app.ErrRateLimited):
		respondWithError(w, http.StatusTooManyRequests, "Too many requests. Please try again shortly.")
	case errors.Is(err, app.ErrVerificationPending):
		respondWithCodedError(w, http.StatusAccepted, "PAYMENT_PENDING", "Payment is still being processed")
	case errors.Is(err, app.ErrSettlementFailed):
		respondWithCodedError(w, http.StatusPaymentRequired, "PAYMENT_FAILED", "Payment failed or expired")
	case errors.Is(err, app.ErrGatewayUnavailable):
		respondWithError(w, http.StatusBadGateway, "Payment gateway unavailable. Please try again.")
	case errors.Is(err, store.ErrInsufficientHoldings):
		respondWithError(w, http.StatusPaymentRequired, "Insufficient gold holdings")
	case errors.Is(err, store.ErrInvalidTransition):
		respondWithError(w, http.StatusConflict, "Request is not in a state that allows this action")
	case errors.Is(err, store.ErrUserNotFound):
		respondWithError(w, http.StatusNotFound, "User not found")
	case errors.Is(err, store.ErrTransactionNotFound):
		respondWithError(w, http.StatusNotFound, "Transaction not found")
	case errors.Is(err, store.ErrPriceUnavailable):
		respondWithError(w, http.StatusServiceUnavailable, "Gold price is not available yet")
	default:
		log.Printf("level=error component=api endpoint=%s msg=\"unhandled service error\" err=%v", endpoint, err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func requirePrincipal(w http.ResponseWriter, r *http.Request) (Principal, bool) {
	principal, ok := GetPrincipal(r.Context())
	if !ok {
		respondWithError(w, http.StatusInternalServerError, "Could not get user ID from context")
	}
	return principal, ok
}

// GetPriceHandler returns the latest recorded gold price.
func (h *LedgerHandlers) GetPriceHandler(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.service.CurrentPrice(r.Context())
	if err != nil {
		writeServiceError(w, "get_price", err)
		return
	}
	respondWithJSON(w, http.StatusOK, snapshot)
}

// PriceHistoryHandler returns the recent price series for charting.
func (h *LedgerHandlers) PriceHistoryHandler(w http.ResponseWriter, r *http.Request) {
	points, err := h.service.PriceHistory(r.Context(), app.DefaultHistoryWindow)
	if err != nil {
		writeServiceError(w, "price_history", err)
		return
	}
	respondWithJSON(w, http.StatusOK, points)
}

// CreateBuyOrderHandler creates a pending buy and a payment session for it.
func (h *LedgerHandlers) CreateBuyOrderHandler(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	var req domain.CreateBuyOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("level=warn component=api endpoint=create_buy_order outcome=reject reason=invalid_json err=%v", err)
		respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	order, err := h.service.CreateBuyOrder(r.Context(), principal.UserID, req.AmountInRupees)
	if err != nil {
		log.Printf("level=warn component=api endpoint=create_buy_order outcome=failed user_id=%s err=%v", principal.UserID, err)
		writeServiceError(w, "create_buy_order", err)
		return
	}

	respondWithJSON(w, http.StatusCreated, order)
}

// VerifyPaymentHandler checks the gateway settlement for an order and settles
// the pending buy accordingly. Safe to call repeatedly for the same order.
func (h *LedgerHandlers) VerifyPaymentHandler(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	var req domain.VerifyPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid order ID format")
		return
	}

	tx, err := h.service.VerifyPayment(r.Context(), orderID)
	if err != nil {
		log.Printf("level=warn component=api endpoint=verify_payment outcome=failed user_id=%s order_id=%s err=%v", principal.UserID, orderID, err)
		writeServiceError(w, "verify_payment", err)
		return
	}
	// Only the order's owner may observe its settlement.
	if tx.UserID != principal.UserID {
		respondWithError(w, http.StatusNotFound, "Transaction not found")
		return
	}

	respondWithJSON(w, http.StatusOK, tx)
}

// PortfolioHandler returns the caller's valuation against the live price.
func (h *LedgerHandlers) PortfolioHandler(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	portfolio, err := h.service.Valuation(r.Context(), principal.UserID)
	if err != nil {
		writeServiceError(w, "portfolio", err)
		return
	}
	respondWithJSON(w, http.StatusOK, portfolio)
}

// RequestWithdrawalHandler creates a pending withdrawal for the caller.
func (h *LedgerHandlers) RequestWithdrawalHandler(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	var req domain.RequestWithdrawalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	tx, err := h.service.RequestWithdrawal(r.Context(), principal.UserID, req.GramsToSell)
	if err != nil {
		log.Printf("level=warn component=api endpoint=request_withdrawal outcome=failed user_id=%s err=%v", principal.UserID, err)
		writeServiceError(w, "request_withdrawal", err)
		return
	}

	respondWithJSON(w, http.StatusCreated, tx)
}

// TransactionHistoryHandler returns the caller's transactions, newest first.
func (h *LedgerHandlers) TransactionHistoryHandler(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	history, err := h.service.TransactionHistory(r.Context(), principal.UserID)
	if err != nil {
		writeServiceError(w, "transaction_history", err)
		return
	}
	respondWithJSON(w, http.StatusOK, history)
}

// GetProfileHandler returns the caller's profile including KYC fields.
func (h *LedgerHandlers) GetProfileHandler(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	user, err := h.service.GetUser(r.Context(), principal.UserID)
	if err != nil {
		writeServiceError(w, "get_profile", err)
		return
	}
	respondWithJSON(w, http.StatusOK, user)
}

// UpdateProfileHandler updates the caller's bank and KYC details.
func (h *LedgerHandlers) UpdateProfileHandler(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	var req domain.ProfileUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	user, err := h.service.UpdateProfile(r.Context(), principal.UserID, req)
	if err != nil {
		writeServiceError(w, "update_profile", err)
		return
	}
	respondWithJSON(w, http.StatusOK, user)
}
