/**
 * @description
 * This file contains the HTTP handlers for the admin endpoints: price
 * management, the withdrawal approval queue, and the full transaction and
 * holdings views. All of these sit behind RequireAdmin in the router.
 */

package api

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/goldvault/ledger-service/internal/domain"
)

func parseTransactionID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid transaction ID format")
		return uuid.Nil, false
	}
	return id, true
}

// SetPriceHandler records a new gold price snapshot.
func (h *LedgerHandlers) SetPriceHandler(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	var req domain.SetPriceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	snapshot, err := h.service.SetPrice(r.Context(), principal.UserID, req.NewPrice)
	if err != nil {
		log.Printf("level=warn component=api endpoint=set_price outcome=failed actor_id=%s err=%v", principal.UserID, err)
		writeServiceError(w, "set_price", err)
		return
	}
	respondWithJSON(w, http.StatusCreated, snapshot)
}

// ListWithdrawalsHandler returns the open withdrawal queue with the
// requesters' bank details joined in.
func (h *LedgerHandlers) ListWithdrawalsHandler(w http.ResponseWriter, r *http.Request) {
	requests, err := h.service.ListOpenWithdrawals(r.Context())
	if err != nil {
		writeServiceError(w, "list_withdrawals", err)
		return
	}
	respondWithJSON(w, http.StatusOK, requests)
}

// ApproveWithdrawalHandler approves a pending withdrawal, either settling it
// immediately or parking it in pending_payout when deferPayout is set.
func (h *LedgerHandlers) ApproveWithdrawalHandler(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	transactionID, ok := parseTransactionID(w, r)
	if !ok {
		return
	}

	var req domain.ApproveWithdrawalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	tx, err := h.service.ApproveWithdrawal(r.Context(), principal.UserID, transactionID, req.ReferenceID, req.DeferPayout)
	if err != nil {
		log.Printf("level=warn component=api endpoint=approve_withdrawal outcome=failed actor_id=%s transaction_id=%s err=%v", principal.UserID, transactionID, err)
		writeServiceError(w, "approve_withdrawal", err)
		return
	}
	respondWithJSON(w, http.StatusOK, tx)
}

// CompletePayoutHandler settles a withdrawal that was approved with a
// deferred payout.
func (h *LedgerHandlers) CompletePayoutHandler(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	transactionID, ok := parseTransactionID(w, r)
	if !ok {
		return
	}

	var req domain.CompletePayoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	tx, err := h.service.CompletePayout(r.Context(), principal.UserID, transactionID, req.ReferenceID)
	if err != nil {
		log.Printf("level=warn component=api endpoint=complete_payout outcome=failed actor_id=%s transaction_id=%s err=%v", principal.UserID, transactionID, err)
		writeServiceError(w, "complete_payout", err)
		return
	}
	respondWithJSON(w, http.StatusOK, tx)
}

// RejectWithdrawalHandler rejects a pending withdrawal with a reason.
func (h *LedgerHandlers) RejectWithdrawalHandler(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	transactionID, ok := parseTransactionID(w, r)
	if !ok {
		return
	}

	var req domain.RejectWithdrawalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	tx, err := h.service.RejectWithdrawal(r.Context(), principal.UserID, transactionID, req.Reason)
	if err != nil {
		log.Printf("level=warn component=api endpoint=reject_withdrawal outcome=failed actor_id=%s transaction_id=%s err=%v", principal.UserID, transactionID, err)
		writeServiceError(w, "reject_withdrawal", err)
		return
	}
	respondWithJSON(w, http.StatusOK, tx)
}

// ListAllTransactionsHandler returns every transaction with requester details.
func (h *LedgerHandlers) ListAllTransactionsHandler(w http.ResponseWriter, r *http.Request) {
	transactions, err := h.service.ListAllTransactions(r.Context())
	if err != nil {
		writeServiceError(w, "list_all_transactions", err)
		return
	}
	respondWithJSON(w, http.StatusOK, transactions)
}

// UsersPortfolioHandler returns per-user settled holdings across the book.
func (h *LedgerHandlers) UsersPortfolioHandler(w http.ResponseWriter, r *http.Request) {
	holdings, err := h.service.ListUserHoldings(r.Context())
	if err != nil {
		writeServiceError(w, "users_portfolio", err)
		return
	}
	respondWithJSON(w, http.StatusOK, holdings)
}

// AuditTrailHandler returns the audit entries recorded for one transaction.
func (h *LedgerHandlers) AuditTrailHandler(w http.ResponseWriter, r *http.Request) {
	transactionID, ok := parseTransactionID(w, r)
	if !ok {
		return
	}

	entries, err := h.service.AuditTrail(r.Context(), transactionID)
	if err != nil {
		writeServiceError(w, "audit_trail", err)
		return
	}
	respondWithJSON(w, http.StatusOK, entries)
}
