/**
 * @description
 * This file defines the core domain models for the ledger-service. These structs
 * represent the main entities and data transfer objects (DTOs) used throughout the
 * service's business logic, database interactions, and API layers.
 *
 * @notes
 * - Using distinct types for API requests, database models, and external service
 *   payloads ensures clear separation of concerns and type safety.
 * - Grams and rupee amounts are `decimal.Decimal` values backed by NUMERIC columns,
 *   which avoids floating-point inaccuracies with financial data. shopspring's
 *   decoder accepts both JSON numbers and quoted strings, so ambiguous client
 *   payloads are normalized at the boundary.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Transaction kinds.
const (
	KindBuy      = "buy"
	KindWithdraw = "withdraw"
)

// Transaction statuses. These five values form a closed enumeration; anything
// else is rejected at the API boundary rather than normalized ad hoc.
const (
	StatusPending       = "pending"
	StatusPendingPayout = "pending_payout"
	StatusCompleted     = "completed"
	StatusRejected      = "rejected"
	StatusFailed        = "failed"
)

// ValidStatus reports whether s is one of the five ledger statuses.
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusPendingPayout, StatusCompleted, StatusRejected, StatusFailed:
		return true
	}
	return false
}

// TerminalStatus reports whether no transition is defined out of s.
func TerminalStatus(s string) bool {
	return s == StatusCompleted || s == StatusRejected || s == StatusFailed
}

// Grams are tracked to 4 decimal places, rupees to 2, matching the precision
// the ledger columns carry.
const (
	GramPrecision  = 4
	RupeePrecision = 2
)

// Transaction is the atomic economic record. It maps directly to the
// `transactions` table. Rows are never deleted; they are created in `pending`
// and mutated only through the defined status transitions.
type Transaction struct {
	ID              uuid.UUID       `json:"id"`
	UserID          uuid.UUID       `json:"user_id"`
	Kind            string          `json:"type"`   // 'buy' or 'withdraw'
	Status          string          `json:"status"` // see status constants
	Grams           decimal.Decimal `json:"grams"`
	AmountINR       decimal.Decimal `json:"amount_inr"`
	PricePerGram    decimal.Decimal `json:"price_per_gram"` // snapshot at creation, never recomputed
	ReferenceID     *string         `json:"reference_id,omitempty"`
	RejectionReason *string         `json:"rejection_reason,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	CompletedAt     *time.Time      `json:"completed_at,omitempty"`
}

// CreateBuyOrderRequest is the DTO for incoming buy-order API requests.
type CreateBuyOrderRequest struct {
	AmountInRupees decimal.Decimal `json:"amountInRupees"`
}

// CreateBuyOrderResponse carries the gateway session handle back to the client.
type CreateBuyOrderResponse struct {
	OrderID          string `json:"orderId"`
	PaymentSessionID string `json:"paymentSessionId"`
}

// VerifyPaymentRequest is the DTO for the idempotent verification endpoint.
// The field name mirrors the gateway's redirect query parameter.
type VerifyPaymentRequest struct {
	OrderID string `json:"order_id"`
}

// RequestWithdrawalRequest is the DTO for a sell/payout request.
type RequestWithdrawalRequest struct {
	GramsToSell decimal.Decimal `json:"gramsToSell"`
}

// ApproveWithdrawalRequest is the admin approval payload. DeferPayout selects
// the two-phase path (approve now, send funds later).
type ApproveWithdrawalRequest struct {
	ReferenceID string `json:"referenceId"`
	DeferPayout bool   `json:"deferPayout,omitempty"`
}

// CompletePayoutRequest finalizes a deferred payout.
type CompletePayoutRequest struct {
	ReferenceID string `json:"referenceId"`
}

// RejectWithdrawalRequest carries the mandatory rejection reason.
type RejectWithdrawalRequest struct {
	Reason string `json:"reason"`
}

// HistoryEntry is one row of a user's own transaction history.
type HistoryEntry struct {
	ID        uuid.UUID       `json:"id"`
	Kind      string          `json:"type"`
	Status    string          `json:"status"`
	AmountINR decimal.Decimal `json:"amount_inr"`
	Grams     decimal.Decimal `json:"grams"`
	CreatedAt time.Time       `json:"created_at"`
}

// AdminTransaction is a ledger row joined with user identity for the admin
// transaction listing.
type AdminTransaction struct {
	Transaction
	UserName  string `json:"name"`
	UserEmail string `json:"email"`
}

// WithdrawalRequestView is a withdrawal joined with the user identity and bank
// fields the admin needs to send the payout.
type WithdrawalRequestView struct {
	ID                uuid.UUID       `json:"id"`
	UserID            uuid.UUID       `json:"user_id"`
	AmountINR         decimal.Decimal `json:"amount_inr"`
	Grams             decimal.Decimal `json:"grams"`
	PricePerGram      decimal.Decimal `json:"price_per_gram"`
	Status            string          `json:"status"`
	CreatedAt         time.Time       `json:"created_at"`
	UserName          string          `json:"name"`
	UserEmail         string          `json:"email"`
	UserPhone         string          `json:"phone"`
	BankAccountName   *string         `json:"bank_account_name"`
	BankAccountNumber *string         `json:"bank_account_number"`
	BankIFSCCode      *string         `json:"bank_ifsc_code"`
}

// HoldingsSummary holds the per-user sums the ledger derives holdings from,
// taken under one consistent read.
type HoldingsSummary struct {
	CompletedBuys      decimal.Decimal // grams credited by completed buys
	CompletedWithdraws decimal.Decimal // grams debited by completed withdrawals
	ReservedWithdraws  decimal.Decimal // grams reserved by pending / pending_payout withdrawals
}

// Held is the user's net holdings: completed buys minus completed withdrawals.
func (h HoldingsSummary) Held() decimal.Decimal {
	return h.CompletedBuys.Sub(h.CompletedWithdraws)
}

// Available is what the user may still commit to a new withdrawal.
func (h HoldingsSummary) Available() decimal.Decimal {
	return h.Held().Sub(h.ReservedWithdraws)
}
