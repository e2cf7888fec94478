/**
 * @description
 * This file defines the `Repository` interface, which specifies the contract for all
 * data access operations required by the ledger-service. By defining an interface,
 * we decouple the application's business logic from the specific database
 * implementation (PostgreSQL), making the code more modular and easier to test.
 *
 * @dependencies
 * - context, time: Standard Go libraries.
 * - github.com/google/uuid: For UUID handling.
 * - github.com/shopspring/decimal: Fixed-precision amounts.
 * - internal/domain: For the service's domain models.
 */

package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/goldvault/ledger-service/internal/domain"
)

// WithdrawalTransition describes one compare-and-set status move on a
// withdrawal row. FromStatus is the guard: if the row is no longer in that
// status the update matches zero rows and the caller gets ErrInvalidTransition
// instead of a double-applied effect.
type WithdrawalTransition struct {
	TransactionID  uuid.UUID
	FromStatus     string
	ToStatus       string
	ReferenceID    *string // persisted verbatim; proof of payment
	Reason         *string // rejection reason
	SetCompletedAt bool
	// RequireCoverage re-checks, under the user's row lock, that completed
	// holdings still cover this withdrawal's grams before the move applies.
	RequireCoverage bool
}

// Repository defines the set of methods for interacting with the database.
type Repository interface {
	// User methods
	FindUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error)
	UpdateUserProfile(ctx context.Context, userID uuid.UUID, update domain.ProfileUpdate) (*domain.User, error)
	ListUserHoldings(ctx context.Context) ([]domain.UserHolding, error)

	// Price methods
	LatestPrice(ctx context.Context) (*domain.PriceSnapshot, error)
	InsertPrice(ctx context.Context, pricePerGram decimal.Decimal) (*domain.PriceSnapshot, error)
	PriceHistory(ctx context.Context, since time.Time) ([]domain.PriceSnapshot, error)
	PrunePriceHistory(ctx context.Context, before time.Time) (int64, error)

	// Ledger reads
	FindTransactionByID(ctx context.Context, transactionID uuid.UUID) (*domain.Transaction, error)
	FindTransactionsByUserID(ctx context.Context, userID uuid.UUID) ([]domain.Transaction, error)
	ListAllTransactions(ctx context.Context) ([]domain.AdminTransaction, error)
	ListOpenWithdrawals(ctx context.Context) ([]domain.WithdrawalRequestView, error)
	// CompletedTransactionsInOrder returns the user's completed transactions
	// ordered by economic effect time (completion, falling back to creation),
	// the replay order cost-basis valuation depends on.
	CompletedTransactionsInOrder(ctx context.Context, userID uuid.UUID) ([]domain.Transaction, error)
	HoldingsSummary(ctx context.Context, userID uuid.UUID) (domain.HoldingsSummary, error)

	// Ledger writes
	CreateBuyTransaction(ctx context.Context, tx *domain.Transaction) error
	// CreateWithdrawalReserving inserts a pending withdrawal after verifying,
	// under the user's row lock, that available holdings (held minus existing
	// reservations) cover the requested grams.
	CreateWithdrawalReserving(ctx context.Context, tx *domain.Transaction) error
	// SettleBuy moves a pending buy to completed exactly once.
	SettleBuy(ctx context.Context, transactionID uuid.UUID, referenceID string) (*domain.Transaction, error)
	// FailBuy moves a pending buy to failed exactly once.
	FailBuy(ctx context.Context, transactionID uuid.UUID, reason string) (*domain.Transaction, error)
	TransitionWithdrawal(ctx context.Context, params WithdrawalTransition) (*domain.Transaction, error)

	// Audit trail
	AppendAudit(ctx context.Context, entry *domain.AuditEntry) error
	AuditTrail(ctx context.Context, transactionID uuid.UUID) ([]domain.AuditEntry, error)
}
