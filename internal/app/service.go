/**
 * @description
 * This file contains the core business logic wiring for the ledger-service.
 * The `Service` struct coordinates between the database repository, the
 * Cashfree gateway client, and the RabbitMQ event producer. The individual
 * use cases live in purchase.go, withdrawal.go, portfolio.go and price.go.
 *
 * @dependencies
 * - context, errors: Standard Go libraries.
 * - internal/domain, internal/store: For domain models and data access.
 * - pkg/cashfree, pkg/rabbitmq: For external service communication.
 */

package app

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/goldvault/ledger-service/internal/domain"
	"github.com/goldvault/ledger-service/internal/store"
	"github.com/goldvault/ledger-service/pkg/cashfree"
	"github.com/goldvault/ledger-service/pkg/rabbitmq"
)

var (
	ErrInvalidAmount        = errors.New("amount must be greater than zero")
	ErrInvalidQuantity      = errors.New("grams must be greater than zero")
	ErrInvalidPrice         = errors.New("price must be greater than zero")
	ErrMissingReferenceID   = errors.New("reference id is required")
	ErrMissingReason        = errors.New("rejection reason is required")
	ErrKYCIncomplete        = errors.New("bank and kyc details are incomplete")
	ErrGatewayUnavailable   = errors.New("payment gateway unavailable")
	ErrVerificationPending  = errors.New("payment not yet settled")
	ErrSettlementFailed     = errors.New("payment settlement failed")
	ErrNotWithdrawal        = errors.New("transaction is not a withdrawal")
	ErrRateLimited          = errors.New("too many requests")
)

// PaymentGateway is the slice of the gateway contract the ledger consumes:
// order creation and settlement truth. The checkout widget is the browser's
// concern.
type PaymentGateway interface {
	CreateOrder(ctx context.Context, orderID, customerID string, amount decimal.Decimal) (*cashfree.CreateOrderResponse, error)
	GetSettlement(ctx context.Context, orderID string) (cashfree.SettlementStatus, string, error)
}

// Service provides the core business logic for the gold ledger.
type Service struct {
	repo        store.Repository
	gateway     PaymentGateway
	events      rabbitmq.Publisher
	rateLimiter *RedisRateLimiter

	verifyRateLimitPerMinute   int
	withdrawRateLimitPerMinute int
}

// NewService creates a new ledger service instance.
func NewService(repo store.Repository, gateway PaymentGateway, events rabbitmq.Publisher) *Service {
	return &Service{
		repo:    repo,
		gateway: gateway,
		events:  events,
	}
}

// SetRateLimiter enables distributed rate limiting on the abuse-prone
// endpoints. A nil limiter leaves them unlimited.
func (s *Service) SetRateLimiter(limiter *RedisRateLimiter, verifyPerMinute, withdrawPerMinute int) {
	s.rateLimiter = limiter
	s.verifyRateLimitPerMinute = verifyPerMinute
	s.withdrawRateLimitPerMinute = withdrawPerMinute
}

func (s *Service) consumeRateLimit(ctx context.Context, scope string, subject uuid.UUID, limit int) error {
	if s.rateLimiter == nil || limit <= 0 {
		return nil
	}
	count, _, err := s.rateLimiter.ConsumeRateLimit(ctx, scope, subject.String(), limit, time.Minute)
	if err != nil {
		// Limiter outage must not take payments down with it.
		log.Printf("level=warn component=ledger_service msg=\"rate limiter unavailable; allowing request\" scope=%s err=%v", scope, err)
		return nil
	}
	if count > limit {
		return ErrRateLimited
	}
	return nil
}

// publishTransition emits a ledger event for an applied transition. Publish
// failures are logged, never surfaced: the ledger row is already durable.
func (s *Service) publishTransition(ctx context.Context, tx *domain.Transaction, from string, actor uuid.UUID, reference string) {
	if s.events == nil {
		return
	}
	event := rabbitmq.TransitionEvent{
		TransactionID: tx.ID,
		UserID:        tx.UserID,
		Kind:          tx.Kind,
		FromStatus:    from,
		ToStatus:      tx.Status,
		ActorID:       actor,
		Reference:     reference,
		Timestamp:     time.Now().UTC(),
	}
	if err := s.events.PublishTransitionEvent(ctx, event); err != nil {
		log.Printf("level=warn component=ledger_service msg=\"transition event publish failed\" transaction_id=%s err=%v", tx.ID, err)
	}
}

// recordAudit appends an audit row for an attempted transition. Audit write
// failures are logged rather than failing the already-applied transition.
func (s *Service) recordAudit(ctx context.Context, entry domain.AuditEntry) {
	if err := s.repo.AppendAudit(ctx, &entry); err != nil {
		log.Printf("level=error component=ledger_service msg=\"audit append failed\" transaction_id=%s action=%s err=%v", entry.TransactionID, entry.Action, err)
	}
}

// GetUser returns the profile the settings screen reads.
func (s *Service) GetUser(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	return s.repo.FindUserByID(ctx, userID)
}

// UpdateProfile writes the KYC/bank fields required before withdrawals.
func (s *Service) UpdateProfile(ctx context.Context, userID uuid.UUID, update domain.ProfileUpdate) (*domain.User, error) {
	return s.repo.UpdateUserProfile(ctx, userID, update)
}

// TransactionHistory returns the user's own ledger rows, newest first.
func (s *Service) TransactionHistory(ctx context.Context, userID uuid.UUID) ([]domain.HistoryEntry, error) {
	transactions, err := s.repo.FindTransactionsByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	entries := make([]domain.HistoryEntry, 0, len(transactions))
	for _, tx := range transactions {
		entries = append(entries, domain.HistoryEntry{
			ID:        tx.ID,
			Kind:      tx.Kind,
			Status:    tx.Status,
			AmountINR: tx.AmountINR,
			Grams:     tx.Grams,
			CreatedAt: tx.CreatedAt,
		})
	}
	return entries, nil
}

// ListAllTransactions is the admin view over the whole ledger.
func (s *Service) ListAllTransactions(ctx context.Context) ([]domain.AdminTransaction, error) {
	return s.repo.ListAllTransactions(ctx)
}

// ListUserHoldings is the admin users-portfolio listing.
func (s *Service) ListUserHoldings(ctx context.Context) ([]domain.UserHolding, error) {
	return s.repo.ListUserHoldings(ctx)
}

// AuditTrail returns the transition history of one transaction.
func (s *Service) AuditTrail(ctx context.Context, transactionID uuid.UUID) ([]domain.AuditEntry, error) {
	return s.repo.AuditTrail(ctx, transactionID)
}
