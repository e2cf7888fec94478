/**
 * @description
 * The withdrawal lifecycle: request, admin approval (single-phase or
 * deferred), payout completion, and rejection. Every admin move is a single
 * compare-and-set keyed by the transaction's current status, so a second
 * concurrent call observes the post-transition state and fails with
 * store.ErrInvalidTransition instead of double-applying. Every attempt,
 * applied or denied, lands in the audit trail.
 */

package app

import (
	"context"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/goldvault/ledger-service/internal/domain"
	"github.com/goldvault/ledger-service/internal/store"
)

const (
	actionRequest        = "request"
	actionApprove        = "approve"
	actionApproveDefer   = "approve_deferred"
	actionCompletePayout = "complete_payout"
	actionReject         = "reject"
)

// RequestWithdrawal creates a pending withdrawal at the current price. The
// grams are reserved (counted against availability) but not yet debited; the
// debit happens only when the request reaches completed.
func (s *Service) RequestWithdrawal(ctx context.Context, userID uuid.UUID, grams decimal.Decimal) (*domain.Transaction, error) {
	if err := s.consumeRateLimit(ctx, "request_withdrawal", userID, s.withdrawRateLimitPerMinute); err != nil {
		return nil, err
	}
	if !grams.IsPositive() {
		return nil, ErrInvalidQuantity
	}

	user, err := s.repo.FindUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.KYCComplete() {
		return nil, ErrKYCIncomplete
	}

	price, err := s.repo.LatestPrice(ctx)
	if err != nil {
		return nil, err
	}

	quantity := grams.Round(domain.GramPrecision)
	txRecord := &domain.Transaction{
		ID:           uuid.New(),
		UserID:       userID,
		Kind:         domain.KindWithdraw,
		Status:       domain.StatusPending,
		Grams:        quantity,
		AmountINR:    quantity.Mul(price.PricePerGram).Round(domain.RupeePrecision),
		PricePerGram: price.PricePerGram,
	}

	// The repository checks availability and inserts under the user's row
	// lock, so two concurrent requests cannot jointly over-reserve.
	if err := s.repo.CreateWithdrawalReserving(ctx, txRecord); err != nil {
		return nil, err
	}

	log.Printf("level=info component=ledger_service endpoint=request_withdrawal outcome=accepted transaction_id=%s user_id=%s grams=%s amount=%s",
		txRecord.ID, userID, txRecord.Grams, txRecord.AmountINR)
	s.recordAudit(ctx, domain.AuditEntry{
		TransactionID: txRecord.ID,
		ActorID:       userID,
		Action:        actionRequest,
		FromStatus:    "",
		ToStatus:      domain.StatusPending,
		Outcome:       domain.AuditApplied,
	})
	return txRecord, nil
}

// ListOpenWithdrawals is the admin queue: pending plus pending_payout.
func (s *Service) ListOpenWithdrawals(ctx context.Context) ([]domain.WithdrawalRequestView, error) {
	return s.repo.ListOpenWithdrawals(ctx)
}

// ApproveWithdrawal applies an admin approval. Single-phase approval settles
// the request outright (pending -> completed, debit applies); with deferPayout
// it only marks the payout as authorized (pending -> pending_payout) and the
// debit waits for CompletePayout. KYC and coverage are re-validated here
// because both can have shifted since the request was made.
func (s *Service) ApproveWithdrawal(ctx context.Context, actorID, transactionID uuid.UUID, referenceID string, deferPayout bool) (*domain.Transaction, error) {
	referenceID = strings.TrimSpace(referenceID)
	if referenceID == "" {
		return nil, ErrMissingReferenceID
	}

	action := actionApprove
	toStatus := domain.StatusCompleted
	if deferPayout {
		action = actionApproveDefer
		toStatus = domain.StatusPendingPayout
	}

	if err := s.revalidateOwnerKYC(ctx, transactionID); err != nil {
		s.auditDenied(ctx, actorID, transactionID, action, toStatus, err)
		return nil, err
	}

	tx, err := s.repo.TransitionWithdrawal(ctx, store.WithdrawalTransition{
		TransactionID:   transactionID,
		FromStatus:      domain.StatusPending,
		ToStatus:        toStatus,
		ReferenceID:     &referenceID,
		SetCompletedAt:  !deferPayout,
		RequireCoverage: true,
	})
	if err != nil {
		s.auditDenied(ctx, actorID, transactionID, action, toStatus, err)
		return tx, err
	}

	log.Printf("level=info component=ledger_service endpoint=approve_withdrawal outcome=%s transaction_id=%s actor_id=%s reference_id=%s",
		tx.Status, tx.ID, actorID, referenceID)
	s.recordAudit(ctx, domain.AuditEntry{
		TransactionID: tx.ID,
		ActorID:       actorID,
		Action:        action,
		FromStatus:    domain.StatusPending,
		ToStatus:      tx.Status,
		Reference:     referenceID,
		Outcome:       domain.AuditApplied,
	})
	s.publishTransition(ctx, tx, domain.StatusPending, actorID, referenceID)
	return tx, nil
}

// CompletePayout finalizes a deferred payout: pending_payout -> completed.
// This is the moment the ledger debit takes effect for the two-phase path.
func (s *Service) CompletePayout(ctx context.Context, actorID, transactionID uuid.UUID, referenceID string) (*domain.Transaction, error) {
	referenceID = strings.TrimSpace(referenceID)
	if referenceID == "" {
		return nil, ErrMissingReferenceID
	}

	tx, err := s.repo.TransitionWithdrawal(ctx, store.WithdrawalTransition{
		TransactionID:  transactionID,
		FromStatus:     domain.StatusPendingPayout,
		ToStatus:       domain.StatusCompleted,
		ReferenceID:    &referenceID,
		SetCompletedAt: true,
	})
	if err != nil {
		s.auditDenied(ctx, actorID, transactionID, actionCompletePayout, domain.StatusCompleted, err)
		return tx, err
	}

	log.Printf("level=info component=ledger_service endpoint=complete_payout outcome=completed transaction_id=%s actor_id=%s reference_id=%s",
		tx.ID, actorID, referenceID)
	s.recordAudit(ctx, domain.AuditEntry{
		TransactionID: tx.ID,
		ActorID:       actorID,
		Action:        actionCompletePayout,
		FromStatus:    domain.StatusPendingPayout,
		ToStatus:      tx.Status,
		Reference:     referenceID,
		Outcome:       domain.AuditApplied,
	})
	s.publishTransition(ctx, tx, domain.StatusPendingPayout, actorID, referenceID)
	return tx, nil
}

// RejectWithdrawal moves a pending request to rejected, releasing its
// reservation. No ledger debit is involved.
func (s *Service) RejectWithdrawal(ctx context.Context, actorID, transactionID uuid.UUID, reason string) (*domain.Transaction, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ErrMissingReason
	}

	tx, err := s.repo.TransitionWithdrawal(ctx, store.WithdrawalTransition{
		TransactionID: transactionID,
		FromStatus:    domain.StatusPending,
		ToStatus:      domain.StatusRejected,
		Reason:        &reason,
	})
	if err != nil {
		s.auditDenied(ctx, actorID, transactionID, actionReject, domain.StatusRejected, err)
		return tx, err
	}

	log.Printf("level=info component=ledger_service endpoint=reject_withdrawal outcome=rejected transaction_id=%s actor_id=%s", tx.ID, actorID)
	s.recordAudit(ctx, domain.AuditEntry{
		TransactionID: tx.ID,
		ActorID:       actorID,
		Action:        actionReject,
		FromStatus:    domain.StatusPending,
		ToStatus:      tx.Status,
		Reference:     reason,
		Outcome:       domain.AuditApplied,
	})
	s.publishTransition(ctx, tx, domain.StatusPending, actorID, reason)
	return tx, nil
}

// revalidateOwnerKYC re-checks the request owner's bank/KYC completeness at
// approval time.
func (s *Service) revalidateOwnerKYC(ctx context.Context, transactionID uuid.UUID) error {
	tx, err := s.repo.FindTransactionByID(ctx, transactionID)
	if err != nil {
		return err
	}
	if tx.Kind != domain.KindWithdraw {
		return ErrNotWithdrawal
	}
	owner, err := s.repo.FindUserByID(ctx, tx.UserID)
	if err != nil {
		return err
	}
	if !owner.KYCComplete() {
		return ErrKYCIncomplete
	}
	return nil
}

func (s *Service) auditDenied(ctx context.Context, actorID, transactionID uuid.UUID, action, toStatus string, cause error) {
	s.recordAudit(ctx, domain.AuditEntry{
		TransactionID: transactionID,
		ActorID:       actorID,
		Action:        action,
		ToStatus:      toStatus,
		Reference:     cause.Error(),
		Outcome:       domain.AuditDenied,
	})
}
