package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/goldvault/ledger-service/internal/domain"
)

// queryRower lets the holdings query run against the pool or inside an open
// database transaction.
type queryRower interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const holdingsQuery = `
	SELECT
		COALESCE(SUM(grams) FILTER (WHERE kind = 'buy' AND status = 'completed'), 0)::text,
		COALESCE(SUM(grams) FILTER (WHERE kind = 'withdraw' AND status = 'completed'), 0)::text,
		COALESCE(SUM(grams) FILTER (WHERE kind = 'withdraw' AND status IN ('pending', 'pending_payout')), 0)::text
	FROM transactions
	WHERE user_id = $1
`

func holdingsSummary(ctx context.Context, q queryRower, userID uuid.UUID) (domain.HoldingsSummary, error) {
	var summary domain.HoldingsSummary
	var buys, withdraws, reserved string
	if err := q.QueryRow(ctx, holdingsQuery, userID).Scan(&buys, &withdraws, &reserved); err != nil {
		return summary, err
	}
	var err error
	if summary.CompletedBuys, err = decimal.NewFromString(buys); err != nil {
		return summary, fmt.Errorf("parse completed buys: %w", err)
	}
	if summary.CompletedWithdraws, err = decimal.NewFromString(withdraws); err != nil {
		return summary, fmt.Errorf("parse completed withdrawals: %w", err)
	}
	if summary.ReservedWithdraws, err = decimal.NewFromString(reserved); err != nil {
		return summary, fmt.Errorf("parse reserved withdrawals: %w", err)
	}
	return summary, nil
}

// HoldingsSummary returns the user's ledger sums under one consistent read.
func (r *PostgresRepository) HoldingsSummary(ctx context.Context, userID uuid.UUID) (domain.HoldingsSummary, error) {
	return holdingsSummary(ctx, r.db, userID)
}

// lockUserRow serializes holdings-affecting writes for one user. Two
// concurrent withdrawal requests for the same user queue on this lock, so each
// sees the other's reservation before its own availability check.
func lockUserRow(ctx context.Context, tx pgx.Tx, userID uuid.UUID) error {
	var id uuid.UUID
	if err := tx.QueryRow(ctx, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, userID).Scan(&id); err != nil {
		if err == pgx.ErrNoRows {
			return ErrUserNotFound
		}
		return err
	}
	return nil
}

// CreateWithdrawalReserving inserts a pending withdrawal only if available
// holdings cover it, all under the user's row lock.
func (r *PostgresRepository) CreateWithdrawalReserving(ctx context.Context, txRecord *domain.Transaction) error {
	dbtx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin withdrawal reservation: %w", err)
	}
	defer dbtx.Rollback(ctx)

	if err := lockUserRow(ctx, dbtx, txRecord.UserID); err != nil {
		return err
	}

	summary, err := holdingsSummary(ctx, dbtx, txRecord.UserID)
	if err != nil {
		return err
	}
	if summary.Available().LessThan(txRecord.Grams) {
		return ErrInsufficientHoldings
	}

	insert := `
		INSERT INTO transactions (id, user_id, kind, status, grams, amount_inr, price_per_gram, created_at)
		VALUES ($1, $2, 'withdraw', 'pending', $3::numeric, $4::numeric, $5::numeric, NOW())
		RETURNING created_at
	`
	if err := dbtx.QueryRow(ctx, insert,
		txRecord.ID, txRecord.UserID, txRecord.Grams.String(),
		txRecord.AmountINR.String(), txRecord.PricePerGram.String(),
	).Scan(&txRecord.CreatedAt); err != nil {
		return err
	}

	return dbtx.Commit(ctx)
}

// casTransition applies one guarded status update and returns the
// post-transition row. Zero rows matched means either the row is gone or a
// concurrent actor already moved it; a follow-up read disambiguates.
func casTransition(ctx context.Context, q queryRower, transactionID uuid.UUID, kind string, params WithdrawalTransition) (*domain.Transaction, error) {
	update := `
		UPDATE transactions
		SET status = $3,
		    reference_id = COALESCE($4, reference_id),
		    rejection_reason = COALESCE($5, rejection_reason),
		    completed_at = CASE WHEN $6 THEN NOW() ELSE completed_at END
		WHERE id = $1 AND kind = $7 AND status = $2
		RETURNING ` + transactionColumns

	tx, err := scanTransaction(q.QueryRow(ctx, update,
		transactionID, params.FromStatus, params.ToStatus,
		params.ReferenceID, params.Reason, params.SetCompletedAt, kind,
	))
	if err == nil {
		return tx, nil
	}
	if err != ErrTransactionNotFound {
		return nil, err
	}

	// CAS missed: report the observed state instead of double-applying.
	existing, lookupErr := scanTransaction(q.QueryRow(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = $1 AND kind = $2`,
		transactionID, kind))
	if lookupErr != nil {
		return nil, lookupErr
	}
	return existing, ErrInvalidTransition
}

// TransitionWithdrawal applies one state-machine move on a withdrawal row as a
// single atomic compare-and-set. With RequireCoverage it locks the user row
// and re-checks that completed holdings still cover the grams being paid out,
// since holdings can have shifted between request and admin action.
func (r *PostgresRepository) TransitionWithdrawal(ctx context.Context, params WithdrawalTransition) (*domain.Transaction, error) {
	if !params.RequireCoverage {
		return casTransition(ctx, r.db, params.TransactionID, domain.KindWithdraw, params)
	}

	dbtx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin withdrawal transition: %w", err)
	}
	defer dbtx.Rollback(ctx)

	pending, err := scanTransaction(dbtx.QueryRow(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = $1 AND kind = 'withdraw' FOR UPDATE`,
		params.TransactionID))
	if err != nil {
		return nil, err
	}
	if pending.Status != params.FromStatus {
		return pending, ErrInvalidTransition
	}

	if err := lockUserRow(ctx, dbtx, pending.UserID); err != nil {
		return nil, err
	}
	summary, err := holdingsSummary(ctx, dbtx, pending.UserID)
	if err != nil {
		return nil, err
	}
	if summary.Held().LessThan(pending.Grams) {
		return pending, ErrInsufficientHoldings
	}

	tx, err := casTransition(ctx, dbtx, params.TransactionID, domain.KindWithdraw, params)
	if err != nil {
		return tx, err
	}
	if err := dbtx.Commit(ctx); err != nil {
		return nil, err
	}
	return tx, nil
}

// SettleBuy credits a verified purchase exactly once: pending -> completed.
func (r *PostgresRepository) SettleBuy(ctx context.Context, transactionID uuid.UUID, referenceID string) (*domain.Transaction, error) {
	return casTransition(ctx, r.db, transactionID, domain.KindBuy, WithdrawalTransition{
		TransactionID:  transactionID,
		FromStatus:     domain.StatusPending,
		ToStatus:       domain.StatusCompleted,
		ReferenceID:    &referenceID,
		SetCompletedAt: true,
	})
}

// FailBuy marks a pending purchase failed exactly once.
func (r *PostgresRepository) FailBuy(ctx context.Context, transactionID uuid.UUID, reason string) (*domain.Transaction, error) {
	return casTransition(ctx, r.db, transactionID, domain.KindBuy, WithdrawalTransition{
		TransactionID: transactionID,
		FromStatus:    domain.StatusPending,
		ToStatus:      domain.StatusFailed,
		Reason:        &reason,
	})
}
