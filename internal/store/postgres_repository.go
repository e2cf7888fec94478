/**
 * @description
 * This file provides the PostgreSQL implementation of the `Repository` interface
 * for users, prices, audit rows, and ledger reads. The atomic withdrawal paths
 * live in postgres_repository_withdrawals.go.
 *
 * @dependencies
 * - context, time, errors: Standard Go libraries.
 * - github.com/jackc/pgx/v5: The PostgreSQL driver for database operations.
 * - internal/domain: Contains the domain models used for data transfer.
 *
 * @notes
 * - NUMERIC columns are selected with ::text casts and parsed with
 *   decimal.NewFromString so amounts never pass through float64.
 */

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/goldvault/ledger-service/internal/domain"
)

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrTransactionNotFound  = errors.New("transaction not found")
	ErrPriceUnavailable     = errors.New("no price recorded")
	ErrInsufficientHoldings = errors.New("insufficient holdings")
	ErrInvalidTransition    = errors.New("invalid status transition")
)

// PostgresRepository is a concrete implementation of the Repository interface for PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new instance of PostgresRepository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const userColumns = `id, name, email, phone, role, pan_number, aadhaar_number,
       bank_account_name, bank_account_number, bank_ifsc_code, created_at`

func scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	err := row.Scan(
		&user.ID, &user.Name, &user.Email, &user.Phone, &user.Role,
		&user.PANNumber, &user.AadhaarNumber,
		&user.BankAccountName, &user.BankAccountNumber, &user.BankIFSCCode,
		&user.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// FindUserByID retrieves a user from the database by their ID.
func (r *PostgresRepository) FindUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRow(ctx, query, userID))
}

// UpdateUserProfile writes the settings-screen KYC/bank fields and returns the
// updated user so callers need no separate read.
func (r *PostgresRepository) UpdateUserProfile(ctx context.Context, userID uuid.UUID, update domain.ProfileUpdate) (*domain.User, error) {
	query := `
		UPDATE users
		SET bank_account_name = $2,
		    bank_account_number = $3,
		    bank_ifsc_code = $4,
		    pan_number = NULLIF($5, ''),
		    aadhaar_number = NULLIF($6, ''),
		    updated_at = NOW()
		WHERE id = $1
		RETURNING ` + userColumns
	return scanUser(r.db.QueryRow(ctx, query, userID,
		update.AccountName, update.AccountNumber, update.IFSCCode,
		update.PANNumber, update.AadhaarNumber))
}

// ListUserHoldings joins every user with their ledger-derived net holdings for
// the admin users-portfolio screen.
func (r *PostgresRepository) ListUserHoldings(ctx context.Context) ([]domain.UserHolding, error) {
	query := `
		SELECT u.id, u.name, u.email, u.phone, u.created_at,
		       COALESCE(SUM(
		           CASE WHEN t.status = 'completed' AND t.kind = 'buy' THEN t.grams
		                WHEN t.status = 'completed' AND t.kind = 'withdraw' THEN -t.grams
		                ELSE 0 END
		       ), 0)::text AS total_grams
		FROM users u
		LEFT JOIN transactions t ON t.user_id = u.id
		GROUP BY u.id, u.name, u.email, u.phone, u.created_at
		ORDER BY u.created_at
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var holdings []domain.UserHolding
	for rows.Next() {
		var h domain.UserHolding
		var grams string
		if err := rows.Scan(&h.ID, &h.Name, &h.Email, &h.Phone, &h.CreatedAt, &grams); err != nil {
			return nil, err
		}
		if h.TotalGrams, err = decimal.NewFromString(grams); err != nil {
			return nil, fmt.Errorf("parse total grams for user %s: %w", h.ID, err)
		}
		holdings = append(holdings, h)
	}
	return holdings, rows.Err()
}

// LatestPrice returns the current price-per-gram (the newest snapshot).
func (r *PostgresRepository) LatestPrice(ctx context.Context) (*domain.PriceSnapshot, error) {
	var snap domain.PriceSnapshot
	var price string
	query := `SELECT id, price_per_gram::text, recorded_at FROM gold_prices ORDER BY recorded_at DESC, id DESC LIMIT 1`
	err := r.db.QueryRow(ctx, query).Scan(&snap.ID, &price, &snap.RecordedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrPriceUnavailable
		}
		return nil, err
	}
	if snap.PricePerGram, err = decimal.NewFromString(price); err != nil {
		return nil, fmt.Errorf("parse price snapshot: %w", err)
	}
	return &snap, nil
}

// InsertPrice appends a new price snapshot and returns it.
func (r *PostgresRepository) InsertPrice(ctx context.Context, pricePerGram decimal.Decimal) (*domain.PriceSnapshot, error) {
	var snap domain.PriceSnapshot
	query := `INSERT INTO gold_prices (price_per_gram, recorded_at) VALUES ($1::numeric, NOW()) RETURNING id, recorded_at`
	if err := r.db.QueryRow(ctx, query, pricePerGram.String()).Scan(&snap.ID, &snap.RecordedAt); err != nil {
		return nil, err
	}
	snap.PricePerGram = pricePerGram
	return &snap, nil
}

// PriceHistory returns snapshots recorded at or after `since`, time-ascending.
func (r *PostgresRepository) PriceHistory(ctx context.Context, since time.Time) ([]domain.PriceSnapshot, error) {
	query := `SELECT id, price_per_gram::text, recorded_at FROM gold_prices WHERE recorded_at >= $1 ORDER BY recorded_at ASC, id ASC`
	rows, err := r.db.Query(ctx, query, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snaps []domain.PriceSnapshot
	for rows.Next() {
		var snap domain.PriceSnapshot
		var price string
		if err := rows.Scan(&snap.ID, &price, &snap.RecordedAt); err != nil {
			return nil, err
		}
		if snap.PricePerGram, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("parse price snapshot %d: %w", snap.ID, err)
		}
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}

// PrunePriceHistory deletes snapshots older than `before`, keeping the series bounded.
func (r *PostgresRepository) PrunePriceHistory(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.Exec(ctx, `DELETE FROM gold_prices WHERE recorded_at < $1`, before)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const transactionColumns = `id, user_id, kind, status, grams::text, amount_inr::text,
       price_per_gram::text, reference_id, rejection_reason, created_at, completed_at`

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var tx domain.Transaction
	var grams, amount, price string
	err := row.Scan(
		&tx.ID, &tx.UserID, &tx.Kind, &tx.Status, &grams, &amount, &price,
		&tx.ReferenceID, &tx.RejectionReason, &tx.CreatedAt, &tx.CompletedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	if tx.Grams, err = decimal.NewFromString(grams); err != nil {
		return nil, fmt.Errorf("parse grams for transaction %s: %w", tx.ID, err)
	}
	if tx.AmountINR, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("parse amount for transaction %s: %w", tx.ID, err)
	}
	if tx.PricePerGram, err = decimal.NewFromString(price); err != nil {
		return nil, fmt.Errorf("parse price for transaction %s: %w", tx.ID, err)
	}
	return &tx, nil
}

// FindTransactionByID retrieves one ledger row.
func (r *PostgresRepository) FindTransactionByID(ctx context.Context, transactionID uuid.UUID) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`
	return scanTransaction(r.db.QueryRow(ctx, query, transactionID))
}

// FindTransactionsByUserID retrieves all transactions for a user, newest first.
func (r *PostgresRepository) FindTransactionsByUserID(ctx context.Context, userID uuid.UUID) ([]domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transactions []domain.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, *tx)
	}
	return transactions, rows.Err()
}

// CompletedTransactionsInOrder returns completed rows ordered by the moment
// their economic effect applied. completed_at falls back to created_at for
// rows completed before the column existed.
func (r *PostgresRepository) CompletedTransactionsInOrder(ctx context.Context, userID uuid.UUID) ([]domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + `
		FROM transactions
		WHERE user_id = $1 AND status = 'completed'
		ORDER BY COALESCE(completed_at, created_at) ASC, created_at ASC`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transactions []domain.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, *tx)
	}
	return transactions, rows.Err()
}

// ListAllTransactions joins every ledger row with user identity for the admin
// transaction listing, newest first.
func (r *PostgresRepository) ListAllTransactions(ctx context.Context) ([]domain.AdminTransaction, error) {
	query := `
		SELECT t.id, t.user_id, t.kind, t.status, t.grams::text, t.amount_inr::text,
		       t.price_per_gram::text, t.reference_id, t.rejection_reason, t.created_at, t.completed_at,
		       u.name, u.email
		FROM transactions t
		JOIN users u ON u.id = t.user_id
		ORDER BY t.created_at DESC
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transactions []domain.AdminTransaction
	for rows.Next() {
		var tx domain.AdminTransaction
		var grams, amount, price string
		err := rows.Scan(
			&tx.ID, &tx.UserID, &tx.Kind, &tx.Status, &grams, &amount, &price,
			&tx.ReferenceID, &tx.RejectionReason, &tx.CreatedAt, &tx.CompletedAt,
			&tx.UserName, &tx.UserEmail,
		)
		if err != nil {
			return nil, err
		}
		if tx.Grams, err = decimal.NewFromString(grams); err != nil {
			return nil, err
		}
		if tx.AmountINR, err = decimal.NewFromString(amount); err != nil {
			return nil, err
		}
		if tx.PricePerGram, err = decimal.NewFromString(price); err != nil {
			return nil, err
		}
		transactions = append(transactions, tx)
	}
	return transactions, rows.Err()
}

// ListOpenWithdrawals returns pending and pending_payout withdrawals joined
// with the user identity and bank fields the admin screens display.
func (r *PostgresRepository) ListOpenWithdrawals(ctx context.Context) ([]domain.WithdrawalRequestView, error) {
	query := `
		SELECT t.id, t.user_id, t.amount_inr::text, t.grams::text, t.price_per_gram::text,
		       t.status, t.created_at,
		       u.name, u.email, u.phone,
		       u.bank_account_name, u.bank_account_number, u.bank_ifsc_code
		FROM transactions t
		JOIN users u ON u.id = t.user_id
		WHERE t.kind = 'withdraw' AND t.status IN ('pending', 'pending_payout')
		ORDER BY t.created_at ASC
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []domain.WithdrawalRequestView
	for rows.Next() {
		var req domain.WithdrawalRequestView
		var amount, grams, price string
		err := rows.Scan(
			&req.ID, &req.UserID, &amount, &grams, &price, &req.Status, &req.CreatedAt,
			&req.UserName, &req.UserEmail, &req.UserPhone,
			&req.BankAccountName, &req.BankAccountNumber, &req.BankIFSCCode,
		)
		if err != nil {
			return nil, err
		}
		if req.AmountINR, err = decimal.NewFromString(amount); err != nil {
			return nil, err
		}
		if req.Grams, err = decimal.NewFromString(grams); err != nil {
			return nil, err
		}
		if req.PricePerGram, err = decimal.NewFromString(price); err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}
	return requests, rows.Err()
}

// CreateBuyTransaction inserts a new pending buy row.
func (r *PostgresRepository) CreateBuyTransaction(ctx context.Context, tx *domain.Transaction) error {
	query := `
		INSERT INTO transactions (id, user_id, kind, status, grams, amount_inr, price_per_gram, created_at)
		VALUES ($1, $2, 'buy', 'pending', $3::numeric, $4::numeric, $5::numeric, NOW())
		RETURNING created_at
	`
	return r.db.QueryRow(ctx, query,
		tx.ID, tx.UserID, tx.Grams.String(), tx.AmountINR.String(), tx.PricePerGram.String(),
	).Scan(&tx.CreatedAt)
}

// AppendAudit records one attempted transition, applied or denied.
func (r *PostgresRepository) AppendAudit(ctx context.Context, entry *domain.AuditEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	query := `
		INSERT INTO audit_log (id, transaction_id, actor_id, action, from_status, to_status, reference, outcome, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		RETURNING created_at
	`
	return r.db.QueryRow(ctx, query,
		entry.ID, entry.TransactionID, entry.ActorID, entry.Action,
		entry.FromStatus, entry.ToStatus, entry.Reference, entry.Outcome,
	).Scan(&entry.CreatedAt)
}

// AuditTrail returns the transition history of one transaction, oldest first.
func (r *PostgresRepository) AuditTrail(ctx context.Context, transactionID uuid.UUID) ([]domain.AuditEntry, error) {
	query := `
		SELECT id, transaction_id, actor_id, action, from_status, to_status, reference, outcome, created_at
		FROM audit_log
		WHERE transaction_id = $1
		ORDER BY created_at ASC
	`
	rows, err := r.db.Query(ctx, query, transactionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.AuditEntry
	for rows.Next() {
		var e domain.AuditEntry
		if err := rows.Scan(&e.ID, &e.TransactionID, &e.ActorID, &e.Action, &e.FromStatus, &e.ToStatus, &e.Reference, &e.Outcome, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
