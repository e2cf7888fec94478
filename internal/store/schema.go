/**
 * @description
 * Schema bootstrap for the ledger database. Applied at startup with
 * idempotent CREATE IF NOT EXISTS statements so a fresh environment comes up
 * without a separate migration step.
 */

package store

import "context"

const schemaDDL = `
CREATE TABLE IF NOT EXISTS users (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    name TEXT NOT NULL,
    email TEXT NOT NULL UNIQUE,
    phone TEXT NOT NULL DEFAULT '',
    role TEXT NOT NULL DEFAULT 'user',
    pan_number TEXT,
    aadhaar_number TEXT,
    bank_account_name TEXT,
    bank_account_number TEXT,
    bank_ifsc_code TEXT,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS gold_prices (
    id BIGSERIAL PRIMARY KEY,
    price_per_gram NUMERIC(12,2) NOT NULL,
    recorded_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_gold_prices_recorded_at ON gold_prices (recorded_at DESC);

CREATE TABLE IF NOT EXISTS transactions (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    user_id UUID NOT NULL REFERENCES users (id),
    kind TEXT NOT NULL CHECK (kind IN ('buy', 'withdraw')),
    status TEXT NOT NULL DEFAULT 'pending',
    grams NUMERIC(16,4) NOT NULL,
    amount_inr NUMERIC(14,2) NOT NULL,
    price_per_gram NUMERIC(12,2) NOT NULL,
    reference_id TEXT,
    rejection_reason TEXT,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    completed_at TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_transactions_user_id ON transactions (user_id);
CREATE INDEX IF NOT EXISTS idx_transactions_status ON transactions (status);

CREATE TABLE IF NOT EXISTS audit_log (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    transaction_id UUID NOT NULL,
    actor_id UUID NOT NULL,
    action TEXT NOT NULL,
    from_status TEXT NOT NULL DEFAULT '',
    to_status TEXT NOT NULL DEFAULT '',
    reference TEXT NOT NULL DEFAULT '',
    outcome TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_audit_log_transaction_id ON audit_log (transaction_id);
`

// EnsureSchema creates the ledger tables if they do not exist yet.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.Exec(ctx, schemaDDL)
	return err
}
