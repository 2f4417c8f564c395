package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema is applied at startup. Statements are idempotent so repeated boots
// are safe. The unique indexes on submissions (task_id, worker_id) and
// transactions session_id are load-bearing: they are the storage-level guard
// against duplicate submissions and double-credited payment sessions.
const schema = `
CREATE TABLE IF NOT EXISTS accounts (
    id              UUID PRIMARY KEY,
    name            TEXT NOT NULL,
    email           TEXT NOT NULL,
    password_hash   TEXT NOT NULL,
    role            TEXT NOT NULL CHECK (role IN ('worker', 'buyer', 'admin')),
    balance         INTEGER NOT NULL DEFAULT 0 CHECK (balance >= 0),
    is_active       BOOLEAN NOT NULL DEFAULT TRUE,
    completed_tasks INTEGER NOT NULL DEFAULT 0,
    total_earnings  INTEGER NOT NULL DEFAULT 0,
    created_tasks   INTEGER NOT NULL DEFAULT 0,
    total_spent     INTEGER NOT NULL DEFAULT 0,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE UNIQUE INDEX IF NOT EXISTS accounts_email_key ON accounts (lower(email));

CREATE TABLE IF NOT EXISTS tasks (
    id               UUID PRIMARY KEY,
    buyer_id         UUID NOT NULL REFERENCES accounts(id),
    title            TEXT NOT NULL,
    description      TEXT NOT NULL DEFAULT '',
    submission_info  TEXT NOT NULL DEFAULT '',
    reward_per_unit  INTEGER NOT NULL CHECK (reward_per_unit >= 1),
    required_units   INTEGER NOT NULL CHECK (required_units >= 1),
    available_units  INTEGER NOT NULL CHECK (available_units >= 0),
    submission_count INTEGER NOT NULL DEFAULT 0,
    approved_count   INTEGER NOT NULL DEFAULT 0,
    rejected_count   INTEGER NOT NULL DEFAULT 0,
    status           TEXT NOT NULL DEFAULT 'active'
        CHECK (status IN ('active', 'paused', 'completed', 'cancelled')),
    deadline         TIMESTAMPTZ NOT NULL,
    created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS tasks_buyer_idx ON tasks (buyer_id);

CREATE TABLE IF NOT EXISTS submissions (
    id          UUID PRIMARY KEY,
    task_id     UUID NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
    worker_id   UUID NOT NULL REFERENCES accounts(id),
    details     TEXT NOT NULL,
    attachments TEXT[] NOT NULL DEFAULT '{}',
    status      TEXT NOT NULL DEFAULT 'pending'
        CHECK (status IN ('pending', 'approved', 'rejected')),
    review_note TEXT NOT NULL DEFAULT '',
    reviewed_by UUID REFERENCES accounts(id),
    reviewed_at TIMESTAMPTZ,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
    UNIQUE (task_id, worker_id)
);
CREATE INDEX IF NOT EXISTS submissions_worker_idx ON submissions (worker_id);

CREATE TABLE IF NOT EXISTS transactions (
    id             UUID PRIMARY KEY,
    account_id     UUID NOT NULL REFERENCES accounts(id),
    kind           TEXT NOT NULL
        CHECK (kind IN ('purchase', 'earning', 'withdrawal', 'payment', 'refund')),
    amount         INTEGER NOT NULL,
    description    TEXT NOT NULL DEFAULT '',
    task_id        UUID,
    submission_id  UUID,
    session_id     TEXT,
    balance_before INTEGER NOT NULL,
    balance_after  INTEGER NOT NULL,
    created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
    CHECK (balance_after = balance_before + amount)
);
CREATE UNIQUE INDEX IF NOT EXISTS transactions_session_key
    ON transactions (session_id) WHERE session_id IS NOT NULL;
CREATE INDEX IF NOT EXISTS transactions_account_idx ON transactions (account_id, created_at DESC);

CREATE TABLE IF NOT EXISTS withdrawal_requests (
    id             UUID PRIMARY KEY,
    worker_id      UUID NOT NULL REFERENCES accounts(id),
    coin_amount    INTEGER NOT NULL CHECK (coin_amount >= 1),
    dollar_amount  DOUBLE PRECISION NOT NULL,
    payment_system TEXT NOT NULL,
    account_number TEXT NOT NULL,
    status         TEXT NOT NULL DEFAULT 'pending'
        CHECK (status IN ('pending', 'approved', 'rejected')),
    created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS withdrawals_worker_idx ON withdrawal_requests (worker_id);

CREATE TABLE IF NOT EXISTS payment_sessions (
    id          UUID PRIMARY KEY,
    session_id  TEXT NOT NULL UNIQUE,
    buyer_id    UUID NOT NULL REFERENCES accounts(id),
    coins       INTEGER NOT NULL CHECK (coins >= 1),
    price_cents INTEGER NOT NULL CHECK (price_cents >= 0),
    status      TEXT NOT NULL DEFAULT 'pending'
        CHECK (status IN ('pending', 'delivered')),
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS notifications (
    id            UUID PRIMARY KEY,
    account_id    UUID NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
    title         TEXT NOT NULL,
    message       TEXT NOT NULL,
    type          TEXT NOT NULL DEFAULT 'system',
    action_route  TEXT NOT NULL DEFAULT '/dashboard',
    task_id       UUID,
    submission_id UUID,
    is_read       BOOLEAN NOT NULL DEFAULT FALSE,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS notifications_account_idx ON notifications (account_id, is_read);
`

// Migrate applies the schema.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, schema)
	return err
}
