package db

import (
	"context"
	"fmt"
)

// sqliteSchema is the full SQLite schema, one statement per entry.
var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS products (
    id         TEXT PRIMARY KEY,
    name       TEXT NOT NULL,
    unit_price TEXT NOT NULL DEFAULT '0',
    stock      INTEGER NOT NULL DEFAULT 0 CHECK (typeof(stock) = 'integer' AND stock >= 0),
    category   TEXT NOT NULL CHECK (category IN ('TOOL', 'CONSUMABLE')),
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
)`,
	`CREATE TABLE IF NOT EXISTS workers (
    id         TEXT PRIMARY KEY,
    name       TEXT NOT NULL,
    contact    TEXT NOT NULL DEFAULT '',
    section    TEXT NOT NULL DEFAULT '',
    site       TEXT NOT NULL DEFAULT '',
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
)`,
	`CREATE TABLE IF NOT EXISTS loans (
    id             INTEGER PRIMARY KEY AUTOINCREMENT,
    transaction_id TEXT NOT NULL,
    worker_id      TEXT NOT NULL,
    product_id     TEXT NOT NULL REFERENCES products(id),
    category       TEXT NOT NULL CHECK (category IN ('TOOL', 'CONSUMABLE')),
    quantity       INTEGER NOT NULL CHECK (quantity > 0),
    checkout_at    DATETIME NOT NULL,
    returned_at    DATETIME,
    status         TEXT NOT NULL CHECK (status IN ('ACTIVE', 'RETURNED', 'CONSUMED'))
)`,
	`CREATE INDEX IF NOT EXISTS idx_loans_transaction ON loans(transaction_id)`,
	`CREATE INDEX IF NOT EXISTS idx_loans_worker_status ON loans(worker_id, status)`,
	`CREATE INDEX IF NOT EXISTS idx_loans_product_status ON loans(product_id, status)`,
	`CREATE TABLE IF NOT EXISTS write_offs (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    product_id TEXT NOT NULL REFERENCES products(id),
    quantity   INTEGER NOT NULL CHECK (quantity > 0),
    reason     TEXT NOT NULL,
    created_at DATETIME NOT NULL,
    created_by TEXT NOT NULL DEFAULT ''
)`,
	`CREATE TABLE IF NOT EXISTS audit_log (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    occurred_at DATETIME NOT NULL,
    actor       TEXT NOT NULL DEFAULT '',
    action      TEXT NOT NULL,
    detail      TEXT NOT NULL DEFAULT ''
)`,
	`CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS users (
    id            INTEGER PRIMARY KEY,
    username      TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    role          TEXT NOT NULL DEFAULT 'operator' CHECK (role IN ('admin', 'supervisor', 'operator')),
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at    DATETIME
)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username_active
    ON users(username) WHERE deleted_at IS NULL`,
	`CREATE TABLE IF NOT EXISTS revoked_tokens (
    jti        TEXT PRIMARY KEY,
    expires_at DATETIME NOT NULL
)`,
}

// postgresSchema is the full PostgreSQL schema, one statement per entry.
var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS products (
    id         TEXT PRIMARY KEY,
    name       TEXT NOT NULL,
    unit_price NUMERIC(14,2) NOT NULL DEFAULT 0,
    stock      INTEGER NOT NULL DEFAULT 0 CHECK (stock >= 0),
    category   TEXT NOT NULL CHECK (category IN ('TOOL', 'CONSUMABLE')),
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
	`CREATE TABLE IF NOT EXISTS workers (
    id         TEXT PRIMARY KEY,
    name       TEXT NOT NULL,
    contact    TEXT NOT NULL DEFAULT '',
    section    TEXT NOT NULL DEFAULT '',
    site       TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
	`CREATE TABLE IF NOT EXISTS loans (
    id             BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
    transaction_id TEXT NOT NULL,
    worker_id      TEXT NOT NULL,
    product_id     TEXT NOT NULL REFERENCES products(id),
    category       TEXT NOT NULL CHECK (category IN ('TOOL', 'CONSUMABLE')),
    quantity       INTEGER NOT NULL CHECK (quantity > 0),
    checkout_at    TIMESTAMPTZ NOT NULL,
    returned_at    TIMESTAMPTZ,
    status         TEXT NOT NULL CHECK (status IN ('ACTIVE', 'RETURNED', 'CONSUMED'))
)`,
	`CREATE INDEX IF NOT EXISTS idx_loans_transaction ON loans(transaction_id)`,
	`CREATE INDEX IF NOT EXISTS idx_loans_worker_status ON loans(worker_id, status)`,
	`CREATE INDEX IF NOT EXISTS idx_loans_product_status ON loans(product_id, status)`,
	`CREATE TABLE IF NOT EXISTS write_offs (
    id         BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
    product_id TEXT NOT NULL REFERENCES products(id),
    quantity   INTEGER NOT NULL CHECK (quantity > 0),
    reason     TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL,
    created_by TEXT NOT NULL DEFAULT ''
)`,
	`CREATE TABLE IF NOT EXISTS audit_log (
    id          BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
    occurred_at TIMESTAMPTZ NOT NULL,
    actor       TEXT NOT NULL DEFAULT '',
    action      TEXT NOT NULL,
    detail      TEXT NOT NULL DEFAULT ''
)`,
	`CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS users (
    id            BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
    username      TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    role          TEXT NOT NULL DEFAULT 'operator' CHECK (role IN ('admin', 'supervisor', 'operator')),
    created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
    deleted_at    TIMESTAMPTZ
)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username_active
    ON users(username) WHERE deleted_at IS NULL`,
	`CREATE TABLE IF NOT EXISTS revoked_tokens (
    jti        TEXT PRIMARY KEY,
    expires_at TIMESTAMPTZ NOT NULL
)`,
}

// EnsureSchema creates all tables and indexes if they don't already exist.
func EnsureSchema(ctx context.Context, s Storage) error {
	statements := sqliteSchema
	if s.Dialect().Backend == BackendPostgres {
		statements = postgresSchema
	}

	return s.WithTx(ctx, func(tx Execer) error {
		for _, stmt := range statements {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("creating schema: %w", err)
			}
		}
		return nil
	})
}
