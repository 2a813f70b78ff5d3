// Package repository provides data access layer implementations.
package repository

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	solana "github.com/gagliardetto/solana-go"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// Common errors for repository operations.
var (
	ErrAccountNotFound = errors.New("account not found")
	ErrKindMismatch    = errors.New("account holds a different record kind")
	ErrValueOutOfRange = errors.New("stored value out of u64 range")
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx, so repositories
// can run inside or outside a transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// numeric converts a u64 amount for a NUMERIC(20,0) column.
func numeric(v uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(v), 0)
}

// fromNumeric converts a NUMERIC(20,0) column back to u64.
func fromNumeric(d decimal.Decimal) (uint64, error) {
	b := d.BigInt()
	if b.Sign() < 0 || !b.IsUint64() {
		return 0, fmt.Errorf("%w: %s", ErrValueOutOfRange, d)
	}
	return b.Uint64(), nil
}

func parseKey(s string) (solana.PublicKey, error) {
	k, err := solana.PublicKeyFromBase58(s)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to parse stored key %q: %w", s, err)
	}
	return k, nil
}

// Migrate creates the schema if it does not exist.
func Migrate(ctx context.Context, db DBTX) error {
	migrations := []struct {
		name string
		sql  string
	}{
		{"accounts", `
			CREATE TABLE IF NOT EXISTS accounts (
				address TEXT PRIMARY KEY,
				kind SMALLINT NOT NULL,
				owner TEXT NOT NULL,
				status SMALLINT NOT NULL DEFAULT 0,
				data BYTEA NOT NULL,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
			CREATE INDEX IF NOT EXISTS idx_accounts_owner_kind ON accounts(owner, kind, created_at);
			CREATE INDEX IF NOT EXISTS idx_accounts_kind_status ON accounts(kind, status);
		`},
		{"token_accounts", `
			CREATE TABLE IF NOT EXISTS token_accounts (
				address TEXT PRIMARY KEY,
				mint TEXT NOT NULL,
				owner TEXT NOT NULL,
				delegate TEXT,
				balance NUMERIC(20,0) NOT NULL DEFAULT 0
					CHECK (balance >= 0 AND balance <= 18446744073709551615),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
			CREATE INDEX IF NOT EXISTS idx_token_accounts_owner ON token_accounts(owner);
		`},
		{"operations", `
			CREATE TABLE IF NOT EXISTS operations (
				id UUID PRIMARY KEY,
				op VARCHAR(50) NOT NULL,
				signer TEXT NOT NULL,
				account TEXT NOT NULL,
				amount NUMERIC(20,0) NOT NULL DEFAULT 0,
				status VARCHAR(20) NOT NULL,
				error_code INT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
			CREATE INDEX IF NOT EXISTS idx_operations_signer_time ON operations(signer, created_at DESC);
		`},
	}

	for _, m := range migrations {
		if _, err := db.Exec(ctx, m.sql); err != nil {
			return fmt.Errorf("failed to migrate %s: %w", m.name, err)
		}
	}
	return nil
}
