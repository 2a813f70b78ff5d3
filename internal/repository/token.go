package repository

import (
	"context"
	"errors"
	"fmt"

	solana "github.com/gagliardetto/solana-go"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"staking-engine/internal/ledger"
	"staking-engine/internal/model"
)

// TokenAccountRepository keeps token balances in Postgres. It implements
// ledger.TokenLedger; bound to a transaction with WithTx, transfers commit
// or roll back together with the records.
type TokenAccountRepository struct {
	db DBTX
}

var _ ledger.TokenLedger = (*TokenAccountRepository)(nil)

// NewTokenAccountRepository creates a new TokenAccountRepository instance.
func NewTokenAccountRepository(db DBTX) *TokenAccountRepository {
	return &TokenAccountRepository{db: db}
}

// WithTx returns a repository bound to tx.
func (r *TokenAccountRepository) WithTx(tx pgx.Tx) *TokenAccountRepository {
	return &TokenAccountRepository{db: tx}
}

// Open creates a zero-balance token account unless one already exists.
// A zero delegate means only the owner can sign.
func (r *TokenAccountRepository) Open(ctx context.Context, addr, mint, owner, delegate solana.PublicKey) error {
	const query = `
		INSERT INTO token_accounts (address, mint, owner, delegate, balance, updated_at)
		VALUES ($1, $2, $3, $4, 0, NOW())
		ON CONFLICT (address) DO NOTHING
	`
	var del *string
	if !delegate.IsZero() {
		s := delegate.String()
		del = &s
	}
	if _, err := r.db.Exec(ctx, query, addr.String(), mint.String(), owner.String(), del); err != nil {
		return fmt.Errorf("failed to open token account %s: %w", addr, err)
	}
	return nil
}

// Get loads a token account.
func (r *TokenAccountRepository) Get(ctx context.Context, addr solana.PublicKey) (*model.TokenAccount, error) {
	return r.get(ctx, addr, false)
}

func (r *TokenAccountRepository) get(ctx context.Context, addr solana.PublicKey, forUpdate bool) (*model.TokenAccount, error) {
	query := `SELECT mint, owner, delegate, balance FROM token_accounts WHERE address = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var (
		mint, owner string
		delegate    *string
		balance     decimal.Decimal
	)
	err := r.db.QueryRow(ctx, query, addr.String()).Scan(&mint, &owner, &delegate, &balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("token account %s: %w", addr, ledger.ErrAccountNotFound)
		}
		return nil, fmt.Errorf("failed to load token account %s: %w", addr, err)
	}

	acct := &model.TokenAccount{Address: addr}
	if acct.Mint, err = parseKey(mint); err != nil {
		return nil, err
	}
	if acct.Owner, err = parseKey(owner); err != nil {
		return nil, err
	}
	if delegate != nil {
		if acct.Delegate, err = parseKey(*delegate); err != nil {
			return nil, err
		}
	}
	if acct.Balance, err = fromNumeric(balance); err != nil {
		return nil, err
	}
	return acct, nil
}

// Balance returns the balance of a token account.
func (r *TokenAccountRepository) Balance(ctx context.Context, addr solana.PublicKey) (uint64, error) {
	acct, err := r.get(ctx, addr, false)
	if err != nil {
		return 0, err
	}
	return acct.Balance, nil
}

// Mint credits amount to addr.
func (r *TokenAccountRepository) Mint(ctx context.Context, addr solana.PublicKey, amount uint64) error {
	acct, err := r.get(ctx, addr, true)
	if err != nil {
		return err
	}
	if acct.Balance+amount < acct.Balance {
		return fmt.Errorf("mint to %s: %w", addr, ledger.ErrBalanceOverflow)
	}
	return r.setBalance(ctx, addr, acct.Balance+amount)
}

func (r *TokenAccountRepository) setBalance(ctx context.Context, addr solana.PublicKey, balance uint64) error {
	const query = `UPDATE token_accounts SET balance = $2, updated_at = NOW() WHERE address = $1`
	if _, err := r.db.Exec(ctx, query, addr.String(), numeric(balance)); err != nil {
		return fmt.Errorf("failed to update balance of %s: %w", addr, err)
	}
	return nil
}

// Transfer moves amount between two accounts of the same mint. authority
// must be the owner or the delegate of the source.
func (r *TokenAccountRepository) Transfer(ctx context.Context, from, to, authority solana.PublicKey, amount uint64) error {
	// Lock both rows in address order so concurrent transfers cannot deadlock.
	first, second := from, to
	if second.String() < first.String() {
		first, second = second, first
	}
	accts := make(map[solana.PublicKey]*model.TokenAccount, 2)
	for _, addr := range []solana.PublicKey{first, second} {
		if _, ok := accts[addr]; ok {
			continue
		}
		acct, err := r.get(ctx, addr, true)
		if err != nil {
			return err
		}
		accts[addr] = acct
	}
	src, dst := accts[from], accts[to]

	if !src.Mint.Equals(dst.Mint) {
		return fmt.Errorf("%s -> %s: %w", from, to, ledger.ErrMintMismatch)
	}
	if !src.Owner.Equals(authority) && (src.Delegate.IsZero() || !src.Delegate.Equals(authority)) {
		return fmt.Errorf("authority %s for %s: %w", authority, from, ledger.ErrUnauthorized)
	}
	if src.Balance < amount {
		return fmt.Errorf("source %s holds %d, needs %d: %w", from, src.Balance, amount, ledger.ErrInsufficientFunds)
	}
	if from.Equals(to) || amount == 0 {
		return nil
	}
	if dst.Balance+amount < dst.Balance {
		return fmt.Errorf("destination %s: %w", to, ledger.ErrBalanceOverflow)
	}

	if err := r.setBalance(ctx, from, src.Balance-amount); err != nil {
		return err
	}
	return r.setBalance(ctx, to, dst.Balance+amount)
}
