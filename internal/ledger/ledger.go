// Package ledger defines the token custody collaborator used by the staking
// engine and provides an in-memory implementation.
package ledger

import (
	"context"
	"sync"

	solana "github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"
)

// Ledger errors.
var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrAccountNotFound   = errors.New("token account not found")
	ErrMintMismatch      = errors.New("token accounts hold different mints")
	ErrUnauthorized      = errors.New("authority does not own source account")
	ErrBalanceOverflow   = errors.New("token balance overflow")
)

// TokenLedger moves base units between token accounts.
// Implementations report a short source balance as ErrInsufficientFunds.
type TokenLedger interface {
	Transfer(ctx context.Context, from, to, authority solana.PublicKey, amount uint64) error
}

type account struct {
	mint    solana.PublicKey
	owner   solana.PublicKey
	balance uint64
}

// Memory is a TokenLedger holding balances in process memory.
// Delegates may sign for accounts they do not own, the way the pool admin
// signs for the pool vaults.
type Memory struct {
	mu        sync.Mutex
	accounts  map[solana.PublicKey]*account
	delegates map[solana.PublicKey]solana.PublicKey // account -> extra authority
}

// NewMemory creates an empty in-memory ledger.
func NewMemory() *Memory {
	return &Memory{
		accounts:  make(map[solana.PublicKey]*account),
		delegates: make(map[solana.PublicKey]solana.PublicKey),
	}
}

// Open creates a token account with a zero balance if it does not exist.
func (m *Memory) Open(address, mint, owner solana.PublicKey) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[address]; ok {
		return
	}
	m.accounts[address] = &account{mint: mint, owner: owner}
}

// Approve lets delegate sign transfers out of address.
func (m *Memory) Approve(address, delegate solana.PublicKey) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delegates[address] = delegate
}

// Mint credits amount to address.
func (m *Memory) Mint(address solana.PublicKey, amount uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	acc, ok := m.accounts[address]
	if !ok {
		return errors.Wrapf(ErrAccountNotFound, "mint to %s", address)
	}
	if acc.balance+amount < acc.balance {
		return errors.Wrapf(ErrBalanceOverflow, "mint to %s", address)
	}
	acc.balance += amount
	return nil
}

// Balance returns the balance of address, zero when it does not exist.
func (m *Memory) Balance(address solana.PublicKey) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if acc, ok := m.accounts[address]; ok {
		return acc.balance
	}
	return 0
}

// Transfer moves amount from one account to another of the same mint.
func (m *Memory) Transfer(_ context.Context, from, to, authority solana.PublicKey, amount uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	src, ok := m.accounts[from]
	if !ok {
		return errors.Wrapf(ErrAccountNotFound, "source %s", from)
	}
	dst, ok := m.accounts[to]
	if !ok {
		return errors.Wrapf(ErrAccountNotFound, "destination %s", to)
	}
	if !src.mint.Equals(dst.mint) {
		return errors.Wrapf(ErrMintMismatch, "%s -> %s", from, to)
	}
	delegate, delegated := m.delegates[from]
	if !src.owner.Equals(authority) && !(delegated && delegate.Equals(authority)) {
		return errors.Wrapf(ErrUnauthorized, "authority %s for %s", authority, from)
	}
	if src.balance < amount {
		return errors.Wrapf(ErrInsufficientFunds, "source %s holds %d, needs %d", from, src.balance, amount)
	}
	if from.Equals(to) {
		return nil
	}
	if dst.balance+amount < dst.balance {
		return errors.Wrapf(ErrBalanceOverflow, "destination %s", to)
	}

	src.balance -= amount
	dst.balance += amount
	return nil
}
