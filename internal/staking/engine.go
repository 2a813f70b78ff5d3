package staking

import (
	"context"
	"fmt"

	solana "github.com/gagliardetto/solana-go"

	"staking-engine/internal/ledger"
	"staking-engine/internal/model"
)

// Accounts are the records and token accounts a transaction may touch.
// Records are borrowed exclusively for the duration of Execute.
type Accounts struct {
	Pool    *model.Pool
	User    *model.User
	Package *model.Package

	// Signer is the user identity, Admin the pool authority.
	Signer solana.PublicKey
	Admin  solana.PublicKey

	UserStake  solana.PublicKey
	PoolStake  solana.PublicKey
	UserReward solana.PublicKey
	PoolReward solana.PublicKey
	UserMeme   solana.PublicKey
	PoolMeme   solana.PublicKey
}

// Event describes the effect of one executed instruction.
type Event struct {
	Op       Opcode
	Owner    solana.PublicKey
	Package  solana.PublicKey
	Amount   uint64
	Released uint64
	Payout   Payout
	Level    uint8
	Status   model.PackageStatus
}

// Engine runs instructions against borrowed records.
type Engine struct {
	clock  Clock
	ledger ledger.TokenLedger
}

// NewEngine creates an engine reading time from clock and moving tokens
// through tl.
func NewEngine(clock Clock, tl ledger.TokenLedger) *Engine {
	return &Engine{clock: clock, ledger: tl}
}

// WithLedger returns an engine sharing the clock but moving tokens
// through tl, used to bind a ledger to one database transaction.
func (e *Engine) WithLedger(tl ledger.TokenLedger) *Engine {
	return &Engine{clock: e.clock, ledger: tl}
}

type snapshot struct {
	pool model.Pool
	user model.User
	pkg  model.Package
}

func takeSnapshot(a *Accounts) snapshot {
	var s snapshot
	if a.Pool != nil {
		s.pool = *a.Pool
	}
	if a.User != nil {
		s.user = *a.User
	}
	if a.Package != nil {
		s.pkg = *a.Package
	}
	return s
}

func (s snapshot) restore(a *Accounts) {
	if a.Pool != nil {
		*a.Pool = s.pool
	}
	if a.User != nil {
		*a.User = s.user
	}
	if a.Package != nil {
		*a.Package = s.pkg
	}
}

// Execute runs ixs as one transaction. If any instruction fails every
// record is restored to its state before the first one and the error of
// the failing instruction is returned.
//
// Token transfers already made by earlier instructions are not undone
// here; the ledger must share the caller's transaction for that.
func (e *Engine) Execute(ctx context.Context, accts *Accounts, ixs ...Instruction) ([]Event, error) {
	for _, ix := range ixs {
		if err := checkAccounts(ix.Op, accts); err != nil {
			return nil, err
		}
	}

	snap := takeSnapshot(accts)
	events := make([]Event, 0, len(ixs))
	for _, ix := range ixs {
		ev, err := e.dispatch(ctx, accts, ix)
		if err != nil {
			snap.restore(accts)
			return nil, err
		}
		events = append(events, ev)
	}
	return events, nil
}

// PendingRelease previews what an auto release of pkg would add now.
func (e *Engine) PendingRelease(pkg *model.Package) (uint64, error) {
	return PendingRelease(pkg, e.clock.Now())
}

func checkAccounts(op Opcode, a *Accounts) error {
	var needPool, needUser, needPackage bool
	switch op {
	case OpInitialize:
		needPool = true
	case OpCreateUser:
		needUser = true
	case OpCreatePackage, OpExitPackage:
		needPool, needUser, needPackage = true, true, true
	case OpStake, OpUpdateReferralRewards:
		needPool, needUser = true, true
	case OpAutoReleaseRewards:
		needPackage = true
	default:
		return fmt.Errorf("%w: %s", ErrUnknownInstruction, op)
	}

	switch {
	case needPool && a.Pool == nil:
		return fmt.Errorf("%s: %w: pool", op, ErrMissingAccount)
	case needUser && a.User == nil:
		return fmt.Errorf("%s: %w: user", op, ErrMissingAccount)
	case needPackage && a.Package == nil:
		return fmt.Errorf("%s: %w: package", op, ErrMissingAccount)
	}
	return nil
}

func (e *Engine) dispatch(ctx context.Context, a *Accounts, ix Instruction) (Event, error) {
	ev := Event{Op: ix.Op}

	switch ix.Op {
	case OpInitialize:
		InitializePool(a.Pool, ix.Params)
		ev.Owner = a.Pool.Admin

	case OpCreateUser:
		role := model.RoleUser
		if a.Pool != nil && a.Pool.Admin.Equals(a.Signer) {
			role = model.RoleAdmin
		}
		CreateUser(a.User, a.Signer, ix.Referrer, role, e.clock.Now())
		ev.Owner = a.User.User

	case OpCreatePackage:
		if err := CreatePackage(a.Pool, a.User, a.Package, ix.PackageID, ix.Amount, e.clock.Now()); err != nil {
			return Event{}, err
		}
		ev.Owner = a.Package.Owner
		ev.Package = a.Package.ID
		ev.Amount = a.Package.Amount
		ev.Status = a.Package.Status

	case OpStake:
		accts := StakeAccounts{UserStake: a.UserStake, PoolStake: a.PoolStake, Authority: a.Signer}
		if err := Stake(ctx, e.ledger, a.Pool, a.User, ix.Amount, accts); err != nil {
			return Event{}, err
		}
		ev.Owner = a.User.User
		ev.Amount = ix.Amount

	case OpAutoReleaseRewards:
		released, err := AutoRelease(a.Package, e.clock.Now())
		if err != nil {
			return Event{}, err
		}
		ev.Owner = a.Package.Owner
		ev.Package = a.Package.ID
		ev.Released = released
		ev.Status = a.Package.Status

	case OpExitPackage:
		accts := PayoutAccounts{
			PoolReward: a.PoolReward,
			UserReward: a.UserReward,
			PoolMeme:   a.PoolMeme,
			UserMeme:   a.UserMeme,
			Authority:  a.Admin,
		}
		payout, err := ExitPackage(ctx, e.ledger, a.Pool, a.User, a.Package, accts)
		if err != nil {
			return Event{}, err
		}
		ev.Owner = a.Package.Owner
		ev.Package = a.Package.ID
		ev.Amount = a.Package.Amount
		ev.Payout = payout
		ev.Status = a.Package.Status

	case OpUpdateReferralRewards:
		if err := UpdateReferral(a.Pool, a.User, ix.NewReferrals, ix.ReferralStake); err != nil {
			return Event{}, err
		}
		ev.Owner = a.User.User
		ev.Amount = ix.ReferralStake
	}

	ev.Level = levelOf(a.User)
	return ev, nil
}

func levelOf(u *model.User) uint8 {
	if u == nil {
		return 0
	}
	return u.Level
}
