// Package service provides business logic implementations.
package service

import (
	"context"
	"errors"
	"time"

	solana "github.com/gagliardetto/solana-go"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"staking-engine/internal/address"
	"staking-engine/internal/model"
	"staking-engine/internal/pkg/db"
	"staking-engine/internal/pkg/lock"
	"staking-engine/internal/repository"
	"staking-engine/internal/staking"
)

// Common errors for staking operations.
var (
	ErrPoolAlreadyInitialized = errors.New("pool already initialized")
	ErrPoolNotFound           = errors.New("pool not initialized")
	ErrUserExists             = errors.New("user already exists")
	ErrUserNotFound           = errors.New("user not found")
	ErrReferrerNotFound       = errors.New("referrer not found")
	ErrPackageNotFound        = errors.New("package not found")
	ErrNotPackageOwner        = errors.New("package belongs to another user")
	ErrInvalidAmount          = errors.New("amount must be positive")
	ErrFaucetLimit            = errors.New("faucet limit exceeded")
	ErrUnknownVault           = errors.New("unknown pool vault")
	ErrReleaseNotDue          = errors.New("package has not accrued a whole day")
)

// Recorder receives operation outcomes for monitoring.
type Recorder interface {
	ObserveOperation(op string, err error, elapsed time.Duration)
	SetTotalStaked(amount uint64)
	AddReleased(amount uint64)
}

type nopRecorder struct{}

func (nopRecorder) ObserveOperation(string, error, time.Duration) {}
func (nopRecorder) SetTotalStaked(uint64)                         {}
func (nopRecorder) AddReleased(uint64)                            {}

// Config holds what the service needs beyond its collaborators.
type Config struct {
	ProgramID   solana.PublicKey
	Pool        staking.InitParams // Admin is filled in by Initialize
	LockTimeout time.Duration
	FaucetLimit uint64
}

// StakingService runs staking operations against Postgres. Every operation
// locks the accounts it names, loads them inside one database transaction,
// runs the engine and persists the results together with token balances
// and a journal row. Any failure rolls all of it back.
type StakingService struct {
	db       *pgxpool.Pool
	clock    staking.Clock
	engine   *staking.Engine
	locks    *lock.AccountLock
	recorder Recorder
	cfg      Config
	poolAddr solana.PublicKey

	accounts *repository.AccountRepository
	tokens   *repository.TokenAccountRepository
	ops      *repository.OperationRepository
}

// NewStakingService creates a new StakingService instance.
func NewStakingService(
	pool *pgxpool.Pool,
	clock staking.Clock,
	locks *lock.AccountLock,
	recorder Recorder,
	cfg Config,
) (*StakingService, error) {
	poolAddr, err := address.Pool(cfg.ProgramID)
	if err != nil {
		return nil, err
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	if cfg.LockTimeout <= 0 {
		cfg.LockTimeout = 5 * time.Second
	}

	tokens := repository.NewTokenAccountRepository(pool)
	return &StakingService{
		db:       pool,
		clock:    clock,
		engine:   staking.NewEngine(clock, tokens),
		locks:    locks,
		recorder: recorder,
		cfg:      cfg,
		poolAddr: poolAddr,
		accounts: repository.NewAccountRepository(pool),
		tokens:   tokens,
		ops:      repository.NewOperationRepository(pool),
	}, nil
}

// PoolAddress returns the address of the pool record.
func (s *StakingService) PoolAddress() solana.PublicKey {
	return s.poolAddr
}

// UserAddress returns the record address, and ledger identity, of a
// Telegram user.
func (s *StakingService) UserAddress(telegramID int64) (solana.PublicKey, error) {
	return address.User(s.cfg.ProgramID, telegramID)
}

// Result carries the records of a committed operation and what it emitted.
type Result struct {
	Events  []staking.Event
	Pool    *model.Pool
	User    *model.User
	Package *model.Package
}

type recordMode int

const (
	recordNone recordMode = iota
	recordLoad
	recordCreate
)

// plan names the records an operation touches and the instructions it runs.
type plan struct {
	op       string
	signer   solana.PublicKey
	pool     recordMode
	user     recordMode
	userAddr solana.PublicKey
	pkg      recordMode
	pkgID    solana.PublicKey
	amount   uint64
	ixs      []staking.Instruction

	// check runs on the loaded records before the engine.
	check func(res *Result) error
	// after runs inside the transaction once the engine succeeded.
	after func(ctx context.Context, tokens *repository.TokenAccountRepository, res *Result) error
}

func (p *plan) lockKeys(poolAddr solana.PublicKey) []solana.PublicKey {
	var keys []solana.PublicKey
	if p.pool != recordNone {
		keys = append(keys, poolAddr)
	}
	if p.user != recordNone {
		keys = append(keys, p.userAddr)
	}
	if p.pkg != recordNone {
		keys = append(keys, p.pkgID)
	}
	return keys
}

// account is the record the journal files the operation under.
func (p *plan) account(poolAddr solana.PublicKey) solana.PublicKey {
	switch {
	case p.pkg != recordNone:
		return p.pkgID
	case p.user != recordNone:
		return p.userAddr
	default:
		return poolAddr
	}
}

func (p *plan) journalSigner() string {
	if p.signer.IsZero() {
		return "system"
	}
	return p.signer.String()
}

func (s *StakingService) execute(ctx context.Context, p *plan) (*Result, error) {
	start := time.Now()

	var res *Result
	err := s.locks.WithLockContext(ctx, p.lockKeys(s.poolAddr), s.cfg.LockTimeout, func() error {
		return db.InTx(ctx, s.db, func(tx pgx.Tx) error {
			var err error
			res, err = s.executeTx(ctx, tx, p)
			return err
		})
	})

	s.finish(ctx, p, res, err, time.Since(start))
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (s *StakingService) executeTx(ctx context.Context, tx pgx.Tx, p *plan) (*Result, error) {
	accounts := s.accounts.WithTx(tx)
	tokens := s.tokens.WithTx(tx)

	res := &Result{}
	if err := s.loadRecords(ctx, accounts, p, res); err != nil {
		return nil, err
	}
	if p.check != nil {
		if err := p.check(res); err != nil {
			return nil, err
		}
	}

	accts := &staking.Accounts{
		Pool:    res.Pool,
		User:    res.User,
		Package: res.Package,
		Signer:  p.signer,
	}
	if res.Pool != nil && p.pool == recordLoad {
		if err := s.bindTokenAccounts(accts, res.Pool, p.userAddr); err != nil {
			return nil, err
		}
	}

	events, err := s.engine.WithLedger(tokens).Execute(ctx, accts, p.ixs...)
	if err != nil {
		return nil, err
	}
	res.Events = events

	if p.after != nil {
		if err := p.after(ctx, tokens, res); err != nil {
			return nil, err
		}
	}

	if res.Pool != nil {
		if err := accounts.PutPool(ctx, s.poolAddr, res.Pool); err != nil {
			return nil, err
		}
	}
	if res.User != nil {
		if err := accounts.PutUser(ctx, p.userAddr, res.User); err != nil {
			return nil, err
		}
	}
	if res.Package != nil {
		if err := accounts.PutPackage(ctx, res.Package); err != nil {
			return nil, err
		}
	}

	err = s.ops.WithTx(tx).Record(ctx, &model.Operation{
		Op:      p.op,
		Signer:  p.journalSigner(),
		Account: p.account(s.poolAddr).String(),
		Amount:  p.amount,
		Status:  model.OperationCommitted,
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (s *StakingService) loadRecords(ctx context.Context, accounts *repository.AccountRepository, p *plan, res *Result) error {
	switch p.pool {
	case recordCreate:
		exists, err := accounts.Exists(ctx, s.poolAddr)
		if err != nil {
			return err
		}
		if exists {
			return ErrPoolAlreadyInitialized
		}
		res.Pool = &model.Pool{}
	case recordLoad:
		pool, err := accounts.GetPool(ctx, s.poolAddr, true)
		if err != nil {
			return notFound(err, ErrPoolNotFound)
		}
		res.Pool = pool
	}

	switch p.user {
	case recordCreate:
		exists, err := accounts.Exists(ctx, p.userAddr)
		if err != nil {
			return err
		}
		if exists {
			return ErrUserExists
		}
		res.User = &model.User{}
	case recordLoad:
		user, err := accounts.GetUser(ctx, p.userAddr, true)
		if err != nil {
			return notFound(err, ErrUserNotFound)
		}
		res.User = user
	}

	switch p.pkg {
	case recordCreate:
		res.Package = &model.Package{}
	case recordLoad:
		pkg, err := accounts.GetPackage(ctx, p.pkgID, true)
		if err != nil {
			return notFound(err, ErrPackageNotFound)
		}
		if res.User != nil && !pkg.Owner.Equals(res.User.User) {
			return ErrNotPackageOwner
		}
		res.Package = pkg
	}
	return nil
}

func notFound(err, sentinel error) error {
	if errors.Is(err, repository.ErrAccountNotFound) || errors.Is(err, repository.ErrKindMismatch) {
		return sentinel
	}
	return err
}

// bindTokenAccounts fills in the token accounts an operation may move
// tokens between.
func (s *StakingService) bindTokenAccounts(accts *staking.Accounts, pool *model.Pool, user solana.PublicKey) error {
	accts.Admin = pool.Admin

	vaults := []struct {
		dst  *solana.PublicKey
		mint solana.PublicKey
	}{
		{&accts.PoolStake, pool.StakeMint},
		{&accts.PoolReward, pool.RewardMint},
		{&accts.PoolMeme, pool.MemeMint},
	}
	for _, v := range vaults {
		addr, err := address.TokenAccount(s.poolAddr, v.mint)
		if err != nil {
			return err
		}
		*v.dst = addr
	}

	if user.IsZero() {
		return nil
	}
	wallets := []struct {
		dst  *solana.PublicKey
		mint solana.PublicKey
	}{
		{&accts.UserStake, pool.StakeMint},
		{&accts.UserReward, pool.RewardMint},
		{&accts.UserMeme, pool.MemeMint},
	}
	for _, w := range wallets {
		addr, err := address.TokenAccount(user, w.mint)
		if err != nil {
			return err
		}
		*w.dst = addr
	}
	return nil
}

// finish journals failures, logs and reports the outcome.
func (s *StakingService) finish(ctx context.Context, p *plan, res *Result, err error, elapsed time.Duration) {
	s.recorder.ObserveOperation(p.op, err, elapsed)

	if err != nil {
		entry := &model.Operation{
			Op:      p.op,
			Signer:  p.journalSigner(),
			Account: p.account(s.poolAddr).String(),
			Amount:  p.amount,
			Status:  model.OperationFailed,
		}
		code, ok := staking.CodeOf(err)
		if ok {
			c := int32(code)
			entry.ErrorCode = &c
		}

		event := log.Warn()
		if !ok {
			event = log.Error()
		}
		event.Err(err).
			Str("op", p.op).
			Str("user", p.userAddr.String()).
			Str("package", p.pkgID.String()).
			Uint64("amount", p.amount).
			Uint32("error_code", code).
			Msg("Operation failed")

		// The transaction is gone; the failure row goes in on its own.
		if jerr := s.ops.Record(ctx, entry); jerr != nil {
			log.Error().Err(jerr).Str("op", p.op).Msg("Failed to journal failed operation")
		}
		return
	}

	var released uint64
	for _, ev := range res.Events {
		released += ev.Released
	}
	if released > 0 {
		s.recorder.AddReleased(released)
	}
	if res.Pool != nil {
		s.recorder.SetTotalStaked(res.Pool.TotalStaked)
	}

	log.Info().
		Str("op", p.op).
		Str("user", p.userAddr.String()).
		Str("package", p.pkgID.String()).
		Uint64("amount", p.amount).
		Dur("elapsed", elapsed).
		Msg("Operation committed")
}

func (s *StakingService) userPlan(op string, telegramID int64) (*plan, error) {
	userAddr, err := s.UserAddress(telegramID)
	if err != nil {
		return nil, err
	}
	return &plan{
		op:       op,
		signer:   userAddr,
		userAddr: userAddr,
	}, nil
}
