package service

import (
	"context"
	"errors"
	"time"

	solana "github.com/gagliardetto/solana-go"
	"github.com/jackc/pgx/v5"

	"staking-engine/internal/address"
	"staking-engine/internal/ledger"
	"staking-engine/internal/model"
	"staking-engine/internal/pkg/db"
	"staking-engine/internal/repository"
)

// Token funding operations as journaled.
const (
	OpFund     = "Fund"
	OpFundPool = "FundPool"
	OpFaucet   = "Faucet"
)

// Pool vault names accepted by FundPool.
const (
	VaultStake  = "stake"
	VaultReward = "reward"
	VaultMeme   = "meme"
)

// Balances are the token balances of one user.
type Balances struct {
	Stake  uint64
	Reward uint64
	Meme   uint64
}

// GetPool returns the pool record.
func (s *StakingService) GetPool(ctx context.Context) (*model.Pool, error) {
	pool, err := s.accounts.GetPool(ctx, s.poolAddr, false)
	if err != nil {
		return nil, notFound(err, ErrPoolNotFound)
	}
	return pool, nil
}

// GetUser returns the user record of a Telegram account.
func (s *StakingService) GetUser(ctx context.Context, telegramID int64) (*model.User, error) {
	addr, err := s.UserAddress(telegramID)
	if err != nil {
		return nil, err
	}
	user, err := s.accounts.GetUser(ctx, addr, false)
	if err != nil {
		return nil, notFound(err, ErrUserNotFound)
	}
	return user, nil
}

// IsPoolAdmin reports whether a Telegram account is the authority of an
// initialized pool.
func (s *StakingService) IsPoolAdmin(ctx context.Context, telegramID int64) (bool, error) {
	pool, err := s.GetPool(ctx)
	if errors.Is(err, ErrPoolNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	addr, err := s.UserAddress(telegramID)
	if err != nil {
		return false, err
	}
	return pool.Admin.Equals(addr), nil
}

// HasAccount reports whether a Telegram account has a user record.
func (s *StakingService) HasAccount(ctx context.Context, telegramID int64) (bool, error) {
	_, err := s.GetUser(ctx, telegramID)
	if errors.Is(err, ErrUserNotFound) {
		return false, nil
	}
	return err == nil, err
}

// ListPackages returns every package of a user in creation order.
func (s *StakingService) ListPackages(ctx context.Context, telegramID int64) ([]*model.Package, error) {
	addr, err := s.UserAddress(telegramID)
	if err != nil {
		return nil, err
	}
	return s.accounts.ListPackages(ctx, addr)
}

// ActivePackages returns every package still accruing.
func (s *StakingService) ActivePackages(ctx context.Context) ([]*model.Package, error) {
	return s.accounts.ActivePackages(ctx)
}

// PendingRelease previews what an auto release of pkg would add now.
func (s *StakingService) PendingRelease(pkg *model.Package) (uint64, error) {
	return s.engine.PendingRelease(pkg)
}

// TokenBalance returns the balance owner holds of mint. An account that was
// never opened holds nothing.
func (s *StakingService) TokenBalance(ctx context.Context, owner, mint solana.PublicKey) (uint64, error) {
	addr, err := address.TokenAccount(owner, mint)
	if err != nil {
		return 0, err
	}
	bal, err := s.tokens.Balance(ctx, addr)
	if errors.Is(err, ledger.ErrAccountNotFound) {
		return 0, nil
	}
	return bal, err
}

// Balances returns the stake, reward and meme balances of a user.
func (s *StakingService) Balances(ctx context.Context, telegramID int64) (*Balances, error) {
	pool, err := s.GetPool(ctx)
	if err != nil {
		return nil, err
	}
	owner, err := s.UserAddress(telegramID)
	if err != nil {
		return nil, err
	}

	var b Balances
	for _, t := range []struct {
		dst  *uint64
		mint solana.PublicKey
	}{
		{&b.Stake, pool.StakeMint},
		{&b.Reward, pool.RewardMint},
		{&b.Meme, pool.MemeMint},
	} {
		if *t.dst, err = s.TokenBalance(ctx, owner, t.mint); err != nil {
			return nil, err
		}
	}
	return &b, nil
}

// History returns the latest journal entries signed by a user.
func (s *StakingService) History(ctx context.Context, telegramID int64, limit int) ([]*model.Operation, error) {
	addr, err := s.UserAddress(telegramID)
	if err != nil {
		return nil, err
	}
	return s.ops.ListBySigner(ctx, addr.String(), limit)
}

// Fund mints amount of the stake token to a user. It returns the new
// balance.
func (s *StakingService) Fund(ctx context.Context, telegramID int64, amount uint64) (uint64, error) {
	return s.fundUser(ctx, OpFund, telegramID, amount)
}

// Faucet is Fund limited to the configured amount per call, for users
// topping up their own test balance.
func (s *StakingService) Faucet(ctx context.Context, telegramID int64, amount uint64) (uint64, error) {
	if amount > s.cfg.FaucetLimit {
		return 0, ErrFaucetLimit
	}
	return s.fundUser(ctx, OpFaucet, telegramID, amount)
}

func (s *StakingService) fundUser(ctx context.Context, op string, telegramID int64, amount uint64) (uint64, error) {
	owner, err := s.UserAddress(telegramID)
	if err != nil {
		return 0, err
	}
	p := &plan{op: op, signer: owner, user: recordLoad, userAddr: owner, amount: amount}

	return s.mint(ctx, p, func(ctx context.Context, accounts *repository.AccountRepository, pool *model.Pool) (solana.PublicKey, error) {
		if _, err := accounts.GetUser(ctx, owner, false); err != nil {
			return solana.PublicKey{}, notFound(err, ErrUserNotFound)
		}
		return address.TokenAccount(owner, pool.StakeMint)
	})
}

// FundPool mints amount into one of the pool vaults. It returns the new
// balance.
func (s *StakingService) FundPool(ctx context.Context, vault string, amount uint64) (uint64, error) {
	p := &plan{op: OpFundPool, pool: recordLoad, amount: amount}

	return s.mint(ctx, p, func(_ context.Context, _ *repository.AccountRepository, pool *model.Pool) (solana.PublicKey, error) {
		p.signer = pool.Admin
		var mint solana.PublicKey
		switch vault {
		case VaultStake:
			mint = pool.StakeMint
		case VaultReward:
			mint = pool.RewardMint
		case VaultMeme:
			mint = pool.MemeMint
		default:
			return solana.PublicKey{}, ErrUnknownVault
		}
		return address.TokenAccount(s.poolAddr, mint)
	})
}

type resolveFunc func(ctx context.Context, accounts *repository.AccountRepository, pool *model.Pool) (solana.PublicKey, error)

// mint credits a token account chosen by resolve, journaling the result
// the same way engine operations are.
func (s *StakingService) mint(ctx context.Context, p *plan, resolve resolveFunc) (uint64, error) {
	if p.amount == 0 {
		return 0, ErrInvalidAmount
	}
	start := time.Now()

	var balance uint64
	err := s.locks.WithLockContext(ctx, p.lockKeys(s.poolAddr), s.cfg.LockTimeout, func() error {
		return db.InTx(ctx, s.db, func(tx pgx.Tx) error {
			accounts := s.accounts.WithTx(tx)
			tokens := s.tokens.WithTx(tx)

			pool, err := accounts.GetPool(ctx, s.poolAddr, false)
			if err != nil {
				return notFound(err, ErrPoolNotFound)
			}
			addr, err := resolve(ctx, accounts, pool)
			if err != nil {
				return err
			}
			if err := tokens.Mint(ctx, addr, p.amount); err != nil {
				return err
			}
			if balance, err = tokens.Balance(ctx, addr); err != nil {
				return err
			}
			return s.ops.WithTx(tx).Record(ctx, &model.Operation{
				Op:      p.op,
				Signer:  p.journalSigner(),
				Account: addr.String(),
				Amount:  p.amount,
				Status:  model.OperationCommitted,
			})
		})
	})

	s.finish(ctx, p, &Result{}, err, time.Since(start))
	if err != nil {
		return 0, err
	}
	return balance, nil
}
