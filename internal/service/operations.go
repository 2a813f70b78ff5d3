package service

import (
	"context"

	solana "github.com/gagliardetto/solana-go"

	"staking-engine/internal/address"
	"staking-engine/internal/model"
	"staking-engine/internal/repository"
	"staking-engine/internal/staking"
)

// Operation names as journaled.
const (
	OpInitialize     = "Initialize"
	OpCreateUser     = "CreateUser"
	OpOpenPackage    = "OpenPackage"
	OpAutoRelease    = "AutoReleaseRewards"
	OpExitPackage    = "ExitPackage"
	OpUpdateReferral = "UpdateReferralRewards"
)

// Initialize creates the pool with the configured parameters and makes
// adminID its authority. The pool vaults are opened with the admin as
// delegate so exits can be signed by it.
func (s *StakingService) Initialize(ctx context.Context, adminID int64) (*model.Pool, error) {
	admin, err := s.UserAddress(adminID)
	if err != nil {
		return nil, err
	}
	params := s.cfg.Pool
	params.Admin = admin

	p := &plan{
		op:     OpInitialize,
		signer: admin,
		pool:   recordCreate,
		ixs:    []staking.Instruction{staking.InitializeIx(params)},
		after: func(ctx context.Context, tokens *repository.TokenAccountRepository, res *Result) error {
			for _, mint := range []solana.PublicKey{res.Pool.StakeMint, res.Pool.RewardMint, res.Pool.MemeMint} {
				vault, err := address.TokenAccount(s.poolAddr, mint)
				if err != nil {
					return err
				}
				if err := tokens.Open(ctx, vault, mint, s.poolAddr, res.Pool.Admin); err != nil {
					return err
				}
			}
			return nil
		},
	}
	res, err := s.execute(ctx, p)
	if err != nil {
		return nil, err
	}
	return res.Pool, nil
}

// CreateUser creates the user record of a Telegram account and opens its
// token accounts. A referrer must already be a user; referring yourself is
// the same as having no referrer.
func (s *StakingService) CreateUser(ctx context.Context, telegramID int64, referrerID *int64) (*model.User, error) {
	p, err := s.userPlan(OpCreateUser, telegramID)
	if err != nil {
		return nil, err
	}

	var referrer *solana.PublicKey
	if referrerID != nil && *referrerID != telegramID {
		ref, err := s.UserAddress(*referrerID)
		if err != nil {
			return nil, err
		}
		exists, err := s.accounts.Exists(ctx, ref)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, ErrReferrerNotFound
		}
		referrer = &ref
	}

	p.pool = recordLoad
	p.user = recordCreate
	p.ixs = []staking.Instruction{staking.CreateUserIx(referrer)}
	p.after = func(ctx context.Context, tokens *repository.TokenAccountRepository, res *Result) error {
		return s.openWallets(ctx, tokens, res.Pool, res.User.User)
	}

	res, err := s.execute(ctx, p)
	if err != nil {
		return nil, err
	}
	return res.User, nil
}

func (s *StakingService) openWallets(ctx context.Context, tokens *repository.TokenAccountRepository, pool *model.Pool, owner solana.PublicKey) error {
	for _, mint := range []solana.PublicKey{pool.StakeMint, pool.RewardMint, pool.MemeMint} {
		addr, err := address.TokenAccount(owner, mint)
		if err != nil {
			return err
		}
		if err := tokens.Open(ctx, addr, mint, owner, solana.PublicKey{}); err != nil {
			return err
		}
	}
	return nil
}

// OpenPackage stakes amount and creates a package for it in one
// transaction.
func (s *StakingService) OpenPackage(ctx context.Context, telegramID int64, amount uint64) (*Result, error) {
	if amount == 0 {
		return nil, ErrInvalidAmount
	}
	p, err := s.userPlan(OpOpenPackage, telegramID)
	if err != nil {
		return nil, err
	}
	id, err := address.NewPackageID()
	if err != nil {
		return nil, err
	}

	p.pool = recordLoad
	p.user = recordLoad
	p.pkg = recordCreate
	p.pkgID = id
	p.amount = amount
	p.ixs = []staking.Instruction{staking.StakeIx(amount), staking.CreatePackageIx(id, amount)}
	return s.execute(ctx, p)
}

// AutoRelease accrues a package of the given user.
func (s *StakingService) AutoRelease(ctx context.Context, telegramID int64, pkgID solana.PublicKey) (*Result, error) {
	p, err := s.userPlan(OpAutoRelease, telegramID)
	if err != nil {
		return nil, err
	}
	p.user = recordLoad
	p.pkg = recordLoad
	p.pkgID = pkgID
	p.ixs = []staking.Instruction{staking.AutoReleaseIx()}
	return s.execute(ctx, p)
}

// ReleasePackage accrues a package on behalf of the scheduler. It fails
// with ErrReleaseNotDue unless a whole day has passed since the last
// sample, so a sweep never discards a partial day.
func (s *StakingService) ReleasePackage(ctx context.Context, pkgID solana.PublicKey) (*Result, error) {
	p := &plan{
		op:    OpAutoRelease,
		pkg:   recordLoad,
		pkgID: pkgID,
		ixs:   []staking.Instruction{staking.AutoReleaseIx()},
		check: func(res *Result) error {
			if !staking.ReleaseDue(res.Package, s.clock.Now()) {
				return ErrReleaseNotDue
			}
			return nil
		},
	}
	return s.execute(ctx, p)
}

// ExitPackage pays out a matured package of the given user.
func (s *StakingService) ExitPackage(ctx context.Context, telegramID int64, pkgID solana.PublicKey) (*Result, error) {
	p, err := s.userPlan(OpExitPackage, telegramID)
	if err != nil {
		return nil, err
	}
	p.pool = recordLoad
	p.user = recordLoad
	p.pkg = recordLoad
	p.pkgID = pkgID
	p.ixs = []staking.Instruction{staking.ExitPackageIx()}
	return s.execute(ctx, p)
}

// UpdateReferral credits newRefs referrals bringing stakeAmount to a user.
func (s *StakingService) UpdateReferral(ctx context.Context, telegramID int64, newRefs uint32, stakeAmount uint64) (*model.User, error) {
	p, err := s.userPlan(OpUpdateReferral, telegramID)
	if err != nil {
		return nil, err
	}
	p.pool = recordLoad
	p.user = recordLoad
	p.amount = stakeAmount
	p.ixs = []staking.Instruction{staking.UpdateReferralIx(newRefs, stakeAmount)}

	res, err := s.execute(ctx, p)
	if err != nil {
		return nil, err
	}
	return res.User, nil
}
