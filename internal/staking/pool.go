package staking

import (
	"context"

	solana "github.com/gagliardetto/solana-go"

	"staking-engine/internal/ledger"
	"staking-engine/internal/model"
	"staking-engine/internal/pkg/fixedmath"
)

// InitParams configure a pool. Rates are basis points.
type InitParams struct {
	DailyRate     uint64
	MaxMultiplier uint64
	MinStake      uint64
	DirectBonus   uint64
	IndirectBonus uint64

	Admin      solana.PublicKey
	StakeMint  solana.PublicKey
	RewardMint solana.PublicKey
	MemeMint   solana.PublicKey
}

// InitializePool overwrites pool with params and zeroed aggregates.
// Calling it twice on the same record is refused by the host, not here.
func InitializePool(pool *model.Pool, params InitParams) {
	*pool = model.Pool{
		Admin:         params.Admin,
		StakeMint:     params.StakeMint,
		RewardMint:    params.RewardMint,
		MemeMint:      params.MemeMint,
		DailyRate:     params.DailyRate,
		MaxMultiplier: params.MaxMultiplier,
		MinStake:      params.MinStake,
		DirectBonus:   params.DirectBonus,
		IndirectBonus: params.IndirectBonus,
	}
}

// CreateUser fills user as a fresh record for owner. Without a referrer the
// user refers to itself.
func CreateUser(user *model.User, owner solana.PublicKey, referrer *solana.PublicKey, role model.UserRole, now int64) {
	ref := owner
	if referrer != nil {
		ref = *referrer
	}
	*user = model.User{
		User:          owner,
		Referrer:      ref,
		LastClaimTime: now,
		Role:          role,
	}
}

// StakeAccounts are the token accounts principal moves between.
// Authority signs for the user side.
type StakeAccounts struct {
	UserStake solana.PublicKey
	PoolStake solana.PublicKey
	Authority solana.PublicKey
}

// Stake custodies amount from the user into the pool vault and activates
// the user on first stake.
func Stake(ctx context.Context, tl ledger.TokenLedger, pool *model.Pool, user *model.User, amount uint64, accts StakeAccounts) error {
	staked, err := fixedmath.Add(user.StakedAmount, amount)
	if err != nil {
		return ErrOverflow
	}
	total, err := fixedmath.Add(pool.TotalStaked, amount)
	if err != nil {
		return ErrOverflow
	}

	if err := tl.Transfer(ctx, accts.UserStake, accts.PoolStake, accts.Authority, amount); err != nil {
		return transferError(err)
	}

	user.StakedAmount = staked
	pool.TotalStaked = total
	if !user.IsActive {
		user.IsActive = true
		pool.TotalUsers = fixedmath.SaturatingAdd32(pool.TotalUsers, 1)
	}
	return nil
}
