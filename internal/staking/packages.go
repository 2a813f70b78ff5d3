package staking

import (
	"context"

	solana "github.com/gagliardetto/solana-go"

	"staking-engine/internal/ledger"
	"staking-engine/internal/model"
	"staking-engine/internal/pkg/fixedmath"
)

// Payout is what exit_package transferred to the owner.
type Payout struct {
	Reward uint64
	Meme   uint64
}

// PayoutAccounts are the token accounts an exit moves rewards between.
// Authority signs for the pool side.
type PayoutAccounts struct {
	PoolReward solana.PublicKey
	UserReward solana.PublicKey
	PoolMeme   solana.PublicKey
	UserMeme   solana.PublicKey
	Authority  solana.PublicKey
}

// CreatePackage fills pkg as a new deposit of amount owned by user.
// Release rates are frozen from the user's referral counts and level at
// this moment. Nothing is written unless every step succeeds.
func CreatePackage(pool *model.Pool, user *model.User, pkg *model.Package, id solana.PublicKey, amount uint64, now int64) error {
	if amount < pool.MinStake {
		return ErrMinimumStakeNotMet
	}

	base, err := fixedmath.MulBps(amount, pool.DailyRate)
	if err != nil {
		return ErrOverflow
	}
	referral, err := CalculateReferralBonus(pool, user, base)
	if err != nil {
		return err
	}
	level, err := CalculateLevelBonus(user, base)
	if err != nil {
		return err
	}
	accelerated, err := fixedmath.Add(referral, level)
	if err != nil {
		return ErrOverflow
	}
	maxTotal, err := fixedmath.MulBps(amount, pool.MaxMultiplier)
	if err != nil {
		return ErrOverflow
	}
	count, err := fixedmath.Add(user.PackagesCount, 1)
	if err != nil {
		return ErrOverflow
	}

	status := model.PackageActive
	if maxTotal == 0 {
		status = model.PackageCompleted
	}

	*pkg = model.Package{
		ID:                 id,
		Owner:              user.User,
		Amount:             amount,
		BaseRelease:        base,
		AcceleratedRelease: accelerated,
		CurrentTotal:       0,
		MaxTotal:           maxTotal,
		CreatedAt:          now,
		Status:             status,
	}
	user.PackagesCount = count
	return nil
}

// accrue computes the release total pkg would reach at now.
func accrue(pkg *model.Package, now int64) (uint64, error) {
	if now < pkg.CreatedAt {
		return 0, ErrOverflow
	}
	days := uint64((now - pkg.CreatedAt) / SecondsPerDay)

	perDay, err := fixedmath.Add(pkg.BaseRelease, pkg.AcceleratedRelease)
	if err != nil {
		return 0, ErrOverflow
	}
	delta, err := fixedmath.Mul(perDay, days)
	if err != nil {
		return 0, ErrOverflow
	}
	total, err := fixedmath.Add(pkg.CurrentTotal, delta)
	if err != nil {
		return 0, ErrOverflow
	}
	return fixedmath.Min(total, pkg.MaxTotal), nil
}

// ReleaseDue reports whether an auto release of pkg at now would accrue at
// least one whole day. Releasing earlier only moves the sample point and
// drops the partial day.
func ReleaseDue(pkg *model.Package, now int64) bool {
	return pkg.Status == model.PackageActive && now-pkg.CreatedAt >= SecondsPerDay
}

// AutoRelease accrues whole days elapsed since the last sample and rolls
// the sample point forward to now. The intraday remainder is dropped.
// It returns the amount added to current_total.
func AutoRelease(pkg *model.Package, now int64) (uint64, error) {
	if pkg.Status != model.PackageActive {
		return 0, ErrPackageNotActive
	}
	total, err := accrue(pkg, now)
	if err != nil {
		return 0, err
	}

	released := total - pkg.CurrentTotal
	pkg.CurrentTotal = total
	pkg.CreatedAt = now
	if pkg.CurrentTotal == pkg.MaxTotal {
		pkg.Status = model.PackageCompleted
	}
	return released, nil
}

// PendingRelease previews what AutoRelease would add at now.
func PendingRelease(pkg *model.Package, now int64) (uint64, error) {
	if pkg.Status == model.PackageWithdrawn {
		return 0, ErrPackageNotActive
	}
	if pkg.IsMatured() {
		return 0, ErrMaxMultiplierReached
	}
	total, err := accrue(pkg, now)
	if err != nil {
		return 0, err
	}
	return total - pkg.CurrentTotal, nil
}

// ExitPackage pays out a matured package in equal reward and meme halves
// and withdraws it. An odd unit of current_total is not paid.
func ExitPackage(ctx context.Context, tl ledger.TokenLedger, pool *model.Pool, user *model.User, pkg *model.Package, accts PayoutAccounts) (Payout, error) {
	if pkg.Status == model.PackageWithdrawn {
		return Payout{}, ErrPackageNotActive
	}
	if !pkg.IsMatured() {
		return Payout{}, ErrPackageNotMatured
	}
	staked, err := fixedmath.Sub(user.StakedAmount, pkg.Amount)
	if err != nil {
		return Payout{}, ErrInsufficientBalance
	}
	totalStaked, err := fixedmath.Sub(pool.TotalStaked, pkg.Amount)
	if err != nil {
		return Payout{}, ErrInsufficientBalance
	}
	count, err := fixedmath.Sub(user.PackagesCount, 1)
	if err != nil {
		return Payout{}, ErrOverflow
	}
	claimed, err := fixedmath.Add(user.RewardsClaimed, pkg.CurrentTotal)
	if err != nil {
		return Payout{}, ErrOverflow
	}

	payout := Payout{
		Reward: pkg.CurrentTotal / 2,
		Meme:   pkg.CurrentTotal / 2,
	}
	if err := tl.Transfer(ctx, accts.PoolReward, accts.UserReward, accts.Authority, payout.Reward); err != nil {
		return Payout{}, transferError(err)
	}
	if err := tl.Transfer(ctx, accts.PoolMeme, accts.UserMeme, accts.Authority, payout.Meme); err != nil {
		return Payout{}, transferError(err)
	}

	pkg.Status = model.PackageWithdrawn
	user.StakedAmount = staked
	user.PackagesCount = count
	user.RewardsClaimed = claimed
	pool.TotalStaked = totalStaked
	return payout, nil
}
