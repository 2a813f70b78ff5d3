package staking

import (
	"staking-engine/internal/model"
	"staking-engine/internal/pkg/fixedmath"
)

// Promotion thresholds on direct referrals.
const (
	firstLevelReferrals = 10
	nextLevelReferrals  = 3
)

// CalculateReferralBonus returns the per-day bonus a user's referrals add
// on top of base: base*direct_bonus/10000 per direct referral plus
// base*indirect_bonus/10000 per indirect referral. There is no cap, so large
// referral counts surface as ErrOverflow.
func CalculateReferralBonus(pool *model.Pool, user *model.User, base uint64) (uint64, error) {
	perDirect, err := fixedmath.MulBps(base, pool.DirectBonus)
	if err != nil {
		return 0, ErrOverflow
	}
	direct, err := fixedmath.Mul(perDirect, uint64(user.DirectReferrals))
	if err != nil {
		return 0, ErrOverflow
	}

	perIndirect, err := fixedmath.MulBps(base, pool.IndirectBonus)
	if err != nil {
		return 0, ErrOverflow
	}
	indirect, err := fixedmath.Mul(perIndirect, uint64(user.IndirectReferrals))
	if err != nil {
		return 0, ErrOverflow
	}

	total, err := fixedmath.Add(direct, indirect)
	if err != nil {
		return 0, ErrOverflow
	}
	return total, nil
}

// CalculateLevelBonus returns base scaled by the user's level bonus.
func CalculateLevelBonus(user *model.User, base uint64) (uint64, error) {
	bonus, err := fixedmath.MulBps(base, LevelBonusBps(user.Level))
	if err != nil {
		return 0, ErrOverflow
	}
	return bonus, nil
}

// Promote moves the user up at most one level. Level 0 needs ten direct
// referrals; every later step tests the same direct_referrals counter
// against three, not the number of subordinates one level below.
// Levels never decrease.
func Promote(user *model.User) {
	switch {
	case user.Level == 0 && user.DirectReferrals >= firstLevelReferrals:
		user.Level = 1
	case user.Level >= 1 && user.Level < MaxLevel && user.DirectReferrals >= nextLevelReferrals:
		user.Level++
	}
}

// UpdateReferral credits newRefs direct referrals bringing stakeAmount of
// team performance, promotes the user, and updates pool aggregates.
// pool.TotalUsers grows by newRefs here as well as on activation in Stake;
// the two are not deduplicated.
func UpdateReferral(pool *model.Pool, user *model.User, newRefs uint32, stakeAmount uint64) error {
	direct, err := fixedmath.Add32(user.DirectReferrals, newRefs)
	if err != nil {
		return ErrOverflow
	}
	team, err := fixedmath.Add(user.TeamPerformance, stakeAmount)
	if err != nil {
		return ErrOverflow
	}
	global, err := fixedmath.Add(pool.GlobalRewardPool, stakeAmount)
	if err != nil {
		return ErrOverflow
	}

	user.DirectReferrals = direct
	user.TeamPerformance = team
	Promote(user)

	pool.TotalUsers = fixedmath.SaturatingAdd32(pool.TotalUsers, newRefs)
	pool.GlobalRewardPool = global
	return nil
}
