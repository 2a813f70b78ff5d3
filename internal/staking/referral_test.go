package staking

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staking-engine/internal/model"
)

func TestLevelBonusBps(t *testing.T) {
	tests := []struct {
		level uint8
		want  uint64
	}{
		{0, 0},
		{1, 500},
		{2, 1000},
		{3, 1500},
		{4, 2000},
		{5, 2500},
		{6, 0},
		{255, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LevelBonusBps(tt.level), "level %d", tt.level)
	}
}

func TestCalculateReferralBonus(t *testing.T) {
	pool := &model.Pool{DirectBonus: 3000, IndirectBonus: 1000}

	tests := []struct {
		name     string
		direct   uint32
		indirect uint32
		base     uint64
		want     uint64
	}{
		{"no referrals", 0, 0, 300, 0},
		{"direct only", 3, 0, 300, 270},
		{"indirect only", 0, 4, 300, 120},
		{"both", 2, 5, 1000, 600 + 500},
		{"truncates per referral", 1, 1, 3, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user := &model.User{DirectReferrals: tt.direct, IndirectReferrals: tt.indirect}
			got, err := CalculateReferralBonus(pool, user, tt.base)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCalculateReferralBonusIsUncapped(t *testing.T) {
	pool := &model.Pool{DirectBonus: 10_000}
	user := &model.User{DirectReferrals: math.MaxUint32}

	_, err := CalculateReferralBonus(pool, user, 10_000_000_000)
	assert.ErrorIs(t, err, ErrOverflow)
}

func TestCalculateLevelBonus(t *testing.T) {
	got, err := CalculateLevelBonus(&model.User{Level: 3}, 1000)
	require.NoError(t, err)
	assert.Equal(t, uint64(150), got)

	got, err = CalculateLevelBonus(&model.User{Level: 9}, 1000)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), got)
}

func TestPromote(t *testing.T) {
	tests := []struct {
		name   string
		level  uint8
		direct uint32
		want   uint8
	}{
		{"level 0 below threshold", 0, 9, 0},
		{"level 0 promoted", 0, 10, 1},
		{"level 0 far above threshold moves one step", 0, 100, 1},
		{"level 1 promoted", 1, 3, 2},
		{"level 1 held", 1, 2, 1},
		{"level 4 promoted", 4, 3, 5},
		{"level 5 capped", 5, 100, 5},
		{"unknown level untouched", 7, 100, 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user := &model.User{Level: tt.level, DirectReferrals: tt.direct}
			Promote(user)
			assert.Equal(t, tt.want, user.Level)
		})
	}
}

func TestUpdateReferralOverflowLeavesRecords(t *testing.T) {
	pool := &model.Pool{GlobalRewardPool: math.MaxUint64}
	user := &model.User{DirectReferrals: 9}

	err := UpdateReferral(pool, user, 1, 1)
	assert.ErrorIs(t, err, ErrOverflow)
	assert.Equal(t, uint32(9), user.DirectReferrals)
	assert.Equal(t, uint8(0), user.Level)
	assert.Equal(t, uint32(0), pool.TotalUsers)

	user = &model.User{DirectReferrals: math.MaxUint32}
	assert.ErrorIs(t, UpdateReferral(&model.Pool{}, user, 1, 0), ErrOverflow)
}

func TestUpdateReferralSaturatesUserCount(t *testing.T) {
	pool := &model.Pool{TotalUsers: math.MaxUint32 - 1}
	user := &model.User{}

	require.NoError(t, UpdateReferral(pool, user, 5, 0))
	assert.Equal(t, uint32(math.MaxUint32), pool.TotalUsers)
	assert.Equal(t, uint32(5), user.DirectReferrals)
}
