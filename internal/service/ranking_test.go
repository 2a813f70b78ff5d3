package service

import (
	"testing"

	solana "github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"staking-engine/internal/model"
)

// TestRankUsersOrderingProperty checks that a leaderboard is sorted
// descending, respects the limit and never drops a better user for a worse one.
func TestRankUsersOrderingProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 40).Draw(t, "users")
		users := make([]*model.User, n)
		for i := range users {
			users[i] = &model.User{
				User:            solana.PublicKeyFromBytes([]byte{byte(i), byte(i >> 8), 1}),
				StakedAmount:    rapid.Uint64Range(0, 1000).Draw(t, "staked"),
				TeamPerformance: rapid.Uint64Range(0, 1000).Draw(t, "team"),
			}
		}
		by := RankBy(rapid.IntRange(0, 2).Draw(t, "by"))
		limit := rapid.IntRange(1, n+5).Draw(t, "limit")

		ranked := rankUsers(users, by, limit)

		if len(ranked) > limit {
			t.Fatalf("got %d users, limit %d", len(ranked), limit)
		}
		for i := 1; i < len(ranked); i++ {
			if by.value(ranked[i-1]) < by.value(ranked[i]) {
				t.Fatalf("not descending at %d: %d < %d", i, by.value(ranked[i-1]), by.value(ranked[i]))
			}
		}

		var eligible int
		for _, u := range users {
			if by.value(u) > 0 {
				eligible++
			}
		}
		if want := min(limit, eligible); len(ranked) != want {
			t.Fatalf("expected %d users, got %d", want, len(ranked))
		}
		if len(ranked) > 0 {
			last := by.value(ranked[len(ranked)-1])
			outside := 0
			for _, u := range users {
				if by.value(u) > last {
					outside++
				}
			}
			if outside > len(ranked) {
				t.Fatalf("%d users beat the last entry but only %d listed", outside, len(ranked))
			}
		}
	})
}

func TestRankUsersTiesKeepOrder(t *testing.T) {
	a := &model.User{User: solana.PublicKeyFromBytes([]byte{1}), StakedAmount: 10}
	b := &model.User{User: solana.PublicKeyFromBytes([]byte{2}), StakedAmount: 10}
	c := &model.User{User: solana.PublicKeyFromBytes([]byte{3}), StakedAmount: 20}
	idle := &model.User{User: solana.PublicKeyFromBytes([]byte{4})}

	ranked := rankUsers([]*model.User{a, idle, b, c}, RankByStake, 0)
	assert.Equal(t, []*model.User{c, a, b}, ranked)

	assert.Empty(t, rankUsers([]*model.User{a, b}, RankByClaimed, 5))
}
