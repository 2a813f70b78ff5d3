package service

import (
	"context"
	"sort"

	"staking-engine/internal/model"
)

// RankBy selects the figure a leaderboard orders users by.
type RankBy int

// Leaderboard orderings.
const (
	RankByStake RankBy = iota
	RankByTeam
	RankByClaimed
)

func (r RankBy) value(u *model.User) uint64 {
	switch r {
	case RankByTeam:
		return u.TeamPerformance
	case RankByClaimed:
		return u.RewardsClaimed
	default:
		return u.StakedAmount
	}
}

// Leaderboard returns the top users by the chosen figure, highest first.
// Users with nothing to show are left out.
func (s *StakingService) Leaderboard(ctx context.Context, by RankBy, limit int) ([]*model.User, error) {
	users, err := s.accounts.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	return rankUsers(users, by, limit), nil
}

// rankUsers orders users by the figure descending. Ties keep their input
// order, which is creation order.
func rankUsers(users []*model.User, by RankBy, limit int) []*model.User {
	ranked := make([]*model.User, 0, len(users))
	for _, u := range users {
		if by.value(u) > 0 {
			ranked = append(ranked, u)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return by.value(ranked[i]) > by.value(ranked[j])
	})
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}
