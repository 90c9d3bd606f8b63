package services

import (
	"testing"

	"anime-loyalty-system/models"

	"github.com/stretchr/testify/require"
)

func TestCalculateTierThresholds(t *testing.T) {
	cases := []struct {
		points int
		want   models.Tier
	}{
		{-50, models.TierBronze},
		{0, models.TierBronze},
		{999, models.TierBronze},
		{1000, models.TierSilver},
		{2499, models.TierSilver},
		{2500, models.TierGold},
		{4999, models.TierGold},
		{5000, models.TierPlatinum},
		{9999, models.TierPlatinum},
		{10000, models.TierDiamond},
		{24999, models.TierDiamond},
		{25000, models.TierEmerald},
		{1000000, models.TierEmerald},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, CalculateTier(tc.points), "points=%d", tc.points)
	}
}

func TestTierRankOrdering(t *testing.T) {
	require.Less(t, tierRank(models.TierBronze), tierRank(models.TierSilver))
	require.Less(t, tierRank(models.TierSilver), tierRank(models.TierGold))
	require.Less(t, tierRank(models.TierDiamond), tierRank(models.TierEmerald))
	require.Equal(t, -1, tierRank(models.TierAdmin))
}
