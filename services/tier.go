package services

import "anime-loyalty-system/models"

// tierLadder is the fixed ordered tier → minimum-points mapping. CalculateTier
// scans it from the top down, so the order is load-bearing.
var tierLadder = []struct {
	Tier      models.Tier
	Threshold int
}{
	{models.TierBronze, 0},
	{models.TierSilver, 1000},
	{models.TierGold, 2500},
	{models.TierPlatinum, 5000},
	{models.TierDiamond, 10000},
	{models.TierEmerald, 25000},
}

// CalculateTier returns the highest tier whose threshold is <= points.
// Negative totals fall back to bronze. Pure, no side effects.
func CalculateTier(points int) models.Tier {
	for i := len(tierLadder) - 1; i >= 0; i-- {
		if points >= tierLadder[i].Threshold {
			return tierLadder[i].Tier
		}
	}
	return models.TierBronze
}

// tierRank maps a tier to its position on the ladder so upgrades can be told
// apart from downgrades. The admin tier sits outside the ladder.
func tierRank(tier models.Tier) int {
	for i, t := range tierLadder {
		if t.Tier == tier {
			return i
		}
	}
	return -1
}
