package services

import (
	"testing"

	"holder-rewards/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestRewardDecay(t *testing.T) {
	calc := NewRewardCalculator(DefaultRewardPolicy())

	tests := []struct {
		purchaseCount int
		want          string
	}{
		{0, "1"},
		{1, "1"},
		{2, "0.8"},
		{3, "0.64"},
		{5, "0.4096"},
		{200, "0.00002"},
	}
	for _, tt := range tests {
		got := calc.Reward(tt.purchaseCount)
		assert.Truef(t, got.Equal(decimal.RequireFromString(tt.want)),
			"reward(%d) = %s, want %s", tt.purchaseCount, got, tt.want)
	}
}

func TestRewardIsMonotonicAndFloored(t *testing.T) {
	policy := DefaultRewardPolicy()
	calc := NewRewardCalculator(policy)

	prev := calc.Reward(1)
	for n := 2; n <= 120; n++ {
		cur := calc.Reward(n)
		assert.Truef(t, cur.LessThanOrEqual(prev), "reward(%d)=%s > reward(%d)=%s", n, cur, n-1, prev)
		assert.Truef(t, cur.GreaterThanOrEqual(policy.MinReward), "reward(%d)=%s below floor", n, cur)
		prev = cur
	}
}

func TestComputeRoundsOnlyTheTotal(t *testing.T) {
	calc := NewRewardCalculator(RewardPolicy{
		MaxReward: decimal.RequireFromString("0.3333333"),
		MinReward: decimal.Zero,
		DecayRate: decimal.NewFromInt(1),
	})
	holdings := []models.Holding{{PurchaseCount: 1}, {PurchaseCount: 1}, {PurchaseCount: 1}}

	items, total := calc.Compute(holdings)
	assert.Len(t, items, 3)
	assert.True(t, items[0].Reward.Equal(decimal.RequireFromString("0.3333333")))
	// 0.9999999 rounds to 1.000000, not 3 x 0.333333
	assert.True(t, total.Equal(decimal.NewFromInt(1)), "total = %s", total)
}

func TestComputeEmpty(t *testing.T) {
	items, total := NewRewardCalculator(DefaultRewardPolicy()).Compute(nil)
	assert.Empty(t, items)
	assert.True(t, total.IsZero())
}
