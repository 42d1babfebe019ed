// services/reward_calculator.go
package services

import (
	"holder-rewards/models"

	"github.com/shopspring/decimal"
)

// RewardScale is the number of decimal places a claim total is rounded to.
const RewardScale = 6

// RewardPolicy parameterises the decay curve.
type RewardPolicy struct {
	MaxReward decimal.Decimal
	MinReward decimal.Decimal
	DecayRate decimal.Decimal
}

// DefaultRewardPolicy is 1 USDT decaying by 0.8 per purchase with a 0.00002 floor.
func DefaultRewardPolicy() RewardPolicy {
	return RewardPolicy{
		MaxReward: decimal.NewFromInt(1),
		MinReward: decimal.RequireFromString("0.00002"),
		DecayRate: decimal.RequireFromString("0.8"),
	}
}

// RewardItem is one eligible holding together with its computed reward.
type RewardItem struct {
	Holding models.Holding
	Reward  decimal.Decimal
}

type RewardCalculator struct {
	policy RewardPolicy
}

func NewRewardCalculator(policy RewardPolicy) *RewardCalculator {
	return &RewardCalculator{policy: policy}
}

// Reward returns max(MinReward, MaxReward * DecayRate^(purchaseCount-1)), unrounded.
func (c *RewardCalculator) Reward(purchaseCount int) decimal.Decimal {
	if purchaseCount < 1 {
		purchaseCount = 1
	}
	reward := c.policy.MaxReward
	for i := 1; i < purchaseCount; i++ {
		reward = reward.Mul(c.policy.DecayRate)
		if reward.LessThan(c.policy.MinReward) {
			return c.policy.MinReward
		}
	}
	if reward.LessThan(c.policy.MinReward) {
		return c.policy.MinReward
	}
	return reward
}

// Compute prices every holding and returns the total rounded to RewardScale places.
// Per-item rewards stay unrounded so rounding happens once, at aggregation.
func (c *RewardCalculator) Compute(holdings []models.Holding) ([]RewardItem, decimal.Decimal) {
	items := make([]RewardItem, 0, len(holdings))
	total := decimal.Zero
	for _, h := range holdings {
		r := c.Reward(h.PurchaseCount)
		items = append(items, RewardItem{Holding: h, Reward: r})
		total = total.Add(r)
	}
	return items, total.Round(RewardScale)
}
