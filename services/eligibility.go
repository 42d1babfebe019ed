// services/eligibility.go
package services

import (
	"context"
	"log"
	"time"

	"holder-rewards/models"

	"golang.org/x/sync/errgroup"
)

// OwnershipVerifier answers whether wallet currently owns a token on-chain.
// It returns an error only for transport or infrastructure failures.
type OwnershipVerifier interface {
	Verify(ctx context.Context, contractAddress, tokenID, wallet string, standard models.TokenStandard) (bool, error)
}

// OwnershipFunc adapts a function to the OwnershipVerifier interface.
type OwnershipFunc func(ctx context.Context, contractAddress, tokenID, wallet string, standard models.TokenStandard) (bool, error)

// Verify delegates to the function.
func (f OwnershipFunc) Verify(ctx context.Context, contractAddress, tokenID, wallet string, standard models.TokenStandard) (bool, error) {
	return f(ctx, contractAddress, tokenID, wallet, standard)
}

// EligibilityPolicy holds the time windows a holding must clear.
type EligibilityPolicy struct {
	MinHoldTime   time.Duration
	DailyCooldown time.Duration
}

// DefaultEligibilityPolicy is a 4 day hold and a 24h cooldown.
func DefaultEligibilityPolicy() EligibilityPolicy {
	return EligibilityPolicy{MinHoldTime: 4 * 24 * time.Hour, DailyCooldown: 24 * time.Hour}
}

type claimedKeysLoader interface {
	ClaimedKeys(ctx context.Context, wallet string) (map[models.HoldingKey]struct{}, error)
}

// EligibilityEvaluator filters a wallet's holdings down to those that earn a reward now.
type EligibilityEvaluator struct {
	verifier    OwnershipVerifier
	ledger      claimedKeysLoader
	policy      EligibilityPolicy
	concurrency int
	metrics     *Metrics
	now         func() time.Time
}

func NewEligibilityEvaluator(verifier OwnershipVerifier, ledger claimedKeysLoader, policy EligibilityPolicy, concurrency int, metrics *Metrics, now func() time.Time) *EligibilityEvaluator {
	if concurrency <= 0 {
		concurrency = 1
	}
	if now == nil {
		now = time.Now
	}
	return &EligibilityEvaluator{
		verifier:    verifier,
		ledger:      ledger,
		policy:      policy,
		concurrency: concurrency,
		metrics:     metrics,
		now:         now,
	}
}

// Evaluate returns the eligible subset of holdings, in input order.
//
// Time windows and the history check run first; the on-chain ownership check
// only runs for survivors, in parallel. A failed ownership lookup excludes the
// holding and is logged, it never fails the evaluation. The only error
// returned is a failure to read claim history.
func (e *EligibilityEvaluator) Evaluate(ctx context.Context, wallet string, holdings []models.Holding) ([]models.Holding, error) {
	wallet = models.NormalizeAddress(wallet)
	if len(holdings) == 0 {
		return nil, nil
	}
	claimed, err := e.ledger.ClaimedKeys(ctx, wallet)
	if err != nil {
		return nil, err
	}

	now := e.now()
	candidates := make([]models.Holding, 0, len(holdings))
	for _, h := range holdings {
		if now.Sub(h.PurchasedAt) < e.policy.MinHoldTime {
			continue
		}
		key := h.Key()
		key.Wallet = wallet
		if _, done := claimed[key]; done {
			continue
		}
		if h.LastClaimedAt != nil && now.Sub(*h.LastClaimedAt) < e.policy.DailyCooldown {
			continue
		}
		candidates = append(candidates, h)
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	owned := make([]bool, len(candidates))
	var g errgroup.Group
	g.SetLimit(e.concurrency)
	for i, h := range candidates {
		i, h := i, h
		g.Go(func() error {
			ok, err := e.verifier.Verify(ctx, h.ContractAddress, h.TokenID, wallet, h.Standard)
			if err != nil {
				log.Printf("[Eligibility] ⚠️ Ownership check failed, excluding contract=%s token=%s wallet=%s: %v",
					h.ContractAddress, h.TokenID, wallet, err)
				e.metrics.RecordOwnershipFailure()
				return nil
			}
			owned[i] = ok
			return nil
		})
	}
	_ = g.Wait()

	eligible := make([]models.Holding, 0, len(candidates))
	for i, h := range candidates {
		if owned[i] {
			eligible = append(eligible, h)
		}
	}
	return eligible, nil
}
