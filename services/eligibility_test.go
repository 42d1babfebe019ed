package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"holder-rewards/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluateFilters(t *testing.T) {
	db := setupTestDB(t)
	clock := newTestClock()
	ledger := NewClaimLedger(db, clock.Now)
	ctx := context.Background()
	now := clock.Now()
	recent := now.Add(-2 * time.Hour)

	fresh := models.Holding{ID: "fresh", Owner: walletA, ContractAddress: contractX, TokenID: "1", PurchasedAt: now.Add(-24 * time.Hour)}
	cooling := models.Holding{ID: "cooling", Owner: walletA, ContractAddress: contractX, TokenID: "2", PurchasedAt: now.Add(-240 * time.Hour), LastClaimedAt: &recent}
	claimed := models.Holding{ID: "claimed", Owner: walletA, ContractAddress: contractX, TokenID: "3", PurchasedAt: now.Add(-240 * time.Hour)}
	sold := models.Holding{ID: "sold", Owner: walletA, ContractAddress: contractY, TokenID: "4", PurchasedAt: now.Add(-240 * time.Hour)}
	good := models.Holding{ID: "good", Owner: walletA, ContractAddress: contractY, TokenID: "5", PurchasedAt: now.Add(-240 * time.Hour)}

	require.NoError(t, ledger.AppendHistory(ctx, []models.ClaimHistoryEntry{{
		ClaimID: uuid.NewString(), Wallet: walletA, ContractAddress: contractX, TokenID: "3",
		Reward: decimal.NewFromInt(1), ClaimedAt: now.Add(-48 * time.Hour),
	}}))

	var checked atomic.Int32
	verifier := OwnershipFunc(func(_ context.Context, contract, tokenID, wallet string, _ models.TokenStandard) (bool, error) {
		checked.Add(1)
		return tokenID != "4", nil
	})
	eval := NewEligibilityEvaluator(verifier, ledger, DefaultEligibilityPolicy(), 4, nil, clock.Now)

	eligible, err := eval.Evaluate(ctx, walletA, []models.Holding{fresh, cooling, claimed, sold, good})
	require.NoError(t, err)
	require.Len(t, eligible, 1)
	assert.Equal(t, "good", eligible[0].ID)
	// Only holdings that passed the local filters hit the chain
	assert.EqualValues(t, 2, checked.Load())
}

func TestEvaluateOwnershipErrorExcludesOnlyThatHolding(t *testing.T) {
	db := setupTestDB(t)
	clock := newTestClock()
	old := clock.Now().Add(-240 * time.Hour)
	verifier := OwnershipFunc(func(_ context.Context, _, tokenID, _ string, _ models.TokenStandard) (bool, error) {
		if tokenID == "1" {
			return false, errors.New("rpc timeout")
		}
		return true, nil
	})
	eval := NewEligibilityEvaluator(verifier, NewClaimLedger(db, clock.Now), DefaultEligibilityPolicy(), 2, nil, clock.Now)

	eligible, err := eval.Evaluate(context.Background(), walletA, []models.Holding{
		{ID: "a", ContractAddress: contractX, TokenID: "1", PurchasedAt: old},
		{ID: "b", ContractAddress: contractX, TokenID: "2", PurchasedAt: old},
		{ID: "c", ContractAddress: contractX, TokenID: "3", PurchasedAt: old},
	})
	require.NoError(t, err)
	require.Len(t, eligible, 2)
	assert.Equal(t, "b", eligible[0].ID)
	assert.Equal(t, "c", eligible[1].ID)
}

func TestEvaluateCooldownBoundary(t *testing.T) {
	db := setupTestDB(t)
	clock := newTestClock()
	lastClaim := clock.Now().Add(-24 * time.Hour)
	eval := NewEligibilityEvaluator(ownsEverything(), NewClaimLedger(db, clock.Now), DefaultEligibilityPolicy(), 1, nil, clock.Now)

	// Exactly one cooldown ago is no longer cooling down
	eligible, err := eval.Evaluate(context.Background(), walletA, []models.Holding{{
		ID: "x", ContractAddress: contractX, TokenID: "1",
		PurchasedAt: clock.Now().Add(-96 * time.Hour), LastClaimedAt: &lastClaim,
	}})
	require.NoError(t, err)
	assert.Len(t, eligible, 1)
}

func TestEvaluateEmpty(t *testing.T) {
	eval := NewEligibilityEvaluator(ownsEverything(), NewClaimLedger(setupTestDB(t), nil), DefaultEligibilityPolicy(), 1, nil, nil)
	eligible, err := eval.Evaluate(context.Background(), walletA, nil)
	require.NoError(t, err)
	assert.Empty(t, eligible)
}
