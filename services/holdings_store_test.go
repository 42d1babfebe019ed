package services

import (
	"context"
	"testing"
	"time"

	"holder-rewards/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpsertMovesPurchaseForwardOnRebuy(t *testing.T) {
	db := setupTestDB(t)
	store := NewHoldingsStore(db)
	ctx := context.Background()
	first := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rebuy := time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC)

	holding := func(at time.Time) []models.Holding {
		return []models.Holding{{Owner: walletA, ContractAddress: contractX, TokenID: "7", Standard: models.StandardERC721, PurchasedAt: at}}
	}

	require.NoError(t, store.Upsert(ctx, holding(first)))
	require.NoError(t, db.Model(&models.Holding{}).Where("owner = ?", walletA).Update("purchase_count", 3).Error)

	require.NoError(t, store.Upsert(ctx, holding(rebuy)))
	held, err := store.ListByOwner(ctx, walletA)
	require.NoError(t, err)
	require.Len(t, held, 1)
	assert.True(t, held[0].PurchasedAt.Equal(rebuy), "purchased_at = %s", held[0].PurchasedAt)
	assert.Equal(t, 3, held[0].PurchaseCount)

	// An older ownership record never moves it back
	require.NoError(t, store.Upsert(ctx, holding(first)))
	held, err = store.ListByOwner(ctx, walletA)
	require.NoError(t, err)
	assert.True(t, held[0].PurchasedAt.Equal(rebuy))
}

func TestUpsertUndatedKeepsPurchase(t *testing.T) {
	db := setupTestDB(t)
	store := NewHoldingsStore(db)
	ctx := context.Background()
	first := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.Upsert(ctx, []models.Holding{{Owner: walletA, ContractAddress: contractX, TokenID: "7", Standard: models.StandardERC721, PurchasedAt: first}}))
	require.NoError(t, store.UpsertUndated(ctx, []models.Holding{{Owner: walletA, ContractAddress: contractX, TokenID: "7", Standard: models.StandardERC1155, PurchasedAt: first.Add(48 * time.Hour)}}))

	held, err := store.ListByOwner(ctx, walletA)
	require.NoError(t, err)
	require.Len(t, held, 1)
	assert.True(t, held[0].PurchasedAt.Equal(first))
	assert.Equal(t, models.StandardERC1155, held[0].Standard)
}
