// services/holdings_store.go
package services

import (
	"context"

	"holder-rewards/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// HoldingsStore persists holdings per wallet.
type HoldingsStore struct {
	DB *gorm.DB
}

func NewHoldingsStore(db *gorm.DB) *HoldingsStore {
	return &HoldingsStore{DB: db}
}

// ListByOwner returns every holding recorded for wallet.
func (s *HoldingsStore) ListByOwner(ctx context.Context, wallet string) ([]models.Holding, error) {
	var holdings []models.Holding
	err := s.DB.WithContext(ctx).
		Where("owner = ?", models.NormalizeAddress(wallet)).
		Order("purchased_at ASC").
		Find(&holdings).Error
	if err != nil {
		return nil, storageError("list holdings", err)
	}
	return holdings, nil
}

// Upsert inserts new holdings from the marketplace index. Existing rows get
// their standard refreshed, and purchased_at moves forward when the owner
// bought the token again: the hold time restarts. purchase_count and
// last_claimed_at belong to the claim engine.
func (s *HoldingsStore) Upsert(ctx context.Context, holdings []models.Holding) error {
	return s.upsert(ctx, holdings, true)
}

// UpsertUndated is Upsert for holdings whose purchase time is unknown and was
// filled in by the caller. Existing rows keep their purchased_at.
func (s *HoldingsStore) UpsertUndated(ctx context.Context, holdings []models.Holding) error {
	return s.upsert(ctx, holdings, false)
}

func (s *HoldingsStore) upsert(ctx context.Context, holdings []models.Holding, refreshPurchase bool) error {
	if len(holdings) == 0 {
		return nil
	}
	updates := clause.AssignmentColumns([]string{"standard", "updated_at"})
	if refreshPurchase {
		updates = append(updates, clause.Assignment{
			Column: clause.Column{Name: "purchased_at"},
			Value: gorm.Expr("CASE WHEN excluded.purchased_at > holdings.purchased_at " +
				"THEN excluded.purchased_at ELSE holdings.purchased_at END"),
		})
	}
	err := s.DB.WithContext(ctx).Clauses(
		clause.OnConflict{
			Columns:   []clause.Column{{Name: "owner"}, {Name: "contract_address"}, {Name: "token_id"}},
			DoUpdates: updates,
		},
	).Create(&holdings).Error
	if err != nil {
		return storageError("upsert holdings", err)
	}
	return nil
}
