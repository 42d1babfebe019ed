// services/ledger.go
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"holder-rewards/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// MaxHistoryLimit bounds a single history query.
const MaxHistoryLimit = 100

// ClaimLedger is the durable record of claims and per-holding reward history.
type ClaimLedger struct {
	db  *gorm.DB
	now func() time.Time
}

func NewClaimLedger(db *gorm.DB, now func() time.Time) *ClaimLedger {
	if now == nil {
		now = time.Now
	}
	return &ClaimLedger{db: db, now: now}
}

// CreatePending records a new PENDING claim for amount.
func (l *ClaimLedger) CreatePending(ctx context.Context, wallet string, amount decimal.Decimal) (*models.Claim, error) {
	claim := &models.Claim{
		ID:        uuid.NewString(),
		Wallet:    models.NormalizeAddress(wallet),
		Amount:    amount,
		Status:    models.ClaimStatusPending,
		CreatedAt: l.now().UTC(),
	}
	if err := l.db.WithContext(ctx).Create(claim).Error; err != nil {
		return nil, storageError("create pending claim", err)
	}
	return claim, nil
}

// Finalize moves a PENDING claim to status. txRef is stored on success,
// errMsg on failure. A claim that already left PENDING is never touched again.
func (l *ClaimLedger) Finalize(ctx context.Context, claimID string, status models.ClaimStatus, txRef, errMsg string) error {
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return l.finalizeTx(tx, claimID, status, txRef, errMsg)
	})
	if errors.Is(err, ErrClaimAlreadyFinal) {
		return err
	}
	if err != nil {
		return storageError("finalize claim", err)
	}
	return nil
}

// AppendHistory writes history entries in one transaction.
func (l *ClaimLedger) AppendHistory(ctx context.Context, entries []models.ClaimHistoryEntry) error {
	if len(entries) == 0 {
		return nil
	}
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&entries).Error
	})
	if err != nil {
		return storageError("append claim history", err)
	}
	return nil
}

// FinalizeSuccess commits a paid claim: every holding gets lastClaimedAt and an
// incremented purchaseCount, every holding gets a history entry, and the claim
// becomes COMPLETED. All of it lands in one transaction or none of it does.
func (l *ClaimLedger) FinalizeSuccess(ctx context.Context, claimID, txRef string, items []RewardItem) error {
	claimedAt := l.now().UTC()
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var claim models.Claim
		if err := tx.First(&claim, "id = ?", claimID).Error; err != nil {
			return err
		}
		entries := make([]models.ClaimHistoryEntry, 0, len(items))
		for _, item := range items {
			res := tx.Model(&models.Holding{}).
				Where("id = ?", item.Holding.ID).
				Updates(map[string]interface{}{
					"last_claimed_at": claimedAt,
					"purchase_count":  gorm.Expr("purchase_count + ?", 1),
					"updated_at":      claimedAt,
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return fmt.Errorf("holding %s disappeared during claim", item.Holding.ID)
			}
			entries = append(entries, models.ClaimHistoryEntry{
				ID:              uuid.NewString(),
				ClaimID:         claimID,
				Wallet:          claim.Wallet,
				ContractAddress: models.NormalizeAddress(item.Holding.ContractAddress),
				TokenID:         item.Holding.TokenID,
				Reward:          item.Reward.Round(RewardScale),
				ClaimedAt:       claimedAt,
				TxRef:           txRef,
			})
		}
		if len(entries) > 0 {
			if err := tx.Create(&entries).Error; err != nil {
				return err
			}
		}
		return l.finalizeTx(tx, claimID, models.ClaimStatusCompleted, txRef, "")
	})
	if errors.Is(err, ErrClaimAlreadyFinal) {
		return err
	}
	if err != nil {
		return storageError("finalize successful claim", err)
	}
	return nil
}

func (l *ClaimLedger) finalizeTx(tx *gorm.DB, claimID string, status models.ClaimStatus, txRef, errMsg string) error {
	if status != models.ClaimStatusCompleted && status != models.ClaimStatusFailed {
		return fmt.Errorf("invalid terminal status %q", status)
	}
	updates := map[string]interface{}{
		"status":       status,
		"finalized_at": l.now().UTC(),
	}
	if txRef != "" {
		updates["tx_ref"] = txRef
	}
	if errMsg != "" {
		updates["error"] = errMsg
	}
	res := tx.Model(&models.Claim{}).
		Where("id = ? AND status = ?", claimID, models.ClaimStatusPending).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrClaimAlreadyFinal
	}
	return nil
}

// ClaimedKeys returns every (wallet, contract, token) pair already rewarded for wallet.
func (l *ClaimLedger) ClaimedKeys(ctx context.Context, wallet string) (map[models.HoldingKey]struct{}, error) {
	var entries []models.ClaimHistoryEntry
	err := l.db.WithContext(ctx).
		Select("wallet", "contract_address", "token_id").
		Where("wallet = ?", models.NormalizeAddress(wallet)).
		Find(&entries).Error
	if err != nil {
		return nil, storageError("load claimed holdings", err)
	}
	keys := make(map[models.HoldingKey]struct{}, len(entries))
	for _, e := range entries {
		keys[models.HoldingKey{Wallet: e.Wallet, ContractAddress: e.ContractAddress, TokenID: e.TokenID}] = struct{}{}
	}
	return keys, nil
}

// QueryHistory returns up to limit entries for wallet, newest first.
func (l *ClaimLedger) QueryHistory(ctx context.Context, wallet string, limit int) ([]models.ClaimHistoryEntry, error) {
	if limit <= 0 || limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	var entries []models.ClaimHistoryEntry
	err := l.db.WithContext(ctx).
		Where("wallet = ?", models.NormalizeAddress(wallet)).
		Order("claimed_at DESC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, storageError("query claim history", err)
	}
	return entries, nil
}

// GetClaim loads a claim by id.
func (l *ClaimLedger) GetClaim(ctx context.Context, claimID string) (*models.Claim, error) {
	var claim models.Claim
	if err := l.db.WithContext(ctx).First(&claim, "id = ?", claimID).Error; err != nil {
		return nil, storageError("get claim", err)
	}
	return &claim, nil
}

// StalePending lists claims still PENDING after olderThan; these need manual reconciliation.
func (l *ClaimLedger) StalePending(ctx context.Context, olderThan time.Duration) ([]models.Claim, error) {
	var claims []models.Claim
	err := l.db.WithContext(ctx).
		Where("status = ? AND created_at <= ?", models.ClaimStatusPending, l.now().UTC().Add(-olderThan)).
		Order("created_at ASC").
		Find(&claims).Error
	if err != nil {
		return nil, storageError("list stale pending claims", err)
	}
	return claims, nil
}

// LedgerExport is one UTC day of claims and history, as uploaded for audit.
type LedgerExport struct {
	Date    string                     `json:"date"`
	Claims  []models.Claim             `json:"claims"`
	History []models.ClaimHistoryEntry `json:"history"`
}

// ExportDay collects claims created and history written on day's UTC date.
func (l *ClaimLedger) ExportDay(ctx context.Context, day time.Time) (*LedgerExport, error) {
	start := time.Date(day.UTC().Year(), day.UTC().Month(), day.UTC().Day(), 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)
	out := &LedgerExport{Date: start.Format("2006-01-02")}
	db := l.db.WithContext(ctx)
	if err := db.Where("created_at >= ? AND created_at < ?", start, end).Order("created_at ASC").Find(&out.Claims).Error; err != nil {
		return nil, storageError("export claims", err)
	}
	if err := db.Where("claimed_at >= ? AND claimed_at < ?", start, end).Order("claimed_at ASC").Find(&out.History).Error; err != nil {
		return nil, storageError("export claim history", err)
	}
	return out, nil
}
