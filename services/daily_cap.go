// services/daily_cap.go
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"holder-rewards/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DailyCapEnforcer reserves payout budget against a per-UTC-day ceiling.
// Every reservation goes through one locked row, which makes it the single
// serialization point across wallets.
type DailyCapEnforcer struct {
	db  *gorm.DB
	cap decimal.Decimal
	now func() time.Time
}

func NewDailyCapEnforcer(db *gorm.DB, dailyCap decimal.Decimal, now func() time.Time) *DailyCapEnforcer {
	if now == nil {
		now = time.Now
	}
	return &DailyCapEnforcer{db: db, cap: dailyCap, now: now}
}

// Cap returns the configured daily ceiling.
func (e *DailyCapEnforcer) Cap() decimal.Decimal { return e.cap }

// Reserve adds amount to today's total, or fails with ErrCapExceeded leaving state untouched.
func (e *DailyCapEnforcer) Reserve(ctx context.Context, amount decimal.Decimal) error {
	if amount.Sign() <= 0 {
		return fmt.Errorf("reserve amount must be positive, got %s", amount)
	}
	today := dayBucket(e.now())

	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		counter, err := lockCounter(tx, today)
		if err != nil {
			return err
		}
		if counter.Date != today {
			counter.Date = today
			counter.TotalReserved = decimal.Zero
		}
		next := counter.TotalReserved.Add(amount)
		if next.GreaterThan(e.cap) {
			return ErrCapExceeded
		}
		return tx.Model(&models.DailyPayoutCounter{}).
			Where("id = ?", models.DailyPayoutStatsID).
			Updates(map[string]interface{}{
				"date":           today,
				"total_reserved": next,
				"updated_at":     e.now().UTC(),
			}).Error
	})
	if err != nil {
		if errors.Is(err, ErrCapExceeded) {
			return ErrCapExceeded
		}
		return storageError("reserve daily cap", err)
	}
	return nil
}

// Remaining returns how much can still be reserved today.
func (e *DailyCapEnforcer) Remaining(ctx context.Context) (decimal.Decimal, error) {
	var counter models.DailyPayoutCounter
	err := e.db.WithContext(ctx).First(&counter, "id = ?", models.DailyPayoutStatsID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return e.cap, nil
	}
	if err != nil {
		return decimal.Zero, storageError("read daily cap", err)
	}
	if counter.Date != dayBucket(e.now()) {
		return e.cap, nil
	}
	remaining := e.cap.Sub(counter.TotalReserved)
	if remaining.IsNegative() {
		return decimal.Zero, nil
	}
	return remaining, nil
}

// lockCounter makes sure the singleton row exists, then reads it FOR UPDATE.
func lockCounter(tx *gorm.DB, today string) (*models.DailyPayoutCounter, error) {
	seed := models.DailyPayoutCounter{ID: models.DailyPayoutStatsID, Date: today, TotalReserved: decimal.Zero}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
		return nil, err
	}
	var counter models.DailyPayoutCounter
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&counter, "id = ?", models.DailyPayoutStatsID).Error; err != nil {
		return nil, err
	}
	return &counter, nil
}

func dayBucket(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
