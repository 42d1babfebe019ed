// services/rate_limiter.go
package services

import (
	"context"
	"time"

	"holder-rewards/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ClaimRateLimiter allows one claim attempt per wallet per window, with the
// window stored as a TTL row rather than in process memory.
type ClaimRateLimiter struct {
	db     *gorm.DB
	window time.Duration
	now    func() time.Time
}

func NewClaimRateLimiter(db *gorm.DB, window time.Duration, now func() time.Time) *ClaimRateLimiter {
	if now == nil {
		now = time.Now
	}
	return &ClaimRateLimiter{db: db, window: window, now: now}
}

// Allow records an attempt and reports whether it falls outside the previous window.
// A non-positive window disables limiting.
func (r *ClaimRateLimiter) Allow(ctx context.Context, wallet string) (bool, error) {
	if r == nil || r.window <= 0 {
		return true, nil
	}
	now := r.now().UTC()
	row := models.ClaimRateLimit{Wallet: models.NormalizeAddress(wallet), LastAttemptAt: now}
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "wallet"}},
		DoUpdates: clause.AssignmentColumns([]string{"last_attempt_at"}),
		Where: clause.Where{Exprs: []clause.Expression{
			clause.Lte{Column: clause.Column{Table: "claim_rate_limits", Name: "last_attempt_at"}, Value: now.Add(-r.window)},
		}},
	}).Create(&row)
	if res.Error != nil {
		return false, storageError("claim rate limit", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// SweepExpired deletes rows whose window has passed.
func (r *ClaimRateLimiter) SweepExpired(ctx context.Context) (int64, error) {
	if r == nil || r.window <= 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).
		Where("last_attempt_at <= ?", r.now().UTC().Add(-r.window)).
		Delete(&models.ClaimRateLimit{})
	if res.Error != nil {
		return 0, storageError("sweep claim rate limits", res.Error)
	}
	return res.RowsAffected, nil
}
