// services/lock_manager.go
package services

import (
	"context"
	"log"
	"time"

	"holder-rewards/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultLockTTL outlives the worst-case payout latency.
const DefaultLockTTL = 60 * time.Second

// LockHandle is proof of holding a wallet's claim lock.
type LockHandle struct {
	Wallet   string
	Token    string
	LockedAt time.Time
}

// ClaimLockManager serializes claims per wallet through the claim_locks table.
type ClaimLockManager struct {
	db  *gorm.DB
	ttl time.Duration
	now func() time.Time
}

func NewClaimLockManager(db *gorm.DB, ttl time.Duration, now func() time.Time) *ClaimLockManager {
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	if now == nil {
		now = time.Now
	}
	return &ClaimLockManager{db: db, ttl: ttl, now: now}
}

// Acquire takes the wallet's lock if it is absent or older than the TTL.
//
// The check and the write are one INSERT ... ON CONFLICT DO UPDATE ... WHERE
// statement, so of two concurrent acquirers exactly one sees a changed row.
func (m *ClaimLockManager) Acquire(ctx context.Context, wallet string) (*LockHandle, error) {
	now := m.now().UTC()
	lock := models.ClaimLock{
		Wallet:   models.NormalizeAddress(wallet),
		Token:    uuid.NewString(),
		LockedAt: now,
	}
	res := m.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "wallet"}},
		DoUpdates: clause.AssignmentColumns([]string{"token", "locked_at"}),
		Where: clause.Where{Exprs: []clause.Expression{
			clause.Lte{Column: clause.Column{Table: "claim_locks", Name: "locked_at"}, Value: now.Add(-m.ttl)},
		}},
	}).Create(&lock)
	if res.Error != nil {
		return nil, storageError("acquire claim lock", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrLockContention
	}
	return &LockHandle{Wallet: lock.Wallet, Token: lock.Token, LockedAt: now}, nil
}

// Release deletes the lock row if it still belongs to the handle.
func (m *ClaimLockManager) Release(ctx context.Context, handle *LockHandle) error {
	if handle == nil {
		return nil
	}
	err := m.db.WithContext(ctx).
		Where("wallet = ? AND token = ?", handle.Wallet, handle.Token).
		Delete(&models.ClaimLock{}).Error
	if err != nil {
		return storageError("release claim lock", err)
	}
	return nil
}

// WithLock runs fn while holding the wallet's lock. The lock is released on
// every exit path, including a cancelled ctx or a panic in fn.
func (m *ClaimLockManager) WithLock(ctx context.Context, wallet string, fn func(ctx context.Context, handle *LockHandle) error) error {
	handle, err := m.Acquire(ctx, wallet)
	if err != nil {
		return err
	}
	defer func() {
		if err := m.Release(context.WithoutCancel(ctx), handle); err != nil {
			log.Printf("[Lock] ❌ Failed to release lock for %s: %v", handle.Wallet, err)
		}
	}()
	return fn(ctx, handle)
}

// SweepExpired removes locks abandoned by crashed claims.
func (m *ClaimLockManager) SweepExpired(ctx context.Context) (int64, error) {
	cutoff := m.now().UTC().Add(-m.ttl)
	res := m.db.WithContext(ctx).Where("locked_at <= ?", cutoff).Delete(&models.ClaimLock{})
	if res.Error != nil {
		return 0, storageError("sweep claim locks", res.Error)
	}
	return res.RowsAffected, nil
}
