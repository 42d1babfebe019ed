package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"holder-rewards/models"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	walletA   = "0x1111111111111111111111111111111111111111"
	walletB   = "0x2222222222222222222222222222222222222222"
	contractX = "0x3333333333333333333333333333333333333333"
	contractY = "0x4444444444444444444444444444444444444444"
)

// setupTestDB opens a private in-memory database. One connection makes
// transactions run one at a time, the way row locks serialize them in Postgres.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, models.AutoMigrate(db))
	return db
}

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func seedHolding(t *testing.T, db *gorm.DB, h models.Holding) models.Holding {
	t.Helper()
	if h.Standard == "" {
		h.Standard = models.StandardERC721
	}
	require.NoError(t, db.Create(&h).Error)
	return h
}

func ownsEverything() OwnershipFunc {
	return func(_ context.Context, _, _, _ string, _ models.TokenStandard) (bool, error) {
		return true, nil
	}
}
