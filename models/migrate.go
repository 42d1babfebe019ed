package models

import "gorm.io/gorm"

// AutoMigrate creates or updates every table the reward engine owns.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Holding{},
		&ClaimLock{},
		&ClaimRateLimit{},
		&DailyPayoutCounter{},
		&Claim{},
		&ClaimHistoryEntry{},
		&LoginNonce{},
	)
}
