// models/claim_lock.go
package models

import "time"

// ClaimLock exists only while a claim is in flight for Wallet.
// Token identifies the holder so a stale holder cannot release a reclaimed lock.
type ClaimLock struct {
	Wallet   string    `gorm:"primaryKey;type:varchar(64)" json:"wallet"`
	Token    string    `gorm:"type:uuid;not null" json:"-"`
	LockedAt time.Time `gorm:"not null;index" json:"locked_at"`
}

// ClaimRateLimit remembers the last claim attempt per wallet.
type ClaimRateLimit struct {
	Wallet        string    `gorm:"primaryKey;type:varchar(64)" json:"wallet"`
	LastAttemptAt time.Time `gorm:"not null;index" json:"last_attempt_at"`
}
