// models/claim.go
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ClaimStatus is the lifecycle state of a payout attempt.
type ClaimStatus string

const (
	ClaimStatusPending   ClaimStatus = "PENDING"
	ClaimStatusCompleted ClaimStatus = "COMPLETED"
	ClaimStatusFailed    ClaimStatus = "FAILED"
)

// Claim is one payout attempt for a wallet. Created PENDING, finalized exactly once.
// Table name: claims
type Claim struct {
	ID          string          `gorm:"primaryKey;type:uuid;not null" json:"id"`
	Wallet      string          `gorm:"type:varchar(64);not null;index" json:"wallet"`
	Amount      decimal.Decimal `gorm:"type:numeric(20,6);not null" json:"amount"`
	Status      ClaimStatus     `gorm:"type:varchar(16);not null;index" json:"status"`
	TxRef       *string         `gorm:"type:varchar(128)" json:"tx_ref,omitempty"`
	Error       *string         `gorm:"type:text" json:"error,omitempty"`
	CreatedAt   time.Time       `gorm:"not null;index" json:"created_at"`
	FinalizedAt *time.Time      `json:"finalized_at,omitempty"`
}

func (c *Claim) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// ClaimHistoryEntry is the append-only proof that a holding was rewarded.
// The unique (wallet, contract_address, token_id) index enforces one entry per pair.
// Table name: claim_history
type ClaimHistoryEntry struct {
	ID              string          `gorm:"primaryKey;type:uuid;not null" json:"id"`
	ClaimID         string          `gorm:"type:uuid;not null;index" json:"claim_id"`
	Wallet          string          `gorm:"type:varchar(64);not null;uniqueIndex:ux_claim_history_pair,priority:1;index:ix_claim_history_wallet_time,priority:1" json:"wallet"`
	ContractAddress string          `gorm:"type:varchar(64);not null;uniqueIndex:ux_claim_history_pair,priority:2" json:"contract_address"`
	TokenID         string          `gorm:"type:varchar(96);not null;uniqueIndex:ux_claim_history_pair,priority:3" json:"token_id"`
	Reward          decimal.Decimal `gorm:"type:numeric(20,6);not null" json:"reward"`
	ClaimedAt       time.Time       `gorm:"not null;index:ix_claim_history_wallet_time,priority:2" json:"claimed_at"`
	TxRef           string          `gorm:"type:varchar(128)" json:"tx_ref"`
}

func (ClaimHistoryEntry) TableName() string { return "claim_history" }

func (e *ClaimHistoryEntry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}
