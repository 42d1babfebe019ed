// models/holding.go
package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TokenStandard is the token interface a collectible contract implements.
type TokenStandard string

const (
	StandardERC721  TokenStandard = "ERC721"
	StandardERC1155 TokenStandard = "ERC1155"
)

// Holding records that a wallet owns one collectible instance.
// Table name: holdings
type Holding struct {
	ID              string        `gorm:"primaryKey;type:uuid;not null" json:"id"`
	Owner           string        `gorm:"type:varchar(64);not null;uniqueIndex:ux_holding_owner_token,priority:1" json:"owner"`
	ContractAddress string        `gorm:"type:varchar(64);not null;uniqueIndex:ux_holding_owner_token,priority:2" json:"contract_address"`
	TokenID         string        `gorm:"type:varchar(96);not null;uniqueIndex:ux_holding_owner_token,priority:3" json:"token_id"`
	Standard        TokenStandard `gorm:"type:varchar(16);not null" json:"standard"`
	PurchasedAt     time.Time     `gorm:"not null" json:"purchased_at"`
	PurchaseCount   int           `gorm:"not null;default:1" json:"purchase_count"`
	LastClaimedAt   *time.Time    `json:"last_claimed_at,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

func (h *Holding) BeforeCreate(tx *gorm.DB) error {
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	h.Owner = NormalizeAddress(h.Owner)
	h.ContractAddress = NormalizeAddress(h.ContractAddress)
	if h.PurchaseCount < 1 {
		h.PurchaseCount = 1
	}
	return nil
}

// Key identifies the (wallet, contract, token) pair a reward is paid against.
func (h Holding) Key() HoldingKey {
	return HoldingKey{Wallet: NormalizeAddress(h.Owner), ContractAddress: NormalizeAddress(h.ContractAddress), TokenID: h.TokenID}
}

// HoldingKey is the idempotency key of a claim history entry.
type HoldingKey struct {
	Wallet          string
	ContractAddress string
	TokenID         string
}

// NormalizeAddress lower-cases and trims a hex address so lookups are case-insensitive.
func NormalizeAddress(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}
