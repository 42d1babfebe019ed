// models/login_nonce.go
package models

import "time"

// LoginNonce is the single-use challenge a wallet signs to obtain a session.
type LoginNonce struct {
	Wallet    string    `gorm:"primaryKey;type:varchar(64)" json:"wallet"`
	Nonce     string    `gorm:"type:varchar(16);not null" json:"nonce"`
	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}
