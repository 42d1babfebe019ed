// models/system_stats.go
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DailyPayoutStatsID is the singleton row key of the daily payout counter.
const DailyPayoutStatsID = "dailyPayout"

// DailyPayoutCounter tracks how much has been reserved against the cap on Date (UTC, YYYY-MM-DD).
// Table name: system_stats
type DailyPayoutCounter struct {
	ID            string          `gorm:"primaryKey;type:varchar(32)" json:"id"`
	Date          string          `gorm:"type:varchar(10);not null" json:"date"`
	TotalReserved decimal.Decimal `gorm:"type:numeric(20,6);not null" json:"total_reserved"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func (DailyPayoutCounter) TableName() string { return "system_stats" }
