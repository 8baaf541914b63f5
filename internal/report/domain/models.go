package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// MonthlySummary is the persisted rollup of one calendar month.
type MonthlySummary struct {
	ID             snowflake.ID   `json:"id" gorm:"primaryKey"`
	Period         string         `json:"period" gorm:"type:varchar(7);not null;uniqueIndex:ux_monthly_summaries_period"`
	Users          int            `json:"users" gorm:"not null;default:0"`
	Readings       int            `json:"readings" gorm:"not null;default:0"`
	TotalUsage     int64          `json:"total_usage" gorm:"not null;default:0"`
	TotalUsagePaid int64          `json:"total_usage_paid" gorm:"not null;default:0"`
	Rate           int64          `json:"rate" gorm:"not null"`
	Revenue        int64          `json:"revenue" gorm:"not null;default:0"`
	Pending        int64          `json:"pending" gorm:"not null;default:0"`
	Facets         datatypes.JSON `json:"facets"`
	GeneratedAt    time.Time      `json:"generated_at" gorm:"not null"`
	CreatedAt      time.Time      `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt      time.Time      `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (MonthlySummary) TableName() string { return "monthly_summaries" }
