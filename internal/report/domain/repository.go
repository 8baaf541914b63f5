package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	UpsertSummary(ctx context.Context, db *gorm.DB, summary *MonthlySummary) error
	FindSummary(ctx context.Context, db *gorm.DB, period string) (*MonthlySummary, error)
	ListSummaries(ctx context.Context, db *gorm.DB, limit int) ([]MonthlySummary, error)
}
