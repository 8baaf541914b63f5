package repository

import (
	"context"

	reportdomain "github.com/smallbiznis/berair/internal/report/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() reportdomain.Repository {
	return &repo{}
}

// UpsertSummary replaces the figures of an existing period in place.
func (r *repo) UpsertSummary(ctx context.Context, db *gorm.DB, s *reportdomain.MonthlySummary) error {
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "period"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"users",
			"readings",
			"total_usage",
			"total_usage_paid",
			"rate",
			"revenue",
			"pending",
			"facets",
			"generated_at",
			"updated_at",
		}),
	}).Create(s).Error
}

func (r *repo) FindSummary(ctx context.Context, db *gorm.DB, period string) (*reportdomain.MonthlySummary, error) {
	var summary reportdomain.MonthlySummary
	err := db.WithContext(ctx).
		Where("period = ?", period).
		Limit(1).
		Find(&summary).Error
	if err != nil {
		return nil, err
	}
	if summary.ID == 0 {
		return nil, nil
	}
	return &summary, nil
}

func (r *repo) ListSummaries(ctx context.Context, db *gorm.DB, limit int) ([]reportdomain.MonthlySummary, error) {
	stmt := db.WithContext(ctx).Order("period DESC")
	if limit > 0 {
		stmt = stmt.Limit(limit)
	}
	var items []reportdomain.MonthlySummary
	if err := stmt.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}
