package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	meterdomain "github.com/smallbiznis/berair/internal/meter/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() meterdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, m *meterdomain.Reading) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO meter_readings (id, user_id, meter_now, meter_before, recorded_at, period, recorded_by, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID,
		m.UserID,
		m.MeterNow,
		m.MeterBefore,
		m.RecordedAt,
		m.Period,
		m.RecordedBy,
		m.CreatedAt,
		m.UpdatedAt,
	).Error
}

func (r *repo) UpdateMeterNow(ctx context.Context, db *gorm.DB, id snowflake.ID, meterNow int64, updatedAt time.Time) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE meter_readings SET meter_now = ?, updated_at = ? WHERE id = ?`,
		meterNow,
		updatedAt,
		id,
	)
	return res.RowsAffected, res.Error
}

// RecordPayment marks the reading paid up to its current meter value.
func (r *repo) RecordPayment(ctx context.Context, db *gorm.DB, id snowflake.ID, paidAt time.Time) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE meter_readings SET meter_paid = meter_now, last_payment = ?, updated_at = ? WHERE id = ?`,
		paidAt,
		paidAt,
		id,
	)
	return res.RowsAffected, res.Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*meterdomain.Reading, error) {
	var reading meterdomain.Reading
	err := db.WithContext(ctx).Raw(
		`SELECT id, user_id, meter_now, meter_before, recorded_at, period, meter_paid, last_payment, recorded_by, created_at, updated_at
		 FROM meter_readings WHERE id = ?`,
		id,
	).Scan(&reading).Error
	if err != nil {
		return nil, err
	}
	if reading.ID == 0 {
		return nil, nil
	}
	return &reading, nil
}

// List returns readings newest first. Zero-valued filter fields are ignored.
func (r *repo) List(ctx context.Context, db *gorm.DB, filter meterdomain.ListFilter) ([]meterdomain.Reading, error) {
	stmt := db.WithContext(ctx).Model(&meterdomain.Reading{})
	if filter.UserID != 0 {
		stmt = stmt.Where("user_id = ?", filter.UserID)
	}
	if filter.From != nil {
		stmt = stmt.Where("recorded_at >= ?", filter.From.UTC())
	}
	if filter.To != nil {
		stmt = stmt.Where("recorded_at <= ?", filter.To.UTC())
	}
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit)
	}

	var items []meterdomain.Reading
	if err := stmt.Order("recorded_at DESC").Order("id DESC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// ExistsInRange reports whether the user has a reading recorded within the
// closed interval [from, to].
func (r *repo) ExistsInRange(ctx context.Context, db *gorm.DB, userID snowflake.ID, from, to time.Time) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM meter_readings WHERE user_id = ? AND recorded_at >= ? AND recorded_at <= ?`,
		userID,
		from.UTC(),
		to.UTC(),
	).Scan(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repo) LatestByUser(ctx context.Context, db *gorm.DB, userID snowflake.ID) (*meterdomain.Reading, error) {
	var reading meterdomain.Reading
	err := db.WithContext(ctx).Raw(
		`SELECT id, user_id, meter_now, meter_before, recorded_at, period, meter_paid, last_payment, recorded_by, created_at, updated_at
		 FROM meter_readings WHERE user_id = ?
		 ORDER BY recorded_at DESC, id DESC
		 LIMIT 1`,
		userID,
	).Scan(&reading).Error
	if err != nil {
		return nil, err
	}
	if reading.ID == 0 {
		return nil, nil
	}
	return &reading, nil
}
