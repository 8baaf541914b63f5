package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type ListFilter struct {
	UserID snowflake.ID
	From   *time.Time
	To     *time.Time
	Limit  int
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, reading *Reading) error
	UpdateMeterNow(ctx context.Context, db *gorm.DB, id snowflake.ID, meterNow int64, updatedAt time.Time) (int64, error)
	RecordPayment(ctx context.Context, db *gorm.DB, id snowflake.ID, paidAt time.Time) (int64, error)
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Reading, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]Reading, error)
	ExistsInRange(ctx context.Context, db *gorm.DB, userID snowflake.ID, from, to time.Time) (bool, error)
	LatestByUser(ctx context.Context, db *gorm.DB, userID snowflake.ID) (*Reading, error)
}
