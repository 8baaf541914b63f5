package repository

import (
	"context"

	settingdomain "github.com/smallbiznis/berair/internal/setting/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() settingdomain.Repository {
	return &repo{}
}

func (r *repo) Get(ctx context.Context, db *gorm.DB, key string) (*settingdomain.Setting, error) {
	var setting settingdomain.Setting
	err := db.WithContext(ctx).
		Where(clause.Eq{Column: clause.Column{Name: "key"}, Value: key}).
		Limit(1).
		Find(&setting).Error
	if err != nil {
		return nil, err
	}
	if setting.ID == 0 {
		return nil, nil
	}
	return &setting, nil
}

// Upsert writes the value for setting.Key, keeping the original id and
// created_at when the key already exists.
func (r *repo) Upsert(ctx context.Context, db *gorm.DB, setting *settingdomain.Setting) error {
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "desc", "updated_at"}),
	}).Create(setting).Error
}
