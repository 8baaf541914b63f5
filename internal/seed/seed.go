package seed

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/berair/internal/auth/password"
	"github.com/smallbiznis/berair/internal/clock"
	"github.com/smallbiznis/berair/internal/config"
	settingdomain "github.com/smallbiznis/berair/internal/setting/domain"
	userdomain "github.com/smallbiznis/berair/internal/user/domain"
	"gorm.io/gorm"
)

const waterPriceDesc = "Harga air per m3"

// EnsureWaterPrice stores the configured default price when no price has
// been set yet. An existing value is never overwritten.
func EnsureWaterPrice(ctx context.Context, db *gorm.DB, node *snowflake.Node, clk clock.Clock, billing config.BillingConfig) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	var existing settingdomain.Setting
	err := db.WithContext(ctx).Where(&settingdomain.Setting{Key: settingdomain.KeyWaterPrice}).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	price := billing.DefaultWaterPrice
	if price <= 0 {
		price = config.FallbackWaterPrice
	}
	now := clk.Now()
	return db.WithContext(ctx).Create(&settingdomain.Setting{
		ID:        node.Generate(),
		Key:       settingdomain.KeyWaterPrice,
		Value:     strconv.FormatInt(price, 10),
		Desc:      waterPriceDesc,
		CreatedAt: now,
		UpdatedAt: now,
	}).Error
}

// EnsureAdmin creates the bootstrap admin account described by cfg. It is a
// no-op when no NIK or password is configured or the NIK already exists.
func EnsureAdmin(ctx context.Context, db *gorm.DB, node *snowflake.Node, clk clock.Clock, cfg config.BootstrapConfig) (bool, error) {
	if db == nil {
		return false, errors.New("seed database handle is required")
	}

	nik := strings.TrimSpace(cfg.AdminNIK)
	if nik == "" || cfg.AdminPassword == "" {
		return false, nil
	}

	created := false
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user userdomain.User
		err := tx.Where("nik = ?", nik).First(&user).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		hashed, err := password.Hash(cfg.AdminPassword)
		if err != nil {
			return err
		}

		now := clk.Now()
		user = userdomain.User{
			ID:        node.Generate(),
			NIK:       nik,
			Name:      nonEmpty(cfg.AdminName, "Administrator"),
			Region:    nonEmpty(cfg.AdminRegion, "Pusat"),
			Address:   "-",
			Role:      userdomain.RoleAdmin,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := tx.Create(&user).Error; err != nil {
			return err
		}

		if err := tx.Create(&userdomain.Credential{
			ID:           node.Generate(),
			UserID:       user.ID,
			NIK:          nik,
			PasswordHash: hashed,
			CreatedAt:    now,
			UpdatedAt:    now,
		}).Error; err != nil {
			return err
		}
		created = true
		return nil
	})
	return created, err
}

func nonEmpty(value, fallback string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return fallback
}
