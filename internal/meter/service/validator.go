package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/berair/internal/clock"
	"github.com/smallbiznis/berair/internal/config"
	meterdomain "github.com/smallbiznis/berair/internal/meter/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

type ValidatorParams struct {
	fx.In

	DB     *gorm.DB
	Repo   meterdomain.Repository
	Clock  clock.Clock
	Config config.Config
}

type Validator struct {
	db    *gorm.DB
	repo  meterdomain.Repository
	clock clock.Clock
	cfg   config.Config
}

func NewValidator(p ValidatorParams) meterdomain.Validator {
	return &Validator{
		db:    p.DB,
		repo:  p.Repo,
		clock: p.Clock,
		cfg:   p.Config,
	}
}

// Validate rejects a reading that does not strictly increase over the
// supplied previous value, and a second reading for the user in the
// current calendar month of the billing location.
func (v *Validator) Validate(ctx context.Context, userID snowflake.ID, meterNow int64, meterBefore *int64) error {
	var before int64
	if meterBefore != nil {
		before = *meterBefore
	}
	if meterNow <= before {
		return meterdomain.ErrInvalidReading
	}

	start, end := meterdomain.MonthBounds(v.clock.Now(), v.cfg.Location())
	exists, err := v.repo.ExistsInRange(ctx, v.db, userID, start, end)
	if err != nil {
		return err
	}
	if exists {
		return meterdomain.ErrDuplicateMonthlyReading
	}
	return nil
}
