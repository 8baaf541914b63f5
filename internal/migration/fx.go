package migration

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/berair/internal/clock"
	"github.com/smallbiznis/berair/internal/config"
	"github.com/smallbiznis/berair/internal/seed"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, billing *config.BillingConfigHolder, node *snowflake.Node, clk clock.Clock, log *zap.Logger) error {
		if err := Migrate(conn); err != nil {
			return err
		}

		ctx := context.Background()
		if err := seed.EnsureWaterPrice(ctx, conn, node, clk, billing.Get()); err != nil {
			return err
		}
		created, err := seed.EnsureAdmin(ctx, conn, node, clk, cfg.Bootstrap)
		if err != nil {
			return err
		}
		if created {
			log.Info("bootstrap admin created", zap.String("nik", cfg.Bootstrap.AdminNIK))
		}
		return nil
	}),
)
