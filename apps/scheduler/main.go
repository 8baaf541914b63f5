package main

import (
	"github.com/bwmarrin/snowflake"
	billingservice "github.com/smallbiznis/berair/internal/billing/service"
	"github.com/smallbiznis/berair/internal/clock"
	"github.com/smallbiznis/berair/internal/config"
	"github.com/smallbiznis/berair/internal/meter"
	"github.com/smallbiznis/berair/internal/observability"
	"github.com/smallbiznis/berair/internal/ratelimit"
	reportservice "github.com/smallbiznis/berair/internal/report/service"
	"github.com/smallbiznis/berair/internal/report/snapshot"
	"github.com/smallbiznis/berair/internal/setting"
	"github.com/smallbiznis/berair/internal/user"
	"github.com/smallbiznis/berair/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		ratelimit.Module,

		// Domain services required by the snapshot job
		user.Module,
		setting.Module,
		meter.Module,
		billingservice.Module,
		reportservice.Module,

		// No server module!
		snapshot.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
