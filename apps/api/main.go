package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/berair/internal/auth"
	"github.com/smallbiznis/berair/internal/authorization"
	billingservice "github.com/smallbiznis/berair/internal/billing/service"
	"github.com/smallbiznis/berair/internal/clock"
	"github.com/smallbiznis/berair/internal/config"
	"github.com/smallbiznis/berair/internal/meter"
	"github.com/smallbiznis/berair/internal/migration"
	"github.com/smallbiznis/berair/internal/observability"
	"github.com/smallbiznis/berair/internal/providers/pdf"
	"github.com/smallbiznis/berair/internal/ratelimit"
	reportservice "github.com/smallbiznis/berair/internal/report/service"
	"github.com/smallbiznis/berair/internal/server"
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
		migration.Module,

		// Core dependencies for API
		user.Module,
		setting.Module,
		meter.Module,
		billingservice.Module,
		reportservice.Module,
		authorization.Module,
		auth.Module,
		pdf.Module,

		server.Module,
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
