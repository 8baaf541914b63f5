package service

import "go.uber.org/fx"

var Module = fx.Module("billing.service",
	fx.Provide(New),
)
