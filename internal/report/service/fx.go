package service

import (
	"github.com/smallbiznis/berair/internal/report/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("report.service",
	fx.Provide(repository.Provide),
	fx.Provide(New),
)
