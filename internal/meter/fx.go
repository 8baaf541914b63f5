package meter

import (
	"github.com/smallbiznis/berair/internal/meter/repository"
	"github.com/smallbiznis/berair/internal/meter/service"
	"go.uber.org/fx"
)

var Module = fx.Module("meter.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewValidator),
	fx.Provide(service.New),
)
