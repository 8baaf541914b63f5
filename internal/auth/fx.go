package auth

import (
	"github.com/smallbiznis/berair/internal/auth/repository"
	"github.com/smallbiznis/berair/internal/auth/service"
	"go.uber.org/fx"
)

var Module = fx.Module("auth.service",
	fx.Provide(repository.ProvideRevocations),
	fx.Provide(service.NewTokenManager),
	fx.Provide(service.New),
)
