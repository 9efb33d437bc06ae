package database

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/tech-arch1tect/persistentlogin/config"
	"github.com/tech-arch1tect/persistentlogin/services/logging"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Options(
	fx.Provide(ProvideDatabaseFx),
)

var RedisModule = fx.Options(
	fx.Provide(ProvideRedisFx),
)

type DatabaseParams struct {
	fx.In
	Config    *config.Config
	ModelsOpt *ModelsOption `optional:"true"`
	Logger    *logging.Service
}

func ProvideDatabaseFx(p DatabaseParams) (*gorm.DB, error) {
	return ProvideDatabase(*p.Config, p.ModelsOpt, p.Logger)
}

func ProvideRedisFx(lc fx.Lifecycle, cfg *config.Config, log *logging.Service) (redis.UniversalClient, error) {
	client, err := ProvideRedis(*cfg, log)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})
	return client, nil
}
