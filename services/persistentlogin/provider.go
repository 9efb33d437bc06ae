package persistentlogin

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/tech-arch1tect/persistentlogin/config"
	"github.com/tech-arch1tect/persistentlogin/services/logging"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

type StoreParams struct {
	fx.In
	Config *config.Config
	DB     *gorm.DB              `optional:"true"`
	Redis  redis.UniversalClient `optional:"true"`
}

func ProvideStore(p StoreParams) (Store, error) {
	switch p.Config.PersistentLogin.Store {
	case "redis":
		if p.Redis == nil {
			return nil, fmt.Errorf("redis persistent login store requires a redis client: %w", ErrStoreRequired)
		}
		return NewRedisStore(p.Redis, ""), nil
	case "database", "":
		if p.DB == nil {
			return nil, fmt.Errorf("database persistent login store requires database to be enabled: %w", ErrStoreRequired)
		}
		return NewGormStore(p.DB), nil
	default:
		return nil, fmt.Errorf("unsupported persistent login store: %s", p.Config.PersistentLogin.Store)
	}
}

func ProvideGenerator(cfg *config.Config, logger *logging.Service) (Generator, error) {
	if cfg.PersistentLogin.Secret == "" {
		logger.Warn("persistent login secret not configured, using a random per-process key")
	}
	return NewKeyedGenerator([]byte(cfg.PersistentLogin.Secret))
}

type ManagerParams struct {
	fx.In
	Store     Store
	Config    *config.Config
	Generator Generator
	Clock     Clock `optional:"true"`
	Logger    *logging.Service
}

func ProvideManager(p ManagerParams) *Manager {
	return NewManager(p.Store, p.Config.PersistentLogin, p.Generator, p.Clock, p.Logger.Named("persistent_login"))
}

func ProvideWorker(manager *Manager, cfg *config.Config, logger *logging.Service) *Worker {
	return NewWorker(manager, cfg.PersistentLogin.CleanupInterval, logger.Named("persistent_login"))
}

func RegisterWorker(lc fx.Lifecycle, worker *Worker) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			worker.Start()
			return nil
		},
		OnStop: worker.Stop,
	})
}

var Module = fx.Module("persistent_login",
	fx.Provide(ProvideStore),
	fx.Provide(ProvideGenerator),
	fx.Provide(ProvideManager),
	fx.Provide(ProvideWorker),
	fx.Invoke(RegisterWorker),
)
