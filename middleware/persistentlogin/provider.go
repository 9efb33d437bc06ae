package persistentlogin

import (
	"github.com/tech-arch1tect/persistentlogin/config"
	"github.com/tech-arch1tect/persistentlogin/services/logging"
	"github.com/tech-arch1tect/persistentlogin/services/persistentlogin"
	"github.com/tech-arch1tect/persistentlogin/session"
	"go.uber.org/fx"
)

func ProvideCookieHelper(cfg *config.Config) *CookieHelper {
	return NewCookieHelper(cfg.PersistentLogin, cfg.Session)
}

func ProvideSessionProvider(provider *session.Provider) SessionProvider {
	return provider
}

func ProvideCachePolicy(sessions SessionProvider, cookies *CookieHelper) *CachePolicy {
	return &CachePolicy{Sessions: sessions, Cookies: cookies}
}

func ProvideConfig(manager *persistentlogin.Manager, sessions SessionProvider, cookies *CookieHelper, logger *logging.Service) Config {
	return Config{
		Manager:  manager,
		Sessions: sessions,
		Cookies:  cookies,
		Logger:   logger.Named("persistent_login"),
	}
}

var Module = fx.Module("persistent_login_middleware",
	fx.Provide(ProvideCookieHelper),
	fx.Provide(ProvideSessionProvider),
	fx.Provide(ProvideCachePolicy),
	fx.Provide(ProvideConfig),
)
