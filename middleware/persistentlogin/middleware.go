package persistentlogin

import (
	"sync"

	"github.com/labstack/echo/v4"
	"github.com/tech-arch1tect/persistentlogin/services/logging"
	"github.com/tech-arch1tect/persistentlogin/services/persistentlogin"
	"go.uber.org/zap"
)

const (
	TokenKey  = "_persistent_login_token"
	configKey = "_persistent_login_config"
)

// SessionProvider is the web session the middleware logs users into.
type SessionProvider interface {
	HasSession(c echo.Context) bool
	Login(c echo.Context, userID int64) error
}

type Config struct {
	Manager  *persistentlogin.Manager
	Sessions SessionProvider
	Cookies  *CookieHelper
	Logger   *logging.Service
}

// Middleware binds persistent login tokens to requests. It must run inside
// the session middleware so that a login it performs is committed with the
// response.
//
// On the way in, a cookie is parsed and, when there is no session yet,
// validated; a valid token logs its user in. On the way out a valid token is
// rotated and reissued, an invalid one is deleted and its cookie cleared, and
// a token that was never validated is left alone.
func Middleware(cfg Config) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if cfg.Manager == nil || cfg.Cookies == nil || cfg.Sessions == nil {
				return next(c)
			}

			c.Set(configKey, &cfg)

			if value, ok := cfg.Cookies.Value(c); ok {
				c.Set(TokenKey, loadToken(c, &cfg, value))
			}

			var once sync.Once
			respond := func() {
				once.Do(func() { writeToken(c, &cfg) })
			}
			c.Response().Before(respond)

			err := next(c)

			if !c.Response().Committed {
				respond()
			}
			return err
		}
	}
}

func loadToken(c echo.Context, cfg *Config, value string) persistentlogin.Token {
	token, err := persistentlogin.ParseCookieValue(value)
	if err != nil {
		cfg.Logger.Debug("malformed persistent login cookie", zap.Error(err))
		return token.Invalidated()
	}

	if cfg.Sessions.HasSession(c) {
		return token
	}

	token = cfg.Manager.Validate(c.Request().Context(), token)
	if token.Status() != persistentlogin.StatusValid {
		return token
	}

	if err := cfg.Sessions.Login(c, token.UserID()); err != nil {
		cfg.Logger.Error("failed to establish session from persistent login",
			zap.Int64("user_id", token.UserID()),
			zap.Error(err))
		return token.Invalidated()
	}

	cfg.Logger.Debug("session established from persistent login",
		zap.Int64("user_id", token.UserID()))
	return token
}

func writeToken(c echo.Context, cfg *Config) {
	token, ok := c.Get(TokenKey).(persistentlogin.Token)
	if !ok {
		return
	}
	ctx := c.Request().Context()

	switch token.Status() {
	case persistentlogin.StatusValid:
		rotated, err := cfg.Manager.Update(ctx, token)
		if err != nil {
			cfg.Logger.Error("persistent login cookie not issued", zap.Error(err))
			return
		}
		c.Set(TokenKey, rotated)
		cfg.Cookies.Set(c, rotated)
		markPrivate(c.Response().Header())

	case persistentlogin.StatusInvalid:
		if token.Series() != "" {
			if _, err := cfg.Manager.Delete(ctx, token); err != nil {
				cfg.Logger.Error("failed to delete persistent login token", zap.Error(err))
			}
		}
		cfg.Cookies.Clear(c)
		markPrivate(c.Response().Header())
	}
}

// Remember issues a new persistent login for userID, written to the cookie
// when the response goes out. Call it after a successful password login with
// "remember me" selected. Creation failures are logged and no cookie is set.
func Remember(c echo.Context, userID int64) {
	cfg, ok := c.Get(configKey).(*Config)
	if !ok {
		return
	}

	token, err := cfg.Manager.CreateForUser(c.Request().Context(), userID)
	if err != nil {
		cfg.Logger.Error("failed to create persistent login token",
			zap.Int64("user_id", userID),
			zap.Error(err))
		return
	}
	c.Set(TokenKey, token)
}

// Forget invalidates the request's token, if any, so the response deletes it
// and clears the cookie. Call it on logout.
func Forget(c echo.Context) {
	if token, ok := c.Get(TokenKey).(persistentlogin.Token); ok {
		c.Set(TokenKey, token.Invalidated())
	}
}

func GetToken(c echo.Context) (persistentlogin.Token, bool) {
	token, ok := c.Get(TokenKey).(persistentlogin.Token)
	return token, ok
}
