package session

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

const (
	UserIDKey        = "_user_id"
	AuthenticatedKey = "_authenticated"
)

var ErrNoSession = errors.New("session middleware not installed")

// Login authenticates the current session as userID. The session token is
// renewed first so a pre-login token cannot be reused.
func Login(c echo.Context, userID int64) error {
	manager := GetManager(c)
	if manager == nil {
		return ErrNoSession
	}
	ctx := c.Request().Context()
	if err := manager.RenewToken(ctx); err != nil {
		return err
	}
	manager.Put(ctx, UserIDKey, userID)
	manager.Put(ctx, AuthenticatedKey, true)
	return nil
}

func Logout(c echo.Context) error {
	manager := GetManager(c)
	if manager == nil {
		return ErrNoSession
	}
	return manager.Destroy(c.Request().Context())
}

func GetUserID(c echo.Context) int64 {
	manager := GetManager(c)
	if manager == nil {
		return 0
	}
	return manager.GetInt64(c.Request().Context(), UserIDKey)
}

func IsAuthenticated(c echo.Context) bool {
	manager := GetManager(c)
	if manager == nil {
		return false
	}
	return manager.GetBool(c.Request().Context(), AuthenticatedKey)
}

// HasSession reports whether the request carries a live, authenticated
// session.
func HasSession(c echo.Context) bool {
	return IsAuthenticated(c) && GetUserID(c) > 0
}

func RequireAuth() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !IsAuthenticated(c) {
				return echo.NewHTTPError(http.StatusUnauthorized, "Authentication required")
			}
			return next(c)
		}
	}
}

// Provider exposes the session helpers through the persistent login
// middleware's SessionProvider interface.
type Provider struct{}

func NewProvider() *Provider {
	return &Provider{}
}

func (p *Provider) HasSession(c echo.Context) bool {
	return HasSession(c)
}

func (p *Provider) Login(c echo.Context, userID int64) error {
	return Login(c, userID)
}
