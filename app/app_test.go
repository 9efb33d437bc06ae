package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tech-arch1tect/persistentlogin/config"
	plmiddleware "github.com/tech-arch1tect/persistentlogin/middleware/persistentlogin"
	"github.com/tech-arch1tect/persistentlogin/session"
	"github.com/tech-arch1tect/persistentlogin/testutils"
)

func createTestConfig() *config.Config {
	cfg := testutils.GetTestConfig()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = "0"
	return cfg
}

func registerRoutes(a *App) {
	a.Post("/login", func(c echo.Context) error {
		if err := session.Login(c, 42); err != nil {
			return err
		}
		plmiddleware.Remember(c, 42)
		return c.NoContent(http.StatusNoContent)
	})
	a.Get("/me", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]int64{"user_id": session.GetUserID(c)})
	})
}

func findCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == name {
			return cookie
		}
	}
	return nil
}

func serve(a *App, method, target string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	a.Server().ServeHTTP(rec, req)
	return rec
}

func assertRememberFlow(t *testing.T, a *App) {
	t.Helper()

	rec := serve(a, http.MethodPost, "/login")
	require.Equal(t, http.StatusNoContent, rec.Code)
	remembered := findCookie(rec, "PLtest")
	require.NotNil(t, remembered)

	rec = serve(a, http.MethodGet, "/me", remembered)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"user_id":42}`, rec.Body.String())

	rotated := findCookie(rec, "PLtest")
	require.NotNil(t, rotated)
	assert.NotEqual(t, remembered.Value, rotated.Value)

	tokens := a.PersistentLogin().TokensForUser(context.Background(), 42)
	require.Len(t, tokens, 1)
	assert.Equal(t, rotated.Value, tokens[0].CookieValue())
}

func TestBuild_PersistentLoginDatabase(t *testing.T) {
	a, err := NewApp().
		WithConfig(createTestConfig()).
		WithPersistentLogin().
		Build()
	require.NoError(t, err)

	require.NotNil(t, a.Server())
	require.NotNil(t, a.Database())
	require.NotNil(t, a.PersistentLogin())
	require.NotNil(t, a.Logger())
	assert.True(t, a.Database().Migrator().HasTable("persistent_login"))

	registerRoutes(a)
	assertRememberFlow(t, a)
}

func TestBuild_PersistentLoginRedis(t *testing.T) {
	mr, _ := testutils.SetupTestRedis(t)
	cfg := createTestConfig()
	cfg.PersistentLogin.Store = "redis"
	cfg.Redis.Addr = mr.Addr()

	a, err := NewApp().
		WithConfig(cfg).
		WithPersistentLogin().
		Build()
	require.NoError(t, err)

	assert.Nil(t, a.Database())
	require.NotNil(t, a.PersistentLogin())

	registerRoutes(a)
	assertRememberFlow(t, a)
	assert.NotEmpty(t, mr.Keys())
}

func TestBuild_PersistentLoginDisabled(t *testing.T) {
	cfg := createTestConfig()
	cfg.PersistentLogin.Enabled = false

	a, err := NewApp().WithConfig(cfg).WithPersistentLogin().Build()

	require.NoError(t, err)
	assert.Nil(t, a.PersistentLogin())

	a.Get("/", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "PLtest", Value: "a:b"})
	rec := httptest.NewRecorder()
	a.Server().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, findCookie(rec, "PLtest"))
}

func TestBuild_Errors(t *testing.T) {
	t.Run("nil config", func(t *testing.T) {
		_, err := NewApp().WithConfig(nil).Build()

		assert.ErrorContains(t, err, "config cannot be nil")
	})

	t.Run("persistent login without sessions", func(t *testing.T) {
		cfg := createTestConfig()
		cfg.Session.Enabled = false

		_, err := NewApp().WithConfig(cfg).WithPersistentLogin().Build()

		assert.EqualError(t, err, "persistent login requires sessions to be enabled")
	})

	t.Run("negative lifetime is rejected", func(t *testing.T) {
		cfg := createTestConfig()
		cfg.PersistentLogin.Lifetime = -1

		_, err := NewApp().WithConfig(cfg).WithPersistentLogin().Build()

		assert.ErrorIs(t, err, config.ErrNegativeLifetime)
		assert.ErrorContains(t, err, "invalid persistent login config")
	})

	t.Run("unsupported token store is rejected", func(t *testing.T) {
		cfg := createTestConfig()
		cfg.PersistentLogin.Store = "memcached"

		_, err := NewApp().WithConfig(cfg).WithPersistentLogin().Build()

		assert.ErrorContains(t, err, "unsupported persistent login store: memcached")
	})

	t.Run("missing config file", func(t *testing.T) {
		_, err := NewApp().WithConfigFile("does-not-exist.yaml").Build()

		assert.ErrorContains(t, err, "failed to load config file")
	})

	t.Run("unreachable redis", func(t *testing.T) {
		cfg := createTestConfig()
		cfg.PersistentLogin.Store = "redis"
		cfg.Redis.Addr = "127.0.0.1:1"

		_, err := NewApp().WithConfig(cfg).WithPersistentLogin().Build()

		assert.ErrorContains(t, err, "failed to connect to redis")
	})
}

func TestBuilder_Options(t *testing.T) {
	builder := NewApp()
	opts := &session.Options{Store: session.NewMemoryStore()}

	builder.WithDatabase(&struct{ ID uint }{}).WithSessions(opts).WithRedis()

	assert.True(t, builder.services["database"])
	assert.True(t, builder.services["sessions"])
	assert.True(t, builder.services["redis"])
	assert.Len(t, builder.models, 1)
	assert.Same(t, opts, builder.sessionOptions())
	assert.NotNil(t, NewApp().sessionOptions())
}

func TestApp_StartStop(t *testing.T) {
	a, err := NewApp().
		WithConfig(createTestConfig()).
		WithPersistentLogin().
		Build()
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, a.Start(ctx))
	assert.Eventually(t, func() bool {
		return a.Server().ListenerAddr() != nil
	}, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, a.Stop(ctx))
}
