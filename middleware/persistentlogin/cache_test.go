package persistentlogin

import (
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/tech-arch1tect/persistentlogin/config"
	"github.com/tech-arch1tect/persistentlogin/testutils"
)

func newPolicy(hasSession bool) (*CachePolicy, *testutils.MockSessionProvider) {
	sessions := &testutils.MockSessionProvider{}
	sessions.On("HasSession", mock.Anything).Return(hasSession)
	return &CachePolicy{
		Sessions: sessions,
		Cookies:  NewCookieHelper(config.PersistentLoginConfig{CookiePrefix: "PL"}, config.SessionConfig{Name: "SESSbrx"}),
	}, sessions
}

func TestCachePolicy_Deny(t *testing.T) {
	t.Run("cookie without session", func(t *testing.T) {
		policy, _ := newPolicy(false)
		c, _ := newContext("http://example.com/")
		c.Request().AddCookie(&http.Cookie{Name: "PLbrx", Value: "a:b"})

		assert.True(t, policy.Deny(c))
	})

	t.Run("cookie with session", func(t *testing.T) {
		policy, _ := newPolicy(true)
		c, _ := newContext("http://example.com/")
		c.Request().AddCookie(&http.Cookie{Name: "PLbrx", Value: "a:b"})

		assert.False(t, policy.Deny(c))
	})

	t.Run("no cookie", func(t *testing.T) {
		policy, sessions := newPolicy(false)
		c, _ := newContext("http://example.com/")

		assert.False(t, policy.Deny(c))
		sessions.AssertNotCalled(t, "HasSession", mock.Anything)
	})
}

func TestNoCacheMiddleware(t *testing.T) {
	policy, _ := newPolicy(false)
	handler := NoCacheMiddleware(policy)(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	c, rec := newContext("http://example.com/")
	c.Request().AddCookie(&http.Cookie{Name: "PLbrx", Value: "a:b"})
	assert.NoError(t, handler(c))
	assert.Equal(t, "no-store, private", rec.Header().Get("Cache-Control"))

	c, rec = newContext("http://example.com/")
	assert.NoError(t, handler(c))
	assert.Empty(t, rec.Header().Get("Cache-Control"))
}

func TestMarkPrivate(t *testing.T) {
	tests := []struct {
		existing string
		expected string
	}{
		{"", "private"},
		{"public, max-age=60", "max-age=60, private"},
		{"no-store, private", "no-store, private"},
		{"Public", "private"},
	}

	for _, tt := range tests {
		h := http.Header{}
		if tt.existing != "" {
			h.Set("Cache-Control", tt.existing)
		}

		markPrivate(h)

		assert.Equal(t, tt.expected, h.Get("Cache-Control"), "existing %q", tt.existing)
	}
}
