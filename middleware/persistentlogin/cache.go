package persistentlogin

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

const headerCacheControl = "Cache-Control"

// CachePolicy denies caching for a request that carries a persistent login
// cookie but no session yet: it is about to be logged in, so a cached
// anonymous page must not be served to it or stored from it.
type CachePolicy struct {
	Sessions SessionProvider
	Cookies  *CookieHelper
}

func (p *CachePolicy) Deny(c echo.Context) bool {
	if p.Cookies == nil || !p.Cookies.HasCookie(c) {
		return false
	}
	return p.Sessions == nil || !p.Sessions.HasSession(c)
}

func NoCacheMiddleware(policy *CachePolicy) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if policy.Deny(c) {
				c.Response().Header().Set(headerCacheControl, "no-store, private")
			}
			return next(c)
		}
	}
}

// markPrivate drops any public directive and adds private, keeping the rest
// (e.g. no-store) intact.
func markPrivate(h http.Header) {
	var directives []string
	for _, d := range strings.Split(h.Get(headerCacheControl), ",") {
		d = strings.TrimSpace(d)
		if d == "" || strings.EqualFold(d, "public") || strings.EqualFold(d, "private") {
			continue
		}
		directives = append(directives, d)
	}
	h.Set(headerCacheControl, strings.Join(append(directives, "private"), ", "))
}
