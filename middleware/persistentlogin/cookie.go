package persistentlogin

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/tech-arch1tect/persistentlogin/config"
	"github.com/tech-arch1tect/persistentlogin/services/persistentlogin"
)

// CookieHelper names, reads and writes the persistent login cookie. The name
// follows the session cookie so the two stay paired: the session name minus
// its leading "SESS" (or "SSESS"), behind the configured prefix, with an "S"
// in front on HTTPS requests.
type CookieHelper struct {
	prefix      string
	sessionName string
	domain      string
	secure      bool
	httpOnly    bool
	sameSite    http.SameSite
}

func NewCookieHelper(plCfg config.PersistentLoginConfig, sessionCfg config.SessionConfig) *CookieHelper {
	return &CookieHelper{
		prefix:      plCfg.CookiePrefix,
		sessionName: sessionCfg.Name,
		domain:      sessionCfg.Domain,
		secure:      sessionCfg.Secure,
		httpOnly:    sessionCfg.HttpOnly,
		sameSite:    mapSameSite(sessionCfg.SameSite),
	}
}

func (h *CookieHelper) Name(c echo.Context) string {
	name := h.prefix + trimSessionPrefix(h.sessionName)
	if isSecure(c) {
		name = "S" + name
	}
	return name
}

func (h *CookieHelper) HasCookie(c echo.Context) bool {
	_, ok := h.Value(c)
	return ok
}

func (h *CookieHelper) Value(c echo.Context) (string, bool) {
	cookie, err := c.Cookie(h.Name(c))
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return cookie.Value, true
}

func (h *CookieHelper) Set(c echo.Context, token persistentlogin.Token) {
	c.SetCookie(&http.Cookie{
		Name:     h.Name(c),
		Value:    token.CookieValue(),
		Path:     "/",
		Domain:   h.domain,
		Expires:  token.Expires(),
		Secure:   h.secure || isSecure(c),
		HttpOnly: h.httpOnly,
		SameSite: h.sameSite,
	})
}

func (h *CookieHelper) Clear(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     h.Name(c),
		Value:    "",
		Path:     "/",
		Domain:   h.domain,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		Secure:   h.secure || isSecure(c),
		HttpOnly: h.httpOnly,
		SameSite: h.sameSite,
	})
}

func trimSessionPrefix(name string) string {
	if strings.HasPrefix(name, "SSESS") {
		return name[len("SSESS"):]
	}
	return strings.TrimPrefix(name, "SESS")
}

func isSecure(c echo.Context) bool {
	return c.Scheme() == "https"
}

func mapSameSite(setting string) http.SameSite {
	switch setting {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}
