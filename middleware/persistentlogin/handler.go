package persistentlogin

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/tech-arch1tect/persistentlogin/services/persistentlogin"
	"github.com/tech-arch1tect/persistentlogin/session"
)

// TokenSummary describes one remembered login without exposing its values.
// Expires is nil for tokens that never expire.
type TokenSummary struct {
	Created  time.Time  `json:"created"`
	LastUsed time.Time  `json:"last_used"`
	Expires  *time.Time `json:"expires"`
}

// TokensHandler lists the signed-in user's persistent logins, oldest first.
func TokensHandler(manager *persistentlogin.Manager) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !session.HasSession(c) {
			return echo.NewHTTPError(http.StatusUnauthorized, "Authentication required")
		}

		tokens := manager.TokensForUser(c.Request().Context(), session.GetUserID(c))

		summaries := make([]TokenSummary, 0, len(tokens))
		for _, token := range tokens {
			summary := TokenSummary{
				Created:  token.Created(),
				LastUsed: token.Refreshed(),
			}
			if !token.Expires().Equal(persistentlogin.MaxExpiry) {
				expires := token.Expires()
				summary.Expires = &expires
			}
			summaries = append(summaries, summary)
		}

		return c.JSON(http.StatusOK, map[string]any{
			"tokens": summaries,
		})
	}
}
