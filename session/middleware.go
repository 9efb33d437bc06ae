package session

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
)

type contextKey string

const (
	sessionManagerKey                   = "session_manager"
	sessionManagerContextKey contextKey = "session_manager"
)

// Middleware loads the session before the handler and commits it when the
// response header is written.
func Middleware(manager *Manager) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if manager == nil {
				return next(c)
			}

			c.Set(sessionManagerKey, manager)

			var handlerErr error

			original := c.Response().Writer
			rw := &responseWriterWrapper{
				ResponseWriter: original,
				echo:           c.Response(),
			}

			handler := manager.SessionManager.LoadAndSave(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				ctx := context.WithValue(r.Context(), sessionManagerContextKey, manager)
				c.SetRequest(r.WithContext(ctx))
				c.Response().Writer = w
				handlerErr = next(c)
			}))

			handler.ServeHTTP(rw, c.Request())
			c.Response().Writer = original
			return handlerErr
		}
	}
}

// responseWriterWrapper keeps echo's recorded status in sync when scs writes
// the header directly.
type responseWriterWrapper struct {
	http.ResponseWriter
	echo *echo.Response
}

func (w *responseWriterWrapper) WriteHeader(statusCode int) {
	if w.echo.Status == 0 {
		w.echo.Status = statusCode
	}
	w.ResponseWriter.WriteHeader(statusCode)
}

func GetManager(c echo.Context) *Manager {
	if manager, ok := c.Get(sessionManagerKey).(*Manager); ok {
		return manager
	}
	return nil
}

func GetManagerFromContext(ctx context.Context) *Manager {
	if manager, ok := ctx.Value(sessionManagerContextKey).(*Manager); ok {
		return manager
	}
	return nil
}
