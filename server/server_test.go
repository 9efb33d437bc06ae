package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/tech-arch1tect/persistentlogin/config"
	"github.com/tech-arch1tect/persistentlogin/services/logging"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Host: "127.0.0.1",
			Port: "0",
		},
	}
}

func TestNew(t *testing.T) {
	t.Run("with logger", func(t *testing.T) {
		loggerService := logging.NewNop()
		server := New(testConfig(), loggerService)

		if server.logger != loggerService {
			t.Error("expected logger to be set")
		}
		if server.echo == nil {
			t.Fatal("expected echo instance to be created")
		}
		if !server.echo.HideBanner {
			t.Error("expected banner to be hidden")
		}
	})

	t.Run("without logger", func(t *testing.T) {
		server := New(testConfig(), nil)

		if server.logger != nil {
			t.Error("expected logger to be nil")
		}
		if server.Addr() != "127.0.0.1:0" {
			t.Errorf("unexpected addr %q", server.Addr())
		}
	})
}

func TestServer_HTTPMethods(t *testing.T) {
	server := New(testConfig(), nil)

	handler := func(c echo.Context) error {
		return c.String(http.StatusOK, "test")
	}

	server.Get("/get", handler)
	server.Post("/post", handler)
	server.Put("/put", handler)
	server.Delete("/delete", handler)
	server.Patch("/patch", handler)
	server.Group("/api").GET("/grouped", handler)

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/get"},
		{http.MethodPost, "/post"},
		{http.MethodPut, "/put"},
		{http.MethodDelete, "/delete"},
		{http.MethodPatch, "/patch"},
		{http.MethodGet, "/api/grouped"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			rec := httptest.NewRecorder()
			server.Echo().ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
			}
		})
	}
}

func TestServer_Use(t *testing.T) {
	server := New(testConfig(), nil)
	server.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Response().Header().Set("X-Test", "yes")
			return next(c)
		}
	})
	server.Get("/", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	server.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Header().Get("X-Test") != "yes" {
		t.Error("expected middleware to run")
	}
}

func TestServer_StartShutdown(t *testing.T) {
	server := New(testConfig(), nil)

	done := make(chan error, 1)
	go func() {
		done <- server.Start()
	}()

	deadline := time.Now().Add(2 * time.Second)
	for server.Echo().ListenerAddr() == nil && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown failed: %v", err)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected clean stop, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop")
	}
}
