package testutils

import (
	"time"

	"github.com/tech-arch1tect/persistentlogin/config"
)

func GetTestConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Host: "localhost",
			Port: "8080",
		},
		Log: config.LogConfig{
			Level:  "error",
			Format: "json",
			Output: "stdout",
		},
		Database: config.DatabaseConfig{
			Driver:      "sqlite",
			DSN:         ":memory:",
			AutoMigrate: true,
		},
		Session: config.SessionConfig{
			Enabled:  true,
			Store:    "memory",
			Name:     "SESStest",
			MaxAge:   time.Hour,
			Path:     "/",
			HttpOnly: true,
			SameSite: "lax",
		},
		PersistentLogin: config.PersistentLoginConfig{
			Enabled:         true,
			Lifetime:        30,
			MaxTokens:       0,
			CookiePrefix:    "PL",
			Secret:          "test-secret-key-32-chars-long!!",
			Store:           "database",
			CleanupInterval: 0,
		},
	}
}

// TestNow is a fixed, second-aligned instant used as the default clock time.
var TestNow = time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
