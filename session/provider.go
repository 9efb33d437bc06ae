package session

import (
	"fmt"
	"net/http"

	"github.com/alexedwards/scs/v2"
	"github.com/tech-arch1tect/persistentlogin/config"
	"github.com/tech-arch1tect/persistentlogin/services/logging"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Manager struct {
	*scs.SessionManager
	config config.SessionConfig
}

func (m *Manager) Config() config.SessionConfig {
	return m.config
}

type Options struct {
	Store scs.Store
}

type ManagerParams struct {
	fx.In
	Config  *config.Config
	Options *Options         `optional:"true"`
	DB      *gorm.DB         `optional:"true"`
	Logger  *logging.Service `optional:"true"`
}

func ProvideSessionManager(p ManagerParams) (*Manager, error) {
	return NewManager(p.Config, p.Options, p.DB, p.Logger)
}

// NewManager builds an scs manager from config. A disabled session returns a
// nil manager, which Middleware treats as a pass-through.
func NewManager(cfg *config.Config, opts *Options, db *gorm.DB, logger *logging.Service) (*Manager, error) {
	if !cfg.Session.Enabled {
		logger.Info("sessions disabled")
		return nil, nil
	}

	sessionManager := scs.New()

	var store scs.Store
	var err error

	if opts != nil && opts.Store != nil {
		store = opts.Store
	} else {
		switch cfg.Session.Store {
		case "memory":
			store = NewMemoryStore()
		case "database":
			if db == nil {
				return nil, fmt.Errorf("database store requires database to be enabled")
			}
			store, err = NewDatabaseStore(db)
			if err != nil {
				return nil, fmt.Errorf("failed to create database session store: %w", err)
			}
		default:
			return nil, fmt.Errorf("unsupported session store: %s", cfg.Session.Store)
		}
	}

	sessionManager.Store = store
	sessionManager.Lifetime = cfg.Session.MaxAge
	sessionManager.IdleTimeout = cfg.Session.MaxAge
	sessionManager.Cookie.Name = cfg.Session.Name
	sessionManager.Cookie.Path = cfg.Session.Path
	sessionManager.Cookie.Domain = cfg.Session.Domain
	sessionManager.Cookie.Secure = cfg.Session.Secure
	sessionManager.Cookie.HttpOnly = cfg.Session.HttpOnly
	sessionManager.Cookie.SameSite = ParseSameSite(cfg.Session.SameSite)

	logger.Info("session manager initialized",
		zap.String("store", cfg.Session.Store),
		zap.String("cookie_name", cfg.Session.Name),
		zap.Duration("max_age", cfg.Session.MaxAge))

	return &Manager{
		SessionManager: sessionManager,
		config:         cfg.Session,
	}, nil
}

func ParseSameSite(setting string) http.SameSite {
	switch setting {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

var Module = fx.Module("session",
	fx.Provide(ProvideSessionManager),
	fx.Provide(NewProvider),
)
