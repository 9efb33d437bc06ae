package app

import (
	"fmt"

	"github.com/tech-arch1tect/persistentlogin/config"
	"github.com/tech-arch1tect/persistentlogin/database"
	plmiddleware "github.com/tech-arch1tect/persistentlogin/middleware/persistentlogin"
	"github.com/tech-arch1tect/persistentlogin/server"
	"github.com/tech-arch1tect/persistentlogin/services/logging"
	"github.com/tech-arch1tect/persistentlogin/services/persistentlogin"
	"github.com/tech-arch1tect/persistentlogin/session"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

type AppBuilder struct {
	config      *config.Config
	services    map[string]bool
	models      []any
	sessionOpts *session.Options
	fxOptions   []fx.Option
	errors      []error
}

func NewApp() *AppBuilder {
	return &AppBuilder{
		services:  make(map[string]bool),
		models:    make([]any, 0),
		fxOptions: make([]fx.Option, 0),
		errors:    make([]error, 0),
	}
}

func (b *AppBuilder) WithConfig(cfg *config.Config) *AppBuilder {
	if cfg == nil {
		b.addError("config cannot be nil")
		return b
	}
	b.config = cfg
	return b
}

func (b *AppBuilder) WithAutoConfig() *AppBuilder {
	cfg := &config.Config{}
	if err := config.LoadConfig(cfg); err != nil {
		b.addError(fmt.Sprintf("failed to load config: %v", err))
		return b
	}
	b.config = cfg
	return b
}

func (b *AppBuilder) WithConfigFile(path string) *AppBuilder {
	cfg := &config.Config{}
	if err := config.LoadFile(cfg, path); err != nil {
		b.addError(fmt.Sprintf("failed to load config file: %v", err))
		return b
	}
	b.config = cfg
	return b
}

func (b *AppBuilder) WithDatabase(models ...any) *AppBuilder {
	b.services["database"] = true
	b.models = append(b.models, models...)
	return b
}

func (b *AppBuilder) WithRedis() *AppBuilder {
	b.services["redis"] = true
	return b
}

func (b *AppBuilder) WithSessions(opts ...*session.Options) *AppBuilder {
	b.services["sessions"] = true
	if len(opts) > 0 {
		b.sessionOpts = opts[0]
	}
	return b
}

// WithPersistentLogin enables "remember me" tokens. Sessions are enabled as
// well, and the token store backend is added according to config.
func (b *AppBuilder) WithPersistentLogin() *AppBuilder {
	b.services["persistent_login"] = true
	b.services["sessions"] = true
	return b
}

func (b *AppBuilder) WithFxOptions(opts ...fx.Option) *AppBuilder {
	b.fxOptions = append(b.fxOptions, opts...)
	return b
}

func (b *AppBuilder) Build() (*App, error) {
	if b.config == nil {
		b.WithAutoConfig()
	}

	if err := b.validate(); err != nil {
		return nil, err
	}

	app := &App{
		config: b.config,
	}

	options := b.buildFxOptions()
	options = append(options, fx.Invoke(func(p populateParams) {
		app.logger = p.Logger
		app.server = p.Server
		app.db = p.DB
		app.persistentLogin = p.Manager
	}))

	fxApp := fx.New(options...)
	if err := fxApp.Err(); err != nil {
		return nil, fmt.Errorf("failed to build application: %w", err)
	}
	app.fx = fxApp

	return app, nil
}

type populateParams struct {
	fx.In
	Logger  *logging.Service
	Server  *server.Server
	DB      *gorm.DB                 `optional:"true"`
	Manager *persistentlogin.Manager `optional:"true"`
}

func (b *AppBuilder) addError(msg string) {
	b.errors = append(b.errors, fmt.Errorf("%s", msg))
}

func (b *AppBuilder) validate() error {
	if len(b.errors) > 0 {
		return fmt.Errorf("configuration errors: %v", b.errors)
	}

	if b.services["persistent_login"] && !b.config.PersistentLogin.Enabled {
		delete(b.services, "persistent_login")
	}

	if b.services["persistent_login"] {
		if err := b.config.PersistentLogin.Validate(); err != nil {
			return fmt.Errorf("invalid persistent login config: %w", err)
		}
		if !b.config.Session.Enabled {
			return fmt.Errorf("persistent login requires sessions to be enabled")
		}
		switch b.config.PersistentLogin.Store {
		case "redis":
			b.services["redis"] = true
		default:
			b.services["database"] = true
			b.models = append(b.models, &persistentlogin.Record{})
		}
	}

	if b.services["sessions"] && b.config.Session.Store == "database" {
		b.services["database"] = true
	}

	return nil
}

func (b *AppBuilder) buildFxOptions() []fx.Option {
	options := []fx.Option{
		config.NewProvider(b.config),
		fx.NopLogger,
		logging.Module,
		server.NewProvider(),
	}

	if b.services["database"] {
		options = append(options,
			fx.Supply(database.WithModels(b.models...)),
			database.Module,
		)
	}
	if b.services["redis"] {
		options = append(options, database.RedisModule)
	}
	if b.services["sessions"] {
		options = append(options,
			fx.Supply(b.sessionOptions()),
			session.Module,
		)
	}
	if b.services["persistent_login"] {
		options = append(options,
			persistentlogin.Module,
			plmiddleware.Module,
		)
	}

	options = append(options, b.fxOptions...)
	options = append(options, b.buildMiddlewareHooks()...)

	return options
}

func (b *AppBuilder) sessionOptions() *session.Options {
	if b.sessionOpts != nil {
		return b.sessionOpts
	}
	return &session.Options{}
}

// buildMiddlewareHooks registers middleware outermost first: the session
// must be loaded before persistent login can check or establish it.
func (b *AppBuilder) buildMiddlewareHooks() []fx.Option {
	var hooks []fx.Option

	if b.services["sessions"] {
		hooks = append(hooks, fx.Invoke(func(srv *server.Server, sessionMgr *session.Manager) {
			if sessionMgr != nil {
				srv.Use(session.Middleware(sessionMgr))
			}
		}))
	}

	if b.services["persistent_login"] {
		hooks = append(hooks, fx.Invoke(func(srv *server.Server, policy *plmiddleware.CachePolicy, cfg plmiddleware.Config) {
			srv.Use(plmiddleware.NoCacheMiddleware(policy))
			srv.Use(plmiddleware.Middleware(cfg))
		}))
	}

	return hooks
}
