package core

import (
	"embed"

	"github.com/iota-uz/sedar/modules/core/presentation/controllers"
	"github.com/iota-uz/sedar/modules/core/services"
	"github.com/iota-uz/sedar/pkg/application"
	"github.com/iota-uz/sedar/pkg/configuration"
	"github.com/iota-uz/sedar/pkg/kvstore"
	"github.com/iota-uz/sedar/pkg/middleware"
)

//go:embed presentation/locales/*.toml
var LocaleFiles embed.FS

type ModuleOptions struct {
	// Profiles verifies tokens on login, normally the SEDAR API client.
	Profiles services.ProfileFetcher
	// Store keeps auth sessions; it is shared with form sessions.
	Store kvstore.Store
	// HealthChecks are pinged by GET /health.
	HealthChecks map[string]controllers.Pinger
}

func NewModule(opts *ModuleOptions) application.Module {
	if opts == nil {
		opts = &ModuleOptions{}
	}
	return &Module{options: opts}
}

type Module struct {
	options *ModuleOptions
}

func (m *Module) Register(app application.Application) error {
	conf := configuration.Use()
	store := m.options.Store
	if store == nil {
		store = kvstore.NewMemory()
	}
	app.RegisterLocaleFiles(&LocaleFiles)

	authService := services.NewAuthService(m.options.Profiles, store, app.EventPublisher(), conf.Session.AuthTTL)
	app.RegisterServices(authService)
	app.RegisterMiddleware(middleware.Authorize(authService))
	app.RegisterControllers(
		controllers.NewAuthController(app),
		controllers.NewHealthController(m.options.HealthChecks),
	)
	return nil
}

func (m *Module) Name() string {
	return "core"
}
