package hrm

import (
	"embed"
	"time"

	"github.com/iota-uz/sedar/modules/hrm/forms"
	"github.com/iota-uz/sedar/modules/hrm/infrastructure/persistence"
	"github.com/iota-uz/sedar/modules/hrm/presentation/controllers"
	"github.com/iota-uz/sedar/modules/hrm/services"
	"github.com/iota-uz/sedar/pkg/application"
	"github.com/iota-uz/sedar/pkg/configuration"
	"github.com/iota-uz/sedar/pkg/formstate"
	"github.com/iota-uz/sedar/pkg/kvstore"
)

//go:embed presentation/locales/*.toml
var LocaleFiles embed.FS

type ModuleOptions struct {
	// Backend reads records and lookup lists and accepts submissions.
	Backend services.Backend
	// Store keeps form sessions. Defaults to an in-memory store.
	Store kvstore.Store
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
	registry, err := forms.NewRegistry(conf.Logger())
	if err != nil {
		return err
	}
	store := m.options.Store
	if store == nil {
		store = kvstore.NewMemory()
	}
	repo := persistence.NewFormSessionRepository(store, func(kind string) (*formstate.Schema, error) {
		form, err := registry.Get(forms.Kind(kind))
		if err != nil {
			return nil, err
		}
		return form.Schema, nil
	}, conf.Session.TTL)
	lookupTTL := conf.Lookup.CacheTTL
	if lookupTTL <= 0 {
		lookupTTL = 5 * time.Minute
	}
	lookups := services.NewLookupService(m.options.Backend, app.EventPublisher(), lookupTTL)

	app.RegisterLocaleFiles(&LocaleFiles)
	app.RegisterServices(
		lookups,
		services.NewFormService(repo, registry, m.options.Backend, lookups, app.EventPublisher()),
	)
	app.RegisterControllers(
		controllers.NewFormSessionController(app),
	)
	return nil
}

func (m *Module) Name() string {
	return "hrm"
}
