package modules

import (
	"github.com/iota-uz/sedar/modules/core"
	"github.com/iota-uz/sedar/modules/core/presentation/controllers"
	"github.com/iota-uz/sedar/modules/hrm"
	"github.com/iota-uz/sedar/pkg/application"
	"github.com/iota-uz/sedar/pkg/kvstore"
	"github.com/iota-uz/sedar/pkg/sedarapi"
)

type BuiltInOptions struct {
	Backend      *sedarapi.Client
	Store        kvstore.Store
	HealthChecks map[string]controllers.Pinger
}

// BuiltIn returns the modules the server ships with. Both share one session store.
func BuiltIn(opts BuiltInOptions) []application.Module {
	return []application.Module{
		core.NewModule(&core.ModuleOptions{
			Profiles:     opts.Backend,
			Store:        opts.Store,
			HealthChecks: opts.HealthChecks,
		}),
		hrm.NewModule(&hrm.ModuleOptions{
			Backend: opts.Backend,
			Store:   opts.Store,
		}),
	}
}

func Load(app application.Application, externalModules ...application.Module) error {
	for _, module := range externalModules {
		if err := module.Register(app); err != nil {
			return err
		}
	}
	return nil
}
