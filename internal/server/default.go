package server

import (
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/ulule/limiter/v3"

	"github.com/iota-uz/sedar/modules"
	"github.com/iota-uz/sedar/modules/core/presentation/controllers"
	"github.com/iota-uz/sedar/pkg/application"
	"github.com/iota-uz/sedar/pkg/configuration"
	"github.com/iota-uz/sedar/pkg/constants"
	"github.com/iota-uz/sedar/pkg/middleware"
	"github.com/iota-uz/sedar/pkg/server"
)

type DefaultOptions struct {
	Logger        *logrus.Logger
	Configuration *configuration.Configuration
	Application   application.Application
	Entrypoint    string
	// Modules are loaded after the shared middleware so their own
	// middleware sees the request logger and params.
	Modules []application.Module
}

func Default(options *DefaultOptions) (*server.HTTPServer, error) {
	app := options.Application
	conf := options.Configuration

	middlewares := []mux.MiddlewareFunc{
		// creates the root span for each request
		middleware.WithLogger(options.Logger, middleware.DefaultLoggerOptions()),
		middleware.Provide(constants.AppKey, app),

		middleware.TracedMiddleware("cors"),
		middleware.Cors(conf.CorsOrigins()...),
	}

	if conf.RateLimit.Enabled {
		var store limiter.Store
		var err error
		switch conf.RateLimit.Storage {
		case "redis":
			store, err = middleware.NewRedisStore(conf.RateLimit.RedisURL)
			if err != nil {
				options.Logger.WithError(err).Warn("Failed to create Redis store for rate limiting, falling back to memory")
				store = middleware.NewMemoryStore()
			}
		default:
			store = middleware.NewMemoryStore()
		}
		middlewares = append(middlewares,
			middleware.TracedMiddleware("rateLimit"),
			middleware.RateLimit(middleware.RateLimitConfig{
				RequestsPerPeriod: conf.RateLimit.GlobalRPS,
				Store:             store,
			}),
		)
	}

	middlewares = append(middlewares,
		middleware.TracedMiddleware("requestParams"),
		middleware.RequestParams(),
	)

	app.RegisterMiddleware(middlewares...)
	if err := modules.Load(app, options.Modules...); err != nil {
		return nil, err
	}

	options.Logger.WithField("entrypoint", options.Entrypoint).Debug("server assembled")
	return server.NewHTTPServer(
		app,
		controllers.NotFound(app),
		controllers.MethodNotAllowed(),
	), nil
}
