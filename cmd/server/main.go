package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/iota-uz/sedar/internal/server"
	"github.com/iota-uz/sedar/modules"
	"github.com/iota-uz/sedar/modules/core/presentation/controllers"
	"github.com/iota-uz/sedar/pkg/application"
	"github.com/iota-uz/sedar/pkg/configuration"
	"github.com/iota-uz/sedar/pkg/eventbus"
	"github.com/iota-uz/sedar/pkg/kvstore"
	"github.com/iota-uz/sedar/pkg/logging"
	"github.com/iota-uz/sedar/pkg/metrics"
	"github.com/iota-uz/sedar/pkg/sedarapi"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			configuration.Use().Unload()
			log.Println(r)
			debug.PrintStack()
			os.Exit(1)
		}
	}()

	conf := configuration.Use()
	logger := conf.Logger()

	if conf.OpenTelemetry.Enabled {
		tracingCleanup := logging.SetupTracing(
			context.Background(),
			conf.OpenTelemetry.ServiceName,
			conf.OpenTelemetry.TempoURL,
		)
		defer tracingCleanup()
		logger.Info("OpenTelemetry tracing enabled, exporting to Tempo at " + conf.OpenTelemetry.TempoURL)
	}

	backend, err := sedarapi.New(sedarapi.Options{
		BaseURL:         conf.Backend.URL,
		Timeout:         conf.Backend.Timeout,
		Token:           conf.Backend.Token,
		RequestIDHeader: conf.RequestIDHeader,
		Logger:          logger,
	})
	if err != nil {
		log.Fatalf("failed to create backend client: %v", err)
	}

	checks := map[string]controllers.Pinger{}
	var store kvstore.Store = kvstore.NewMemory()
	if conf.Session.Storage == "redis" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		client, err := kvstore.Connect(ctx, conf.RedisURL)
		cancel()
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer client.Close()
		redisStore := kvstore.NewRedis(client, "sedar:")
		store = redisStore
		checks["redis"] = redisStore
	}

	app := application.New(&application.ApplicationOptions{
		Bundle:   application.LoadBundle(),
		EventBus: eventbus.NewEventPublisher(logger),
		Logger:   logger,
	})
	if conf.Prometheus.Enabled {
		app.RegisterControllers(metrics.NewPrometheusController(conf.Prometheus.Path))
	}
	serverInstance, err := server.Default(&server.DefaultOptions{
		Logger:        logger,
		Configuration: conf,
		Application:   app,
		Entrypoint:    "server",
		Modules: modules.BuiltIn(modules.BuiltInOptions{
			Backend:      backend,
			Store:        store,
			HealthChecks: checks,
		}),
	})
	if err != nil {
		log.Fatalf("failed to create server: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	log.Printf("Listening on: %s\n", conf.Origin)
	if err := serverInstance.Start(ctx, conf.SocketAddress); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}
}
