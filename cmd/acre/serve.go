package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectoinject/ectocontainer"
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/Ramsey-B/acre/config"
	auditrepo "github.com/Ramsey-B/acre/internal/repositories/audit"
	eventrepo "github.com/Ramsey-B/acre/internal/repositories/event"
	parcelrepo "github.com/Ramsey-B/acre/internal/repositories/parcel"
	stagedrepo "github.com/Ramsey-B/acre/internal/repositories/stagedevent"
	"github.com/Ramsey-B/acre/pkg/database"
	"github.com/Ramsey-B/acre/pkg/kafka"
	"github.com/Ramsey-B/acre/pkg/middleware"
	auditroutes "github.com/Ramsey-B/acre/pkg/routes/audit"
	eventroutes "github.com/Ramsey-B/acre/pkg/routes/event"
	"github.com/Ramsey-B/acre/pkg/routes/health"
	parcelroutes "github.com/Ramsey-B/acre/pkg/routes/parcel"
	"github.com/Ramsey-B/acre/pkg/startup"
)

const serviceVersion = "1.0.0"

// createServeCmd creates the API server command
func createServeCmd(cfg config.Config, logger ectologger.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the read API and event consumer",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cfg, logger)
		},
	}
}

func serve(cfg config.Config, logger ectologger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var db database.DB
	var consumer *kafka.Consumer
	var checker *health.Checker
	var e *echo.Echo

	boot := startup.NewStartup(logger, cfg.StartupMaxAttempts)

	boot.AddDependency(&dependency{
		name: "database",
		start: func(ctx context.Context) error {
			conn, err := database.Connect(ctx, cfg, logger)
			if err != nil {
				return err
			}
			db = conn
			return runMigrations(ctx, cfg, logger)
		},
		stop: func(ctx context.Context) error {
			if db != nil {
				return db.Close()
			}
			return nil
		},
	})

	boot.AddDependency(&dependency{
		name:      "consumer",
		dependsOn: []string{"database"},
		start: func(ctx context.Context) error {
			if !cfg.KafkaConsumerEnabled {
				logger.WithContext(ctx).Info("Kafka consumer disabled")
				return nil
			}
			staged := stagedrepo.NewRepository(db, logger)
			consumer = kafka.NewConsumer(cfg, logger, stagingHandler(staged))
			return consumer.Start(ctx)
		},
		stop: func(ctx context.Context) error {
			if consumer != nil {
				return consumer.Stop()
			}
			return nil
		},
	})

	boot.AddDependency(&dependency{
		name:      "http",
		dependsOn: []string{"database"},
		start: func(ctx context.Context) error {
			container, err := buildContainer(cfg, logger, db)
			if err != nil {
				return err
			}
			e = buildServer(cfg, logger, container)
			checker = health.NewChecker(db, serviceVersion)
			if consumer != nil {
				checker.AddCheck("consumer", consumer.Health)
			}
			checker.RegisterRoutes(e)

			go func() {
				addr := fmt.Sprintf(":%d", cfg.Port)
				if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
					logger.WithError(err).Error("HTTP server stopped")
				}
			}()
			checker.SetReady(true)
			return nil
		},
		stop: func(ctx context.Context) error {
			if checker != nil {
				checker.SetReady(false)
			}
			if e != nil {
				shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
				defer cancel()
				return e.Shutdown(shutdownCtx)
			}
			return nil
		},
	})

	if err := boot.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	logger.Info("Shutting down")

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return boot.Stop(stopCtx)
}

func buildContainer(cfg config.Config, logger ectologger.Logger, db database.DB) (ectocontainer.DIContainer, error) {
	container, err := ectoinject.NewDIDefaultContainer()
	if err != nil {
		return nil, err
	}

	if err := ectoinject.RegisterInstance[ectologger.Logger](container, logger); err != nil {
		return nil, err
	}
	if err := ectoinject.RegisterInstance[database.DB](container, db); err != nil {
		return nil, err
	}
	if err := ectoinject.RegisterInstance[*parcelrepo.Repository](container, parcelrepo.NewRepository(db, logger)); err != nil {
		return nil, err
	}
	if err := ectoinject.RegisterInstance[*eventrepo.Repository](container, eventrepo.NewRepository(db, logger)); err != nil {
		return nil, err
	}
	if err := ectoinject.RegisterInstance[*auditrepo.Repository](container, auditrepo.NewRepository(db, logger)); err != nil {
		return nil, err
	}

	producer := kafka.NewProducer(kafka.ProducerConfig{
		Brokers:      cfg.KafkaBrokers,
		Topic:        cfg.KafkaEventTopic,
		BatchSize:    cfg.KafkaBatchSize,
		BatchTimeout: time.Duration(cfg.KafkaBatchTimeout) * time.Millisecond,
		RequiredAcks: cfg.KafkaRequiredAcks,
		Compression:  cfg.KafkaCompression,
	}, logger)
	if err := ectoinject.RegisterInstance[*kafka.Producer](container, producer); err != nil {
		return nil, err
	}

	return container, nil
}

func buildServer(cfg config.Config, logger ectologger.Logger, container ectocontainer.DIContainer) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(otelecho.Middleware(cfg.AppName))
	e.Use(middleware.Context())
	e.Use(middleware.Logger(logger))
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: cfg.AllowOrigins,
		AllowMethods: cfg.AllowMethods,
	}))
	e.HTTPErrorHandler = middleware.Error(logger)

	// Make the DI container reachable from request contexts.
	containerID := container.GetContainerID()
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx, err := ectoinject.SetActiveContainer(c.Request().Context(), containerID)
			if err != nil {
				return err
			}
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	})

	api := e.Group("/api/v1")
	parcelroutes.Register(api.Group("/parcels"))
	eventroutes.Register(api.Group("/events"))
	auditroutes.Register(api.Group("/audit"))

	return e
}

// dependency adapts start/stop closures to the startup orchestrator.
type dependency struct {
	name      string
	dependsOn []string
	start     func(ctx context.Context) error
	stop      func(ctx context.Context) error
}

func (d *dependency) GetName() string { return d.name }

func (d *dependency) DependsOn() []string { return d.dependsOn }
func (d *dependency) Start(ctx context.Context) error {
	if d.start == nil {
		return nil
	}
	return d.start(ctx)
}
func (d *dependency) Stop(ctx context.Context) error {
	if d.stop == nil {
		return nil
	}
	return d.stop(ctx)
}
