package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/target/engage-api/config"
	"github.com/target/engage-api/internal/core"
	"github.com/target/engage-api/internal/data"
	httpx "github.com/target/engage-api/internal/http"
	"github.com/target/engage-api/internal/observability/statsd"
	"github.com/target/engage-api/internal/service"
)

// ServiceContainer holds all application services.
type ServiceContainer struct {
	Workspaces    *service.WorkspaceService
	Journeys      *service.JourneyService
	Events        *service.EventService
	Pager         *service.PagerService
	Conversions   *service.ConversionService
	Observability ObservabilityContainer

	// HealthChecks probe the backing stores for readiness.
	HealthChecks map[string]httpx.HealthCheck
}

// ObservabilityContainer groups shared observability dependencies.
type ObservabilityContainer struct {
	MetricsSink   *statsd.Client
	MetricsConfig config.ObservabilityMetricsConfig
}

// sink returns the metrics sink as an interface, nil when metrics are off.
//
//nolint:ireturn // services accept the Sink port.
func (o ObservabilityContainer) sink() statsd.Sink {
	if o.MetricsSink == nil {
		return nil
	}
	return o.MetricsSink
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient // Optional: disables the settings cache and backfill lock when nil
	Logger      *slog.Logger
}

// serviceRepositories groups data adapters backing service ports.
type serviceRepositories struct {
	Workspaces  *data.WorkspaceRepo
	Customers   *data.CustomerRepo
	Events      *data.CustomerEventRepo
	Journeys    *data.JourneyRepo
	Enrollments *data.EnrollmentRepo
	Conversions *data.ConversionRepo
	Cache       *data.RedisCacheRepo
}

// buildRepositories builds repositories backing service ports; no business rules here.
func buildRepositories(db *sql.DB, redisClient redis.UniversalClient) *serviceRepositories {
	repos := &serviceRepositories{
		Workspaces:  data.NewWorkspaceRepo(db),
		Customers:   data.NewCustomerRepo(db),
		Events:      data.NewCustomerEventRepo(db),
		Journeys:    data.NewJourneyRepo(db),
		Enrollments: data.NewEnrollmentRepo(db),
		Conversions: data.NewConversionRepo(db),
	}
	if redisClient != nil {
		repos.Cache = data.NewRedisCacheRepo(redisClient)
	}
	return repos
}

// buildObservability configures the StatsD client when metrics are enabled.
// A dial failure is logged and leaves metrics off.
func buildObservability(logger *slog.Logger, cfg config.ObservabilityConfig) ObservabilityContainer {
	out := ObservabilityContainer{MetricsConfig: cfg.Metrics}
	if !cfg.Metrics.IsEnabled() {
		return out
	}

	client, err := statsd.NewClient(statsd.Config{
		Enabled: true,
		Address: cfg.Metrics.StatsdAddress,
		Prefix:  cfg.Metrics.Prefix,
		Tags:    cfg.Metrics.Tags,
		Logger:  logger,
	})
	if err != nil {
		logger.Error("failed to initialise statsd client", "error", err)
		return out
	}
	out.MetricsSink = client
	return out
}

// NewServices wires every service from its repositories.
func NewServices(deps *ServiceDeps) (ServiceContainer, error) {
	if deps == nil || deps.DB == nil {
		return ServiceContainer{}, errors.New("database connection is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	appCfg := deps.Config
	if appCfg == nil {
		appCfg = &config.AppConfig{}
		appCfg.Sanitize()
	}

	obs := buildObservability(logger, appCfg.Observability)
	repos := buildRepositories(deps.DB, deps.RedisClient)

	pager, err := service.NewPagerService(service.PagerServiceOptions{
		Repos: service.PagerRepositories{
			Events:      repos.Events,
			Customers:   repos.Customers,
			Enrollments: repos.Enrollments,
		},
		Config: service.PagerServiceConfig{
			DefaultPageSize: appCfg.Paging.DefaultPageSize,
			MaxPageSize:     appCfg.Paging.MaxPageSize,
		},
		Metrics: obs.sink(),
		Logger:  logger,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("pager service: %w", err)
	}

	conversions, err := newConversionService(repos, appCfg.Conversion, obs, logger)
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("conversion service: %w", err)
	}

	journeys, err := service.NewJourneyService(service.JourneyServiceOptions{
		Journeys:     repos.Journeys,
		Enrollments:  repos.Enrollments,
		SettingsPath: appCfg.Conversion.SettingsPath,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("journey service: %w", err)
	}

	events, err := service.NewEventService(service.EventServiceOptions{
		Repo:   repos.Events,
		Config: service.DefaultEventServiceConfig(),
		Logger: logger,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("event service: %w", err)
	}

	return ServiceContainer{
		Workspaces: service.NewWorkspaceService(service.WorkspaceServiceOptions{
			Workspaces: repos.Workspaces,
			Customers:  repos.Customers,
		}),
		Journeys:      journeys,
		Events:        events,
		Pager:         pager,
		Conversions:   conversions,
		Observability: obs,
		HealthChecks:  healthChecks(deps.DB, repos.Cache),
	}, nil
}

func newConversionService(
	repos *serviceRepositories,
	cfg config.ConversionConfig,
	obs ObservabilityContainer,
	logger *slog.Logger,
) (*service.ConversionService, error) {
	opts := service.ConversionServiceOptions{
		Repos: service.ConversionRepositories{
			Journeys:    repos.Journeys,
			Enrollments: repos.Enrollments,
			Events:      repos.Events,
			Conversions: repos.Conversions,
		},
		Config: service.ConversionServiceConfig{
			SettingsPath:    cfg.SettingsPath,
			Concurrency:     cfg.Concurrency,
			BackfillBatch:   cfg.BackfillBatch,
			BackfillLockTTL: cfg.BackfillLockTTL,
		},
		Metrics: obs.sink(),
		Logger:  logger,
	}
	if repos.Cache != nil {
		opts.Cache = core.NewSettingsCache(core.SettingsCacheOptions{
			Cache: repos.Cache,
			Key:   data.ConversionSettingsKey,
			TTL:   cfg.SettingsCacheTTL,
		})
		opts.Locker = service.ConversionLocker{Cache: repos.Cache, Key: data.BackfillLockKey}
	}
	return service.NewConversionService(opts)
}

func healthChecks(db *sql.DB, cache *data.RedisCacheRepo) map[string]httpx.HealthCheck {
	checks := map[string]httpx.HealthCheck{
		"postgres": db.PingContext,
	}
	if cache != nil {
		checks["redis"] = cache.Health
	}
	return checks
}

// ServiceOrchestrationConfig contains configuration for service orchestration.
type ServiceOrchestrationConfig struct {
	Config   *config.AppConfig
	Services ServiceContainer
	Logger   *slog.Logger
}

// backgroundService describes a startable component bound to a service mode.
type backgroundService struct {
	mode  config.ServiceMode
	name  string
	start func(context.Context) error
}

func buildBackgroundServices(cfg *ServiceOrchestrationConfig, logger *slog.Logger) []backgroundService {
	return []backgroundService{
		{
			mode: config.ServiceModeHTTP,
			name: "http server",
			start: func(ctx context.Context) error {
				return RunHTTPServer(ctx, &HTTPServerConfig{
					Config:   cfg.Config,
					Services: cfg.Services,
					Logger:   logger,
				})
			},
		},
		{
			mode: config.ServiceModeConversionBackfill,
			name: "conversion backfill",
			start: func(ctx context.Context) error {
				return RunConversionBackfill(ctx, BackfillConfig{
					Service:  cfg.Services.Conversions,
					Interval: cfg.Config.Conversion.BackfillInterval,
					Logger:   logger,
				})
			},
		},
	}
}

// RunServicesWithShutdown starts all enabled services and blocks until a
// shutdown signal arrives or one of them fails. A failing service cancels
// the others.
func RunServicesWithShutdown(ctx context.Context, cfg *ServiceOrchestrationConfig) error {
	if cfg == nil {
		return errors.New("service orchestration config is required")
	}
	if cfg.Config == nil {
		return errors.New("service orchestration config missing AppConfig")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	enabled, err := cfg.Config.GetEnabledServices()
	if err != nil {
		return fmt.Errorf("determine enabled services: %w", err)
	}

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(sigCtx)
	for _, svc := range buildBackgroundServices(cfg, logger) {
		if !enabled[svc.mode] {
			continue
		}
		logger.InfoContext(ctx, "service started", "service", svc.name, "mode", svc.mode)
		g.Go(func() error {
			if err := svc.start(gctx); err != nil {
				return fmt.Errorf("%s failed: %w", svc.name, err)
			}
			logger.Info(svc.name + " stopped")
			return nil
		})
	}

	err = g.Wait()
	if cfg.Services.Observability.MetricsSink != nil {
		if cerr := cfg.Services.Observability.MetricsSink.Close(); cerr != nil {
			logger.Warn("close statsd client", "error", cerr)
		}
	}
	if err != nil {
		logger.Error("service error", "error", err)
		return err
	}
	logger.Info("all services stopped")
	return nil
}
