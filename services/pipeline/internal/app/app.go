// Package app wires the pipeline's dependencies for the fx binaries.
package app

import (
	"context"
	"net/http"

	"jobclean/common/cache"
	"jobclean/common/telemetry"
	"jobclean/services/pipeline/internal/api"
	"jobclean/services/pipeline/internal/config"
	"jobclean/services/pipeline/internal/hub"
	"jobclean/services/pipeline/internal/messaging"
	"jobclean/services/pipeline/internal/metrics"
	"jobclean/services/pipeline/internal/processor"
	"jobclean/services/pipeline/internal/store"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

const serviceName = "jobclean-pipeline"

// Module provides everything needed to build a *processor.Runner.
var Module = fx.Options(
	fx.Provide(
		config.LoadConfig,
		NewLogger,
		newDatasetCache,
		api.NewDatasetClient,
		newStore,
		newUploader,
		newPublisher,
		metrics.New,
		processor.NewRunner,
	),
	fx.WithLogger(func(logger *zap.Logger) fxevent.Logger {
		return &fxevent.ZapLogger{Logger: logger.Named("fx")}
	}),
	fx.Invoke(initTracing),
)

// NewLogger builds a production logger, or a development one when
// LOG_DEVELOPMENT is set, at LOG_LEVEL.
func NewLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	zc := zap.NewProductionConfig()
	if cfg.LogDevelopment {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = level

	logger, err := zc.Build()
	if err != nil {
		return nil, err
	}
	return logger.With(zap.String("service", serviceName)), nil
}

func initTracing(lc fx.Lifecycle, cfg *config.Config, logger *zap.Logger) error {
	shutdown, err := telemetry.InitTracer(context.Background(), serviceName, cfg.OTELCollectorURL)
	if err != nil {
		return err
	}
	if cfg.OTELCollectorURL != "" {
		logger.Info("Tracing enabled", zap.String("collector", cfg.OTELCollectorURL))
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return shutdown(ctx)
		},
	})
	return nil
}

func newDatasetCache(lc fx.Lifecycle, cfg *config.Config) cache.Cache {
	c := api.NewDatasetCache(cfg)
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return c.Close()
		},
	})
	return c
}

func newStore(lc fx.Lifecycle, cfg *config.Config, logger *zap.Logger) (store.Store, error) {
	st, err := store.Open(context.Background(), cfg, logger)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return st.Close()
		},
	})
	return st, nil
}

func newUploader(cfg *config.Config, logger *zap.Logger) hub.Uploader {
	return hub.NewClient(cfg.HFEndpoint, cfg.HFToken, &http.Client{Timeout: cfg.HFUploadTimeout}, logger)
}

func newPublisher(lc fx.Lifecycle, cfg *config.Config, logger *zap.Logger) (messaging.Publisher, error) {
	p, err := messaging.NewPublisher(logger, cfg)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			p.Close()
			return nil
		},
	})
	return p, nil
}
