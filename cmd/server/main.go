package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"protscope/internal/adapter"
	"protscope/internal/config"
	"protscope/internal/domain"
	"protscope/internal/handler"
	"protscope/internal/hub"
	"protscope/internal/metrics"
	"protscope/internal/service"
	"protscope/internal/tracing"
	"protscope/internal/watcher"
)

func main() {
	configPath := flag.String("config", "", "config file path (default: search $PROTSCOPE_CONFIG, ./protscope.yaml, XDG, /etc)")
	addr := flag.String("addr", "", "HTTP listen address, overrides server.addr")
	check := flag.Bool("check", false, "validate the configuration, print a summary and exit")
	initConfig := flag.Bool("init", false, "write a default config to -config (or the XDG location) and exit")
	flag.Parse()

	if *initConfig {
		path, err := config.Init(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "protscope: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("wrote default config to %s\n", path)
		return
	}

	cfg, path, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "protscope: %v\n", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *check {
		fmt.Println(cfg.Summary())
		return
	}

	logger, err := newLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "protscope: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck

	if err := run(cfg, path, logger); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

func loadConfig(path string) (*config.Config, string, error) {
	if path != "" {
		return config.LoadFromPath(path)
	}
	return config.Load()
}

func newLogger(lc config.LoggingConfig) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if lc.Format == "console" {
		zc = zap.NewDevelopmentConfig()
	}
	level, err := zapcore.ParseLevel(lc.Level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

func run(cfg *config.Config, path string, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting protscope", zap.String("config", path), zap.String("addr", cfg.Server.Addr))

	tp := tracing.Disabled()
	if cfg.Tracing.Enabled {
		var err error
		tp, err = tracing.Init(ctx, cfg.Tracing.ServiceName, cfg.Tracing.Environment, cfg.Tracing.Endpoint)
		if err != nil {
			return fmt.Errorf("tracing: %w", err)
		}
		logger.Info("tracing enabled", zap.String("endpoint", cfg.Tracing.Endpoint))
	}

	collector := metrics.NewCollector("protscope")
	eventBus := service.NewEventBus()

	sseHub := hub.New(logger)
	go sseHub.Run(ctx)
	eventBus.Forward(func(ev service.Event) { sseHub.Broadcast(ev) }, ctx.Done())

	records := adapter.NewUniProtAdapter(
		adapter.WithBaseURL(cfg.UniProt.BaseURL),
		adapter.WithDefaultFormat(domain.FormatKind(cfg.UniProt.DefaultFormat)),
		adapter.WithTimeout(cfg.UniProt.Timeout.Duration()),
		adapter.WithBreaker(breakerSettings(cfg.UniProt.Breaker)),
		adapter.WithLogger(logger),
	)
	interactions := adapter.NewStringAdapter(
		adapter.WithBaseURL(cfg.String.BaseURL),
		adapter.WithTimeout(cfg.String.Timeout.Duration()),
		adapter.WithBreaker(breakerSettings(cfg.String.Breaker)),
		adapter.WithLimit(cfg.String.Limit),
		adapter.WithCallerIdentity(cfg.String.CallerIdentity),
		adapter.WithLogger(logger),
	)

	pipeline := service.NewPipelineService(records, interactions, eventBus,
		service.WithLogger(logger),
		service.WithMetrics(collector),
		service.WithTracer(tp.Tracer()),
		service.WithSettings(pipelineSettings(cfg)),
	)

	// Remote endpoints and listener settings need a restart; pipeline tunables reload live
	store := config.NewStore(cfg, path)
	store.OnChange(func(c *config.Config) {
		pipeline.UpdateSettings(pipelineSettings(c))
	})
	if path != "" {
		w := watcher.New(path, func() {
			if _, err := store.Reload(); err != nil {
				logger.Warn("config reload rejected, keeping previous configuration", zap.Error(err))
			}
		}, logger)
		go func() {
			if err := w.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("config watcher stopped", zap.Error(err))
			}
		}()
	}

	router := handler.NewRouter(handler.NewPipelineHandler(pipeline, logger), handler.RouterConfig{
		Events:      sseHub,
		Metrics:     collector,
		CORSOrigins: cfg.Server.CORSOrigins,
		Logger:      logger,
	})

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout.Duration(),
		WriteTimeout: cfg.Server.WriteTimeout.Duration(),
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", cfg.Server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration())
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server shutdown error", zap.Error(err))
	}
	if err := tp.Shutdown(shutdownCtx); err != nil {
		logger.Warn("tracer shutdown error", zap.Error(err))
	}

	logger.Info("server stopped")
	return nil
}

func pipelineSettings(cfg *config.Config) service.Settings {
	return service.Settings{
		MaxRetries:           cfg.UniProt.MaxRetries,
		RetryInitialInterval: service.DefaultSettings().RetryInitialInterval,
		Species:              cfg.String.Species,
		MinScore:             cfg.String.MinScore,
		MaxCells:             cfg.Alignment.MaxCells,
	}
}

func breakerSettings(bc config.BreakerConfig) adapter.BreakerSettings {
	return adapter.BreakerSettings{
		MaxRequests:      bc.MaxRequests,
		Interval:         bc.Interval.Duration(),
		Timeout:          bc.Timeout.Duration(),
		FailureThreshold: bc.FailureThreshold,
		MinRequests:      bc.MinRequests,
	}
}
