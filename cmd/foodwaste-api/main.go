package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/foodwaste/predict-api/internal/config"
	"github.com/foodwaste/predict-api/internal/logging"
	"github.com/foodwaste/predict-api/internal/service"
)

func main() {
	cfg, err := config.Load(os.Args[0], os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.LogFormat, cfg.LogLevel, os.Stdout)
	if err != nil {
		log.Fatalf("failed to configure logger: %v", err)
	}
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("api_server_failed", "error", err.Error())
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	predictor, err := buildPredictor(cfg)
	if err != nil {
		return err
	}
	attrs := []any{
		"backend", predictor.Name(),
		"scaler_path", cfg.ScalerPath,
		"model_path", cfg.ModelPath,
	}
	if bridge, ok := predictor.(*service.BridgePredictor); ok {
		scalerKind, modelKind := bridge.ArtifactKinds()
		attrs = append(attrs, "scaler_kind", scalerKind, "model_kind", modelKind)
	}
	logger.Info("artifact_loaded", attrs...)

	hooks := service.TelemetryHooks(service.NopTelemetryHooks{})
	if cfg.LogTelemetryHooks {
		hooks = service.LogTelemetryHooks{Logger: logger}
	}

	httpService, err := service.NewHTTPService(predictor, service.HTTPServiceConfig{
		PredictTimeout: cfg.PredictTimeout,
		Logger:         logger,
		Hooks:          hooks,
	})
	if err != nil {
		return fmt.Errorf("create http service: %w", err)
	}
	defer func() {
		if closeErr := httpService.Close(); closeErr != nil {
			logger.Warn("service_close_failed", "error", closeErr.Error())
		}
	}()

	mux := http.NewServeMux()
	httpService.RegisterRoutes(mux)

	handler := service.Chain(mux, service.DefaultMiddleware(logger, cfg.CORSAllowedOrigins)...)

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info(
			"api_server_start",
			"addr", cfg.Addr,
			"backend", predictor.Name(),
			"predict_timeout_ms", cfg.PredictTimeout.Milliseconds(),
			"cors_allowed_origins", cfg.CORSAllowedOrigins,
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()
	select {
	case err, ok := <-serveErr:
		if ok {
			return fmt.Errorf("http serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("api_server_shutdown", "timeout_ms", cfg.ShutdownTimeout.Milliseconds())
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

func buildPredictor(cfg config.Config) (service.Predictor, error) {
	switch cfg.Backend {
	case config.BackendNative:
		return service.NewNativePredictor(cfg.ScalerPath, cfg.ModelPath)
	case config.BackendBridge:
		ctx, cancel := context.WithTimeout(context.Background(), cfg.BridgeLoadTimeout)
		defer cancel()
		return service.NewBridgePredictor(ctx, cfg.ScalerPath, cfg.ModelPath, cfg.BridgeCmd)
	default:
		return nil, fmt.Errorf("unsupported backend %q", cfg.Backend)
	}
}
