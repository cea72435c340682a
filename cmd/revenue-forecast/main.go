package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/iwvelando/revenue-forecast/internal/cache"
	"github.com/iwvelando/revenue-forecast/internal/config"
	"github.com/iwvelando/revenue-forecast/internal/forecast"
	"github.com/iwvelando/revenue-forecast/internal/observability"
	"github.com/iwvelando/revenue-forecast/internal/optimizer"
	"github.com/iwvelando/revenue-forecast/internal/server"
	"github.com/iwvelando/revenue-forecast/internal/storage"
	"github.com/iwvelando/revenue-forecast/internal/storage/backend"
	"github.com/iwvelando/revenue-forecast/pkg/constants"
	"github.com/iwvelando/revenue-forecast/pkg/output"
	"github.com/iwvelando/revenue-forecast/pkg/projection"
	"github.com/iwvelando/revenue-forecast/pkg/validation"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// initializeLogger creates a zap logger based on configuration and CLI override
func initializeLogger(loggingConfig config.LoggingConfig, logLevelOverride string) (*zap.Logger, error) {
	// Determine log level (CLI override takes precedence)
	level := loggingConfig.Level
	if logLevelOverride != "" {
		level = logLevelOverride
	}
	if level == "" {
		level = "info"
	}

	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn", "warning":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		return nil, fmt.Errorf("invalid log level: %s", level)
	}

	format := loggingConfig.Format
	if format == "" {
		format = "json"
	}

	var config zap.Config
	switch format {
	case "console":
		config = zap.NewDevelopmentConfig()
	case "json":
		config = zap.NewProductionConfig()
	default:
		return nil, fmt.Errorf("invalid log format: %s", format)
	}
	config.Level = zap.NewAtomicLevelAt(zapLevel)

	if loggingConfig.OutputFile != "" {
		if dir := filepath.Dir(loggingConfig.OutputFile); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create log directory %s: %v", dir, err)
			}
		}

		file, err := os.OpenFile(loggingConfig.OutputFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %v", loggingConfig.OutputFile, err)
		}
		_ = file.Close()

		config.OutputPaths = []string{loggingConfig.OutputFile}
		config.ErrorOutputPaths = []string{loggingConfig.OutputFile}
	}

	return config.Build()
}

func main() {
	configLocation := flag.String("config", constants.DefaultConfigFile, "path to configuration file")
	outputFormatFlag := flag.String("output-format", "", "type of output override: pretty, csv, json, yaml")
	periodFlag := flag.String("period", "", "table period override: monthly, yearly, daily")
	logLevel := flag.String("log-level", "", "log level override (debug, info, warn, error)")
	optimize := flag.Bool("optimize", false, "run the configured optimizers after the forecast")
	save := flag.Bool("save", false, "save the model to the configured store")
	envFile := flag.String("env-file", ".env", "optional dotenv file with REVENUE_FORECAST_* overrides")
	serve := flag.Bool("serve", false, "run the HTTP API instead of a one-off forecast")
	serverConfig := flag.String("server-config", constants.DefaultServerConfigFile, "path to server configuration file")
	flag.Parse()

	// Environment overrides must be in place before viper reads the config.
	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to load env file %s\", \"error\": \"%v\"}\n", *envFile, err)
		os.Exit(1)
	}

	if *serve {
		if err := runServer(*serverConfig, *logLevel); err != nil {
			fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"server stopped\", \"error\": \"%v\"}\n", err)
			os.Exit(1)
		}
		return
	}

	conf, err := config.LoadConfiguration(*configLocation)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to load configuration at %s\", \"error\": \"%v\"}\n", *configLocation, err)
		os.Exit(1)
	}

	logger, err := initializeLogger(conf.Logging, *logLevel)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to initialize logger\", \"error\": \"%v\"}\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	if err := applyOutputOverrides(&conf.Output, *outputFormatFlag, *periodFlag); err != nil {
		logger.Fatal(err.Error(),
			zap.String("op", "main"),
		)
	}
	conf.Normalize()
	if err := conf.Validate(); err != nil {
		logger.Fatal("invalid configuration",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}

	for _, warning := range conf.ValidateConfiguration() {
		logger.Warn("Configuration warning: "+warning,
			zap.String("op", "main"),
		)
	}

	ctx := context.Background()
	in, err := forecast.InputFromConfig(*conf, time.Now())
	if err != nil {
		logger.Fatal("failed to resolve model",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}

	results, err := forecast.Compute(ctx, logger, in)
	if err != nil {
		logger.Fatal("failed to compute forecast",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}

	if *optimize && len(conf.Optimizers) > 0 {
		runner, err := optimizer.NewRunner(logger, in, conf.Optimizers)
		if err != nil {
			logger.Fatal("failed to initialize optimizer",
				zap.String("op", "main"),
				zap.Error(err),
			)
		}
		solved, err := runner.Run(ctx)
		if err != nil {
			logger.Fatal("optimizer execution failed",
				zap.String("op", "main"),
				zap.Error(err),
			)
		}
		solved.Apply(results)
	}

	if *save {
		if err := saveModel(ctx, logger, conf.Storage, results); err != nil {
			logger.Fatal("failed to save model",
				zap.String("op", "main"),
				zap.Error(err),
			)
		}
	}

	if err := writeOutput(os.Stdout, conf.Output, results); err != nil {
		logger.Fatal("failed to write output",
			zap.String("op", "main"),
			zap.String("format", conf.Output.Format),
			zap.Error(err),
		)
	}
}

// applyOutputOverrides replaces the configured output format and period with
// the CLI flags when they are set.
func applyOutputOverrides(outputConfig *config.OutputConfig, format, period string) error {
	if format = strings.ToLower(strings.TrimSpace(format)); format != "" {
		if err := validation.ValidateOutputFormat(format); err != nil {
			return err
		}
		outputConfig.Format = format
	}
	if period = strings.ToLower(strings.TrimSpace(period)); period != "" {
		if err := validation.ValidateOutputPeriod(period); err != nil {
			return err
		}
		outputConfig.Period = period
	}
	return nil
}

func writeOutput(w io.Writer, outputConfig config.OutputConfig, results *forecast.Result) error {
	window, err := projection.ParsePeriod(outputConfig.Window)
	if err != nil {
		return err
	}
	opts := output.Options{Period: outputConfig.Period, Window: window}

	switch outputConfig.Format {
	case constants.OutputFormatCSV:
		return output.CSV(w, results, opts)
	case constants.OutputFormatJSON:
		return output.JSON(w, output.NewExport(results, time.Now()))
	case constants.OutputFormatYAML:
		return output.YAML(w, output.NewExport(results, time.Now()))
	default:
		return output.Pretty(w, results, opts)
	}
}

// saveModel stores the resolved model under its name, replacing an earlier
// save of the same name.
func saveModel(ctx context.Context, logger *zap.Logger, storageConfig config.StorageConfig, results *forecast.Result) error {
	store, err := backend.Open(ctx, logger, storageConfig)
	if err != nil {
		return err
	}
	if store == nil {
		return fmt.Errorf("storage driver %q cannot save models", storageConfig.Driver)
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			logger.Warn("failed to close store", zap.String("op", "main.saveModel"), zap.Error(closeErr))
		}
	}()

	model := storage.Model{
		Name:        results.Name,
		Description: results.Description,
		Parameters:  results.Parameters,
		Segments:    results.Segments,
	}
	existing, err := store.ListModels(ctx)
	if err != nil {
		return err
	}
	for _, candidate := range existing {
		if storage.NameKey(candidate.Name) == storage.NameKey(model.Name) {
			model.ID = candidate.ID
			break
		}
	}

	if err := store.SaveModel(ctx, &model); err != nil {
		return err
	}
	logger.Info("model saved",
		zap.String("op", "main.saveModel"),
		zap.String("id", model.ID),
		zap.String("model", model.Name),
		zap.Float64("totalRevenue", model.TotalRevenue),
	)
	return nil
}

func runServer(path, logLevelOverride string) error {
	cfg, err := server.LoadConfig(path)
	if err != nil {
		return err
	}

	logger, err := initializeLogger(cfg.Logging, logLevelOverride)
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := backend.Open(ctx, logger, cfg.Storage)
	if err != nil {
		return err
	}
	if store != nil {
		defer func() {
			if closeErr := store.Close(); closeErr != nil {
				logger.Warn("failed to close store", zap.String("op", "main.runServer"), zap.Error(closeErr))
			}
		}()
	}

	resultCache, err := cache.Open(ctx, logger, cfg.Cache)
	if err != nil {
		return err
	}
	if resultCache != nil {
		defer func() {
			if closeErr := resultCache.Close(); closeErr != nil {
				logger.Warn("failed to close cache", zap.String("op", "main.runServer"), zap.Error(closeErr))
			}
		}()
	}

	handler := server.NewHandler(logger, server.Options{
		MaxUploadSize: cfg.UploadSizeBytes(),
		Version:       strings.TrimSpace(version),
		Store:         store,
		Cache:         resultCache,
		CacheTTL:      cfg.Cache.TTL(),
		Metrics:       observability.NewMetrics(constants.MetricsNamespace),
	})

	httpServer := &http.Server{
		Addr:              cfg.Address,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting HTTP server",
			zap.String("op", "main.runServer"),
			zap.String("address", cfg.Address),
			zap.String("storage", cfg.Storage.Driver),
			zap.String("cache", cfg.Cache.Driver),
		)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	logger.Info("shutting down HTTP server", zap.String("op", "main.runServer"))
	return httpServer.Shutdown(shutdownCtx)
}
