// cmd/ingress/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sheetops/sheet-ingress/pkg/config"
	"github.com/sheetops/sheet-ingress/pkg/connector"
	"github.com/sheetops/sheet-ingress/pkg/pipeline"
	"github.com/sheetops/sheet-ingress/pkg/sink"
	"github.com/sheetops/sheet-ingress/pkg/source"
)

func main() {
	os.Exit(run())
}

func run() int {
	// .env is optional; real environments set variables directly.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return 1
	}

	logger, err := buildLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger error: %v\n", err)
		return 1
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	layout, err := config.LoadSourceLayout(cfg.SourceLayoutPath)
	if err != nil {
		logger.Error("Failed to load source layout", zap.Error(err))
		return 1
	}

	src, err := source.NewCSVSource(layout, logger)
	if err != nil {
		logger.Error("Failed to create source", zap.Error(err))
		return 1
	}

	pg, err := connector.NewPostgresConnector(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Error("Failed to connect to PostgreSQL", zap.Error(err))
		return 1
	}
	defer pg.Close()

	if err := pg.Validate(ctx); err != nil {
		logger.Error("PostgreSQL validation failed", zap.Error(err))
		return 1
	}

	pgSink, err := sink.NewPostgresSink(ctx, pg.DB(), logger)
	if err != nil {
		logger.Error("Failed to create sink", zap.Error(err))
		return 1
	}

	workers := cfg.TransformWorkers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	p, err := pipeline.New(src, pgSink, workers, logger)
	if err != nil {
		logger.Error("Failed to create pipeline", zap.Error(err))
		return 1
	}

	report, runErr := p.Run(ctx)
	if report != nil {
		fmt.Print(report.Render())
	}

	switch p.State() {
	case pipeline.StateDone:
		return 0
	case pipeline.StateCancelled:
		logger.Warn("Run cancelled", zap.Error(runErr))
		return 130
	default:
		logger.Error("Run failed", zap.Error(runErr))
		return 1
	}
}

// buildLogger constructs a zap logger from the configured level and format.
func buildLogger(level, format string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	var zapCfg zap.Config
	if format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(lvl)

	return zapCfg.Build()
}
