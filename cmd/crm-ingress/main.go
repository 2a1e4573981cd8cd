// cmd/crm-ingress/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/quotaview/crm-ingress/pkg/config"
	"github.com/quotaview/crm-ingress/pkg/etl"
	"github.com/quotaview/crm-ingress/pkg/hubspot"
	"github.com/quotaview/crm-ingress/pkg/warehouse"
)

func main() {
	schedule := flag.String("schedule", "", "cron expression for repeated runs; empty runs the pipeline once and exits")
	flag.Parse()

	// Optional .env for local development; env vars win in deployment.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	logger, err := buildLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger setup error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	wh, err := warehouse.New(ctx, cfg.Warehouse, logger)
	if err != nil {
		logger.Fatal("Failed to connect to warehouse", zap.Error(err))
	}
	defer wh.Close()

	if err := wh.Validate(); err != nil {
		logger.Fatal("Warehouse validation failed", zap.Error(err))
	}

	client := hubspot.NewClient(cfg.HubSpot, logger)
	loader := warehouse.NewLoader(wh, logger)
	pipeline := etl.NewPipeline(client, loader, cfg, logger)

	if *schedule == "" {
		result := pipeline.Run(ctx)
		result.Log(logger)
		if result.Status != etl.StatusSuccess {
			os.Exit(1)
		}
		return
	}

	runScheduled(ctx, pipeline, *schedule, logger)
}

// runScheduled runs the pipeline on a cron schedule until interrupted.
// Failed runs are logged and the schedule keeps going.
func runScheduled(ctx context.Context, pipeline *etl.Pipeline, schedule string, logger *zap.Logger) {
	c := cron.New()

	_, err := c.AddFunc(schedule, func() {
		result := pipeline.Run(ctx)
		result.Log(logger)
	})
	if err != nil {
		logger.Fatal("Invalid cron schedule",
			zap.String("schedule", schedule),
			zap.Error(err))
	}

	logger.Info("Starting scheduler", zap.String("schedule", schedule))
	c.Start()

	<-ctx.Done()
	logger.Info("Shutting down scheduler")

	// Let an in-flight run finish before exiting.
	<-c.Stop().Done()
}

// buildLogger constructs the process logger from config: json or console
// encoding at the configured level.
func buildLogger(level, format string) (*zap.Logger, error) {
	var zapLevel zapcore.Level
	if err := zapLevel.Set(level); err != nil {
		zapLevel = zapcore.InfoLevel
	}

	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(zapLevel)
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	if format == "console" {
		zapCfg.Encoding = "console"
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	return zapCfg.Build()
}
