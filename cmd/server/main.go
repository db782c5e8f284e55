package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/aivoralabs/auditlens/internal/config"
	"github.com/aivoralabs/auditlens/internal/extract"
	"github.com/aivoralabs/auditlens/internal/policy"
	"github.com/aivoralabs/auditlens/internal/repository"
	"github.com/aivoralabs/auditlens/internal/server"
	"github.com/aivoralabs/auditlens/internal/service"
	"github.com/aivoralabs/auditlens/pkg/database"
	"github.com/aivoralabs/auditlens/pkg/utils"
)

func main() {
	// Pick up a local .env before config parsing
	gotenv.Load()

	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting AuditLens",
		zap.String("version", "1.0.0"),
		zap.Int("port", cfg.Server.Port))

	db, err := database.New(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	migrator := database.NewMigrator(db, logger)
	if err := migrator.RunMigrations(); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	if err := os.MkdirAll(cfg.Storage.UploadDir, 0755); err != nil {
		logger.Fatal("Failed to create upload directory", zap.Error(err))
	}

	repos := service.Repos{
		Documents:   repository.NewDocumentRepository(db, logger),
		Matches:     repository.NewMatchRepository(db, logger),
		Anomalies:   repository.NewAnomalyRepository(db, logger),
		Triage:      repository.NewTriageRepository(db, logger),
		Vendors:     repository.NewVendorRepository(db, logger),
		Activity:    repository.NewActivityRepository(db, logger),
		Corrections: repository.NewCorrectionRepository(db, logger),
	}

	active := policy.Default()
	if cfg.Policy.Preset != "" {
		preset, ok := policy.Presets()[cfg.Policy.Preset]
		if !ok {
			logger.Fatal("Unknown policy preset", zap.String("preset", cfg.Policy.Preset))
		}
		active = preset.Policy
		logger.Info("Applied policy preset", zap.String("preset", cfg.Policy.Preset))
	}
	policies := policy.NewEngine(active)

	extractor := extract.NewExtractor(extract.Config{
		APIKey:      cfg.OpenAI.APIKey,
		Model:       cfg.OpenAI.Model,
		Temperature: cfg.OpenAI.Temperature,
		Timeout:     cfg.OpenAI.Timeout,
	}, logger)

	svc := service.New(db, repos, policies, extractor, cfg.Storage.UploadDir, logger)

	srv := server.New(server.Config{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, svc, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logger.Info("Shutting down server...")
		cancel()
	}()

	if err := srv.Start(ctx); err != nil {
		logger.Fatal("HTTP server failed", zap.Error(err))
	}

	logger.Info("Server exited successfully")
}
