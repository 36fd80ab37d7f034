package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"visascope/internal/api"
	"visascope/internal/config"
	"visascope/internal/database"
	"visascope/internal/jobs"
	"visascope/internal/mailer"
	"visascope/internal/partner"
	"visascope/internal/pipeline"
	"visascope/internal/report"
	"visascope/internal/scoring"
	"visascope/internal/storage"
	"visascope/internal/validation"
)

func main() {
	cfg := config.MustLoad()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	logger.Info("api bootstrapping",
		slog.String("db_host", cfg.Database.Host),
		slog.Int("db_port", cfg.Database.Port),
		slog.String("db_name", cfg.Database.Name),
	)

	db, err := database.InitDatabase(cfg.Database)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}
	if err := db.AutoMigrate(&database.Evaluation{}, &database.PartnerKey{}); err != nil {
		log.Fatalf("auto migrate: %v", err)
	}
	logger.Info("database ready")

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr()})
	{
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			cancel()
			log.Fatalf("ping redis: %v", err)
		}
		cancel()
	}
	logger.Info("redis ready", slog.String("addr", cfg.Redis.Addr()))

	storageClient, err := storage.NewClient(cfg.MinIO)
	if err != nil {
		log.Fatalf("init storage: %v", err)
	}
	logger.Info("object storage ready", slog.String("bucket", cfg.MinIO.Bucket))

	store := database.NewEvaluationStore(db)
	registry := jobs.NewRegistry()
	validator := validation.NewValidator(cfg.Clamd.Addr, cfg.Pipeline.MaxFiles, logger)
	scorer := scoring.NewEngine()
	renderer := report.NewGenerator()
	sender := mailer.New(cfg.SMTP)

	runner := pipeline.NewRunner(
		registry,
		validator,
		scorer,
		store,
		storageClient,
		renderer,
		sender,
		cfg.Pipeline.JobGracePeriod,
		logger,
	)

	partnerService := partner.NewService(
		db,
		redisClient,
		cfg.Partner.TokenSecret,
		cfg.Partner.TokenTTL,
		cfg.Partner.DefaultRateLimit,
	)

	router := api.NewRouter(logger)
	api.RegisterRoutes(router, api.Deps{
		Registry:       registry,
		Runner:         runner,
		Store:          store,
		Renderer:       renderer,
		Signer:         storageClient,
		Mailer:         sender,
		Partners:       partnerService,
		AllowedOrigins: cfg.API.Origins(),
		MaxFiles:       cfg.Pipeline.MaxFiles,
		MaxFileSize:    cfg.Pipeline.MaxFileSize,
		PartnerTTL:     cfg.Partner.TokenTTL,
	})

	address := fmt.Sprintf(":%d", cfg.API.Port)
	logger.Info("api listening", slog.String("address", address))
	if err := router.Run(address); err != nil {
		log.Fatalf("failed to start api server: %v", err)
	}
}
