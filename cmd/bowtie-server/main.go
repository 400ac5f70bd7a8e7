package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/ecorisk/bowtie/pkg/api"
	"github.com/ecorisk/bowtie/pkg/auth"
	"github.com/ecorisk/bowtie/pkg/backup"
	"github.com/ecorisk/bowtie/pkg/config"
	"github.com/ecorisk/bowtie/pkg/inference"
	"github.com/ecorisk/bowtie/pkg/layers"
	"github.com/ecorisk/bowtie/pkg/logging"
	"github.com/ecorisk/bowtie/pkg/metrics"
	"github.com/ecorisk/bowtie/pkg/server"
	"github.com/ecorisk/bowtie/pkg/vocab"
	"github.com/ecorisk/bowtie/pkg/workflow"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	port := flag.Int("port", 0, "HTTP port (overrides config)")
	flag.Parse()

	logger := logging.DefaultLogger().With(logging.Component("bowtie-server"))

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("config load failed", logging.Error(err))
		os.Exit(1)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}

	deps, cleanup, err := buildDeps(cfg, logger)
	if err != nil {
		logger.Error("startup failed", logging.Error(err))
		os.Exit(1)
	}
	defer cleanup()

	srv := api.NewServer(deps)
	addr := fmt.Sprintf(":%d", cfg.Server.Port)

	logger.Info("bowtie service starting",
		logging.String("addr", addr),
		logging.Bool("auth", cfg.Auth.Enabled),
		logging.Bool("postgres", cfg.Database.URL != ""))

	gs := server.NewGracefulServer(addr, srv.Handler(), logger)
	if err := gs.Start(); err != nil {
		logger.Error("server error", logging.Error(err))
		os.Exit(1)
	}
}

func buildDeps(cfg *config.Config, logger logging.Logger) (api.Deps, func(), error) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	deps := api.Deps{
		Logger:      logger,
		Metrics:     metrics.Default(),
		CacheSize:   cfg.Cache.MaxEntries,
		CORSOrigins: cfg.Server.CORSOriginList(),
	}
	cleanup := func() {}

	if cfg.Vocab.Path != "" {
		vocabulary, err := vocab.Load(cfg.Vocab.Path)
		if err != nil {
			return deps, cleanup, fmt.Errorf("load vocabulary: %w", err)
		}
		logger.Info("vocabulary loaded",
			logging.Path(cfg.Vocab.Path),
			logging.Count(vocabulary.TermCount()))
		deps.Vocabulary = vocabulary
	}

	if cfg.Database.URL != "" {
		store, err := workflow.NewPGStore(ctx, cfg.Database.URL)
		if err != nil {
			return deps, cleanup, fmt.Errorf("connect postgres: %w", err)
		}
		deps.Store = store
		cleanup = func() { store.Close() }
	}

	deps.Catalog = layers.NewCatalog(cfg.Layers.WMSBaseURL,
		logger.With(logging.Component("layers")))

	deps.Inference = inference.NewService(nil, nil, inference.Capabilities{
		BayesNet:     cfg.Inference.BayesNet,
		RandomForest: cfg.Inference.RandomForest,
		GBM:          cfg.Inference.GBM,
		XGBoost:      cfg.Inference.XGBoost,
	}, logger.With(logging.Component("inference")))

	if cfg.Backup.S3Bucket != "" {
		uploader, err := backup.New(ctx, backup.Options{
			Bucket:    cfg.Backup.S3Bucket,
			Region:    cfg.Backup.S3Region,
			Prefix:    cfg.Backup.S3Prefix,
			AccessKey: cfg.Backup.AccessKey,
			SecretKey: cfg.Backup.SecretKey,
		}, logger.With(logging.Component("backup")))
		if err != nil {
			return deps, cleanup, fmt.Errorf("configure backup: %w", err)
		}
		deps.Uploader = uploader
	}

	if cfg.Auth.Enabled {
		jwtManager, err := auth.NewJWTManager(cfg.Auth.JWTSecret, 24*time.Hour)
		if err != nil {
			return deps, cleanup, fmt.Errorf("configure auth: %w", err)
		}
		users := auth.NewUserStore()
		if password := os.Getenv("BOWTIE_ADMIN_PASSWORD"); password != "" {
			if _, err := users.CreateUser("admin", password, auth.RoleAdmin); err != nil {
				return deps, cleanup, fmt.Errorf("create admin user: %w", err)
			}
		}
		deps.JWT = jwtManager
		deps.Users = users
	}

	return deps, cleanup, nil
}
