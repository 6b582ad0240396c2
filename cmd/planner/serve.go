package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/digkill/ContentPlanner/internal/api"
	"github.com/digkill/ContentPlanner/internal/auth"
	"github.com/digkill/ContentPlanner/internal/config"
	"github.com/digkill/ContentPlanner/internal/database"
	"github.com/digkill/ContentPlanner/internal/repository"
	"github.com/digkill/ContentPlanner/internal/service"
	"github.com/digkill/ContentPlanner/internal/storage"
	"github.com/digkill/ContentPlanner/pkg/errtrack"
	"github.com/digkill/ContentPlanner/pkg/logger"
)

func serveCmd() *cobra.Command {
	var skipMigrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			if err := cfg.Require("SESSION_SECRET"); err != nil {
				return err
			}
			return serve(cfg, !skipMigrate)
		},
	}

	cmd.Flags().BoolVar(&skipMigrate, "skip-migrate", false, "Do not create missing tables on startup")

	return cmd
}

func serve(cfg config.Config, migrate bool) error {
	logr := logger.New(cfg.LogLevel)

	if err := errtrack.Init(cfg.SentryDSN, cfg.Env); err != nil {
		logr.Warn("sentry initialization failed", "err", err)
	}
	defer errtrack.Flush()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db := database.NewHandle(cfg.MySQLDSN)
	defer db.Close()
	if !db.Configured() {
		logr.Warn("no database configured, store-backed procedures will be unavailable")
	} else if migrate {
		// An unreachable store is not fatal: the handle reconnects on demand.
		if err := database.Migrate(ctx, db); err != nil {
			logr.Error("database migrate", "err", err)
		}
	}

	revoker, closeRevoker := newRevoker(ctx, cfg, logr)
	defer closeRevoker()

	var proofs service.ProofStorage
	if cfg.StorageEnabled() {
		uploader, err := storage.NewUploader(storage.Config{
			Endpoint:      cfg.S3Endpoint,
			Region:        cfg.S3Region,
			AccessKey:     cfg.S3AccessKey,
			SecretKey:     cfg.S3SecretKey,
			Bucket:        cfg.S3Bucket,
			PublicBaseURL: cfg.S3PublicBaseURL,
			UsePathStyle:  cfg.S3UsePathStyle,
			Prefix:        cfg.S3Prefix,
		})
		if err != nil {
			return fmt.Errorf("storage uploader: %w", err)
		}
		proofs = uploader
	} else {
		logr.Info("proof storage not configured, uploads disabled")
	}

	userRepo := repository.NewUserRepository(db)
	subscriptionRepo := repository.NewSubscriptionRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	contentRepo := repository.NewContentRepository(db)
	templateRepo := repository.NewTemplateRepository(db)

	planService := service.NewPlanService(cfg)
	subscriptionService := service.NewSubscriptionService(logr, subscriptionRepo)

	server := api.NewServer(api.Options{
		Addr:           cfg.HTTPListenAddr,
		RequestTimeout: cfg.RequestTimeout,
		CookieSecure:   cfg.CookieSecure,
	}, logr, auth.NewSessions(cfg.SessionSecret, cfg.SessionTTL), revoker, api.Services{
		Users:         service.NewUserService(logr, userRepo, cfg.OwnerOpenID),
		Payments:      service.NewPaymentService(logr, paymentRepo, subscriptionService, planService, proofs),
		Subscriptions: subscriptionService,
		Plans:         planService,
		Content:       service.NewContentService(logr, contentRepo, templateRepo),
		Templates:     service.NewTemplateService(logr, templateRepo),
	})

	if err := server.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logr.Error("api stopped", "err", err)
		return err
	}
	return nil
}

func newRevoker(ctx context.Context, cfg config.Config, logr *slog.Logger) (auth.Revoker, func()) {
	if cfg.RedisAddr == "" {
		return auth.NoopRevoker{}, func() {}
	}
	revoker, err := auth.NewRedisRevoker(ctx, auth.RedisConfig{
		Address:  cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		logr.Warn("redis unavailable, logout will not revoke sessions", "err", err)
		return auth.NoopRevoker{}, func() {}
	}
	return revoker, func() { _ = revoker.Close() }
}
