package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Domenick1991/tripbooking/config"
	"github.com/Domenick1991/tripbooking/internal/afs"
	"github.com/Domenick1991/tripbooking/internal/bootstrap"
	"github.com/Domenick1991/tripbooking/internal/cache"
	"github.com/Domenick1991/tripbooking/internal/kafka"
	"github.com/Domenick1991/tripbooking/internal/repository"
	"github.com/Domenick1991/tripbooking/internal/service/cancellation"
	"github.com/Domenick1991/tripbooking/internal/service/verification"
	"github.com/Domenick1991/tripbooking/migrations"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	logger := bootstrap.NewLogger(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	if cfg.Database.AutoMigrate {
		if err := migrations.Up(ctx, pool, logger); err != nil {
			log.Fatalf("migrate: %v", err)
		}
	}

	checks := map[string]bootstrap.HealthCheck{"postgres": pool.Ping}

	bookingRepo := repository.NewBookingRepository(pool)
	userRepo := repository.NewUserRepository(pool)
	afsClient := afs.NewClient(cfg.AFS, logger)

	opts := []cancellation.ServiceOption{
		cancellation.WithLogger(logger),
		cancellation.WithMaxConcurrency(cfg.Cancellation.MaxConcurrency),
	}

	if cfg.Redis.Addr != "" {
		locker := cache.NewRedisLocker(cfg.Redis)
		defer locker.Close()
		opts = append(opts, cancellation.WithLocker(locker, time.Duration(cfg.Cancellation.LockTTLSeconds)*time.Second))
		checks["redis"] = locker.Ping
	} else {
		logger.Warn("redis not configured, concurrent cancellations are not serialized")
	}

	if len(cfg.Kafka.Brokers) > 0 {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, logger)
		defer producer.Close()
		if err := producer.CheckConnection(ctx); err != nil {
			logger.Warn("kafka unreachable, notifications will be retried per message", "error", err)
		}
		notifier := kafka.NewNotifier(producer, cfg.Kafka.BookingEventsTopic, cfg.Kafka.NotificationsTopic)
		opts = append(opts, cancellation.WithNotifier(notifier, time.Duration(cfg.Notifications.TimeoutSeconds)*time.Second))
	} else {
		logger.Warn("kafka not configured, notifications disabled")
	}

	cancellationService := cancellation.NewService(bookingRepo, userRepo, afsClient, opts...)
	verificationService := verification.NewService(bookingRepo, userRepo, afsClient, logger, cfg.Cancellation.MaxConcurrency)

	err = bootstrap.Run(ctx, cfg, logger, cancellationService, verificationService, checks)
	cancellationService.Wait()
	if err != nil {
		log.Fatalf("server error: %v", err)
	}
	logger.Info("shutdown complete")
}
