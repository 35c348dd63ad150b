package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"reservation-service/internal/api"
	"reservation-service/internal/config"
	"reservation-service/internal/kafka"
	"reservation-service/internal/redis"
	"reservation-service/internal/repository"
	"reservation-service/internal/service"
)

func main() {
	_ = godotenv.Load()

	cfg := config.LoadConfig()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	log.Logger = log.With().
		Str("service", cfg.ServiceName).
		Str("instance", cfg.InstanceID).
		Logger()

	log.Info().Str("environment", cfg.Environment).Msg("Starting reservation API")

	db, err := sqlx.Connect("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.DatabaseMaxConns)
	db.SetMaxIdleConns(cfg.DatabaseMaxIdleConns)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cache, err := redis.NewCache(ctx, redis.Config{
		Addrs:       cfg.RedisAddrs,
		Password:    cfg.RedisPassword,
		ClusterMode: cfg.RedisClusterMode,
		TTL:         cfg.RedisTTL,
		KeyPrefix:   cfg.RedisKeyPrefix,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to redis")
	}
	defer cache.Close()

	reservationRepo := repository.NewReservationRepository(db)
	itemRepo := repository.NewItemRepository(db)
	returnRepo := repository.NewReturnRepository(db)
	outboxRepo := repository.NewOutboxRepository(db)

	reservationSvc, err := service.NewReservationService(reservationRepo, itemRepo, service.ServiceConfig{
		MaxQuantityPerReservation: cfg.MaxQuantityPerReservation,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create reservation service")
	}

	factory := service.NewReplacementFactory(returnRepo)
	returnSvc := service.NewReturnService(reservationRepo, itemRepo, returnRepo, outboxRepo, factory, cache)
	itemSvc := service.NewItemQueryService(itemRepo, cache)

	publisher := kafka.NewPublisher(cfg.KafkaBrokers, cfg.KafkaNotificationsTopic)
	defer publisher.Close()

	go publisher.RunOutboxPublisher(ctx, outboxRepo, kafka.OutboxWorkerConfig{
		BatchSize:    cfg.OutboxBatchSize,
		PollInterval: cfg.OutboxPollInterval,
		LockKey:      cfg.OutboxLockKey,
	})

	handler := api.NewHandler(reservationSvc, returnSvc, itemSvc)
	server := &http.Server{
		Addr:    cfg.ServerAddr + ":" + cfg.ServerPort,
		Handler: handler.SetupRouter(),
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	log.Info().Msg("Reservation API stopped")
}
