package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"reservation-service/internal/config"
	"reservation-service/internal/kafka"
	"reservation-service/internal/notifier"
)

func main() {
	_ = godotenv.Load()

	cfg := config.LoadConfig()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if !cfg.IsProduction() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	log.Logger = log.With().
		Str("service", cfg.ServiceName+"-notifier").
		Str("instance", cfg.InstanceID).
		Logger()

	log.Info().
		Str("environment", cfg.Environment).
		Strs("brokers", cfg.KafkaBrokers).
		Str("topic", cfg.KafkaNotificationsTopic).
		Str("group", cfg.KafkaConsumerGroup).
		Msg("Starting notification dispatcher")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	consumer := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaNotificationsTopic, cfg.KafkaConsumerGroup)
	defer consumer.Close()

	dispatcher := notifier.NewDispatcher(cfg.ServiceName)

	healthServer := &http.Server{
		Addr: cfg.ServerAddr + ":" + cfg.ServerPort,
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/health" {
				http.NotFound(w, r)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"status":"healthy"}`))
		}),
	}
	go func() {
		if err := healthServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Health server failed")
		}
	}()

	if err := consumer.ConsumeNotifications(ctx, dispatcher); err != nil {
		log.Error().Err(err).Msg("Consumer stopped with error")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := healthServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Health server shutdown failed")
	}

	log.Info().Msg("Notification dispatcher stopped")
}
