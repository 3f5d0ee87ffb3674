// Command gateway serves draft spectators. It relays events from JetStream
// and answers state queries from the database; intents are only accepted by
// the main server, which owns the live drafts.
package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/budgetdraft/go/internal/dbconfig"
	"github.com/mcdev12/budgetdraft/go/internal/draft/gateway"
	"github.com/mcdev12/budgetdraft/go/internal/draft/orchestrator"
	"github.com/mcdev12/budgetdraft/go/internal/draft/repository"
)

type gatewayEnv struct {
	Port           string   `env:"GATEWAY_PORT" envDefault:"8082"`
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
	JetStream      gateway.JetStreamConsumerConfig
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg := gatewayEnv{JetStream: gateway.DefaultJetStreamConsumerConfig()}
	if err := env.Parse(&cfg); err != nil {
		log.Fatal().Err(err).Msg("failed to parse gateway env")
	}
	dbCfg, err := dbconfig.NewConfigFromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load database config")
	}

	database, err := sql.Open("postgres", dbCfg.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer database.Close()
	if err := database.Ping(); err != nil {
		log.Fatal().Err(err).Msg("failed to ping database")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo := repository.NewRepository(database)
	cat, err := repo.LoadCatalog(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load catalog")
	}

	log.Info().
		Str("database", dbCfg.Database).
		Str("nats_url", cfg.JetStream.URL).
		Str("port", cfg.Port).
		Int("catalog_items", cat.Len()).
		Msg("starting draft gateway")

	gatewayConfig := gateway.DefaultConfig()
	gatewayConfig.JetStreamConfig = cfg.JetStream
	gatewayConfig.ConsumeJetStream = true

	state := gateway.NewStoredStateProvider(repo, cat)
	gatewayService, err := gateway.NewService(ctx, gatewayConfig, state, nil, orchestrator.Settings{})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create gateway service")
	}

	mux := http.NewServeMux()
	gatewayService.RegisterRoutes(mux)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           gateway.NewCORS(cfg.AllowedOrigins).Handler(mux),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serviceDone := make(chan struct{})
	go func() {
		defer close(serviceDone)
		if err := gatewayService.Start(ctx); err != nil {
			log.Error().Err(err).Msg("gateway service failed")
		}
	}()

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}
	<-serviceDone

	log.Info().Msg("draft gateway shutdown complete")
}
