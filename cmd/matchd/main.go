package main

import (
	"context"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/cluegrid/cluegrid/internal/config"
	"github.com/cluegrid/cluegrid/internal/game/publish"
	"github.com/cluegrid/cluegrid/internal/game/registry"
	"github.com/cluegrid/cluegrid/internal/ingest"
	"github.com/cluegrid/cluegrid/internal/matchmaking"
	"github.com/cluegrid/cluegrid/internal/words"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	log.Info().
		Str("nats_url", cfg.NATSURL).
		Int("turn_timeout_sec", cfg.TurnTimeoutSec).
		Msg("starting match engine")

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	pool, err := words.NewFilePool(cfg.WordListPath, rand.New(rand.NewSource(time.Now().UnixNano()+1)))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load word pool")
	}
	log.Info().Int("words", pool.Size()).Msg("word pool loaded")

	jsCfg := publish.DefaultJetStreamConfig()
	jsCfg.URL = cfg.NATSURL
	publisher, err := publish.NewJetStreamPublisher(jsCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to setup event publisher")
	}
	defer publisher.Close()

	clock := clockwork.NewRealClock()
	reg := registry.New(pool, clock, publisher, registry.LogArchiver{}, cfg.GameConfig(), rng)
	defer reg.Close()

	queue := matchmaking.New(reg, publisher, clock, cfg.QueueConfig())

	ingestCfg := ingest.DefaultConfig()
	ingestCfg.URL = cfg.NATSURL
	consumer, err := ingest.NewConsumer(ingestCfg, queue, reg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to setup command consumer")
	}
	defer consumer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go queue.Run(ctx)

	go func() {
		if err := consumer.Start(ctx); err != nil {
			log.Error().Err(err).Msg("command consumer failed")
		}
	}()

	http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	server := &http.Server{
		Addr:         cfg.HealthAddr,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("health check server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("health check server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan

	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health check server shutdown failed")
	}

	cancel()
	log.Info().Msg("match engine shutdown complete")
}
