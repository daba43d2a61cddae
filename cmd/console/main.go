package main

import (
	"fmt"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/skybi/reservation-console/internal/api"
	"github.com/skybi/reservation-console/internal/config"
	"github.com/skybi/reservation-console/internal/gateway"
	"github.com/skybi/reservation-console/internal/session/storage/inmem"
	"os"
	"os/signal"
)

func main() {
	// Set up zerolog to use pretty printing
	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out: os.Stderr,
	})
	log.Info().Msg("starting up...")

	// Load the application configuration
	log.Info().Msg("loading configuration...")
	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("could not load the configuration")
	}
	if cfg.IsEnvProduction() {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Debug().Str("config", fmt.Sprintf("%+v", cfg)).Msg("")

	// Create the metrics registry every component reports to
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Create the backend gateway
	log.Info().Str("backend", cfg.APIBaseURL).Msg("creating backend gateway...")
	caller := gateway.New(cfg.APIBaseURL,
		gateway.WithTimeout(cfg.RequestTimeout),
		gateway.WithMetrics(gateway.NewMetrics(registry)),
	)

	// Initialize the tab token storage
	storage, err := inmem.New(cfg.TabLifetime)
	if err != nil {
		log.Fatal().Err(err).Msg("could not initialize the tab token storage")
	}

	// Start up the console API
	log.Info().Str("console_api", cfg.ConsoleListenAddress).Msg("starting up console API...")
	apis := &api.Service{
		Config:   cfg,
		Caller:   caller,
		Storage:  storage,
		Gatherer: registry,
	}
	apiErrs := make(chan error, 1)
	apis.Startup(apiErrs)
	go func() {
		err := <-apiErrs
		log.Fatal().Err(err).Msg("the API service raised an unexpected error")
	}()
	defer func() {
		log.Info().Msg("shutting down the console API...")
		apis.Shutdown()
	}()

	log.Info().Msg("done!")
	defer log.Info().Msg("shutting down...")

	// Wait for the application to be terminated
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt)
	<-shutdown
}
