package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tbruckner/volguard/internal/config"
	"github.com/tbruckner/volguard/internal/metrics"
	"github.com/tbruckner/volguard/internal/models"
	"github.com/tbruckner/volguard/internal/services/notify"
	"github.com/tbruckner/volguard/internal/services/runner"
	"github.com/tbruckner/volguard/internal/services/scheduler"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the backup daemon",
	Long: `Run backup cycles on the configured schedule until terminated:
1. Discover local container volumes
2. Archive every volume into every destination directory
3. Prune expired archives per the retention policy
4. Deliver the cycle report to the notification endpoint`,
	RunE: runDaemon,
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log.Info().
		Strs("destinations", cfg.Destinations).
		Bool("retention", cfg.Retention.Enabled).
		Msg("configuration loaded")

	// Set up context with signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Warn().Str("signal", sig.String()).Msg("received signal, shutting down")
		cancel()
	}()

	registry := metrics.NewRegistry()
	if cfg.Metrics != nil {
		go serveMetrics(cfg.Metrics.ListenAddr, registry)
	}

	runnerSvc, err := runner.New(log.Logger, registry)
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize backup runner")
		return err
	}

	schedulerSvc := scheduler.New(log.Logger, runnerSvc, notify.New(log.Logger), registry)
	if err := schedulerSvc.Run(ctx, *cfg); err != nil {
		log.Error().Err(err).Msg("scheduler failed")
		return err
	}

	log.Info().Msg("backup daemon stopped")
	return nil
}

func serveMetrics(addr string, registry *metrics.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", registry.Handler())

	log.Info().Str("addr", addr).Msg("metrics listener started")
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Error().Err(err).Msg("metrics listener failed")
	}
}

// loadConfig loads configuration from the --config file, or from the
// environment alone when no file is given, and fails fast on invalid values.
func loadConfig() (*models.Config, error) {
	parser := config.NewParser()

	if configFile == "" {
		cfg, err := parser.LoadEnv()
		if err != nil {
			log.Error().Err(err).Msg("failed to load config from environment")
			return nil, err
		}
		return cfg, nil
	}

	cfg, err := parser.LoadFile(configFile)
	if err != nil {
		log.Error().Err(err).Str("file", configFile).Msg("failed to load config")
		return nil, err
	}
	return cfg, nil
}
