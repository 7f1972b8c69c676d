package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tbruckner/volguard/internal/services/notify"
	"github.com/tbruckner/volguard/internal/services/runner"
)

var onceCmd = &cobra.Command{
	Use:   "once",
	Short: "Execute a single backup cycle and exit",
	Long: `Execute exactly one backup cycle, deliver its report, and exit.
Intended for use with an external scheduler (cron, systemd timer, etc.)`,
	RunE: runOnce,
}

func runOnce(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Warn().Str("signal", sig.String()).Msg("received signal, shutting down")
		cancel()
	}()

	runnerSvc, err := runner.New(log.Logger, nil)
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize backup runner")
		return err
	}

	report := runnerSvc.RunCycle(ctx, *cfg)
	if report.Empty() {
		log.Info().Msg("backup cycle produced no events")
		return nil
	}

	if cfg.Notify == nil {
		log.Info().Str("report", report.Join()).Msg("cycle report")
		return nil
	}

	notifySvc := notify.New(log.Logger)
	result, err := notifySvc.Send(ctx, *cfg.Notify, report.Join())
	if err == nil && result.Error != nil {
		err = result.Error
	}
	if err != nil {
		log.Error().Err(err).Msg("failed to deliver cycle report")
	}

	return nil
}
