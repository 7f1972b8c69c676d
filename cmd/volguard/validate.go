package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration",
	Long:  `Validate the configuration without executing any backup operations.`,
	RunE:  validateConfig,
}

func validateConfig(cmd *cobra.Command, args []string) error {
	if configFile != "" {
		if _, err := os.Stat(configFile); os.IsNotExist(err) {
			log.Error().Str("file", configFile).Msg("config file not found")
			return fmt.Errorf("config file not found: %s", configFile)
		}
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Print configuration summary
	fmt.Println("Configuration is valid!")
	fmt.Println()
	fmt.Println("Summary:")
	fmt.Printf("  Destinations: %v\n", cfg.Destinations)
	if cfg.Schedule.Cron != "" {
		fmt.Printf("  Schedule: cron %q\n", cfg.Schedule.Cron)
	} else {
		fmt.Printf("  Schedule: every %s\n", cfg.Schedule.Interval)
	}
	fmt.Printf("  Archiver image: %s\n", cfg.Docker.Image)
	fmt.Println()
	fmt.Println("Retention Policy:")
	fmt.Printf("  Enabled: %v\n", cfg.Retention.Enabled)
	if cfg.Retention.Enabled {
		fmt.Printf("  Max age: %s\n", cfg.Retention.MaxAge)
		fmt.Printf("  Min count: %d\n", cfg.Retention.MinCount)
	}
	fmt.Println()
	fmt.Println("Optional Features:")
	fmt.Printf("  Notification: %v\n", cfg.Notify != nil)
	fmt.Printf("  Metrics: %v\n", cfg.Metrics != nil)

	if cfg.Docker.VolumeLabel != "" || len(cfg.Docker.Include) > 0 || len(cfg.Docker.Exclude) > 0 {
		fmt.Println()
		fmt.Println("Volume Filters:")
		if cfg.Docker.VolumeLabel != "" {
			fmt.Printf("  Label: %s\n", cfg.Docker.VolumeLabel)
		}
		if len(cfg.Docker.Include) > 0 {
			fmt.Printf("  Include: %v\n", cfg.Docker.Include)
		}
		if len(cfg.Docker.Exclude) > 0 {
			fmt.Printf("  Exclude: %v\n", cfg.Docker.Exclude)
		}
	}

	if cfg.Notify != nil {
		fmt.Println()
		fmt.Println("Notification:")
		fmt.Printf("  Endpoint: %s\n", cfg.Notify.Endpoint)
		fmt.Printf("  Timeout: %s\n", cfg.Notify.Timeout)
	}

	if cfg.Metrics != nil {
		fmt.Println()
		fmt.Println("Metrics:")
		fmt.Printf("  Listen address: %s\n", cfg.Metrics.ListenAddr)
	}

	return nil
}
