package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/TAESTUDIOS/psa3/cmd/psa/runtime"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"daemon"},
	Short:   "Run the PSA API server",
	Long:    `Starts the HTTP API with component lifecycle orchestration. With scheduler.enabled the ritual scheduler runs in-process on its cron spec.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			return fmt.Errorf("config not loaded")
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		// SIGINT and SIGTERM are handled by the daemon itself.
		r, err := runtime.NewRuntimeBuilder().
			WithContext(ctx).
			WithConfig(cfg).
			Build()
		if err != nil {
			return fmt.Errorf("failed to initialize runtime: %w", err)
		}
		defer r.Stop()

		err = r.Run()
		if err != nil {
			// Cancellation via signal/context is a graceful shutdown case for CLI.
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				slog.Info("PSA stopped gracefully")
				return nil
			}
			return fmt.Errorf("daemon failed: %w", err)
		}

		slog.Info("PSA stopped gracefully")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().Bool("scheduler.enabled", false, "run the ritual scheduler in-process")
	serveCmd.Flags().String("scheduler.timezone", "", "IANA timezone for schedule triggers")
}
