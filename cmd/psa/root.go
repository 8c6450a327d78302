package main

import (
	"fmt"
	"io"
	"os"

	"github.com/TAESTUDIOS/psa3/internal/config"
	"github.com/TAESTUDIOS/psa3/internal/logger"

	"github.com/spf13/cobra"
)

var (
	cfgFile   string
	cfg       *config.Config
	logCloser io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "psa",
	Short: "PSA personal assistant backend",
	Long:  `PSA serves the assistant API: chat, rituals, the morning briefing, appointments and urgent todos.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cmd)
		if err != nil {
			return err
		}

		logCloser = logger.SetupWithOptions(logger.Options{
			Level: cfg.Server.LogLevel,
			File:  cfg.Server.LogFile,
		})
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if logCloser != nil {
			return logCloser.Close()
		}
		return nil
	},
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.psa/config.yaml)")
	rootCmd.PersistentFlags().String("server.log_level", config.DefaultServerLogLevel, "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Int("server.port", config.DefaultServerPort, "server port")
	rootCmd.PersistentFlags().String("store.driver", config.DefaultStoreDriver, "store backend (memory, file, postgres)")
}
