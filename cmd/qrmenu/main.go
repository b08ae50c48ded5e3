// Command qrmenu runs the QR menu service and its maintenance tasks.
package main

import (
	"fmt"
	"os"

	"github.com/fekuna/omnipos-qrmenu/config"
	"github.com/fekuna/omnipos-qrmenu/internal/logger"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	// envFile is set by the --env-file flag.
	envFile string

	cfg       *config.Config
	appLogger logger.ZapLogger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:               "qrmenu",
	Short:             "Restaurant QR menu service",
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if appLogger != nil {
			_ = appLogger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(sweepCmd)
}

// setup loads configuration and the logger shared by every command.
func setup(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load(envFile) // optional

	cfg = config.LoadEnv()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logConfig := &logger.ZapLoggerConfig{
		IsDevelopment:     false,
		Encoding:          "json",
		Level:             cfg.Logger.Level,
		DisableCaller:     cfg.Logger.DisableCaller,
		DisableStacktrace: cfg.Logger.DisableStacktrace,
	}
	if cfg.IsDevelopment() {
		logConfig.IsDevelopment = true
		logConfig.Encoding = cfg.Logger.Encoding
	}
	appLogger = logger.NewZapLogger(logConfig)
	return nil
}
