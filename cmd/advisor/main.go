// Command advisor serves the smart crop advisory page and exposes its
// lookups, voice features and alerts on the command line.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/LeonardoBeccarini/smartcrop_advisory/internal/config"
	"github.com/LeonardoBeccarini/smartcrop_advisory/internal/logging"
)

var (
	configPath string
	logLevel   string
	devLog     bool

	cfg    config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "advisor",
	Short: "Smart crop advisory: recommendations, weather, mandi prices and alerts",
	Long: `advisor talks to the crop advisory backend and renders its answers.

Run "advisor serve" for the HTTP page surface, or use the lookup commands
(recommend, weather, market) and the alert commands directly.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if logLevel != "" {
			cfg.Log.Level = logLevel
		}
		if devLog {
			cfg.Log.Development = true
		}
		logger, err = logging.New(cfg.Log.Level, cfg.Log.Development)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&devLog, "dev", false, "human-readable console logs")

	rootCmd.AddCommand(serveCmd, recommendCmd, weatherCmd, marketCmd, alertCmd, readPageCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
