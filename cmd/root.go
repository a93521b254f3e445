package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/misterclayt0n/lazaro-timer/internal/config"
	"github.com/misterclayt0n/lazaro-timer/internal/logging"
	"github.com/misterclayt0n/lazaro-timer/internal/storage"
)

var (
	configPath string
	logLevel   string

	appConfig *config.Config
)

var rootCmd = &cobra.Command{
	Use:           "lazaro",
	Short:         "Workout timer for strength sets, EMOMs, AMRAPs, intervals and circuits",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if path == "" {
			var err error
			path, err = config.GetConfigPath()
			if err != nil {
				return fmt.Errorf("Failed to locate config: %w", err)
			}
		}

		cfg, err := config.Load(path)
		if err != nil {
			return err
		}
		if logLevel != "" {
			cfg.Log.Level = logLevel
		}
		appConfig = cfg

		logging.Setup(logging.LoggerSetupParams{
			LogFileName:   cfg.Log.File,
			LogToStdout:   cfg.Log.Stdout,
			LogLevel:      cfg.Log.Level,
			LogFormatJSON: cfg.Log.JSON,
		})
		logrus.WithField("command", cmd.Name()).Debug("starting")
		return nil
	},
}

func Execute() error {
	return rootCmd.Execute()
}

// openStorage connects to the configured history database.
func openStorage() (*storage.Storage, error) {
	if dir, err := config.GetConfigDir(); err == nil {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("Failed to create %s: %w", dir, err)
		}
	}
	st, err := storage.Open(appConfig.DB.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("Failed to open history: %w", err)
	}
	return st, nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.config/lazaro/config.toml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (trace|debug|info|warn|error)")
}
