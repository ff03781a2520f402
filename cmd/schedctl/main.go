package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/arnavshah/restaurant-scheduler-api/internal/config"
	"github.com/arnavshah/restaurant-scheduler-api/internal/logging"
	"github.com/arnavshah/restaurant-scheduler-api/pkg/scheduler"
)

// App holds the CLI dependencies
type App struct {
	cfg    *config.Config
	engine *scheduler.Engine
	logger *zap.Logger
}

var (
	configPath string
	app        *App
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "schedctl",
		Short: "Restaurant scheduler CLI",
		Long:  `Run the auto-scheduling engine on local files and issue API keys without a running server.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initApp()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if app != nil && app.logger != nil {
				app.logger.Sync()
			}
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file (defaults to SCHEDULER_CONFIG and the environment)")

	rootCmd.AddCommand(generateCmd())
	rootCmd.AddCommand(validateCmd())
	rootCmd.AddCommand(keygenCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// initApp loads config and builds the engine
func initApp() error {
	config.LoadDotEnv()

	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadFromPath(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logging.New(cfg.Env, "")
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	app = &App{
		cfg:    cfg,
		engine: scheduler.New(cfg.SchedulerOptions()),
		logger: logger,
	}
	return nil
}
