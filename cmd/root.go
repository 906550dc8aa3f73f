package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/zalepa/crashmap/config"
	"github.com/zalepa/crashmap/crash"
	"github.com/zalepa/crashmap/loader"
	"github.com/zalepa/crashmap/logger"
)

var (
	configPath     string // Optional config file
	logLevel       string // Overrides LOG_LEVEL
	crashesPath    string // Overrides CRASHES_PATH
	boundariesPath string // Overrides BOUNDARIES_PATH

	cfg *config.Config
	log *logger.Logger
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:           "crashmap",
	Short:         "Per-area road crash statistics",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if logLevel != "" {
			c.Log.Level = logLevel
		}
		if crashesPath != "" {
			c.Data.CrashesPath = crashesPath
		}
		if boundariesPath != "" {
			c.Data.BoundariesPath = boundariesPath
		}
		cfg = c
		log = logger.New(c.Log.Level, c.Env)
		return nil
	},
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if log != nil {
			log.WithError(err).Error("command failed")
		} else {
			os.Stderr.WriteString("error: " + err.Error() + "\n")
		}
		os.Exit(1)
	}
}

// loadDataset reads the configured crash and boundary files.
func loadDataset() (*crash.Dataset, error) {
	return loader.Load(loader.Sources{
		CrashesPath:    cfg.Data.CrashesPath,
		BoundariesPath: cfg.Data.BoundariesPath,
		AreaProperty:   cfg.Data.AreaProperty,
		AreaColumn:     cfg.Data.AreaColumn,
	}, log.Component("loader"))
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (yaml, json, toml or env)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&crashesPath, "crashes", "", "Crash records file (.csv or .xlsx)")
	rootCmd.PersistentFlags().StringVar(&boundariesPath, "boundaries", "", "Area boundaries file (GeoJSON)")
}
