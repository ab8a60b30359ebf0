package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"photo-indexer/internal/logging"
	"photo-indexer/internal/startup"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		logging.Error("%v", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	v, envErr := startup.NewViper()

	serve := newServeCommand(v)
	root := &cobra.Command{
		Use:           "photo-indexer",
		Short:         "Keep a SQLite index of a year/month photo library in sync",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serve.RunE,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return envErr
		},
	}

	flags := root.PersistentFlags()
	flags.String("library", "", "photo library root (LIBRARY_PATH)")
	flags.String("database-dir", "/database", "directory holding images.db (DATABASE_DIR)")
	flags.Int("lookback", 3, "month directories checked at startup (LOOKBACK_MONTHS)")
	flags.Duration("settle", 2*time.Second, "quiet period before a new file is indexed (WATCH_SETTLE)")
	flags.String("port", "8080", "admin HTTP port (PORT)")
	flags.String("metrics-port", "9090", "Prometheus metrics port (METRICS_PORT)")
	flags.String("log-file", "", "also write logs to this rotated file (LOG_FILE)")

	bindings := map[string]string{
		startup.KeyLibraryPath: "library",
		startup.KeyDatabaseDir: "database-dir",
		startup.KeyLookback:    "lookback",
		startup.KeyWatchSettle: "settle",
		startup.KeyPort:        "port",
		startup.KeyMetricsPort: "metrics-port",
		startup.KeyLogFile:     "log-file",
	}
	for key, flag := range bindings {
		if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			logging.Fatal("failed to bind flag --%s: %v", flag, err)
		}
	}

	root.AddCommand(serve, newProvisionCommand(v), newVersionCommand())
	return root
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Run: func(cmd *cobra.Command, _ []string) {
			info := startup.GetBuildInfo()
			cmd.Printf("photo-indexer %s (commit %s, built %s, %s %s/%s)\n",
				info.Version, info.Commit, info.BuildTime, info.GoVersion, info.OS, info.Arch)
		},
	}
}

// loadConfig reads the configuration and applies the logging settings.
func loadConfig(v *viper.Viper) (*startup.Config, error) {
	config, err := startup.LoadConfig(v)
	if err != nil {
		return nil, err
	}
	if err := logging.Configure(config.Log); err != nil {
		return nil, err
	}
	return config, nil
}
