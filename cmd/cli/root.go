// Package cli provides the command-line interface for the nexasec
// network discovery daemon. It implements the Cobra-based CLI
// structure with commands for running the daemon and inspecting the
// device inventory, network map, and local network facts.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/IRASUBIZA-SALY-NELSON/nexasec/internal/config"
	"github.com/IRASUBIZA-SALY-NELSON/nexasec/internal/logging"
)

var (
	cfgFile string
	verbose bool
)

// Build information - these will be set by ldflags during build.
var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "nexasec",
	Short: "Continuous Network Discovery",
	Long: `Nexasec continuously discovers the hosts on your local networks,
enriches them with hostnames, open ports, and a device classification,
and keeps a reconciled inventory in PostgreSQL. The daemon pairs a full
discovery cycle with a quick liveness loop so the inventory tracks
devices as they come and go.`,
	Version: getVersion(),
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	if err := viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose")); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to bind verbose flag: %v\n", err)
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("NEXASEC")

	setConfigDefaults()

	if err := viper.ReadInConfig(); err == nil {
		if verbose {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	}

	initLogging()
}

// setConfigDefaults sets default values for configuration.
func setConfigDefaults() {
	viper.SetDefault("store.host", "localhost")
	viper.SetDefault("store.port", 5432)
	viper.SetDefault("store.database", "nexasec")
	viper.SetDefault("store.username", "nexasec")
	viper.SetDefault("store.ssl_mode", "disable")

	viper.SetDefault("discovery.full_interval", "5m")
	viper.SetDefault("discovery.quick_interval", "1m")
	viper.SetDefault("discovery.offline_grace", "10m")

	viper.SetDefault("enrichment.worker_pool_size", 10)
	viper.SetDefault("enrichment.probe_timeout", "1s")

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "text")
	viper.SetDefault("logging.output", "stdout")
}

// getConfigFilePath returns the config file path chosen via flags or
// discovered by viper. An empty path makes config.Load fall back to
// defaults.
func getConfigFilePath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return viper.ConfigFileUsed()
}

// getVersion returns the version string.
func getVersion() string {
	return fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildTime)
}

// SetVersion sets the version information (called from main).
func SetVersion(v, c, bt string) {
	version = v
	commit = c
	buildTime = bt
	rootCmd.Version = getVersion()
}

// initLogging initializes structured logging based on configuration.
func initLogging() {
	cfg, err := config.Load(getConfigFilePath())
	if err != nil {
		logging.SetDefault(logging.NewDefault())
		return
	}

	logConfig := logging.Config{
		Level:     logging.LogLevel(cfg.Logging.Level),
		Format:    logging.LogFormat(cfg.Logging.Format),
		Output:    cfg.Logging.Output,
		AddSource: cfg.Logging.Level == "debug",
	}

	logger, err := logging.New(logConfig)
	if err != nil {
		logger = logging.NewDefault()
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize logging: %v\n", err)
	}
	logging.SetDefault(logger)

	if verbose {
		logging.Info("Structured logging initialized", "level", cfg.Logging.Level, "format", cfg.Logging.Format)
	}
}
