package cmd

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	cfgpkg "github.com/jtorrescarbajal/nhanes-diabetes-case-study/internal/config"
	"github.com/jtorrescarbajal/nhanes-diabetes-case-study/internal/logging"
)

var (
	// Global flags (wired to config/viper)
	cfgFile string
	debug   bool
	// HTTP flag (overrides config if set)
	flagHTTPTimeoutSec int

	// Loaded configuration and logger
	cfg *cfgpkg.Global
	log *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "nhanes",
	Short: "NHANES diabetes case study: fetch survey data, build the analysis table, write the report",
	Long: `nhanes drives a reproducible public-health case study over the NHANES
August 2021 - August 2023 release: it scrapes the CDC data listings, downloads
the transport files, joins and recodes them into one respondent-level table,
computes the diabetes association and regression summaries, and renders the
markdown findings report.`,
}

// Execute is the entry point called by main.main()
func Execute() {
	// Initialize configuration and logging before executing commands
	cobra.OnInitialize(initRun)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
	if log != nil {
		_ = log.Sync()
	}
}

func init() {
	// Persistent global flags available to all subcommands
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./nhanes.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug output")
	rootCmd.PersistentFlags().IntVar(&flagHTTPTimeoutSec, "http-timeout", 0, "HTTP client timeout in seconds (overrides config)")
}

func initRun() {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: commands fail with a clearer error when they need config
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		return
	}
	cfg = c

	// Apply CLI overrides if provided
	f := rootCmd.PersistentFlags()
	if f.Changed("http-timeout") && flagHTTPTimeoutSec > 0 {
		cfg.HTTPTimeoutSec = flagHTTPTimeoutSec
	}

	l, err := logging.New(cfg.LogLevel, debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to build logger: %v\n", err)
		l = zap.NewNop()
	}
	log = l
}

// requireConfig guards subcommands that cannot run without a loaded config.
func requireConfig() error {
	if cfg == nil {
		return fmt.Errorf("configuration not loaded; see the warning above")
	}
	return nil
}

func httpClient() *http.Client {
	return &http.Client{Timeout: time.Duration(cfg.HTTPTimeoutSec) * time.Second}
}
