package cmd

import (
	"fmt"
	"strconv"

	cfgpkg "github.com/jtorrescarbajal/nhanes-diabetes-case-study/internal/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set build configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			fmt.Println("No config loaded")
			return nil
		}
		fmt.Printf("cycle: %s\n", cfg.Cycle)
		fmt.Printf("base_url: %s\n", cfg.BaseURL)
		for _, c := range cfg.Categories {
			fmt.Printf("category: %s (%s)\n", c.Name, c.URL)
		}
		fmt.Printf("data_ext: %s\n", cfg.DataExt)
		fmt.Printf("download_dir: %s\n", cfg.DownloadDir)
		fmt.Printf("catalog_path: %s\n", cfg.CatalogPath)
		fmt.Printf("processed_path: %s\n", cfg.ProcessedPath)
		fmt.Printf("analysis_path: %s\n", cfg.AnalysisPath)
		fmt.Printf("report_path: %s\n", cfg.ReportPath)
		fmt.Printf("http_timeout_sec: %d\n", cfg.HTTPTimeoutSec)
		fmt.Printf("log_level: %s\n", cfg.LogLevel)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		if cfg == nil {
			c, err := cfgpkg.Load(cfgFile)
			if err != nil {
				return err
			}
			cfg = c
		}
		switch key {
		case "cycle":
			cfg.Cycle = val
		case "base_url":
			cfg.BaseURL = val
		case "data_ext":
			cfg.DataExt = val
		case "download_dir":
			cfg.DownloadDir = val
		case "catalog_path":
			cfg.CatalogPath = val
		case "processed_path":
			cfg.ProcessedPath = val
		case "analysis_path":
			cfg.AnalysisPath = val
		case "report_path":
			cfg.ReportPath = val
		case "http_timeout_sec":
			i, err := strconv.Atoi(val)
			if err != nil || i <= 0 {
				return fmt.Errorf("invalid int for http_timeout_sec: %v", val)
			}
			cfg.HTTPTimeoutSec = i
		case "log_level":
			switch val {
			case "debug", "info", "warn", "error":
				cfg.LogLevel = val
			default:
				return fmt.Errorf("invalid log_level: %s (use debug, info, warn, or error)", val)
			}
		default:
			return fmt.Errorf("unknown key: %s", key)
		}
		if err := cfgpkg.Save(cfg, cfgFile); err != nil {
			return err
		}
		fmt.Println("Saved config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
