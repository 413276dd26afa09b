package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jtorrescarbajal/nhanes-diabetes-case-study/internal/catalog"
	"github.com/jtorrescarbajal/nhanes-diabetes-case-study/internal/download"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Scrape the CDC data listings and download the survey transport files",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireConfig(); err != nil {
			return err
		}
		_, stats, err := runFetch()
		if err != nil {
			return err
		}
		fmt.Printf("✓ Fetch complete: %d downloaded, %d skipped, %d failed\n",
			stats.Downloaded, stats.Skipped, stats.Failed)
		return nil
	},
}

// runFetch scrapes every configured category listing, persists the merged
// catalog, and downloads whatever data files are not already on disk.
func runFetch() (*catalog.Catalog, download.Stats, error) {
	client := httpClient()
	cat := catalog.New()
	for _, c := range cfg.Categories {
		log.Info("fetching listing", zap.String("category", c.Name), zap.String("url", c.URL))
		part, err := catalog.Fetch(client, c.URL, cfg.DataExt)
		if err != nil {
			return nil, download.Stats{}, fmt.Errorf("fetch %s listing: %w", c.Name, err)
		}
		catalog.Merge(cat, part)
	}
	log.Info("catalog assembled",
		zap.Int("files", len(cat.Files)), zap.Int("labels", len(cat.Labels)))
	if err := cat.Save(cfg.CatalogPath); err != nil {
		return nil, download.Stats{}, fmt.Errorf("save catalog: %w", err)
	}

	stats := download.All(client, cat.Files, cfg.DownloadDir, log)
	return cat, stats, nil
}

func init() {
	rootCmd.AddCommand(fetchCmd)
}
