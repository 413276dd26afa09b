package cmd

import (
	"fmt"

	"github.com/go-gota/gota/dataframe"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jtorrescarbajal/nhanes-diabetes-case-study/internal/catalog"
	"github.com/jtorrescarbajal/nhanes-diabetes-case-study/internal/dataset"
	"github.com/jtorrescarbajal/nhanes-diabetes-case-study/internal/pipeline"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Join and recode the downloaded tables into the processed and analysis CSVs",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireConfig(); err != nil {
			return err
		}
		df, af, err := runBuild()
		if err != nil {
			return err
		}
		fmt.Printf("✓ Build complete: %d respondents -> %s, %d analysis rows -> %s\n",
			df.Nrow(), cfg.ProcessedPath, af.Nrow(), cfg.AnalysisPath)
		return nil
	},
}

// runBuild loads every downloaded table, runs the join/derive plan, and
// writes both the processed table and the filtered analysis table.
func runBuild() (dataframe.DataFrame, dataframe.DataFrame, error) {
	var zero dataframe.DataFrame

	labels := map[string]string{}
	if cat, err := catalog.LoadFile(cfg.CatalogPath); err != nil {
		log.Warn("catalog unavailable, using raw dataset codes as names",
			zap.String("path", cfg.CatalogPath), zap.Error(err))
	} else {
		labels = cat.Labels
	}

	tables, err := dataset.LoadDir(cfg.DownloadDir, labels)
	if err != nil {
		return zero, zero, fmt.Errorf("load tables: %w", err)
	}
	log.Info("tables loaded",
		zap.Int("count", len(tables)), zap.Strings("codes", dataset.Codes(tables)))

	plan := pipeline.DefaultPlan(cfg.Cycle)
	df, err := pipeline.Run(plan, tables)
	if err != nil {
		return zero, zero, fmt.Errorf("build table: %w", err)
	}
	if err := pipeline.WriteCSV(df, cfg.ProcessedPath); err != nil {
		return zero, zero, fmt.Errorf("write processed table: %w", err)
	}

	af, err := pipeline.AnalysisFrame(df, plan)
	if err != nil {
		return zero, zero, fmt.Errorf("build analysis table: %w", err)
	}
	if err := pipeline.WriteCSV(af, cfg.AnalysisPath); err != nil {
		return zero, zero, fmt.Errorf("write analysis table: %w", err)
	}
	log.Info("tables written",
		zap.Int("rows", df.Nrow()), zap.Int("analysis_rows", af.Nrow()))
	return df, af, nil
}

func init() {
	rootCmd.AddCommand(buildCmd)
}
