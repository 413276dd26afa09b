package cmd

import (
	"fmt"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jtorrescarbajal/nhanes-diabetes-case-study/internal/report"
)

var reportInteraction bool

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Render the markdown findings report from the built tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireConfig(); err != nil {
			return err
		}
		df, err := readFrame(cfg.ProcessedPath)
		if err != nil {
			return fmt.Errorf("read processed table: %w", err)
		}
		af, err := readFrame(cfg.AnalysisPath)
		if err != nil {
			return fmt.Errorf("read analysis table: %w", err)
		}
		if err := runReport(df, af, reportInteraction); err != nil {
			return err
		}
		fmt.Printf("✓ Report written to %s\n", cfg.ReportPath)
		return nil
	},
}

// runReport computes the summaries and renders the markdown document with
// the configured figure references embedded.
func runReport(df, af dataframe.DataFrame, interaction bool) error {
	assocs, model, err := runAnalyze(af, interaction)
	if err != nil {
		return err
	}

	figures := make([]report.Figure, 0, len(cfg.Figures))
	for _, f := range cfg.Figures {
		figures = append(figures, report.Figure{Path: f.Path, Caption: f.Caption})
	}

	in := report.Input{
		BuildID:       report.NewBuildID(),
		Generated:     time.Now(),
		Cycle:         cfg.Cycle,
		Rows:          df.Nrow(),
		AnalysisRows:  af.Nrow(),
		ProcessedPath: cfg.ProcessedPath,
		AnalysisPath:  cfg.AnalysisPath,
		Figures:       figures,
		Associations:  assocs,
		Model:         model,
	}
	if err := report.Write(in, cfg.ReportPath); err != nil {
		return err
	}
	log.Info("report rendered",
		zap.String("build_id", in.BuildID), zap.String("path", cfg.ReportPath))
	return nil
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().BoolVar(&reportInteraction, "interaction", false, "include the age x BMI interaction term in the regression")
}
