package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var runInteraction bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the whole report build: fetch, build, report",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireConfig(); err != nil {
			return err
		}
		_, stats, err := runFetch()
		if err != nil {
			return err
		}
		df, af, err := runBuild()
		if err != nil {
			return err
		}
		if err := runReport(df, af, runInteraction); err != nil {
			return err
		}
		fmt.Printf("✓ Report build complete: %d downloaded, %d skipped, %d failed; %d respondents; report at %s\n",
			stats.Downloaded, stats.Skipped, stats.Failed, df.Nrow(), cfg.ReportPath)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().BoolVar(&runInteraction, "interaction", false, "include the age x BMI interaction term in the regression")
}
