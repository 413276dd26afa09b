package cmd

import (
	"fmt"
	"os"

	"github.com/go-gota/gota/dataframe"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jtorrescarbajal/nhanes-diabetes-case-study/internal/stats"
)

var analyzeInteraction bool

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Compute the association and logistic-regression summaries and print them",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireConfig(); err != nil {
			return err
		}
		af, err := readFrame(cfg.AnalysisPath)
		if err != nil {
			return fmt.Errorf("read analysis table: %w", err)
		}
		assocs, model, err := runAnalyze(af, analyzeInteraction)
		if err != nil {
			return err
		}
		printAnalysis(assocs, model)
		return nil
	},
}

// Contingency rows and columns follow the declared level order, with the
// exposed group and the outcome of interest first, so the relative risk reads
// as risk of the outcome in the exposed group versus the unexposed one.
var (
	outcomeDiabetes = stats.Variable{Name: "DiabetesStatus", Levels: []string{"Diabetes", "No Diabetes"}}

	associationExposures = []stats.Variable{
		{Name: "Hypertension", Levels: []string{"Hypertension", "No Hypertension"}},
		{Name: "Insurance", Levels: []string{"Uninsured", "Insured"}},
		{Name: "Gender", Levels: []string{"Female", "Male"}},
	}
)

// runAnalyze computes every reported summary over the analysis table. Rows
// with a borderline or missing diabetes answer are dropped per summary, which
// is why dropNA is always set here.
func runAnalyze(af dataframe.DataFrame, interaction bool) ([]*stats.AssociationResult, *stats.LogisticResult, error) {
	assocs := make([]*stats.AssociationResult, 0, len(associationExposures))
	for _, exposure := range associationExposures {
		res, err := stats.Association(af, exposure, outcomeDiabetes, true)
		if err != nil {
			return nil, nil, fmt.Errorf("association %s x %s: %w", exposure.Name, outcomeDiabetes.Name, err)
		}
		assocs = append(assocs, res)
	}

	// The analysis table keeps only the two central age groups, so the age
	// predictor is binary here even though the processed table has four.
	outcome := stats.Variable{Name: "DiabetesStatus", Levels: []string{"No Diabetes", "Diabetes"}}
	age := stats.Variable{Name: "AgeGroup", Levels: []string{"Young Adults", "Middle Aged"}}
	bmi := stats.Variable{Name: "BMIClass", Levels: []string{
		"Normal Weight", "Underweight", "Overweight", "Obesity I", "Obesity II", "Obesity III",
	}}
	model, err := stats.Logistic(af, outcome, age, bmi, interaction, true)
	if err != nil {
		return nil, nil, fmt.Errorf("logistic %s ~ %s + %s: %w", outcome.Name, age.Name, bmi.Name, err)
	}
	log.Info("summaries computed",
		zap.Int("associations", len(assocs)), zap.Int("model_terms", len(model.Terms)))
	return assocs, model, nil
}

func printAnalysis(assocs []*stats.AssociationResult, model *stats.LogisticResult) {
	for _, a := range assocs {
		fmt.Printf("%s x %s (n=%d): chi2=%.3f df=%d p=%.4g V=%.3f RR=%.3f (95%% CI %.3f-%.3f)\n",
			a.Exposure, a.Outcome, a.N, a.ChiSquare, a.DF, a.PValue, a.CramersV,
			a.RelativeRisk, a.RRLower, a.RRUpper)
	}
	fmt.Printf("logistic model (outcome ref %s), n=%d, %d iterations:\n",
		model.OutcomeRef, model.N, model.Iterations)
	for _, t := range model.Terms {
		fmt.Printf("  %-40s OR=%.3f (95%% CI %.3f-%.3f) p=%.4g\n",
			t.Name, t.OddsRatio, t.Lower, t.Upper, t.PValue)
	}
}

// readFrame loads a previously written CSV back into a dataframe.
func readFrame(path string) (dataframe.DataFrame, error) {
	f, err := os.Open(path)
	if err != nil {
		return dataframe.DataFrame{}, err
	}
	defer f.Close()
	df := dataframe.ReadCSV(f)
	if df.Err != nil {
		return dataframe.DataFrame{}, df.Err
	}
	return df, nil
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().BoolVar(&analyzeInteraction, "interaction", false, "include the age x BMI interaction term in the regression")
}
