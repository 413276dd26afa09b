package cmd

import (
	"math"
	"os"
	"testing"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	log = zap.NewNop()
	os.Exit(m.Run())
}

// analysisFixture builds a balanced synthetic analysis table: every exposure
// and predictor level appears with both outcomes equally often, so every
// summary is well defined and every effect estimate is null.
func analysisFixture() dataframe.DataFrame {
	const n = 48
	ages := []string{"Young Adults", "Middle Aged"}
	bmis := []string{"Normal Weight", "Underweight", "Overweight", "Obesity I", "Obesity II", "Obesity III"}

	status := make([]string, n)
	hyp := make([]string, n)
	ins := make([]string, n)
	gender := make([]string, n)
	age := make([]string, n)
	bmi := make([]string, n)
	for i := 0; i < n; i++ {
		if i%4 < 2 {
			status[i] = "Diabetes"
		} else {
			status[i] = "No Diabetes"
		}
		if i%2 == 0 {
			hyp[i] = "Hypertension"
			ins[i] = "Insured"
			gender[i] = "Female"
		} else {
			hyp[i] = "No Hypertension"
			ins[i] = "Uninsured"
			gender[i] = "Male"
		}
		age[i] = ages[i%2]
		bmi[i] = bmis[(i/4)%6]
	}

	return dataframe.New(
		series.New(status, series.String, "DiabetesStatus"),
		series.New(hyp, series.String, "Hypertension"),
		series.New(ins, series.String, "Insurance"),
		series.New(gender, series.String, "Gender"),
		series.New(age, series.String, "AgeGroup"),
		series.New(bmi, series.String, "BMIClass"),
	)
}

func TestRunAnalyzeNullFixture(t *testing.T) {
	assocs, model, err := runAnalyze(analysisFixture(), false)
	if err != nil {
		t.Fatalf("runAnalyze: %v", err)
	}

	if len(assocs) != len(associationExposures) {
		t.Fatalf("got %d associations, want %d", len(assocs), len(associationExposures))
	}
	for _, a := range assocs {
		if a.N != 48 {
			t.Fatalf("%s: n = %d, want 48", a.Exposure, a.N)
		}
		// Balanced cells: no association, unit relative risk.
		if math.Abs(a.RelativeRisk-1) > 1e-9 {
			t.Fatalf("%s: RR = %v, want 1", a.Exposure, a.RelativeRisk)
		}
		if a.PValue < 0.99 {
			t.Fatalf("%s: p = %v, want ~1 for independent columns", a.Exposure, a.PValue)
		}
	}

	// Intercept + 1 age dummy + 5 BMI dummies.
	if len(model.Terms) != 7 {
		t.Fatalf("got %d model terms, want 7", len(model.Terms))
	}
	if model.OutcomeRef != "No Diabetes" {
		t.Fatalf("outcome ref = %q", model.OutcomeRef)
	}
	for _, term := range model.Terms {
		if math.Abs(term.OddsRatio-1) > 1e-6 {
			t.Fatalf("%s: OR = %v, want 1 on balanced data", term.Name, term.OddsRatio)
		}
	}
}

func TestRunAnalyzeWithInteractionTermCount(t *testing.T) {
	_, model, err := runAnalyze(analysisFixture(), true)
	if err != nil {
		t.Fatalf("runAnalyze: %v", err)
	}
	// 7 main-effect terms plus 1x5 interaction dummies.
	if len(model.Terms) != 12 {
		t.Fatalf("got %d model terms, want 12", len(model.Terms))
	}
}
