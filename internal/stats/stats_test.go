package stats

import (
	"math"
	"testing"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

func almostEqual(a, b, eps float64) bool {
	return math.Abs(a-b) <= eps
}

// pairFrame builds a two-column string frame from per-cell counts, cell
// [i][j] holding the count of (exposure level i, outcome level j).
func pairFrame(exposure, outcome Variable, counts [][]int) dataframe.DataFrame {
	var exp, out []string
	for i, row := range counts {
		for j, c := range row {
			for k := 0; k < c; k++ {
				exp = append(exp, exposure.Levels[i])
				out = append(out, outcome.Levels[j])
			}
		}
	}
	return dataframe.New(
		series.New(exp, series.String, exposure.Name),
		series.New(out, series.String, outcome.Name),
	)
}

func TestAssociationFixture(t *testing.T) {
	exposure := Variable{Name: "Exposure", Levels: []string{"Exposed", "Unexposed"}}
	outcome := Variable{Name: "Outcome", Levels: []string{"Case", "Control"}}
	df := pairFrame(exposure, outcome, [][]int{{50, 50}, {20, 80}})

	res, err := Association(df, exposure, outcome, true)
	if err != nil {
		t.Fatalf("Association: %v", err)
	}

	if res.N != 200 {
		t.Fatalf("n = %d, want 200", res.N)
	}
	if res.Counts[0][0] != 50 || res.Counts[1][1] != 80 {
		t.Fatalf("counts = %v", res.Counts)
	}
	if res.ExposureRef != "Exposed" || res.OutcomeRef != "Case" {
		t.Fatalf("refs = %q/%q", res.ExposureRef, res.OutcomeRef)
	}

	if !almostEqual(res.ChiSquare, 19.78022, 1e-4) {
		t.Fatalf("chi-square = %v, want 19.78022", res.ChiSquare)
	}
	if res.DF != 1 {
		t.Fatalf("df = %d, want 1", res.DF)
	}
	if res.PValue <= 0 || res.PValue >= 0.001 {
		t.Fatalf("p-value = %v, want small positive", res.PValue)
	}
	if res.CramersV < 0 || res.CramersV > 1 {
		t.Fatalf("Cramer's V = %v, outside [0,1]", res.CramersV)
	}
	if !almostEqual(res.CramersV, math.Sqrt(19.78022/200), 1e-4) {
		t.Fatalf("Cramer's V = %v", res.CramersV)
	}

	// Manual ratio of proportions: (50/100) / (20/100).
	if !almostEqual(res.RelativeRisk, 2.5, 1e-12) {
		t.Fatalf("relative risk = %v, want 2.5", res.RelativeRisk)
	}
	if !almostEqual(res.RRLower, 1.6129, 1e-3) || !almostEqual(res.RRUpper, 3.8747, 1e-3) {
		t.Fatalf("RR interval = [%v, %v]", res.RRLower, res.RRUpper)
	}
}

func TestAssociationZeroCellNonFinite(t *testing.T) {
	exposure := Variable{Name: "E", Levels: []string{"A", "B"}}
	outcome := Variable{Name: "O", Levels: []string{"Yes", "No"}}
	df := pairFrame(exposure, outcome, [][]int{{30, 10}, {0, 40}})

	res, err := Association(df, exposure, outcome, true)
	if err != nil {
		t.Fatalf("Association: %v", err)
	}
	if !math.IsInf(res.RelativeRisk, 1) {
		t.Fatalf("relative risk = %v, want +Inf for a zero comparison cell", res.RelativeRisk)
	}
}

func TestAssociationDropNA(t *testing.T) {
	exposure := Variable{Name: "E", Levels: []string{"A", "B"}}
	outcome := Variable{Name: "O", Levels: []string{"Yes", "No"}}
	df := dataframe.New(
		series.New([]string{"A", "A", "B", "NaN", "B"}, series.String, "E"),
		series.New([]string{"Yes", "No", "Yes", "Yes", "NaN"}, series.String, "O"),
	)

	res, err := Association(df, exposure, outcome, true)
	if err != nil {
		t.Fatalf("Association: %v", err)
	}
	if res.N != 3 {
		t.Fatalf("n = %d, want 3 after dropping incomplete rows", res.N)
	}

	if _, err := Association(df, exposure, outcome, false); err == nil {
		t.Fatal("expected error for missing values without dropNA")
	}
}

// logitFrame builds a balanced synthetic dataset where the outcome follows
// the exposure with the given per-level case counts in each stratum of a
// second, inert predictor.
func logitFrame() (dataframe.DataFrame, Variable, Variable, Variable) {
	outcome := Variable{Name: "Y", Levels: []string{"No", "Yes"}}
	pred1 := Variable{Name: "X", Levels: []string{"Low", "High"}}
	pred2 := Variable{Name: "S", Levels: []string{"A", "B"}}

	var ys, xs, ss []string
	addCell := func(x, s string, yes, no int) {
		for i := 0; i < yes; i++ {
			ys = append(ys, "Yes")
			xs = append(xs, x)
			ss = append(ss, s)
		}
		for i := 0; i < no; i++ {
			ys = append(ys, "No")
			xs = append(xs, x)
			ss = append(ss, s)
		}
	}
	// P(Yes|Low) = 0.2, P(Yes|High) = 0.8 in both strata: true OR = 16.
	addCell("Low", "A", 20, 80)
	addCell("High", "A", 80, 20)
	addCell("Low", "B", 20, 80)
	addCell("High", "B", 80, 20)

	df := dataframe.New(
		series.New(ys, series.String, "Y"),
		series.New(xs, series.String, "X"),
		series.New(ss, series.String, "S"),
	)
	return df, outcome, pred1, pred2
}

func TestLogisticThresholdOutcome(t *testing.T) {
	df, outcome, pred1, pred2 := logitFrame()

	res, err := Logistic(df, outcome, pred1, pred2, false, true)
	if err != nil {
		t.Fatalf("Logistic: %v", err)
	}
	if res.N != 400 {
		t.Fatalf("n = %d, want 400", res.N)
	}
	if res.OutcomeRef != "No" || res.Predictor1Ref != "Low" || res.Predictor2Ref != "A" {
		t.Fatalf("refs = %q/%q/%q", res.OutcomeRef, res.Predictor1Ref, res.Predictor2Ref)
	}
	if len(res.Terms) != 3 {
		t.Fatalf("terms = %d, want intercept + 2 dummies", len(res.Terms))
	}

	var x *Term
	for i := range res.Terms {
		if res.Terms[i].Name == "X=High" {
			x = &res.Terms[i]
		}
	}
	if x == nil {
		t.Fatalf("X=High term missing: %+v", res.Terms)
	}
	if !almostEqual(x.OddsRatio, 16, 0.5) {
		t.Fatalf("odds ratio = %v, want about 16", x.OddsRatio)
	}
	// The higher-probability level must report OR > 1 with a CI excluding 1.
	if x.OddsRatio <= 1 || x.Lower <= 1 {
		t.Fatalf("odds ratio CI [%v, %v] should exclude 1 from above", x.Lower, x.Upper)
	}
	if x.PValue >= 0.001 {
		t.Fatalf("p-value = %v, want small", x.PValue)
	}

	// The inert stratum predictor stays near the null.
	for _, term := range res.Terms {
		if term.Name == "S=B" && (term.Lower > 1 || term.Upper < 1) {
			t.Fatalf("inert predictor CI [%v, %v] excludes 1", term.Lower, term.Upper)
		}
	}
}

func TestLogisticWithInteraction(t *testing.T) {
	df, outcome, pred1, pred2 := logitFrame()

	res, err := Logistic(df, outcome, pred1, pred2, true, true)
	if err != nil {
		t.Fatalf("Logistic with interaction: %v", err)
	}
	if len(res.Terms) != 4 {
		t.Fatalf("terms = %d, want 4 with the interaction", len(res.Terms))
	}
	last := res.Terms[3]
	if last.Name != "X=High:S=B" {
		t.Fatalf("interaction term name = %q", last.Name)
	}
	// No interaction effect was built into the data.
	if last.Lower > 1 || last.Upper < 1 {
		t.Fatalf("interaction CI [%v, %v] excludes 1", last.Lower, last.Upper)
	}
}

func TestLogisticPerfectSeparationFails(t *testing.T) {
	outcome := Variable{Name: "Y", Levels: []string{"No", "Yes"}}
	pred1 := Variable{Name: "X", Levels: []string{"Low", "High"}}
	pred2 := Variable{Name: "S", Levels: []string{"A", "B"}}

	var ys, xs, ss []string
	for i := 0; i < 50; i++ {
		// Outcome is a strict function of the predictor: separated.
		ys = append(ys, "No", "Yes")
		xs = append(xs, "Low", "High")
		if i%2 == 0 {
			ss = append(ss, "A", "B")
		} else {
			ss = append(ss, "B", "A")
		}
	}
	df := dataframe.New(
		series.New(ys, series.String, "Y"),
		series.New(xs, series.String, "X"),
		series.New(ss, series.String, "S"),
	)

	if _, err := Logistic(df, outcome, pred1, pred2, false, true); err == nil {
		t.Fatal("expected a fitting error for perfectly separated data")
	}
}

func TestLogisticMissingWithoutDropIsError(t *testing.T) {
	outcome := Variable{Name: "Y", Levels: []string{"No", "Yes"}}
	pred := Variable{Name: "X", Levels: []string{"Low", "High"}}
	df := dataframe.New(
		series.New([]string{"No", "Yes", "NaN"}, series.String, "Y"),
		series.New([]string{"Low", "High", "Low"}, series.String, "X"),
		series.New([]string{"A", "B", "A"}, series.String, "S"),
	)
	pred2 := Variable{Name: "S", Levels: []string{"A", "B"}}

	if _, err := Logistic(df, outcome, pred, pred2, false, false); err == nil {
		t.Fatal("expected error for missing outcome without dropNA")
	}
}
