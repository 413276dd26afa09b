// Package stats computes the report's inferential summaries over the
// processed table: categorical association with relative risk, and logistic
// regression with odds ratios.
package stats

import (
	"fmt"
	"math"

	"github.com/go-gota/gota/dataframe"
	"gonum.org/v1/gonum/stat/distuv"
)

// Variable names a categorical column and its level ordering. The first
// level is the reference (baseline) category every ratio is relative to.
type Variable struct {
	Name   string
	Levels []string
}

// Ref returns the reference level.
func (v Variable) Ref() string { return v.Levels[0] }

func (v Variable) levelIndex() map[string]int {
	idx := make(map[string]int, len(v.Levels))
	for i, l := range v.Levels {
		idx[l] = i
	}
	return idx
}

// AssociationResult is the fixed-shape summary of a pairwise categorical
// association. The relative risk compares the probability of the outcome
// variable's reference level between the first and second exposure rows; it
// is non-finite when a required contingency cell is zero.
type AssociationResult struct {
	Exposure    string
	Outcome     string
	ExposureRef string
	OutcomeRef  string

	N      int
	Counts [][]int

	ChiSquare float64
	DF        int
	PValue    float64
	CramersV  float64

	RelativeRisk float64
	RRLower      float64
	RRUpper      float64
}

// Association summarizes the relationship between two categorical columns:
// a contingency table over the declared level orders, the chi-square
// independence statistic with its p-value, Cramér's V, and the relative
// risk with a 95% confidence interval. With dropNA set, rows missing either
// value are dropped; otherwise a missing value is an error, since a count
// table has no cell for it.
func Association(df dataframe.DataFrame, exposure, outcome Variable, dropNA bool) (*AssociationResult, error) {
	if len(exposure.Levels) < 2 || len(outcome.Levels) < 2 {
		return nil, fmt.Errorf("association needs at least two levels per column")
	}

	expIdx := exposure.levelIndex()
	outIdx := outcome.levelIndex()
	expCol := df.Col(exposure.Name)
	outCol := df.Col(outcome.Name)
	if expCol.Err != nil {
		return nil, fmt.Errorf("column %s: %w", exposure.Name, expCol.Err)
	}
	if outCol.Err != nil {
		return nil, fmt.Errorf("column %s: %w", outcome.Name, outCol.Err)
	}
	expRecs := expCol.Records()
	outRecs := outCol.Records()

	counts := make([][]int, len(exposure.Levels))
	for i := range counts {
		counts[i] = make([]int, len(outcome.Levels))
	}
	n := 0
	for k := range expRecs {
		i, okE := expIdx[expRecs[k]]
		j, okO := outIdx[outRecs[k]]
		if !okE || !okO {
			if dropNA {
				continue
			}
			return nil, fmt.Errorf("row %d has value outside the level sets (%q, %q); enable dropNA or pre-filter",
				k, expRecs[k], outRecs[k])
		}
		counts[i][j]++
		n++
	}
	if n == 0 {
		return nil, fmt.Errorf("no complete observations for %s x %s", exposure.Name, outcome.Name)
	}

	chi2, dof, err := chiSquare(counts, n)
	if err != nil {
		return nil, err
	}
	p := distuv.ChiSquared{K: float64(dof)}.Survival(chi2)

	k := len(exposure.Levels)
	if len(outcome.Levels) < k {
		k = len(outcome.Levels)
	}
	v := math.Sqrt(chi2 / (float64(n) * float64(k-1)))

	rr, lo, hi := relativeRisk(counts)

	return &AssociationResult{
		Exposure:     exposure.Name,
		Outcome:      outcome.Name,
		ExposureRef:  exposure.Ref(),
		OutcomeRef:   outcome.Ref(),
		N:            n,
		Counts:       counts,
		ChiSquare:    chi2,
		DF:           dof,
		PValue:       p,
		CramersV:     v,
		RelativeRisk: rr,
		RRLower:      lo,
		RRUpper:      hi,
	}, nil
}

// chiSquare computes the independence statistic for a count table. A zero
// expected count makes the statistic undefined and is an error.
func chiSquare(counts [][]int, n int) (float64, int, error) {
	nrow := len(counts)
	ncol := len(counts[0])

	rowTot := make([]float64, nrow)
	colTot := make([]float64, ncol)
	for i := range counts {
		for j, c := range counts[i] {
			rowTot[i] += float64(c)
			colTot[j] += float64(c)
		}
	}

	var chi2 float64
	for i := range counts {
		for j, c := range counts[i] {
			e := rowTot[i] * colTot[j] / float64(n)
			if e == 0 {
				return 0, 0, fmt.Errorf("zero expected count in cell (%d,%d)", i, j)
			}
			d := float64(c) - e
			chi2 += d * d / e
		}
	}
	return chi2, (nrow - 1) * (ncol - 1), nil
}

// relativeRisk compares the probability of the first outcome level between
// the first two exposure rows. Zero cells yield non-finite estimates, which
// the caller must guard for or accept.
func relativeRisk(counts [][]int) (rr, lo, hi float64) {
	a := float64(counts[0][0])
	c := float64(counts[1][0])
	var r0, r1 float64
	for _, v := range counts[0] {
		r0 += float64(v)
	}
	for _, v := range counts[1] {
		r1 += float64(v)
	}

	p0 := a / r0
	p1 := c / r1
	rr = p0 / p1

	se := math.Sqrt(1/a - 1/r0 + 1/c - 1/r1)
	z := distuv.Normal{Mu: 0, Sigma: 1}.Quantile(0.975)
	lo = math.Exp(math.Log(rr) - z*se)
	hi = math.Exp(math.Log(rr) + z*se)
	return rr, lo, hi
}
