package stats

import (
	"fmt"
	"math"

	"github.com/go-gota/gota/dataframe"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

const (
	irlsMaxIter = 50
	irlsTol     = 1e-8

	// Coefficients beyond this magnitude on the logit scale almost always
	// mean the data are perfectly separated.
	separationLimit = 30
)

// Term is one fitted model coefficient reported as an odds ratio with its
// Wald 95% confidence interval.
type Term struct {
	Name        string
	Coefficient float64
	StdErr      float64
	OddsRatio   float64
	Lower       float64
	Upper       float64
	PValue      float64
}

// LogisticResult is the summary of one fitted binary-outcome model.
type LogisticResult struct {
	OutcomeRef    string
	Predictor1Ref string
	Predictor2Ref string

	N          int
	Iterations int
	Terms      []Term
}

// Logistic fits a binary-outcome logistic model of outcome on two
// categorical predictors, optionally with their interaction, by iteratively
// reweighted least squares. Each predictor is dummy-coded against its first
// (reference) level; the outcome's first level codes as 0. With dropNA set,
// rows missing any of the three values are dropped; otherwise a missing
// value is an error. Non-convergence, a singular information matrix, and
// suspected perfect separation all propagate as errors with no fallback.
func Logistic(df dataframe.DataFrame, outcome, pred1, pred2 Variable, interaction, dropNA bool) (*LogisticResult, error) {
	if len(outcome.Levels) != 2 {
		return nil, fmt.Errorf("outcome %s must have exactly two levels", outcome.Name)
	}
	if len(pred1.Levels) < 2 || len(pred2.Levels) < 2 {
		return nil, fmt.Errorf("predictors need at least two levels")
	}

	cols := make([][]string, 3)
	for i, v := range []Variable{outcome, pred1, pred2} {
		s := df.Col(v.Name)
		if s.Err != nil {
			return nil, fmt.Errorf("column %s: %w", v.Name, s.Err)
		}
		cols[i] = s.Records()
	}

	outIdx := outcome.levelIndex()
	p1Idx := pred1.levelIndex()
	p2Idx := pred2.levelIndex()

	// Model columns: intercept, pred1 dummies, pred2 dummies, interactions.
	names := []string{"(Intercept)"}
	for _, l := range pred1.Levels[1:] {
		names = append(names, fmt.Sprintf("%s=%s", pred1.Name, l))
	}
	for _, l := range pred2.Levels[1:] {
		names = append(names, fmt.Sprintf("%s=%s", pred2.Name, l))
	}
	if interaction {
		for _, l1 := range pred1.Levels[1:] {
			for _, l2 := range pred2.Levels[1:] {
				names = append(names, fmt.Sprintf("%s=%s:%s=%s", pred1.Name, l1, pred2.Name, l2))
			}
		}
	}
	p := len(names)
	n1 := len(pred1.Levels) - 1
	n2 := len(pred2.Levels) - 1

	var x [][]float64
	var y []float64
	for k := range cols[0] {
		yi, okY := outIdx[cols[0][k]]
		i1, ok1 := p1Idx[cols[1][k]]
		i2, ok2 := p2Idx[cols[2][k]]
		if !okY || !ok1 || !ok2 {
			if dropNA {
				continue
			}
			return nil, fmt.Errorf("row %d has value outside the level sets; enable dropNA or pre-filter", k)
		}
		row := make([]float64, p)
		row[0] = 1
		if i1 > 0 {
			row[i1] = 1
		}
		if i2 > 0 {
			row[1+n1+i2-1] = 1
		}
		if interaction && i1 > 0 && i2 > 0 {
			row[1+n1+n2+(i1-1)*n2+(i2-1)] = 1
		}
		x = append(x, row)
		y = append(y, float64(yi))
	}
	if len(x) <= p {
		return nil, fmt.Errorf("not enough complete observations (%d) for %d model terms", len(x), p)
	}

	beta, cov, iters, err := irls(x, y, p)
	if err != nil {
		return nil, fmt.Errorf("fit %s ~ %s + %s: %w", outcome.Name, pred1.Name, pred2.Name, err)
	}

	z := distuv.Normal{Mu: 0, Sigma: 1}
	zq := z.Quantile(0.975)
	terms := make([]Term, p)
	for j := 0; j < p; j++ {
		se := math.Sqrt(cov.At(j, j))
		wald := beta[j] / se
		terms[j] = Term{
			Name:        names[j],
			Coefficient: beta[j],
			StdErr:      se,
			OddsRatio:   math.Exp(beta[j]),
			Lower:       math.Exp(beta[j] - zq*se),
			Upper:       math.Exp(beta[j] + zq*se),
			PValue:      2 * z.Survival(math.Abs(wald)),
		}
	}

	return &LogisticResult{
		OutcomeRef:    outcome.Ref(),
		Predictor1Ref: pred1.Ref(),
		Predictor2Ref: pred2.Ref(),
		N:             len(x),
		Iterations:    iters,
		Terms:         terms,
	}, nil
}

// irls runs iteratively reweighted least squares for the logit link,
// returning the coefficients and their covariance (the inverse observed
// information).
func irls(x [][]float64, y []float64, p int) ([]float64, *mat.SymDense, int, error) {
	n := len(x)
	beta := make([]float64, p)

	for iter := 1; iter <= irlsMaxIter; iter++ {
		a := mat.NewSymDense(p, nil)
		b := mat.NewVecDense(p, nil)

		for i := 0; i < n; i++ {
			var eta float64
			for j := 0; j < p; j++ {
				eta += x[i][j] * beta[j]
			}
			mu := 1 / (1 + math.Exp(-eta))
			w := mu * (1 - mu)
			if w < 1e-10 {
				w = 1e-10
			}
			z := eta + (y[i]-mu)/w
			for j := 0; j < p; j++ {
				if x[i][j] == 0 {
					continue
				}
				b.SetVec(j, b.AtVec(j)+w*x[i][j]*z)
				for k := 0; k <= j; k++ {
					a.SetSym(j, k, a.At(j, k)+w*x[i][j]*x[i][k])
				}
			}
		}

		var chol mat.Cholesky
		if ok := chol.Factorize(a); !ok {
			return nil, nil, iter, fmt.Errorf("singular information matrix at iteration %d", iter)
		}
		next := mat.NewVecDense(p, nil)
		if err := chol.SolveVecTo(next, b); err != nil {
			return nil, nil, iter, fmt.Errorf("solve weighted least squares: %w", err)
		}

		var delta float64
		for j := 0; j < p; j++ {
			d := math.Abs(next.AtVec(j) - beta[j])
			if d > delta {
				delta = d
			}
			beta[j] = next.AtVec(j)
		}
		if delta < irlsTol {
			for j := 0; j < p; j++ {
				if math.Abs(beta[j]) > separationLimit {
					return nil, nil, iter, fmt.Errorf("perfect separation suspected: |coefficient| > %d", separationLimit)
				}
			}
			var cov mat.SymDense
			if err := chol.InverseTo(&cov); err != nil {
				return nil, nil, iter, fmt.Errorf("invert information matrix: %w", err)
			}
			return beta, &cov, iter, nil
		}
	}
	return nil, nil, irlsMaxIter, fmt.Errorf("no convergence after %d iterations", irlsMaxIter)
}
