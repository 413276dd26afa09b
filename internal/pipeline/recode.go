package pipeline

import (
	"math"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// naToken is gota's representation of a missing value in a string series.
// Every derivation writes it explicitly for unmapped or out-of-range codes;
// a raw value outside the expected set is never coerced to a default label.
const naToken = "NaN"

var posInf = math.Inf(1)

// cut assigns x to the left-closed interval [bounds[i], bounds[i+1]) and
// returns labels[i]. Values outside [bounds[0], bounds[last]) are missing.
func cut(x float64, bounds []float64, labels []string) string {
	if math.IsNaN(x) {
		return naToken
	}
	for i := range labels {
		if x >= bounds[i] && x < bounds[i+1] {
			return labels[i]
		}
	}
	return naToken
}

// recode maps a small-integer survey code to its label. Codes absent from
// the map (refused, don't know, unassigned) become missing.
func recode(x float64, m map[float64]string) string {
	if math.IsNaN(x) {
		return naToken
	}
	if lab, ok := m[x]; ok {
		return lab
	}
	return naToken
}

// floatCol pulls a named column as floats, with NaN marking missing values.
func floatCol(df dataframe.DataFrame, name string) []float64 {
	return df.Col(name).Float()
}

// cutRule derives a categorical column by binning a numeric source column.
func cutRule(v Variable, src string, bounds []float64) Rule {
	return Rule{
		Variable: v,
		apply: func(df dataframe.DataFrame) series.Series {
			xs := floatCol(df, src)
			out := make([]string, len(xs))
			for i, x := range xs {
				out[i] = cut(x, bounds, v.Levels)
			}
			return series.New(out, series.String, v.Name)
		},
	}
}

// recodeRule derives a categorical column from integer survey codes.
func recodeRule(v Variable, src string, m map[float64]string) Rule {
	return Rule{
		Variable: v,
		apply: func(df dataframe.DataFrame) series.Series {
			xs := floatCol(df, src)
			out := make([]string, len(xs))
			for i, x := range xs {
				out[i] = recode(x, m)
			}
			return series.New(out, series.String, v.Name)
		},
	}
}

// copyRule renames a numeric source column into the output schema.
func copyRule(name, src string) Rule {
	return Rule{
		Variable: Variable{Name: name},
		apply: func(df dataframe.DataFrame) series.Series {
			return series.New(floatCol(df, src), series.Float, name)
		},
	}
}

// capRule passes a numeric value through only when it is positive and at
// most limit; anything else is implausible self-report and becomes missing.
func capRule(name, src string, limit float64) Rule {
	return Rule{
		Variable: Variable{Name: name},
		apply: func(df dataframe.DataFrame) series.Series {
			xs := floatCol(df, src)
			out := make([]float64, len(xs))
			for i, x := range xs {
				if math.IsNaN(x) || x <= 0 || x > limit {
					out[i] = math.NaN()
				} else {
					out[i] = x
				}
			}
			return series.New(out, series.Float, name)
		},
	}
}

// meanRule averages repeated readings, ignoring missing ones. The average
// is missing only when every reading is missing.
func meanRule(name string, srcs []string) Rule {
	return Rule{
		Variable: Variable{Name: name},
		apply: func(df dataframe.DataFrame) series.Series {
			cols := make([][]float64, len(srcs))
			for j, src := range srcs {
				cols[j] = floatCol(df, src)
			}
			n := df.Nrow()
			out := make([]float64, n)
			for i := 0; i < n; i++ {
				var sum float64
				var cnt int
				for j := range cols {
					if !math.IsNaN(cols[j][i]) {
						sum += cols[j][i]
						cnt++
					}
				}
				if cnt == 0 {
					out[i] = math.NaN()
				} else {
					out[i] = sum / float64(cnt)
				}
			}
			return series.New(out, series.Float, name)
		},
	}
}

// hypertensionRule derives the hypertension flag as a disjunction of
// self-reported diagnosis, a prior high reading, current medication, and
// elevated averaged measurements. A missing sub-condition does not pull the
// result toward "No"; it simply does not contribute. When every
// sub-condition is missing the flag itself is missing, so "confirmed
// absent" stays distinct from "unknown".
func hypertensionRule(v Variable, sys, dia string, reports []string) Rule {
	const (
		sysLimit = 130
		diaLimit = 80
	)
	return Rule{
		Variable: v,
		apply: func(df dataframe.DataFrame) series.Series {
			reportCols := make([][]float64, len(reports))
			for j, src := range reports {
				reportCols[j] = floatCol(df, src)
			}
			sysCol := floatCol(df, sys)
			diaCol := floatCol(df, dia)

			n := df.Nrow()
			out := make([]string, n)
			for i := 0; i < n; i++ {
				any := false
				known := false
				for j := range reportCols {
					x := reportCols[j][i]
					switch {
					case x == 1:
						any = true
						known = true
					case x == 2:
						known = true
					}
				}
				if !math.IsNaN(sysCol[i]) {
					known = true
					if sysCol[i] >= sysLimit {
						any = true
					}
				}
				if !math.IsNaN(diaCol[i]) {
					known = true
					if diaCol[i] >= diaLimit {
						any = true
					}
				}
				switch {
				case any:
					out[i] = v.Levels[1]
				case known:
					out[i] = v.Levels[0]
				default:
					out[i] = naToken
				}
			}
			return series.New(out, series.String, v.Name)
		},
	}
}
