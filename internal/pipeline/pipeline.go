package pipeline

import (
	"bytes"
	"fmt"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/jtorrescarbajal/nhanes-diabetes-case-study/internal/dataset"
	"github.com/jtorrescarbajal/nhanes-diabetes-case-study/internal/utils"
)

// Run executes the plan over the loaded tables: the declared left joins in
// order, then the derivation rules in order, then the projection down to the
// output columns. Every table the plan names must be present; the join is
// left-preserving, so the result has exactly one row per respondent in the
// base table.
func Run(plan *Plan, tables map[string]dataset.Table) (dataframe.DataFrame, error) {
	base, ok := tables[plan.Base]
	if !ok {
		return dataframe.DataFrame{}, fmt.Errorf("base table %s not loaded (have %v)", plan.Base, dataset.Codes(tables))
	}
	df := base.DF
	baseRows := df.Nrow()

	for _, j := range plan.Joins {
		t, ok := tables[j.Table]
		if !ok {
			return dataframe.DataFrame{}, fmt.Errorf("table %s not loaded (have %v)", j.Table, dataset.Codes(tables))
		}
		df = df.LeftJoin(t.DF, j.Key)
		if df.Err != nil {
			return dataframe.DataFrame{}, fmt.Errorf("join %s on %s: %w", j.Table, j.Key, df.Err)
		}
		if df.Nrow() != baseRows {
			return dataframe.DataFrame{}, fmt.Errorf(
				"join %s changed row count from %d to %d: duplicate %s values",
				j.Table, baseRows, df.Nrow(), j.Key)
		}
	}

	for _, r := range plan.Rules {
		s := r.apply(df)
		if s.Err != nil {
			return dataframe.DataFrame{}, fmt.Errorf("derive %s: %w", r.Name, s.Err)
		}
		df = df.Mutate(s)
		if df.Err != nil {
			return dataframe.DataFrame{}, fmt.Errorf("derive %s: %w", r.Name, df.Err)
		}
	}

	out := df.Select(plan.Output)
	if out.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("select output columns: %w", out.Err)
	}
	return out, nil
}

// AnalysisFrame builds the statistics-ready variant of the processed table:
// the two extreme age groups are excluded, and rows carrying the outcome's
// baseline label are moved to the front so the comparison group leads the
// file.
func AnalysisFrame(df dataframe.DataFrame, plan *Plan) (dataframe.DataFrame, error) {
	ageVar, ok := plan.Variable("AgeGroup")
	if !ok || len(ageVar.Levels) < 4 {
		return dataframe.DataFrame{}, fmt.Errorf("plan has no age-group variable")
	}
	keep := ageVar.Levels[1 : len(ageVar.Levels)-1]

	mid := df.Filter(dataframe.F{
		Colname:    ageVar.Name,
		Comparator: series.In,
		Comparando: keep,
	})
	if mid.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("filter age groups: %w", mid.Err)
	}

	outcome, ok := plan.Variable("DiabetesStatus")
	if !ok {
		return mid, nil
	}
	lead := mid.Filter(dataframe.F{
		Colname:    outcome.Name,
		Comparator: series.Eq,
		Comparando: outcome.Baseline,
	})
	rest := mid.Filter(dataframe.F{
		Colname:    outcome.Name,
		Comparator: series.Neq,
		Comparando: outcome.Baseline,
	})
	if lead.Err != nil || rest.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("baseline reorder: %v %v", lead.Err, rest.Err)
	}
	if lead.Nrow() == 0 {
		return rest, nil
	}
	if rest.Nrow() == 0 {
		return lead, nil
	}
	out := lead.RBind(rest)
	if out.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("baseline reorder: %w", out.Err)
	}
	return out, nil
}

// WriteCSV persists a dataframe as a comma-separated file with a header row,
// overwriting any previous run's output atomically.
func WriteCSV(df dataframe.DataFrame, path string) error {
	var buf bytes.Buffer
	if err := df.WriteCSV(&buf); err != nil {
		return fmt.Errorf("encode csv: %w", err)
	}
	if err := utils.SafeWriteFile(path, buf.Bytes()); err != nil {
		return fmt.Errorf("persist %s: %w", path, err)
	}
	return nil
}
