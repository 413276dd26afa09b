// Package report renders the narrative markdown findings document from the
// processed table's statistical summaries and the pre-rendered figures.
package report

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/google/uuid"

	"github.com/jtorrescarbajal/nhanes-diabetes-case-study/internal/stats"
	"github.com/jtorrescarbajal/nhanes-diabetes-case-study/internal/utils"
)

// Figure references one pre-rendered chart by relative path and caption.
type Figure struct {
	Path    string
	Caption string
}

// Input carries everything one report build needs. The build ID and
// timestamp are stamped into the document header.
type Input struct {
	BuildID   string
	Generated time.Time

	Cycle         string
	Rows          int
	AnalysisRows  int
	ProcessedPath string
	AnalysisPath  string

	Figures      []Figure
	Associations []*stats.AssociationResult
	Model        *stats.LogisticResult
}

// NewBuildID returns a fresh report build identifier.
func NewBuildID() string {
	return uuid.NewString()
}

var funcs = template.FuncMap{
	"f3": func(x float64) string { return fmt.Sprintf("%.3f", x) },
	"pval": func(p float64) string {
		if p < 0.001 {
			return "<0.001"
		}
		return fmt.Sprintf("%.3f", p)
	},
	"joinCounts": func(row []int) string {
		parts := make([]string, len(row))
		for i, c := range row {
			parts[i] = fmt.Sprintf("%d", c)
		}
		return strings.Join(parts, " | ")
	},
}

const reportTemplate = `# Diabetes Case Study ({{.Cycle}} cycle)

Build {{.BuildID}}, generated {{.Generated.Format "2006-01-02 15:04 MST"}}

## Data

The processed table ({{.ProcessedPath}}) holds {{.Rows}} respondents, one row
per respondent identifier. The statistics-ready variant ({{.AnalysisPath}})
holds {{.AnalysisRows}} respondents after excluding the extreme age groups.
{{range .Figures}}
![{{.Caption}}]({{.Path}})

*{{.Caption}}*
{{end}}
## Associations
{{range .Associations}}
### {{.Exposure}} and {{.Outcome}}

Reference categories: {{.Exposure}} = {{.ExposureRef}}, {{.Outcome}} = {{.OutcomeRef}} (n = {{.N}}).

| Statistic | Value |
|---|---|
| Chi-square ({{.DF}} df) | {{f3 .ChiSquare}} |
| p-value | {{pval .PValue}} |
| Cramer's V | {{f3 .CramersV}} |
| Relative risk | {{f3 .RelativeRisk}} (95% CI {{f3 .RRLower}}-{{f3 .RRUpper}}) |
{{end}}
{{- if .Model}}
## Logistic regression

Outcome reference: {{.Model.OutcomeRef}}; predictor references:
{{.Model.Predictor1Ref}}, {{.Model.Predictor2Ref}} (n = {{.Model.N}}, converged in {{.Model.Iterations}} iterations).

| Term | Odds ratio | 95% CI | p-value |
|---|---|---|---|
{{- range .Model.Terms}}
| {{.Name}} | {{f3 .OddsRatio}} | {{f3 .Lower}}-{{f3 .Upper}} | {{pval .PValue}} |
{{- end}}
{{- end}}
`

var tmpl = template.Must(template.New("report").Funcs(funcs).Parse(reportTemplate))

// Render produces the markdown document.
func Render(in Input) ([]byte, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, in); err != nil {
		return nil, fmt.Errorf("render report: %w", err)
	}
	return buf.Bytes(), nil
}

// Write renders the document and persists it atomically, overwriting the
// previous run's report.
func Write(in Input, path string) error {
	b, err := Render(in)
	if err != nil {
		return err
	}
	if err := utils.SafeWriteFile(path, b); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
