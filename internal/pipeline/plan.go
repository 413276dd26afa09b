// Package pipeline merges the loaded survey tables into the analysis table:
// an ordered left-join over the respondent identifier followed by a fixed
// set of deterministic recoding and binning rules.
package pipeline

import (
	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// Variable describes one derived column: its name, its finite label set in
// declared order, and the label used as the statistical comparison group.
// Numeric derived columns have no levels.
type Variable struct {
	Name     string
	Levels   []string
	Baseline string
}

// OrderedLevels returns the levels with the baseline first, the ordering
// the statistical summaries treat as reference-first.
func (v Variable) OrderedLevels() []string {
	out := make([]string, 0, len(v.Levels))
	out = append(out, v.Baseline)
	for _, l := range v.Levels {
		if l != v.Baseline {
			out = append(out, l)
		}
	}
	return out
}

// Rule derives one column from already-available columns. Rules run in
// declared order, so later rules may read columns derived by earlier ones.
type Rule struct {
	Variable
	apply func(df dataframe.DataFrame) series.Series
}

// Join names one table to left-join onto the accumulating result and the
// key to join on.
type Join struct {
	Table string
	Key   string
}

// Plan is the explicit, versioned join/derive specification. The pipeline's
// behavior is a pure function of the plan and the loaded tables, so the
// fixed ordering here is the auditable contract for the whole build.
type Plan struct {
	Version int
	Base    string
	Joins   []Join
	Rules   []Rule
	Output  []string
}

// Variable returns the plan's derived variable with the given column name.
func (p *Plan) Variable(name string) (Variable, bool) {
	for _, r := range p.Rules {
		if r.Name == name {
			return r.Variable, true
		}
	}
	return Variable{}, false
}

// The respondent identifier shared by every survey table.
const KeySEQN = "SEQN"

// DefaultPlan encodes the study's join order and recoding rules for the
// August 2021 - August 2023 release. The cycle suffix ("_L") selects the
// release's dataset codes.
func DefaultPlan(cycle string) *Plan {
	code := func(stem string) string { return stem + cycle }

	ageGroup := Variable{
		Name:     "AgeGroup",
		Levels:   []string{"Children/Teens", "Young Adults", "Middle Aged", "Seniors"},
		Baseline: "Young Adults",
	}
	bmiClass := Variable{
		Name: "BMIClass",
		Levels: []string{
			"Underweight", "Normal Weight", "Overweight",
			"Obesity I", "Obesity II", "Obesity III",
		},
		Baseline: "Normal Weight",
	}
	gender := Variable{
		Name:     "Gender",
		Levels:   []string{"Male", "Female"},
		Baseline: "Male",
	}
	race := Variable{
		Name: "RaceEthnicity",
		Levels: []string{
			"Mexican American", "Other Hispanic", "Non-Hispanic White",
			"Non-Hispanic Black", "Non-Hispanic Asian", "Other Race",
		},
		Baseline: "Non-Hispanic White",
	}
	education := Variable{
		Name: "Education",
		Levels: []string{
			"Less than High School", "High School", "Some College", "College Graduate",
		},
		Baseline: "College Graduate",
	}
	income := Variable{
		Name:     "IncomeTier",
		Levels:   []string{"Lower Income", "Middle Income", "Higher Income"},
		Baseline: "Higher Income",
	}
	insurance := Variable{
		Name:     "Insurance",
		Levels:   []string{"Insured", "Uninsured"},
		Baseline: "Insured",
	}
	bloodTested := Variable{
		Name:     "BloodTested",
		Levels:   []string{"Not Tested", "Blood Tested"},
		Baseline: "Not Tested",
	}
	diabetes := Variable{
		Name:     "DiabetesStatus",
		Levels:   []string{"No Diabetes", "Diabetes", "Borderline"},
		Baseline: "No Diabetes",
	}
	prediabetes := Variable{
		Name:     "Prediabetes",
		Levels:   []string{"No Prediabetes", "Prediabetes"},
		Baseline: "No Prediabetes",
	}
	hypertension := Variable{
		Name:     "Hypertension",
		Levels:   []string{"No Hypertension", "Hypertension"},
		Baseline: "No Hypertension",
	}

	return &Plan{
		Version: 1,
		Base:    code("DEMO"),
		Joins: []Join{
			{Table: code("DIQ"), Key: KeySEQN},
			{Table: code("INQ"), Key: KeySEQN},
			{Table: code("HIQ"), Key: KeySEQN},
			{Table: code("BMX"), Key: KeySEQN},
			{Table: code("BPQ"), Key: KeySEQN},
			{Table: code("BPXO"), Key: KeySEQN},
		},
		Rules: []Rule{
			copyRule("Age", "RIDAGEYR"),
			copyRule("BMI", "BMXBMI"),
			cutRule(ageGroup, "RIDAGEYR", []float64{0, 18, 35, 65, 100}),
			cutRule(bmiClass, "BMXBMI", []float64{0, 18.5, 25, 30, 35, 40, posInf}),
			recodeRule(gender, "RIAGENDR", map[float64]string{
				1: "Male", 2: "Female",
			}),
			// RIDRETH3 code 5 is unassigned in the source codebook and is
			// deliberately left unmapped.
			recodeRule(race, "RIDRETH3", map[float64]string{
				1: "Mexican American", 2: "Other Hispanic", 3: "Non-Hispanic White",
				4: "Non-Hispanic Black", 6: "Non-Hispanic Asian", 7: "Other Race",
			}),
			// Codes 1 (<9th grade) and 2 (9th-11th grade) collapse into one tier.
			recodeRule(education, "DMDEDUC2", map[float64]string{
				1: "Less than High School", 2: "Less than High School",
				3: "High School", 4: "Some College", 5: "College Graduate",
			}),
			recodeRule(income, "INDFMMPC", map[float64]string{
				1: "Lower Income", 2: "Middle Income", 3: "Higher Income",
			}),
			recodeRule(insurance, "HIQ011", map[float64]string{
				1: "Insured", 2: "Uninsured",
			}),
			recodeRule(bloodTested, "DIQ180", map[float64]string{
				1: "Blood Tested", 2: "Not Tested",
			}),
			recodeRule(diabetes, "DIQ010", map[float64]string{
				1: "Diabetes", 2: "No Diabetes", 3: "Borderline",
			}),
			recodeRule(prediabetes, "DIQ160", map[float64]string{
				1: "Prediabetes", 2: "No Prediabetes",
			}),
			// Self-reported ages above 80 are treated as implausible.
			capRule("DiagnosisAge", "DID040", 80),
			meanRule("AvgSystolic", []string{"BPXOSY1", "BPXOSY2", "BPXOSY3"}),
			meanRule("AvgDiastolic", []string{"BPXODI1", "BPXODI2", "BPXODI3"}),
			hypertensionRule(hypertension, "AvgSystolic", "AvgDiastolic",
				[]string{"BPQ020", "BPQ030", "BPQ050A"}),
		},
		Output: []string{
			KeySEQN, "Age", "BMI",
			"AgeGroup", "BMIClass", "Gender", "RaceEthnicity", "Education",
			"IncomeTier", "Insurance", "BloodTested", "DiabetesStatus",
			"Prediabetes", "DiagnosisAge", "AvgSystolic", "AvgDiastolic",
			"Hypertension",
		},
	}
}
