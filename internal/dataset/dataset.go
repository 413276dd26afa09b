// Package dataset loads downloaded survey files into dataframes.
package dataset

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/kshedden/datareader"

	"github.com/jtorrescarbajal/nhanes-diabetes-case-study/internal/xport"
)

// Table is one loaded source file: its short dataset code, the descriptive
// name assigned from the catalog (or the code itself when unmapped), and the
// parsed columns.
type Table struct {
	Code string
	Name string
	DF   dataframe.DataFrame
}

// columnReader is satisfied by both the transport and SAS7BDAT readers.
type columnReader interface {
	ColumnNames() []string
	Read(int) ([]*datareader.Series, error)
}

const chunkRows = 10000

// LoadDir parses every data file in dir into a Table. Files are matched by
// extension, case-insensitively: SAS transport files via the xport package,
// SAS7BDAT files via datareader. Parse errors are fatal; no partial table is
// returned. Tables are keyed by dataset code.
func LoadDir(dir string, labels map[string]string) (map[string]Table, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read data dir: %w", err)
	}

	tables := make(map[string]Table)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext != ".xpt" && ext != ".sas7bdat" {
			continue
		}
		t, err := LoadFile(filepath.Join(dir, e.Name()), labels)
		if err != nil {
			return nil, err
		}
		tables[t.Code] = t
	}
	return tables, nil
}

// LoadFile parses a single data file.
func LoadFile(path string, labels map[string]string) (Table, error) {
	base := filepath.Base(path)
	code := strings.TrimSuffix(base, filepath.Ext(base))

	f, err := os.Open(path)
	if err != nil {
		return Table{}, fmt.Errorf("open %s: %w", base, err)
	}
	defer f.Close()

	var rdr columnReader
	switch strings.ToLower(filepath.Ext(base)) {
	case ".xpt":
		rdr, err = xport.NewReader(f)
	case ".sas7bdat":
		rdr, err = datareader.NewSAS7BDATReader(f)
	default:
		return Table{}, fmt.Errorf("unsupported data file %s", base)
	}
	if err != nil {
		return Table{}, fmt.Errorf("parse %s: %w", base, err)
	}

	df, err := frameFrom(rdr)
	if err != nil {
		return Table{}, fmt.Errorf("parse %s: %w", base, err)
	}

	name := code
	if desc, ok := labels[code]; ok {
		name = desc
	}
	return Table{Code: code, Name: name, DF: df}, nil
}

// frameFrom drains a column reader into a dataframe. Numeric columns become
// float series with NaN for missing values; character columns become string
// series with gota's NA token for missing values.
func frameFrom(rdr columnReader) (dataframe.DataFrame, error) {
	names := rdr.ColumnNames()
	floats := make([][]float64, len(names))
	strs := make([][]string, len(names))
	numeric := make([]bool, len(names))
	first := true

	for {
		chunk, err := rdr.Read(chunkRows)
		// The SAS7BDAT reader signals exhaustion with io.EOF, the transport
		// reader with a nil chunk.
		if err == io.EOF || (err == nil && chunk == nil) {
			break
		}
		if err != nil {
			return dataframe.DataFrame{}, err
		}
		if len(chunk) != len(names) {
			return dataframe.DataFrame{}, fmt.Errorf("chunk has %d columns, want %d", len(chunk), len(names))
		}
		for j, ser := range chunk {
			ser = ser.UpcastNumeric()
			switch data := ser.Data().(type) {
			case []float64:
				if first {
					numeric[j] = true
				} else if !numeric[j] {
					return dataframe.DataFrame{}, fmt.Errorf("column %s changed type across chunks", names[j])
				}
				miss := ser.Missing()
				for i, v := range data {
					if miss != nil && miss[i] {
						v = math.NaN()
					}
					floats[j] = append(floats[j], v)
				}
			case []string:
				if numeric[j] {
					return dataframe.DataFrame{}, fmt.Errorf("column %s changed type across chunks", names[j])
				}
				miss := ser.Missing()
				for i, v := range data {
					if miss != nil && miss[i] {
						v = "NaN"
					}
					strs[j] = append(strs[j], v)
				}
			default:
				return dataframe.DataFrame{}, fmt.Errorf("column %s has unsupported type %T", names[j], data)
			}
		}
		first = false
	}

	cols := make([]series.Series, len(names))
	for j, name := range names {
		if numeric[j] {
			cols[j] = series.New(floats[j], series.Float, name)
		} else {
			cols[j] = series.New(strs[j], series.String, name)
		}
	}
	df := dataframe.New(cols...)
	if df.Err != nil {
		return dataframe.DataFrame{}, df.Err
	}
	return df, nil
}

// Codes returns the sorted dataset codes of a table set, for logging.
func Codes(tables map[string]Table) []string {
	codes := make([]string, 0, len(tables))
	for code := range tables {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
