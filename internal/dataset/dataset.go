// Package dataset loads CSV training data into named columns and prepares
// it for training: imputation, outlier filtering and train/test splits.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
)

// ErrNoColumn is returned when a named column is not in the frame.
var ErrNoColumn = errors.New("no such column")

// Frame is a table of raw CSV cells keyed by column name. An empty cell (or
// one of the usual NA spellings) is missing.
type Frame struct {
	Columns []string
	cells   map[string][]string
	n       int
}

var naValues = map[string]bool{"": true, "NA": true, "N/A": true, "NaN": true, "nan": true, "null": true}

// IsMissing reports whether a raw cell holds no value.
func IsMissing(cell string) bool {
	return naValues[strings.TrimSpace(cell)]
}

// ReadCSV loads a CSV file with a header row.
func ReadCSV(path string) (*Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()
	frame, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("dataset %s: %w", path, err)
	}
	return frame, nil
}

// Parse reads CSV with a header row from r.
func Parse(r io.Reader) (*Frame, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	f := &Frame{Columns: make([]string, len(header)), cells: make(map[string][]string, len(header))}
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\uFEFF"))
		if _, dup := f.cells[h]; dup {
			return nil, fmt.Errorf("duplicate column %q", h)
		}
		f.Columns[i] = h
		f.cells[h] = nil
	}

	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", f.n+1, err)
		}
		for i, col := range f.Columns {
			f.cells[col] = append(f.cells[col], strings.TrimSpace(rec[i]))
		}
		f.n++
	}
	return f, nil
}

// Len returns the number of rows.
func (f *Frame) Len() int { return f.n }

// Has reports whether col exists.
func (f *Frame) Has(col string) bool {
	_, ok := f.cells[col]
	return ok
}

// Strings returns the raw cells of col.
func (f *Frame) Strings(col string) ([]string, error) {
	v, ok := f.cells[col]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoColumn, col)
	}
	return v, nil
}

// Set replaces the cells of col, adding the column if needed.
func (f *Frame) Set(col string, cells []string) error {
	if len(cells) != f.n {
		return fmt.Errorf("column %s has %d cells, frame has %d rows", col, len(cells), f.n)
	}
	if !f.Has(col) {
		f.Columns = append(f.Columns, col)
	}
	f.cells[col] = cells
	return nil
}

// Drop removes columns; unknown names are ignored.
func (f *Frame) Drop(cols ...string) {
	for _, col := range cols {
		if !f.Has(col) {
			continue
		}
		delete(f.cells, col)
		for i, c := range f.Columns {
			if c == col {
				f.Columns = append(f.Columns[:i:i], f.Columns[i+1:]...)
				break
			}
		}
	}
}

// Missing counts missing cells in col.
func (f *Frame) Missing(col string) int {
	n := 0
	for _, c := range f.cells[col] {
		if IsMissing(c) {
			n++
		}
	}
	return n
}

// IsNumeric reports whether every present cell of col parses as a number.
func (f *Frame) IsNumeric(col string) bool {
	for _, c := range f.cells[col] {
		if IsMissing(c) {
			continue
		}
		if _, err := strconv.ParseFloat(c, 64); err != nil {
			return false
		}
	}
	return true
}

// Floats parses col. Missing or unparseable cells become NaN.
func (f *Frame) Floats(col string) ([]float64, error) {
	cells, err := f.Strings(col)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(cells))
	for i, c := range cells {
		v, err := strconv.ParseFloat(c, 64)
		if err != nil || IsMissing(c) {
			v = math.NaN()
		}
		out[i] = v
	}
	return out, nil
}

// Matrix returns the rows of the given columns as floats.
func (f *Frame) Matrix(cols []string) ([][]float64, error) {
	parsed := make([][]float64, len(cols))
	for j, col := range cols {
		v, err := f.Floats(col)
		if err != nil {
			return nil, err
		}
		for i, x := range v {
			if math.IsNaN(x) {
				return nil, fmt.Errorf("column %s row %d: %q is not a number", col, i, f.cells[col][i])
			}
		}
		parsed[j] = v
	}
	X := make([][]float64, f.n)
	for i := range X {
		X[i] = make([]float64, len(cols))
		for j := range cols {
			X[i][j] = parsed[j][i]
		}
	}
	return X, nil
}

// Filter returns a new frame with the rows where keep is true.
func (f *Frame) Filter(keep []bool) *Frame {
	out := &Frame{Columns: append([]string(nil), f.Columns...), cells: make(map[string][]string, len(f.cells))}
	for _, col := range f.Columns {
		var kept []string
		for i, c := range f.cells[col] {
			if keep[i] {
				kept = append(kept, c)
			}
		}
		out.cells[col] = kept
	}
	for _, k := range keep {
		if k {
			out.n++
		}
	}
	return out
}

// ImputeMode fills missing cells of col with its most frequent value. Ties
// go to the smallest value.
func (f *Frame) ImputeMode(col string) (string, error) {
	cells, err := f.Strings(col)
	if err != nil {
		return "", err
	}
	counts := make(map[string]int)
	for _, c := range cells {
		if !IsMissing(c) {
			counts[c]++
		}
	}
	if len(counts) == 0 {
		return "", fmt.Errorf("column %s has no values", col)
	}
	values := make([]string, 0, len(counts))
	for v := range counts {
		values = append(values, v)
	}
	sort.Strings(values)
	mode := values[0]
	for _, v := range values[1:] {
		if counts[v] > counts[mode] {
			mode = v
		}
	}
	for i, c := range cells {
		if IsMissing(c) {
			cells[i] = mode
		}
	}
	return mode, nil
}

// ImputeMedian parses col as numbers and fills missing or unparseable cells
// with the median of the rest.
func (f *Frame) ImputeMedian(col string) (float64, error) {
	v, err := f.Floats(col)
	if err != nil {
		return 0, err
	}
	present := make([]float64, 0, len(v))
	for _, x := range v {
		if !math.IsNaN(x) {
			present = append(present, x)
		}
	}
	if len(present) == 0 {
		return 0, fmt.Errorf("column %s has no numeric values", col)
	}
	sort.Float64s(present)
	median := Quantile(present, 0.5)

	cells := f.cells[col]
	for i, x := range v {
		if math.IsNaN(x) {
			cells[i] = strconv.FormatFloat(median, 'g', -1, 64)
		}
	}
	return median, nil
}
