// Package frame loads converter CSV output into named columns.
package frame

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	pkgerrors "github.com/pkg/errors"
)

// Frame is a CSV table addressed by column name. Rows may be ragged; missing
// cells read as empty strings.
type Frame struct {
	columns []string
	index   map[string]int
	rows    [][]string
}

// Load reads the CSV at path.
func Load(path string) (*Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to open %s", path)
	}
	defer f.Close()
	fr, err := Read(f)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to parse %s", path)
	}
	return fr, nil
}

// Read parses a CSV with a header row. Header names are trimmed.
func Read(r io.Reader) (*Frame, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		if err == io.EOF {
			return nil, pkgerrors.New("empty csv")
		}
		return nil, err
	}

	fr := New(header)
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		fr.rows = append(fr.rows, rec)
	}
	return fr, nil
}

// New returns an empty frame with the given columns.
func New(columns []string) *Frame {
	fr := &Frame{index: map[string]int{}}
	for i, c := range columns {
		c = strings.TrimSpace(c)
		fr.columns = append(fr.columns, c)
		if _, dup := fr.index[c]; !dup {
			fr.index[c] = i
		}
	}
	return fr
}

func (f *Frame) Columns() []string { return append([]string(nil), f.columns...) }

// Len returns the number of data rows.
func (f *Frame) Len() int { return len(f.rows) }

func (f *Frame) Has(col string) bool {
	_, ok := f.index[col]
	return ok
}

func (f *Frame) cell(row, col int) string {
	r := f.rows[row]
	if col >= len(r) {
		return ""
	}
	return strings.TrimSpace(r[col])
}

// Strings returns the raw cells of col.
func (f *Frame) Strings(col string) ([]string, error) {
	i, ok := f.index[col]
	if !ok {
		return nil, pkgerrors.Errorf("column %q not found", col)
	}
	out := make([]string, len(f.rows))
	for r := range f.rows {
		out[r] = f.cell(r, i)
	}
	return out, nil
}

// Numeric returns col as floats. Cells that do not parse become NaN.
func (f *Frame) Numeric(col string) ([]float64, error) {
	ss, err := f.Strings(col)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(ss))
	for i, s := range ss {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			v = math.NaN()
		}
		out[i] = v
	}
	return out, nil
}

// AddNumeric appends a float column. NaN is written as an empty cell.
func (f *Frame) AddNumeric(col string, values []float64) {
	i := len(f.columns)
	f.columns = append(f.columns, col)
	f.index[col] = i
	for len(f.rows) < len(values) {
		f.rows = append(f.rows, nil)
	}
	for r := range f.rows {
		for len(f.rows[r]) < i {
			f.rows[r] = append(f.rows[r], "")
		}
		cell := ""
		if r < len(values) && !math.IsNaN(values[r]) {
			cell = strconv.FormatFloat(values[r], 'f', -1, 64)
		}
		f.rows[r] = append(f.rows[r][:i], cell)
	}
}

// Select returns a new frame holding only cols, in order.
func (f *Frame) Select(cols ...string) (*Frame, error) {
	out := New(cols)
	idx := make([]int, len(cols))
	for j, c := range cols {
		i, ok := f.index[c]
		if !ok {
			return nil, pkgerrors.Errorf("column %q not found", c)
		}
		idx[j] = i
	}
	for r := range f.rows {
		row := make([]string, len(cols))
		for j, i := range idx {
			row[j] = f.cell(r, i)
		}
		out.rows = append(out.rows, row)
	}
	return out, nil
}

// WriteCSV writes the frame with its header.
func (f *Frame) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(f.columns); err != nil {
		return err
	}
	for _, r := range f.rows {
		if err := cw.Write(r); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Save writes the frame to path.
func (f *Frame) Save(path string) error {
	out, err := os.Create(path)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to create %s", path)
	}
	if err := f.WriteCSV(out); err != nil {
		out.Close()
		return pkgerrors.Wrapf(err, "failed to write %s", path)
	}
	return out.Close()
}

// Head renders the first n rows as an aligned table with a row index.
func (f *Frame) Head(n int) string {
	if n > len(f.rows) {
		n = len(f.rows)
	}
	var b strings.Builder
	tw := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "\t%s\n", strings.Join(f.columns, "\t"))
	for r := 0; r < n; r++ {
		cells := make([]string, len(f.columns))
		for c := range f.columns {
			cells[c] = f.cell(r, c)
		}
		fmt.Fprintf(tw, "%d\t%s\n", r, strings.Join(cells, "\t"))
	}
	tw.Flush()
	return b.String()
}
