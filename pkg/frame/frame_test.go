package frame

import (
	"bytes"
	"math"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

const sample = ` Accel Corrected 0.a , Label data .l,Orientation 0 (rad).h
0,,0.5
3,start_heading
2,,abc
`

func TestReadTrimsHeaderAndAllowsRaggedRows(t *testing.T) {
	fr, err := Read(strings.NewReader(sample))
	if err != nil {
		t.Fatal(err)
	}
	if fr.Len() != 3 {
		t.Fatalf("Len() = %d", fr.Len())
	}
	if !fr.Has("Accel Corrected 0.a") || fr.Has(" Accel Corrected 0.a ") {
		t.Error("header names should be trimmed")
	}

	labels, err := fr.Strings("Label data .l")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(labels, []string{"", "start_heading", ""}) {
		t.Errorf("labels = %q", labels)
	}

	h, err := fr.Numeric("Orientation 0 (rad).h")
	if err != nil {
		t.Fatal(err)
	}
	if h[0] != 0.5 || !math.IsNaN(h[1]) || !math.IsNaN(h[2]) {
		t.Errorf("heading = %v", h)
	}

	if _, err := fr.Numeric("missing"); err == nil {
		t.Error("expected error for a missing column")
	}
}

func TestReadEmpty(t *testing.T) {
	if _, err := Read(strings.NewReader("")); err == nil {
		t.Error("expected error for empty input")
	}
}

func TestAddNumericSelectAndWrite(t *testing.T) {
	fr, err := Read(strings.NewReader("a,b\n1,2\n3,4\n"))
	if err != nil {
		t.Fatal(err)
	}
	fr.AddNumeric("c", []float64{0.25, math.NaN()})

	sel, err := fr.Select("c", "a")
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := sel.WriteCSV(&buf); err != nil {
		t.Fatal(err)
	}
	if got := buf.String(); got != "c,a\n0.25,1\n,3\n" {
		t.Errorf("csv = %q", got)
	}

	path := filepath.Join(t.TempDir(), "out.csv")
	if err := sel.Save(path); err != nil {
		t.Fatal(err)
	}
	back, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(back.Columns(), []string{"c", "a"}) {
		t.Errorf("columns = %v", back.Columns())
	}
}

func TestHead(t *testing.T) {
	fr, _ := Read(strings.NewReader("x,y\n1,2\n3,4\n5,6\n"))
	lines := strings.Split(strings.TrimRight(fr.Head(2), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("Head(2) rendered %d lines: %q", len(lines), lines)
	}
	if !strings.HasPrefix(lines[2], "1") || !strings.Contains(lines[2], "3") {
		t.Errorf("last line = %q", lines[2])
	}
}
