package jsonprofile

import (
	"bytes"
	"strings"
	"testing"

	"github.com/NVIDIA/dprofile/core"
)

func TestWriteCSVMetricsHeaderAndRow(t *testing.T) {
	header := core.Header{Names: []string{"id", "name"}}
	profiles := map[string]core.ColumnProfile{
		"id": {
			ColumnTypeInfo: core.ColumnTypeInfo{InferredType: core.TypeNumeric, DistinctCount: 3, NullCount: 0},
			Numeric:        &core.NumericStats{Min: 1, Max: 3, Mean: 2, Median: 2, StdDev: 1},
		},
		"name": {
			ColumnTypeInfo: core.ColumnTypeInfo{InferredType: core.TypeVarchar, DistinctCount: 3},
			String: &core.StringStats{
				MinLength: 3, MaxLength: 5, AvgLength: 4,
				TopK: []core.ValueCount{{Value: "bob", Count: 2}, {Value: "al", Count: 1}},
			},
		},
	}
	var buf bytes.Buffer
	if err := WriteCSVMetrics(&buf, header, profiles); err != nil {
		t.Fatalf("WriteCSVMetrics: %v", err)
	}
	out := buf.String()
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header + 2 rows, got %d lines: %q", len(lines), out)
	}
	if !strings.HasPrefix(lines[0], "column_name,type,null_count") {
		t.Fatalf("header row = %q", lines[0])
	}
	if !strings.Contains(lines[2], "bob") {
		t.Fatalf("expected top value bob in name row: %q", lines[2])
	}
}

func TestDefuseFormulaPrefixesDangerousLeadCharacters(t *testing.T) {
	cases := map[string]string{
		"=SUM(A1:A2)": "'=SUM(A1:A2)",
		"+1":          "'+1",
		"-1":          "'-1",
		"@cmd":        "'@cmd",
		"plain":       "plain",
		"":            "",
	}
	for in, want := range cases {
		if got := defuseFormula(in); got != want {
			t.Errorf("defuseFormula(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestWriteCSVMetricsDefusesFormulaInjection(t *testing.T) {
	header := core.Header{Names: []string{"name"}}
	profiles := map[string]core.ColumnProfile{
		"name": {
			ColumnTypeInfo: core.ColumnTypeInfo{InferredType: core.TypeVarchar},
			String: &core.StringStats{
				TopK: []core.ValueCount{{Value: "=cmd|' /c calc'!A0", Count: 1}},
			},
		},
	}
	var buf bytes.Buffer
	if err := WriteCSVMetrics(&buf, header, profiles); err != nil {
		t.Fatalf("WriteCSVMetrics: %v", err)
	}
	if !strings.Contains(buf.String(), "'=cmd") {
		t.Fatalf("expected defused formula in output, got %q", buf.String())
	}
}
