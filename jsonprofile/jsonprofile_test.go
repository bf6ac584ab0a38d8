package jsonprofile

import (
	"math"
	"strings"
	"testing"

	"github.com/NVIDIA/dprofile/core"
)

func TestJSONFloatNullsNaNAndInf(t *testing.T) {
	cases := []float64{math.NaN(), math.Inf(1), math.Inf(-1)}
	for _, v := range cases {
		b, err := jsonFloat(v).MarshalJSON()
		if err != nil {
			t.Fatalf("MarshalJSON(%v): %v", v, err)
		}
		if string(b) != "null" {
			t.Fatalf("MarshalJSON(%v) = %s, want null", v, b)
		}
	}
}

func TestJSONFloatFiniteValuePassesThrough(t *testing.T) {
	b, err := jsonFloat(3.5).MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON: %v", err)
	}
	if string(b) != "3.5" {
		t.Fatalf("MarshalJSON(3.5) = %s, want 3.5", b)
	}
}

func TestBuildAndMarshalProfile(t *testing.T) {
	run := core.NewRun(core.NewDialect(core.Comma, false))
	run.SetHeader(core.Header{Names: []string{"id", "amount"}})
	run.Start()
	run.Complete()

	profiles := map[string]core.ColumnProfile{
		"id": {ColumnTypeInfo: core.ColumnTypeInfo{InferredType: core.TypeNumeric, DistinctCount: 3}},
		"amount": {
			ColumnTypeInfo: core.ColumnTypeInfo{InferredType: core.TypeMoney},
			Numeric: &core.NumericStats{
				Min: 1, Max: 9, Mean: 5, Median: 5, StdDev: math.NaN(),
			},
		},
	}
	p := Build(run, run.Header(), 3, ',', profiles, nil)
	if p.RunID != run.ID() {
		t.Fatalf("RunID = %s, want %s", p.RunID, run.ID())
	}
	if p.File.Rows != 3 || p.File.Columns != 2 {
		t.Fatalf("File = %+v", p.File)
	}

	data, err := Marshal(p)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	s := string(data)
	if !strings.Contains(s, `"stddev": null`) {
		t.Fatalf("expected NaN stddev to render as null, got: %s", s)
	}
	if !strings.Contains(s, `"run_id"`) {
		t.Fatalf("expected run_id field in output: %s", s)
	}
}

func TestBuildSeparatesErrorsFromWarnings(t *testing.T) {
	run := core.NewRun(core.NewDialect(core.Comma, false))
	run.Errors.Merge("E_NUMERIC_FORMAT", "bad number", 2)
	run.Errors.Merge("W_DATE_RANGE", "out of range", 1)

	p := Build(run, core.Header{}, 0, ',', map[string]core.ColumnProfile{}, nil)
	if len(p.Errors) != 1 || p.Errors[0].Code != "E_NUMERIC_FORMAT" {
		t.Fatalf("Errors = %+v", p.Errors)
	}
	if len(p.Warnings) != 1 || p.Warnings[0].Code != "W_DATE_RANGE" {
		t.Fatalf("Warnings = %+v", p.Warnings)
	}
}
