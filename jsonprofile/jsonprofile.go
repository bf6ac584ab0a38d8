// Package jsonprofile renders the run-level JSON profile document and
// the flat CSV metrics export (spec §6). Both are pure functions over
// already-computed ColumnProfiles; the HTTP surface and workspace
// directory layout that would serve these documents remain external
// collaborators.
/*
 * Copyright (c) 2018-2025, NVIDIA CORPORATION. All rights reserved.
 */
package jsonprofile

import (
	"math"

	jsoniter "github.com/json-iterator/go"

	"github.com/NVIDIA/dprofile/core"
	"github.com/NVIDIA/dprofile/core/errtax"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// jsonFloat serializes NaN/±Inf as JSON null (spec §6, §5 "floating-point
// pitfalls"), exactly as stats/common.go's custom MarshalJSON avoids
// emitting non-finite values the JSON spec forbids.
type jsonFloat float64

func (f jsonFloat) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(v)
}

type quantilesJSON struct {
	P01 jsonFloat `json:"p01"`
	P05 jsonFloat `json:"p05"`
	P25 jsonFloat `json:"p25"`
	P50 jsonFloat `json:"p50"`
	P75 jsonFloat `json:"p75"`
	P95 jsonFloat `json:"p95"`
	P99 jsonFloat `json:"p99"`
}

type numericJSON struct {
	Min, Max, Mean, Median, StdDev jsonFloat
	Quantiles                      quantilesJSON
	Histogram                      []int64
	GaussianPValue                 *jsonFloat
	TwoDecimalOK                   bool
	DisallowedSymbolsFound         bool
	ValidCount                     int64
	InvalidCount                   int64
}

// MarshalJSON is hand-written because Min/Max/Mean/etc. must go through
// jsonFloat's NaN/Inf handling while still appearing as plain named
// fields (not nested) in the output.
func (n numericJSON) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Min            jsonFloat     `json:"min"`
		Max            jsonFloat     `json:"max"`
		Mean           jsonFloat     `json:"mean"`
		Median         jsonFloat     `json:"median"`
		StdDev         jsonFloat     `json:"stddev"`
		Quantiles      quantilesJSON `json:"quantiles"`
		Histogram      []int64       `json:"histogram"`
		GaussianPValue *jsonFloat    `json:"gaussian_p_value,omitempty"`
		TwoDecimalOK   bool          `json:"two_decimal_ok,omitempty"`
		NoSymbols      bool          `json:"disallowed_symbols_found,omitempty"`
		ValidCount     int64         `json:"valid_count,omitempty"`
		InvalidCount   int64         `json:"invalid_count,omitempty"`
	}{
		Min: n.Min, Max: n.Max, Mean: n.Mean, Median: n.Median, StdDev: n.StdDev,
		Quantiles: n.Quantiles, Histogram: n.Histogram, GaussianPValue: n.GaussianPValue,
		TwoDecimalOK: n.TwoDecimalOK, NoSymbols: n.DisallowedSymbolsFound,
		ValidCount: n.ValidCount, InvalidCount: n.InvalidCount,
	})
}

type columnJSON struct {
	Name             string      `json:"name"`
	Type             string      `json:"type"`
	DetectedFormat   string      `json:"detected_format,omitempty"`
	NullCount        int64       `json:"null_count"`
	ErrorCount       int64       `json:"error_count"`
	WarningCount     int64       `json:"warning_count"`
	DistinctCount    int64       `json:"distinct_count"`
	CardinalityRatio jsonFloat   `json:"cardinality_ratio"`
	SampleValues     []string    `json:"sample_values,omitempty"`
	Confidence       jsonFloat   `json:"confidence"`
	Numeric          *numericJSON `json:"numeric,omitempty"`
	Date             *core.DateStats `json:"date,omitempty"`
	String           *core.StringStats `json:"string,omitempty"`
}

func toColumnJSON(name string, p core.ColumnProfile) columnJSON {
	cj := columnJSON{
		Name: name, Type: string(p.InferredType), DetectedFormat: p.DetectedFormat,
		NullCount: p.NullCount, ErrorCount: p.ErrorCount, WarningCount: p.WarningCount,
		DistinctCount: p.DistinctCount, CardinalityRatio: jsonFloat(p.CardinalityRatio),
		SampleValues: p.SampleValues, Confidence: jsonFloat(p.Confidence),
	}
	if p.Numeric != nil {
		var gp *jsonFloat
		if p.Numeric.GaussianPValue != nil {
			v := jsonFloat(*p.Numeric.GaussianPValue)
			gp = &v
		}
		cj.Numeric = &numericJSON{
			Min: jsonFloat(p.Numeric.Min), Max: jsonFloat(p.Numeric.Max), Mean: jsonFloat(p.Numeric.Mean),
			Median: jsonFloat(p.Numeric.Median), StdDev: jsonFloat(p.Numeric.StdDev),
			Quantiles: quantilesJSON{
				P01: jsonFloat(p.Numeric.Quantiles.P01), P05: jsonFloat(p.Numeric.Quantiles.P05),
				P25: jsonFloat(p.Numeric.Quantiles.P25), P50: jsonFloat(p.Numeric.Quantiles.P50),
				P75: jsonFloat(p.Numeric.Quantiles.P75), P95: jsonFloat(p.Numeric.Quantiles.P95),
				P99: jsonFloat(p.Numeric.Quantiles.P99),
			},
			Histogram: p.Numeric.Histogram, GaussianPValue: gp,
			TwoDecimalOK: p.Numeric.TwoDecimalOK, DisallowedSymbolsFound: p.Numeric.DisallowedSymbolsFound,
			ValidCount: p.Numeric.ValidCount, InvalidCount: p.Numeric.InvalidCount,
		}
	}
	cj.Date = p.Date
	cj.String = p.String
	return cj
}

type fileJSON struct {
	Rows      int64    `json:"rows"`
	Columns   int      `json:"columns"`
	Delimiter string   `json:"delimiter"`
	Header    []string `json:"header"`
}

type errorJSON struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Count   int    `json:"count"`
}

// Profile is the spec §6 JSON profile document.
type Profile struct {
	RunID         string        `json:"run_id"`
	File          fileJSON      `json:"file"`
	Columns       []columnJSON  `json:"columns"`
	Errors        []errorJSON   `json:"errors"`
	Warnings      []errorJSON   `json:"warnings"`
	CandidateKeys []core.CandidateKey `json:"candidate_keys"`
}

// Build assembles the JSON profile document from a completed run's
// state. rows is the total data-row count observed during S6.
func Build(run *core.Run, header core.Header, rows int64, delimiter byte, profiles map[string]core.ColumnProfile, candidateKeys []core.CandidateKey) Profile {
	snap := run.Snapshot()

	cols := make([]columnJSON, 0, len(header.Names))
	for _, name := range header.Names {
		cols = append(cols, toColumnJSON(name, profiles[name]))
	}

	var errs, warns []errorJSON
	for _, d := range snap.Errors {
		ej := errorJSON{Code: string(d.Code), Message: d.Message, Count: d.Count}
		if errtax.IsWarning(d.Code) {
			warns = append(warns, ej)
		} else {
			errs = append(errs, ej)
		}
	}

	return Profile{
		RunID: snap.ID,
		File: fileJSON{
			Rows: rows, Columns: header.Arity(), Delimiter: string(delimiter), Header: header.Names,
		},
		Columns:       cols,
		Errors:        errs,
		Warnings:      warns,
		CandidateKeys: candidateKeys,
	}
}

// Marshal serializes p, JSON-null for every NaN/±Inf float (spec §5,§6).
func Marshal(p Profile) ([]byte, error) {
	return json.MarshalIndent(p, "", "  ")
}
