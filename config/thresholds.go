// Package config carries every tunable threshold and budget the pipeline
// stages reference, constructed once per run from Defaults and optionally
// overridden field-by-field by the caller.
/*
 * Copyright (c) 2018-2025, NVIDIA CORPORATION. All rights reserved.
 */
package config

// Thresholds collects the "default" values named throughout the spec.
// None of these is read from a CLI or file here: the loader that does
// that is an external collaborator (see SPEC_FULL.md §6).
type Thresholds struct {
	// S1 Validate
	ValidateChunkSize int // default 8 KiB

	// S3 Dialect
	DialectSampleSize int // default 8 KiB sample for delimiter/quote detection

	// S4 Decode
	ProgressRowInterval int // emit progress every N decoded rows, default 1000

	// S5 Classify
	TypeThreshold  float64 // τ_type, default 0.66
	MixThreshold   float64 // τ_mix, default 0.20
	CodeMinRows    int     // M_code, default 6
	SampleReservoir int    // bounded reservoir per column, default 100

	// S6 Profile
	ColumnMemoryBudget int64 // bytes, default 64 MiB
	HistogramBins      int   // default 10
	TopK               int   // default 10
	SpillBatchSize     int   // batched commits to disk store, default 1000

	// S7 KeySuggest
	MinDistinctRatio float64 // default 0.5
	MinKeyScore      float64 // default 0.5
	MaxCandidates    int     // default 5

	// S8 Duplicate
	DuplicateExampleLimit int // default 10

	// quantile cut points reused by NumericProfiler/MoneyProfiler
	QuantileCuts []float64
}

// Defaults returns the spec's documented default tunables.
func Defaults() Thresholds {
	return Thresholds{
		ValidateChunkSize:     8 * 1024,
		DialectSampleSize:     8 * 1024,
		ProgressRowInterval:   1000,
		TypeThreshold:         0.66,
		MixThreshold:          0.20,
		CodeMinRows:           6,
		SampleReservoir:       100,
		ColumnMemoryBudget:    64 * 1024 * 1024,
		HistogramBins:         10,
		TopK:                  10,
		SpillBatchSize:        1000,
		MinDistinctRatio:      0.5,
		MinKeyScore:           0.5,
		MaxCandidates:         5,
		DuplicateExampleLimit: 10,
		QuantileCuts:          []float64{0.01, 0.05, 0.25, 0.50, 0.75, 0.95, 0.99},
	}
}
