// Package pipeline orchestrates S1 through S8 end to end and owns the
// Run/RunState transitions. The HTTP surface, on-disk workspace layout,
// report rendering, and CLI loader are external collaborators and are
// represented here only as the narrow Workspace and AuditSink
// interfaces the core calls into.
/*
 * Copyright (c) 2018-2025, NVIDIA CORPORATION. All rights reserved.
 */
package pipeline

import (
	"context"
	"io"
	"math"
	"time"

	"github.com/NVIDIA/dprofile/classify"
	"github.com/NVIDIA/dprofile/config"
	"github.com/NVIDIA/dprofile/core"
	"github.com/NVIDIA/dprofile/core/errtax"
	"github.com/NVIDIA/dprofile/dup"
	"github.com/NVIDIA/dprofile/ingest"
	"github.com/NVIDIA/dprofile/internal/nlog"
	"github.com/NVIDIA/dprofile/keys"
	"github.com/NVIDIA/dprofile/profile"
)

// Workspace allocates scratch file paths for per-column disk spill. One
// Workspace instance is scoped to a single run; the pipeline never
// constructs file paths itself.
type Workspace interface {
	SpillPath(column, kind string) (string, error)
}

// AuditSink is an append-only event sink: counts, codes, and timings
// only, never field values (spec §5 "PII discipline").
type AuditSink interface {
	Append(runID string, code string, fields map[string]any)
}

// Opener re-opens the run's input from the beginning. The pipeline scans
// the input more than once (dialect sampling, classification, profiling)
// and never buffers the whole stream itself; the caller supplies a fresh
// reader each time (e.g. re-opening a file or re-slicing an in-memory
// buffer), per spec §9 "lazy iteration and restartability".
type Opener func() (io.ReadCloser, error)

// Pipeline is the core's external surface (spec §6): create_run,
// ingest, status, suggest_keys, check_duplicates.
type Pipeline interface {
	CreateRun(dialect core.Dialect) *core.Run
	Ingest(ctx context.Context, run *core.Run, open Opener, ws Workspace, audit AuditSink) error
	Status(run *core.Run) core.Snapshot
	Profiles(run *core.Run) map[string]core.ColumnProfile
	SuggestKeys(run *core.Run) []core.CandidateKey
	CheckDuplicates(ctx context.Context, run *core.Run, open Opener, keyColumns []string, ws Workspace) (*core.DuplicateResult, error)
}

// corePipeline is the only implementation; it keeps per-run results
// (column profiles, key-analyzer inputs) in a side table keyed by run
// ID, since core.Run itself must not import profile/classify/keys (they
// import core, not the other way around).
type corePipeline struct {
	cfg   config.Thresholds
	state map[string]*runResult
}

type runResult struct {
	profiles    map[string]core.ColumnProfile
	columnStats []keys.ColumnStat
}

func New(cfg config.Thresholds) Pipeline {
	return &corePipeline{cfg: cfg, state: make(map[string]*runResult)}
}

func (p *corePipeline) CreateRun(dialect core.Dialect) *core.Run {
	return core.NewRun(dialect)
}

func (p *corePipeline) Status(run *core.Run) core.Snapshot {
	return run.Snapshot()
}

// Ingest drives S1-S6 synchronously, per spec §6: "ingest(run_id, bytes)
// drives S1-S6 synchronously, advancing state to processing then
// completed or failed."
func (p *corePipeline) Ingest(ctx context.Context, run *core.Run, open Opener, ws Workspace, audit AuditSink) error {
	run.Start()
	nlog.Infoln("run", run.ID(), "starting ingest")

	if err := p.stageValidate(run, open, audit); err != nil {
		run.Fail()
		return err
	}
	if run.Errors.HasCatastrophic() {
		run.Fail()
		return nil
	}

	dialect, err := p.stageDialect(run, open, audit)
	if err != nil {
		run.Fail()
		return err
	}
	if err := run.OverrideDialect(dialect); err != nil {
		run.Fail()
		return err
	}

	classifications, header, err := p.stageClassify(ctx, run, open, audit)
	if err != nil {
		run.Fail()
		return err
	}
	if run.Errors.HasCatastrophic() {
		run.Fail()
		return nil
	}
	run.SetHeader(header)

	result, err := p.stageProfile(ctx, run, open, ws, header, classifications, audit)
	if err != nil {
		run.Fail()
		return err
	}
	if run.Errors.HasCatastrophic() {
		run.Fail()
		return nil
	}
	p.state[run.ID()] = result

	run.Complete()
	audit.Append(run.ID(), "run_completed", map[string]any{"columns": len(header.Names)})
	return nil
}

func (p *corePipeline) stageValidate(run *core.Run, open Opener, audit AuditSink) error {
	start := time.Now()
	defer func() { run.RecordStage("validate", time.Since(start)) }()

	r, err := open()
	if err != nil {
		return err
	}
	defer r.Close()

	res, err := ingest.Validate(r, p.cfg.ValidateChunkSize)
	if err != nil {
		if iv, ok := err.(*ingest.ErrInvalidUTF8); ok {
			run.Errors.Catastrophic(errtax.EUTF8Invalid, "invalid UTF-8 at byte "+itoa64(iv.Offset))
			audit.Append(run.ID(), string(errtax.EUTF8Invalid), map[string]any{"offset": iv.Offset})
			return nil
		}
		return err
	}
	_ = res

	return p.stageLineEndings(run, open, audit)
}

// stageLineEndings runs S2's detection half (normalization happens
// streaming, via NormalizingReader, in every later re-scan) and flags
// W_LINE_ENDING when the input mixes more than one line-ending style.
func (p *corePipeline) stageLineEndings(run *core.Run, open Opener, audit AuditSink) error {
	r, err := open()
	if err != nil {
		return err
	}
	defer r.Close()

	sample := make([]byte, p.cfg.DialectSampleSize)
	n, rerr := io.ReadFull(r, sample)
	if rerr != nil && rerr != io.ErrUnexpectedEOF && rerr != io.EOF {
		return rerr
	}
	sample = sample[:n]

	rep := ingest.DetectLineEndings(sample, true)
	if rep.Mixed {
		run.Errors.Merge(errtax.WLineEnding, "input mixes more than one line-ending style", 1)
		audit.Append(run.ID(), string(errtax.WLineEnding), map[string]any{
			"crlf": rep.CRLFCount, "lf": rep.LFCount, "cr": rep.CRCount,
		})
	}
	return nil
}

func (p *corePipeline) stageDialect(run *core.Run, open Opener, audit AuditSink) (core.Dialect, error) {
	start := time.Now()
	defer func() { run.RecordStage("dialect", time.Since(start)) }()

	r, err := open()
	if err != nil {
		return core.Dialect{}, err
	}
	defer r.Close()

	sample := make([]byte, p.cfg.DialectSampleSize)
	n, rerr := io.ReadFull(r, sample)
	if rerr != nil && rerr != io.ErrUnexpectedEOF && rerr != io.EOF {
		return core.Dialect{}, rerr
	}
	sample = sample[:n]

	existing := run.Dialect()
	guess := ingest.DetectDialect(sample, existing.Delimiter)
	if guess.Mismatch {
		run.Errors.Merge(errtax.WDelimiterMismatch, "supplied delimiter disagrees with detector", 1)
		audit.Append(run.ID(), string(errtax.WDelimiterMismatch), map[string]any{
			"supplied": string(rune(existing.Delimiter)), "suggested": string(rune(guess.Suggested)),
		})
	}
	return core.NewDialect(guess.Delimiter, guess.Quoted), nil
}

// stageClassify runs S5 over the full (normalized) input: one
// ColumnClassifier per column, fed every field in column order.
func (p *corePipeline) stageClassify(ctx context.Context, run *core.Run, open Opener, audit AuditSink) (map[string]*classify.Result, core.Header, error) {
	start := time.Now()
	defer func() { run.RecordStage("classify", time.Since(start)) }()

	r, err := open()
	if err != nil {
		return nil, core.Header{}, err
	}
	defer r.Close()

	dec := ingest.NewDecoder(ingest.NormalizingReader(r), run.Dialect(), run.Errors, true)
	header, err := dec.ParseHeader()
	if err != nil {
		return nil, core.Header{}, nil // catastrophic already recorded by ParseHeader
	}

	classifiers := make([]*classify.ColumnClassifier, len(header.Names))
	for i := range classifiers {
		classifiers[i] = classify.NewColumnClassifier(p.cfg)
	}

	var rowNum int64
	for {
		if err := ctx.Err(); err != nil {
			return nil, header, err
		}
		row, ok, rerr := dec.Next()
		if rerr != nil {
			if run.Errors.HasCatastrophic() {
				return nil, header, nil
			}
			return nil, header, rerr
		}
		if !ok {
			break
		}
		rowNum = row.Num
		for i, v := range row.Fields {
			if v == "" {
				classifiers[i].ObserveNull()
				continue
			}
			classifiers[i].Observe(v)
		}
		if rowNum%int64(p.cfg.ProgressRowInterval) == 0 {
			_ = run.SetProgress(progressPct(rowNum, 50))
		}
	}

	out := make(map[string]*classify.Result, len(header.Names))
	for i, name := range header.Names {
		res := classifiers[i].Finalize()
		out[name] = &res
		if res.DateMixedFormats {
			run.Errors.MergeColumn(name, errtax.EDateMixedFormat, "column has more than one concrete date format", 1)
		}
		if res.Info.WarningCount > 0 {
			run.Errors.MergeColumn(name, errtax.WDateRange, "date values outside the plausible year range", int(res.Info.WarningCount))
		}
		if res.Info.ErrorCount > 0 {
			switch res.Info.InferredType {
			case core.TypeMoney:
				run.Errors.MergeColumn(name, errtax.EMoneyFormat, "money values with disallowed symbols or non-conforming decimals", int(res.Info.ErrorCount))
			case core.TypeNumeric:
				run.Errors.MergeColumn(name, errtax.ENumericFormat, "numeric values with disallowed symbols", int(res.Info.ErrorCount))
			}
		}
	}
	return out, header, nil
}

// stageProfile runs S6 over a second full pass, now that every column's
// type is fixed, feeding each value to the type-appropriate profiler.
func (p *corePipeline) stageProfile(ctx context.Context, run *core.Run, open Opener, ws Workspace, header core.Header, classifications map[string]*classify.Result, audit AuditSink) (*runResult, error) {
	start := time.Now()
	defer func() { run.RecordStage("profile", time.Since(start)) }()

	r, err := open()
	if err != nil {
		return nil, err
	}
	defer r.Close()

	dec := ingest.NewDecoder(ingest.NormalizingReader(r), run.Dialect(), run.Errors, true)
	if _, err := dec.ParseHeader(); err != nil {
		return nil, nil
	}

	profilers := make([]*profile.ColumnProfiler, len(header.Names))
	stats := make([]keys.ColumnStat, len(header.Names))
	for i, name := range header.Names {
		info := classifications[name].Info
		profilers[i] = profile.NewColumnProfiler(p.cfg, name, info, ws)
		stats[i] = keys.ColumnStat{Name: name}
	}

	var rowNum, total int64
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row, ok, rerr := dec.Next()
		if rerr != nil {
			if run.Errors.HasCatastrophic() {
				return nil, nil
			}
			return nil, rerr
		}
		if !ok {
			break
		}
		rowNum = row.Num
		total++
		for i, v := range row.Fields {
			quoted := i < len(row.Quoted) && row.Quoted[i]
			if err := profilers[i].Observe(v, quoted); err != nil {
				return nil, err
			}
			if v == "" && !quoted {
				stats[i].NullCount++
			}
		}
		if rowNum%int64(p.cfg.ProgressRowInterval) == 0 {
			_ = run.SetProgress(progressPct(rowNum, 50) + 50)
		}
	}

	result := &runResult{profiles: make(map[string]core.ColumnProfile, len(header.Names))}
	for i, name := range header.Names {
		prof, err := profilers[i].Finalize()
		if err != nil {
			return nil, err
		}
		result.profiles[name] = prof

		stats[i].DistinctCount = prof.DistinctCount
		stats[i].TotalCount = total
		stats[i].InvalidCount = prof.ErrorCount
		result.columnStats = append(result.columnStats, stats[i])
	}
	audit.Append(run.ID(), "profile_complete", map[string]any{"rows": total})
	return result, nil
}

// Profiles returns the per-column S6 profiles computed by the most
// recent Ingest for run, satisfying status(run_id)'s optional
// column_profiles field (spec §6). Returns nil if Ingest hasn't
// completed a profiling pass for this run.
func (p *corePipeline) Profiles(run *core.Run) map[string]core.ColumnProfile {
	res, ok := p.state[run.ID()]
	if !ok {
		return nil
	}
	return res.profiles
}

func (p *corePipeline) SuggestKeys(run *core.Run) []core.CandidateKey {
	res, ok := p.state[run.ID()]
	if !ok {
		return nil
	}
	analyzer := keys.NewAnalyzer(p.cfg)
	return analyzer.Suggest(res.columnStats, nil)
}

// CheckDuplicates runs S8 once for the confirmed keyColumns, per spec §3
// "S8 runs once per confirmation; multiple confirmations are permitted."
func (p *corePipeline) CheckDuplicates(ctx context.Context, run *core.Run, open Opener, keyColumns []string, ws Workspace) (*core.DuplicateResult, error) {
	header := run.Header()
	idx := make([]int, len(keyColumns))
	for i, col := range keyColumns {
		idx[i] = indexOf(header.Names, col)
	}

	r, err := open()
	if err != nil {
		return nil, err
	}
	defer r.Close()

	dec := ingest.NewDecoder(ingest.NormalizingReader(r), run.Dialect(), run.Errors, true)
	if _, err := dec.ParseHeader(); err != nil {
		return nil, err
	}

	keyName := "key:" + joinNames(keyColumns)
	det := dup.NewDetector(p.cfg, keyName, ws)

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row, ok, rerr := dec.Next()
		if rerr != nil {
			return nil, rerr
		}
		if !ok {
			break
		}
		values := make([]string, len(idx))
		for i, col := range idx {
			if col >= 0 && col < len(row.Fields) {
				values[i] = row.Fields[col]
			}
		}
		if err := det.Observe(values); err != nil {
			return nil, err
		}
	}
	return det.Finalize()
}

func indexOf(names []string, name string) int {
	for i, n := range names {
		if n == name {
			return i
		}
	}
	return -1
}

func joinNames(names []string) string {
	out := ""
	for i, n := range names {
		if i > 0 {
			out += ","
		}
		out += n
	}
	return out
}

// progressPct is a monotonically non-decreasing function of rowNum,
// saturating at span: total row count isn't known while streaming, so
// rather than a true fraction-of-total this reports diminishing-returns
// growth that never regresses, satisfying the run's monotonicity
// invariant (spec §3, §5) without requiring a pre-pass to count rows.
func progressPct(rowNum int64, span int) int {
	if rowNum <= 0 {
		return 0
	}
	pct := int(math.Log1p(float64(rowNum)) * 5)
	if pct > span {
		pct = span
	}
	return pct
}

func itoa64(v int64) string {
	if v == 0 {
		return "0"
	}
	neg := v < 0
	if neg {
		v = -v
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
