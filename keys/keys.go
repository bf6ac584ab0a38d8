// Package keys implements S7: scoring single and caller-supplied
// compound candidate keys for uniqueness suitability.
/*
 * Copyright (c) 2018-2025, NVIDIA CORPORATION. All rights reserved.
 */
package keys

import (
	"sort"

	"github.com/NVIDIA/dprofile/config"
	"github.com/NVIDIA/dprofile/core"
)

// ColumnStat is the per-column input to single-column key scoring,
// drawn from the column's DistinctCountResult and ColumnTypeInfo.
type ColumnStat struct {
	Name          string
	DistinctCount int64
	TotalCount    int64
	NullCount     int64
	InvalidCount  int64
}

// CompoundStat is a caller-supplied pair/triple statistic. The analyzer
// does not enumerate column combinations itself (spec §4.7): an outer
// pass computes these and hands them in.
type CompoundStat struct {
	Columns               []string
	CombinedDistinctCount int64
	TotalCount            int64
	NullRatioSum          float64
	InvalidCount          int64
}

// Analyzer scores candidate keys per spec §4.7.
type Analyzer struct {
	cfg config.Thresholds
}

func NewAnalyzer(cfg config.Thresholds) *Analyzer {
	return &Analyzer{cfg: cfg}
}

// Suggest scores every single column in columns and every compound in
// compounds, filters by the configured thresholds, and returns the
// top MaxCandidates ordered by descending score, ties broken by lower
// invalid_count.
func (a *Analyzer) Suggest(columns []ColumnStat, compounds []CompoundStat) []core.CandidateKey {
	var out []core.CandidateKey

	for _, c := range columns {
		if c.TotalCount == 0 {
			continue
		}
		distinctRatio := float64(c.DistinctCount) / float64(c.TotalCount)
		if distinctRatio < a.cfg.MinDistinctRatio {
			continue
		}
		nullRatio := float64(c.NullCount) / float64(c.TotalCount)
		score := distinctRatio * (1 - nullRatio)
		if score < a.cfg.MinKeyScore {
			continue
		}
		out = append(out, core.CandidateKey{
			Columns:       []string{c.Name},
			Score:         score,
			DistinctRatio: distinctRatio,
			NullRatioSum:  nullRatio,
			InvalidCount:  c.InvalidCount,
		})
	}

	for _, c := range compounds {
		if c.TotalCount == 0 {
			continue
		}
		distinctRatio := float64(c.CombinedDistinctCount) / float64(c.TotalCount)
		score := distinctRatio * (1 - c.NullRatioSum)
		if score < a.cfg.MinKeyScore {
			continue
		}
		out = append(out, core.CandidateKey{
			Columns:       append([]string(nil), c.Columns...),
			Score:         score,
			DistinctRatio: distinctRatio,
			NullRatioSum:  c.NullRatioSum,
			InvalidCount:  c.InvalidCount,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].InvalidCount < out[j].InvalidCount
	})

	if len(out) > a.cfg.MaxCandidates {
		out = out[:a.cfg.MaxCandidates]
	}
	return out
}
