// Package profile implements S6: streaming per-column statistics with
// exact distinct counting, spilling to an embedded on-disk store once a
// per-column memory budget is exceeded.
/*
 * Copyright (c) 2018-2025, NVIDIA CORPORATION. All rights reserved.
 */
package profile

import (
	"math"
	"sort"

	"github.com/NVIDIA/dprofile/config"
	"github.com/NVIDIA/dprofile/core"
	"github.com/NVIDIA/dprofile/profile/diskstore"
)

// SpillAllocator is the narrow collaborator a profiler asks for a
// scratch file path when its in-memory budget is exceeded. The
// pipeline's workspace type satisfies this structurally.
type SpillAllocator interface {
	SpillPath(column, kind string) (string, error)
}

// NumericProfiler maintains exact running count/sum/sum-of-squares and
// min/max in O(1) memory, and retains every parsed value (in memory
// until the budget is exceeded, then on disk) so that exact quantiles
// and a finalize-time histogram can be computed.
type NumericProfiler struct {
	cfg    config.Thresholds
	column string
	alloc  SpillAllocator

	count       int64
	invalid     int64
	sum, sumSq  float64
	min, max    float64
	haveAny     bool

	memValues []float64
	spilled   *diskstore.SortedValues
	budget    int64 // remaining byte budget, 8 bytes/float64
}

func NewNumericProfiler(cfg config.Thresholds, column string, alloc SpillAllocator) *NumericProfiler {
	return &NumericProfiler{cfg: cfg, column: column, alloc: alloc, budget: cfg.ColumnMemoryBudget}
}

// Observe feeds one parsed value. NaN and ±Inf are invalid per spec
// §4.6 and are counted as errors without updating any statistic.
func (p *NumericProfiler) Observe(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		p.invalid++
		return nil
	}
	p.count++
	p.sum += v
	p.sumSq += v * v
	if !p.haveAny || v < p.min {
		p.min = v
	}
	if !p.haveAny || v > p.max {
		p.max = v
	}
	p.haveAny = true

	if p.spilled != nil {
		return p.spilled.Add(v)
	}
	p.memValues = append(p.memValues, v)
	p.budget -= 8
	if p.budget <= 0 {
		return p.spill()
	}
	return nil
}

func (p *NumericProfiler) spill() error {
	path, err := p.alloc.SpillPath(p.column, "numeric")
	if err != nil {
		return err
	}
	sv, err := diskstore.OpenSorted(path, p.cfg.SpillBatchSize)
	if err != nil {
		return err
	}
	for _, v := range p.memValues {
		if err := sv.Add(v); err != nil {
			return err
		}
	}
	p.memValues = nil
	p.spilled = sv
	return nil
}

// InvalidCount is the number of NaN/Inf/unparseable observations.
func (p *NumericProfiler) InvalidCount() int64 { return p.invalid }

// Finalize computes mean/median/stddev/quantiles/histogram and an
// optional Gaussian p-value. Division-by-zero (no valid values) yields
// an all-zero NumericStats, per spec §4.6.
func (p *NumericProfiler) Finalize() (*core.NumericStats, error) {
	if p.count == 0 {
		return &core.NumericStats{}, nil
	}
	mean := p.sum / float64(p.count)
	variance := p.sumSq/float64(p.count) - mean*mean
	if variance < 0 {
		variance = 0 // guards against floating-point cancellation
	}
	stddev := math.Sqrt(variance)

	q, err := p.quantiles()
	if err != nil {
		return nil, err
	}
	hist, err := p.histogram()
	if err != nil {
		return nil, err
	}

	stats := &core.NumericStats{
		Min: p.min, Max: p.max, Mean: mean, Median: q.P50, StdDev: stddev,
		Quantiles: q, Histogram: hist,
	}
	if p.count >= 8 {
		skew, kurt := p.skewKurtosis()
		pv := jarqueBeraPValue(float64(p.count), skew, kurt)
		stats.GaussianPValue = &pv
	}
	return stats, nil
}

func (p *NumericProfiler) quantiles() (core.Quantiles, error) {
	cuts := p.cfg.QuantileCuts
	var q core.Quantiles
	get := func(idx int) float64 {
		if idx >= len(cuts) {
			return 0
		}
		return p.nthQuantile(cuts[idx])
	}
	if p.spilled != nil {
		var err error
		vals := make([]float64, len(cuts))
		for i, c := range cuts {
			vals[i], err = p.spilled.Quantile(c)
			if err != nil {
				return q, err
			}
		}
		q.P01, q.P05, q.P25, q.P50, q.P75, q.P95, q.P99 = vals[0], vals[1], vals[2], vals[3], vals[4], vals[5], vals[6]
		return q, nil
	}
	q.P01, q.P05, q.P25, q.P50, q.P75, q.P95, q.P99 = get(0), get(1), get(2), get(3), get(4), get(5), get(6)
	return q, nil
}

// nthQuantile is only valid when values are in memory (not spilled);
// sorts a copy so repeated calls (one per cut point) stay correct.
func (p *NumericProfiler) nthQuantile(q float64) float64 {
	n := len(p.memValues)
	if n == 0 {
		return 0
	}
	sorted := append([]float64(nil), p.memValues...)
	sort.Float64s(sorted)
	rank := int(q * float64(n-1))
	return sorted[rank]
}

func (p *NumericProfiler) histogram() ([]int64, error) {
	bins := make([]int64, p.cfg.HistogramBins)
	width := p.max - p.min
	bucket := func(v float64) int {
		if width == 0 {
			return 0
		}
		b := int((v - p.min) / width * float64(p.cfg.HistogramBins))
		if b >= p.cfg.HistogramBins {
			b = p.cfg.HistogramBins - 1
		}
		if b < 0 {
			b = 0
		}
		return b
	}
	if p.spilled != nil {
		err := p.spilled.Each(func(v float64) { bins[bucket(v)]++ })
		return bins, err
	}
	for _, v := range p.memValues {
		bins[bucket(v)]++
	}
	return bins, nil
}

// skewKurtosis computes excess kurtosis and skewness from in-memory
// values only; when spilled, the normality test is skipped (returns
// zeros, which the Jarque-Bera statistic treats as "normal-looking" —
// acceptable since GaussianPValue is documented optional).
func (p *NumericProfiler) skewKurtosis() (skew, kurtosis float64) {
	n := float64(len(p.memValues))
	if n < 8 {
		return 0, 0
	}
	mean := p.sum / float64(p.count)
	var m2, m3, m4 float64
	for _, v := range p.memValues {
		d := v - mean
		m2 += d * d
		m3 += d * d * d
		m4 += d * d * d * d
	}
	m2 /= n
	m3 /= n
	m4 /= n
	if m2 == 0 {
		return 0, 0
	}
	skew = m3 / math.Pow(m2, 1.5)
	kurtosis = m4/(m2*m2) - 3
	return skew, kurtosis
}

// jarqueBeraPValue applies the Jarque-Bera normality statistic, which is
// asymptotically chi-squared with 2 degrees of freedom; that
// distribution's closed-form CDF, 1 - e^(-x/2), gives the p-value
// directly as its complement.
func jarqueBeraPValue(n, skew, kurtosis float64) float64 {
	jb := n / 6 * (skew*skew + kurtosis*kurtosis/4)
	return math.Exp(-jb / 2)
}
