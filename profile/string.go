package profile

import (
	"unicode/utf8"

	"github.com/NVIDIA/dprofile/config"
	"github.com/NVIDIA/dprofile/core"
	"github.com/NVIDIA/dprofile/profile/diskstore"
)

// StringProfiler tracks length statistics and an exact top-K frequency
// table for alpha/varchar/code columns, spec §4.6. The frequency table
// is a small in-memory map until it exceeds the column's memory budget,
// then spills to the disk structure shared with the distinct counter.
type StringProfiler struct {
	cfg    config.Thresholds
	column string
	alloc  SpillAllocator

	count, nullCount int64
	minLen, maxLen   int
	sumLen           int64
	hasNonASCII      bool

	memFreq map[string]int64
	spilled *diskstore.CountStore
	budget  int64
}

func NewStringProfiler(cfg config.Thresholds, column string, alloc SpillAllocator) *StringProfiler {
	return &StringProfiler{
		cfg: cfg, column: column, alloc: alloc,
		memFreq: make(map[string]int64),
		budget:  cfg.ColumnMemoryBudget,
	}
}

func (p *StringProfiler) Observe(s string) error {
	if s == "" {
		p.nullCount++
		return nil
	}
	n := utf8.RuneCountInString(s)
	if p.count == 0 || n < p.minLen {
		p.minLen = n
	}
	if n > p.maxLen {
		p.maxLen = n
	}
	p.sumLen += int64(n)
	p.count++
	if !utf8ASCII(s) {
		p.hasNonASCII = true
	}

	if p.spilled != nil {
		return p.spilled.Increment(s)
	}
	if _, ok := p.memFreq[s]; !ok && int64(len(p.memFreq))*avgKeyCostBytes >= p.budget {
		if err := p.spillNow(); err != nil {
			return err
		}
		return p.spilled.Increment(s)
	}
	p.memFreq[s]++
	return nil
}

// avgKeyCostBytes is a conservative per-distinct-key memory estimate
// (string header + bucket overhead) used to decide when to spill.
const avgKeyCostBytes = 64

func (p *StringProfiler) spillNow() error {
	path, err := p.alloc.SpillPath(p.column, "topk")
	if err != nil {
		return err
	}
	cs, err := diskstore.Open(path, p.cfg.SpillBatchSize)
	if err != nil {
		return err
	}
	for k, n := range p.memFreq {
		for i := int64(0); i < n; i++ {
			if err := cs.Increment(k); err != nil {
				return err
			}
		}
	}
	p.memFreq = nil
	p.spilled = cs
	return nil
}

func utf8ASCII(s string) bool {
	for _, r := range s {
		if r > 127 {
			return false
		}
	}
	return true
}

func (p *StringProfiler) Finalize() (*core.StringStats, error) {
	stats := &core.StringStats{HasNonASCII: p.hasNonASCII}
	if p.count == 0 {
		return stats, nil
	}
	stats.MinLength = float64(p.minLen)
	stats.MaxLength = float64(p.maxLen)
	stats.AvgLength = float64(p.sumLen) / float64(p.count)

	if p.spilled != nil {
		top, err := p.spilled.TopK(p.cfg.TopK)
		if err != nil {
			return nil, err
		}
		for _, v := range top {
			stats.TopK = append(stats.TopK, core.ValueCount{Value: v.Key, Count: v.Count})
		}
		return stats, nil
	}
	stats.TopK = topKFromMemory(p.memFreq, p.cfg.TopK)
	return stats, nil
}

func topKFromMemory(freq map[string]int64, k int) []core.ValueCount {
	out := make([]core.ValueCount, 0, len(freq))
	for v, n := range freq {
		out = append(out, core.ValueCount{Value: v, Count: n})
	}
	// descending by count, ties lexicographic by value (spec §5).
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && less(out[j], out[j-1]); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	if len(out) > k {
		out = out[:k]
	}
	return out
}

func less(a, b core.ValueCount) bool {
	if a.Count != b.Count {
		return a.Count > b.Count
	}
	return a.Value < b.Value
}
