package profile

import (
	"time"

	"github.com/NVIDIA/dprofile/classify"
	"github.com/NVIDIA/dprofile/config"
	"github.com/NVIDIA/dprofile/core"
)

// ColumnProfiler drives S6 for one column whose type was already fixed
// by S5: it always runs a DistinctCounter, plus the type-specific
// profiler (numeric/money/date/string) when the type calls for one.
type ColumnProfiler struct {
	typeInfo core.ColumnTypeInfo
	distinct *DistinctCounter

	numeric *NumericProfiler
	money   *MoneyProfiler
	date    *DateProfiler
	str     *StringProfiler
}

// NewColumnProfiler wires the profiler appropriate to info.InferredType.
// Mixed and unknown columns get only the distinct counter (spec §4.6
// names numeric/money/date/string profilers; a mixed column has no
// single type-specific statistic to compute, by definition).
func NewColumnProfiler(cfg config.Thresholds, column string, info core.ColumnTypeInfo, alloc SpillAllocator) *ColumnProfiler {
	p := &ColumnProfiler{
		typeInfo: info,
		distinct: NewDistinctCounter(cfg, column, alloc),
	}
	switch info.InferredType {
	case core.TypeNumeric:
		p.numeric = NewNumericProfiler(cfg, column, alloc)
	case core.TypeMoney:
		p.money = NewMoneyProfiler(cfg, column, alloc)
	case core.TypeDate:
		p.date = NewDateProfiler(info.DetectedFormat)
	case core.TypeAlpha, core.TypeVarchar, core.TypeCode:
		p.str = NewStringProfiler(cfg, column, alloc)
	}
	return p
}

// Observe feeds one field's raw text. quoted distinguishes a
// quoted-empty "" from a truly empty unquoted field for the distinct
// counter (spec §4.6).
func (p *ColumnProfiler) Observe(raw string, quoted bool) error {
	if err := p.distinct.Observe(raw, quoted); err != nil {
		return err
	}
	if raw == "" {
		return nil
	}
	switch {
	case p.numeric != nil:
		if v, ok := classify.ParseNumeric(raw); ok {
			return p.numeric.Observe(v)
		}
		p.numeric.invalid++
		return nil
	case p.money != nil:
		return p.money.Observe(raw)
	case p.date != nil:
		layout, ok := classify.DetectDateLayout(raw, time.Now())
		if !ok {
			layout = p.date.layout
		}
		p.date.Observe(raw, layout)
		return nil
	case p.str != nil:
		return p.str.Observe(raw)
	}
	return nil
}

func (p *ColumnProfiler) Finalize() (core.ColumnProfile, error) {
	profile := core.ColumnProfile{ColumnTypeInfo: p.typeInfo}

	distinct, err := p.distinct.Finalize()
	if err != nil {
		return profile, err
	}
	profile.DistinctCount = distinct.DistinctCount
	profile.CardinalityRatio = distinct.CardinalityRatio

	switch {
	case p.numeric != nil:
		stats, err := p.numeric.Finalize()
		if err != nil {
			return profile, err
		}
		profile.Numeric = stats
		profile.ErrorCount += p.numeric.InvalidCount()
	case p.money != nil:
		stats, err := p.money.Finalize()
		if err != nil {
			return profile, err
		}
		profile.Numeric = stats
	case p.date != nil:
		profile.Date = p.date.Finalize()
	case p.str != nil:
		stats, err := p.str.Finalize()
		if err != nil {
			return profile, err
		}
		profile.String = stats
	}
	return profile, nil
}
