package profile

import (
	"github.com/NVIDIA/dprofile/classify"
	"github.com/NVIDIA/dprofile/config"
	"github.com/NVIDIA/dprofile/core"
)

// MoneyProfiler wraps a NumericProfiler over the parsed decimal amount
// and additionally tracks the money-specific shape checks of spec §4.6:
// two-decimal conformance and disallowed-symbol usage.
type MoneyProfiler struct {
	numeric *NumericProfiler

	disallowedSymbols bool
	valid, invalid    int64
}

func NewMoneyProfiler(cfg config.Thresholds, column string, alloc SpillAllocator) *MoneyProfiler {
	return &MoneyProfiler{numeric: NewNumericProfiler(cfg, column, alloc)}
}

// Observe takes the raw field text (not yet parsed) so the profiler can
// evaluate the two-decimal and disallowed-symbol checks against the
// original representation. Only values matching the money pattern
// exactly (digits, a single dot, exactly two fractional digits, no
// currency symbols or grouping) count as valid money values; a value
// that merely parses numerically after stripping symbols (e.g. "$19.99"
// or "1,000.00") is a disallowed-symbol violation, not a valid amount.
func (p *MoneyProfiler) Observe(raw string) error {
	if !classify.IsMoneyExact(raw) {
		p.invalid++
		if raw != classify.StripSymbols(raw) {
			p.disallowedSymbols = true
		}
		return nil
	}
	p.valid++
	v, ok := classify.ParseNumeric(raw)
	if !ok {
		return nil
	}
	return p.numeric.Observe(v)
}

func (p *MoneyProfiler) Finalize() (*core.NumericStats, error) {
	stats, err := p.numeric.Finalize()
	if err != nil {
		return nil, err
	}
	stats.ValidCount = p.valid
	stats.InvalidCount = p.invalid
	stats.DisallowedSymbolsFound = p.disallowedSymbols
	// two_decimal_ok is true iff every non-null value matched the money
	// pattern exactly; a single symbol-bearing or malformed value fails it.
	stats.TwoDecimalOK = p.invalid == 0 && p.valid > 0
	return stats, nil
}
