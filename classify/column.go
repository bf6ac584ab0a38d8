package classify

import (
	"time"

	"github.com/NVIDIA/dprofile/config"
	"github.com/NVIDIA/dprofile/core"
)

// ColumnClassifier accumulates per-value classifications for one column
// over a sampled or full pass and, at Finalize, decides the column's
// core.ColumnType per spec §4.5.
type ColumnClassifier struct {
	cfg config.Thresholds
	now time.Time

	total      int64 // non-null values observed
	nullCount  int64

	dateCount      int64
	dateFormats    map[string]int64
	dateOutOfRange int64

	moneyCount          int64
	moneyViolationCount int64
	numericCount        int64
	numericViolationCount int64
	alphaCount          int64

	distinctSeen map[string]struct{} // approximate-free: every distinct value seen (bounded by caller's sample choice)
	sampleValues []string
}

func NewColumnClassifier(cfg config.Thresholds) *ColumnClassifier {
	return &ColumnClassifier{
		cfg:          cfg,
		now:          time.Now(),
		dateFormats:  make(map[string]int64),
		distinctSeen: make(map[string]struct{}),
	}
}

// Observe classifies one non-null value. Call ObserveNull for nulls.
func (c *ColumnClassifier) Observe(value string) {
	c.total++
	if len(c.sampleValues) < c.cfg.SampleReservoir {
		c.sampleValues = append(c.sampleValues, value)
	}
	if _, ok := c.distinctSeen[value]; !ok {
		c.distinctSeen[value] = struct{}{}
	}

	v := classifyValue(value, c.now)
	switch v.cat {
	case catDate:
		c.dateCount++
		c.dateFormats[v.dateFormat]++
		if v.outOfRange {
			c.dateOutOfRange++
		}
	case catMoney:
		c.moneyCount++
	case catMoneyViolation:
		c.moneyViolationCount++
	case catNumeric:
		c.numericCount++
	case catNumericViolation:
		c.numericViolationCount++
	case catAlpha:
		c.alphaCount++
	}
}

func (c *ColumnClassifier) ObserveNull() { c.nullCount++ }

// Result is the S5 verdict for one column: its chosen type, detected
// format (dates only), error/warning counts attributable to classification,
// and the reservoir/confidence fields of core.ColumnTypeInfo.
type Result struct {
	Info              core.ColumnTypeInfo
	DateMixedFormats  bool // > 1 concrete date format observed
	MoneyWithErrors   bool // money chosen only by the below-threshold violation rule, or numeric with numeric violations
}

// Finalize applies the aggregation rules of spec §4.5.
func (c *ColumnClassifier) Finalize() Result {
	info := core.ColumnTypeInfo{
		NullCount:    c.nullCount,
		SampleValues: c.sampleValues,
	}
	if c.total == 0 {
		info.InferredType = core.TypeUnknown
		return Result{Info: info}
	}

	S := float64(c.total)
	dateConf := float64(c.dateCount) / S
	moneyViolationConf := float64(c.moneyViolationCount) / S
	numericViolationConf := float64(c.numericViolationCount) / S
	// moneyConf/numericConf fold exact matches and "with violations"
	// matches together before any threshold comparison happens: a
	// dollar-prefixed or comma-grouped value is still evidence the
	// column is money, not a strike against it.
	moneyConf := float64(c.moneyCount)/S + moneyViolationConf
	numericConf := float64(c.numericCount)/S + numericViolationConf
	alphaConf := float64(c.alphaCount) / S

	type cand struct {
		typ  core.ColumnType
		conf float64
	}
	candidates := []cand{
		{core.TypeDate, dateConf},
		{core.TypeMoney, moneyConf},
		{core.TypeNumeric, numericConf},
		{core.TypeAlpha, alphaConf},
	}
	best := candidates[0]
	for _, cd := range candidates[1:] {
		if cd.conf > best.conf {
			best = cd
		}
	}

	res := Result{}
	switch {
	case best.conf >= c.cfg.TypeThreshold && best.typ == core.TypeDate:
		info.InferredType = core.TypeDate
		info.Confidence = dateConf
		info.DetectedFormat, res.DateMixedFormats = c.dominantDateFormat()
		info.WarningCount += c.dateOutOfRange
		if res.DateMixedFormats {
			info.ErrorCount += c.minorityDateCount()
		}

	case (moneyConf >= c.cfg.TypeThreshold || numericConf >= c.cfg.TypeThreshold) &&
		(best.typ == core.TypeMoney || best.typ == core.TypeNumeric):
		info.InferredType, info.Confidence, res.MoneyWithErrors = c.resolveMoneyVsNumeric(moneyConf, numericConf, moneyViolationConf, numericViolationConf)
		if info.InferredType == core.TypeMoney {
			info.ErrorCount += c.moneyViolationCount
		} else {
			info.ErrorCount += c.numericViolationCount
		}

	case best.conf >= c.cfg.TypeThreshold && best.typ == core.TypeAlpha:
		info.InferredType = core.TypeAlpha
		info.Confidence = alphaConf

	default:
		mixCount := 0
		for _, cd := range candidates {
			if cd.conf >= c.cfg.MixThreshold {
				mixCount++
			}
		}
		if mixCount >= 2 {
			info.InferredType = core.TypeMixed
			info.Confidence = best.conf
		} else {
			info.InferredType, info.Confidence = c.classifyAsString()
		}
	}

	info.DistinctCount = int64(len(c.distinctSeen))
	nonNull := c.total
	if nonNull > 0 {
		info.CardinalityRatio = float64(info.DistinctCount) / float64(nonNull)
	}
	res.Info = info
	return res
}

// dominantDateFormat returns the most common concrete date format and
// whether more than one format was observed.
func (c *ColumnClassifier) dominantDateFormat() (string, bool) {
	var best string
	var bestN int64
	for f, n := range c.dateFormats {
		if n > bestN || (n == bestN && (best == "" || f < best)) {
			best, bestN = f, n
		}
	}
	return best, len(c.dateFormats) > 1
}

func (c *ColumnClassifier) minorityDateCount() int64 {
	var total int64
	best, _ := c.dominantDateFormat()
	for f, n := range c.dateFormats {
		if f != best {
			total += n
		}
	}
	return total
}

// resolveMoneyVsNumeric implements the money-vs-numeric tie-break of
// spec §4.5: prefer money unless its 2-decimal match rate alone is below
// threshold; below threshold, money still wins if there are explicit
// violations or decimal counts outside {0,2}; otherwise numeric.
func (c *ColumnClassifier) resolveMoneyVsNumeric(moneyConf, numericConf, moneyViolationConf, numericViolationConf float64) (core.ColumnType, float64, bool) {
	if moneyConf >= c.cfg.TypeThreshold {
		return core.TypeMoney, moneyConf, false
	}
	if c.moneyViolationCount > 0 || c.hasOtherDecimalCounts() {
		return core.TypeMoney, moneyConf, true
	}
	if numericConf >= c.cfg.TypeThreshold {
		return core.TypeNumeric, numericConf, numericViolationConf > 0
	}
	// neither alone clears threshold but one of them won the comparison:
	// prefer money under the same violation rule, else numeric.
	if moneyConf >= numericConf {
		return core.TypeMoney, moneyConf, true
	}
	return core.TypeNumeric, numericConf, numericViolationConf > 0
}

// hasOtherDecimalCounts is a conservative proxy for "values with decimal
// counts other than {0, 2}": any distinct observed value whose fractional
// part, after stripping money symbols, is all digits and neither 0 nor 2
// digits long counts as "other".
func (c *ColumnClassifier) hasOtherDecimalCounts() bool {
	for v := range c.distinctSeen {
		if n, ok := fractionDigitsOf(stripSymbols(v)); ok && n != 0 && n != 2 {
			return true
		}
	}
	return false
}

// classifyAsString implements the "below threshold" string fallback:
// alpha vs. code vs. varchar.
func (c *ColumnClassifier) classifyAsString() (core.ColumnType, float64) {
	if c.alphaCount == c.total && c.total > 0 {
		return core.TypeAlpha, 1.0
	}
	distinct := int64(len(c.distinctSeen))
	nonNull := c.total
	if nonNull >= int64(c.cfg.CodeMinRows) {
		ratio := float64(distinct) / float64(nonNull)
		if ratio <= 0.5 || (nonNull >= 50 && distinct <= 50) {
			return core.TypeCode, 1.0
		}
	}
	return core.TypeVarchar, 1.0
}
