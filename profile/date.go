package profile

import (
	"time"

	"github.com/NVIDIA/dprofile/core"
)

// DateProfiler tracks the date-specific section of spec §4.6: min/max,
// span, per-year/year-month/day-of-week tallies, format consistency,
// and an invalid-parse count. Every value arrives pre-classified as a
// date by classify; DateProfiler is handed the already-detected layout.
type DateProfiler struct {
	layout string

	count        int64
	invalid      int64
	haveAny      bool
	min, max     time.Time
	byYear       map[string]int64
	byYearMonth  map[string]int64
	byDayOfWeek  [7]int64
	formats      map[string]int64
}

func NewDateProfiler(layout string) *DateProfiler {
	return &DateProfiler{
		layout:      layout,
		byYear:      make(map[string]int64),
		byYearMonth: make(map[string]int64),
		formats:     make(map[string]int64),
	}
}

// Observe parses raw under matchedLayout, the layout the value itself
// matched, so a minority-format value (spec §4.5's mixed date handling)
// is tallied under its own layout rather than the column's dominant one;
// a value that fails to parse under matchedLayout counts as invalid.
func (p *DateProfiler) Observe(raw, matchedLayout string) {
	t, err := time.Parse(matchedLayout, raw)
	if err != nil {
		p.invalid++
		return
	}
	p.count++
	p.formats[matchedLayout]++
	if !p.haveAny || t.Before(p.min) {
		p.min = t
	}
	if !p.haveAny || t.After(p.max) {
		p.max = t
	}
	p.haveAny = true

	p.byYear[t.Format("2006")]++
	p.byYearMonth[t.Format("2006-01")]++
	p.byDayOfWeek[int(t.Weekday())]++
}

func (p *DateProfiler) Finalize() *core.DateStats {
	if !p.haveAny {
		return &core.DateStats{}
	}
	return &core.DateStats{
		MinDate:          p.min.Format("2006-01-02"),
		MaxDate:          p.max.Format("2006-01-02"),
		SpanDays:         int64(p.max.Sub(p.min).Hours() / 24),
		DetectedFormat:   p.layout,
		FormatConsistent: len(p.formats) <= 1,
		ByYear:           p.byYear,
		ByYearMonth:      p.byYearMonth,
		ByDayOfWeek:      p.byDayOfWeek,
		InvalidCount:     p.invalid,
	}
}
