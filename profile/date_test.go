package profile

import "testing"

func TestDateProfilerMinMaxSpanAndFormat(t *testing.T) {
	p := NewDateProfiler("2006-01-02")
	p.Observe("2023-01-01", "2006-01-02")
	p.Observe("2023-01-10", "2006-01-02")
	p.Observe("2023-01-05", "2006-01-02")

	stats := p.Finalize()
	if stats.MinDate != "2023-01-01" || stats.MaxDate != "2023-01-10" {
		t.Fatalf("MinDate/MaxDate = %s/%s", stats.MinDate, stats.MaxDate)
	}
	if stats.SpanDays != 9 {
		t.Fatalf("SpanDays = %d, want 9", stats.SpanDays)
	}
	if !stats.FormatConsistent {
		t.Fatalf("expected FormatConsistent true, got %+v", stats)
	}
	if stats.ByYear["2023"] != 3 {
		t.Fatalf("ByYear[2023] = %d, want 3", stats.ByYear["2023"])
	}
}

func TestDateProfilerMixedFormatsFlagged(t *testing.T) {
	p := NewDateProfiler("2006-01-02")
	p.Observe("2023-01-01", "2006-01-02")
	p.Observe("20230102", "20060102")

	stats := p.Finalize()
	if stats.FormatConsistent {
		t.Fatalf("expected FormatConsistent false with two distinct matched layouts")
	}
}

func TestDateProfilerInvalidParseCounted(t *testing.T) {
	p := NewDateProfiler("2006-01-02")
	p.Observe("2023-01-01", "2006-01-02")
	p.Observe("not-a-date", "2006-01-02")

	stats := p.Finalize()
	if stats.InvalidCount != 1 {
		t.Fatalf("InvalidCount = %d, want 1", stats.InvalidCount)
	}
}

func TestDateProfilerEmptyYieldsZeroStats(t *testing.T) {
	p := NewDateProfiler("2006-01-02")
	stats := p.Finalize()
	if stats.MinDate != "" || stats.MaxDate != "" {
		t.Fatalf("expected empty stats, got %+v", stats)
	}
}
