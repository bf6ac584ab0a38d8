package errtax

import "testing"

func TestIsCatastrophicMembership(t *testing.T) {
	cases := map[Code]bool{
		EUTF8Invalid:   true,
		EHeaderMissing: true,
		EJaggedRow:     true,
		EQuoteRule:     false,
		ENumericFormat: false,
		WDateRange:     false,
	}
	for code, want := range cases {
		if got := IsCatastrophic(code); got != want {
			t.Errorf("IsCatastrophic(%v) = %v, want %v", code, got, want)
		}
	}
}

func TestIsWarningPrefix(t *testing.T) {
	if !IsWarning(WDateRange) || !IsWarning(WLineEnding) || !IsWarning(WDelimiterMismatch) {
		t.Fatalf("expected W_ codes to be warnings")
	}
	if IsWarning(EUTF8Invalid) || IsWarning(ENumericFormat) {
		t.Fatalf("expected E_ codes to not be warnings")
	}
}

func TestAggregatorMergeSumsCounts(t *testing.T) {
	a := NewAggregator()
	a.Merge(EQuoteRule, "bad quote", 2)
	a.Merge(EQuoteRule, "bad quote", 3)
	rollup := a.Rollup()
	if len(rollup) != 1 || rollup[0].Count != 5 {
		t.Fatalf("Rollup = %+v, want one entry with count 5", rollup)
	}
}

func TestAggregatorZeroCountIsNoop(t *testing.T) {
	a := NewAggregator()
	a.Merge(EQuoteRule, "bad quote", 0)
	if len(a.Rollup()) != 0 {
		t.Fatalf("expected no entries for a zero-count merge")
	}
}

func TestAggregatorCatastrophicFreezesFurtherMerges(t *testing.T) {
	a := NewAggregator()
	a.Merge(EQuoteRule, "before", 1)
	a.Catastrophic(EJaggedRow, "fatal row")
	a.Merge(EQuoteRule, "after", 10) // must be a no-op now

	if !a.HasCatastrophic() {
		t.Fatalf("expected HasCatastrophic true")
	}
	detail, ok := a.CatastrophicDetail()
	if !ok || detail.Code != EJaggedRow {
		t.Fatalf("CatastrophicDetail = %+v, ok=%v", detail, ok)
	}

	rollup := a.Rollup()
	var quoteCount int
	for _, d := range rollup {
		if d.Code == EQuoteRule {
			quoteCount = d.Count
		}
	}
	if quoteCount != 1 {
		t.Fatalf("EQuoteRule count = %d, want 1 (merge after catastrophic must be dropped)", quoteCount)
	}
}

func TestAggregatorDoubleCatastrophicKeepsFirst(t *testing.T) {
	a := NewAggregator()
	a.Catastrophic(EHeaderMissing, "first")
	a.Catastrophic(EJaggedRow, "second")
	detail, _ := a.CatastrophicDetail()
	if detail.Code != EHeaderMissing {
		t.Fatalf("CatastrophicDetail = %+v, want first catastrophic to stick", detail)
	}
}

func TestAggregatorRollupOrdering(t *testing.T) {
	a := NewAggregator()
	a.Merge(WDateRange, "w", 5)
	a.Merge(EQuoteRule, "e1", 5)
	a.Merge(EUnquotedDelim, "e2", 10)

	rollup := a.Rollup()
	if len(rollup) != 3 {
		t.Fatalf("Rollup len = %d, want 3", len(rollup))
	}
	// errors before warnings; among errors, higher count first; ties by code.
	if rollup[0].Code != EUnquotedDelim {
		t.Fatalf("rollup[0] = %v, want EUnquotedDelim (highest count error)", rollup[0].Code)
	}
	if rollup[1].Code != EQuoteRule {
		t.Fatalf("rollup[1] = %v, want EQuoteRule", rollup[1].Code)
	}
	if rollup[2].Code != WDateRange {
		t.Fatalf("rollup[2] = %v, want WDateRange (warning last)", rollup[2].Code)
	}
}

func TestAggregatorColumnAttribution(t *testing.T) {
	a := NewAggregator()
	a.MergeColumn("amount", EMoneyFormat, "bad money", 3)
	a.MergeColumn("amount", WDateRange, "out of range", 1)
	a.MergeColumn("other", EMoneyFormat, "bad money", 7)

	if got := a.ColumnErrorCount("amount"); got != 3 {
		t.Errorf("ColumnErrorCount(amount) = %d, want 3", got)
	}
	if got := a.ColumnWarningCount("amount"); got != 1 {
		t.Errorf("ColumnWarningCount(amount) = %d, want 1", got)
	}
	if got := a.ColumnErrorCount("other"); got != 7 {
		t.Errorf("ColumnErrorCount(other) = %d, want 7", got)
	}
	if got := a.ColumnErrorCount("missing"); got != 0 {
		t.Errorf("ColumnErrorCount(missing) = %d, want 0", got)
	}
}
