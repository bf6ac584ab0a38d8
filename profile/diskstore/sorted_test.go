package diskstore

import "testing"

func TestSortedValuesOrderIndependentQuantile(t *testing.T) {
	s, err := OpenSorted(":memory:", 1000)
	if err != nil {
		t.Fatalf("OpenSorted: %v", err)
	}
	defer s.Close()

	// insert out of order; the index must still order by value.
	for _, v := range []float64{5, 1, 4, 2, 3} {
		if err := s.Add(v); err != nil {
			t.Fatalf("Add(%v): %v", v, err)
		}
	}
	n, err := s.Len()
	if err != nil {
		t.Fatalf("Len: %v", err)
	}
	if n != 5 {
		t.Fatalf("Len = %d, want 5", n)
	}

	median, err := s.Quantile(0.5)
	if err != nil {
		t.Fatalf("Quantile: %v", err)
	}
	if median != 3 {
		t.Fatalf("median = %v, want 3", median)
	}

	min, err := s.Quantile(0)
	if err != nil {
		t.Fatalf("Quantile(0): %v", err)
	}
	if min != 1 {
		t.Fatalf("Quantile(0) = %v, want 1", min)
	}

	max, err := s.Quantile(1)
	if err != nil {
		t.Fatalf("Quantile(1): %v", err)
	}
	if max != 5 {
		t.Fatalf("Quantile(1) = %v, want 5", max)
	}
}

func TestSortedValuesEachAscending(t *testing.T) {
	s, err := OpenSorted(":memory:", 2) // force a mid-stream flush
	if err != nil {
		t.Fatalf("OpenSorted: %v", err)
	}
	defer s.Close()

	for _, v := range []float64{9, 3, 7, 1, 5} {
		if err := s.Add(v); err != nil {
			t.Fatalf("Add(%v): %v", v, err)
		}
	}
	var got []float64
	if err := s.Each(func(v float64) { got = append(got, v) }); err != nil {
		t.Fatalf("Each: %v", err)
	}
	want := []float64{1, 3, 5, 7, 9}
	if len(got) != len(want) {
		t.Fatalf("Each visited %d values, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got[%d] = %v, want %v (order = %v)", i, got[i], want[i], got)
		}
	}
}
