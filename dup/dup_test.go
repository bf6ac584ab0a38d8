package dup

import (
	"path/filepath"
	"testing"

	"github.com/NVIDIA/dprofile/config"
)

type tmpAllocator struct {
	dir string
	n   int
}

func newTmpAllocator(t *testing.T) *tmpAllocator {
	return &tmpAllocator{dir: t.TempDir()}
}

func (a *tmpAllocator) SpillPath(column, kind string) (string, error) {
	a.n++
	return filepath.Join(a.dir, column+"_"+kind+"_"+itoaN(a.n)+".db"), nil
}

func itoaN(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

func TestDetectorNoDuplicates(t *testing.T) {
	cfg := config.Defaults()
	d := NewDetector(cfg, "id", newTmpAllocator(t))
	for _, row := range [][]string{{"1"}, {"2"}, {"3"}} {
		if err := d.Observe(row); err != nil {
			t.Fatalf("Observe(%v): %v", row, err)
		}
	}
	res, err := d.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if res.HasDuplicates {
		t.Fatalf("expected no duplicates, got %+v", res)
	}
}

func TestDetectorSingleColumnDuplicates(t *testing.T) {
	cfg := config.Defaults()
	d := NewDetector(cfg, "id", newTmpAllocator(t))
	for _, row := range [][]string{{"1"}, {"2"}, {"1"}, {"1"}, {"3"}} {
		if err := d.Observe(row); err != nil {
			t.Fatalf("Observe(%v): %v", row, err)
		}
	}
	res, err := d.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if !res.HasDuplicates || res.DuplicateCount != 1 {
		t.Fatalf("res = %+v, want one duplicate key", res)
	}
	if res.DuplicateRows != 3 {
		t.Fatalf("DuplicateRows = %d, want 3 (all rows sharing the key)", res.DuplicateRows)
	}
}

func TestDetectorCompoundKey(t *testing.T) {
	cfg := config.Defaults()
	d := NewDetector(cfg, "first_last", newTmpAllocator(t))
	rows := [][]string{
		{"Jane", "Doe"},
		{"John", "Doe"},
		{"Jane", "Doe"},
	}
	for _, row := range rows {
		if err := d.Observe(row); err != nil {
			t.Fatalf("Observe(%v): %v", row, err)
		}
	}
	res, err := d.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if res.DuplicateCount != 1 || res.DuplicateRows != 2 {
		t.Fatalf("res = %+v, want 1 duplicate key covering 2 rows", res)
	}
}

func TestDetectorExcludesNullKeyRows(t *testing.T) {
	cfg := config.Defaults()
	d := NewDetector(cfg, "id", newTmpAllocator(t))
	rows := [][]string{{"1"}, {""}, {""}, {"1"}}
	for _, row := range rows {
		if err := d.Observe(row); err != nil {
			t.Fatalf("Observe(%v): %v", row, err)
		}
	}
	res, err := d.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if res.NullKeyCount != 2 {
		t.Fatalf("NullKeyCount = %d, want 2", res.NullKeyCount)
	}
	if res.DuplicateCount != 1 || res.DuplicateRows != 2 {
		t.Fatalf("res = %+v, want duplicate tally over the non-null rows only", res)
	}
}

func TestDetectorExampleOrderingAndLimit(t *testing.T) {
	cfg := config.Defaults()
	cfg.DuplicateExampleLimit = 1
	d := NewDetector(cfg, "id", newTmpAllocator(t))
	rows := [][]string{
		{"a"}, {"a"}, {"a"}, // count 3
		{"b"}, {"b"}, // count 2
	}
	for _, row := range rows {
		if err := d.Observe(row); err != nil {
			t.Fatalf("Observe(%v): %v", row, err)
		}
	}
	res, err := d.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if len(res.DuplicateExamples) != 1 {
		t.Fatalf("DuplicateExamples len = %d, want 1 (capped)", len(res.DuplicateExamples))
	}
	if res.DuplicateExamples[0].Hash != "a" || res.DuplicateExamples[0].Count != 3 {
		t.Fatalf("top example = %+v, want a/3 (higher count first)", res.DuplicateExamples[0])
	}
}

func TestDetectorSpillsWhenBudgetExceeded(t *testing.T) {
	cfg := config.Defaults()
	cfg.ColumnMemoryBudget = 1
	d := NewDetector(cfg, "id", newTmpAllocator(t))
	for i := 0; i < 30; i++ {
		if err := d.Observe([]string{itoaN(i)}); err != nil {
			t.Fatalf("Observe(%d): %v", i, err)
		}
	}
	if err := d.Observe([]string{itoaN(5)}); err != nil { // creates one duplicate
		t.Fatalf("Observe duplicate: %v", err)
	}
	if d.spilled == nil {
		t.Fatalf("expected detector to have spilled")
	}
	res, err := d.Finalize()
	if err != nil {
		t.Fatalf("Finalize after spill: %v", err)
	}
	if res.DuplicateCount != 1 {
		t.Fatalf("DuplicateCount = %d, want 1", res.DuplicateCount)
	}
}
