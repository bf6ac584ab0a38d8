package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRegistryObserveAndScrape(t *testing.T) {
	r := New()
	r.ObserveRowsDecoded("run1", 42)
	r.ObserveError("run1", "E_JAGGED_ROW", 2)
	r.ObserveProgress("run1", 75)
	r.ObserveStageDuration("run1", "profile", 1.5)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	r.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		`dprofile_rows_decoded_total{run_id="run1"} 42`,
		`dprofile_errors_total{code="e_jagged_row",run_id="run1"} 2`,
		`dprofile_stage_progress_pct{run_id="run1"} 75`,
		`dprofile_stage_duration_seconds{run_id="run1",stage="profile"} 1.5`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("scrape output missing %q\nfull body:\n%s", want, body)
		}
	}
}

func TestRegistryIsolatesRunIDs(t *testing.T) {
	r := New()
	r.ObserveRowsDecoded("run1", 10)
	r.ObserveRowsDecoded("run2", 20)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	r.Handler().ServeHTTP(rec, req)

	body := rec.Body.String()
	if !strings.Contains(body, `run_id="run1"`) || !strings.Contains(body, `run_id="run2"`) {
		t.Fatalf("expected both run_id label values present, got:\n%s", body)
	}
}
