package reconcile

import (
	"testing"

	"github.com/scholarlyreport/scholarly/internal/reference"
)

func priorRecords() []reference.RawRecord {
	return []reference.RawRecord{
		{
			ScholarID: "A001",
			Title:     "Deep Learning in Marine Ecology",
			Authors:   "Jane Doe, John Roe, Ada Lovelace",
			Venue:     "Nature Ecology 5 (3), 112-120",
			Journal:   "Nature Ecology",
			Volume:    "5",
			Issue:     "3",
			Year:      "2021",
			Citations: "12",
			URL:       "https://example.org/enriched",
		},
		{
			ScholarID: "A001",
			Title:     "Old Work",
			Authors:   "Jane Doe",
			Venue:     "Journal of Things 1, 1-2",
			Year:      "2010",
			Citations: "3",
		},
	}
}

func TestExistsAndGet(t *testing.T) {
	r := NewReconciler(priorRecords())

	if !r.Exists("Deep Learning in Marine Ecology", "Nature Ecology") {
		t.Error("Exists() = false for persisted record")
	}
	if !r.Exists("  deep learning in MARINE ecology ", "nature ecology") {
		t.Error("Exists() should ignore case and whitespace")
	}
	if r.Exists("Deep Learning in Marine Ecology", "Science") {
		t.Error("Exists() = true for different journal")
	}
	// Journal column empty: parsed from venue.
	if !r.Exists("Old Work", "Journal of Things") {
		t.Error("Exists() = false for record whose journal comes from venue")
	}

	got, ok := r.Get("Deep Learning in Marine Ecology", "Nature Ecology")
	if !ok || got.URL != "https://example.org/enriched" {
		t.Errorf("Get() = %+v, %v", got, ok)
	}
	if _, ok := r.Get("Missing", "Nowhere"); ok {
		t.Error("Get() ok = true for missing record")
	}
}

func TestUpdateCitationCount(t *testing.T) {
	r := NewReconciler(priorRecords())

	if !r.UpdateCitationCount("Deep Learning in Marine Ecology", "Nature Ecology", 15) {
		t.Error("UpdateCitationCount(12 -> 15) = false, want true")
	}
	got, _ := r.Get("Deep Learning in Marine Ecology", "Nature Ecology")
	if got.Citations != "15" {
		t.Errorf("Citations = %q, want 15", got.Citations)
	}
	if got.Authors != "Jane Doe, John Roe, Ada Lovelace" || got.Venue != "Nature Ecology 5 (3), 112-120" {
		t.Errorf("non-citation fields changed: %+v", got)
	}

	if r.UpdateCitationCount("Deep Learning in Marine Ecology", "Nature Ecology", 15) {
		t.Error("UpdateCitationCount(15 -> 15) = true, want false")
	}
	if r.UpdateCitationCount("Missing", "Nowhere", 1) {
		t.Error("UpdateCitationCount(missing) = true")
	}
}

func TestReconcile_PriorFieldsImmutable(t *testing.T) {
	r := NewReconciler(priorRecords())

	fresh := reference.RawRecord{
		ScholarID: "A001",
		Title:     "Deep Learning in Marine Ecology",
		Authors:   "J Doe, J Roe, ...",
		Venue:     "Nature Ecology",
		Year:      "2021",
		Citations: "15*",
		URL:       "https://example.org/partial",
	}

	decision, rec := r.Reconcile(fresh)
	if decision != UpdateCitations {
		t.Fatalf("Reconcile() decision = %v, want %v", decision, UpdateCitations)
	}
	if rec.Citations != "15" {
		t.Errorf("Citations = %q, want 15", rec.Citations)
	}
	if rec.Authors != "Jane Doe, John Roe, Ada Lovelace" {
		t.Errorf("Authors overwritten: %q", rec.Authors)
	}
	if rec.Venue != "Nature Ecology 5 (3), 112-120" || rec.URL != "https://example.org/enriched" {
		t.Errorf("venue/url overwritten: %+v", rec)
	}

	decision, _ = r.Reconcile(fresh)
	if decision != KeepPrior {
		t.Errorf("second Reconcile() = %v, want %v", decision, KeepPrior)
	}

	stats := r.Stats()
	if stats.Prior != 2 || stats.Updated != 1 || stats.Unchanged != 1 || stats.New != 0 {
		t.Errorf("Stats() = %+v", stats)
	}
}

func TestReconcile_CompoundKeyFallback(t *testing.T) {
	r := NewReconciler(priorRecords())

	// Year missing on the fresh row: fingerprint differs, title+journal hits.
	fresh := reference.RawRecord{Title: "Old Work", Venue: "Journal of Things 1, 1-2", Citations: "3"}
	decision, rec := r.Reconcile(fresh)
	if decision != KeepPrior {
		t.Errorf("Reconcile() = %v, want %v", decision, KeepPrior)
	}
	if rec.Year != "2010" {
		t.Errorf("Year = %q, want persisted 2010", rec.Year)
	}
}

func TestReconcile_NewAndAdd(t *testing.T) {
	r := NewReconciler(priorRecords())

	fresh := reference.RawRecord{Title: "Brand New", Venue: "Cell 1 (1), 1", Year: "2024", Citations: "0"}
	decision, rec := r.Reconcile(fresh)
	if decision != New {
		t.Fatalf("Reconcile() = %v, want %v", decision, New)
	}
	rec.Authors = "Jane Doe, Someone Else"
	r.Add(rec)
	r.Add(rec) // duplicate is ignored

	records := r.Records()
	if len(records) != 3 {
		t.Fatalf("Records() len = %d, want 3", len(records))
	}
	if records[0].Title != "Deep Learning in Marine Ecology" || records[2].Title != "Brand New" {
		t.Errorf("Records() order = %q, %q, %q", records[0].Title, records[1].Title, records[2].Title)
	}
	if r.Stats().New != 1 {
		t.Errorf("Stats().New = %d, want 1", r.Stats().New)
	}
}

func TestNewReconciler_KeepsSharedFingerprints(t *testing.T) {
	preprint := reference.RawRecord{
		Title: "Deep Learning in Marine Ecology", Authors: "Jane Doe",
		Venue: "arXiv preprint arXiv:2101.00001", Journal: "arXiv", Year: "2021", Citations: "5",
	}
	published := reference.RawRecord{
		Title: "Deep Learning in Marine Ecology", Authors: "Jane Doe, John Roe",
		Venue: "Nature Ecology 5 (3), 112-120", Journal: "Nature Ecology", Year: "2021", Citations: "30",
	}
	r := NewReconciler([]reference.RawRecord{preprint, published})

	if got := len(r.Records()); got != 2 {
		t.Fatalf("Records() len = %d, want 2", got)
	}
	if r.Stats().Prior != 2 {
		t.Errorf("Stats().Prior = %d, want 2", r.Stats().Prior)
	}
	if !r.Exists(published.Title, "Nature Ecology") {
		t.Error("Exists() = false for the journal version")
	}

	fresh := published
	fresh.Citations = "41"
	decision, kept := r.Reconcile(fresh)
	if decision != UpdateCitations {
		t.Fatalf("Reconcile() = %v, want %v", decision, UpdateCitations)
	}
	if kept.Journal != "Nature Ecology" || kept.Citations != "41" {
		t.Errorf("Reconcile() kept = %+v, want the journal version with 41 citations", kept)
	}

	records := r.Records()
	if records[0].Journal != "arXiv" || records[0].Citations != "5" {
		t.Errorf("preprint = %+v, want unchanged", records[0])
	}
	if records[1].Citations != "41" {
		t.Errorf("journal version citations = %q, want 41", records[1].Citations)
	}
}

func TestReconcile_FingerprintFallback(t *testing.T) {
	r := NewReconciler(priorRecords())

	// Same title and year under a different journal name.
	fresh := reference.RawRecord{Title: "Deep Learning in Marine Ecology", Journal: "Nat. Ecol.", Year: "2021", Citations: "12"}
	decision, rec := r.Reconcile(fresh)
	if decision != KeepPrior {
		t.Errorf("Reconcile() = %v, want %v", decision, KeepPrior)
	}
	if rec.Journal != "Nature Ecology" {
		t.Errorf("Journal = %q, want persisted Nature Ecology", rec.Journal)
	}
}

func TestParseCount(t *testing.T) {
	tests := []struct {
		input string
		want  int
	}{
		{"12", 12},
		{" 7 ", 7},
		{"15*", 15},
		{"", 0},
		{"n/a", 0},
		{"-1", 0},
	}
	for _, tt := range tests {
		if got := ParseCount(tt.input); got != tt.want {
			t.Errorf("ParseCount(%q) = %d, want %d", tt.input, got, tt.want)
		}
	}
}
