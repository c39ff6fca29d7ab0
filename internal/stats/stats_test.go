package stats

import (
	"reflect"
	"testing"

	"github.com/scholarlyreport/scholarly/internal/author"
	"github.com/scholarlyreport/scholarly/internal/reference"
	"github.com/scholarlyreport/scholarly/internal/store"
)

func TestHIndex(t *testing.T) {
	tests := []struct {
		name      string
		citations []int
		want      int
	}{
		{"example", []int{10, 8, 5, 4, 3}, 4},
		{"unsorted", []int{3, 10, 4, 8, 5}, 4},
		{"empty", nil, 0},
		{"all zero", []int{0, 0, 0}, 0},
		{"single cited", []int{1}, 1},
		{"all high", []int{100, 100, 100}, 3},
		{"ties", []int{2, 2, 2, 2}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HIndex(tt.citations); got != tt.want {
				t.Errorf("HIndex(%v) = %d, want %d", tt.citations, got, tt.want)
			}
		})
	}
}

func TestHIndex_DoesNotMutateInput(t *testing.T) {
	in := []int{1, 5, 3}
	HIndex(in)
	if !reflect.DeepEqual(in, []int{1, 5, 3}) {
		t.Errorf("input mutated: %v", in)
	}
}

func TestI10Index(t *testing.T) {
	if got := I10Index([]int{10, 9, 25, 0}); got != 2 {
		t.Errorf("I10Index() = %d, want 2", got)
	}
}

func TestPeriod(t *testing.T) {
	tests := []struct {
		period Period
		year   int
		want   bool
	}{
		{Period{}, 0, true},
		{Period{}, 2020, true},
		{Period{MinYear: 2015}, 2014, false},
		{Period{MinYear: 2015}, 2015, true},
		{Period{MaxYear: 2020}, 2021, false},
		{Period{MinYear: 2015, MaxYear: 2020}, 2018, true},
		{Period{MinYear: 2015}, 0, false},
	}
	for _, tt := range tests {
		if got := tt.period.Contains(tt.year); got != tt.want {
			t.Errorf("%+v.Contains(%d) = %v, want %v", tt.period, tt.year, got, tt.want)
		}
	}
}

func testRegistry(t *testing.T) *author.Registry {
	t.Helper()
	reg, err := author.NewRegistry(
		reference.Author{ID: "A001", PrimaryName: "Jane Doe", ResearchGroup: reference.StringPtr("Ecology")},
		reference.Author{ID: "A002", PrimaryName: "John Roe", ResearchGroup: reference.StringPtr("Ecology")},
	)
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	return reg
}

func TestPositionOf(t *testing.T) {
	reg := testRegistry(t)
	tests := []struct {
		name    string
		authors []string
		want    Position
		found   bool
	}{
		{"solo", []string{"Jane Doe"}, Solo, true},
		{"first", []string{"J Doe", "A Smith", "B Jones"}, First, true},
		{"last", []string{"A Smith", "Jane Doe"}, Last, true},
		{"middle", []string{"A Smith", "Jane Doe", "B Jones"}, Middle, true},
		{"absent", []string{"A Smith", "B Jones"}, "", false},
		{"last name only", []string{"A Smith", "Jonathan Doe"}, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := PositionOf(reg, "A001", reference.Publication{AuthorList: tt.authors})
			if got != tt.want || ok != tt.found {
				t.Errorf("PositionOf() = %q, %v, want %q, %v", got, ok, tt.want, tt.found)
			}
		})
	}
}

func TestPositionDistribution(t *testing.T) {
	reg := testRegistry(t)
	pubs := []reference.Publication{
		{AuthorList: []string{"Jane Doe"}},
		{AuthorList: []string{"Jane Doe", "X Y"}},
		{AuthorList: []string{"X Y", "Jane Doe"}},
		{AuthorList: []string{"X Y", "J Doe"}},
		{AuthorList: []string{"X Y"}},
	}
	got := PositionDistribution(reg, "A001", pubs)
	want := map[Position]int{Solo: 1, First: 1, Last: 2}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("PositionDistribution() = %v, want %v", got, want)
	}
}

func TestJournalRanking(t *testing.T) {
	pubs := []reference.Publication{
		{Journal: "Cell", Citations: 10},
		{Journal: "Nature", Citations: 3},
		{Journal: "Cell", Citations: 5},
		{Journal: "Cell", Citations: 0},
		{Journal: "Science", Citations: 7},
	}
	want := []JournalStat{
		{Journal: "Cell", Publications: 3, Citations: 15, AvgCitations: 5},
		{Journal: "Nature", Publications: 1, Citations: 3, AvgCitations: 3},
		{Journal: "Science", Publications: 1, Citations: 7, AvgCitations: 7},
	}
	if got := JournalRanking(pubs); !reflect.DeepEqual(got, want) {
		t.Errorf("JournalRanking() = %+v, want %+v", got, want)
	}
}

func TestJournalRanking_RoundsAverage(t *testing.T) {
	pubs := []reference.Publication{
		{Journal: "Cell", Citations: 1},
		{Journal: "Cell", Citations: 1},
		{Journal: "Cell", Citations: 2},
	}
	if got := JournalRanking(pubs)[0].AvgCitations; got != 1.3 {
		t.Errorf("AvgCitations = %v, want 1.3", got)
	}
}

func TestYearlyCounts(t *testing.T) {
	pubs := []reference.Publication{
		{Year: 2021, Citations: 4},
		{Year: 2019, Citations: 1},
		{Year: 2021, Citations: 2},
	}
	want := []YearCount{
		{Year: 2019, Publications: 1, Citations: 1},
		{Year: 2021, Publications: 2, Citations: 6},
	}
	if got := YearlyCounts(pubs); !reflect.DeepEqual(got, want) {
		t.Errorf("YearlyCounts() = %+v, want %+v", got, want)
	}
}

func TestAuthorAndGroupSummary(t *testing.T) {
	reg := testRegistry(t)
	s := store.New(reg)
	shared := reference.RawRecord{Title: "Shared", Authors: "Jane Doe, John Roe", Venue: "Cell", Year: "2021", Citations: "12"}
	own := reference.RawRecord{Title: "Own", Authors: "Jane Doe", Venue: "Cell", Year: "2015", Citations: "3"}
	if _, err := s.Ingest("A001", []reference.RawRecord{shared, own}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Ingest("A002", []reference.RawRecord{shared}); err != nil {
		t.Fatal(err)
	}

	sum, ok := AuthorSummary(s, "A001", Period{})
	if !ok {
		t.Fatal("AuthorSummary() ok = false")
	}
	if sum.Publications != 2 || sum.Citations != 15 || sum.HIndex != 2 || sum.I10Index != 1 {
		t.Errorf("AuthorSummary() = %+v", sum)
	}
	if sum.Positions[Solo] != 1 || sum.Positions[First] != 1 {
		t.Errorf("Positions = %v", sum.Positions)
	}

	recent, _ := AuthorSummary(s, "A001", Period{MinYear: 2020})
	if recent.Publications != 1 || recent.Citations != 12 {
		t.Errorf("AuthorSummary(2020-) = %+v", recent)
	}

	if _, ok := AuthorSummary(s, "NOPE", Period{}); ok {
		t.Error("AuthorSummary(unknown) ok = true")
	}

	group := reg.Groups()[0]
	gs := GroupSummary(s, group, Period{})
	if gs.Publications != 2 || gs.Citations != 15 {
		t.Errorf("GroupSummary() = %+v, want shared publication counted once", gs)
	}
}
