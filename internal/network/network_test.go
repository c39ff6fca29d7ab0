package network

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"

	"github.com/scholarlyreport/scholarly/internal/author"
	"github.com/scholarlyreport/scholarly/internal/reference"
	"github.com/scholarlyreport/scholarly/internal/store"
)

func testStore(t *testing.T) *store.Store {
	t.Helper()
	reg, err := author.NewRegistry(
		reference.Author{ID: "A001", PrimaryName: "Jane Doe", LifetimeCitations: 100, LifetimeHIndex: 5, ResearchGroup: reference.StringPtr("Ecology")},
		reference.Author{ID: "A002", PrimaryName: "John Roe", ResearchGroup: reference.StringPtr("Genomics")},
		reference.Author{ID: "A003", PrimaryName: "Ada Lovelace", ResearchGroup: reference.StringPtr("Ecology")},
		reference.Author{ID: "A004", PrimaryName: "Solo Person"},
	)
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	s := store.New(reg)

	shared := reference.RawRecord{Title: "Shared Paper", Authors: "J Doe, J Roe, A Lovelace", Venue: "Cell", Year: "2021", Citations: "10"}
	pair := reference.RawRecord{Title: "Pair Paper", Authors: "Jane Doe, John Roe", Venue: "Cell", Year: "2020", Citations: "4"}
	own := reference.RawRecord{Title: "Own Paper", Authors: "Jane Doe", Venue: "Cell", Year: "2019", Citations: "1"}

	mustIngest(t, s, "A001", shared, pair, own)
	mustIngest(t, s, "A002", shared, pair)
	mustIngest(t, s, "A003", shared)
	return s
}

func mustIngest(t *testing.T, s *store.Store, id string, recs ...reference.RawRecord) {
	t.Helper()
	if _, err := s.Ingest(id, recs); err != nil {
		t.Fatalf("Ingest(%s) error = %v", id, err)
	}
}

func TestBuild(t *testing.T) {
	g := Build(testStore(t))

	if len(g.Nodes) != 4 {
		t.Fatalf("len(Nodes) = %d, want 4", len(g.Nodes))
	}
	n, ok := g.Node("A001")
	if !ok || n.Publications != 3 || n.Citations != 100 || n.HIndex != 5 || n.Group != "Ecology" {
		t.Errorf("Node(A001) = %+v", n)
	}

	tests := []struct {
		a, b   string
		weight int
	}{
		{"A001", "A002", 2},
		{"A002", "A001", 2},
		{"A001", "A003", 1},
		{"A002", "A003", 1},
	}
	for _, tt := range tests {
		e, ok := g.Edge(tt.a, tt.b)
		if !ok {
			t.Errorf("Edge(%s, %s) missing", tt.a, tt.b)
			continue
		}
		if e.Weight != tt.weight || len(e.Publications) != tt.weight {
			t.Errorf("Edge(%s, %s) = %+v, want weight %d", tt.a, tt.b, e, tt.weight)
		}
	}

	if _, ok := g.Edge("A001", "A004"); ok {
		t.Error("Edge(A001, A004) exists, want none")
	}
	if _, ok := g.Edge("A001", "A001"); ok {
		t.Error("self-loop found")
	}
	if len(g.Links) != 3 {
		t.Errorf("len(Links) = %d, want 3", len(g.Links))
	}
	for _, l := range g.Links {
		if l.Source >= l.Target {
			t.Errorf("link %s-%s not ordered", l.Source, l.Target)
		}
	}
}

func TestNeighbors(t *testing.T) {
	g := Build(testStore(t))

	var ids []string
	for _, n := range g.Neighbors("A001") {
		ids = append(ids, n.ID)
	}
	if want := []string{"A002", "A003"}; !reflect.DeepEqual(ids, want) {
		t.Errorf("Neighbors(A001) = %v, want %v", ids, want)
	}
	if got := g.Neighbors("A004"); len(got) != 0 {
		t.Errorf("Neighbors(A004) = %v, want none", got)
	}
	if got := g.TotalWeight(); got != 4 {
		t.Errorf("TotalWeight() = %d, want 4", got)
	}
}

func TestBuildGroups(t *testing.T) {
	g := BuildGroups(testStore(t))

	if len(g.Nodes) != 2 {
		t.Fatalf("len(Nodes) = %d, want 2", len(g.Nodes))
	}
	eco, _ := g.Node("Ecology")
	if eco.Publications != 3 || eco.Citations != 15 {
		t.Errorf("Ecology = %+v, want 3 publications, 15 citations", eco)
	}
	e, ok := g.Edge("Genomics", "Ecology")
	if !ok || e.Weight != 2 {
		t.Errorf("Edge(Ecology, Genomics) = %+v, %v, want weight 2", e, ok)
	}
}

func TestGraphJSON(t *testing.T) {
	reg, _ := author.NewRegistry()
	g := Build(store.New(reg))

	data, err := json.Marshal(g)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if got := string(data); !strings.Contains(got, `"nodes":[]`) || !strings.Contains(got, `"links":[]`) {
		t.Errorf("empty graph JSON = %s", got)
	}
}

func TestGraphJSON_ZeroHIndex(t *testing.T) {
	data, err := json.Marshal(Build(testStore(t)))
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var decoded struct {
		Nodes []map[string]any `json:"nodes"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	for _, n := range decoded.Nodes {
		if n["id"] != "A002" {
			continue
		}
		if h, ok := n["h_index"]; !ok || h != float64(0) {
			t.Errorf("A002 h_index = %v (present %v), want 0", h, ok)
		}
		return
	}
	t.Error("A002 missing from nodes")
}
