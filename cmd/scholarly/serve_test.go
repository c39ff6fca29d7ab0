package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/scholarlyreport/scholarly/internal/config"
	"github.com/scholarlyreport/scholarly/internal/network"
	"github.com/scholarlyreport/scholarly/internal/pipeline"
	"github.com/scholarlyreport/scholarly/internal/reference"
	"github.com/scholarlyreport/scholarly/internal/stats"
	"github.com/scholarlyreport/scholarly/internal/storage"
)

func testServer(t *testing.T) http.Handler {
	t.Helper()
	root := t.TempDir()
	cfg := config.Default()
	cfg.Root = root
	cfg.DataDir = filepath.Join(root, "data")
	cfg.OutputDir = filepath.Join(root, "report")

	authors := []struct {
		a    reference.Author
		recs []reference.RawRecord
	}{
		{
			reference.Author{ID: "A001", PrimaryName: "Jane Doe", ResearchGroup: reference.StringPtr("Ecology")},
			[]reference.RawRecord{
				{ScholarID: "A001", Title: "Shared Paper", Authors: "J Doe, J Roe", Venue: "Nature", Year: "2021", Citations: "10"},
				{ScholarID: "A001", Title: "Solo Paper", Authors: "J Doe", Venue: "Marine Biology", Year: "2019", Citations: "4"},
			},
		},
		{
			reference.Author{ID: "A002", PrimaryName: "John Roe", ResearchGroup: reference.StringPtr("Genomics")},
			[]reference.RawRecord{
				{ScholarID: "A002", Title: "Shared Paper", Authors: "J Doe, J Roe", Venue: "Nature", Year: "2021", Citations: "12"},
			},
		},
	}
	for _, x := range authors {
		if err := storage.WriteAuthorInfo(storage.InfoPath(cfg.DataDir, x.a.ID), x.a); err != nil {
			t.Fatal(err)
		}
		if err := storage.WritePublications(storage.PublicationsPath(cfg.DataDir, x.a.ID), x.recs); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(cfg.OutputDir, "index.html"), []byte("<h1>Report</h1>"), 0644); err != nil {
		t.Fatal(err)
	}

	runner := pipeline.New(cfg)
	srv := newServer(runner, cfg.OutputDir, zap.NewNop())
	if err := srv.reload(); err != nil {
		t.Fatalf("reload() error = %v", err)
	}
	return newRouter(srv, zap.NewNop())
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestServe_Authors(t *testing.T) {
	h := testServer(t)

	rec := get(t, h, "/api/authors")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var sums []stats.Summary
	if err := json.Unmarshal(rec.Body.Bytes(), &sums); err != nil {
		t.Fatal(err)
	}
	if len(sums) != 2 {
		t.Fatalf("got %d summaries", len(sums))
	}
	for _, s := range sums {
		if s.ID == "A001" && (s.Publications != 2 || s.Citations != 16) {
			t.Errorf("A001 summary = %+v", s)
		}
	}
}

func TestServe_Author(t *testing.T) {
	h := testServer(t)

	rec := get(t, h, "/api/authors/A002")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp AuthorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Author.ID != "A002" || len(resp.Publications) != 1 {
		t.Errorf("response = %+v", resp)
	}
	if resp.Publications[0].Citations != 12 {
		t.Errorf("citations = %d, want the higher count 12", resp.Publications[0].Citations)
	}

	if rec := get(t, h, "/api/authors/NOPE"); rec.Code != http.StatusNotFound {
		t.Errorf("unknown author status = %d", rec.Code)
	}
}

func TestServe_Journals(t *testing.T) {
	h := testServer(t)

	var ranking []stats.JournalStat
	rec := get(t, h, "/api/journals")
	if err := json.Unmarshal(rec.Body.Bytes(), &ranking); err != nil {
		t.Fatal(err)
	}
	if len(ranking) != 2 {
		t.Errorf("ranking = %+v", ranking)
	}
}

func TestServe_Network(t *testing.T) {
	h := testServer(t)

	tests := []struct {
		query     string
		status    int
		wantNodes int
		wantLinks int
	}{
		{"", http.StatusOK, 2, 1},
		{"?level=group", http.StatusOK, 2, 1},
		{"?level=planet", http.StatusBadRequest, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rec := get(t, h, "/api/network"+tt.query)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			if tt.status != http.StatusOK {
				return
			}
			var g network.Graph
			if err := json.Unmarshal(rec.Body.Bytes(), &g); err != nil {
				t.Fatal(err)
			}
			if len(g.Nodes) != tt.wantNodes || len(g.Links) != tt.wantLinks {
				t.Errorf("graph = %d nodes, %d links", len(g.Nodes), len(g.Links))
			}
		})
	}
}

func TestServe_StaticAndMetrics(t *testing.T) {
	h := testServer(t)

	rec := get(t, h, "/index.html")
	if rec.Code != http.StatusOK && rec.Code != http.StatusMovedPermanently {
		t.Errorf("index status = %d", rec.Code)
	}
	rec = get(t, h, "/")
	if !strings.Contains(rec.Body.String(), "Report") {
		t.Errorf("root body = %q", rec.Body.String())
	}

	rec = get(t, h, "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "scholarly_publications 2") {
		t.Error("metrics should expose the publication gauge")
	}

	if rec := get(t, h, "/healthz"); rec.Code != http.StatusOK {
		t.Errorf("healthz status = %d", rec.Code)
	}
}
