package journal

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", "Unknown"},
		{"whitespace", "   ", "Unknown"},
		{"title case", "nature ecology", "Nature Ecology"},
		{"connectives lowercased", "journal of ecology and evolution", "Journal of Ecology and Evolution"},
		{"connective in", "trends in microbiology", "Trends in Microbiology"},
		{"mixed case token kept", "PLoS computational biology", "PLoS Computational Biology"},
		{"acronym kept", "BMC genomics", "BMC Genomics"},
		{"collapse whitespace", "  the  ISME   journal ", "The ISME Journal"},
		{"arxiv prefix", "arXiv preprint arXiv:2101.00001", "arXiv"},
		{"biorxiv prefix", "bioRxiv, 2021.01.01", "bioRxiv"},
		{"medrxiv prefix", "MEDRXIV 2020", "medRxiv"},
		{"g3 prefix", "G3: Genes|Genomes|Genetics 11 (2)", "G3: Genes, Genomes, Genetics"},
		{"only first letter changed", "mBio", "mBio"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := NewNormalizer()
			if got := n.Normalize(tt.input); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalize_Memoized(t *testing.T) {
	n := NewNormalizer()
	first := n.Normalize("nature communications")
	if n.CacheLen() != 1 || n.Hits() != 0 {
		t.Fatalf("after first call: CacheLen=%d Hits=%d", n.CacheLen(), n.Hits())
	}

	second := n.Normalize("nature communications")
	if second != first {
		t.Errorf("second call = %q, want cached %q", second, first)
	}
	if n.Hits() != 1 {
		t.Errorf("Hits() = %d, want 1", n.Hits())
	}

	// Keyed by lowercase trimmed input: case variants share one entry.
	third := n.Normalize("  Nature COMMUNICATIONS ")
	if third != first {
		t.Errorf("case variant = %q, want cached %q", third, first)
	}
	if n.CacheLen() != 1 {
		t.Errorf("CacheLen() = %d, want 1", n.CacheLen())
	}
}

func TestNormalize_SeparateInstances(t *testing.T) {
	a := NewNormalizer()
	b := NewNormalizer()
	a.Normalize("cell")
	if b.CacheLen() != 0 {
		t.Errorf("caches are shared between normalizers")
	}
}

func TestParseVenue(t *testing.T) {
	tests := []struct {
		input       string
		wantJournal string
		wantVolume  string
		wantIssue   string
	}{
		{"Nature Ecology 5 (3), 112-120", "Nature Ecology", "5", "3"},
		{"Science 371 (6530), 284-288", "Science", "371", "6530"},
		{"The ISME Journal 15, 1-10", "The ISME Journal", "15", ""},
		{"Nature Microbiology", "Nature Microbiology", "", ""},
		{"Proceedings, Workshop on Things", "Proceedings", "", ""},
		{"bioRxiv, 2021.05.01.442", "bioRxiv", "2021", ""},
		{"", "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			j, v, i := ParseVenue(tt.input)
			if j != tt.wantJournal || v != tt.wantVolume || i != tt.wantIssue {
				t.Errorf("ParseVenue(%q) = (%q, %q, %q), want (%q, %q, %q)",
					tt.input, j, v, i, tt.wantJournal, tt.wantVolume, tt.wantIssue)
			}
		})
	}
}

func TestIsAllUpper(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"NATURE ECOLOGY", true},
		{"PNAS", true},
		{"Nature", false},
		{"123", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsAllUpper(tt.input); got != tt.want {
			t.Errorf("IsAllUpper(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}
