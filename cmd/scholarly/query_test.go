package main

import (
	"testing"

	"github.com/scholarlyreport/scholarly/internal/reference"
)

func TestParseYearRange(t *testing.T) {
	tests := []struct {
		value    string
		wantFrom int
		wantTo   int
		wantErr  bool
	}{
		// Exact year
		{"2024", 2024, 2024, false},

		// Full range
		{"2020:2024", 2020, 2024, false},
		{"2020:2020", 2020, 2020, false},

		// Open-ended ranges
		{"2020:", 2020, 0, false},
		{":2024", 0, 2024, false},

		// Edge cases
		{"", 0, 0, false},
		{"  2024  ", 2024, 2024, false},
		{":", 0, 0, false},

		// Errors
		{"abc", 0, 0, true},
		{"abc:2024", 0, 0, true},
		{"2020:abc", 0, 0, true},
		{"2024:2020", 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			from, to, err := parseYearRange(tt.value)

			if (err != nil) != tt.wantErr {
				t.Errorf("parseYearRange(%q) error = %v, wantErr %v", tt.value, err, tt.wantErr)
				return
			}
			if !tt.wantErr && (from != tt.wantFrom || to != tt.wantTo) {
				t.Errorf("parseYearRange(%q) = %d, %d, want %d, %d", tt.value, from, to, tt.wantFrom, tt.wantTo)
			}
		})
	}
}

func TestYearLabel(t *testing.T) {
	if got := yearLabel(0); got != "----" {
		t.Errorf("yearLabel(0) = %q", got)
	}
	if got := yearLabel(2021); got != "2021" {
		t.Errorf("yearLabel(2021) = %q", got)
	}
}

func TestFilterByNames(t *testing.T) {
	pubs := []reference.Publication{
		{Title: "one", AuthorList: []string{"J Doe", "Q Zhang"}},
		{Title: "two", AuthorList: []string{"Jane A Doe"}},
		{Title: "three", AuthorList: []string{"A Smith", "Q Zhang"}},
	}

	tests := []struct {
		name  string
		names []string
		limit int
		want  []string
	}{
		{"last name only", []string{"Doe"}, 0, []string{"one", "two"}},
		{"first name prefix", []string{"Jane Doe"}, 0, []string{"two"}},
		{"and logic", []string{"Doe", "Zhang"}, 0, []string{"one"}},
		{"limit", []string{"Zhang"}, 1, []string{"one"}},
		{"no match", []string{"Nobody"}, 0, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := filterByNames(pubs, tt.names, tt.limit)
			var titles []string
			for _, p := range got {
				titles = append(titles, p.Title)
			}
			if len(titles) != len(tt.want) {
				t.Fatalf("filterByNames() = %v, want %v", titles, tt.want)
			}
			for i := range titles {
				if titles[i] != tt.want[i] {
					t.Errorf("filterByNames()[%d] = %q, want %q", i, titles[i], tt.want[i])
				}
			}
		})
	}
}
